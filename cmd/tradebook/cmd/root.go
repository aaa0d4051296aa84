package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/config"
	"github.com/rustyeddy/tradebook/fsys"
	"github.com/rustyeddy/tradebook/internal/logger"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/migrate"
	"github.com/rustyeddy/tradebook/paths"
	"github.com/rustyeddy/tradebook/trades"
)

var rootCmd = &cobra.Command{
	Use:   "tradebook",
	Short: "Keep a trade ledger and its per-trade folders in step",
	Long: `Tradebook keeps a CSV ledger of trades next to a browsable folder tree:

  trades/{YYYY}/{TICKER}_{MM-DD}_{SEQ}/images/

It provides tools for:
  - Adding, updating and deleting trades
  - Writing and linking markdown notes
  - Migrating older folder layouts
  - Validating and repairing the ledger against the folders
  - Backups and SQLite export

The data root defaults to the current directory and may hold a
tradebook.yaml config file.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var (
	cfgFile  string
	rootFlag string

	cfg *config.Config
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is {root}/tradebook.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "data root directory (overrides data.root)")
}

// loadConfig reads the config file named by --config, or the default file
// in the data root, and starts the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		root := rootFlag
		if root == "" {
			root = "."
		}
		if p := filepath.Join(root, config.DefaultFile); fileExists(p) {
			path = p
		}
	}

	if path == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if rootFlag != "" {
		cfg.Data.Root = rootFlag
	}

	logger.Init(cfg.Log.Level, cfg.Log.Pretty)
	logger.L().Debug().Str("root", cfg.Data.Root).Str("config", path).Msg("config loaded")
	return nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// app wires the services for one command run.
type app struct {
	fs     *fsys.OS
	ledger *journal.Ledger
	gen    *paths.Generator
	trades *trades.Service
}

// newApp wires the services. Commands that write pass writable to get the
// data root and a header-only ledger created; read-only commands and dry
// runs leave the disk alone, since a missing ledger reads as empty.
func newApp(writable bool) (*app, error) {
	log := *logger.L()

	fs := fsys.NewOS(cfg.Data.Root)
	ledger := journal.NewCSV(fs, cfg.Data.LedgerFile, journal.WithLogger(log))
	if writable {
		if err := os.MkdirAll(cfg.Data.Root, 0o755); err != nil {
			return nil, fmt.Errorf("data root: %w", err)
		}
		if err := ledger.Initialize(); err != nil {
			return nil, fmt.Errorf("initialize ledger: %w", err)
		}
	}
	gen := paths.NewGenerator(fs, cfg.Data.TradesDir)
	svc := trades.New(fs, ledger, gen,
		trades.WithLogger(log),
		trades.WithNoteExtensions(cfg.Notes.Extensions),
	)
	return &app{fs: fs, ledger: ledger, gen: gen, trades: svc}, nil
}

func (a *app) migrator(dryRun bool) *migrate.Service {
	return migrate.New(a.fs, a.gen, a.ledger, migrate.Options{
		DryRun:         dryRun,
		Logger:         logger.L(),
		LedgerPath:     cfg.Data.LedgerFile,
		BackupsDir:     cfg.Data.BackupsDir,
		NoteExtensions: cfg.Notes.Extensions,
	})
}

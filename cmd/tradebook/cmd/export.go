package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/journal"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger",
}

var exportSQLiteCmd = &cobra.Command{
	Use:   "sqlite",
	Short: "Mirror the ledger into a SQLite database",
	Long: `Rebuild a SQLite copy of the ledger for ad hoc SQL queries. The CSV
ledger stays the source of truth; the copy is replaced on every export.

Examples:
  tradebook export sqlite
  tradebook export sqlite --db /tmp/trades.db --from 2024-01-01 --to 2024-02-01`,
	Args: cobra.NoArgs,
	RunE: runExportSQLite,
}

var (
	exportDB   string
	exportFrom string
	exportTo   string
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportSQLiteCmd)

	exportSQLiteCmd.Flags().StringVarP(&exportDB, "db", "d", "", "database path (default sqlite.path from config)")
	exportSQLiteCmd.Flags().StringVar(&exportFrom, "from", "", "after export, list trades bought on or after this date")
	exportSQLiteCmd.Flags().StringVar(&exportTo, "to", "", "last buy date to list with --from (default: the --from day)")
}

func runExportSQLite(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	recs, err := a.ledger.ReadAll()
	if err != nil {
		return err
	}

	dbPath := exportDB
	if dbPath == "" {
		dbPath = cfg.SQLite.Path
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(cfg.Data.Root, dbPath)
		}
	}
	j, err := journal.NewSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	n, err := j.Replace(cmd.Context(), recs)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Exported %d trade(s) to %s\n", n, dbPath)

	if exportFrom == "" {
		return nil
	}
	start, err := parseDate("from", exportFrom)
	if err != nil {
		return err
	}
	end := start
	if exportTo != "" {
		if end, err = parseDate("to", exportTo); err != nil {
			return err
		}
	}
	bought, err := j.ListTradesBoughtBetween(start, end)
	if err != nil {
		return err
	}
	fmt.Fprint(out, journal.FormatTradesOrg(bought))
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/migrate"
	"github.com/rustyeddy/tradebook/pkg/date"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move legacy folders and loose notes into the year layout",
	Long: `Migrate scans the trades directory for entries that are not year
directories: flat per-ticker folders and loose note files. Each one gets a
fresh trade folder; the ticker and date come from its name, then from the
headers of its notes, and are guessed otherwise. A backup is taken first.

Example:
  tradebook migrate --dry-run`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the ledger against the trade folders",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Fix what validate reports",
	Long: `Repair drops duplicate ledger rows (keeping the first), recreates
missing folders, files rows that have no folder and removes empty orphaned
folders. Run it again until validate passes; orphans that still hold files
and corrupted rows need a manual look.`,
	Args: cobra.NoArgs,
	RunE: runRepair,
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create or list backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Copy the trades tree and the ledger into a new backup",
	Args:  cobra.NoArgs,
	RunE:  runBackupCreate,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

var (
	migrateDryRun bool
	repairDryRun  bool

	errInvalid = errors.New("data is not valid")
)

func init() {
	rootCmd.AddCommand(migrateCmd, validateCmd, repairCmd, backupCmd)
	backupCmd.AddCommand(backupCreateCmd, backupListCmd)

	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "report what would change without touching anything")
	repairCmd.Flags().BoolVar(&repairDryRun, "dry-run", false, "report what would change without touching anything")
}

func dryRunTag(dry bool) string {
	if dry {
		return " (dry run)"
	}
	return ""
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := newApp(!migrateDryRun)
	if err != nil {
		return err
	}
	res, err := a.migrator(migrateDryRun).Migrate()
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Migration%s: %d migrated, %d skipped\n", dryRunTag(res.DryRun), len(res.Migrated), len(res.Skipped))
	if res.BackupPath != "" {
		fmt.Fprintf(out, "  Backup: %s\n", res.BackupPath)
	}
	for _, m := range res.Migrated {
		fmt.Fprintf(out, "  %s -> %s [%s, %s %s, %d files]\n",
			m.Source, m.Target, m.Provenance, m.Ticker, date.Format(m.Date), m.Files)
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(out, "  skipped %s: %s\n", s.Legacy.Path, s.Reason)
	}
	printWarnings(cmd, res.Warnings)
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	res, err := a.migrator(false).ValidateDataIntegrity()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), res.Summary())
	if !res.Valid {
		return errInvalid
	}
	return nil
}

func runRepair(cmd *cobra.Command, args []string) error {
	a, err := newApp(!repairDryRun)
	if err != nil {
		return err
	}
	res, err := a.migrator(repairDryRun).CleanupAndRepair()
	if err != nil {
		return fmt.Errorf("repair: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Repair%s: %d action(s)\n", dryRunTag(res.DryRun), len(res.Actions))
	if res.BackupPath != "" {
		fmt.Fprintf(out, "  Backup: %s\n", res.BackupPath)
	}
	for _, act := range res.Actions {
		fmt.Fprintf(out, "  %s\n", act)
	}
	printWarnings(cmd, res.Warnings)
	printSummary(out, "After", res.After)
	return nil
}

func printSummary(out io.Writer, label string, res migrate.ValidationResult) {
	fmt.Fprintf(out, "%s: %s", label, res.Summary())
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	p, err := a.migrator(false).CreateBackup()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Backup created: %s\n", p)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	list, err := a.migrator(false).ListBackups()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No backups.")
		return nil
	}
	for _, b := range list {
		fmt.Fprintf(out, "%-32s %s  %5d files\n", b.Name, b.CreatedAt.Format("2006-01-02 15:04:05"), b.Files)
	}
	return nil
}

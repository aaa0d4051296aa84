package cmd

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/notes"
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Create, link and check trade notes",
	Long: `Work with the markdown notes kept for each trade. Note paths are
relative to the data root.

Subcommands:
  new    - Write a note template for a trade
  link   - Fill a note's header from its trade
  check  - Check note headers and bodies

Examples:
  tradebook note new <trade-id> --type entry
  tradebook note link <trade-id> trades/2024/AAPL_01-15_001/idea.md
  tradebook note check trades/2024/AAPL_01-15_001/entry-2024-01-15.md`,
}

var noteNewCmd = &cobra.Command{
	Use:   "new <trade-id>",
	Short: "Write a note template for a trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteNew,
}

var noteLinkCmd = &cobra.Command{
	Use:   "link <trade-id> <note-file>",
	Short: "Fill a note's header from its trade",
	Args:  cobra.ExactArgs(2),
	RunE:  runNoteLink,
}

var noteCheckCmd = &cobra.Command{
	Use:   "check <note-file>...",
	Short: "Check note headers and bodies",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNoteCheck,
}

var (
	noteType   string
	noteForce  bool
	noteScheme string
	noteOut    string
)

func init() {
	rootCmd.AddCommand(noteCmd)
	noteCmd.AddCommand(noteNewCmd, noteLinkCmd, noteCheckCmd)

	noteNewCmd.Flags().StringVarP(&noteType, "type", "t", string(notes.Entry), "note type (entry, exit, analysis, follow-up, custom)")
	noteNewCmd.Flags().BoolVar(&noteForce, "force", false, "overwrite an existing note")
	noteNewCmd.Flags().StringVar(&noteScheme, "scheme", "", "path scheme (folder or calendar; default from config)")

	noteLinkCmd.Flags().StringVarP(&noteOut, "output", "o", "", "write the linked note here instead of in place")
}

func runNoteNew(cmd *cobra.Command, args []string) error {
	t, err := notes.ParseType(noteType)
	if err != nil {
		return err
	}
	scheme := cfg.Scheme()
	if noteScheme != "" {
		scheme = notes.Scheme(noteScheme)
		if scheme != notes.SchemeFolder && scheme != notes.SchemeCalendar {
			return fmt.Errorf("--scheme must be folder or calendar")
		}
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	rec, err := a.trades.Get(args[0])
	if err != nil {
		return err
	}

	content, err := notes.CreateTemplate(rec, t)
	if err != nil {
		return err
	}
	p := notes.GenerateFilePath(rec, t, scheme)
	if a.fs.Exists(p) && !noteForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", p)
	}
	if err := a.fs.CreateDir(path.Dir(p)); err != nil {
		return fmt.Errorf("create note dir: %w", err)
	}
	if err := a.fs.WriteFile(p, []byte(content)); err != nil {
		return fmt.Errorf("write note: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s note: %s\n", t, p)
	return nil
}

func runNoteLink(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	rec, err := a.trades.Get(args[0])
	if err != nil {
		return err
	}
	src := args[1]
	data, err := a.fs.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read note: %w", err)
	}

	n := notes.LinkNoteToTrade(rec, string(data), path.Base(src))
	dst := src
	if noteOut != "" {
		dst = noteOut
	}
	if err := a.fs.WriteFile(dst, []byte(n.Content())); err != nil {
		return fmt.Errorf("write note: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Linked %s to trade %s\n", dst, n.TradeID)
	return nil
}

func runNoteCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	bad := 0
	for _, p := range args {
		data, err := a.fs.ReadFile(p)
		if err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", p, err)
			bad++
			continue
		}
		res := notes.ValidateStructure(string(data))
		if res.Valid {
			fmt.Fprintf(out, "✓ %s\n", p)
			continue
		}
		bad++
		fmt.Fprintf(out, "✗ %s\n", p)
		for _, e := range res.Errors {
			fmt.Fprintf(out, "    %s\n", e)
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d notes have problems", bad, len(args))
	}
	return nil
}

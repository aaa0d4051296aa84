package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/fsys"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/notes"
	"github.com/rustyeddy/tradebook/pkg/date"
	"github.com/rustyeddy/tradebook/trades"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Add, change, remove and list trades",
	Long: `Manage the trades in the ledger.

Subcommands:
  add     - Record a new trade and create its folder
  update  - Change fields of a stored trade
  delete  - Remove trades from the ledger
  list    - List trades
  show    - Show one trade and its notes

Examples:
  tradebook trade add --ticker AAPL --buy-date 2024-01-15 --buy-price 100 --qty 10
  tradebook trade update <id> --sell-date 2024-01-25 --sell-price 150
  tradebook trade list --ticker AAPL --from 2024-01-01`,
}

var tradeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new trade",
	Args:  cobra.NoArgs,
	RunE:  runTradeAdd,
}

var tradeUpdateCmd = &cobra.Command{
	Use:   "update <trade-id>",
	Short: "Change fields of a stored trade",
	Long: `Only the flags given are changed. A new ticker or buy date moves the
trade to a fresh folder; the old folder content is copied over.`,
	Args: cobra.ExactArgs(1),
	RunE: runTradeUpdate,
}

var tradeDeleteCmd = &cobra.Command{
	Use:   "delete <trade-id>...",
	Short: "Remove trades from the ledger",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTradeDelete,
}

var tradeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades",
	Args:  cobra.NoArgs,
	RunE:  runTradeList,
}

var tradeShowCmd = &cobra.Command{
	Use:   "show <trade-id>",
	Short: "Show one trade and its notes",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeShow,
}

var (
	tTicker     string
	tBuyDate    string
	tBuyPrice   string
	tQty        string
	tSellDate   string
	tSellPrice  string
	tCommission string
	tMemo       string
	tClearSale  bool

	tKeepFolder bool

	tListTicker string
	tListFrom   string
	tListTo     string
	tListOrg    bool
)

func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.AddCommand(tradeAddCmd, tradeUpdateCmd, tradeDeleteCmd, tradeListCmd, tradeShowCmd)

	for _, c := range []*cobra.Command{tradeAddCmd, tradeUpdateCmd} {
		c.Flags().StringVar(&tTicker, "ticker", "", "ticker symbol")
		c.Flags().StringVar(&tBuyDate, "buy-date", "", "buy date (YYYY-MM-DD)")
		c.Flags().StringVar(&tBuyPrice, "buy-price", "", "buy price")
		c.Flags().StringVar(&tQty, "qty", "", "quantity")
		c.Flags().StringVar(&tSellDate, "sell-date", "", "sell date (YYYY-MM-DD)")
		c.Flags().StringVar(&tSellPrice, "sell-price", "", "sell price")
		c.Flags().StringVar(&tCommission, "commission", "0", "total commission")
		c.Flags().StringVar(&tMemo, "memo", "", "free text memo")
	}
	tradeUpdateCmd.Flags().BoolVar(&tClearSale, "clear-sale", false, "reopen the trade by dropping sell date and price")
	for _, name := range []string{"ticker", "buy-date", "buy-price", "qty"} {
		_ = tradeAddCmd.MarkFlagRequired(name)
	}

	tradeDeleteCmd.Flags().BoolVar(&tKeepFolder, "keep-folder", false, "leave the trade folders on disk")

	tradeListCmd.Flags().StringVar(&tListTicker, "ticker", "", "only trades for this ticker")
	tradeListCmd.Flags().StringVar(&tListFrom, "from", "", "only trades bought on or after this date")
	tradeListCmd.Flags().StringVar(&tListTo, "to", "", "only trades bought on or before this date")
	tradeListCmd.Flags().BoolVar(&tListOrg, "org", false, "print as org-mode headings")
}

func parseDecimal(flag, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return d, nil
}

func parseDate(flag, s string) (time.Time, error) {
	d, err := date.Parse(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return d, nil
}

func runTradeAdd(cmd *cobra.Command, args []string) error {
	var d trades.Draft
	var err error

	d.Ticker = tTicker
	d.Memo = tMemo
	if d.BuyDate, err = parseDate("buy-date", tBuyDate); err != nil {
		return err
	}
	if d.BuyPrice, err = parseDecimal("buy-price", tBuyPrice); err != nil {
		return err
	}
	if d.Quantity, err = parseDecimal("qty", tQty); err != nil {
		return err
	}
	if d.Commission, err = parseDecimal("commission", tCommission); err != nil {
		return err
	}
	if tSellDate != "" {
		sd, err := parseDate("sell-date", tSellDate)
		if err != nil {
			return err
		}
		d.SellDate = &sd
	}
	if tSellPrice != "" {
		sp, err := parseDecimal("sell-price", tSellPrice)
		if err != nil {
			return err
		}
		d.SellPrice = decimal.NewNullDecimal(sp)
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	rec, err := a.trades.AddTrade(d)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Added trade %s\n", rec.ID)
	fmt.Fprintf(out, "  Folder: %s\n", rec.FolderPath)
	if rec.PnL.Valid {
		fmt.Fprintf(out, "  P/L: %s\n", rec.PnL.Decimal.StringFixed(2))
	}
	if rec.HoldingDays != nil {
		fmt.Fprintf(out, "  Held: %d days\n", *rec.HoldingDays)
	}
	return nil
}

// patchFromFlags builds a Patch from the flags the user actually set.
func patchFromFlags(cmd *cobra.Command) (trades.Patch, error) {
	var p trades.Patch
	changed := cmd.Flags().Changed

	if changed("ticker") {
		p.Ticker = &tTicker
	}
	if changed("memo") {
		p.Memo = &tMemo
	}
	for _, f := range []struct {
		name string
		val  string
		dst  **time.Time
	}{
		{"buy-date", tBuyDate, &p.BuyDate},
		{"sell-date", tSellDate, &p.SellDate},
	} {
		if !changed(f.name) {
			continue
		}
		d, err := parseDate(f.name, f.val)
		if err != nil {
			return p, err
		}
		*f.dst = &d
	}
	for _, f := range []struct {
		name string
		val  string
		dst  **decimal.Decimal
	}{
		{"buy-price", tBuyPrice, &p.BuyPrice},
		{"qty", tQty, &p.Quantity},
		{"sell-price", tSellPrice, &p.SellPrice},
		{"commission", tCommission, &p.Commission},
	} {
		if !changed(f.name) {
			continue
		}
		d, err := parseDecimal(f.name, f.val)
		if err != nil {
			return p, err
		}
		*f.dst = &d
	}
	p.ClearSale = tClearSale
	return p, nil
}

func runTradeUpdate(cmd *cobra.Command, args []string) error {
	p, err := patchFromFlags(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(true)
	if err != nil {
		return err
	}
	res, err := a.trades.UpdateTrade(args[0], p)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Updated trade %s\n", res.Record.ID)
	if res.Relocated {
		fmt.Fprintf(out, "  Moved: %s -> %s\n", res.OldFolder, res.Record.FolderPath)
	}
	printWarnings(cmd, res.Warnings)
	return nil
}

func runTradeDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	res, err := a.trades.BulkDeleteTrades(args, !tKeepFolder)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d row(s), removed %d folder(s)\n", res.Deleted, res.FoldersGone)
	printWarnings(cmd, res.Warnings)
	return nil
}

func runTradeList(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}

	recs, err := listRecords(a)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if tListOrg {
		fmt.Fprint(out, journal.FormatTradesOrg(recs))
		return nil
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, "No trades.")
		return nil
	}
	fmt.Fprintf(out, "%-26s %-8s %-10s %10s %10s %10s %5s  %s\n", "ID", "TICKER", "BOUGHT", "QTY", "PRICE", "P/L", "NOTES", "FOLDER")
	for _, r := range recs {
		pnl := "-"
		if r.PnL.Valid {
			pnl = r.PnL.Decimal.StringFixed(2)
		}
		fmt.Fprintf(out, "%-26s %-8s %-10s %10s %10s %10s %5d  %s\n",
			r.ID, r.Ticker, date.Format(r.BuyDate), r.Quantity, r.BuyPrice.StringFixed(2), pnl,
			len(a.trades.NoteFiles(r.FolderPath)), r.FolderPath)
	}
	return nil
}

// listRecords applies the --from/--to and --ticker filters.
func listRecords(a *app) ([]journal.TradeRecord, error) {
	if tListFrom == "" && tListTo == "" {
		if tListTicker != "" {
			return a.ledger.RecordsForTicker(tListTicker)
		}
		return a.ledger.ReadAll()
	}

	start, end := date.New(1, 1, 1), date.New(9999, 12, 31)
	var err error
	if tListFrom != "" {
		if start, err = parseDate("from", tListFrom); err != nil {
			return nil, err
		}
	}
	if tListTo != "" {
		if end, err = parseDate("to", tListTo); err != nil {
			return nil, err
		}
	}
	recs, err := a.ledger.RecordsInDateRange(start, end)
	if err != nil || tListTicker == "" {
		return recs, err
	}
	var out []journal.TradeRecord
	for _, r := range recs {
		if strings.EqualFold(r.Ticker, tListTicker) {
			out = append(out, r)
		}
	}
	return out, nil
}

func runTradeShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	rec, err := a.trades.Get(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, journal.FormatTradeOrg(rec))
	files := a.trades.NoteFiles(rec.FolderPath)
	if len(files) == 0 {
		return nil
	}
	fmt.Fprintln(out, "Notes:")
	for _, name := range files {
		title := ""
		if data, err := a.fs.ReadFile(fsys.Join(rec.FolderPath, name)); err == nil {
			title = notes.Title(notes.RemoveFrontmatter(string(data)))
		}
		fmt.Fprintf(out, "  %-28s %s\n", name, title)
	}
	return nil
}

func printWarnings(cmd *cobra.Command, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "  warning: %s\n", w)
	}
}

package journal

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/tradebook/pkg/date"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block. Structured
// facts go in the PROPERTIES drawer so they stay searchable.
func FormatTradeOrg(t TradeRecord) string {
	heading := fmt.Sprintf("** Trade: %s %s (%s)", t.Ticker, date.Format(t.BuyDate), shortID(t.ID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ID: %s\n", t.ID))
	b.WriteString(fmt.Sprintf(":TICKER: %s\n", t.Ticker))
	b.WriteString(fmt.Sprintf(":BUY_DATE: %s\n", date.Format(t.BuyDate)))
	b.WriteString(fmt.Sprintf(":BUY_PRICE: %s\n", t.BuyPrice.StringFixed(2)))
	b.WriteString(fmt.Sprintf(":QUANTITY: %s\n", t.Quantity.String()))
	if t.SellDate != nil {
		b.WriteString(fmt.Sprintf(":SELL_DATE: %s\n", date.Format(*t.SellDate)))
	}
	if t.SellPrice.Valid {
		b.WriteString(fmt.Sprintf(":SELL_PRICE: %s\n", t.SellPrice.Decimal.StringFixed(2)))
	}
	if t.PnL.Valid {
		b.WriteString(fmt.Sprintf(":PNL: %s\n", t.PnL.Decimal.StringFixed(2)))
	}
	if t.HoldingDays != nil {
		b.WriteString(fmt.Sprintf(":HOLDING_DAYS: %d\n", *t.HoldingDays))
	}
	b.WriteString(fmt.Sprintf(":COMMISSION: %s\n", t.Commission.StringFixed(2)))
	b.WriteString(fmt.Sprintf(":FOLDER: %s\n", t.FolderPath))
	b.WriteString(":END:\n")
	if memo := strings.TrimSpace(t.Memo); memo != "" {
		b.WriteString("\n")
		b.WriteString(memo)
		b.WriteString("\n")
	}

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}

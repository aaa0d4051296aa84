package notes

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradebook/internal/apperrors"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/pkg/date"
)

var templateFuncs = template.FuncMap{
	"day": date.Format,
	"money": func(d decimal.Decimal) string {
		return d.StringFixed(2)
	},
	"nullMoney": func(d decimal.NullDecimal) string {
		if !d.Valid {
			return "-"
		}
		return d.Decimal.StringFixed(2)
	},
	"dayPtr": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return date.Format(*t)
	},
	"days": func(n *int) int {
		if n == nil {
			return 0
		}
		return *n
	},
}

const headerTemplate = `# {{.Title}}

| Field | Value |
|-------|-------|
| Ticker | {{.Rec.Ticker}} |
| Buy date | {{day .Rec.BuyDate}} |
| Buy price | {{money .Rec.BuyPrice}} |
| Quantity | {{.Rec.Quantity}} |
{{- if .Rec.SellDate}}
| Sell date | {{dayPtr .Rec.SellDate}} |
{{- end}}
| Sell price | {{nullMoney .Rec.SellPrice}} |
| P/L | {{nullMoney .Rec.PnL}} |
{{- if .Rec.HoldingDays}}
| Holding days | {{days .Rec.HoldingDays}} |
{{- end}}
`

var bodies = map[Type]string{
	Entry: `
## Thesis
- 

## Setup
- Entry trigger: 
- Stop: 
- Target: 

## Risk
- Position size {{.Rec.Quantity}} at {{money .Rec.BuyPrice}}
`,
	Exit: `
## Exit reason
- 

## Execution
- Sold at {{nullMoney .Rec.SellPrice}}{{if .Rec.HoldingDays}} after {{days .Rec.HoldingDays}} days{{end}}

## Review
- Result: {{nullMoney .Rec.PnL}}
- What went well: 
- What to change: 
`,
	Analysis: `
## Market context
- 

## Price action
- 

## Conclusion
- 
`,
	FollowUp: `
## Since the trade
- 

## Would I take it again?
- 

## Next actions
- [ ] 
`,
	Custom: `
## Notes
- 
`,
}

var titles = map[Type]string{
	Entry:    "Entry",
	Exit:     "Exit",
	Analysis: "Analysis",
	FollowUp: "Follow-up",
	Custom:   "Note",
}

// CreateTemplate returns the starting text for a new note of type t, with
// the trade's numbers filled in.
func CreateTemplate(rec journal.TradeRecord, t Type) (string, error) {
	body, ok := bodies[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownNoteType, t)
	}

	tpl, err := template.New(string(t)).Funcs(templateFuncs).Parse(headerTemplate + body)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = tpl.Execute(&buf, struct {
		Title string
		Rec   journal.TradeRecord
	}{
		Title: fmt.Sprintf("%s: %s %s", titles[t], rec.Ticker, date.Format(noteDate(rec, t))),
		Rec:   rec,
	})
	if err != nil {
		return "", fmt.Errorf("render %s template: %w", t, err)
	}

	fm := TradeFrontmatter(rec)
	fm["type"] = string(t)
	return GenerateFrontmatter(fm) + "\n" + buf.String(), nil
}

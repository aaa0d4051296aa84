package notes

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/rustyeddy/tradebook/fsys"
	"github.com/rustyeddy/tradebook/internal/apperrors"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/paths"
	"github.com/rustyeddy/tradebook/pkg/date"
)

// Type is the kind of note.
type Type string

const (
	Entry    Type = "entry"
	Exit     Type = "exit"
	Analysis Type = "analysis"
	FollowUp Type = "follow-up"
	Custom   Type = "custom"
)

// Types lists every note type in display order.
var Types = []Type{Entry, Exit, Analysis, FollowUp, Custom}

// ParseType accepts a type name, case-insensitively; "followup" is accepted
// for FollowUp.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "followup" {
		return FollowUp, nil
	}
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownNoteType, s)
}

// Scheme selects how a note path is derived.
type Scheme string

const (
	// SchemeFolder places notes inside the trade folder. New notes use it.
	SchemeFolder Scheme = "folder"

	// SchemeCalendar is the older notes/{YYYY}/{MM}-{open|closed}/ layout,
	// kept so existing note trees still resolve.
	SchemeCalendar Scheme = "calendar"
)

// CalendarRoot is the top directory of SchemeCalendar paths.
const CalendarRoot = "notes"

// RequiredKeys must be present in every note header.
var RequiredKeys = []string{"ticker", "date", "status"}

// Note is a note file linked to a trade.
type Note struct {
	TradeID     string
	FileName    string
	Frontmatter Frontmatter
	Body        string
}

// Content renders the note back to file text.
func (n Note) Content() string {
	body := strings.TrimLeft(n.Body, "\n")
	return GenerateFrontmatter(n.Frontmatter) + "\n" + body
}

// Status returns "open" or "closed" for rec.
func Status(rec journal.TradeRecord) string {
	if rec.Closed() {
		return "closed"
	}
	return "open"
}

// TradeFrontmatter returns the header values a note inherits from rec.
func TradeFrontmatter(rec journal.TradeRecord) Frontmatter {
	fm := Frontmatter{
		"trade_id": rec.ID,
		"ticker":   rec.Ticker,
		"date":     date.Format(rec.BuyDate),
		"status":   Status(rec),
	}
	if !rec.BuyPrice.IsZero() {
		fm["buy_price"] = rec.BuyPrice.InexactFloat64()
	}
	if !rec.Quantity.IsZero() {
		fm["quantity"] = rec.Quantity.InexactFloat64()
	}
	if rec.SellDate != nil {
		fm["sell_date"] = date.Format(*rec.SellDate)
	}
	if rec.SellPrice.Valid {
		fm["sell_price"] = rec.SellPrice.Decimal.InexactFloat64()
	}
	if rec.PnL.Valid {
		fm["pnl"] = rec.PnL.Decimal.InexactFloat64()
	}
	return fm
}

// LinkNoteToTrade builds a Note for content. Keys the note header leaves
// out are filled from rec; keys it sets win. A malformed header is treated
// as absent.
func LinkNoteToTrade(rec journal.TradeRecord, content, fileName string) Note {
	fm, body, err := ParseFrontmatter(content)
	if err != nil && len(fm) == 0 {
		body = content
	}
	for k, v := range TradeFrontmatter(rec) {
		if !fm.Has(k) {
			fm[k] = v
		}
	}
	return Note{
		TradeID:     rec.ID,
		FileName:    fileName,
		Frontmatter: fm,
		Body:        body,
	}
}

// GenerateFileName returns "{type}-{YYYY-MM-DD}.md".
func GenerateFileName(t Type, d time.Time) string {
	return fmt.Sprintf("%s-%s.md", t, date.Format(d))
}

// noteDate is the sell date for exit notes on closed trades, otherwise the
// buy date.
func noteDate(rec journal.TradeRecord, t Type) time.Time {
	if t == Exit && rec.SellDate != nil {
		return *rec.SellDate
	}
	return rec.BuyDate
}

// GenerateFilePath returns where a note of type t for rec lives, relative to
// the data root.
func GenerateFilePath(rec journal.TradeRecord, t Type, scheme Scheme) string {
	name := GenerateFileName(t, noteDate(rec, t))
	if scheme == SchemeCalendar {
		return fsys.Join(
			CalendarRoot,
			rec.BuyDate.Format("2006"),
			rec.BuyDate.Format("01")+"-"+Status(rec),
			paths.NormalizeTicker(rec.Ticker)+"_"+name,
		)
	}

	folder := rec.FolderPath
	if folder == "" {
		folder = fsys.Join(paths.DefaultRoot, paths.DeriveFolder(rec.Ticker, rec.BuyDate, 1).RelativePath)
	}
	return fsys.Join(folder, name)
}

// StructureResult is the outcome of ValidateStructure.
type StructureResult struct {
	Valid  bool
	Errors []string
}

// ValidateStructure checks that content has a closed, readable header with
// the required keys and a body with at least one markdown block.
func ValidateStructure(content string) StructureResult {
	var res StructureResult
	fm, body, err := ParseFrontmatter(content)
	_, _, hasHeader, _ := split(content)

	switch {
	case !hasHeader:
		res.Errors = append(res.Errors, "missing frontmatter header")
	case err != nil:
		res.Errors = append(res.Errors, err.Error())
	}
	if hasHeader {
		for _, k := range RequiredKeys {
			if !fm.Has(k) {
				res.Errors = append(res.Errors, fmt.Sprintf("missing required key %q", k))
			}
		}
		if d := fm.String("date"); d != "" {
			if _, err := date.Parse(d); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("bad date %q", d))
			}
		}
		if s := fm.String("status"); s != "" && s != "open" && s != "closed" {
			res.Errors = append(res.Errors, fmt.Sprintf("status must be open or closed, got %q", s))
		}
	}

	if !hasBlocks(body) {
		res.Errors = append(res.Errors, "empty body")
	}
	res.Valid = len(res.Errors) == 0
	return res
}

func parseMarkdown(body string) (ast.Node, []byte) {
	src := []byte(body)
	return goldmark.DefaultParser().Parse(text.NewReader(src)), src
}

func hasBlocks(body string) bool {
	root, _ := parseMarkdown(body)
	return root.ChildCount() > 0
}

// Title returns the text of the first heading in body, or "".
func Title(body string) string {
	root, src := parseMarkdown(body)

	var title string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		for i := 0; i < h.Lines().Len(); i++ {
			seg := h.Lines().At(i)
			buf.Write(seg.Value(src))
		}
		title = strings.TrimSpace(buf.String())
		return ast.WalkStop, nil
	})
	return title
}

package journal

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradebook/fsys"
	"github.com/rustyeddy/tradebook/internal/apperrors"
	"github.com/rustyeddy/tradebook/pkg/date"
)

// DefaultPath is the ledger file name under the data root.
const DefaultPath = "ledger.csv"

// Header is the fixed, ordered column list of the ledger file.
var Header = []string{
	"id", "ticker", "buy_date", "buy_price", "quantity",
	"sell_date", "sell_price", "pnl", "holding_days", "commission",
	"folder_path", "memo", "created_at", "updated_at",
}

// ReadStats reports what a read had to tolerate.
type ReadStats struct {
	Rows    int
	Skipped int
}

// Ledger is the CSV ledger. It caches nothing: every call starts from the
// file, so edits made by hand between calls are never lost. It assumes a
// single writer.
type Ledger struct {
	fs   fsys.FileService
	Path string
	log  zerolog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used for tolerated read problems.
func WithLogger(l zerolog.Logger) Option {
	return func(j *Ledger) { j.log = l }
}

// NewCSV returns the ledger stored at path (DefaultPath when empty).
func NewCSV(fs fsys.FileService, path string, opts ...Option) *Ledger {
	if path == "" {
		path = DefaultPath
	}
	j := &Ledger{fs: fs, Path: path, log: zerolog.Nop()}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Initialize writes a header-only ledger when none exists yet.
func (j *Ledger) Initialize() error {
	if j.fs.Exists(j.Path) {
		return nil
	}
	if err := j.fs.WriteFile(j.Path, encodeRows(nil)); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrLedgerWrite, err)
	}
	return nil
}

// ReadAll returns every well formed row in file order. A missing ledger
// reads as empty.
func (j *Ledger) ReadAll() ([]TradeRecord, error) {
	recs, _, err := j.ReadAllWithStats()
	return recs, err
}

// ReadAllWithStats is ReadAll plus a count of skipped rows. Rows with fewer
// fields than the header, or that the CSV reader rejects, are skipped.
func (j *Ledger) ReadAllWithStats() ([]TradeRecord, ReadStats, error) {
	var stats ReadStats

	data, err := j.read()
	if err != nil || len(data) == 0 {
		return nil, stats, err
	}
	return parse(data, j.log, j.Path)
}

func parse(data []byte, log zerolog.Logger, ledger string) ([]TradeRecord, ReadStats, error) {
	var stats ReadStats
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var out []TradeRecord
	header := true
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, stats, fmt.Errorf("%w: %v", apperrors.ErrLedgerRead, err)
			}
			stats.Skipped++
			log.Warn().Err(err).Str("ledger", ledger).Msg("skipping unreadable ledger row")
			continue
		}
		if header {
			header = false
			continue
		}
		if len(fields) < len(Header) {
			stats.Skipped++
			line, _ := r.FieldPos(0)
			log.Warn().Int("line", line).Int("fields", len(fields)).Str("ledger", ledger).Msg("skipping short ledger row")
			continue
		}
		out = append(out, decode(fields))
		stats.Rows++
	}
	return out, stats, nil
}

// AddRecord appends rec. It fails with apperrors.ErrDuplicateID, leaving the
// file untouched, when the ID is already present. Existing rows are kept
// byte for byte. When the file ends in a torn row that would swallow the
// appended one, it fails with apperrors.ErrLedgerWrite and writes nothing.
func (j *Ledger) AddRecord(rec TradeRecord) error {
	if rec.ID == "" {
		return apperrors.ErrEmptyID
	}
	data, err := j.read()
	if err != nil {
		return err
	}
	recs, _, err := parse(data, j.log, j.Path)
	if err != nil {
		return err
	}
	for _, r := range recs {
		if r.ID == rec.ID {
			return fmt.Errorf("%w: %s", apperrors.ErrDuplicateID, rec.ID)
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		data = encodeRows(nil)
	} else if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	data = append(data, encodeRow(rec)...)

	after, _, err := parse(data, zerolog.Nop(), j.Path)
	if err != nil {
		return err
	}
	if len(after) != len(recs)+1 || after[len(after)-1].ID != rec.ID {
		return fmt.Errorf("%w: %s ends in an unterminated row, fix its last line before adding %s",
			apperrors.ErrLedgerWrite, j.Path, rec.ID)
	}

	if err := j.fs.WriteFile(j.Path, data); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrLedgerWrite, err)
	}
	return nil
}

// UpdateRecord applies fn to the first row with id and rewrites the ledger.
// The row keeps its ID whatever fn does.
func (j *Ledger) UpdateRecord(id string, fn func(*TradeRecord)) (TradeRecord, error) {
	recs, err := j.ReadAll()
	if err != nil {
		return TradeRecord{}, err
	}
	for i := range recs {
		if recs[i].ID != id {
			continue
		}
		fn(&recs[i])
		recs[i].ID = id
		if err := j.WriteAll(recs); err != nil {
			return TradeRecord{}, err
		}
		return recs[i], nil
	}
	return TradeRecord{}, fmt.Errorf("%w: %s", apperrors.ErrTradeNotFound, id)
}

// DeleteRecord removes every row with id.
func (j *Ledger) DeleteRecord(id string) error {
	n, err := j.DeleteRecords([]string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrTradeNotFound, id)
	}
	return nil
}

// DeleteRecords removes every row whose ID is in ids and returns how many
// rows went. The file is only rewritten when something was removed.
func (j *Ledger) DeleteRecords(ids []string) (int, error) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	recs, err := j.ReadAll()
	if err != nil {
		return 0, err
	}
	kept := recs[:0]
	for _, r := range recs {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	removed := len(recs) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, j.WriteAll(kept)
}

// WriteAll replaces the ledger with the header and recs.
func (j *Ledger) WriteAll(recs []TradeRecord) error {
	if err := j.fs.WriteFile(j.Path, encodeRows(recs)); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrLedgerWrite, err)
	}
	return nil
}

func (j *Ledger) read() ([]byte, error) {
	data, err := j.fs.ReadFile(j.Path)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrLedgerRead, err)
	}
	return data, nil
}

// Table is a loaded copy of the ledger. Changes stay in memory until Flush,
// which writes the whole table back.
type Table struct {
	Records []TradeRecord
	ledger  *Ledger
}

// Load reads the ledger into a Table.
func (j *Ledger) Load() (*Table, error) {
	recs, err := j.ReadAll()
	if err != nil {
		return nil, err
	}
	return &Table{Records: recs, ledger: j}, nil
}

// Flush writes the table back to its ledger.
func (t *Table) Flush() error {
	return t.ledger.WriteAll(t.Records)
}

func encodeRows(recs []TradeRecord) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(Header)
	for _, r := range recs {
		_ = w.Write(encode(r))
	}
	w.Flush()
	return buf.Bytes()
}

func encodeRow(r TradeRecord) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(encode(r))
	w.Flush()
	return buf.Bytes()
}

func encode(r TradeRecord) []string {
	return []string{
		r.ID,
		r.Ticker,
		date.Format(r.BuyDate),
		r.BuyPrice.String(),
		r.Quantity.String(),
		formatDatePtr(r.SellDate),
		formatNull(r.SellPrice),
		formatNull(r.PnL),
		formatIntPtr(r.HoldingDays),
		r.Commission.String(),
		r.FolderPath,
		r.Memo,
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
	}
}

// decode never fails: a field that does not parse is left empty.
func decode(f []string) TradeRecord {
	r := TradeRecord{
		ID:         strings.TrimSpace(f[0]),
		Ticker:     strings.TrimSpace(f[1]),
		BuyPrice:   parseDecimal(f[3]),
		Quantity:   parseDecimal(f[4]),
		SellPrice:  parseNull(f[6]),
		PnL:        parseNull(f[7]),
		Commission: parseDecimal(f[9]),
		FolderPath: strings.TrimSpace(f[10]),
		Memo:       f[11],
		CreatedAt:  parseTime(f[12]),
		UpdatedAt:  parseTime(f[13]),
	}
	if d, err := date.Parse(f[2]); err == nil {
		r.BuyDate = d
	}
	if d, err := date.Parse(f[5]); err == nil {
		r.SellDate = &d
	}
	if n, err := strconv.Atoi(strings.TrimSpace(f[8])); err == nil {
		r.HoldingDays = &n
	}
	return r
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseNull(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatNull(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return date.Format(*t)
}

func formatIntPtr(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

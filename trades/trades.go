// Package trades is the CRUD layer over the ledger and the trade folders.
//
// Writes go folder first, ledger second. A crash in between leaves an
// orphaned folder, which validation treats as harmless and repair removes,
// rather than a ledger row pointing at nothing.
package trades

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradebook/fsys"
	"github.com/rustyeddy/tradebook/internal/apperrors"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/paths"
	"github.com/rustyeddy/tradebook/pkg/date"
	"github.com/rustyeddy/tradebook/pkg/id"
)

// DefaultNoteExtensions are the suffixes that mark a note file.
var DefaultNoteExtensions = []string{".md", ".note"}

// Draft is a trade that has not been stored yet.
type Draft struct {
	Ticker     string
	BuyDate    time.Time
	BuyPrice   decimal.Decimal
	Quantity   decimal.Decimal
	SellDate   *time.Time
	SellPrice  decimal.NullDecimal
	Commission decimal.Decimal
	Memo       string
}

// Patch holds the fields to change on a stored trade; nil means keep.
// ClearSale drops both sell fields and wins over SellDate/SellPrice.
type Patch struct {
	Ticker     *string
	BuyDate    *time.Time
	BuyPrice   *decimal.Decimal
	Quantity   *decimal.Decimal
	SellDate   *time.Time
	SellPrice  *decimal.Decimal
	ClearSale  bool
	Commission *decimal.Decimal
	Memo       *string
}

// Trade is a ledger row plus the note files found in its folder.
type Trade struct {
	journal.TradeRecord
	Notes []string
}

// UpdateResult reports an update. Relocated is set when a ticker or buy date
// change moved the trade to a fresh folder.
type UpdateResult struct {
	Record    journal.TradeRecord
	Relocated bool
	OldFolder string
	Warnings  []string
}

// DeleteResult separates the ledger delete, which must succeed, from the
// folder cleanup, which is best effort and only ever produces warnings.
type DeleteResult struct {
	Deleted     int
	FoldersGone int
	Warnings    []string
}

// Service implements trade CRUD.
type Service struct {
	fs       fsys.FileService
	ledger   journal.Store
	gen      *paths.Generator
	noteExts []string
	log      zerolog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithNoteExtensions sets the suffixes LoadTrades treats as notes.
func WithNoteExtensions(exts []string) Option {
	return func(s *Service) {
		if len(exts) > 0 {
			s.noteExts = exts
		}
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(fs fsys.FileService, ledger journal.Store, gen *paths.Generator, opts ...Option) *Service {
	s := &Service{
		fs:       fs,
		ledger:   ledger,
		gen:      gen,
		noteExts: DefaultNoteExtensions,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ComputeDerived recomputes PnL and HoldingDays from the price and date
// fields, clearing each when its inputs are incomplete.
func ComputeDerived(r *journal.TradeRecord) {
	if r.SellPrice.Valid && !r.BuyPrice.IsZero() {
		pnl := r.SellPrice.Decimal.Sub(r.BuyPrice).Mul(r.Quantity).Sub(r.Commission)
		r.PnL = decimal.NewNullDecimal(pnl)
	} else {
		r.PnL = decimal.NullDecimal{}
	}

	if r.SellDate != nil && !r.BuyDate.IsZero() {
		days := date.DaysBetween(r.BuyDate, *r.SellDate)
		r.HoldingDays = &days
	} else {
		r.HoldingDays = nil
	}
}

func validate(r journal.TradeRecord) error {
	if missing := r.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", apperrors.ErrInvalidTrade, strings.Join(missing, ", "))
	}
	if r.Quantity.IsNegative() || r.BuyPrice.IsNegative() {
		return fmt.Errorf("%w: negative quantity or price", apperrors.ErrInvalidTrade)
	}
	if r.SellDate != nil && r.SellDate.Before(r.BuyDate) {
		return fmt.Errorf("%w: sell date before buy date", apperrors.ErrInvalidTrade)
	}
	return nil
}

// AddTrade stores a new trade: it creates the trade folder and then appends
// the ledger row. No row is written when the folder cannot be created.
func (s *Service) AddTrade(d Draft) (journal.TradeRecord, error) {
	now := s.now().UTC()
	rec := journal.TradeRecord{
		ID:         id.NewAt(now),
		Ticker:     paths.NormalizeTicker(d.Ticker),
		BuyDate:    date.Of(d.BuyDate),
		BuyPrice:   d.BuyPrice,
		Quantity:   d.Quantity,
		SellPrice:  d.SellPrice,
		Commission: d.Commission,
		Memo:       d.Memo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if d.SellDate != nil {
		sd := date.Of(*d.SellDate)
		rec.SellDate = &sd
	}
	if err := validate(rec); err != nil {
		return journal.TradeRecord{}, err
	}
	ComputeDerived(&rec)

	info, err := s.gen.CreateFolderWithSequence(rec.Ticker, rec.BuyDate)
	if err != nil {
		return journal.TradeRecord{}, fmt.Errorf("add trade: %w", err)
	}
	rec.FolderPath = info.Path

	if err := s.ledger.AddRecord(rec); err != nil {
		s.log.Warn().Str("folder", info.Path).Err(err).Msg("ledger write failed, folder left orphaned")
		return journal.TradeRecord{}, fmt.Errorf("add trade: %w", err)
	}
	s.log.Info().Str("id", rec.ID).Str("ticker", rec.Ticker).Str("folder", rec.FolderPath).Msg("trade added")
	return rec, nil
}

// Get returns the stored trade with id.
func (s *Service) Get(tradeID string) (journal.TradeRecord, error) {
	return s.ledger.FindRecord(tradeID)
}

func applyPatch(r journal.TradeRecord, p Patch) journal.TradeRecord {
	if p.Ticker != nil {
		r.Ticker = paths.NormalizeTicker(*p.Ticker)
	}
	if p.BuyDate != nil {
		r.BuyDate = date.Of(*p.BuyDate)
	}
	if p.BuyPrice != nil {
		r.BuyPrice = *p.BuyPrice
	}
	if p.Quantity != nil {
		r.Quantity = *p.Quantity
	}
	if p.SellDate != nil {
		sd := date.Of(*p.SellDate)
		r.SellDate = &sd
	}
	if p.SellPrice != nil {
		r.SellPrice = decimal.NewNullDecimal(*p.SellPrice)
	}
	if p.ClearSale {
		r.SellDate = nil
		r.SellPrice = decimal.NullDecimal{}
	}
	if p.Commission != nil {
		r.Commission = *p.Commission
	}
	if p.Memo != nil {
		r.Memo = *p.Memo
	}
	return r
}

// UpdateTrade merges p onto the stored trade and recomputes the derived
// fields. Folders are never renamed: a new ticker or buy date gets a fresh
// folder with the next free sequence, the old content is copied over and the
// old folder is removed on a best effort basis.
func (s *Service) UpdateTrade(tradeID string, p Patch) (UpdateResult, error) {
	cur, err := s.ledger.FindRecord(tradeID)
	if err != nil {
		return UpdateResult{}, err
	}

	next := applyPatch(cur, p)
	if err := validate(next); err != nil {
		return UpdateResult{}, err
	}
	ComputeDerived(&next)
	next.UpdatedAt = s.now().UTC()

	var res UpdateResult
	if next.Ticker != cur.Ticker || !next.BuyDate.Equal(cur.BuyDate) {
		info, err := s.gen.CreateFolderWithSequence(next.Ticker, next.BuyDate)
		if err != nil {
			return UpdateResult{}, fmt.Errorf("update trade: %w", err)
		}
		if cur.FolderPath != "" && s.fs.Exists(cur.FolderPath) {
			if _, err := fsys.CopyTree(s.fs, cur.FolderPath, info.Path); err != nil {
				return UpdateResult{}, fmt.Errorf("update trade: move folder content: %w", err)
			}
		}
		next.FolderPath = info.Path
		res.Relocated = true
		res.OldFolder = cur.FolderPath
	}

	stored, err := s.ledger.UpdateRecord(tradeID, func(r *journal.TradeRecord) { *r = next })
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update trade: %w", err)
	}
	res.Record = stored

	if res.Relocated && res.OldFolder != "" {
		if w := s.removeFolder(res.OldFolder); w != "" {
			res.Warnings = append(res.Warnings, w)
		}
	}
	return res, nil
}

// DeleteTrade removes every ledger row for tradeID and, when asked, its
// folder. Deleted counts the rows removed. Folder problems become warnings;
// they never fail the call.
func (s *Service) DeleteTrade(tradeID string, alsoDeleteFolder bool) (DeleteResult, error) {
	rec, err := s.ledger.FindRecord(tradeID)
	if err != nil {
		return DeleteResult{}, err
	}
	n, err := s.ledger.DeleteRecords([]string{tradeID})
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete trade: %w", err)
	}

	res := DeleteResult{Deleted: n}
	if n > 1 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("removed %d rows sharing id %s", n, tradeID))
	}
	if alsoDeleteFolder {
		s.dropFolders(&res, []string{rec.FolderPath})
	}
	return res, nil
}

// BulkDeleteTrades is DeleteTrade for many IDs with a single ledger rewrite.
// Unknown IDs are reported as warnings.
func (s *Service) BulkDeleteTrades(ids []string, alsoDeleteFolder bool) (DeleteResult, error) {
	recs, err := s.ledger.ReadAll()
	if err != nil {
		return DeleteResult{}, err
	}

	var res DeleteResult
	var folders []string
	for _, want := range ids {
		found := false
		for _, r := range recs {
			if r.ID == want {
				found = true
				if !slices.Contains(folders, r.FolderPath) {
					folders = append(folders, r.FolderPath)
				}
			}
		}
		if !found {
			res.Warnings = append(res.Warnings, fmt.Sprintf("trade %s not found", want))
		}
	}

	n, err := s.ledger.DeleteRecords(ids)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("bulk delete: %w", err)
	}
	res.Deleted = n

	if alsoDeleteFolder {
		s.dropFolders(&res, folders)
	}
	return res, nil
}

func (s *Service) dropFolders(res *DeleteResult, folders []string) {
	for _, f := range folders {
		if w := s.removeFolder(f); w != "" {
			res.Warnings = append(res.Warnings, w)
			continue
		}
		res.FoldersGone++
	}
}

// removeFolder deletes p and returns a warning instead of an error.
func (s *Service) removeFolder(p string) string {
	if p == "" {
		return "trade has no folder path"
	}
	if !s.fs.Exists(p) {
		s.log.Warn().Str("folder", p).Msg("folder already missing")
		return fmt.Sprintf("folder %s already missing", p)
	}
	if err := s.fs.DeleteDir(p); err != nil {
		s.log.Warn().Str("folder", p).Err(err).Msg("folder delete failed")
		return fmt.Sprintf("could not delete folder %s: %v", p, err)
	}
	return ""
}

// LoadTrades returns every ledger row with the note files in its folder. A
// folder that is missing or unreadable yields no notes and a warning in the
// log; it never stops the load.
func (s *Service) LoadTrades() ([]Trade, error) {
	recs, err := s.ledger.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	out := make([]Trade, 0, len(recs))
	for _, r := range recs {
		out = append(out, Trade{TradeRecord: r, Notes: s.NoteFiles(r.FolderPath)})
	}
	return out, nil
}

// NoteFiles returns the sorted names of the note files directly inside
// folder. A missing or unreadable folder gives an empty list.
func (s *Service) NoteFiles(folder string) []string {
	if folder == "" {
		return []string{}
	}
	entries, err := s.fs.ReadDir(folder)
	if err != nil {
		s.log.Warn().Str("folder", folder).Bool("missing", errors.Is(err, apperrors.ErrNotFound)).Err(err).Msg("cannot list trade folder")
		return []string{}
	}

	notes := []string{}
	for _, e := range entries {
		if !e.IsDir && s.isNote(e.Name) {
			notes = append(notes, e.Name)
		}
	}
	slices.Sort(notes)
	return notes
}

func (s *Service) isNote(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range s.noteExts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

package migrate

import (
	"fmt"
	"path"
	"strings"

	"github.com/rustyeddy/tradebook/fsys"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/paths"
)

// Corrupted is a ledger row missing required fields.
type Corrupted struct {
	ID      string
	Missing []string
}

// ValidationResult is the report of ValidateDataIntegrity. Valid is true
// only when every list is empty.
type ValidationResult struct {
	Valid        bool
	TotalRecords int

	// SkippedRows counts ledger lines too short to read. They are reported
	// but do not make the data invalid.
	SkippedRows int

	// DuplicateIDs holds each id that appears more than once, in order of
	// its second appearance.
	DuplicateIDs []string

	// MissingFolders are folder paths referenced by a row but absent on
	// disk.
	MissingFolders []string

	// Unfiled holds the ids of rows with no folder path at all.
	Unfiled []string

	// OrphanedFolders are trades/{year}/* directories no row references.
	OrphanedFolders []string

	CorruptedRecords []Corrupted
	Suggestions      []string
}

type statsReader interface {
	ReadAllWithStats() ([]journal.TradeRecord, journal.ReadStats, error)
}

func (s *Service) readLedger() ([]journal.TradeRecord, int, error) {
	if sr, ok := s.ledger.(statsReader); ok {
		recs, st, err := sr.ReadAllWithStats()
		return recs, st.Skipped, err
	}
	recs, err := s.ledger.ReadAll()
	return recs, 0, err
}

// ValidateDataIntegrity cross-checks the ledger against the trades tree in
// one pass and suggests fixes. It never writes, dry run or not.
func (s *Service) ValidateDataIntegrity() (ValidationResult, error) {
	s.setState(Scanning)
	res, err := s.validate()
	if err != nil {
		s.setState(Idle)
		return res, err
	}
	s.setState(Reporting)
	s.log.Info().
		Bool("valid", res.Valid).
		Int("records", res.TotalRecords).
		Int("duplicates", len(res.DuplicateIDs)).
		Int("missing", len(res.MissingFolders)).
		Int("orphaned", len(res.OrphanedFolders)).
		Int("corrupted", len(res.CorruptedRecords)).
		Msg("validation finished")
	return res, nil
}

func (s *Service) validate() (ValidationResult, error) {
	var res ValidationResult
	recs, skipped, err := s.readLedger()
	if err != nil {
		return res, fmt.Errorf("validate: %w", err)
	}
	res.TotalRecords = len(recs)
	res.SkippedRows = skipped

	seen := map[string]int{}
	missing := map[string]bool{}
	refs := map[string]bool{}
	for _, r := range recs {
		seen[r.ID]++
		if seen[r.ID] == 2 {
			res.DuplicateIDs = append(res.DuplicateIDs, r.ID)
		}

		if fields := r.MissingFields(); len(fields) > 0 {
			res.CorruptedRecords = append(res.CorruptedRecords, Corrupted{ID: r.ID, Missing: fields})
		}

		if r.FolderPath == "" {
			res.Unfiled = append(res.Unfiled, r.ID)
			continue
		}
		folder := path.Clean(r.FolderPath)
		refs[folder] = true
		if !missing[folder] && !s.fs.Exists(folder) {
			missing[folder] = true
			res.MissingFolders = append(res.MissingFolders, folder)
		}
	}

	res.OrphanedFolders, err = s.orphanedFolders(refs)
	if err != nil {
		return res, fmt.Errorf("validate: %w", err)
	}

	res.Valid = len(res.DuplicateIDs) == 0 &&
		len(res.MissingFolders) == 0 &&
		len(res.Unfiled) == 0 &&
		len(res.OrphanedFolders) == 0 &&
		len(res.CorruptedRecords) == 0
	res.Suggestions = suggestions(res)
	return res, nil
}

// orphanedFolders lists the folders under the year directories that are not
// in refs.
func (s *Service) orphanedFolders(refs map[string]bool) ([]string, error) {
	years, err := s.yearDirs()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, y := range years {
		entries, err := s.fs.ReadDir(y)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", y, err)
		}
		for _, e := range entries {
			if !e.IsDir {
				continue
			}
			p := fsys.Join(y, e.Name)
			if !refs[p] {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (s *Service) yearDirs() ([]string, error) {
	root := s.gen.Root
	if !s.fs.Exists(root) {
		return nil, nil
	}
	entries, err := s.fs.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir && paths.IsYearDir(e.Name) {
			out = append(out, fsys.Join(root, e.Name))
		}
	}
	return out, nil
}

func suggestions(res ValidationResult) []string {
	var out []string
	add := func(n int, format string) {
		if n > 0 {
			out = append(out, fmt.Sprintf(format, n, plural(n)))
		}
	}
	add(len(res.DuplicateIDs), "remove %d duplicate id%s, keeping the first row of each")
	add(len(res.MissingFolders), "recreate %d missing folder%s")
	add(len(res.Unfiled), "allocate folders for %d record%s without a folder path")
	add(len(res.OrphanedFolders), "review %d orphaned folder%s; empty ones are removed by repair")
	add(len(res.CorruptedRecords), "fix %d corrupted record%s by hand")
	add(res.SkippedRows, "inspect %d unreadable ledger row%s")
	return out
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// Summary renders the result as a few lines of text.
func (r ValidationResult) Summary() string {
	var b strings.Builder
	status := "valid"
	if !r.Valid {
		status = "INVALID"
	}
	fmt.Fprintf(&b, "%s: %d records", status, r.TotalRecords)
	if r.SkippedRows > 0 {
		fmt.Fprintf(&b, " (%d unreadable)", r.SkippedRows)
	}
	b.WriteString("\n")
	list := func(label string, items []string) {
		for _, it := range items {
			fmt.Fprintf(&b, "  %s: %s\n", label, it)
		}
	}
	list("duplicate id", r.DuplicateIDs)
	list("missing folder", r.MissingFolders)
	list("no folder", r.Unfiled)
	list("orphaned folder", r.OrphanedFolders)
	for _, c := range r.CorruptedRecords {
		fmt.Fprintf(&b, "  corrupted: %s (missing %s)\n", c.ID, strings.Join(c.Missing, ", "))
	}
	list("suggestion", r.Suggestions)
	return b.String()
}

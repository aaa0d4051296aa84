// Package migrate moves legacy trade data into the year/sequence folder
// layout, cross-checks the ledger against the trades tree, and repairs what
// it can. Every operation honours the dry-run flag given to New: a dry run
// walks the same code path and builds the same report, but never writes.
package migrate

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradebook/fsys"
	"github.com/rustyeddy/tradebook/internal/apperrors"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/notes"
	"github.com/rustyeddy/tradebook/paths"
	"github.com/rustyeddy/tradebook/pkg/date"
	"github.com/rustyeddy/tradebook/trades"
)

// DefaultBackupsDir holds backups, relative to the data root.
const DefaultBackupsDir = "backups"

// State is where a Service is in its current run.
type State int

const (
	Idle State = iota
	Scanning
	Migrating
	Repairing
	Reporting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Migrating:
		return "migrating"
	case Repairing:
		return "repairing"
	case Reporting:
		return "reporting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Provenance records how the ticker and date of a legacy entity were found.
type Provenance int

const (
	FromFolderName Provenance = iota + 1
	FromNoteFrontmatter
	GuessedDefault
)

func (p Provenance) String() string {
	switch p {
	case FromFolderName:
		return "folder-name"
	case FromNoteFrontmatter:
		return "note-frontmatter"
	case GuessedDefault:
		return "guessed"
	}
	return "unknown"
}

// Kind separates legacy directories from loose note files.
type Kind string

const (
	KindFolder Kind = "folder"
	KindNote   Kind = "note"
)

// Legacy is one entry under the trades root that predates the year layout.
type Legacy struct {
	Name string
	Path string
	Kind Kind
}

// Migrated describes one legacy entity that was (or in a dry run, would be)
// moved.
type Migrated struct {
	Source     string
	Kind       Kind
	Target     string
	Ticker     string
	Date       time.Time
	Provenance Provenance
	Files      int
	Repointed  int
	Warnings   []string
}

// Skipped is a legacy entity the batch could not migrate.
type Skipped struct {
	Legacy Legacy
	Reason string
}

// MigrationResult is the report of one Migrate run.
type MigrationResult struct {
	DryRun     bool
	BackupPath string
	Migrated   []Migrated
	Skipped    []Skipped
	Warnings   []string
	Errors     []string
}

// Options configures a Service.
type Options struct {
	DryRun bool

	// Now defaults to time.Now. It dates backups and guessed trades.
	Now func() time.Time

	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger

	// LedgerPath is copied into backups. Defaults to journal.DefaultPath.
	LedgerPath string

	// BackupsDir defaults to DefaultBackupsDir.
	BackupsDir string

	// NoteExtensions defaults to trades.DefaultNoteExtensions.
	NoteExtensions []string
}

// Service runs migrations, validation and repair over one data root.
type Service struct {
	fs     fsys.FileService
	gen    *paths.Generator
	ledger journal.Store
	opts   Options
	log    zerolog.Logger
	state  State

	// planned tracks dry-run sequence allocations so a preview hands out
	// the same numbers an apply run would.
	planned map[string]int
}

func New(fs fsys.FileService, gen *paths.Generator, ledger journal.Store, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LedgerPath == "" {
		opts.LedgerPath = journal.DefaultPath
	}
	if opts.BackupsDir == "" {
		opts.BackupsDir = DefaultBackupsDir
	}
	if len(opts.NoteExtensions) == 0 {
		opts.NoteExtensions = trades.DefaultNoteExtensions
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Service{
		fs:      fs,
		gen:     gen,
		ledger:  ledger,
		opts:    opts,
		log:     log.With().Bool("dry_run", opts.DryRun).Logger(),
		planned: map[string]int{},
	}
}

// DryRun reports whether the service was built in dry-run mode.
func (s *Service) DryRun() bool { return s.opts.DryRun }

// State returns the phase of the current or most recent run.
func (s *Service) State() State { return s.state }

func (s *Service) setState(st State) {
	if s.state != st {
		s.log.Debug().Stringer("from", s.state).Stringer("to", st).Msg("state")
	}
	s.state = st
}

// FindLegacyLayouts lists the entries under the trades root that are not
// year directories: flat per-ticker folders and loose note files. Hidden
// entries and other loose files are ignored.
func (s *Service) FindLegacyLayouts() ([]Legacy, error) {
	root := s.gen.Root
	if !s.fs.Exists(root) {
		return nil, nil
	}
	entries, err := s.fs.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	var out []Legacy
	for _, e := range entries {
		if strings.HasPrefix(e.Name, ".") {
			continue
		}
		l := Legacy{Name: e.Name, Path: fsys.Join(root, e.Name)}
		switch {
		case e.IsDir && paths.IsYearDir(e.Name):
			continue
		case e.IsDir:
			l.Kind = KindFolder
		case s.isNote(e.Name):
			l.Kind = KindNote
		default:
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// Migrate backs up the data, then moves every legacy entity into the year
// layout. One entity failing lands it in Skipped; the rest carry on. A
// failed backup aborts before anything is touched.
func (s *Service) Migrate() (MigrationResult, error) {
	res := MigrationResult{DryRun: s.opts.DryRun}
	s.planned = map[string]int{}

	s.setState(Scanning)
	legacy, err := s.FindLegacyLayouts()
	if err != nil {
		s.setState(Idle)
		return res, err
	}

	if len(legacy) > 0 && !s.opts.DryRun {
		res.BackupPath, err = s.CreateBackup()
		if err != nil {
			s.setState(Idle)
			return res, err
		}
	}

	s.setState(Migrating)
	for _, l := range legacy {
		var m Migrated
		if l.Kind == KindFolder {
			m, err = s.MigrateSingleFolder(l)
		} else {
			m, err = s.MigrateMarkdownFile(l)
		}
		res.Warnings = append(res.Warnings, m.Warnings...)
		if err != nil {
			s.log.Warn().Str("path", l.Path).Err(err).Msg("legacy entry skipped")
			res.Skipped = append(res.Skipped, Skipped{Legacy: l, Reason: err.Error()})
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", l.Path, err))
			continue
		}
		res.Migrated = append(res.Migrated, m)
	}

	s.setState(Reporting)
	s.log.Info().
		Int("migrated", len(res.Migrated)).
		Int("skipped", len(res.Skipped)).
		Str("backup", res.BackupPath).
		Msg("migration finished")
	return res, nil
}

// MigrateSingleFolder moves a legacy directory, with everything below it,
// into a freshly allocated trade folder.
func (s *Service) MigrateSingleFolder(l Legacy) (Migrated, error) {
	if l.Kind != KindFolder {
		return Migrated{}, fmt.Errorf("%s is not a folder", l.Path)
	}
	h, err := s.folderHint(l)
	if err != nil {
		return Migrated{Source: l.Path, Kind: l.Kind}, err
	}
	return s.move(l, h, func(target string) (int, error) {
		if s.opts.DryRun {
			return fsys.CountFiles(s.fs, l.Path)
		}
		return fsys.CopyTree(s.fs, l.Path, target)
	})
}

// MigrateMarkdownFile moves a loose note file into a freshly allocated
// trade folder, keeping its name.
func (s *Service) MigrateMarkdownFile(l Legacy) (Migrated, error) {
	if l.Kind != KindNote {
		return Migrated{}, fmt.Errorf("%s is not a note file", l.Path)
	}
	h, err := s.noteHint(l)
	if err != nil {
		return Migrated{Source: l.Path, Kind: l.Kind}, err
	}
	return s.move(l, h, func(target string) (int, error) {
		if s.opts.DryRun {
			return 1, nil
		}
		if err := fsys.CopyFile(s.fs, l.Path, fsys.Join(target, l.Name)); err != nil {
			return 0, err
		}
		return 1, nil
	})
}

// move allocates the target, copies, repoints ledger rows and finally
// removes the legacy entity. A failed removal is only a warning since the
// data already lives in the new folder.
func (s *Service) move(l Legacy, h hint, copyTo func(target string) (int, error)) (Migrated, error) {
	m := Migrated{
		Source:     l.Path,
		Kind:       l.Kind,
		Ticker:     paths.NormalizeTicker(h.ticker),
		Date:       h.date,
		Provenance: h.provenance,
		Warnings:   h.warnings,
	}

	info, err := s.allocate(h.ticker, h.date)
	if err != nil {
		return m, err
	}
	m.Target = info.Path

	m.Files, err = copyTo(info.Path)
	if err != nil {
		return m, fmt.Errorf("copy %s: %w", l.Path, err)
	}

	m.Repointed, err = s.repoint(l.Path, info.Path)
	if err != nil {
		return m, err
	}

	if !s.opts.DryRun {
		if err := s.fs.DeleteDir(l.Path); err != nil {
			s.log.Warn().Str("path", l.Path).Err(err).Msg("legacy entry not removed")
			m.Warnings = append(m.Warnings, fmt.Sprintf("could not remove %s: %v", l.Path, err))
		}
	}

	s.log.Info().
		Str("from", l.Path).
		Str("to", info.Path).
		Stringer("provenance", h.provenance).
		Int("files", m.Files).
		Msg("legacy entry migrated")
	return m, nil
}

// allocate creates the next folder for ticker and d, or in a dry run works
// out which folder would be created.
func (s *Service) allocate(ticker string, d time.Time) (paths.FolderInfo, error) {
	if !s.opts.DryRun {
		return s.gen.CreateFolderWithSequence(ticker, d)
	}
	if paths.NormalizeTicker(ticker) == "" {
		return paths.FolderInfo{}, fmt.Errorf("%w: empty ticker", apperrors.ErrFolderCreate)
	}
	seq, err := s.gen.NextSequence(ticker, d)
	if err != nil {
		return paths.FolderInfo{}, fmt.Errorf("%w: %v", apperrors.ErrFolderCreate, err)
	}
	key := paths.NormalizeTicker(ticker) + "_" + date.Format(d)
	seq = max(seq, s.planned[key]+1)
	s.planned[key] = seq
	return s.gen.Derive(ticker, d, seq), nil
}

// repoint moves ledger rows whose folder lies inside from over to to.
func (s *Service) repoint(from, to string) (int, error) {
	recs, err := s.ledger.ReadAll()
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range recs {
		if within(recs[i].FolderPath, from) {
			recs[i].FolderPath = to
			recs[i].UpdatedAt = s.opts.Now().UTC()
			n++
		}
	}
	if n == 0 || s.opts.DryRun {
		return n, nil
	}
	if err := s.ledger.WriteAll(recs); err != nil {
		return 0, err
	}
	return n, nil
}

func within(p, dir string) bool {
	if p == "" {
		return false
	}
	p = path.Clean(p)
	return p == dir || strings.HasPrefix(p, dir+"/")
}

func (s *Service) isNote(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range s.opts.NoteExtensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// hint is a (ticker, date) pair and where it came from.
type hint struct {
	ticker     string
	date       time.Time
	provenance Provenance
	warnings   []string
}

// folderHint tries the folder name, then the headers of the notes inside,
// then falls back to a guess.
func (s *Service) folderHint(l Legacy) (hint, error) {
	if p, ok := paths.ParseFolderName(l.Name, 0); ok {
		return hint{ticker: p.Ticker, date: p.Date, provenance: FromFolderName}, nil
	}

	files, err := fsys.Files(s.fs, l.Path)
	if err != nil {
		return hint{}, fmt.Errorf("list %s: %w", l.Path, err)
	}
	var warnings []string
	for _, f := range files {
		if !s.isNote(f) {
			continue
		}
		h, warn, ok := s.headerHint(fsys.Join(l.Path, f))
		if ok {
			return h, nil
		}
		if warn != "" {
			warnings = append(warnings, warn)
		}
	}
	return s.guess(l.Name, warnings)
}

// noteHint is folderHint for a single file: the file name without its
// extension, then its own header, then a guess.
func (s *Service) noteHint(l Legacy) (hint, error) {
	stem := strings.TrimSuffix(l.Name, path.Ext(l.Name))
	if p, ok := paths.ParseFolderName(stem, 0); ok {
		return hint{ticker: p.Ticker, date: p.Date, provenance: FromFolderName}, nil
	}
	h, warn, ok := s.headerHint(l.Path)
	if ok {
		return h, nil
	}
	var warnings []string
	if warn != "" {
		warnings = append(warnings, warn)
	}
	return s.guess(stem, warnings)
}

// headerHint reads ticker and date from the note header at p. A note that
// cannot be read or has a malformed header yields a warning.
func (s *Service) headerHint(p string) (hint, string, bool) {
	data, err := s.fs.ReadFile(p)
	if err != nil {
		return hint{}, fmt.Sprintf("could not read %s: %v", p, err), false
	}
	fm, _, err := notes.ParseFrontmatter(string(data))
	if err != nil {
		s.log.Warn().Str("note", p).Err(err).Msg("malformed note header")
		return hint{}, fmt.Sprintf("malformed header in %s: %v", p, err), false
	}
	ticker := fm.String("ticker")
	if paths.NormalizeTicker(ticker) == "" || !fm.Has("date") {
		return hint{}, "", false
	}
	d, err := date.Parse(fm.String("date"))
	if err != nil {
		return hint{}, fmt.Sprintf("bad date in %s: %v", p, err), false
	}
	return hint{ticker: ticker, date: d, provenance: FromNoteFrontmatter}, "", true
}

func (s *Service) guess(name string, warnings []string) (hint, error) {
	if paths.NormalizeTicker(name) == "" {
		return hint{}, fmt.Errorf("cannot derive a ticker from %q", name)
	}
	d := date.Of(s.opts.Now())
	warnings = append(warnings, fmt.Sprintf("%s: guessed ticker %s and date %s, review before relying on it",
		name, paths.NormalizeTicker(name), date.Format(d)))
	return hint{ticker: name, date: d, provenance: GuessedDefault, warnings: warnings}, nil
}

// Package paths derives and parses trade folder names and allocates the
// per-day sequence numbers that keep same-day folders apart.
//
// Current layout:
//
//	trades/{YYYY}/{TICKER}_{MM-DD}_{SEQ}/images/
//
// with SEQ zero padded to three digits. Older data may use the legacy
// inline-date form {TICKER}_{YYYY-MM-DD}[_{SEQ}].
package paths

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/tradebook/fsys"
	"github.com/rustyeddy/tradebook/internal/apperrors"
	"github.com/rustyeddy/tradebook/pkg/date"
)

const (
	// DefaultRoot is the trades directory under the data root.
	DefaultRoot = "trades"

	ImagesDir = "images"

	// SequenceWidth is the zero padded width of the sequence suffix.
	SequenceWidth = 3
)

var (
	currentPattern = regexp.MustCompile(`^(.+)_(\d{2})-(\d{2})_(\d+)$`)
	legacyPattern  = regexp.MustCompile(`^(.+)_(\d{4})-(\d{2})-(\d{2})(?:_(\d+))?$`)
	yearPattern    = regexp.MustCompile(`^\d{4}$`)

	tickerReplacer = strings.NewReplacer(
		"/", "-", `\`, "-", ":", "-", "*", "-", "?", "-",
		`"`, "-", "<", "-", ">", "-", "|", "-", " ", "-",
	)
)

// FolderInfo describes one trade folder.
type FolderInfo struct {
	// Path is the folder path relative to the data root. It is only set
	// by a Generator, which knows the root.
	Path string

	// RelativePath is relative to the trades root: "2024/AAPL_01-15_001".
	RelativePath string
	Year         int
	FolderName   string
	Ticker       string
	Date         time.Time
	Sequence     int
}

// Parsed is the result of ParseFolderName. Sequence is 0 when a legacy
// name carries none.
type Parsed struct {
	Ticker   string
	Date     time.Time
	Sequence int
	Legacy   bool
}

// NormalizeTicker upper-cases the ticker and replaces characters that cannot
// appear in a directory name.
func NormalizeTicker(ticker string) string {
	return tickerReplacer.Replace(strings.ToUpper(strings.TrimSpace(ticker)))
}

// FolderName returns "{TICKER}_{MM-DD}_{SEQ}".
func FolderName(ticker string, d time.Time, seq int) string {
	return fmt.Sprintf("%s_%s_%0*d", NormalizeTicker(ticker), d.Format("01-02"), SequenceWidth, seq)
}

// DeriveFolder returns the folder for ticker, d and seq. It is pure; seq must
// be at least 1.
func DeriveFolder(ticker string, d time.Time, seq int) FolderInfo {
	name := FolderName(ticker, d, seq)
	year := d.Year()
	return FolderInfo{
		RelativePath: fsys.Join(strconv.Itoa(year), name),
		Year:         year,
		FolderName:   name,
		Ticker:       NormalizeTicker(ticker),
		Date:         date.Of(d),
		Sequence:     seq,
	}
}

// ParseFolderName reads a folder name in either the current or the legacy
// form. The current form does not carry a year, so yearHint (normally the
// parent directory) supplies it; a zero yearHint disables the current form.
func ParseFolderName(name string, yearHint int) (Parsed, bool) {
	if yearHint > 0 {
		if m := currentPattern.FindStringSubmatch(name); m != nil {
			month, _ := strconv.Atoi(m[2])
			day, _ := strconv.Atoi(m[3])
			seq, _ := strconv.Atoi(m[4])
			if seq >= 1 && date.Valid(yearHint, time.Month(month), day) {
				return Parsed{
					Ticker:   m[1],
					Date:     date.New(yearHint, time.Month(month), day),
					Sequence: seq,
				}, true
			}
		}
	}

	if m := legacyPattern.FindStringSubmatch(name); m != nil {
		year, _ := strconv.Atoi(m[2])
		month, _ := strconv.Atoi(m[3])
		day, _ := strconv.Atoi(m[4])
		if !date.Valid(year, time.Month(month), day) {
			return Parsed{}, false
		}
		seq := 0
		if m[5] != "" {
			seq, _ = strconv.Atoi(m[5])
		}
		return Parsed{
			Ticker:   m[1],
			Date:     date.New(year, time.Month(month), day),
			Sequence: seq,
			Legacy:   true,
		}, true
	}
	return Parsed{}, false
}

// IsYearDir reports whether name looks like a year directory.
func IsYearDir(name string) bool {
	return yearPattern.MatchString(name)
}

// Generator allocates trade folders under Root through a FileService.
type Generator struct {
	fs   fsys.FileService
	Root string

	mu sync.Mutex
}

// NewGenerator returns a Generator rooted at root, or DefaultRoot when root
// is empty.
func NewGenerator(fs fsys.FileService, root string) *Generator {
	if root == "" {
		root = DefaultRoot
	}
	return &Generator{fs: fs, Root: root}
}

// Derive is DeriveFolder with Path filled in.
func (g *Generator) Derive(ticker string, d time.Time, seq int) FolderInfo {
	info := DeriveFolder(ticker, d, seq)
	info.Path = fsys.Join(g.Root, info.RelativePath)
	return info
}

// YearPath returns the directory holding every folder of year.
func (g *Generator) YearPath(year int) string {
	return fsys.Join(g.Root, strconv.Itoa(year))
}

// NextSequence returns one more than the highest sequence already used by a
// sibling folder for ticker on d, or 1 when there is none.
func (g *Generator) NextSequence(ticker string, d time.Time) (int, error) {
	yearDir := g.YearPath(d.Year())
	if !g.fs.Exists(yearDir) {
		return 1, nil
	}
	entries, err := g.fs.ReadDir(yearDir)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", yearDir, err)
	}

	prefix := NormalizeTicker(ticker) + "_" + d.Format("01-02") + "_"
	highest := 0
	for _, e := range entries {
		if !strings.HasPrefix(e.Name, prefix) {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimPrefix(e.Name, prefix))
		if err != nil || seq < 1 {
			continue
		}
		highest = max(highest, seq)
	}
	return highest + 1, nil
}

// CreateFolderWithSequence makes sure the root and year directories exist,
// allocates the next sequence and creates the trade folder with its images
// subdirectory. A failure leaves whatever was already created in place.
func (g *Generator) CreateFolderWithSequence(ticker string, d time.Time) (FolderInfo, error) {
	if NormalizeTicker(ticker) == "" {
		return FolderInfo{}, fmt.Errorf("%w: empty ticker", apperrors.ErrFolderCreate)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, dir := range []string{g.Root, g.YearPath(d.Year())} {
		if err := g.fs.CreateDir(dir); err != nil {
			return FolderInfo{}, fmt.Errorf("%w: %s: %v", apperrors.ErrFolderCreate, dir, err)
		}
	}

	seq, err := g.NextSequence(ticker, d)
	if err != nil {
		return FolderInfo{}, fmt.Errorf("%w: %v", apperrors.ErrFolderCreate, err)
	}

	info := g.Derive(ticker, d, seq)
	if err := g.EnsureFolder(info.Path); err != nil {
		return FolderInfo{}, err
	}
	return info, nil
}

// EnsureFolder creates the folder at p (relative to the data root) and its
// images subdirectory. Existing directories are left alone.
func (g *Generator) EnsureFolder(p string) error {
	for _, dir := range []string{p, fsys.Join(p, ImagesDir)} {
		if err := g.fs.CreateDir(dir); err != nil {
			return fmt.Errorf("%w: %s: %v", apperrors.ErrFolderCreate, dir, err)
		}
	}
	return nil
}

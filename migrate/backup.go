package migrate

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/tradebook/fsys"
	"github.com/rustyeddy/tradebook/internal/apperrors"
)

const (
	backupPrefix = "backup-"
	backupLayout = "20060102-150405"
)

// Backup is one directory under the backups dir.
type Backup struct {
	Name      string
	Path      string
	CreatedAt time.Time
	Files     int
}

// CreateBackup copies the trades tree and the ledger into a new
// backups/backup-{YYYYMMDD-HHMMSS} directory and returns its path. Backups
// taken within the same second get a numeric suffix.
func (s *Service) CreateBackup() (string, error) {
	base := fsys.Join(s.opts.BackupsDir, backupPrefix+s.opts.Now().UTC().Format(backupLayout))
	dir := base
	for i := 2; s.fs.Exists(dir); i++ {
		dir = fmt.Sprintf("%s-%d", base, i)
	}

	if err := s.fs.CreateDir(dir); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrBackupFailed, err)
	}

	files := 0
	if root := s.gen.Root; s.fs.Exists(root) {
		n, err := fsys.CopyTree(s.fs, root, fsys.Join(dir, path.Base(root)))
		if err != nil {
			return "", fmt.Errorf("%w: copy %s: %v", apperrors.ErrBackupFailed, root, err)
		}
		files += n
	}
	if ledger := s.opts.LedgerPath; s.fs.Exists(ledger) {
		if err := fsys.CopyFile(s.fs, ledger, fsys.Join(dir, path.Base(ledger))); err != nil {
			return "", fmt.Errorf("%w: %v", apperrors.ErrBackupFailed, err)
		}
		files++
	}

	s.log.Info().Str("backup", dir).Int("files", files).Msg("backup created")
	return dir, nil
}

// ListBackups returns the backups found under the backups dir, oldest
// first. Directories whose names do not carry a backup timestamp are
// ignored.
func (s *Service) ListBackups() ([]Backup, error) {
	dir := s.opts.BackupsDir
	if !s.fs.Exists(dir) {
		return nil, nil
	}
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	var out []Backup
	for _, e := range entries {
		if !e.IsDir || !strings.HasPrefix(e.Name, backupPrefix) {
			continue
		}
		stamp := strings.TrimPrefix(e.Name, backupPrefix)
		if len(stamp) < len(backupLayout) {
			continue
		}
		created, err := time.Parse(backupLayout, stamp[:len(backupLayout)])
		if err != nil {
			continue
		}
		b := Backup{Name: e.Name, Path: fsys.Join(dir, e.Name), CreatedAt: created}
		if b.Files, err = fsys.CountFiles(s.fs, b.Path); err != nil {
			s.log.Warn().Str("backup", b.Path).Err(err).Msg("cannot count backup files")
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return len(out[i].Name) < len(out[j].Name) || (len(out[i].Name) == len(out[j].Name) && out[i].Name < out[j].Name)
	})
	return out, nil
}

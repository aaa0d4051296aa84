package migrate

import (
	"fmt"
	"path"

	"github.com/rustyeddy/tradebook/fsys"
)

// RepairResult is the action log of CleanupAndRepair. In a dry run Actions
// lists what would have been done and After equals Before.
type RepairResult struct {
	DryRun     bool
	BackupPath string
	Before     ValidationResult
	After      ValidationResult
	Actions    []string
	Warnings   []string
}

// CleanupAndRepair validates, backs up, then drops duplicate rows keeping
// the first, recreates missing folders for well-formed rows, removes
// orphaned folders that hold no files along with any year directory left
// empty, and validates again. Orphans that still hold files and corrupted
// rows are left for the user; run it again after fixing those.
func (s *Service) CleanupAndRepair() (RepairResult, error) {
	res := RepairResult{DryRun: s.opts.DryRun}
	s.planned = map[string]int{}

	before, err := s.ValidateDataIntegrity()
	if err != nil {
		return res, err
	}
	res.Before = before
	if before.Valid {
		res.After = before
		return res, nil
	}

	if !s.opts.DryRun {
		if res.BackupPath, err = s.CreateBackup(); err != nil {
			s.setState(Idle)
			return res, err
		}
	}

	s.setState(Repairing)
	refs, err := s.repairLedger(&res)
	if err != nil {
		s.setState(Idle)
		return res, err
	}
	if err := s.removeEmptyOrphans(&res, refs); err != nil {
		s.setState(Idle)
		return res, err
	}

	if s.opts.DryRun {
		res.After = before
		s.setState(Reporting)
	} else if res.After, err = s.ValidateDataIntegrity(); err != nil {
		return res, err
	}

	s.log.Info().
		Int("actions", len(res.Actions)).
		Int("warnings", len(res.Warnings)).
		Bool("valid", res.After.Valid).
		Msg("repair finished")
	return res, nil
}

// repairLedger handles duplicates and folders, and returns the folder paths
// the repaired ledger references.
func (s *Service) repairLedger(res *RepairResult) (map[string]bool, error) {
	recs, _, err := s.readLedger()
	if err != nil {
		return nil, fmt.Errorf("repair: %w", err)
	}

	changed := false
	seen := map[string]bool{}
	kept := recs[:0:0]
	for _, r := range recs {
		if seen[r.ID] {
			s.act(res, "drop duplicate row for id %s", r.ID)
			changed = true
			continue
		}
		seen[r.ID] = true
		kept = append(kept, r)
	}

	refs := map[string]bool{}
	created := map[string]bool{}
	for i := range kept {
		r := &kept[i]
		if len(r.MissingFields()) > 0 {
			if r.FolderPath != "" {
				refs[path.Clean(r.FolderPath)] = true
			}
			continue
		}

		if r.FolderPath == "" {
			info, err := s.allocate(r.Ticker, r.BuyDate)
			if err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("no folder allocated for %s: %v", r.ID, err))
				continue
			}
			r.FolderPath = info.Path
			r.UpdatedAt = s.opts.Now().UTC()
			changed = true
			created[info.Path] = true
			s.act(res, "allocate folder %s for %s", info.Path, r.ID)
		}

		folder := path.Clean(r.FolderPath)
		refs[folder] = true
		if created[folder] || s.fs.Exists(folder) {
			continue
		}
		created[folder] = true
		if !s.opts.DryRun {
			if err := s.gen.EnsureFolder(folder); err != nil {
				res.Warnings = append(res.Warnings, err.Error())
				continue
			}
		}
		s.act(res, "create missing folder %s", folder)
	}

	if changed && !s.opts.DryRun {
		if err := s.ledger.WriteAll(kept); err != nil {
			return nil, fmt.Errorf("repair: %w", err)
		}
	}
	return refs, nil
}

func (s *Service) removeEmptyOrphans(res *RepairResult, refs map[string]bool) error {
	orphans, err := s.orphanedFolders(refs)
	if err != nil {
		return fmt.Errorf("repair: %w", err)
	}

	removed := map[string]bool{}
	for _, o := range orphans {
		n, err := fsys.CountFiles(s.fs, o)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("cannot inspect %s: %v", o, err))
			continue
		}
		if n > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("kept orphaned folder %s: it holds %d file%s", o, n, plural(n)))
			continue
		}
		if !s.opts.DryRun {
			if err := s.fs.DeleteDir(o); err != nil {
				s.log.Warn().Str("folder", o).Err(err).Msg("orphan delete failed")
				res.Warnings = append(res.Warnings, fmt.Sprintf("could not remove %s: %v", o, err))
				continue
			}
		}
		removed[o] = true
		s.act(res, "remove empty folder %s", o)
	}

	years, err := s.yearDirs()
	if err != nil {
		return fmt.Errorf("repair: %w", err)
	}
	for _, y := range years {
		entries, err := s.fs.ReadDir(y)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("cannot list %s: %v", y, err))
			continue
		}
		empty := true
		for _, e := range entries {
			if !e.IsDir || !removed[fsys.Join(y, e.Name)] {
				empty = false
				break
			}
		}
		if !empty {
			continue
		}
		if !s.opts.DryRun {
			if err := s.fs.DeleteDir(y); err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("could not remove %s: %v", y, err))
				continue
			}
		}
		s.act(res, "remove empty year directory %s", y)
	}
	return nil
}

func (s *Service) act(res *RepairResult, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	res.Actions = append(res.Actions, msg)
	s.log.Info().Msg(msg)
}

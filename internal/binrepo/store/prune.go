package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/greeddj/binrepo-store/internal/binrepo/helpers"
)

// PruneReport lists what Prune changed.
type PruneReport struct {
	ScratchRemoved []string `json:"scratch_removed" yaml:"scratch_removed"`
	TempRemoved    []string `json:"temp_removed" yaml:"temp_removed"`
	Requeued       []string `json:"requeued" yaml:"requeued"`
	Discarded      []string `json:"discarded" yaml:"discarded"`
}

// Empty reports whether Prune found nothing to do.
func (r PruneReport) Empty() bool {
	return len(r.ScratchRemoved)+len(r.TempRemoved)+len(r.Requeued)+len(r.Discarded) == 0
}

// Prune cleans leftovers of interrupted imports under storeRoot. Scratch
// unpack directories and temporary archives are removed. Bundles still
// sitting in a version directory go back to importDir, or are deleted when
// the canonical archive for that version already exists. Version and package
// directories left empty are removed.
func Prune(storeRoot, importDir string) (PruneReport, error) {
	var report PruneReport
	names, err := os.ReadDir(storeRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return report, nil
		}
		return report, err
	}
	for _, nameEntry := range names {
		if !nameEntry.IsDir() || strings.HasPrefix(nameEntry.Name(), ".") {
			continue
		}
		nameDir := filepath.Join(storeRoot, nameEntry.Name())
		if sameDir(nameDir, importDir) {
			continue
		}
		versions, err := os.ReadDir(nameDir)
		if err != nil {
			return report, err
		}
		for _, versionEntry := range versions {
			if !versionEntry.IsDir() {
				continue
			}
			versionDir := filepath.Join(nameDir, versionEntry.Name())
			canonical := filepath.Join(versionDir, helpers.PackageFileName(nameEntry.Name(), versionEntry.Name()))
			if err := pruneVersionDir(versionDir, canonical, importDir, &report); err != nil {
				return report, err
			}
			removeIfEmpty(versionDir)
		}
		removeIfEmpty(nameDir)
	}
	return report, nil
}

func pruneVersionDir(versionDir, canonical, importDir string, report *PruneReport) error {
	entries, err := os.ReadDir(versionDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(versionDir, name)
		switch {
		case entry.IsDir() && strings.HasPrefix(name, helpers.ScratchDirPrefix):
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("failed to remove scratch dir %s: %w", path, err)
			}
			report.ScratchRemoved = append(report.ScratchRemoved, path)
		case entry.Type().IsRegular() && isTempArchive(name):
			if err := removeFile(path); err != nil {
				return err
			}
			report.TempRemoved = append(report.TempRemoved, path)
		case entry.Type().IsRegular() && strings.HasSuffix(name, helpers.BundleSuffix):
			if err := settleStrayBundle(path, canonical, importDir, report); err != nil {
				return err
			}
		}
	}
	return nil
}

func settleStrayBundle(path, canonical, importDir string, report *PruneReport) error {
	done, err := helpers.Exists(canonical)
	if err != nil {
		return err
	}
	if done {
		if err := removeFile(path); err != nil {
			return err
		}
		report.Discarded = append(report.Discarded, path)
		return nil
	}
	dst := filepath.Join(importDir, filepath.Base(path))
	if exists, err := helpers.Exists(dst); err != nil {
		return err
	} else if exists {
		// The import dir already holds a copy of this bundle.
		if err := removeFile(path); err != nil {
			return err
		}
		report.Discarded = append(report.Discarded, path)
		return nil
	}
	if err := os.MkdirAll(importDir, helpers.DirMod); err != nil {
		return err
	}
	if err := os.Rename(path, dst); err != nil {
		return fmt.Errorf("failed to requeue %s: %w", path, err)
	}
	report.Requeued = append(report.Requeued, dst)
	return nil
}

func isTempArchive(name string) bool {
	return strings.HasPrefix(name, helpers.ArchiveTempPrefix) && strings.HasSuffix(name, helpers.ArchiveTempSuffix)
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// removeIfEmpty deletes dir when it has no entries; errors are ignored.
func removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

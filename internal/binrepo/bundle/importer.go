package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/greeddj/binrepo-store/internal/binrepo/archive"
	"github.com/greeddj/binrepo-store/internal/binrepo/cookbook"
	"github.com/greeddj/binrepo-store/internal/binrepo/helpers"
	"github.com/greeddj/binrepo-store/internal/binrepo/infra"
	"github.com/greeddj/binrepo-store/internal/binrepo/store"
)

// Outcome is the terminal state of one bundle import attempt.
type Outcome int

const (
	// OutcomeImported means every package of the bundle is in the store.
	OutcomeImported Outcome = iota
	// OutcomeDuplicate means the version already existed and the bundle was dropped.
	OutcomeDuplicate
	// OutcomeRejected means the file name does not identify a bundle; the file is left alone.
	OutcomeRejected
	// OutcomeFailed means the import broke and the bundle was put back for a retry.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeImported:
		return "imported"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// PackageRef describes a package archive produced or found by an import.
type PackageRef struct {
	Name    string
	Version string
	Archive string
	SHA256  string
	Created bool

	tree       string
	placed     bool
	createdDir bool
}

// touched reports whether the import attempt wrote anything for this package.
func (p PackageRef) touched() bool {
	return p.Created || p.placed || p.createdDir
}

// Result is the outcome of importing one file from the import directory.
type Result struct {
	Bundle   string
	Name     string
	Version  string
	Target   string
	Outcome  Outcome
	Packages []PackageRef
	Err      error
}

// Report summarizes one pass over the import directory.
type Report struct {
	Imported int
	Results  []Result
	Failures []Result
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomeImported:
		r.Imported++
	case OutcomeRejected, OutcomeFailed:
		r.Failures = append(r.Failures, res)
	case OutcomeDuplicate:
		if res.Err != nil {
			r.Failures = append(r.Failures, res)
		}
	}
}

// Recorder receives a journal record for every processed bundle.
type Recorder interface {
	Record(rec store.ImportRecord) error
}

// Importer moves bundles from the import directory into the store.
type Importer struct {
	importDir string
	storeRoot string
	runtime   *infra.Infra
	recorder  Recorder
}

// New creates an Importer. recorder may be nil.
func New(importDir, storeRoot string, runtime *infra.Infra, recorder Recorder) *Importer {
	return &Importer{
		importDir: importDir,
		storeRoot: storeRoot,
		runtime:   runtime,
		recorder:  recorder,
	}
}

// ImportPending processes every file directly inside the import directory.
// Per-bundle problems end up in the report; the error is reserved for an
// import directory that cannot be listed.
func (im *Importer) ImportPending() (Report, error) {
	var report Report
	start := im.runtime.Now()
	entries, err := os.ReadDir(im.importDir)
	if err != nil {
		return report, fmt.Errorf("failed to list import dir %s: %w", im.importDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		began := im.runtime.Now()
		res := im.importBundle(entry.Name())
		report.add(res)
		im.record(res, began)
	}
	im.runtime.Output.DebugSincef(start, "import pass over %s: %d imported, %d failed", im.importDir, report.Imported, len(report.Failures))
	return report, nil
}

func (im *Importer) importBundle(file string) Result {
	out := im.runtime.Output
	res := Result{Bundle: file}

	name, version, err := ParseBundleName(file)
	if err != nil {
		out.Errorf("Rejected %s: %s", file, err)
		out.Printf("ℹ️ Leaving %s untouched", file)
		res.Outcome = OutcomeRejected
		res.Err = err
		return res
	}
	res.Name, res.Version = name, version
	res.Target = filepath.Join(im.storeRoot, name, version)
	bundlePath := filepath.Join(im.importDir, file)
	out.Printf("📥 Found bundle %s (name: %s version: %s)", file, name, version)

	canonical := filepath.Join(res.Target, helpers.PackageFileName(name, version))
	exists, err := helpers.Exists(canonical)
	if err != nil {
		return im.fail(res, err)
	}
	if exists {
		out.Printf("⏭️ %s@%s already exists, will not overwrite", name, version)
		res.Outcome = OutcomeDuplicate
		if err := os.Remove(bundlePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			out.Errorf("Failed to remove duplicate bundle %s: %s", bundlePath, err)
			res.Err = err
		}
		return res
	}

	packages, err := im.materialize(bundlePath, res.Target)
	res.Packages = packages
	if err != nil {
		return im.fail(res, err)
	}
	res.Outcome = OutcomeImported
	out.Okf("Imported %s into %s", file, res.Target)
	return res
}

func (im *Importer) fail(res Result, err error) Result {
	im.runtime.Output.Errorf("Failed to import bundle %s into %s: %s", res.Bundle, res.Target, err)
	im.runtime.Output.Printf("ℹ️ Leaving bundle %s in %s for the next pass", res.Bundle, im.importDir)
	res.Outcome = OutcomeFailed
	res.Err = err
	return res
}

// materialize moves the bundle into targetDir, splits it and drops it on
// success. On failure the bundle goes back to the import directory.
func (im *Importer) materialize(bundlePath, targetDir string) ([]PackageRef, error) {
	createdTarget := !helpers.IsDir(targetDir)
	if err := os.MkdirAll(targetDir, helpers.DirMod); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", targetDir, err)
	}
	cleanupTarget := func() {
		if createdTarget {
			removeIfEmpty(targetDir)
			removeIfEmpty(filepath.Dir(targetDir))
		}
	}

	moved := filepath.Join(targetDir, filepath.Base(bundlePath))
	if err := moveFile(bundlePath, moved); err != nil {
		cleanupTarget()
		return nil, fmt.Errorf("failed to move bundle into %s: %w", targetDir, err)
	}

	packages, err := im.split(moved, targetDir)
	if err != nil {
		im.rollback(packages)
		packages = nil
		if restoreErr := moveFile(moved, bundlePath); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to restore bundle to %s: %w", bundlePath, restoreErr))
		}
		cleanupTarget()
		return packages, err
	}

	if err := os.Remove(moved); err != nil && !errors.Is(err, os.ErrNotExist) {
		im.runtime.Output.Printf("⚠️ Failed to remove imported bundle %s: %v", moved, err)
	}
	cleanupTarget()
	return packages, nil
}

// split unpacks the bundle into a scratch directory and stores every package
// found under cookbooks/. The scratch directory is always removed.
func (im *Importer) split(bundlePath, targetDir string) ([]PackageRef, error) {
	scratch, err := os.MkdirTemp(targetDir, helpers.ScratchDirPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir in %s: %w", targetDir, err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			im.runtime.Output.Printf("⚠️ Failed to remove scratch dir %s: %v", scratch, err)
		}
	}()

	start := im.runtime.Now()
	if err := archive.ExtractTarGz(bundlePath, scratch); err != nil {
		return nil, err
	}
	im.runtime.Output.DebugSincef(start, "unpacked %s", bundlePath)

	cookbooksDir := filepath.Join(scratch, helpers.BundleCookbooksDir)
	entries, err := os.ReadDir(cookbooksDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", helpers.ErrBundleHasNoCookbooks, filepath.Base(bundlePath))
		}
		return nil, err
	}
	var packages []PackageRef
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ref, err := im.storePackage(filepath.Join(cookbooksDir, entry.Name()))
		if err != nil {
			if ref.touched() {
				packages = append(packages, ref)
			}
			return packages, err
		}
		packages = append(packages, ref)
	}
	if len(packages) == 0 {
		return nil, fmt.Errorf("%w: %s", helpers.ErrBundleHasNoCookbooks, filepath.Base(bundlePath))
	}
	return packages, nil
}

// storePackage writes the single-package archive and the unpacked tree for
// one package directory. Existing archives and trees are never replaced.
func (im *Importer) storePackage(pkgDir string) (PackageRef, error) {
	out := im.runtime.Output
	md := cookbook.Read(pkgDir, out)
	if md == nil {
		return PackageRef{}, fmt.Errorf("%w: %s", helpers.ErrMetadataUnavailable, filepath.Base(pkgDir))
	}
	if !helpers.IsValidPackageName(md.Name) {
		return PackageRef{}, fmt.Errorf("%w: %q", helpers.ErrMetadataInvalidName, md.Name)
	}
	version := md.VersionString()
	finalDir := filepath.Join(im.storeRoot, md.Name, version)
	ref := PackageRef{
		Name:    md.Name,
		Version: version,
		Archive: filepath.Join(finalDir, helpers.PackageFileName(md.Name, version)),
	}
	ref.createdDir = !helpers.IsDir(finalDir)
	if err := os.MkdirAll(finalDir, helpers.DirMod); err != nil {
		return ref, fmt.Errorf("failed to create %s: %w", finalDir, err)
	}

	exists, err := helpers.Exists(ref.Archive)
	if err != nil {
		return ref, err
	}
	if !exists {
		start := im.runtime.Now()
		if err := archive.CreateTarGz(pkgDir, md.Name, ref.Archive); err != nil {
			return ref, err
		}
		ref.Created = true
		out.DebugSincef(start, "packed %s", ref.Archive)
		out.Printf("📦 Stored %s", filepath.Base(ref.Archive))
	}
	if sum, err := archive.FileHashSHA256(ref.Archive); err == nil {
		ref.SHA256 = sum
	} else {
		out.Debugf("failed to hash %s: %v", ref.Archive, err)
	}

	ref.tree = filepath.Join(finalDir, md.Name)
	exists, err = helpers.Exists(ref.tree)
	if err != nil {
		return ref, err
	}
	if !exists {
		if err := moveTree(pkgDir, ref.tree); err != nil {
			return ref, err
		}
		ref.placed = true
	}
	return ref, nil
}

// rollback removes what a failed attempt wrote, so the restored bundle is
// imported again in full instead of being taken for a duplicate.
func (im *Importer) rollback(packages []PackageRef) {
	out := im.runtime.Output
	for i := len(packages) - 1; i >= 0; i-- {
		pkg := packages[i]
		if pkg.Created {
			if err := os.Remove(pkg.Archive); err != nil && !errors.Is(err, os.ErrNotExist) {
				out.Printf("⚠️ Failed to remove %s: %v", pkg.Archive, err)
			}
		}
		if pkg.placed {
			if err := os.RemoveAll(pkg.tree); err != nil {
				out.Printf("⚠️ Failed to remove %s: %v", pkg.tree, err)
			}
		}
		if pkg.createdDir {
			finalDir := filepath.Dir(pkg.Archive)
			removeIfEmpty(finalDir)
			removeIfEmpty(filepath.Dir(finalDir))
		}
		out.Debugf("rolled back %s@%s", pkg.Name, pkg.Version)
	}
}

func (im *Importer) record(res Result, began time.Time) {
	if im.recorder == nil {
		return
	}
	rec := store.ImportRecord{
		Bundle:     res.Bundle,
		Name:       res.Name,
		Version:    res.Version,
		Outcome:    res.Outcome.String(),
		Target:     res.Target,
		StartedAt:  began.UTC(),
		FinishedAt: im.runtime.Now().UTC(),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	for _, pkg := range res.Packages {
		rec.Packages = append(rec.Packages, store.PackageRecord{
			Name:          pkg.Name,
			Version:       pkg.Version,
			Archive:       pkg.Archive,
			ArchiveSHA256: pkg.SHA256,
			Created:       pkg.Created,
		})
	}
	if err := im.recorder.Record(rec); err != nil {
		im.runtime.Output.Printf("⚠️ Failed to journal %s: %v", res.Bundle, err)
	}
}

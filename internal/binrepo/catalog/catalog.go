package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/greeddj/binrepo-store/internal/binrepo/archive"
	"github.com/greeddj/binrepo-store/internal/binrepo/bundle"
	"github.com/greeddj/binrepo-store/internal/binrepo/config"
	"github.com/greeddj/binrepo-store/internal/binrepo/cookbook"
	"github.com/greeddj/binrepo-store/internal/binrepo/helpers"
	"github.com/greeddj/binrepo-store/internal/binrepo/infra"
)

// Info locates the stored archive of a catalog entry.
type Info struct {
	RepoPath    string `json:"repo_path" yaml:"repo_path"`
	PackageFile string `json:"package" yaml:"package"`
}

// Entry is one cookbook version served by the store.
type Entry struct {
	Name        string          `json:"name" yaml:"name"`
	Version     *semver.Version `json:"version" yaml:"-"`
	SourceKind  string          `json:"source_kind" yaml:"source_kind"`
	LocationURI string          `json:"location_uri" yaml:"location_uri"`
	Priority    int             `json:"priority" yaml:"priority"`
	Info        Info            `json:"info" yaml:"info"`
}

// ArchivePath returns the path of the single-package archive.
func (e Entry) ArchivePath() string {
	return filepath.Join(e.Info.RepoPath, e.Info.PackageFile)
}

// Importer runs an import pass before the catalog is read.
type Importer interface {
	ImportPending() (bundle.Report, error)
}

// Catalog lists cookbook versions found under the store root.
type Catalog struct {
	cfg      *config.Config
	importer Importer
	runtime  *infra.Infra
}

// New creates a Catalog. A nil importer disables the import pass.
func New(cfg *config.Config, importer Importer, runtime *infra.Infra) *Catalog {
	return &Catalog{
		cfg:      cfg,
		importer: importer,
		runtime:  runtime,
	}
}

// Cookbooks imports pending bundles and returns an entry for every
// <root>/<name>/<version> directory. Unless strict_catalog is set, versions
// whose archive is not written yet are listed too. Order is not guaranteed.
func (c *Catalog) Cookbooks() ([]Entry, error) {
	if c.cfg == nil {
		return nil, helpers.ErrConfigIsNil
	}
	out := c.runtime.Output
	if c.importer != nil {
		if _, err := c.importer.ImportPending(); err != nil {
			out.Errorf("Import pass failed: %s", err)
		}
	}

	start := c.runtime.Now()
	names, err := os.ReadDir(c.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read store %s: %w", c.cfg.Path, err)
	}
	var entries []Entry
	for _, nameEntry := range names {
		name := nameEntry.Name()
		nameDir := filepath.Join(c.cfg.Path, name)
		if !nameEntry.IsDir() || strings.HasPrefix(name, ".") || c.isImportDir(nameDir) {
			continue
		}
		out.Debugf("reading cookbook dir %s", nameDir)
		versions, err := os.ReadDir(nameDir)
		if err != nil {
			out.Printf("⚠️ Failed to read cookbook dir %s: %v", nameDir, err)
			continue
		}
		for _, versionEntry := range versions {
			if !versionEntry.IsDir() {
				continue
			}
			entry, ok := c.entry(name, versionEntry.Name())
			if ok {
				entries = append(entries, entry)
			}
		}
	}
	out.DebugSincef(start, "catalog of %s: %d entries", c.cfg.Path, len(entries))
	return entries, nil
}

// Find returns the entry for one cookbook version without an import pass.
func (c *Catalog) Find(name, version string) (Entry, error) {
	if c.cfg == nil {
		return Entry{}, helpers.ErrConfigIsNil
	}
	if !helpers.IsValidPackageName(name) || !helpers.IsDir(filepath.Join(c.cfg.Path, name, version)) {
		return Entry{}, fmt.Errorf("%w: %s@%s", helpers.ErrCookbookNotFound, name, version)
	}
	entry, ok := c.entry(name, version)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s@%s", helpers.ErrCookbookNotFound, name, version)
	}
	return entry, nil
}

func (c *Catalog) entry(name, rawVersion string) (Entry, bool) {
	out := c.runtime.Output
	version, err := semver.NewVersion(rawVersion)
	if err != nil {
		out.Printf("⚠️ Skipping %s/%s: not a version: %v", name, rawVersion, err)
		return Entry{}, false
	}
	repoPath := filepath.Join(c.cfg.Path, name, rawVersion)
	packageFile := helpers.PackageFileName(name, rawVersion)
	if c.cfg.StrictCatalog {
		if _, err := os.Stat(filepath.Join(repoPath, packageFile)); err != nil {
			out.Printf("⏳ Cannot register %s yet (bundle not fully unpacked)", packageFile)
			return Entry{}, false
		}
	}
	out.Debugf("registering %s", packageFile)
	return Entry{
		Name:        name,
		Version:     version,
		SourceKind:  helpers.SourceKindURI,
		LocationURI: fmt.Sprintf("%s/%s/%s/%s/%s", c.cfg.RepoBaseURL, helpers.BundleCookbooksDir, name, rawVersion, packageFile),
		Priority:    c.cfg.Priority,
		Info: Info{
			RepoPath:    repoPath,
			PackageFile: packageFile,
		},
	}, true
}

func (c *Catalog) isImportDir(dir string) bool {
	a, errA := filepath.Abs(dir)
	b, errB := filepath.Abs(c.cfg.Import)
	return errA == nil && errB == nil && a == b
}

// Metadata returns the metadata of an entry, unpacking its archive next to
// it first when needed. It returns nil when no metadata can be read.
func (c *Catalog) Metadata(entry Entry) *cookbook.Metadata {
	out := c.runtime.Output
	out.Printf("🔎 Loading metadata of %s (%s)", entry.Name, versionString(entry))
	unpacked := filepath.Join(entry.Info.RepoPath, entry.Name)
	if !helpers.IsDir(unpacked) {
		if err := c.unpack(entry, unpacked); err != nil {
			out.Errorf("Failed to unpack %s: %s", entry.ArchivePath(), err)
			return nil
		}
	}
	return cookbook.Read(unpacked, out)
}

// unpack extracts the entry archive in a scratch directory and moves the
// package tree into place, so a broken archive leaves nothing behind.
func (c *Catalog) unpack(entry Entry, unpacked string) error {
	c.runtime.Output.Printf("📦 Unpacking %s", entry.ArchivePath())
	start := c.runtime.Now()
	scratch, err := os.MkdirTemp(entry.Info.RepoPath, helpers.ScratchDirPrefix+"*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.RemoveAll(scratch)
	}()
	if err := archive.ExtractTarGz(entry.ArchivePath(), scratch); err != nil {
		return err
	}
	tree := filepath.Join(scratch, entry.Name)
	if !helpers.IsDir(tree) {
		return fmt.Errorf("%w: %s in %s", helpers.ErrNotADirectory, entry.Name, entry.ArchivePath())
	}
	if err := os.Rename(tree, unpacked); err != nil {
		return err
	}
	c.runtime.Output.DebugSincef(start, "unpacked %s", entry.ArchivePath())
	return nil
}

func versionString(entry Entry) string {
	if entry.Version == nil {
		return ""
	}
	return entry.Version.Original()
}

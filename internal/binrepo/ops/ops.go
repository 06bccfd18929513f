package ops

import (
	"context"
	"fmt"
	"sort"

	"github.com/greeddj/binrepo-store/internal/binrepo/bundle"
	"github.com/greeddj/binrepo-store/internal/binrepo/catalog"
	"github.com/greeddj/binrepo-store/internal/binrepo/config"
	"github.com/greeddj/binrepo-store/internal/binrepo/cookbook"
	"github.com/greeddj/binrepo-store/internal/binrepo/helpers"
	"github.com/greeddj/binrepo-store/internal/binrepo/infra"
	"github.com/greeddj/binrepo-store/internal/binrepo/store"
)

// List returns the catalog sorted by name and version. Pending bundles are
// imported first unless noImport is set.
func List(ctx context.Context, cfg *config.Config, runtime *infra.Infra, noImport bool) (entries []catalog.Entry, err error) {
	defer logError(runtime, &err)
	s, err := openSession(ctx, cfg, runtime, "list")
	if err != nil {
		return nil, err
	}
	defer s.close()

	runtime.Output.Printf("🚀 read catalog of %s", cfg.Path)
	entries, err = s.catalog(!noImport).Cookbooks()
	if err != nil {
		return nil, err
	}
	sortEntries(entries)
	runtime.Output.PersistentPrintf("📚 %d cookbook versions in %s", len(entries), cfg.Path)
	return entries, nil
}

// Import runs one import pass over the import directory.
func Import(ctx context.Context, cfg *config.Config, runtime *infra.Infra) (report bundle.Report, err error) {
	defer logError(runtime, &err)
	s, err := openSession(ctx, cfg, runtime, "import")
	if err != nil {
		return report, err
	}
	defer s.close()

	runtime.Output.Printf("🚀 import bundles from %s", cfg.Import)
	report, err = s.importer().ImportPending()
	if err != nil {
		return report, err
	}
	if len(report.Failures) > 0 {
		runtime.Output.PersistentPrintf("⚠️ Import complete. Imported: %d, failed: %d", report.Imported, len(report.Failures))
		return report, nil
	}
	runtime.Output.PersistentPrintf("✨ Import complete. Imported: %d", report.Imported)
	return report, nil
}

// Metadata loads the metadata of one stored cookbook version.
func Metadata(ctx context.Context, cfg *config.Config, runtime *infra.Infra, name, version string) (entry catalog.Entry, md *cookbook.Metadata, err error) {
	defer logError(runtime, &err)
	s, err := openSession(ctx, cfg, runtime, "metadata")
	if err != nil {
		return entry, nil, err
	}
	defer s.close()

	cat := s.catalog(false)
	entry, err = cat.Find(name, version)
	if err != nil {
		return entry, nil, err
	}
	md = cat.Metadata(entry)
	if md == nil {
		return entry, nil, fmt.Errorf("%w: %s@%s", helpers.ErrMetadataUnavailable, name, version)
	}
	return entry, md, nil
}

// History returns up to limit most recent journal records.
func History(ctx context.Context, cfg *config.Config, runtime *infra.Infra, limit int) (records []store.ImportRecord, err error) {
	defer logError(runtime, &err)
	if cfg == nil {
		return nil, helpers.ErrConfigIsNil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	journal, err := store.OpenJournal(cfg.Path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = journal.Close()
	}()
	return journal.List(limit)
}

// Cleanup removes leftovers of interrupted imports and requeues stray bundles.
func Cleanup(ctx context.Context, cfg *config.Config, runtime *infra.Infra) (report store.PruneReport, err error) {
	defer logError(runtime, &err)
	s, err := openSession(ctx, cfg, runtime, "cleanup")
	if err != nil {
		return report, err
	}
	defer s.close()

	runtime.Output.Printf("🧹 prune %s", cfg.Path)
	report, err = store.Prune(cfg.Path, cfg.Import)
	if err != nil {
		return report, err
	}
	for _, path := range report.Requeued {
		runtime.Output.Printf("🔁 requeued %s", path)
	}
	if report.Empty() {
		runtime.Output.PersistentPrintf("ℹ️ Nothing to clean up.")
		return report, nil
	}
	removed := len(report.ScratchRemoved) + len(report.TempRemoved) + len(report.Discarded)
	runtime.Output.PersistentPrintf("✨ Cleanup complete. Removed: %d, requeued: %d", removed, len(report.Requeued))
	return report, nil
}

func sortEntries(entries []catalog.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Version.LessThan(entries[j].Version)
	})
}

func logError(runtime *infra.Infra, err *error) {
	if *err != nil {
		runtime.Output.Errorf("Error: %s", (*err).Error())
	}
}

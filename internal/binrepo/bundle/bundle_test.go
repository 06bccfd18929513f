package bundle

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/greeddj/binrepo-store/internal/binrepo/archive"
	"github.com/greeddj/binrepo-store/internal/binrepo/helpers"
	"github.com/greeddj/binrepo-store/internal/binrepo/infra"
	"github.com/greeddj/binrepo-store/internal/binrepo/store"
	"github.com/greeddj/binrepo-store/internal/progress"
)

type memRecorder struct {
	records []store.ImportRecord
}

func (m *memRecorder) Record(rec store.ImportRecord) error {
	m.records = append(m.records, rec)
	return nil
}

type testStore struct {
	root      string
	importDir string
	recorder  *memRecorder
	importer  *Importer
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	dir := t.TempDir()
	ts := &testStore{
		root:      filepath.Join(dir, "store"),
		importDir: filepath.Join(dir, "import"),
		recorder:  &memRecorder{},
	}
	for _, d := range []string{ts.root, ts.importDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	ts.importer = New(ts.importDir, ts.root, infra.New(progress.New(false, true)), ts.recorder)
	return ts
}

func metadataJSON(name, version string) string {
	return `{"name":"` + name + `","version":"` + version + `"}`
}

// writeBundle builds <importDir>/<file> holding cookbooks/<dir>/<files...>.
func (ts *testStore) writeBundle(t *testing.T, file string, cookbooks map[string]map[string]string) string {
	t.Helper()
	src := t.TempDir()
	for dir, files := range cookbooks {
		for rel, content := range files {
			path := filepath.Join(src, helpers.BundleCookbooksDir, dir, rel)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
		}
	}
	bundlePath := filepath.Join(ts.importDir, file)
	if err := archive.CreateTarGz(src, "", bundlePath); err != nil {
		t.Fatalf("CreateTarGz error: %v", err)
	}
	return bundlePath
}

func (ts *testStore) mustImport(t *testing.T) Report {
	t.Helper()
	report, err := ts.importer.ImportPending()
	if err != nil {
		t.Fatalf("ImportPending error: %v", err)
	}
	return report
}

func mustExist(t *testing.T, path string, want bool) {
	t.Helper()
	got, err := helpers.Exists(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if got != want {
		t.Fatalf("exists(%s) = %v, want %v", path, got, want)
	}
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

func assertNoScratch(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir %s: %v", dir, err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), helpers.ScratchDirPrefix) || strings.HasSuffix(entry.Name(), helpers.BundleSuffix) {
			t.Fatalf("leftover %s in %s", entry.Name(), dir)
		}
	}
}

func TestParseBundleName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		file    string
		name    string
		version string
		wantErr error
	}{
		{file: "demo_1.2.3-full.tar.gz", name: "demo", version: "1.2.3"},
		{file: "/import/my_cookbook_10.0.42-full.tar.gz", name: "my_cookbook", version: "10.0.42"},
		{file: "web-app_0.0.1-full.tar.gz", name: "web-app", version: "0.0.1"},
		{file: "bad name!!.tar.gz", wantErr: helpers.ErrInvalidBundleVersion},
		{file: "demo_1.2-full.tar.gz", wantErr: helpers.ErrInvalidBundleVersion},
		{file: "demo_1.2.3.tar.gz", wantErr: helpers.ErrInvalidBundleVersion},
		{file: "demo_1.2.3-full.tgz", wantErr: helpers.ErrInvalidBundleVersion},
		{file: "bad name_1.2.3-full.tar.gz", wantErr: helpers.ErrInvalidBundleName},
		{file: "_1.2.3-full.tar.gz", wantErr: helpers.ErrInvalidBundleName},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			t.Parallel()
			name, version, err := ParseBundleName(tt.file)
			if tt.wantErr != nil {
				var namingErr *NamingConventionError
				if !errors.As(err, &namingErr) {
					t.Fatalf("expected NamingConventionError, got %v", err)
				}
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tt.name || version != tt.version {
				t.Fatalf("got %s %s, want %s %s", name, version, tt.name, tt.version)
			}
		})
	}
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()
	want := map[Outcome]string{
		OutcomeImported:  "imported",
		OutcomeDuplicate: "duplicate",
		OutcomeRejected:  "rejected",
		OutcomeFailed:    "failed",
		Outcome(9):       "outcome(9)",
	}
	for outcome, s := range want {
		if outcome.String() != s {
			t.Fatalf("String() = %q, want %q", outcome.String(), s)
		}
	}
}

func TestImportPendingEndToEnd(t *testing.T) {
	t.Parallel()
	ts := newTestStore(t)
	bundlePath := ts.writeBundle(t, "demo_1.2.3-full.tar.gz", map[string]map[string]string{
		"demo": {
			helpers.MetadataJSON:         metadataJSON("demo", "1.2.3"),
			"recipes/default.rb":         "log 'hello'",
			"templates/default/motd.erb": "welcome",
		},
	})

	report := ts.mustImport(t)
	if report.Imported != 1 || len(report.Failures) != 0 || len(report.Results) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	res := report.Results[0]
	if res.Outcome != OutcomeImported || res.Name != "demo" || res.Version != "1.2.3" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Packages) != 1 || !res.Packages[0].Created || res.Packages[0].SHA256 == "" {
		t.Fatalf("unexpected packages: %+v", res.Packages)
	}

	target := filepath.Join(ts.root, "demo", "1.2.3")
	archivePath := filepath.Join(target, "demo_1.2.3.tar.gz")
	mustExist(t, archivePath, true)
	mustExist(t, bundlePath, false)
	mustExist(t, filepath.Join(target, "demo", "recipes", "default.rb"), true)
	assertNoScratch(t, target)

	out := t.TempDir()
	if err := archive.ExtractTarGz(archivePath, out); err != nil {
		t.Fatalf("ExtractTarGz error: %v", err)
	}
	if got := string(mustRead(t, filepath.Join(out, "demo", helpers.MetadataJSON))); got != metadataJSON("demo", "1.2.3") {
		t.Fatalf("unexpected archived metadata: %s", got)
	}
	mustExist(t, filepath.Join(out, "demo", "templates", "default", "motd.erb"), true)

	if len(ts.recorder.records) != 1 {
		t.Fatalf("expected one journal record, got %d", len(ts.recorder.records))
	}
	rec := ts.recorder.records[0]
	if rec.Outcome != "imported" || rec.Bundle != "demo_1.2.3-full.tar.gz" || len(rec.Packages) != 1 {
		t.Fatalf("unexpected journal record: %+v", rec)
	}
	if rec.Packages[0].ArchiveSHA256 != res.Packages[0].SHA256 {
		t.Fatalf("journal hash mismatch: %+v", rec.Packages[0])
	}
}

func TestImportPendingIsIdempotent(t *testing.T) {
	t.Parallel()
	ts := newTestStore(t)
	files := map[string]map[string]string{
		"demo": {helpers.MetadataJSON: metadataJSON("demo", "1.0.0")},
	}
	ts.writeBundle(t, "demo_1.0.0-full.tar.gz", files)
	ts.mustImport(t)
	archivePath := filepath.Join(ts.root, "demo", "1.0.0", "demo_1.0.0.tar.gz")
	first := mustRead(t, archivePath)

	bundlePath := ts.writeBundle(t, "demo_1.0.0-full.tar.gz", files)
	report := ts.mustImport(t)
	if report.Imported != 0 || len(report.Results) != 1 || report.Results[0].Outcome != OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %+v", report)
	}
	mustExist(t, bundlePath, false)
	if !bytes.Equal(first, mustRead(t, archivePath)) {
		t.Fatalf("archive changed on re-import")
	}

	report = ts.mustImport(t)
	if len(report.Results) != 0 {
		t.Fatalf("empty import dir should be a no-op: %+v", report)
	}
}

func TestImportPendingNeverOverwrites(t *testing.T) {
	t.Parallel()
	ts := newTestStore(t)
	target := filepath.Join(ts.root, "demo", "1.2.3")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	archivePath := filepath.Join(target, "demo_1.2.3.tar.gz")
	if err := os.WriteFile(archivePath, []byte("original"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	bundlePath := ts.writeBundle(t, "demo_1.2.3-full.tar.gz", map[string]map[string]string{
		"demo": {helpers.MetadataJSON: metadataJSON("demo", "1.2.3")},
	})

	report := ts.mustImport(t)
	if report.Results[0].Outcome != OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %+v", report.Results[0])
	}
	mustExist(t, bundlePath, false)
	if got := string(mustRead(t, archivePath)); got != "original" {
		t.Fatalf("archive was overwritten: %q", got)
	}
	mustExist(t, filepath.Join(target, "demo"), false)
	if ts.recorder.records[0].Outcome != "duplicate" {
		t.Fatalf("unexpected journal record: %+v", ts.recorder.records[0])
	}
}

func TestImportPendingRejectsBadNames(t *testing.T) {
	t.Parallel()
	ts := newTestStore(t)
	for _, name := range []string{"bad name!!.tar.gz", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(ts.importDir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	ts.writeBundle(t, "demo_1.0.0-full.tar.gz", map[string]map[string]string{
		"demo": {helpers.MetadataJSON: metadataJSON("demo", "1.0.0")},
	})

	report := ts.mustImport(t)
	if report.Imported != 1 || len(report.Failures) != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	for _, failure := range report.Failures {
		var namingErr *NamingConventionError
		if failure.Outcome != OutcomeRejected || !errors.As(failure.Err, &namingErr) {
			t.Fatalf("unexpected failure: %+v", failure)
		}
	}
	mustExist(t, filepath.Join(ts.importDir, "bad name!!.tar.gz"), true)
	mustExist(t, filepath.Join(ts.importDir, "notes.txt"), true)

	entries, err := os.ReadDir(ts.root)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "demo" {
		t.Fatalf("unexpected store content: %v", entries)
	}
}

func TestImportPendingKeepsCorruptBundle(t *testing.T) {
	t.Parallel()
	ts := newTestStore(t)
	bundlePath := filepath.Join(ts.importDir, "broken_1.0.0-full.tar.gz")
	if err := os.WriteFile(bundlePath, []byte("not a gzip stream"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	report := ts.mustImport(t)
	if report.Imported != 0 || len(report.Failures) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	failure := report.Failures[0]
	var extractErr *archive.ExtractionError
	if failure.Outcome != OutcomeFailed || !errors.As(failure.Err, &extractErr) {
		t.Fatalf("unexpected failure: %+v", failure)
	}
	if got := string(mustRead(t, bundlePath)); got != "not a gzip stream" {
		t.Fatalf("bundle content changed: %q", got)
	}
	mustExist(t, filepath.Join(ts.root, "broken"), false)

	report = ts.mustImport(t)
	if len(report.Failures) != 1 || report.Failures[0].Outcome != OutcomeFailed {
		t.Fatalf("bundle should be retried on the next pass: %+v", report)
	}
}

func TestImportPendingKeepsBundleWithoutMetadata(t *testing.T) {
	t.Parallel()
	ts := newTestStore(t)
	bundlePath := ts.writeBundle(t, "nometa_1.0.0-full.tar.gz", map[string]map[string]string{
		"nometa": {"README.md": "no metadata here"},
	})

	report := ts.mustImport(t)
	if len(report.Failures) != 1 || !errors.Is(report.Failures[0].Err, helpers.ErrMetadataUnavailable) {
		t.Fatalf("unexpected report: %+v", report)
	}
	mustExist(t, bundlePath, true)
	mustExist(t, filepath.Join(ts.root, "nometa"), false)
}

func TestImportPendingRollsBackPartialSplit(t *testing.T) {
	t.Parallel()
	ts := newTestStore(t)
	baseArchive := filepath.Join(ts.root, "base", "1.1.0", "base_1.1.0.tar.gz")
	if err := os.MkdirAll(filepath.Dir(baseArchive), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(baseArchive, []byte("existing"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	bundlePath := ts.writeBundle(t, "demo_1.0.0-full.tar.gz", map[string]map[string]string{
		"a":  {helpers.MetadataJSON: metadataJSON("demo", "1.0.0")},
		"a0": {helpers.MetadataJSON: metadataJSON("base", "1.1.0")},
		"b":  {"README.md": "no metadata here"},
	})

	for pass := 1; pass <= 2; pass++ {
		report := ts.mustImport(t)
		if len(report.Results) != 1 || report.Results[0].Outcome != OutcomeFailed {
			t.Fatalf("pass %d: unexpected report: %+v", pass, report)
		}
		if len(report.Results[0].Packages) != 0 {
			t.Fatalf("pass %d: rolled back packages should not be reported: %+v", pass, report.Results[0].Packages)
		}
		mustExist(t, bundlePath, true)
		mustExist(t, filepath.Join(ts.root, "demo"), false)
		if got := string(mustRead(t, baseArchive)); got != "existing" {
			t.Fatalf("pass %d: existing archive was touched: %q", pass, got)
		}
	}
	if n := len(ts.recorder.records); n != 2 || ts.recorder.records[1].Outcome != "failed" {
		t.Fatalf("unexpected journal: %+v", ts.recorder.records)
	}
}

func TestImportPendingRequiresCookbooksDir(t *testing.T) {
	t.Parallel()
	ts := newTestStore(t)
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "README.md"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	bundlePath := filepath.Join(ts.importDir, "empty_1.0.0-full.tar.gz")
	if err := archive.CreateTarGz(src, "", bundlePath); err != nil {
		t.Fatalf("CreateTarGz error: %v", err)
	}

	report := ts.mustImport(t)
	if len(report.Failures) != 1 || !errors.Is(report.Failures[0].Err, helpers.ErrBundleHasNoCookbooks) {
		t.Fatalf("unexpected report: %+v", report)
	}
	mustExist(t, bundlePath, true)
}

func TestImportPendingMultiPackageBundle(t *testing.T) {
	t.Parallel()
	ts := newTestStore(t)
	baseTarget := filepath.Join(ts.root, "base", "1.1.0")
	if err := os.MkdirAll(baseTarget, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	baseArchive := filepath.Join(baseTarget, "base_1.1.0.tar.gz")
	if err := os.WriteFile(baseArchive, []byte("existing"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ts.writeBundle(t, "app_2.0.0-full.tar.gz", map[string]map[string]string{
		"app": {
			helpers.MetadataRB: "name 'app'\nversion '2.0.0'\ndepends 'base', '~> 1.1'\n",
		},
		"base": {
			helpers.MetadataJSON: metadataJSON("base", "1.1.0"),
		},
		"util-master": {
			helpers.MetadataJSON:   metadataJSON("util", "0.3.0"),
			"libraries/helpers.rb": "module Util; end",
		},
	})

	report := ts.mustImport(t)
	if report.Imported != 1 || len(report.Results[0].Packages) != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	created := map[string]bool{}
	for _, pkg := range report.Results[0].Packages {
		created[pkg.Name] = pkg.Created
	}
	if !created["app"] || created["base"] || !created["util"] {
		t.Fatalf("unexpected created flags: %v", created)
	}
	if got := string(mustRead(t, baseArchive)); got != "existing" {
		t.Fatalf("existing archive was overwritten: %q", got)
	}
	mustExist(t, filepath.Join(ts.root, "app", "2.0.0", "app_2.0.0.tar.gz"), true)
	assertNoScratch(t, filepath.Join(ts.root, "app", "2.0.0"))

	utilArchive := filepath.Join(ts.root, "util", "0.3.0", "util_0.3.0.tar.gz")
	out := t.TempDir()
	if err := archive.ExtractTarGz(utilArchive, out); err != nil {
		t.Fatalf("ExtractTarGz error: %v", err)
	}
	mustExist(t, filepath.Join(out, "util", "libraries", "helpers.rb"), true)
	mustExist(t, filepath.Join(ts.root, "util", "0.3.0", "util", "libraries", "helpers.rb"), true)
}

func TestImportPendingSkipsDirectories(t *testing.T) {
	t.Parallel()
	ts := newTestStore(t)
	if err := os.MkdirAll(filepath.Join(ts.importDir, "nested_1.0.0-full.tar.gz"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	report := ts.mustImport(t)
	if len(report.Results) != 0 {
		t.Fatalf("directories should be skipped: %+v", report)
	}
}

func TestImportPendingMissingImportDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	im := New(filepath.Join(dir, "missing"), dir, infra.New(progress.New(false, true)), nil)
	if _, err := im.ImportPending(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

package cookbook

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/greeddj/binrepo-store/internal/binrepo/helpers"
	"github.com/greeddj/binrepo-store/internal/binrepo/output"
)

// Metadata describes one cookbook version. Extra holds any further fields the
// parser found (dependencies, platforms, maintainer, ...) without validation.
type Metadata struct {
	Name    string
	Version *semver.Version
	Extra   map[string]any
}

// VersionString returns the version as written in the metadata file.
func (m *Metadata) VersionString() string {
	if m == nil || m.Version == nil {
		return ""
	}
	return m.Version.Original()
}

// Dependencies returns the declared dependency constraints keyed by cookbook name.
func (m *Metadata) Dependencies() map[string]string {
	if m == nil {
		return nil
	}
	deps, _ := m.Extra[keyDependencies].(map[string]string)
	return deps
}

const (
	keyName         = "name"
	keyVersion      = "version"
	keyDependencies = "dependencies"
	keyPlatforms    = "platforms"
)

// Read loads metadata from a cookbook directory with the structured parser and
// falls back to a plain read of metadata.json. It returns nil when neither
// succeeds; callers treat that as metadata being unavailable.
func Read(dir string, out output.Printer) *Metadata {
	md, err := Load(dir)
	if err == nil {
		return md
	}
	out.Printf("⚠️ failed to load metadata from cookbook %s: %s", dir, err)
	out.Debugf("trying to get metadata info manually from %s", filepath.Join(dir, helpers.MetadataJSON))
	md, err = LoadFallback(dir)
	if err != nil {
		out.Errorf("metadata unavailable for cookbook %s: %s", dir, err)
		return nil
	}
	return md
}

// Load parses metadata.rb when present, otherwise metadata.json, and
// validates name, version and dependency constraints.
func Load(dir string) (*Metadata, error) {
	rbPath := filepath.Join(dir, helpers.MetadataRB)
	jsonPath := filepath.Join(dir, helpers.MetadataJSON)

	var (
		fields map[string]any
		err    error
	)
	switch {
	case fileExists(rbPath):
		fields, err = parseMetadataRBFile(rbPath)
	case fileExists(jsonPath):
		fields, err = parseMetadataJSONFile(jsonPath)
	default:
		return nil, fmt.Errorf("%w in %s", helpers.ErrMetadataNotFound, dir)
	}
	if err != nil {
		return nil, err
	}
	return newMetadata(fields)
}

// LoadFallback reads only name and version from metadata.json.
func LoadFallback(dir string) (*Metadata, error) {
	path := filepath.Join(dir, helpers.MetadataJSON)
	//nolint:gosec // path is inside a store-owned cookbook directory.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", helpers.ErrMetadataUnavailable, err)
	}
	var raw struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", helpers.ErrMetadataUnavailable, path, err)
	}
	if strings.TrimSpace(raw.Name) == "" {
		return nil, fmt.Errorf("%w: %s", helpers.ErrMetadataMissingName, path)
	}
	if strings.TrimSpace(raw.Version) == "" {
		return nil, fmt.Errorf("%w: %s", helpers.ErrMetadataMissingVersion, path)
	}
	version, err := semver.NewVersion(strings.TrimSpace(raw.Version))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", helpers.ErrMetadataUnavailable, path, err)
	}
	return &Metadata{Name: strings.TrimSpace(raw.Name), Version: version}, nil
}

// newMetadata validates parsed fields and builds a Metadata record.
func newMetadata(fields map[string]any) (*Metadata, error) {
	name, _ := fields[keyName].(string)
	if name == "" {
		return nil, helpers.ErrMetadataMissingName
	}
	if !helpers.IsValidPackageName(name) {
		return nil, fmt.Errorf("%w: %q", helpers.ErrMetadataInvalidName, name)
	}
	rawVersion, _ := fields[keyVersion].(string)
	if rawVersion == "" {
		return nil, fmt.Errorf("%w for %s", helpers.ErrMetadataMissingVersion, name)
	}
	version, err := semver.NewVersion(rawVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q for %s: %w", rawVersion, name, err)
	}
	for _, key := range []string{keyDependencies, keyPlatforms} {
		constraints, _ := fields[key].(map[string]string)
		if err := validateConstraints(constraints); err != nil {
			return nil, fmt.Errorf("%s of %s: %w", key, name, err)
		}
	}

	extra := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == keyName || k == keyVersion {
			continue
		}
		extra[k] = v
	}
	return &Metadata{Name: name, Version: version, Extra: extra}, nil
}

// validateConstraints checks that every constraint parses as a semver range.
func validateConstraints(constraints map[string]string) error {
	for dep, raw := range constraints {
		if _, err := semver.NewConstraint(normalizeConstraint(raw)); err != nil {
			return fmt.Errorf("invalid constraint %q for %s: %w", raw, dep, err)
		}
	}
	return nil
}

// normalizeConstraint rewrites Chef constraint syntax into semver syntax.
func normalizeConstraint(raw string) string {
	c := strings.TrimSpace(raw)
	if c == "" {
		return "*"
	}
	return strings.ReplaceAll(c, "~>", "~")
}

func parseMetadataJSONFile(path string) (map[string]any, error) {
	//nolint:gosec // path is inside a store-owned cookbook directory.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case keyDependencies, keyPlatforms:
			constraints, err := stringMap(v)
			if err != nil {
				return nil, fmt.Errorf("%s in %s: %w", k, path, err)
			}
			fields[k] = constraints
		default:
			fields[k] = v
		}
	}
	return fields, nil
}

// stringMap converts a decoded JSON object of strings into map[string]string.
func stringMap(v any) (map[string]string, error) {
	if v == nil {
		return map[string]string{}, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("expected an object")
	}
	out := make(map[string]string, len(obj))
	for k, item := range obj {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string constraint for %s", k)
		}
		out[k] = s
	}
	return out, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

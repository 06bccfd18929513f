package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/greeddj/binrepo-store/internal/binrepo/helpers"
	"github.com/urfave/cli/v2"
)

// Output formats accepted by --format.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Config holds runtime settings for store operations.
type Config struct {
	Verbose       bool
	Quiet         bool
	RepoBaseURL   string
	Path          string
	Import        string
	Priority      int
	StrictCatalog bool
	NoJournal     bool
	Format        string

	ConfigPath          string
	RepoBaseURLFromFile bool
	PathFromFile        bool
	ImportFromFile      bool
}

// JournalEnabled reports whether import outcomes are recorded in the journal.
func (c *Config) JournalEnabled() bool {
	if c == nil {
		return false
	}
	return !c.NoJournal
}

// FileConfig maps the binrepo.toml file.
type FileConfig struct {
	RepoBaseURL   string `toml:"repo_base_url"`
	Path          string `toml:"path"`
	Import        string `toml:"import"`
	Priority      *int   `toml:"priority"`
	StrictCatalog *bool  `toml:"strict_catalog"`
}

// BuildConfig builds Config from CLI flags and the optional config file.
// Flags set explicitly (or through their env vars) win over the file, and
// the file wins over flag defaults.
func BuildConfig(c *cli.Context) (*Config, error) {
	cfg := newConfigFromCLI(c)

	fileCfg, filePath, err := loadFileConfigFromCLI(c)
	if err != nil {
		return nil, err
	}
	applyFileConfig(cfg, c, fileCfg, filePath)

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newConfigFromCLI(c *cli.Context) *Config {
	cfg := &Config{
		RepoBaseURL:   c.String("repo-base-url"),
		Path:          c.String("path"),
		Import:        c.String("import"),
		Priority:      c.Int("priority"),
		StrictCatalog: c.Bool("strict-catalog"),
		NoJournal:     c.Bool("no-journal"),
		Format:        c.String("format"),
	}
	cfg.Verbose = c.Bool("verbose")
	cfg.Quiet = !cfg.Verbose && c.Bool("quiet")
	return cfg
}

func loadFileConfigFromCLI(c *cli.Context) (FileConfig, string, error) {
	fileCfg, filePath, err := LoadFile(c.String("config"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fileCfg, "", fmt.Errorf("failed to load config file: %w", err)
	}
	return fileCfg, filePath, nil
}

func applyFileConfig(cfg *Config, c *cli.Context, fileCfg FileConfig, filePath string) {
	if filePath == "" {
		return
	}
	cfg.ConfigPath = filePath
	if fileCfg.RepoBaseURL != "" && !c.IsSet("repo-base-url") {
		cfg.RepoBaseURL = fileCfg.RepoBaseURL
		cfg.RepoBaseURLFromFile = true
	}
	if fileCfg.Path != "" && !c.IsSet("path") {
		cfg.Path = resolveRelative(filePath, fileCfg.Path)
		cfg.PathFromFile = true
	}
	if fileCfg.Import != "" && !c.IsSet("import") {
		cfg.Import = resolveRelative(filePath, fileCfg.Import)
		cfg.ImportFromFile = true
	}
	if fileCfg.Priority != nil && !c.IsSet("priority") {
		cfg.Priority = *fileCfg.Priority
	}
	if fileCfg.StrictCatalog != nil && !c.IsSet("strict-catalog") {
		cfg.StrictCatalog = *fileCfg.StrictCatalog
	}
}

// Normalize trims and validates the store settings.
func (c *Config) Normalize() error {
	if c == nil {
		return helpers.ErrConfigIsNil
	}
	c.RepoBaseURL = strings.TrimRight(strings.TrimSpace(c.RepoBaseURL), "/")
	c.Path = strings.TrimSpace(c.Path)
	c.Import = strings.TrimSpace(c.Import)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Path == "" {
		return helpers.ErrStorePathEmpty
	}
	if c.Import == "" {
		return helpers.ErrImportPathEmpty
	}
	switch c.Format {
	case "":
		c.Format = FormatTable
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%w: %s", helpers.ErrUnsupportedFormat, c.Format)
	}
	return nil
}

// EnsureDirs creates the store root and import directory when missing.
func (c *Config) EnsureDirs() error {
	if c == nil {
		return helpers.ErrConfigIsNil
	}
	for _, dir := range []string{c.Path, c.Import} {
		if err := os.MkdirAll(dir, helpers.DirMod); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		if !helpers.IsDir(dir) {
			return fmt.Errorf("%w: %s", helpers.ErrNotADirectory, dir)
		}
	}
	return nil
}

// LoadFile loads a TOML config file if it exists.
func LoadFile(configPath string) (FileConfig, string, error) {
	fileCfg := FileConfig{}
	if strings.TrimSpace(configPath) == "" {
		return fileCfg, "", os.ErrNotExist
	}
	if _, err := os.Stat(configPath); err != nil {
		return fileCfg, "", err
	}
	if _, err := toml.DecodeFile(configPath, &fileCfg); err != nil {
		return fileCfg, "", fmt.Errorf("failed parse %s: %w", configPath, err)
	}
	return fileCfg, configPath, nil
}

// resolveRelative makes a path from the config file relative to that file.
func resolveRelative(configPath, value string) string {
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(filepath.Dir(configPath), value)
}

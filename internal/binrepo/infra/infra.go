package infra

import (
	"time"

	"github.com/greeddj/binrepo-store/internal/binrepo/config"
	"github.com/greeddj/binrepo-store/internal/binrepo/output"
)

// Infra holds runtime dependencies shared by the store components.
type Infra struct {
	Output output.Printer
	Now    func() time.Time
}

// New builds Infra with the default clock.
func New(out output.Printer) *Infra {
	return &Infra{
		Output: out,
		Now:    time.Now,
	}
}

// DebugConfig logs which settings were sourced from the config file.
func (i *Infra) DebugConfig(cfg *config.Config) {
	if i == nil || i.Output == nil || cfg == nil || cfg.ConfigPath == "" {
		return
	}
	if cfg.RepoBaseURLFromFile {
		i.Output.Debugf("%s: repo_base_url=%s", cfg.ConfigPath, cfg.RepoBaseURL)
	}
	if cfg.PathFromFile {
		i.Output.Debugf("%s: path=%s", cfg.ConfigPath, cfg.Path)
	}
	if cfg.ImportFromFile {
		i.Output.Debugf("%s: import=%s", cfg.ConfigPath, cfg.Import)
	}
}

// Package ops runs the store commands: it takes the store lock, opens the
// journal and wires the importer and catalog together.
package ops

import (
	"context"

	"github.com/greeddj/binrepo-store/internal/binrepo/bundle"
	"github.com/greeddj/binrepo-store/internal/binrepo/catalog"
	"github.com/greeddj/binrepo-store/internal/binrepo/config"
	"github.com/greeddj/binrepo-store/internal/binrepo/helpers"
	"github.com/greeddj/binrepo-store/internal/binrepo/infra"
	"github.com/greeddj/binrepo-store/internal/binrepo/store"
)

type session struct {
	cfg     *config.Config
	runtime *infra.Infra
	journal *store.Journal
	release func() error
}

// openSession prepares the store directories and takes the store lock.
// The journal is opened when enabled in cfg.
func openSession(ctx context.Context, cfg *config.Config, runtime *infra.Infra, command string) (*session, error) {
	if cfg == nil {
		return nil, helpers.ErrConfigIsNil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	runtime.DebugConfig(cfg)

	release, err := store.AcquireLock(cfg.Path, command)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, runtime: runtime, release: release}
	if cfg.JournalEnabled() {
		journal, err := store.OpenJournal(cfg.Path)
		if err != nil {
			_ = release()
			return nil, err
		}
		s.journal = journal
	}
	return s, nil
}

func (s *session) close() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.runtime.Output.Printf("⚠️ Failed to close journal: %v", err)
		}
	}
	if s.release != nil {
		if err := s.release(); err != nil {
			s.runtime.Output.Printf("⚠️ Failed to release store lock: %v", err)
		}
	}
}

func (s *session) importer() *bundle.Importer {
	var recorder bundle.Recorder
	if s.journal != nil {
		recorder = s.journal
	}
	return bundle.New(s.cfg.Import, s.cfg.Path, s.runtime, recorder)
}

func (s *session) catalog(withImport bool) *catalog.Catalog {
	if !withImport {
		return catalog.New(s.cfg, nil, s.runtime)
	}
	return catalog.New(s.cfg, s.importer(), s.runtime)
}

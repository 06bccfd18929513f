package helpers

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/greeddj/binrepo-store/internal/binrepo/config"
	"github.com/greeddj/binrepo-store/internal/binrepo/infra"
	"github.com/greeddj/binrepo-store/internal/progress"
	"github.com/urfave/cli/v2"
)

// Setup builds the config and the progress printer for a command. Machine
// readable formats run quiet unless verbose is set. Callers must Close the
// returned printer.
func Setup(c *cli.Context) (*config.Config, *progress.Progress, *infra.Infra, error) {
	cfg, err := config.BuildConfig(c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err) //nolint:forbidigo
		return nil, nil, nil, err
	}
	if cfg.Format != config.FormatTable && !cfg.Verbose {
		cfg.Quiet = true
	}
	p := progress.New(cfg.Verbose, cfg.Quiet)
	if cfg.Verbose {
		log.SetOutput(p)
	} else {
		log.SetOutput(io.Discard)
	}
	return cfg, p, infra.New(p), nil
}

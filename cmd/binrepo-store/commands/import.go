package commands

import (
	"os"

	"github.com/greeddj/binrepo-store/cmd/binrepo-store/helpers"
	"github.com/greeddj/binrepo-store/internal/binrepo/ops"
	"github.com/urfave/cli/v2"
)

// Import returns the CLI command that runs one import pass.
func Import() *cli.Command {
	return &cli.Command{
		Name:    "import",
		Aliases: []string{"im"},
		Usage:   "Import bundles waiting in the import directory",
		Flags:   helpers.CommonFlags(),
		Action: func(c *cli.Context) error {
			cfg, p, runtime, err := helpers.Setup(c)
			if err != nil {
				return err
			}
			defer p.Close()
			report, err := ops.Import(c.Context, cfg, runtime)
			if err != nil {
				return err
			}
			p.Close()

			view := newReportView(report)
			table := &helpers.Table{Header: []string{"BUNDLE", "OUTCOME", "NAME", "VERSION", "ERROR"}}
			for _, r := range view.Results {
				table.Add(r.Bundle, r.Outcome, r.Name, r.Version, r.Error)
			}
			return helpers.Render(os.Stdout, cfg.Format, view, table)
		},
	}
}

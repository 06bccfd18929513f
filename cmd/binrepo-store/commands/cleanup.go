package commands

import (
	"os"

	"github.com/greeddj/binrepo-store/cmd/binrepo-store/helpers"
	"github.com/greeddj/binrepo-store/internal/binrepo/ops"
	"github.com/urfave/cli/v2"
)

// Cleanup returns the CLI command that removes leftovers of interrupted imports.
func Cleanup() *cli.Command {
	return &cli.Command{
		Name:    "cleanup",
		Aliases: []string{"c"},
		Usage:   "Remove leftovers of interrupted imports and requeue stray bundles",
		Flags:   helpers.CommonFlags(),
		Action: func(c *cli.Context) error {
			cfg, p, runtime, err := helpers.Setup(c)
			if err != nil {
				return err
			}
			defer p.Close()
			report, err := ops.Cleanup(c.Context, cfg, runtime)
			if err != nil {
				return err
			}
			p.Close()

			table := &helpers.Table{Header: []string{"ACTION", "PATH"}}
			for _, path := range report.ScratchRemoved {
				table.Add("removed", path)
			}
			for _, path := range report.TempRemoved {
				table.Add("removed", path)
			}
			for _, path := range report.Discarded {
				table.Add("discarded", path)
			}
			for _, path := range report.Requeued {
				table.Add("requeued", path)
			}
			return helpers.Render(os.Stdout, cfg.Format, report, table)
		},
	}
}

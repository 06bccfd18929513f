package commands

import (
	"os"
	"strconv"
	"time"

	"github.com/greeddj/binrepo-store/cmd/binrepo-store/helpers"
	"github.com/greeddj/binrepo-store/internal/binrepo/ops"
	"github.com/urfave/cli/v2"
)

// History returns the CLI command that prints recent import journal records.
func History() *cli.Command {
	flags := helpers.CommonFlags()
	flags = append(flags, helpers.HistoryFlags()...)

	return &cli.Command{
		Name:    "history",
		Aliases: []string{"h"},
		Usage:   "Show recent bundle imports",
		Flags:   flags,
		Action: func(c *cli.Context) error {
			cfg, p, runtime, err := helpers.Setup(c)
			if err != nil {
				return err
			}
			defer p.Close()
			records, err := ops.History(c.Context, cfg, runtime, c.Int("limit"))
			if err != nil {
				return err
			}
			p.Close()

			table := &helpers.Table{Header: []string{"SEQ", "BUNDLE", "OUTCOME", "FINISHED", "ERROR"}}
			for _, rec := range records {
				table.Add(strconv.FormatUint(rec.Seq, 10), rec.Bundle, rec.Outcome, rec.FinishedAt.Format(time.RFC3339), rec.Error)
			}
			return helpers.Render(os.Stdout, cfg.Format, records, table)
		},
	}
}

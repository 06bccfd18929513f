package commands

import (
	"os"
	"strconv"

	"github.com/greeddj/binrepo-store/cmd/binrepo-store/helpers"
	"github.com/greeddj/binrepo-store/internal/binrepo/ops"
	"github.com/urfave/cli/v2"
)

// List returns the CLI command that imports pending bundles and prints the catalog.
func List() *cli.Command {
	flags := helpers.CommonFlags()
	flags = append(flags, helpers.CatalogFlags()...)
	flags = append(flags, helpers.ListFlags()...)

	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "Import pending bundles and list stored cookbook versions",
		Flags:   flags,
		Action: func(c *cli.Context) error {
			cfg, p, runtime, err := helpers.Setup(c)
			if err != nil {
				return err
			}
			defer p.Close()
			entries, err := ops.List(c.Context, cfg, runtime, c.Bool("no-import"))
			if err != nil {
				return err
			}
			p.Close()

			views := make([]cookbookView, 0, len(entries))
			table := &helpers.Table{Header: []string{"NAME", "VERSION", "PRIORITY", "LOCATION"}}
			for _, e := range entries {
				v := newCookbookView(e)
				views = append(views, v)
				table.Add(v.Name, v.Version, strconv.Itoa(v.Priority), v.LocationURI)
			}
			return helpers.Render(os.Stdout, cfg.Format, views, table)
		},
	}
}

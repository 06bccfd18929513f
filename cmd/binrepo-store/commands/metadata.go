package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/greeddj/binrepo-store/cmd/binrepo-store/helpers"
	binrepoHelpers "github.com/greeddj/binrepo-store/internal/binrepo/helpers"
	"github.com/greeddj/binrepo-store/internal/binrepo/ops"
	"github.com/urfave/cli/v2"
)

// Metadata returns the CLI command that prints the metadata of one stored cookbook version.
func Metadata() *cli.Command {
	flags := helpers.CommonFlags()
	flags = append(flags, helpers.CatalogFlags()...)

	return &cli.Command{
		Name:      "metadata",
		Aliases:   []string{"md"},
		Usage:     "Show metadata of a stored cookbook version",
		ArgsUsage: "NAME VERSION",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				err := fmt.Errorf("%w: expected NAME VERSION, got %d arguments", binrepoHelpers.ErrInvalidArguments, c.NArg())
				fmt.Fprintf(os.Stderr, "Error: %s\n", err) //nolint:forbidigo
				return err
			}
			cfg, p, runtime, err := helpers.Setup(c)
			if err != nil {
				return err
			}
			defer p.Close()
			entry, md, err := ops.Metadata(c.Context, cfg, runtime, c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}
			p.Close()

			view := newMetadataView(entry, md)
			table := &helpers.Table{Header: []string{"FIELD", "VALUE"}}
			table.Add("name", view.Name)
			table.Add("version", view.Version)
			table.Add("location", view.LocationURI)
			deps := make([]string, 0, len(view.Dependencies))
			for dep := range view.Dependencies {
				deps = append(deps, dep)
			}
			sort.Strings(deps)
			for _, dep := range deps {
				table.Add("depends", dep+" "+view.Dependencies[dep])
			}
			return helpers.Render(os.Stdout, cfg.Format, view, table)
		},
	}
}

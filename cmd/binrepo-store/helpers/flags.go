package helpers

import "github.com/urfave/cli/v2"

// CommonFlags defines shared CLI flags for all commands.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Usage:   "Verbose output",
			EnvVars: []string{"BINREPO_VERBOSE"},
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Quiet mode, not working with verbose",
			EnvVars: []string{"BINREPO_QUIET"},
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to binrepo.toml file",
			Value:   defaultConfigPath,
			EnvVars: []string{"BINREPO_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "path",
			Aliases: []string{"p"},
			Usage:   "Store root directory",
			Value:   defaultStoreDir,
			EnvVars: []string{"BINREPO_PATH"},
		},
		&cli.StringFlag{
			Name:    "import",
			Aliases: []string{"i"},
			Usage:   "Directory where bundles are dropped for import",
			Value:   defaultImportDir,
			EnvVars: []string{"BINREPO_IMPORT"},
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json or yaml",
			Value:   defaultFormat,
			EnvVars: []string{"BINREPO_FORMAT"},
		},
		&cli.BoolFlag{
			Name:    "no-journal",
			Usage:   "Do not record import outcomes in the journal",
			EnvVars: []string{"BINREPO_NO_JOURNAL"},
		},
	}
}

// CatalogFlags defines CLI flags shaping catalog entries.
func CatalogFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "repo-base-url",
			Usage:   "Base URL the store is served under",
			EnvVars: []string{"BINREPO_REPO_BASE_URL"},
		},
		&cli.IntFlag{
			Name:    "priority",
			Usage:   "Priority reported for every catalog entry",
			EnvVars: []string{"BINREPO_PRIORITY"},
		},
		&cli.BoolFlag{
			Name:    "strict-catalog",
			Usage:   "List only versions whose archive is already written",
			EnvVars: []string{"BINREPO_STRICT_CATALOG"},
		},
	}
}

// ListFlags defines CLI flags for the list command.
func ListFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "no-import",
			Usage:   "Read the catalog without importing pending bundles",
			EnvVars: []string{"BINREPO_NO_IMPORT"},
		},
	}
}

// HistoryFlags defines CLI flags for the history command.
func HistoryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Number of most recent records to show, 0 for all",
			Value:   defaultHistorySize,
			EnvVars: []string{"BINREPO_HISTORY_LIMIT"},
		},
	}
}

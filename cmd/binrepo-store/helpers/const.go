package helpers

const (
	defaultStoreDir    = "/var/lib/binrepo/cookbooks"
	defaultImportDir   = "/var/lib/binrepo/import"
	defaultConfigPath  = "binrepo.toml"
	defaultFormat      = "table"
	defaultHistorySize = 20

	tableMaxColWidth = 80
	tableSeparator   = "  "
)

package helpers

import "errors"

var (
	// ErrSymlinkTargetIsEmpty indicates a symlink target is empty.
	ErrSymlinkTargetIsEmpty = errors.New("symlink target is empty")

	// ErrArchivePathContainsSymlinkComponent indicates an archive path traverses a symlink.
	ErrArchivePathContainsSymlinkComponent = errors.New("archive path contains symlink component")
	// ErrArchiveExceedsMaxSize indicates an archive exceeds the maximum total size.
	ErrArchiveExceedsMaxSize = errors.New("archive exceeds maximum total size")
	// ErrArchiveEntryHasNegativeSize indicates an archive entry has a negative size.
	ErrArchiveEntryHasNegativeSize = errors.New("archive entry has negative size")
	// ErrArchiveEntryIsTooLarge indicates an archive entry is too large.
	ErrArchiveEntryIsTooLarge = errors.New("archive entry is too large")
	// ErrArchiveEntryEscapesDestination indicates an archive entry escapes the destination.
	ErrArchiveEntryEscapesDestination = errors.New("archive entry escapes destination")
	// ErrArchiveEntryIsAbsolutePath indicates an archive entry uses an absolute path.
	ErrArchiveEntryIsAbsolutePath = errors.New("archive entry is absolute path")
	// ErrArchiveEntryHasEmptyName indicates an archive entry has an empty name.
	ErrArchiveEntryHasEmptyName = errors.New("archive entry has empty name")
	// ErrLongLinkIsEmpty indicates a long-name marker entry carries no path.
	ErrLongLinkIsEmpty = errors.New("long link entry is empty")
	// ErrFileIsEmpty indicates a file is empty.
	ErrFileIsEmpty = errors.New("file is empty")
	// ErrNotADirectory indicates a path expected to be a directory is not one.
	ErrNotADirectory = errors.New("not a directory")

	// ErrInvalidBundleName indicates a bundle file name does not follow the naming convention.
	ErrInvalidBundleName = errors.New("bundle name does not follow the naming convention")
	// ErrInvalidBundleVersion indicates a bundle file version does not follow the naming convention.
	ErrInvalidBundleVersion = errors.New("bundle version does not follow the naming convention")
	// ErrBundleHasNoCookbooks indicates a bundle lacks the cookbooks subtree.
	ErrBundleHasNoCookbooks = errors.New("bundle has no cookbooks directory")

	// ErrMetadataNotFound indicates no metadata file exists in a cookbook directory.
	ErrMetadataNotFound = errors.New("metadata file not found")
	// ErrMetadataMissingName indicates metadata does not declare a name.
	ErrMetadataMissingName = errors.New("metadata has no name")
	// ErrMetadataMissingVersion indicates metadata does not declare a version.
	ErrMetadataMissingVersion = errors.New("metadata has no version")
	// ErrMetadataInvalidName indicates the metadata name is not a valid package name.
	ErrMetadataInvalidName = errors.New("metadata name is invalid")
	// ErrMetadataSyntax indicates a metadata.rb statement could not be parsed.
	ErrMetadataSyntax = errors.New("metadata syntax error")
	// ErrMetadataUnavailable indicates metadata could not be loaded by any parser.
	ErrMetadataUnavailable = errors.New("metadata unavailable")

	// ErrConfigIsNil indicates a nil config was provided.
	ErrConfigIsNil = errors.New("config is nil")
	// ErrStorePathEmpty indicates the store root path is not configured.
	ErrStorePathEmpty = errors.New("store path is empty")
	// ErrImportPathEmpty indicates the import directory path is not configured.
	ErrImportPathEmpty = errors.New("import path is empty")
	// ErrInvalidArguments indicates a command got the wrong positional arguments.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrUnsupportedFormat indicates an unknown output format was requested.
	ErrUnsupportedFormat = errors.New("unsupported output format")
	// ErrCookbookNotFound indicates a cookbook version is not in the catalog.
	ErrCookbookNotFound = errors.New("cookbook not found")

	// ErrDbNil indicates a nil Bolt DB was provided.
	ErrDbNil = errors.New("bolt DB is nil")
	// ErrLockFileInvalid indicates the store lock file cannot be decoded.
	ErrLockFileInvalid = errors.New("lock file exists but is invalid")
	// ErrAnotherInstanceIsRunning indicates another instance is already running.
	ErrAnotherInstanceIsRunning = errors.New("another instance is running")
)

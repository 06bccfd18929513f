package helpers

import "time"

const (
	// DirMod is the default permission for created directories.
	DirMod = 0o755
	// FileMod is the default permission for created files.
	FileMod = 0o644

	// ArchiveMaxEntrySize caps a single archive entry size during extraction.
	ArchiveMaxEntrySize = int64(512 << 20) // 512 MiB per file
	// ArchiveMaxTotalSize caps total extracted bytes per archive.
	ArchiveMaxTotalSize = int64(4 << 30) // 4 GiB per archive
	// ArchiveMaxLongLinkSize caps the payload of a long-name marker entry.
	ArchiveMaxLongLinkSize = int64(64 << 10)

	// ArchiveExt is the extension of every archive handled by the store.
	ArchiveExt = ".tar.gz"
	// BundleSuffix marks a multi-package bundle in the import directory.
	BundleSuffix = "-full" + ArchiveExt
	// BundleCookbooksDir is the bundle subtree holding one directory per package.
	BundleCookbooksDir = "cookbooks"
	// ArchiveTempPrefix and ArchiveTempSuffix frame archives being written.
	ArchiveTempPrefix = ".archive-"
	ArchiveTempSuffix = ".tmp"
	// ScratchDirPrefix prefixes the temporary unpack directories of an import.
	// The leading dot keeps it apart from every valid package name.
	ScratchDirPrefix = ".unpack_"

	// SourceKindURI tags catalog entries whose location is a plain download URI.
	SourceKindURI = "uri"

	// MetadataRB is the Chef DSL metadata file name.
	MetadataRB = "metadata.rb"
	// MetadataJSON is the compiled metadata file name.
	MetadataJSON = "metadata.json"

	// StoreLock is the lock file name created in the store root.
	StoreLock = ".binrepo.lock"
	// StoreJournal is the import journal database file name.
	StoreJournal = ".binrepo-journal.db"
	// StoreBucketImports is the journal bucket holding import records.
	StoreBucketImports = "imports"
	// StoreJournalOpenTimeout bounds waiting for the journal file lock.
	StoreJournalOpenTimeout = 2 * time.Second
)

package archive

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/greeddj/binrepo-store/internal/binrepo/helpers"
	"github.com/klauspost/pgzip"
)

// LongLinkName is the entry name of a GNU long-name marker. Its payload is the
// real path of the entry that follows it.
const LongLinkName = "././@LongLink"

// ExtractionError reports a failed extraction of an archive.
type ExtractionError struct {
	Archive string
	Err     error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %s: %v", e.Archive, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ExtractTarGz extracts a tar.gz archive into dstDir, creating dstDir as needed.
// Extraction is not transactional: a failure leaves dstDir partially populated.
func ExtractTarGz(tarGzFile, dstDir string) error {
	if err := extractTarGz(tarGzFile, dstDir); err != nil {
		return &ExtractionError{Archive: tarGzFile, Err: err}
	}
	return nil
}

func extractTarGz(tarGzFile, dstDir string) error {
	info, err := os.Stat(tarGzFile)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", tarGzFile, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s", helpers.ErrFileIsEmpty, tarGzFile)
	}

	//nolint:gosec // tarGzFile is a store-owned archive path.
	file, err := os.Open(tarGzFile)
	if err != nil {
		return fmt.Errorf("failed to open tar.gz file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	uncompressedStream, err := pgzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() {
		_ = uncompressedStream.Close()
	}()

	if err := os.MkdirAll(dstDir, helpers.DirMod); err != nil {
		return fmt.Errorf("failed to create destination %s: %w", dstDir, err)
	}

	x := &extractor{tarReader: tar.NewReader(uncompressedStream), dstDir: dstDir}
	return x.run()
}

// extractor walks tar entries and carries the long-name state between them.
type extractor struct {
	tarReader *tar.Reader
	dstDir    string
	longName  string
	extracted int64
}

func (x *extractor) run() error {
	for {
		header, err := x.tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading tar archive: %w", err)
		}
		if header.Name == LongLinkName {
			name, err := x.readLongLink(header)
			if err != nil {
				return err
			}
			x.longName = name
			continue
		}

		name := header.Name
		if x.longName != "" {
			name = x.longName
		}
		err = x.handleTarEntry(header, name)
		x.longName = ""
		if err != nil {
			return err
		}
	}
}

// readLongLink returns the path carried by a long-name marker entry.
func (x *extractor) readLongLink(header *tar.Header) (string, error) {
	if header.Size > helpers.ArchiveMaxLongLinkSize {
		return "", fmt.Errorf("%w %s: %d bytes", helpers.ErrArchiveEntryIsTooLarge, header.Name, header.Size)
	}
	payload, err := io.ReadAll(io.LimitReader(x.tarReader, helpers.ArchiveMaxLongLinkSize))
	if err != nil {
		return "", fmt.Errorf("failed to read long link entry: %w", err)
	}
	name := strings.TrimRight(string(payload), " \t\r\n\x00")
	if name == "" {
		return "", helpers.ErrLongLinkIsEmpty
	}
	return name, nil
}

func (x *extractor) handleTarEntry(header *tar.Header, name string) error {
	relPath, err := sanitizeArchivePath(name)
	if err != nil {
		return err
	}
	if relPath == "" {
		return nil
	}
	targetPath := filepath.Join(x.dstDir, relPath)
	if err := ensureNoSymlinkParents(x.dstDir, filepath.Dir(relPath)); err != nil {
		return err
	}

	switch header.Typeflag {
	case tar.TypeDir:
		return extractDir(header, targetPath)
	case tar.TypeReg:
		return x.extractRegularFile(header, targetPath)
	case tar.TypeSymlink:
		return extractSymlink(header, targetPath)
	default:
		return nil
	}
}

func extractDir(header *tar.Header, targetPath string) error {
	if err := removeUnless(targetPath, os.FileMode.IsDir); err != nil {
		return err
	}
	mode := entryMode(header)
	if mode.Perm() == 0 {
		mode |= helpers.DirMod
	}
	if err := os.MkdirAll(targetPath, mode.Perm()); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", targetPath, err)
	}
	if mode&specialBits != 0 {
		if err := os.Chmod(targetPath, mode); err != nil {
			return fmt.Errorf("failed to chmod %s: %w", targetPath, err)
		}
	}
	return nil
}

const specialBits = os.ModeSetuid | os.ModeSetgid | os.ModeSticky

// entryMode returns the permission bits of an entry, setuid, setgid and
// sticky included.
func entryMode(header *tar.Header) os.FileMode {
	return header.FileInfo().Mode() & (os.ModePerm | specialBits)
}

func (x *extractor) extractRegularFile(header *tar.Header, targetPath string) error {
	if header.Size < 0 {
		return fmt.Errorf("%w: %s ", helpers.ErrArchiveEntryHasNegativeSize, header.Name)
	}
	if header.Size > helpers.ArchiveMaxEntrySize {
		return fmt.Errorf("%w %s: %d bytes", helpers.ErrArchiveEntryIsTooLarge, header.Name, header.Size)
	}
	if x.extracted+header.Size > helpers.ArchiveMaxTotalSize {
		return fmt.Errorf("%w: %d bytes", helpers.ErrArchiveExceedsMaxSize, helpers.ArchiveMaxTotalSize)
	}
	if err := removeUnless(targetPath, os.FileMode.IsRegular); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), helpers.DirMod); err != nil {
		return fmt.Errorf("failed to create directories for %s: %w", targetPath, err)
	}
	//nolint:gosec // targetPath is sanitized archive entry under dstDir.
	file, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, helpers.FileMod)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", targetPath, err)
	}
	written, err := io.CopyN(file, x.tarReader, header.Size)
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write file %s: %w", targetPath, err)
	}
	x.extracted += written
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", targetPath, err)
	}
	if err := os.Chmod(targetPath, entryMode(header)); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", targetPath, err)
	}
	return nil
}

// extractSymlink links targetPath to the recorded target as-is. An existing
// path at targetPath is reported, not replaced.
func extractSymlink(header *tar.Header, targetPath string) error {
	if header.Linkname == "" {
		return fmt.Errorf("%w for %s", helpers.ErrSymlinkTargetIsEmpty, header.Name)
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), helpers.DirMod); err != nil {
		return fmt.Errorf("failed to create directories for %s: %w", targetPath, err)
	}
	if err := os.Symlink(header.Linkname, targetPath); err != nil {
		return fmt.Errorf("failed to create symlink %s -> %s: %w", targetPath, header.Linkname, err)
	}
	return nil
}

// removeUnless removes whatever exists at path unless its mode satisfies keep.
func removeUnless(path string, keep func(os.FileMode) bool) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat path %s: %w", path, err)
	}
	if keep(info.Mode()) {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// FileHashSHA256 calculates the SHA256 hash of a file on disk.
func FileHashSHA256(path string) (string, error) {
	//nolint:gosec // path is caller-provided and expected for hashing.
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// sanitizeArchivePath validates and normalizes a tar entry path.
func sanitizeArchivePath(name string) (string, error) {
	if name == "" {
		return "", helpers.ErrArchiveEntryHasEmptyName
	}
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if cleaned == "." {
		return "", nil
	}
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: %s", helpers.ErrArchiveEntryIsAbsolutePath, name)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", helpers.ErrArchiveEntryEscapesDestination, name)
	}
	return cleaned, nil
}

// ensureNoSymlinkParents rejects paths that traverse symlink parents.
func ensureNoSymlinkParents(baseDir, relPath string) error {
	if relPath == "" || relPath == "." {
		return nil
	}
	current := baseDir
	for part := range strings.SplitSeq(relPath, string(os.PathSeparator)) {
		if part == "" || part == "." {
			continue
		}
		current = filepath.Join(current, part)
		info, err := os.Lstat(current)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to stat path %s: %w", current, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s", helpers.ErrArchivePathContainsSymlinkComponent, current)
		}
	}
	return nil
}

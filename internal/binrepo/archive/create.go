package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/greeddj/binrepo-store/internal/binrepo/helpers"
	"github.com/klauspost/pgzip"
)

// CreateTarGz writes a gzip-compressed tar of srcDir to dstFile. Entry names
// are rooted at prefix, so CreateTarGz(dir, "demo", out) yields "demo/...".
// Long names are stored with GNU long-link entries. dstFile is replaced
// atomically.
func CreateTarGz(srcDir, prefix, dstFile string) error {
	if !helpers.IsDir(srcDir) {
		return fmt.Errorf("%w: %s", helpers.ErrNotADirectory, srcDir)
	}
	dstDir := filepath.Dir(dstFile)
	if err := os.MkdirAll(dstDir, helpers.DirMod); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dstDir, err)
	}
	tmpFile, err := os.CreateTemp(dstDir, helpers.ArchiveTempPrefix+"*"+helpers.ArchiveTempSuffix)
	if err != nil {
		return fmt.Errorf("failed to create temp archive: %w", err)
	}
	tmpPath := tmpFile.Name()
	if err := writeTarGz(tmpFile, srcDir, prefix); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, helpers.FileMod); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dstFile); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move archive into %s: %w", dstFile, err)
	}
	return nil
}

func writeTarGz(w io.Writer, srcDir, prefix string) error {
	compressed := pgzip.NewWriter(w)
	tarWriter := tar.NewWriter(compressed)

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(filepath.Join(prefix, rel))
		if name == "." || name == "" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return writeTarEntry(tarWriter, path, name, info)
	})
	if walkErr != nil {
		_ = tarWriter.Close()
		_ = compressed.Close()
		return fmt.Errorf("failed to archive %s: %w", srcDir, walkErr)
	}
	if err := tarWriter.Close(); err != nil {
		_ = compressed.Close()
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := compressed.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return nil
}

func writeTarEntry(tarWriter *tar.Writer, path, name string, info fs.FileInfo) error {
	mode := info.Mode()
	if !mode.IsDir() && !mode.IsRegular() && mode&os.ModeSymlink == 0 {
		return nil
	}
	link := ""
	if mode&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		link = target
	}
	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	header.Name = name
	if mode.IsDir() {
		header.Name += "/"
	}
	header.Format = tar.FormatGNU
	header.ModTime = info.ModTime().Truncate(time.Second)
	header.AccessTime = time.Time{}
	header.ChangeTime = time.Time{}
	header.Uid, header.Gid = 0, 0
	header.Uname, header.Gname = "", ""

	if err := tarWriter.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	if !mode.IsRegular() {
		return nil
	}
	//nolint:gosec // path comes from walking srcDir.
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()
	if _, err := io.Copy(tarWriter, file); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

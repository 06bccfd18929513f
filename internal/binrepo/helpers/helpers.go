package helpers

import (
	"errors"
	"os"
	"regexp"
)

var (
	packageNameRe = regexp.MustCompile(`^[0-9A-Za-z_-]+$`)
	versionRe     = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
)

// IsValidPackageName reports whether name is usable as a package directory name.
func IsValidPackageName(name string) bool {
	return packageNameRe.MatchString(name)
}

// IsValidVersion reports whether version is a plain major.minor.patch triple.
func IsValidVersion(version string) bool {
	return versionRe.MatchString(version)
}

// PackageFileName returns the single-package archive name for name and version.
func PackageFileName(name, version string) string {
	return name + "_" + version + ArchiveExt
}

// Exists reports whether path exists without following a final symlink.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

package bundle

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/greeddj/binrepo-store/internal/binrepo/helpers"
)

var bundleNameRe = regexp.MustCompile(`^(.*)_(\d+\.\d+\.\d+)-full\.tar\.gz$`)

// NamingConventionError reports a bundle file name that does not follow
// <name>_<major>.<minor>.<patch>-full.tar.gz.
type NamingConventionError struct {
	File string
	Err  error
}

func (e *NamingConventionError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *NamingConventionError) Unwrap() error {
	return e.Err
}

// ParseBundleName extracts the package name and version from a bundle file name.
func ParseBundleName(file string) (string, string, error) {
	base := filepath.Base(file)
	m := bundleNameRe.FindStringSubmatch(base)
	if m == nil {
		return "", "", &NamingConventionError{File: base, Err: helpers.ErrInvalidBundleVersion}
	}
	name, version := m[1], m[2]
	if !helpers.IsValidVersion(version) {
		return "", "", &NamingConventionError{File: base, Err: fmt.Errorf("%w: %q", helpers.ErrInvalidBundleVersion, version)}
	}
	if !helpers.IsValidPackageName(name) {
		return "", "", &NamingConventionError{File: base, Err: fmt.Errorf("%w: %q", helpers.ErrInvalidBundleName, name)}
	}
	return name, version, nil
}

// Package dist holds the shared primitives of distribution assembly:
// the error taxonomy surfaced to build frontends and the project name
// forms used in archive filenames and package directories.
package dist

import (
	"regexp"
	"strings"
)

var separators = regexp.MustCompile(`[-_.]+`)

// NormalizeName returns the canonical distribution name form embedded
// in archive filenames: lowercased, with runs of '-', '_' and '.'
// collapsed to a single underscore.
func NormalizeName(name string) string {
	return separators.ReplaceAllString(strings.ToLower(name), "_")
}

// PackageName returns the importable-package form of a project name:
// hyphens and dots become underscores, case is preserved.
func PackageName(name string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(name)
}

// Package metadata renders the core-metadata document shared by the
// wheel (METADATA) and the sdist (PKG-INFO).
package metadata

import (
	"strings"
)

// Version is the core-metadata format version emitted.
const Version = "2.4"

// Info is the resolved subset of project metadata the document carries.
type Info struct {
	Name         string
	Version      string
	Dependencies []string
	LicenseFiles []string // project-relative, slash-separated
}

// Render produces the key-value core-metadata document. License-File
// entries reference the same source-relative paths in both archives
// (wheel: under the dist-info licenses directory, sdist: at the
// archive root).
func Render(info Info) string {
	var b strings.Builder
	b.WriteString("Metadata-Version: " + Version + "\n")
	b.WriteString("Name: " + info.Name + "\n")
	b.WriteString("Version: " + info.Version + "\n")
	for _, dep := range info.Dependencies {
		b.WriteString("Requires-Dist: " + dep + "\n")
	}
	for _, lf := range info.LicenseFiles {
		b.WriteString("License-File: " + lf + "\n")
	}
	return b.String()
}

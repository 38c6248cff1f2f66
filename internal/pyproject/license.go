package pyproject

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/kilnpy/kiln/dist"
)

// ResolveLicenseFiles expands the [project] license-files globs
// against the project root and returns the matched files as sorted,
// slash-separated paths relative to the root, deduplicated.
//
// A pattern that matches nothing is a warning unless
// [tool.kiln] strict-license-files is set, in which case it is fatal.
// Explicit package paths are always fatal on a miss; the asymmetry is
// a deliberate policy, with strictness as the configurable escape.
func (d *Document) ResolveLicenseFiles(root string) ([]string, error) {
	patterns := d.Project.LicenseFiles
	if len(patterns) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		if strings.Contains(pattern, "..") || filepath.IsAbs(pattern) {
			return nil, &dist.ConfigError{
				Field:  "project.license-files",
				Reason: "patterns must be relative and must not contain '..': " + pattern,
			}
		}
		matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, &dist.ConfigError{
				Field:  "project.license-files",
				Reason: "bad glob pattern: " + pattern,
				Err:    err,
			}
		}
		matched := false
		for _, m := range matches {
			fi, err := os.Stat(m)
			if err != nil || !fi.Mode().IsRegular() {
				continue
			}
			relPath, err := filepath.Rel(root, m)
			if err != nil {
				continue
			}
			rel := filepath.ToSlash(relPath)
			matched = true
			if !seen[rel] {
				seen[rel] = true
				files = append(files, rel)
			}
		}
		if !matched {
			if d.Tool.Kiln.StrictLicenseFiles {
				return nil, &dist.ConfigError{
					Field:  "project.license-files",
					Reason: "pattern matched no files: " + pattern,
				}
			}
			log.Warnf("license-files pattern %q matched no files", pattern)
		}
	}
	sort.Strings(files)
	return files, nil
}

package pyproject

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/kilnpy/kiln/dist"
)

// versionAssign matches a top-level assignment of a quoted string
// literal to __version__. Anything more elaborate (expressions,
// concatenation, f-strings) is deliberately out of scope.
var versionAssign = regexp.MustCompile(`^__version__\s*(?::\s*[\w\[\]. ]+\s*)?=\s*(?:"([^"]*)"|'([^']*)')\s*(?:#.*)?$`)

// ExtractVersion scans a source file for exactly one top-level
// `__version__ = "literal"` assignment and returns the literal.
func ExtractVersion(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &dist.ConfigError{Field: "tool.kiln.version-file", Reason: "cannot read " + path, Err: err}
	}
	defer f.Close()

	var found []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := versionAssign.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		literal := m[1]
		if literal == "" {
			literal = m[2]
		}
		found = append(found, literal)
	}
	if err := scanner.Err(); err != nil {
		return "", &dist.ConfigError{Field: "tool.kiln.version-file", Reason: "cannot read " + path, Err: err}
	}

	switch len(found) {
	case 1:
		if found[0] == "" {
			return "", &dist.FormatError{Reason: "empty __version__ literal in " + path}
		}
		return found[0], nil
	case 0:
		return "", &dist.ConfigError{
			Field:  "tool.kiln.version-file",
			Reason: "no top-level __version__ assignment in " + path,
		}
	default:
		return "", &dist.ConfigError{
			Field:  "tool.kiln.version-file",
			Reason: "multiple __version__ assignments in " + path,
		}
	}
}

// ResolveVersion resolves the project version exactly once per
// operation: a static [project] version wins, otherwise the configured
// version-file is scanned. The result is always non-empty.
func (d *Document) ResolveVersion(root string) (string, error) {
	if v := d.Project.Version; v != "" {
		return v, nil
	}

	dynamic := slices.Contains(d.Project.Dynamic, "version")
	versionFile := d.Tool.Kiln.VersionFile
	if versionFile == "" {
		if dynamic {
			return "", &dist.ConfigError{
				Field:  "project.version",
				Reason: `dynamic = ["version"] requires [tool.kiln] version-file`,
			}
		}
		return "", &dist.ConfigError{Field: "project.version", Reason: "missing"}
	}

	resolved, err := insideRoot(root, versionFile)
	if err != nil {
		return "", &dist.ConfigError{
			Field:  "tool.kiln.version-file",
			Reason: "must be inside the project root: " + versionFile,
		}
	}
	return ExtractVersion(resolved)
}

// insideRoot resolves rel against root and rejects paths escaping it.
func insideRoot(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(absRoot, filepath.FromSlash(rel))
	r, err := filepath.Rel(absRoot, abs)
	if err != nil {
		return "", err
	}
	if r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", &dist.ConfigError{Reason: "path escapes project root: " + rel}
	}
	return abs, nil
}

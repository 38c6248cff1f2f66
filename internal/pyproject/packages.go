package pyproject

import (
	"os"
	"path/filepath"

	"github.com/kilnpy/kiln/dist"
)

// Package is one top-level importable package included in the wheel.
type Package struct {
	Name string // importable name, last path element
	Dir  string // absolute directory
}

// ResolvePackages validates the [tool.kiln.wheel] packages list, or
// defaults to src/<package-name>. Every entry must be an existing
// directory strictly inside the project root containing __init__.py;
// any violation fails before the external tool is invoked.
func (d *Document) ResolvePackages(root string) ([]Package, error) {
	entries := d.Tool.Kiln.Wheel.Packages
	if len(entries) == 0 {
		entries = []string{"src/" + dist.PackageName(d.Project.Name)}
	}

	pkgs := make([]Package, 0, len(entries))
	for _, entry := range entries {
		abs, err := insideRoot(root, entry)
		if err != nil {
			return nil, &dist.ConfigError{
				Field:  "tool.kiln.wheel.packages",
				Reason: "package must be inside the project root: " + entry,
			}
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			return nil, &dist.ConfigError{
				Field:  "tool.kiln.wheel.packages",
				Reason: "package directory does not exist: " + entry,
			}
		}
		if _, err := os.Stat(filepath.Join(abs, "__init__.py")); err != nil {
			return nil, &dist.ConfigError{
				Field:  "tool.kiln.wheel.packages",
				Reason: "package has no __init__.py: " + entry,
			}
		}
		pkgs = append(pkgs, Package{Name: filepath.Base(abs), Dir: abs})
	}
	return pkgs, nil
}

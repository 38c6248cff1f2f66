// Package pyproject resolves a project's pyproject.toml into the fully
// validated configuration the build pipelines consume: metadata with a
// resolved version, wheel package directories, sdist filters and
// license files.
package pyproject

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/kilnpy/kiln/dist"
)

// FileName is the project descriptor consumed from the project root.
const FileName = "pyproject.toml"

// Project is the [project] table of the descriptor.
type Project struct {
	Name         string     `toml:"name"`
	Version      string     `toml:"version"`
	Dynamic      []string   `toml:"dynamic"`
	Dependencies []string   `toml:"dependencies"`
	LicenseFiles StringList `toml:"license-files"`
}

// Tool is the [tool.kiln] table.
type Tool struct {
	VersionFile        string `toml:"version-file"`
	StrictLicenseFiles bool   `toml:"strict-license-files"`
	Wheel              Wheel  `toml:"wheel"`
	Sdist              Sdist  `toml:"sdist"`
}

// Wheel is the [tool.kiln.wheel] table.
type Wheel struct {
	Packages []string `toml:"packages"`
}

// Sdist is the [tool.kiln.sdist] table.
type Sdist struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// Document is a parsed pyproject.toml.
type Document struct {
	Project Project `toml:"project"`
	Tool    struct {
		Kiln Tool `toml:"kiln"`
	} `toml:"tool"`
}

// StringList accepts either a TOML string or an array of strings.
type StringList []string

// UnmarshalTOML implements toml.Unmarshaler.
func (l *StringList) UnmarshalTOML(v any) error {
	switch val := v.(type) {
	case string:
		*l = StringList{val}
	case []any:
		out := make(StringList, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected string, got %T", item)
			}
			out = append(out, s)
		}
		*l = out
	default:
		return fmt.Errorf("expected string or array of strings, got %T", v)
	}
	return nil
}

// Load reads and parses the descriptor from the project root.
func Load(root string) (*Document, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &dist.ConfigError{Reason: FileName + " not found in " + root, Err: err}
	}

	var doc Document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, &dist.ConfigError{Reason: "malformed " + FileName, Err: err}
	}
	if doc.Project.Name == "" {
		return nil, &dist.ConfigError{Field: "project.name", Reason: "missing"}
	}
	return &doc, nil
}

// Default sdist filter sets. They are always applied before the
// [tool.kiln.sdist] lists are merged in.
var (
	defaultInclude = []string{
		FileName,
		"CMakeLists.txt",
		"conanfile.py",
		"cmake",
		"src",
		"include",
		"README.md",
		"README.rst",
		"LICENSE",
	}
	defaultExclude = []string{
		"__pycache__",
		"*.pyc",
		"*.pyo",
		".git",
		".gitignore",
		"build",
		"dist",
		"*.egg-info",
		".eggs",
	}
)

// SdistFilter returns the merged include and exclude pattern lists,
// defaults first.
func (d *Document) SdistFilter() (include, exclude []string) {
	include = append(append([]string{}, defaultInclude...), d.Tool.Kiln.Sdist.Include...)
	exclude = append(append([]string{}, defaultExclude...), d.Tool.Kiln.Sdist.Exclude...)
	return include, exclude
}

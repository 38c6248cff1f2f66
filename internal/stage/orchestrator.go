package stage

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/kilnpy/kiln/dist"
	"github.com/kilnpy/kiln/internal/env"
	"github.com/kilnpy/kiln/internal/pyproject"
	"github.com/kilnpy/kiln/pkgs/buildtool"
)

// Orchestrator drives one wheel build: external tool lifecycle in a
// build directory, then staging of sources and installed artifacts.
type Orchestrator struct {
	Root  string // project root
	Tool  buildtool.Tool
	Host  buildtool.Context
	Build buildtool.Context
}

// Prefix-root files emitted by the tool's generators rather than the
// recipe's install step.
func isGeneratorFile(rel string) bool {
	if strings.ContainsRune(rel, '/') {
		return false
	}
	return strings.HasPrefix(rel, "conan") ||
		strings.HasPrefix(rel, "deactivate_conan") ||
		strings.HasPrefix(rel, "CMake")
}

// Run produces the staging tree. Pure package sources are staged
// straight from the project tree; the tool's install-prefix output is
// staged so compiled modules land alongside their importable package.
// Any tool failure aborts with no partial staging result.
func (o *Orchestrator) Run(ctx context.Context, buildDir string, pkgs []pyproject.Package) (*Tree, error) {
	if len(pkgs) == 0 {
		return nil, &dist.ConfigError{Field: "tool.kiln.wheel.packages", Reason: "no packages resolved"}
	}

	tree := NewTree()
	for _, pkg := range pkgs {
		if err := tree.AddDir(pkg.Name, pkg.Dir); err != nil {
			return nil, err
		}
	}

	prefix := filepath.Join(buildDir, "prefix")

	o.Tool.Source(o.Root)
	o.Tool.InstallDir(prefix)
	o.Tool.BuildDir(filepath.Join(buildDir, "build"))
	o.Tool.Contexts(o.Host, o.Build)
	if v, ok := env.Lookup(env.PythonVersion); ok {
		o.Tool.Env(env.PythonVersion, v)
	}

	log.Infof("running build tool (profiles: host=%s, build=%s)", o.Host.Profile, o.Build.Profile)
	if err := o.Tool.Configure(ctx); err != nil {
		return nil, err
	}
	if err := o.Tool.Build(ctx); err != nil {
		return nil, err
	}
	if err := o.Tool.Install(ctx); err != nil {
		return nil, err
	}

	if err := o.stagePrefix(tree, o.Tool.OutputDir(), pkgs); err != nil {
		return nil, err
	}
	return tree, nil
}

// stagePrefix maps prefix-relative artifact paths into the tree.
// Paths already rooted at a declared package keep their layout; stray
// artifacts go under the first declared package.
func (o *Orchestrator) stagePrefix(tree *Tree, prefix string, pkgs []pyproject.Package) error {
	if _, err := os.Stat(prefix); os.IsNotExist(err) {
		// Nothing installed: a pure build.
		return nil
	}

	known := make(map[string]bool, len(pkgs))
	for _, pkg := range pkgs {
		known[pkg.Name] = true
	}

	return filepath.WalkDir(prefix, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &dist.FSError{Op: "walk", Path: p, Err: err}
		}
		if d.IsDir() {
			return nil
		}
		relOS, err := filepath.Rel(prefix, p)
		if err != nil {
			return &dist.FSError{Op: "walk", Path: p, Err: err}
		}
		rel := filepath.ToSlash(relOS)
		if isGeneratorFile(rel) {
			return nil
		}
		target := rel
		if first, _, _ := strings.Cut(rel, "/"); !known[first] {
			target = path.Join(pkgs[0].Name, rel)
		}
		if tree.Has(target) {
			// A compiled artifact replaces nothing: colliding with a
			// staged source file is an invariant violation.
			return &dist.FormatError{Reason: "artifact collides with staged file: " + target}
		}
		return tree.Add(target, p)
	})
}

// Package backend exposes the hook operations a build-frontend calls:
// report build requirements, produce a metadata directory, produce a
// wheel, produce an sdist. Each operation is a single synchronous pass
// producing exactly one artifact.
package backend

import (
	"context"
	"fmt"

	"github.com/qiniu/x/log"

	"github.com/kilnpy/kiln/dist"
	"github.com/kilnpy/kiln/internal/metadata"
	"github.com/kilnpy/kiln/internal/pyproject"
	"github.com/kilnpy/kiln/internal/sdist"
	"github.com/kilnpy/kiln/internal/stage"
	"github.com/kilnpy/kiln/internal/wheel"
	"github.com/kilnpy/kiln/pkgs/buildtool"
	"github.com/kilnpy/kiln/pkgs/buildtool/conan"
)

// Version of the engine, embedded in generated WHEEL files.
const Version = "0.1.0"

const generator = "kiln " + Version

// Backend runs hook operations against one project root.
type Backend struct {
	Root string

	// Tool overrides the external build tool; nil means the Conan CLI.
	Tool buildtool.Tool
}

func New(root string) *Backend {
	return &Backend{Root: root}
}

func (b *Backend) tool() buildtool.Tool {
	if b.Tool != nil {
		return b.Tool
	}
	return conan.New(b.Root)
}

// GetRequiresForBuildWheel reports extra requirements for wheel
// builds. The external tool is never consulted.
func (b *Backend) GetRequiresForBuildWheel() []string {
	return nil
}

// GetRequiresForBuildSdist reports extra requirements for sdist
// builds.
func (b *Backend) GetRequiresForBuildSdist() []string {
	return nil
}

// resolved is the per-operation configuration: constructed once,
// discarded at operation end.
type resolved struct {
	doc      *pyproject.Document
	name     string // normalized
	version  string
	licenses []string
	metadata string
}

func (b *Backend) resolve() (*resolved, error) {
	doc, err := pyproject.Load(b.Root)
	if err != nil {
		return nil, err
	}
	version, err := doc.ResolveVersion(b.Root)
	if err != nil {
		return nil, err
	}
	licenses, err := doc.ResolveLicenseFiles(b.Root)
	if err != nil {
		return nil, err
	}
	return &resolved{
		doc:      doc,
		name:     dist.NormalizeName(doc.Project.Name),
		version:  version,
		licenses: licenses,
		metadata: metadata.Render(metadata.Info{
			Name:         doc.Project.Name,
			Version:      version,
			Dependencies: doc.Project.Dependencies,
			LicenseFiles: licenses,
		}),
	}, nil
}

func (r *resolved) assembler(root string) *wheel.Assembler {
	return &wheel.Assembler{
		Name:      r.name,
		Version:   r.version,
		Root:      root,
		Metadata:  r.metadata,
		Licenses:  r.licenses,
		Generator: generator,
	}
}

// PrepareMetadata writes just the metadata directory into outputDir
// and returns its name. The build orchestrator never runs; settings
// are accepted for hook-signature parity.
func (b *Backend) PrepareMetadata(outputDir string, s Settings) (string, error) {
	r, err := b.resolve()
	if err != nil {
		return "", fmt.Errorf("prepare metadata: %w", err)
	}
	name, err := r.assembler(b.Root).WriteMetadataDir(outputDir)
	if err != nil {
		return "", fmt.Errorf("prepare metadata: %w", err)
	}
	return name, nil
}

// BuildWheel runs the full wheel pipeline and returns the archive
// filename written into outputDir.
func (b *Backend) BuildWheel(ctx context.Context, outputDir string, s Settings) (string, error) {
	r, err := b.resolve()
	if err != nil {
		return "", fmt.Errorf("build wheel: %w", err)
	}
	pkgs, err := r.doc.ResolvePackages(b.Root)
	if err != nil {
		return "", fmt.Errorf("build wheel: %w", err)
	}

	log.Infof("building wheel for %s %s", r.name, r.version)

	tool := b.tool()
	var name string
	err = stage.WithBuildDir(s.BuildDir, func(buildDir string) error {
		o := &stage.Orchestrator{
			Root:  b.Root,
			Tool:  tool,
			Host:  buildtool.Context{Profile: s.HostProfile},
			Build: buildtool.Context{Profile: s.BuildProfile},
		}
		tree, err := o.Run(ctx, buildDir, pkgs)
		if err != nil {
			return err
		}

		settings, err := tool.HostSettings(ctx)
		if err != nil {
			log.Warnf("cannot query host profile settings, using running platform: %v", err)
			settings = nil
		}
		name, err = r.assembler(b.Root).Write(tree, settings, outputDir)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("build wheel: %w", err)
	}
	return name, nil
}

// BuildSdist runs the sdist pipeline and returns the archive filename
// written into outputDir. Settings are accepted for hook-signature
// parity; none of the recognized keys affect sdists.
func (b *Backend) BuildSdist(outputDir string, s Settings) (string, error) {
	r, err := b.resolve()
	if err != nil {
		return "", fmt.Errorf("build sdist: %w", err)
	}

	log.Infof("building sdist for %s %s", r.name, r.version)

	include, exclude := r.doc.SdistFilter()
	a := &sdist.Assembler{
		Root:     b.Root,
		Name:     r.name,
		Version:  r.version,
		Include:  include,
		Exclude:  exclude,
		Licenses: r.licenses,
		PKGInfo:  r.metadata,
	}
	name, err := a.Write(outputDir)
	if err != nil {
		return "", fmt.Errorf("build sdist: %w", err)
	}
	return name, nil
}

package stage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kilnpy/kiln/dist"
	"github.com/kilnpy/kiln/pkgs/buildtool"
)

// mockTool implements buildtool.Tool for testing. Build writes the
// configured artifacts into the install prefix.
type mockTool struct {
	source     string
	installDir string
	buildDir   string
	host       buildtool.Context
	build      buildtool.Context
	env        map[string]string

	artifacts map[string]string // prefix-relative path -> content
	settings  map[string]string
	failStep  string
	failText  string

	steps []string
}

func newMockTool(artifacts map[string]string) *mockTool {
	return &mockTool{
		artifacts: artifacts,
		settings:  map[string]string{"os": "Linux", "arch": "x86_64"},
		env:       map[string]string{},
	}
}

func (m *mockTool) Source(dir string)     { m.source = dir }
func (m *mockTool) InstallDir(dir string) { m.installDir = dir }
func (m *mockTool) BuildDir(dir string)   { m.buildDir = dir }

func (m *mockTool) Contexts(host, build buildtool.Context) {
	m.host, m.build = host, build
}

func (m *mockTool) Env(key, val string) { m.env[key] = val }

func (m *mockTool) OutputDir() string { return m.installDir }

func (m *mockTool) step(ctx context.Context, name string) error {
	m.steps = append(m.steps, name)
	if m.failStep == name {
		return &dist.ToolError{Step: name, Output: m.failText, Err: context.Canceled}
	}
	return nil
}

func (m *mockTool) Configure(ctx context.Context) error { return m.step(ctx, "configure") }

func (m *mockTool) Build(ctx context.Context) error {
	if err := m.step(ctx, "build"); err != nil {
		return err
	}
	for rel, content := range m.artifacts {
		p := filepath.Join(m.installDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockTool) Install(ctx context.Context) error { return m.step(ctx, "install") }

func (m *mockTool) HostSettings(ctx context.Context) (map[string]string, error) {
	return m.settings, nil
}

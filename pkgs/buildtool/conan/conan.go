// Package conan drives the Conan CLI, the engine's external build
// tool. Dependency resolution, profile templating and compiler
// invocation all happen on Conan's side of the fence; this package
// only issues commands and maps failures.
package conan

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/kilnpy/kiln/dist"
	"github.com/kilnpy/kiln/pkgs/buildtool"
)

// Conan wraps the conan CLI with the buildtool lifecycle.
type Conan struct {
	sourceDir  string
	installDir string
	buildDir   string
	host       buildtool.Context
	build      buildtool.Context
	env        map[string]string
	detected   bool

	// Stdout receives the tool's live output in addition to the
	// diagnostic capture. Defaults to discard.
	Stdout io.Writer
}

var _ buildtool.Tool = (*Conan)(nil)

// New creates a Conan helper rooted at sourceDir (the directory
// holding conanfile.py).
func New(sourceDir string) *Conan {
	return &Conan{
		sourceDir: sourceDir,
		host:      buildtool.Context{Profile: "default"},
		build:     buildtool.Context{Profile: "default"},
		env:       map[string]string{},
		Stdout:    io.Discard,
	}
}

func (c *Conan) Source(dir string)     { c.sourceDir = dir }
func (c *Conan) InstallDir(dir string) { c.installDir = dir }
func (c *Conan) BuildDir(dir string)   { c.buildDir = dir }

func (c *Conan) Contexts(host, build buildtool.Context) {
	c.host = host
	c.build = build
}

func (c *Conan) Env(key, val string) {
	c.env[key] = val
}

// OutputDir returns the install prefix artifacts land in.
func (c *Conan) OutputDir() string {
	return c.installDir
}

// lifecycleArgs are the arguments shared by install and build: the
// output folder becomes the recipe's package folder so the recipe's
// install step lands in the prefix, the build tree is kept outside the
// prefix, and IDE preset generation is disabled.
func (c *Conan) lifecycleArgs() []string {
	args := []string{
		".",
		"-of", c.installDir,
		"-c", "tools.cmake.cmake_layout:build_folder=" + c.buildDir,
		"-c", "tools.cmake.cmaketoolchain:user_presets=",
		"--build=missing",
		"-pr:h=" + c.host.Profile,
		"-pr:b=" + c.build.Profile,
	}
	return args
}

// Configure detects the default profile when needed and resolves
// dependencies (conan install).
func (c *Conan) Configure(ctx context.Context) error {
	if !c.detected && (c.host.Profile == "default" || c.build.Profile == "default") {
		log.Info("detecting default conan profile")
		if out, err := c.run(ctx, "profile", "detect", "--force"); err != nil {
			return &dist.ToolError{Step: "profile detect", Output: out, Err: err}
		}
		c.detected = true
	}
	if out, err := c.run(ctx, append([]string{"install"}, c.lifecycleArgs()...)...); err != nil {
		return &dist.ToolError{Step: "configure", Output: out, Err: err}
	}
	return nil
}

// Build compiles the project and lets the recipe install it into the
// prefix (conan build runs the recipe's build step end to end).
func (c *Conan) Build(ctx context.Context) error {
	if out, err := c.run(ctx, append([]string{"build"}, c.lifecycleArgs()...)...); err != nil {
		return &dist.ToolError{Step: "build", Output: out, Err: err}
	}
	return nil
}

// Install verifies the prefix was populated. Conan folds the install
// step into the recipe's build, so there is no separate command to
// issue here; a recipe that installed nothing is still an error.
func (c *Conan) Install(ctx context.Context) error {
	entries, err := os.ReadDir(c.installDir)
	if err != nil {
		return &dist.ToolError{Step: "install", Err: err}
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "conan") || strings.HasPrefix(name, "CMake") {
			continue // generator droppings, not artifacts
		}
		return nil
	}
	return &dist.ToolError{Step: "install", Err: dist.ErrNoArchive,
		Output: "recipe installed no files into " + c.installDir}
}

type profileShow struct {
	Host struct {
		Settings map[string]string `json:"settings"`
	} `json:"host"`
}

// HostSettings queries the host profile's resolved settings.
func (c *Conan) HostSettings(ctx context.Context) (map[string]string, error) {
	cmd := exec.CommandContext(ctx, "conan", "profile", "show",
		"-pr:h="+c.host.Profile, "-pr:b="+c.build.Profile, "-f", "json")
	cmd.Dir = c.sourceDir
	cmd.Env = mergeEnv(os.Environ(), c.env)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &dist.ToolError{Step: "profile show", Output: stderr.String(), Err: err}
	}
	var show profileShow
	if err := json.Unmarshal(stdout.Bytes(), &show); err != nil {
		return nil, &dist.ToolError{Step: "profile show", Output: stdout.String(), Err: err}
	}
	return show.Host.Settings, nil
}

// run executes one conan command, capturing combined output for
// diagnostics while streaming it to Stdout.
func (c *Conan) run(ctx context.Context, args ...string) (string, error) {
	log.Debugf("conan %s", strings.Join(args, " "))
	var captured bytes.Buffer
	cmd := exec.CommandContext(ctx, "conan", args...)
	cmd.Dir = c.sourceDir
	cmd.Stdout = io.MultiWriter(&captured, c.Stdout)
	cmd.Stderr = io.MultiWriter(&captured, c.Stdout)
	cmd.Env = mergeEnv(os.Environ(), c.env)
	err := cmd.Run()
	return captured.String(), err
}

// mergeEnv overlays override onto base, producing a sorted env slice.
func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// Package buildtool defines the capability interface for the external
// tool that resolves native dependencies, compiles extension modules
// and installs them into a prefix. Only one implementation exists
// today (Conan); the assemblers never depend on it directly.
package buildtool

import "context"

// Context binds one side of the build to a named profile. The host
// context carries the target compile settings; the build context
// carries settings for tools that must run during the build itself.
// The split exists because cross-compilation and build-time code
// generation need independently specifiable toolchains.
type Context struct {
	Profile string
}

// Tool captures the external build tool's lifecycle.
type Tool interface {
	// Basic paths.
	Source(dir string)
	InstallDir(dir string)
	BuildDir(dir string)

	// Contexts sets the host and build contexts for all later steps.
	Contexts(host, build Context)

	// Env injects one variable into the tool's environment, verbatim.
	Env(key, val string)

	// Lifecycle. Each step blocks until the tool finishes; errors
	// carry the tool's captured diagnostic output.
	Configure(ctx context.Context) error
	Build(ctx context.Context) error
	Install(ctx context.Context) error

	// OutputDir is where installed artifacts land.
	OutputDir() string

	// HostSettings reports the host context's resolved settings
	// (os, arch, compiler, build type) for platform-tag mapping.
	HostSettings(ctx context.Context) (map[string]string, error)
}

package dist

import (
	"errors"
	"fmt"
)

// ErrNoArchive is returned when an operation aborted before producing
// its archive.
var ErrNoArchive = errors.New("no archive produced")

// ConfigError reports a missing or malformed project descriptor field,
// an unresolvable dynamic version, or an invalid package path.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("configuration: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToolError reports a failed invocation of the external build tool.
// Output carries the tool's captured diagnostic text.
type ToolError struct {
	Step   string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("build tool: %s failed: %v\n%s", e.Step, e.Err, e.Output)
	}
	return fmt.Sprintf("build tool: %s failed: %v", e.Step, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// FSError reports an I/O failure while staging files or writing an
// archive.
type FSError struct {
	Op   string
	Path string
	Err  error
}

func (e *FSError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FSError) Unwrap() error {
	return e.Err
}

// FormatError reports a malformed version literal or a violated
// archive-serialization invariant.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "format: " + e.Reason
}

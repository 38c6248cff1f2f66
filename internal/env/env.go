// Package env names the environment variables the engine consumes.
package env

import "os"

const (
	// PythonVersion is forwarded unmodified into the external tool's
	// environment; templated profiles read it to select the target
	// interpreter version. The engine never parses its value.
	PythonVersion = "KILN_PYTHON_VERSION"

	// WheelArch overrides wheel tag detection when set (typically by a
	// profile's buildenv), together with WheelPyVer and WheelABI.
	WheelArch  = "WHEEL_ARCH"
	WheelPyVer = "WHEEL_PYVER"
	WheelABI   = "WHEEL_ABI"
)

// Lookup returns the value of the named variable and whether it is set.
func Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

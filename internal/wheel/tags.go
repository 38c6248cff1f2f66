package wheel

import (
	"runtime"
	"strings"

	"github.com/kilnpy/kiln/internal/env"
)

// Tag is a (interpreter, ABI, platform) compatibility triple.
type Tag struct {
	Interpreter string
	ABI         string
	Platform    string
}

func (t Tag) String() string {
	return t.Interpreter + "-" + t.ABI + "-" + t.Platform
}

// Universal is the tag of a pure-metadata build with no compiled
// artifacts.
var Universal = Tag{Interpreter: "py3", ABI: "none", Platform: "any"}

// ComputeTag derives the distribution tag. Precedence: the WHEEL_ARCH
// environment override (set by a profile's buildenv when
// cross-compiling), then the staged extension modules' filename
// markers combined with the host profile's platform, then Universal
// when no compiled module is present.
func ComputeTag(settings map[string]string, extensions []string) Tag {
	if arch, ok := env.Lookup(env.WheelArch); ok && arch != "" {
		tag := Tag{Interpreter: "py3", ABI: "none", Platform: arch}
		if v, ok := env.Lookup(env.WheelPyVer); ok && v != "" {
			tag.Interpreter = v
		}
		if v, ok := env.Lookup(env.WheelABI); ok && v != "" {
			tag.ABI = v
		}
		return tag
	}

	if len(extensions) == 0 {
		return Universal
	}

	tag := Tag{Interpreter: "py3", ABI: "none", Platform: platformTag(settings)}
	for _, ext := range extensions {
		if interp, abi, ok := extensionMarker(ext); ok {
			tag.Interpreter = interp
			tag.ABI = abi
			break
		}
	}
	return tag
}

// extensionMarker parses the ABI/interpreter marker embedded in a
// compiled module filename, e.g.
//
//	_native.cpython-312-x86_64-linux-gnu.so
//	_native.abi3.so
//	_native.cp312-win_amd64.pyd
func extensionMarker(name string) (interp, abi string, ok bool) {
	base := name
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	parts := strings.Split(base, ".")
	if len(parts) < 3 {
		return "", "", false
	}
	marker := parts[len(parts)-2]

	switch {
	case strings.HasPrefix(marker, "cpython-"):
		fields := strings.SplitN(strings.TrimPrefix(marker, "cpython-"), "-", 2)
		interp = "cp" + fields[0]
		return interp, interp, true
	case marker == "abi3":
		// abi3 modules carry no interpreter version in the filename.
		return "cp3", "abi3", true
	case strings.HasPrefix(marker, "cp"):
		fields := strings.SplitN(marker, "-", 2)
		return fields[0], fields[0], true
	}
	return "", "", false
}

// platformTag maps the host profile's os/arch settings to a wheel
// platform tag, falling back to the running platform when the
// settings are absent.
func platformTag(settings map[string]string) string {
	osName := settings["os"]
	arch := settings["arch"]
	if osName == "" {
		return runtimePlatformTag()
	}

	switch osName {
	case "Linux":
		return "linux_" + linuxArch(arch)
	case "Macos":
		if arch == "armv8" {
			return "macosx_11_0_arm64"
		}
		return "macosx_10_9_" + arch
	case "Windows":
		switch arch {
		case "x86":
			return "win32"
		case "armv8":
			return "win_arm64"
		default:
			return "win_amd64"
		}
	}
	return strings.ToLower(osName) + "_" + arch
}

func linuxArch(arch string) string {
	if arch == "armv8" {
		return "aarch64"
	}
	return arch
}

func runtimePlatformTag() string {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	}
	switch runtime.GOOS {
	case "linux":
		return "linux_" + arch
	case "darwin":
		if arch == "aarch64" {
			return "macosx_11_0_arm64"
		}
		return "macosx_10_9_" + arch
	case "windows":
		if arch == "x86_64" {
			return "win_amd64"
		}
		return "win_arm64"
	}
	return runtime.GOOS + "_" + arch
}

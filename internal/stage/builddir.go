package stage

import (
	"os"

	"github.com/qiniu/x/log"

	"github.com/kilnpy/kiln/dist"
)

// WithBuildDir runs fn with the resolved build directory.
//
// A configured persistent dir is created if absent, reused across
// invocations and never deleted here; the external tool performs its
// own incremental-build detection inside it. An empty dir means an
// ephemeral temporary directory, removed on every exit path.
func WithBuildDir(dir string, fn func(string) error) error {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &dist.FSError{Op: "mkdir", Path: dir, Err: err}
		}
		log.Infof("using persistent build directory %s", dir)
		return fn(dir)
	}

	tmp, err := os.MkdirTemp("", "kiln-build-")
	if err != nil {
		return &dist.FSError{Op: "mkdtemp", Path: os.TempDir(), Err: err}
	}
	defer os.RemoveAll(tmp)
	return fn(tmp)
}

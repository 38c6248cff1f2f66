// Package sdist serializes a filtered project file set plus a legacy
// metadata file into the source distribution archive.
package sdist

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/qiniu/x/log"

	"github.com/kilnpy/kiln/dist"
)

var archiveEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Assembler serializes one sdist.
type Assembler struct {
	Root     string
	Name     string // normalized distribution name
	Version  string
	Include  []string // merged include patterns, defaults first
	Exclude  []string
	Licenses []string // resolved license files, always included
	PKGInfo  string   // legacy metadata document, written at the root
}

type entry struct {
	rel  string // slash-separated, relative to the project root
	src  string
	data []byte
	exec bool
}

// rootDir is the versioned directory every archive entry lives under.
func (a *Assembler) rootDir() string {
	return a.Name + "-" + a.Version
}

// Filename returns the archive filename.
func (a *Assembler) Filename() string {
	return a.rootDir() + ".tar.gz"
}

// excluded applies the exclude pattern classes: a leading '*' matches
// a filename suffix, anything else matches the filename or any path
// segment.
func (a *Assembler) excluded(rel string) bool {
	name := path.Base(rel)
	segments := strings.Split(rel, "/")
	for _, pattern := range a.Exclude {
		if strings.HasPrefix(pattern, "*") {
			if strings.HasSuffix(name, pattern[1:]) {
				return true
			}
			continue
		}
		if name == pattern {
			return true
		}
		for _, seg := range segments {
			if seg == pattern {
				return true
			}
		}
	}
	return false
}

// selectFiles resolves the include patterns (glob or path) against the
// project root, applies excludes and returns deduplicated entries.
func (a *Assembler) selectFiles() ([]entry, error) {
	seen := make(map[string]bool)
	var out []entry

	add := func(abs string) error {
		info, err := os.Stat(abs)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		relOS, err := filepath.Rel(a.Root, abs)
		if err != nil {
			return nil
		}
		rel := filepath.ToSlash(relOS)
		if seen[rel] || a.excluded(rel) {
			return nil
		}
		seen[rel] = true
		out = append(out, entry{rel: rel, src: abs, exec: info.Mode()&0111 != 0})
		return nil
	}

	for _, pattern := range a.Include {
		target := filepath.Join(a.Root, filepath.FromSlash(strings.TrimSpace(pattern)))
		if strings.ContainsAny(pattern, "*?[") {
			matches, err := filepath.Glob(target)
			if err != nil {
				return nil, &dist.ConfigError{Field: "tool.kiln.sdist.include", Reason: "bad glob pattern: " + pattern, Err: err}
			}
			for _, m := range matches {
				if err := add(m); err != nil {
					return nil, err
				}
			}
			continue
		}

		info, err := os.Stat(target)
		if err != nil {
			continue // absent defaults are normal
		}
		if !info.IsDir() {
			if err := add(target); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(target, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return &dist.FSError{Op: "walk", Path: p, Err: err}
			}
			if d.IsDir() {
				return nil
			}
			return add(p)
		})
		if err != nil {
			return nil, err
		}
	}

	// Resolved license files ship regardless of the filter outcome,
	// matching the License-File entries in PKG-INFO.
	for _, lf := range a.Licenses {
		abs := filepath.Join(a.Root, filepath.FromSlash(lf))
		info, err := os.Stat(abs)
		if err != nil || !info.Mode().IsRegular() {
			return nil, &dist.FSError{Op: "stat", Path: lf, Err: err}
		}
		if !seen[lf] {
			seen[lf] = true
			out = append(out, entry{rel: lf, src: abs})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].rel < out[j].rel })
	return out, nil
}

// Write serializes the archive into outDir and returns its filename.
// The archive reaches its target path only on success.
func (a *Assembler) Write(outDir string) (string, error) {
	entries, err := a.selectFiles()
	if err != nil {
		return "", err
	}
	entries = append(entries, entry{rel: "PKG-INFO", data: []byte(a.PKGInfo)})
	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", &dist.FSError{Op: "mkdir", Path: outDir, Err: err}
	}
	tmp, err := os.CreateTemp(outDir, ".kiln-*.tar.gz")
	if err != nil {
		return "", &dist.FSError{Op: "create", Path: outDir, Err: err}
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := a.writeTar(tmp, entries); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", &dist.FSError{Op: "close", Path: tmp.Name(), Err: err}
	}

	name := a.Filename()
	target := filepath.Join(outDir, name)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", &dist.FSError{Op: "rename", Path: target, Err: err}
	}
	log.Infof("built sdist %s", name)
	return name, nil
}

func (a *Assembler) writeTar(w io.Writer, entries []entry) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		data := e.data
		if e.src != "" {
			var err error
			data, err = os.ReadFile(e.src)
			if err != nil {
				return &dist.FSError{Op: "read", Path: e.src, Err: err}
			}
		}
		mode := int64(0644)
		if e.exec {
			mode = 0755
		}
		hdr := &tar.Header{
			Name:     a.rootDir() + "/" + e.rel,
			Mode:     mode,
			Size:     int64(len(data)),
			ModTime:  archiveEpoch,
			Typeflag: tar.TypeReg,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return &dist.FSError{Op: "write", Path: e.rel, Err: err}
		}
		if _, err := tw.Write(data); err != nil {
			return &dist.FSError{Op: "write", Path: e.rel, Err: err}
		}
	}

	if err := tw.Close(); err != nil {
		return &dist.FSError{Op: "write", Path: a.Filename(), Err: err}
	}
	if err := gz.Close(); err != nil {
		return &dist.FSError{Op: "write", Path: a.Filename(), Err: err}
	}
	return nil
}

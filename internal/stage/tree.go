// Package stage produces the staging tree for a wheel build: it runs
// the external build tool inside a scoped build directory and maps the
// project's package sources and the tool's install-prefix output to
// archive-relative paths.
package stage

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/kilnpy/kiln/dist"
)

// Entry is one staged file. Src names an on-disk file unless Data is
// set, in which case the entry carries literal generated content.
type Entry struct {
	Path string // archive-relative, slash-separated
	Src  string
	Data []byte
	Exec bool
}

// Tree maps archive-relative paths to their sources. A path can be
// added once; assemblers only read it.
type Tree struct {
	entries map[string]Entry
}

func NewTree() *Tree {
	return &Tree{entries: make(map[string]Entry)}
}

// Add stages the file at src under the archive-relative path rel.
func (t *Tree) Add(rel, src string) error {
	info, err := os.Stat(src)
	if err != nil {
		return &dist.FSError{Op: "stat", Path: src, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &dist.FSError{Op: "stage", Path: src, Err: fs.ErrInvalid}
	}
	return t.put(Entry{
		Path: path.Clean(rel),
		Src:  src,
		Exec: info.Mode()&0111 != 0,
	})
}

// AddData stages literal content under rel.
func (t *Tree) AddData(rel string, data []byte) error {
	return t.put(Entry{Path: path.Clean(rel), Data: data})
}

// AddDir stages every regular file beneath dir under prefix,
// preserving relative sub-paths.
func (t *Tree) AddDir(prefix, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &dist.FSError{Op: "walk", Path: p, Err: err}
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return &dist.FSError{Op: "walk", Path: p, Err: err}
		}
		return t.Add(path.Join(prefix, filepath.ToSlash(rel)), p)
	})
}

func (t *Tree) put(e Entry) error {
	if e.Path == "" || e.Path == "." || path.IsAbs(e.Path) {
		return &dist.FormatError{Reason: "invalid staging path: " + e.Path}
	}
	if _, dup := t.entries[e.Path]; dup {
		return &dist.FormatError{Reason: "duplicate staging path: " + e.Path}
	}
	t.entries[e.Path] = e
	return nil
}

// Has reports whether rel is staged.
func (t *Tree) Has(rel string) bool {
	_, ok := t.entries[path.Clean(rel)]
	return ok
}

func (t *Tree) Len() int {
	return len(t.entries)
}

// Entries returns the staged entries sorted by path.
func (t *Tree) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

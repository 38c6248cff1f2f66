// Package wheel serializes a staging tree plus resolved metadata into
// the binary distribution archive.
package wheel

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/qiniu/x/log"

	"github.com/kilnpy/kiln/dist"
	"github.com/kilnpy/kiln/internal/stage"
)

// archiveEpoch is the fixed modification time of every archive entry.
// Two builds from identical inputs must produce byte-identical output.
var archiveEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Assembler serializes one wheel.
type Assembler struct {
	Name      string // normalized distribution name
	Version   string
	Root      string // project root, source of license files
	Metadata  string // rendered core-metadata document
	Licenses  []string
	Generator string
}

// DistInfo returns the metadata directory name.
func (a *Assembler) DistInfo() string {
	return a.Name + "-" + a.Version + ".dist-info"
}

// Filename returns the archive filename for tag.
func (a *Assembler) Filename(tag Tag) string {
	return fmt.Sprintf("%s-%s-%s.whl", a.Name, a.Version, tag)
}

// Extensions returns the staged compiled module paths.
func Extensions(tree *stage.Tree) []string {
	var out []string
	for _, e := range tree.Entries() {
		if strings.HasSuffix(e.Path, ".so") || strings.HasSuffix(e.Path, ".pyd") {
			out = append(out, e.Path)
		}
	}
	return out
}

func (a *Assembler) wheelFile(tag Tag, purelib bool) string {
	var b strings.Builder
	b.WriteString("Wheel-Version: 1.0\n")
	b.WriteString("Generator: " + a.Generator + "\n")
	b.WriteString(fmt.Sprintf("Root-Is-Purelib: %t\n", purelib))
	b.WriteString("Tag: " + tag.String() + "\n")
	return b.String()
}

// addDistInfo stages the metadata directory: METADATA, WHEEL and the
// resolved license files under licenses/. RECORD is generated during
// serialization.
func (a *Assembler) addDistInfo(tree *stage.Tree, tag Tag, purelib bool) error {
	info := a.DistInfo()
	if err := tree.AddData(path.Join(info, "METADATA"), []byte(a.Metadata)); err != nil {
		return err
	}
	if err := tree.AddData(path.Join(info, "WHEEL"), []byte(a.wheelFile(tag, purelib))); err != nil {
		return err
	}
	for _, lf := range a.Licenses {
		src := filepath.Join(a.Root, filepath.FromSlash(lf))
		if err := tree.Add(path.Join(info, "licenses", lf), src); err != nil {
			return err
		}
	}
	return nil
}

// Write serializes the staging tree into outDir and returns the
// archive filename. settings are the host profile's resolved settings
// used for the platform tag.
func (a *Assembler) Write(tree *stage.Tree, settings map[string]string, outDir string) (string, error) {
	extensions := Extensions(tree)
	tag := ComputeTag(settings, extensions)
	purelib := len(extensions) == 0

	if err := a.addDistInfo(tree, tag, purelib); err != nil {
		return "", err
	}

	name := a.Filename(tag)
	if err := writeArchive(tree, a.DistInfo(), outDir, name); err != nil {
		return "", err
	}
	log.Infof("built wheel %s", name)
	return name, nil
}

// writeArchive writes the zip container deterministically: entries
// sorted by path, fixed timestamp, 0644/0755 permissions only, RECORD
// last. The archive lands at its target path only on success.
func writeArchive(tree *stage.Tree, distInfo, outDir, name string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return &dist.FSError{Op: "mkdir", Path: outDir, Err: err}
	}
	tmp, err := os.CreateTemp(outDir, ".kiln-*.whl")
	if err != nil {
		return &dist.FSError{Op: "create", Path: outDir, Err: err}
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	zw := zip.NewWriter(tmp)
	var records []string
	for _, e := range tree.Entries() {
		sum, n, err := writeEntry(zw, e)
		if err != nil {
			return err
		}
		records = append(records, recordLine(e.Path, sum, n))
	}

	recordPath := distInfo + "/RECORD"
	records = append(records, recordPath+",,\n")
	record := stage.Entry{Path: recordPath, Data: []byte(strings.Join(records, ""))}
	if _, _, err := writeEntry(zw, record); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return &dist.FSError{Op: "write", Path: tmp.Name(), Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &dist.FSError{Op: "close", Path: tmp.Name(), Err: err}
	}
	target := filepath.Join(outDir, name)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return &dist.FSError{Op: "rename", Path: target, Err: err}
	}
	return nil
}

// writeEntry writes one normalized zip entry and returns its content
// hash and length.
func writeEntry(zw *zip.Writer, e stage.Entry) ([]byte, int64, error) {
	hdr := &zip.FileHeader{
		Name:     e.Path,
		Method:   zip.Deflate,
		Modified: archiveEpoch,
	}
	mode := os.FileMode(0644)
	if e.Exec {
		mode = 0755
	}
	hdr.SetMode(mode)

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return nil, 0, &dist.FSError{Op: "write", Path: e.Path, Err: err}
	}

	h := sha256.New()
	n, err := copyEntry(io.MultiWriter(w, h), e)
	if err != nil {
		return nil, 0, err
	}
	return h.Sum(nil), n, nil
}

func copyEntry(w io.Writer, e stage.Entry) (int64, error) {
	if e.Src == "" {
		n, err := w.Write(e.Data)
		if err != nil {
			return 0, &dist.FSError{Op: "write", Path: e.Path, Err: err}
		}
		return int64(n), nil
	}
	f, err := os.Open(e.Src)
	if err != nil {
		return 0, &dist.FSError{Op: "open", Path: e.Src, Err: err}
	}
	defer f.Close()
	n, err := io.Copy(w, f)
	if err != nil {
		return 0, &dist.FSError{Op: "read", Path: e.Src, Err: err}
	}
	return n, nil
}

// recordLine is one integrity-manifest record: path, urlsafe-base64
// content hash without padding, byte length.
func recordLine(p string, sum []byte, n int64) string {
	return fmt.Sprintf("%s,sha256=%s,%d\n", p, base64.RawURLEncoding.EncodeToString(sum), n)
}

// WriteMetadataDir writes just the metadata directory (METADATA,
// licenses/, RECORD; no WHEEL, whose tags are build products) into
// outDir and returns the directory name.
func (a *Assembler) WriteMetadataDir(outDir string) (string, error) {
	info := a.DistInfo()
	infoDir := filepath.Join(outDir, info)
	if err := os.MkdirAll(infoDir, 0755); err != nil {
		return "", &dist.FSError{Op: "mkdir", Path: infoDir, Err: err}
	}

	written := map[string][]byte{
		path.Join(info, "METADATA"): []byte(a.Metadata),
	}
	for _, lf := range a.Licenses {
		data, err := os.ReadFile(filepath.Join(a.Root, filepath.FromSlash(lf)))
		if err != nil {
			return "", &dist.FSError{Op: "read", Path: lf, Err: err}
		}
		written[path.Join(info, "licenses", lf)] = data
	}

	paths := make([]string, 0, len(written))
	for p := range written {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var records strings.Builder
	for _, p := range paths {
		data := written[p]
		target := filepath.Join(outDir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return "", &dist.FSError{Op: "mkdir", Path: target, Err: err}
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return "", &dist.FSError{Op: "write", Path: target, Err: err}
		}
		sum := sha256.Sum256(data)
		records.WriteString(recordLine(p, sum[:], int64(len(data))))
	}
	records.WriteString(path.Join(info, "RECORD") + ",,\n")
	recordTarget := filepath.Join(infoDir, "RECORD")
	if err := os.WriteFile(recordTarget, []byte(records.String()), 0644); err != nil {
		return "", &dist.FSError{Op: "write", Path: recordTarget, Err: err}
	}
	return info, nil
}

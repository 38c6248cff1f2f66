package sdist

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

var defaultInclude = []string{
	"pyproject.toml", "CMakeLists.txt", "conanfile.py", "cmake",
	"src", "include", "README.md", "README.rst", "LICENSE",
}

var defaultExclude = []string{
	"__pycache__", "*.pyc", "*.pyo", ".git", ".gitignore",
	"build", "dist", "*.egg-info", ".eggs",
}

func fixture(t *testing.T) *Assembler {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pyproject.toml":             "[project]\nname = \"my-package\"\n",
		"conanfile.py":               "from conan import ConanFile\n",
		"CMakeLists.txt":             "project(my_package)\n",
		"README.md":                  "# my-package\n",
		"src/my_package/__init__.py": "__version__ = \"1.0.0\"\n",
		"src/my_package/core.py":     "def f():\n    pass\n",
		"src/native/adder.cpp":       "int add(int a, int b) { return a + b; }\n",
		"src/my_package/cache.pyc":   "junk",
		"src/__pycache__/core.pyc":   "junk",
		"build/out.o":                "junk",
		"notes/todo.txt":             "not included by default",
		"LICENSE":                    "license text",
	})
	return &Assembler{
		Root:     root,
		Name:     "my_package",
		Version:  "1.0.0",
		Include:  defaultInclude,
		Exclude:  defaultExclude,
		Licenses: []string{"LICENSE"},
		PKGInfo:  "Metadata-Version: 2.4\nName: my-package\nVersion: 1.0.0\n",
	}
}

func listArchive(t *testing.T, path string) map[string][]byte {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(gz)
	out := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatal(err)
		}
		out[hdr.Name] = data
	}
	return out
}

func TestWriteSelectsAndFilters(t *testing.T) {
	a := fixture(t)
	outDir := t.TempDir()

	name, err := a.Write(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if name != "my_package-1.0.0.tar.gz" {
		t.Errorf("filename = %q", name)
	}

	files := listArchive(t, filepath.Join(outDir, name))
	for _, want := range []string{
		"my_package-1.0.0/pyproject.toml",
		"my_package-1.0.0/conanfile.py",
		"my_package-1.0.0/CMakeLists.txt",
		"my_package-1.0.0/README.md",
		"my_package-1.0.0/src/my_package/__init__.py",
		"my_package-1.0.0/src/native/adder.cpp",
		"my_package-1.0.0/LICENSE",
		"my_package-1.0.0/PKG-INFO",
	} {
		if _, ok := files[want]; !ok {
			t.Errorf("archive missing %q", want)
		}
	}
	for _, banned := range []string{
		"my_package-1.0.0/src/my_package/cache.pyc",
		"my_package-1.0.0/src/__pycache__/core.pyc",
		"my_package-1.0.0/build/out.o",
		"my_package-1.0.0/notes/todo.txt",
	} {
		if _, ok := files[banned]; ok {
			t.Errorf("archive contains %q", banned)
		}
	}
	if got := string(files["my_package-1.0.0/PKG-INFO"]); got != a.PKGInfo {
		t.Errorf("PKG-INFO = %q, want %q", got, a.PKGInfo)
	}
}

func TestUserExcludeRemovesIncludedFile(t *testing.T) {
	a := fixture(t)
	a.Exclude = append(a.Exclude, "README.md")
	outDir := t.TempDir()

	name, err := a.Write(outDir)
	if err != nil {
		t.Fatal(err)
	}
	files := listArchive(t, filepath.Join(outDir, name))
	if _, ok := files["my_package-1.0.0/README.md"]; ok {
		t.Error("user exclude did not remove README.md")
	}
}

func TestUserIncludeGlob(t *testing.T) {
	a := fixture(t)
	a.Include = append(a.Include, "notes/*.txt")
	outDir := t.TempDir()

	name, err := a.Write(outDir)
	if err != nil {
		t.Fatal(err)
	}
	files := listArchive(t, filepath.Join(outDir, name))
	if _, ok := files["my_package-1.0.0/notes/todo.txt"]; !ok {
		t.Error("user include glob not honored")
	}
}

func TestEntriesSortedAndDeterministic(t *testing.T) {
	build := func(t *testing.T, a *Assembler) []byte {
		outDir := t.TempDir()
		name, err := a.Write(outDir)
		if err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	a := fixture(t)
	first := build(t, a)
	second := build(t, a)
	if !bytes.Equal(first, second) {
		t.Error("two writes from identical inputs differ byte for byte")
	}

	// Entry order inside the archive is sorted by path.
	f, err := os.Open(writeBytes(t, first))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(gz)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, hdr.Name)
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("entries not sorted: %v", names)
	}
	if !strings.HasPrefix(names[0], "my_package-1.0.0/") {
		t.Errorf("entries not rooted at versioned dir: %q", names[0])
	}
}

func writeBytes(t *testing.T, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "archive.tar.gz")
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

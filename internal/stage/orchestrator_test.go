package stage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kilnpy/kiln/dist"
	"github.com/kilnpy/kiln/internal/env"
	"github.com/kilnpy/kiln/internal/pyproject"
	"github.com/kilnpy/kiln/pkgs/buildtool"
)

func fixtureProject(t *testing.T) (root string, pkgs []pyproject.Package) {
	t.Helper()
	root = t.TempDir()
	dir := filepath.Join(root, "src", "my_package")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "__init__.py"), []byte("__version__ = \"1.0\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return root, []pyproject.Package{{Name: "my_package", Dir: dir}}
}

func TestOrchestratorRun(t *testing.T) {
	root, pkgs := fixtureProject(t)
	tool := newMockTool(map[string]string{
		"my_package/_native.cpython-312-x86_64-linux-gnu.so": "\x7fELF",
		"stray.so":      "\x7fELF",
		"conanbuild.sh": "#!/bin/sh\n", // generator dropping, skipped
	})

	o := &Orchestrator{
		Root:  root,
		Tool:  tool,
		Host:  buildtool.Context{Profile: "default"},
		Build: buildtool.Context{Profile: "default"},
	}
	tree, err := o.Run(context.Background(), t.TempDir(), pkgs)
	if err != nil {
		t.Fatal(err)
	}

	wantSteps := []string{"configure", "build", "install"}
	if len(tool.steps) != 3 {
		t.Fatalf("tool steps = %v, want %v", tool.steps, wantSteps)
	}
	for i, s := range wantSteps {
		if tool.steps[i] != s {
			t.Errorf("step[%d] = %q, want %q", i, tool.steps[i], s)
		}
	}

	for _, want := range []string{
		"my_package/__init__.py",
		"my_package/_native.cpython-312-x86_64-linux-gnu.so",
		"my_package/stray.so", // unrooted artifact lands in the first package
	} {
		if !tree.Has(want) {
			t.Errorf("tree missing %q", want)
		}
	}
	if tree.Has("conanbuild.sh") || tree.Has("my_package/conanbuild.sh") {
		t.Error("generator file staged")
	}
}

func TestOrchestratorToolFailureAborts(t *testing.T) {
	root, pkgs := fixtureProject(t)
	tool := newMockTool(nil)
	tool.failStep = "build"
	tool.failText = "undefined reference to `add'"

	o := &Orchestrator{Root: root, Tool: tool}
	tree, err := o.Run(context.Background(), t.TempDir(), pkgs)
	if tree != nil {
		t.Error("tree returned despite tool failure")
	}
	var toolErr *dist.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error = %v, want *dist.ToolError", err)
	}
	if toolErr.Output != tool.failText {
		t.Errorf("diagnostic output = %q, want %q", toolErr.Output, tool.failText)
	}
}

func TestOrchestratorForwardsPythonVersion(t *testing.T) {
	root, pkgs := fixtureProject(t)
	tool := newMockTool(nil)
	t.Setenv(env.PythonVersion, "3.12")

	o := &Orchestrator{Root: root, Tool: tool}
	if _, err := o.Run(context.Background(), t.TempDir(), pkgs); err != nil {
		t.Fatal(err)
	}
	if tool.env[env.PythonVersion] != "3.12" {
		t.Errorf("tool env %s = %q, want \"3.12\"", env.PythonVersion, tool.env[env.PythonVersion])
	}
}

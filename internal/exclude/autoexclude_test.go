package exclude

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectAutoExcludes_Empty(t *testing.T) {
	tmpDir := t.TempDir()

	result := DetectAutoExcludes(tmpDir)

	if len(result.Directories) != 0 {
		t.Errorf("expected 0 directories, got %d: %v", len(result.Directories), result.Directories)
	}
}

func TestDetectAutoExcludes_Venv(t *testing.T) {
	tmpDir := t.TempDir()

	venv := filepath.Join(tmpDir, "myenv")
	if err := os.Mkdir(venv, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(venv, "pyvenv.cfg"), []byte("home = /usr/bin"), 0644); err != nil {
		t.Fatal(err)
	}

	result := DetectAutoExcludes(tmpDir)

	if !contains(result.Directories, "myenv") {
		t.Errorf("expected 'myenv' in directories, got %v", result.Directories)
	}
	if result.Reasons["myenv"] == "" {
		t.Error("expected reason for myenv directory")
	}
}

func TestDetectAutoExcludes_BuildArtifacts(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "pyproject.toml"), []byte("[project]\nname = \"test\""), 0644); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{"build", "dist", "test.egg-info"} {
		if err := os.Mkdir(filepath.Join(tmpDir, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}

	result := DetectAutoExcludes(tmpDir)

	for _, want := range []string{"build", "dist", "test.egg-info"} {
		if !contains(result.Directories, want) {
			t.Errorf("expected %q in directories, got %v", want, result.Directories)
		}
	}
}

func TestDetectAutoExcludes_NoArtifacts(t *testing.T) {
	tmpDir := t.TempDir()

	// Packaging metadata but nothing built yet
	if err := os.WriteFile(filepath.Join(tmpDir, "setup.py"), []byte("from setuptools import setup"), 0644); err != nil {
		t.Fatal(err)
	}

	result := DetectAutoExcludes(tmpDir)

	if len(result.Directories) != 0 {
		t.Errorf("expected 0 directories (nothing built), got %d: %v", len(result.Directories), result.Directories)
	}
}

func TestDetectAutoExcludes_BuildWithoutMetadata(t *testing.T) {
	tmpDir := t.TempDir()

	// A source directory named build, no packaging metadata anywhere
	if err := os.Mkdir(filepath.Join(tmpDir, "build"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "build", "pipeline.py"), []byte("x = 1"), 0644); err != nil {
		t.Fatal(err)
	}

	result := DetectAutoExcludes(tmpDir)

	if contains(result.Directories, "build") {
		t.Errorf("build/ without packaging metadata should not be excluded, got %v", result.Directories)
	}
}

func TestDetectAutoExcludes_NodeModules(t *testing.T) {
	tmpDir := t.TempDir()

	frontend := filepath.Join(tmpDir, "frontend")
	if err := os.MkdirAll(filepath.Join(frontend, "node_modules"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(frontend, "package.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	result := DetectAutoExcludes(tmpDir)

	want := filepath.Join("frontend", "node_modules")
	if !contains(result.Directories, want) {
		t.Errorf("expected %q in directories, got %v", want, result.Directories)
	}
}

func TestDetectAutoExcludes_NestedProject(t *testing.T) {
	tmpDir := t.TempDir()

	nested := filepath.Join(tmpDir, "tools", "generator")
	if err := os.MkdirAll(filepath.Join(nested, "dist"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "pyproject.toml"), []byte("[project]"), 0644); err != nil {
		t.Fatal(err)
	}

	result := DetectAutoExcludes(tmpDir)

	want := filepath.Join("tools", "generator", "dist")
	if !contains(result.Directories, want) {
		t.Errorf("expected %q in directories, got %v", want, result.Directories)
	}
}

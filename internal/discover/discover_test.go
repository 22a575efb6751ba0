package discover

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestWalkClassification(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app/main.py":           "def main():\n    pass\n",
		"app/util.py":           "X = 1\n",
		"test_main.py":          "def test_main():\n    pass\n",
		"app/helpers_test.py":   "def test_helpers():\n    pass\n",
		"tests/test_util.py":    "def test_util():\n    pass\n",
		"conftest.py":           "",
		"settings.yaml":         "debug: true\n",
		"pyproject.toml":        "[tool]\n",
		"README.md":             "docs\n",
		"__pycache__/main.pyc":  "",
		".hidden/secret.py":     "",
		"venv/lib/thing.py":     "",
	})

	set, err := Walk(root, nil)
	if err != nil {
		t.Fatal(err)
	}

	wantProd := []string{"app/main.py", "app/util.py"}
	if len(set.Production) != len(wantProd) {
		t.Fatalf("production = %v, want %v", set.Production, wantProd)
	}
	for i, p := range wantProd {
		if set.Production[i] != p {
			t.Errorf("production[%d] = %s, want %s", i, set.Production[i], p)
		}
	}

	wantTests := map[string]bool{
		"test_main.py": true, "app/helpers_test.py": true,
		"tests/test_util.py": true, "conftest.py": true,
	}
	if len(set.Tests) != len(wantTests) {
		t.Fatalf("tests = %v", set.Tests)
	}
	for _, p := range set.Tests {
		if !wantTests[p] {
			t.Errorf("unexpected test file %s", p)
		}
	}

	if len(set.Configs) != 2 {
		t.Errorf("configs = %v, want settings.yaml and pyproject.toml", set.Configs)
	}
}

func TestWalkUserExcludes(t *testing.T) {
	root := writeTree(t, map[string]string{
		"keep.py":           "X = 1\n",
		"generated/gen.py":  "Y = 2\n",
		"migrations/one.py": "Z = 3\n",
	})

	set, err := Walk(root, []string{"generated/**", "migrations"})
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Production) != 1 || set.Production[0] != "keep.py" {
		t.Errorf("excludes not applied: %v", set.Production)
	}
}

func TestReadInput(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":      "def main():\n    pass\n",
		"test_main.py": "def test_main():\n    pass\n",
		"app.yaml":     "host: a\nhost: b\n",
	})
	set, err := Walk(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	in, err := ReadInput(root, set)
	if err != nil {
		t.Fatal(err)
	}

	if len(in.Files) != 2 {
		t.Fatalf("expected 2 source files, got %d", len(in.Files))
	}
	if in.Files[0].Path != "main.py" || in.Files[0].Test {
		t.Errorf("unexpected production spec: %+v", in.Files[0])
	}
	if in.Files[1].Path != "test_main.py" || !in.Files[1].Test {
		t.Errorf("unexpected test spec: %+v", in.Files[1])
	}
	if len(in.Configs) != 1 || in.Configs[0].Lines[0] != "host: a" {
		t.Errorf("unexpected config spec: %+v", in.Configs)
	}
}

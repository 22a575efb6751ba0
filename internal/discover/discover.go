// Package discover walks a project tree and classifies the files a scan
// will consume: production sources, index-only test sources, and
// configuration files.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/slopdetect/slop/internal/engine"
)

// Set is the classified file listing of one project tree. Paths are
// relative to the walked root, slash-separated.
type Set struct {
	Production []string
	Tests      []string
	Configs    []string
	Skipped    int
}

// dependency directories no project wants scanned, over and above the
// user's exclude patterns
var dependencyDirs = map[string]bool{
	"__pycache__":   true,
	"node_modules":  true,
	"site-packages": true,
	"venv":          true,
	"env":           true,
	"build":         true,
	"dist":          true,
	"vendor":        true,
}

var configExts = map[string]bool{
	".yaml": true,
	".yml":  true,
	".toml": true,
	".ini":  true,
	".cfg":  true,
	".json": true,
}

// Walk collects and classifies the files under root. Hidden entries and
// dependency directories are always excluded; patterns add user
// excludes matched against both base names and relative paths.
func Walk(root string, patterns []string) (*Set, error) {
	set := &Set{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			set.Skipped++
			return nil
		}
		if info.IsDir() {
			if path == root {
				return nil
			}
			if shouldExcludeDir(path, root, patterns) {
				return filepath.SkipDir
			}
			return nil
		}
		if shouldExcludeFile(path, root, patterns) {
			set.Skipped++
			return nil
		}

		rel := relPath(path, root)
		switch {
		case strings.HasSuffix(path, ".py"):
			if isTestPath(rel) {
				set.Tests = append(set.Tests, rel)
			} else {
				set.Production = append(set.Production, rel)
			}
		case configExts[filepath.Ext(path)]:
			set.Configs = append(set.Configs, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(set.Production)
	sort.Strings(set.Tests)
	sort.Strings(set.Configs)
	return set, nil
}

// ReadInput loads the classified files into an engine work order.
func ReadInput(root string, set *Set) (engine.Input, error) {
	var in engine.Input
	load := func(rel string, test bool) error {
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		in.Files = append(in.Files, engine.FileSpec{Path: rel, Content: content, Test: test})
		return nil
	}
	for _, rel := range set.Production {
		if err := load(rel, false); err != nil {
			return in, err
		}
	}
	for _, rel := range set.Tests {
		if err := load(rel, true); err != nil {
			return in, err
		}
	}
	for _, rel := range set.Configs {
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return in, fmt.Errorf("reading %s: %w", rel, err)
		}
		in.Configs = append(in.Configs, engine.ConfigSpec{
			Path:  rel,
			Lines: strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n"),
		})
	}
	return in, nil
}

// isTestPath classifies Python test files: test_*.py, *_test.py, and
// anything under a tests directory.
func isTestPath(rel string) bool {
	base := filepath.Base(rel)
	if strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.py") {
		return true
	}
	if base == "conftest.py" {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == "tests" || part == "test" {
			return true
		}
	}
	return false
}

// shouldExcludeDir checks if a directory should be excluded from scanning
func shouldExcludeDir(path, basePath string, patterns []string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") && base != "." {
		return true
	}
	if dependencyDirs[base] {
		return true
	}

	rel := relPath(path, basePath)
	for _, pattern := range patterns {
		dirPattern := strings.TrimSuffix(pattern, "/**")
		dirPattern = strings.TrimSuffix(dirPattern, "/*")

		if base == dirPattern || rel == dirPattern {
			return true
		}
		if matched, _ := filepath.Match(dirPattern, rel); matched {
			return true
		}
		if matched, _ := filepath.Match(dirPattern, base); matched {
			return true
		}
	}
	return false
}

// shouldExcludeFile checks if a file should be excluded from scanning
func shouldExcludeFile(path, basePath string, patterns []string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}

	rel := relPath(path, basePath)
	for _, pattern := range patterns {
		if strings.Contains(pattern, "**") {
			simple := strings.ReplaceAll(pattern, "**/", "")
			simple = strings.ReplaceAll(simple, "**", "")
			if matched, _ := filepath.Match(simple, base); matched {
				return true
			}
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

func relPath(path, basePath string) string {
	rel, err := filepath.Rel(basePath, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

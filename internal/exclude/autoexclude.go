// Package exclude provides automatic detection and exclusion of
// dependency and build-artifact directories in Python projects.
package exclude

import (
	"os"
	"path/filepath"
	"strings"
)

// AutoExcludeResult contains the directories to exclude and why.
type AutoExcludeResult struct {
	// Directories to exclude (relative to project root)
	Directories []string
	// Reasons maps each directory to why it was excluded
	Reasons map[string]string
}

// DetectAutoExcludes scans the project root for directories no scan
// should touch. Only uses 100% confidence detection methods (file
// existence checks), so a source directory named "build" in a project
// without packaging metadata is left alone. Nested projects are
// detected at any depth.
func DetectAutoExcludes(projectRoot string) *AutoExcludeResult {
	result := &AutoExcludeResult{
		Directories: []string{},
		Reasons:     make(map[string]string),
	}

	_ = filepath.WalkDir(projectRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip directories we can't read
		}
		if path == projectRoot {
			return nil
		}

		relPath, err := filepath.Rel(projectRoot, path)
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if contains(result.Directories, relPath) {
				return filepath.SkipDir
			}
			for _, excluded := range result.Directories {
				if strings.HasPrefix(relPath, excluded+string(filepath.Separator)) {
					return filepath.SkipDir
				}
			}

			// Don't descend into dependency trees even before a marker
			// file confirms them
			dirName := d.Name()
			if dirName == "node_modules" || dirName == "__pycache__" || dirName == "site-packages" {
				return filepath.SkipDir
			}

			return nil
		}

		relDirPath, err := filepath.Rel(projectRoot, filepath.Dir(path))
		if err != nil {
			return nil
		}

		switch d.Name() {
		case "pyvenv.cfg":
			// The directory containing pyvenv.cfg is a virtualenv
			venvDir := relDirPath
			if !contains(result.Directories, venvDir) {
				result.Directories = append(result.Directories, venvDir)
				result.Reasons[venvDir] = "Python virtual environment (pyvenv.cfg detected)"
			}

		case "pyproject.toml", "setup.py":
			// Packaging metadata: sibling build artifacts if they exist
			result.addSibling(projectRoot, relDirPath, "build", "Python build artifacts")
			result.addSibling(projectRoot, relDirPath, "dist", "Python distribution artifacts")
			result.addEggInfo(projectRoot, relDirPath)

		case "package.json":
			// Front-end asset tree embedded in the project
			result.addSibling(projectRoot, relDirPath, "node_modules", "Node.js dependencies")
		}

		return nil
	})

	return result
}

// addSibling excludes a sibling directory of a marker file when it exists.
func (r *AutoExcludeResult) addSibling(projectRoot, relDirPath, name, reason string) {
	dir := filepath.Join(relDirPath, name)
	if relDirPath == "." {
		dir = name
	}
	if dirExists(filepath.Join(projectRoot, dir)) && !contains(r.Directories, dir) {
		r.Directories = append(r.Directories, dir)
		r.Reasons[dir] = reason
	}
}

// addEggInfo excludes *.egg-info siblings of packaging metadata.
func (r *AutoExcludeResult) addEggInfo(projectRoot, relDirPath string) {
	entries, err := os.ReadDir(filepath.Join(projectRoot, relDirPath))
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), ".egg-info") {
			continue
		}
		dir := filepath.Join(relDirPath, e.Name())
		if relDirPath == "." {
			dir = e.Name()
		}
		if !contains(r.Directories, dir) {
			r.Directories = append(r.Directories, dir)
			r.Reasons[dir] = "Python package metadata (*.egg-info)"
		}
	}
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// contains checks if a string is in a slice.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// Package pathutil provides utilities for converting filesystem paths into
// qualified module and package names.
//
// Architecture Pattern:
// repolens uses repository-relative, slash-normalized paths internally so that
// node identities are reproducible across platforms and runs. This package is
// the single place where a file path becomes a dotted qualified name; every
// component that needs a module or package name goes through it.
package pathutil

import (
	"path/filepath"
	"strings"
)

// indexBasenames are file stems that name their containing directory rather
// than a module of their own (Python packages, JS barrel files, Rust modules).
var indexBasenames = map[string]bool{
	"__init__": true,
	"index":    true,
	"mod":      true,
}

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/src/main.py", "/home/user/project") → "src/main.py"
//   - ToRelative("/other/location/file.py", "/home/user/project") → "/other/location/file.py" (outside root)
//   - ToRelative("src/main.py", "/home/user/project") → "src/main.py" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}

	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		// Conversion failed (e.g., different drives on Windows) - return absolute
		return absPath
	}

	// A path escaping the root is clearer as an absolute path
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}

	return relPath
}

// Normalize cleans a repository-relative path and converts separators to
// forward slashes. All node identities derive from normalized paths.
func Normalize(relPath string) string {
	return filepath.ToSlash(filepath.Clean(relPath))
}

// ModuleName derives a dotted module qualified name from a repository-relative
// file path. The extension is stripped, directory-index stems (__init__, index,
// mod) collapse into the parent directory, and dashes become underscores so
// the result is a valid dotted identifier.
//
// Examples:
//   - ModuleName("pkg/util/helpers.py") → "pkg.util.helpers"
//   - ModuleName("pkg/util/__init__.py") → "pkg.util"
//   - ModuleName("my-app/main.go") → "my_app.main"
func ModuleName(relPath string) string {
	normalized := Normalize(relPath)
	withoutExt := strings.TrimSuffix(normalized, filepath.Ext(normalized))

	parts := make([]string, 0, 8)
	for _, part := range strings.Split(withoutExt, "/") {
		if part == "" || part == "." {
			continue
		}
		parts = append(parts, strings.ReplaceAll(part, "-", "_"))
	}

	// Collapse index files into their directory, except at repository root
	// where the stem is the only name we have.
	if len(parts) > 1 && indexBasenames[parts[len(parts)-1]] {
		parts = parts[:len(parts)-1]
	}

	return strings.Join(parts, ".")
}

// PackageName returns the owning package of a dotted module name, or "" for a
// top-level module.
func PackageName(moduleName string) string {
	if idx := strings.LastIndex(moduleName, "."); idx >= 0 {
		return moduleName[:idx]
	}
	return ""
}

// Join builds a qualified name from non-empty dotted segments.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ".")
}

package scanner

import (
	"bytes"
	"path/filepath"
	"strings"
)

// LanguageUnknown tags files the scanner cannot classify. Unknown files are
// recorded, not discarded: they appear downstream as opaque file nodes with no
// extracted symbols.
const LanguageUnknown = "unknown"

// extensionLanguages maps file extensions to language tags.
var extensionLanguages = map[string]string{
	".py":   "python",
	".pyw":  "python",
	".pyi":  "python",
	".go":   "go",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".rs":   "rust",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".hpp":  "cpp",
	".cs":   "csharp",
	".php":  "php",
	".rb":   "ruby",
}

// shebangLanguages maps interpreter names found on a #! line to language tags.
var shebangLanguages = map[string]string{
	"python":  "python",
	"python3": "python",
	"node":    "javascript",
	"ruby":    "ruby",
}

// DetectLanguage classifies a file by extension, falling back to shebang
// sniffing for extensionless scripts. Returns LanguageUnknown when neither
// matches.
func DetectLanguage(path string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensionLanguages[ext]; ok {
		return lang
	}

	if ext == "" && bytes.HasPrefix(content, []byte("#!")) {
		line := content
		if idx := bytes.IndexByte(line, '\n'); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(string(line[2:]))
		if len(fields) > 0 {
			interp := filepath.Base(fields[0])
			if interp == "env" && len(fields) > 1 {
				interp = fields[1]
			}
			// Strip version suffixes like python3.12
			for name, lang := range shebangLanguages {
				if interp == name || strings.HasPrefix(interp, name+".") {
					return lang
				}
			}
		}
	}

	return LanguageUnknown
}

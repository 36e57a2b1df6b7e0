package lang

import (
	"strings"

	"github.com/standardbeagle/repolens/internal/debug"
)

// Language is the capability interface one supported language implements.
type Language interface {
	// Name is the language tag, matching the scanner's classification.
	Name() string
	// Detect reports whether this implementation claims the file.
	Detect(path string) bool
	// Extract parses content into a symbol table. A non-nil error marks the
	// file failed; extraction must still return a usable (empty) result.
	Extract(path string, content []byte) (*FileSymbols, error)
}

// Registry holds the ordered language list. The first implementation whose
// Detect claims a file wins; unclaimed files fall back to an opaque result.
type Registry struct {
	languages []Language
}

// NewRegistry creates the default registry with all built-in languages.
func NewRegistry() *Registry {
	return &Registry{
		languages: []Language{
			NewPython(),
			NewGo(),
			NewTypeScript(),
			NewJavaScript(),
			NewJava(),
			NewRust(),
		},
	}
}

// Languages returns the registered language tags in registration order.
func (r *Registry) Languages() []string {
	names := make([]string, 0, len(r.languages))
	for _, l := range r.languages {
		names = append(names, l.Name())
	}
	return names
}

// Extract produces the symbol table for one file. It never returns an error:
// parse failures mark the file failed with a diagnostic and an empty symbol
// set, and unsupported languages produce an opaque skipped entry. Analysis
// always continues over the rest of the repository.
func (r *Registry) Extract(path string, content []byte) *FileSymbols {
	for _, l := range r.languages {
		if !l.Detect(path) {
			continue
		}
		syms, err := l.Extract(path, content)
		if err != nil {
			debug.LogExtract("parse failed for %s: %v\n", path, err)
			return &FileSymbols{
				Path:       path,
				Language:   l.Name(),
				Status:     StatusFailed,
				Diagnostic: err.Error(),
				LineCount:  countLines(content),
			}
		}
		syms.Path = path
		syms.Language = l.Name()
		syms.Status = StatusOK
		syms.LineCount = countLines(content)
		return syms
	}

	// Opaque fallback: the file is a fact even if we cannot read symbols out of it.
	return &FileSymbols{
		Path:      path,
		Language:  LanguageTagUnknown,
		Status:    StatusSkipped,
		LineCount: countLines(content),
	}
}

// LanguageTagUnknown mirrors the scanner's unknown classification.
const LanguageTagUnknown = "unknown"

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := strings.Count(string(content), "\n")
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

func hasSuffixAny(path string, suffixes ...string) bool {
	lower := strings.ToLower(path)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

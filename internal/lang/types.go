// Package lang extracts per-file symbol tables from source code.
//
// Each supported language is a capability implementation registered in an
// ordered list; files no implementation claims fall through to an opaque
// extractor that records the file without symbols. Extraction is designed for
// parallel use: every invocation builds its own parser and returns an
// immutable result, so independent files never share mutable state.
package lang

// ParseStatus describes the outcome of parsing one file.
type ParseStatus string

const (
	StatusOK      ParseStatus = "ok"
	StatusSkipped ParseStatus = "skipped" // no extractor for the language
	StatusFailed  ParseStatus = "failed"  // malformed source, extraction yielded no symbols
)

// SourceRange is a 1-based line/column span within a file.
type SourceRange struct {
	StartLine int `json:"startLine"`
	StartCol  int `json:"startCol"`
	EndLine   int `json:"endLine"`
	EndCol    int `json:"endCol"`
}

// Lines returns the number of source lines the range covers.
func (r SourceRange) Lines() int {
	if r.EndLine < r.StartLine {
		return 0
	}
	return r.EndLine - r.StartLine + 1
}

// Param is a single declared parameter.
type Param struct {
	Name string `json:"name"`
}

// CallSite is a raw, unresolved call expression inside a function body.
// Resolution to a concrete target happens later in the call graph resolver.
type CallSite struct {
	Callee      string `json:"callee"`             // rightmost name of the called expression
	Receiver    string `json:"receiver,omitempty"` // object text for attribute calls (self.x() → "self")
	IsAttribute bool   `json:"isAttribute"`
	ArgCount    int    `json:"argCount"`
	Line        int    `json:"line"`
}

// FunctionInfo describes a function or method definition.
type FunctionInfo struct {
	Name           string      `json:"name"`
	Params         []Param     `json:"params"`
	Decorators     []string    `json:"decorators,omitempty"`
	Range          SourceRange `json:"range"`
	Calls          []CallSite  `json:"calls,omitempty"`
	DecisionPoints int         `json:"decisionPoints"` // cyclomatic complexity = 1 + DecisionPoints
	IsAbstract     bool        `json:"isAbstract,omitempty"`
	SelfAccess     []string    `json:"selfAccess,omitempty"` // fields touched through the receiver, sorted unique
}

// ClassInfo describes a class-like declaration (class, struct with methods,
// interface, trait).
type ClassInfo struct {
	Name       string         `json:"name"`
	Bases      []string       `json:"bases,omitempty"` // as written; resolved best-effort later
	Decorators []string       `json:"decorators,omitempty"`
	Methods    []FunctionInfo `json:"methods,omitempty"`
	Range      SourceRange    `json:"range"`
	IsAbstract bool           `json:"isAbstract,omitempty"` // interface/trait/ABC-like declaration
}

// ImportInfo is one import statement.
type ImportInfo struct {
	Target string   `json:"target"` // raw module path as written, possibly external
	Alias  string   `json:"alias,omitempty"`
	Names  []string `json:"names,omitempty"` // imported symbol names, empty for whole-module imports
	Line   int      `json:"line"`
}

// FileSymbols is the immutable per-file extraction result merged into the
// repository graph.
type FileSymbols struct {
	Path       string         `json:"path"`
	Language   string         `json:"language"`
	Status     ParseStatus    `json:"status"`
	Diagnostic string         `json:"diagnostic,omitempty"`
	Imports    []ImportInfo   `json:"imports,omitempty"`
	Classes    []ClassInfo    `json:"classes,omitempty"`
	Functions  []FunctionInfo `json:"functions,omitempty"` // module-level functions
	LineCount  int            `json:"lineCount"`
}

// AbstractDecls counts interface-like declarations, the numerator of the
// abstractness heuristic.
func (fs *FileSymbols) AbstractDecls() int {
	n := 0
	for _, c := range fs.Classes {
		if c.IsAbstract {
			n++
		}
	}
	return n
}

// TotalDecls counts all class and module-level function declarations.
func (fs *FileSymbols) TotalDecls() int {
	return len(fs.Classes) + len(fs.Functions)
}

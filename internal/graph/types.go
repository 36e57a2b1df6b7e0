// Package graph merges per-file symbol tables into one repository-wide code
// graph: containment (package → module → class → function), import edges and
// inheritance edges, plus approximate call edges layered on by the call graph
// resolver. A built graph is published as an immutable versioned Snapshot;
// incremental updates produce a new version rather than mutating in place.
package graph

import (
	"github.com/standardbeagle/repolens/internal/lang"
)

// NodeKind identifies the entity a graph node models.
type NodeKind string

const (
	NodePackage  NodeKind = "package"
	NodeModule   NodeKind = "module"
	NodeClass    NodeKind = "class"
	NodeFunction NodeKind = "function"
	// NodeExternal is the pseudo-node kind for names that do not resolve to
	// anything inside the repository. One node exists per distinct raw name.
	NodeExternal NodeKind = "external"
)

// EdgeKind identifies a typed directed edge.
type EdgeKind string

const (
	EdgeContains EdgeKind = "contains"
	EdgeImports  EdgeKind = "imports"
	EdgeInherits EdgeKind = "inherits"
	EdgeCalls    EdgeKind = "calls"
)

// externalPrefix namespaces external pseudo-node ids so a raw import string
// can never collide with a repository qualified name.
const externalPrefix = "ext:"

// RootPackage is the qualified name of the implicit package owning modules at
// the repository root. Parentheses keep it out of the namespace real
// directories can produce.
const RootPackage = "(root)"

// Node is one entity in the code graph. The zero-value fields that do not
// apply to a kind stay empty: only functions carry Calls, only modules carry
// a parse status, external nodes carry nothing but their raw name.
type Node struct {
	ID       string   `json:"id"` // qualified name, or "ext:<raw>" for externals
	Kind     NodeKind `json:"kind"`
	Name     string   `json:"name"` // unqualified local name
	Package  string   `json:"package,omitempty"`
	Module   string   `json:"module,omitempty"`
	Class    string   `json:"class,omitempty"` // owning class qualified name for methods
	Path     string   `json:"path,omitempty"`  // repository-relative file path
	Language string   `json:"language,omitempty"`

	Range      lang.SourceRange `json:"range,omitzero"`
	Params     []string         `json:"params,omitempty"`
	Decorators []string         `json:"decorators,omitempty"`
	Bases      []string         `json:"bases,omitempty"` // raw base names as written
	IsAbstract bool             `json:"isAbstract,omitempty"`

	// DecisionPoints feeds cyclomatic complexity (1 + DecisionPoints).
	DecisionPoints int `json:"decisionPoints,omitempty"`

	// Calls are the unresolved call expressions inside a function body,
	// consumed by the call graph resolver.
	Calls      []lang.CallSite `json:"-"`
	SelfAccess []string        `json:"-"`

	Status    lang.ParseStatus `json:"status,omitempty"` // modules only
	LineCount int              `json:"lineCount,omitempty"`

	// Bindings maps names visible in a module's scope (imported symbols,
	// module aliases) to the node ids they resolve to. Built once during the
	// merge and read by the call graph resolver.
	Bindings map[string]string `json:"-"`
}

// IsMethod reports whether a function node is owned by a class.
func (n *Node) IsMethod() bool {
	return n.Kind == NodeFunction && n.Class != ""
}

// Edge is a typed directed edge between two existing node ids.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
	// Approximate marks edges produced by best-effort static resolution
	// (all calls edges, and inherits edges bound through imports).
	Approximate bool `json:"approximate,omitempty"`
}

// ExternalID returns the pseudo-node id for a raw unresolved name.
func ExternalID(raw string) string {
	return externalPrefix + raw
}

// IsExternalID reports whether an id names an external pseudo-node.
func IsExternalID(id string) bool {
	return len(id) > len(externalPrefix) && id[:len(externalPrefix)] == externalPrefix
}

// RawName strips the external prefix from an id, if present.
func RawName(id string) string {
	if IsExternalID(id) {
		return id[len(externalPrefix):]
	}
	return id
}

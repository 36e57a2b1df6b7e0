package graph

import (
	"path"
	"sort"
	"strings"

	"github.com/standardbeagle/repolens/internal/lang"
	"github.com/standardbeagle/repolens/pkg/pathutil"
)

// Builder accumulates per-file symbol tables and merges them into published
// Snapshots. The merge is the pipeline's single serialization point: callers
// must not invoke Builder methods concurrently. Incremental re-analysis
// replaces only the changed files and rebuilds; unchanged files keep their
// extraction results, so the rebuilt graph is identical to a from-scratch run.
type Builder struct {
	root    string
	files   map[string]*lang.FileSymbols // normalized relative path → symbols
	version uint64
}

// NewBuilder creates a builder for one repository root.
func NewBuilder(root string) *Builder {
	return &Builder{
		root:  root,
		files: make(map[string]*lang.FileSymbols),
	}
}

// SetFile records or replaces one file's extraction result.
func (b *Builder) SetFile(fs *lang.FileSymbols) {
	b.files[pathutil.Normalize(fs.Path)] = fs
}

// RemoveFile drops a deleted file so its subtree disappears on next build.
func (b *Builder) RemoveFile(relPath string) {
	delete(b.files, pathutil.Normalize(relPath))
}

// FileCount returns the number of files currently merged.
func (b *Builder) FileCount() int { return len(b.files) }

// Build merges all recorded files into a new immutable Snapshot with the next
// version number.
func (b *Builder) Build(repoHash string) *Snapshot {
	b.version++

	paths := make([]string, 0, len(b.files))
	for p := range b.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	m := &merge{
		nodes: make(map[string]*Node),
	}
	m.addNode(&Node{ID: RootPackage, Kind: NodePackage, Name: RootPackage})

	// pass 1: containment forest, deterministic in path order
	moduleIDs := make([]string, 0, len(paths))
	for _, p := range paths {
		moduleIDs = append(moduleIDs, m.addFile(p, b.files[p]))
	}

	// pass 2: import edges and scope bindings
	for i, p := range paths {
		m.resolveImports(moduleIDs[i], b.files[p])
	}

	// pass 3: inheritance edges, after every module's bindings exist
	for i, p := range paths {
		m.resolveBases(moduleIDs[i], b.files[p])
	}

	return newSnapshot(b.version, repoHash, b.root, m.nodes, m.ordered, m.edges)
}

type merge struct {
	nodes   map[string]*Node
	ordered []string
	edges   []Edge
}

func (m *merge) addNode(n *Node) bool {
	if _, exists := m.nodes[n.ID]; exists {
		return false
	}
	m.nodes[n.ID] = n
	m.ordered = append(m.ordered, n.ID)
	return true
}

func (m *merge) addEdge(e Edge) {
	m.edges = append(m.edges, e)
}

// external returns the shared pseudo-node id for a raw name, creating the
// node on first use.
func (m *merge) external(raw string) string {
	id := ExternalID(raw)
	m.addNode(&Node{ID: id, Kind: NodeExternal, Name: raw})
	return id
}

// addFile creates the module node, its package chain and the class/function
// subtree for one file, and returns the module id.
func (m *merge) addFile(relPath string, fs *lang.FileSymbols) string {
	modID := pathutil.ModuleName(relPath)
	if _, taken := m.nodes[modID]; taken {
		// an index file and a sibling module can collapse to the same name;
		// the later path keeps its uncollapsed stem
		modID = strings.ReplaceAll(strings.TrimSuffix(relPath, path.Ext(relPath)), "/", ".")
	}

	pkgID := m.ensurePackage(pathutil.PackageName(modID))

	mod := &Node{
		ID:        modID,
		Kind:      NodeModule,
		Name:      lastSegment(modID),
		Package:   pkgID,
		Path:      fs.Path,
		Language:  fs.Language,
		Status:    fs.Status,
		LineCount: fs.LineCount,
		Bindings:  make(map[string]string),
	}
	m.addNode(mod)
	m.addEdge(Edge{From: pkgID, To: modID, Kind: EdgeContains})

	for ci := range fs.Classes {
		m.addClass(mod, pkgID, &fs.Classes[ci])
	}
	for fi := range fs.Functions {
		m.addFunction(mod, pkgID, modID, "", &fs.Functions[fi])
	}
	return modID
}

// ensurePackage creates the package node chain for a dotted package name and
// returns the innermost package id. Empty names map to the root package.
func (m *merge) ensurePackage(pkgName string) string {
	if pkgName == "" {
		return RootPackage
	}

	segments := strings.Split(pkgName, ".")
	parent := RootPackage
	for i := range segments {
		id := strings.Join(segments[:i+1], ".")
		if m.addNode(&Node{
			ID:      id,
			Kind:    NodePackage,
			Name:    segments[i],
			Package: parentOrEmpty(parent),
		}) {
			m.addEdge(Edge{From: parent, To: id, Kind: EdgeContains})
		}
		parent = id
	}
	return parent
}

func parentOrEmpty(parent string) string {
	if parent == RootPackage {
		return ""
	}
	return parent
}

func (m *merge) addClass(mod *Node, pkgID string, cls *lang.ClassInfo) {
	clsID := pathutil.Join(mod.ID, cls.Name)
	node := &Node{
		ID:         clsID,
		Kind:       NodeClass,
		Name:       cls.Name,
		Package:    pkgID,
		Module:     mod.ID,
		Path:       mod.Path,
		Language:   mod.Language,
		Range:      cls.Range,
		Decorators: cls.Decorators,
		Bases:      cls.Bases,
		IsAbstract: cls.IsAbstract,
	}
	if !m.addNode(node) {
		return
	}

	// nested classes hang off their outer class, everything else off the module
	parent := mod.ID
	if dot := strings.LastIndex(cls.Name, "."); dot >= 0 {
		outer := pathutil.Join(mod.ID, cls.Name[:dot])
		if _, ok := m.nodes[outer]; ok {
			parent = outer
		}
		node.Name = cls.Name[dot+1:]
	}
	m.addEdge(Edge{From: parent, To: clsID, Kind: EdgeContains})

	for mi := range cls.Methods {
		m.addFunction(mod, pkgID, clsID, clsID, &cls.Methods[mi])
	}
}

func (m *merge) addFunction(mod *Node, pkgID, parentID, classID string, fn *lang.FunctionInfo) {
	fnID := pathutil.Join(parentID, fn.Name)
	params := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		params = append(params, p.Name)
	}
	node := &Node{
		ID:             fnID,
		Kind:           NodeFunction,
		Name:           fn.Name,
		Package:        pkgID,
		Module:         mod.ID,
		Class:          classID,
		Path:           mod.Path,
		Language:       mod.Language,
		Range:          fn.Range,
		Params:         params,
		Decorators:     fn.Decorators,
		IsAbstract:     fn.IsAbstract,
		DecisionPoints: fn.DecisionPoints,
		Calls:          fn.Calls,
		SelfAccess:     fn.SelfAccess,
		LineCount:      fn.Range.Lines(),
	}
	if !m.addNode(node) {
		return
	}
	m.addEdge(Edge{From: parentID, To: fnID, Kind: EdgeContains})
}

// resolveImports binds each import target to a repository module or package
// when one matches, else to a shared external pseudo-node, and records the
// names the import brings into the module's scope.
func (m *merge) resolveImports(modID string, fs *lang.FileSymbols) {
	mod := m.nodes[modID]
	seen := make(map[string]bool)

	for _, imp := range fs.Imports {
		targetID := m.resolveTarget(mod, imp.Target)
		if !seen[targetID] {
			seen[targetID] = true
			m.addEdge(Edge{From: modID, To: targetID, Kind: EdgeImports})
		}

		// scope bindings for the call graph resolver and base resolution
		switch {
		case len(imp.Names) == 0:
			local := imp.Alias
			if local == "" {
				local = lastSegment(imp.Target)
			}
			if local != "" {
				mod.Bindings[local] = targetID
			}
		default:
			for _, name := range imp.Names {
				if name == "*" {
					continue
				}
				local := name
				if imp.Alias != "" && len(imp.Names) == 1 {
					local = imp.Alias
				}
				mod.Bindings[local] = m.memberOf(targetID, name)
			}
		}
	}
}

// memberOf returns the id a name imported from a target binds to: a child of
// a repository module/package when it exists, else an external member name.
func (m *merge) memberOf(targetID, name string) string {
	if IsExternalID(targetID) {
		return m.external(m.nodes[targetID].Name + "." + name)
	}
	childID := pathutil.Join(targetID, name)
	if targetID == RootPackage {
		childID = name
	}
	if _, ok := m.nodes[childID]; ok {
		return childID
	}
	return m.external(targetID + "." + name)
}

// resolveTarget maps a raw import string to a module/package id. Relative
// targets resolve against the importing file's location; absolute targets try
// the dotted form and progressively shorter suffixes (covering slash-style
// module paths that embed a repository prefix). Unmatched targets become
// external pseudo-nodes keyed by the raw string.
func (m *merge) resolveTarget(mod *Node, raw string) string {
	if raw == "" {
		return m.external("?")
	}

	for _, candidate := range m.targetCandidates(mod, raw) {
		if n, ok := m.nodes[candidate]; ok && (n.Kind == NodeModule || n.Kind == NodePackage) {
			return candidate
		}
	}
	return m.external(raw)
}

func (m *merge) targetCandidates(mod *Node, raw string) []string {
	var out []string

	switch {
	case strings.HasPrefix(raw, "."):
		if strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "../") {
			// path-relative (JS/TS): resolve against the file's directory
			joined := path.Join(path.Dir(mod.Path), raw)
			out = append(out, pathutil.ModuleName(joined))
			break
		}
		// dot-relative (Python): each leading dot climbs one level, the
		// first leaves the module's own package
		dots := 0
		for dots < len(raw) && raw[dots] == '.' {
			dots++
		}
		base := mod.Package
		for i := 1; i < dots && base != ""; i++ {
			base = pathutil.PackageName(base)
		}
		if base == RootPackage {
			base = ""
		}
		rest := raw[dots:]
		if rest == "" {
			if base == "" {
				out = append(out, RootPackage)
			} else {
				out = append(out, base)
			}
		} else {
			out = append(out, pathutil.Join(base, rest))
		}
	default:
		dotted := strings.ReplaceAll(strings.ReplaceAll(raw, "::", "."), "/", ".")
		out = append(out, dotted)
		// slash-style targets may carry a repository prefix; try suffixes
		segments := strings.Split(dotted, ".")
		for i := 1; i < len(segments); i++ {
			out = append(out, strings.Join(segments[i:], "."))
		}
	}
	return out
}

// resolveBases adds inheritance edges: same module first, then the module's
// own imports, else external. Best-effort, never complete.
func (m *merge) resolveBases(modID string, fs *lang.FileSymbols) {
	mod := m.nodes[modID]

	for ci := range fs.Classes {
		cls := &fs.Classes[ci]
		clsID := pathutil.Join(modID, cls.Name)
		if n := m.nodes[clsID]; n == nil || n.Kind != NodeClass {
			continue
		}

		for _, base := range cls.Bases {
			to, approximate := m.resolveBase(mod, base)
			if to == clsID {
				continue
			}
			m.addEdge(Edge{From: clsID, To: to, Kind: EdgeInherits, Approximate: approximate})
		}
	}
}

func (m *merge) resolveBase(mod *Node, base string) (string, bool) {
	// same module
	if n, ok := m.nodes[pathutil.Join(mod.ID, base)]; ok && n.Kind == NodeClass {
		return n.ID, false
	}

	head, rest := base, ""
	if dot := strings.IndexAny(base, "."); dot >= 0 {
		head, rest = base[:dot], base[dot+1:]
	}
	if bound, ok := mod.Bindings[head]; ok {
		if rest == "" {
			return bound, true
		}
		if !IsExternalID(bound) {
			if n, ok := m.nodes[pathutil.Join(bound, rest)]; ok {
				return n.ID, true
			}
		}
		return m.external(m.displayName(bound) + "." + rest), true
	}

	return m.external(base), true
}

func (m *merge) displayName(id string) string {
	if n, ok := m.nodes[id]; ok && n.Kind == NodeExternal {
		return n.Name
	}
	return id
}

func lastSegment(dotted string) string {
	if idx := strings.LastIndex(dotted, "."); idx >= 0 {
		return dotted[idx+1:]
	}
	return dotted
}

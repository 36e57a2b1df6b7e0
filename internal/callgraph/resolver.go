// Package callgraph layers conservative static call edges on top of the code
// graph and answers reachability queries from an entry symbol.
//
// Resolution is a static over-approximation: edges may never execute at
// runtime and dynamically dispatched calls may be missed. Every produced edge
// is marked approximate so consumers can state that to users.
package callgraph

import (
	"fmt"
	"sort"

	"github.com/standardbeagle/repolens/internal/graph"
	"github.com/standardbeagle/repolens/internal/lang"
	"github.com/standardbeagle/repolens/pkg/pathutil"
)

// Resolver resolves raw call expressions against one graph snapshot.
type Resolver struct {
	snap *graph.Snapshot
}

// New creates a resolver over a published snapshot.
func New(snap *graph.Snapshot) *Resolver {
	return &Resolver{snap: snap}
}

// ResolveAll resolves every call site of every function in the graph and
// returns the deduplicated edge set, in deterministic node order. The result
// is layered onto the snapshot with Snapshot.WithCallEdges; this is the only
// producer of calls edges.
func (r *Resolver) ResolveAll() []graph.Edge {
	var edges []graph.Edge
	for _, fn := range r.snap.NodesOfKind(graph.NodeFunction) {
		seen := make(map[string]bool)
		for _, site := range fn.Calls {
			target := r.resolveSite(fn, site)
			if target == "" || target == fn.ID || seen[target] {
				continue
			}
			seen[target] = true
			edges = append(edges, graph.Edge{
				From:        fn.ID,
				To:          target,
				Kind:        graph.EdgeCalls,
				Approximate: true,
			})
		}
	}
	return edges
}

// selfReceivers are the receiver spellings that mean "the enclosing class
// instance". The Go extractor normalizes receiver-variable calls to "self".
var selfReceivers = map[string]bool{
	"self": true,
	"this": true,
}

// resolveSite maps one raw call expression to a node id: names bound in the
// defining module's scope (local declarations, imported symbols) first, then
// own-class methods for self/this attribute calls, else an external
// pseudo-node.
func (r *Resolver) resolveSite(fn *graph.Node, site lang.CallSite) string {
	if site.IsAttribute {
		mod := r.snap.ModuleOf(fn.ID)
		// receiver naming an imported module binds to that module's member
		if mod != nil {
			if bound, ok := mod.Bindings[site.Receiver]; ok {
				if !graph.IsExternalID(bound) {
					if n := r.snap.Node(pathutil.Join(bound, site.Callee)); n != nil {
						return n.ID
					}
				}
				return graph.ExternalID(r.rawName(bound) + "." + site.Callee)
			}
		}
		// attribute call on self/this binds to a method of the same class
		if selfReceivers[site.Receiver] && fn.Class != "" {
			if n := r.snap.Node(pathutil.Join(fn.Class, site.Callee)); n != nil {
				return n.ID
			}
		}
		// unresolved receiver: when exactly one class in the module has a
		// method of this name, bind to it; ambiguity stays external
		if mod != nil {
			if id := r.uniqueModuleMethod(mod, site.Callee); id != "" {
				return id
			}
		}
		return graph.ExternalID(site.Receiver + "." + site.Callee)
	}

	mod := r.snap.ModuleOf(fn.ID)
	if mod == nil {
		return graph.ExternalID(site.Callee)
	}

	// module-level declaration (function or class constructor)
	if n := r.snap.Node(pathutil.Join(mod.ID, site.Callee)); n != nil {
		return n.ID
	}
	// imported symbol
	if bound, ok := mod.Bindings[site.Callee]; ok {
		return bound
	}
	return graph.ExternalID(site.Callee)
}

func (r *Resolver) uniqueModuleMethod(mod *graph.Node, name string) string {
	match := ""
	for _, childID := range r.snap.Children(mod.ID) {
		cls := r.snap.Node(childID)
		if cls == nil || cls.Kind != graph.NodeClass {
			continue
		}
		if m := r.snap.Node(pathutil.Join(cls.ID, name)); m != nil && m.Kind == graph.NodeFunction {
			if match != "" {
				return ""
			}
			match = m.ID
		}
	}
	return match
}

func (r *Resolver) rawName(id string) string {
	if n := r.snap.Node(id); n != nil && n.Kind == graph.NodeExternal {
		return n.Name
	}
	return id
}

// Result is one breadth-first expansion from an entry symbol.
type Result struct {
	Entry  string         `json:"entry"`
	Nodes  []string       `json:"nodes"` // ordered by depth, then id
	Edges  []graph.Edge   `json:"edges"`
	Depths map[string]int `json:"depths"` // minimum distance from the entry
}

// Expand performs a breadth-first expansion from an entry function or method,
// resolving call sites up to maxDepth levels deep. Each reached node's depth
// is the length of the shortest resolved path from the entry. External
// targets are kept or dropped per includeExternal.
func (r *Resolver) Expand(entry string, maxDepth int, includeExternal bool) (*Result, error) {
	start := r.snap.Node(entry)
	if start == nil {
		return nil, fmt.Errorf("unknown entry symbol %q", entry)
	}
	if start.Kind != graph.NodeFunction {
		return nil, fmt.Errorf("entry symbol %q is a %s, not a function", entry, start.Kind)
	}

	res := &Result{
		Entry:  entry,
		Depths: map[string]int{entry: 0},
	}
	seenEdge := make(map[graph.Edge]bool)
	frontier := []string{entry}

	for depth := 0; len(frontier) > 0 && (maxDepth <= 0 || depth < maxDepth); depth++ {
		var next []string
		for _, id := range frontier {
			fn := r.snap.Node(id)
			if fn == nil || fn.Kind != graph.NodeFunction {
				continue
			}
			for _, site := range fn.Calls {
				target := r.resolveSite(fn, site)
				if target == "" || target == id {
					continue
				}
				if graph.IsExternalID(target) && !includeExternal {
					continue
				}
				e := graph.Edge{From: id, To: target, Kind: graph.EdgeCalls, Approximate: true}
				if !seenEdge[e] {
					seenEdge[e] = true
					res.Edges = append(res.Edges, e)
				}
				if _, visited := res.Depths[target]; !visited {
					res.Depths[target] = depth + 1
					next = append(next, target)
				}
			}
		}
		sort.Strings(next)
		frontier = next
	}

	res.Nodes = orderByDepth(res.Depths)
	return res, nil
}

func orderByDepth(depths map[string]int) []string {
	ids := make([]string, 0, len(depths))
	for id := range depths {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if depths[ids[i]] != depths[ids[j]] {
			return depths[ids[i]] < depths[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// DiffResult is the edge symmetric difference of two expansions.
type DiffResult struct {
	OnlyA []graph.Edge `json:"onlyA"`
	OnlyB []graph.Edge `json:"onlyB"`
}

// Diff compares two expansions by edge set. Edges present in both are
// dropped; the remainder is split by origin, preserving each side's order.
func Diff(a, b *Result) *DiffResult {
	inA := make(map[graph.Edge]bool, len(a.Edges))
	for _, e := range a.Edges {
		inA[e] = true
	}
	inB := make(map[graph.Edge]bool, len(b.Edges))
	for _, e := range b.Edges {
		inB[e] = true
	}

	d := &DiffResult{}
	for _, e := range a.Edges {
		if !inB[e] {
			d.OnlyA = append(d.OnlyA, e)
		}
	}
	for _, e := range b.Edges {
		if !inA[e] {
			d.OnlyB = append(d.OnlyB, e)
		}
	}
	return d
}

// PathsBetween enumerates the simple call paths from one function to another,
// up to maxDepth edges long, in lexicographic order. Both endpoints must be
// repository functions.
func (r *Resolver) PathsBetween(from, to string, maxDepth int) ([][]string, error) {
	if r.snap.Node(from) == nil {
		return nil, fmt.Errorf("unknown symbol %q", from)
	}
	if r.snap.Node(to) == nil {
		return nil, fmt.Errorf("unknown symbol %q", to)
	}
	if maxDepth <= 0 {
		maxDepth = 10
	}

	var paths [][]string
	onPath := map[string]bool{from: true}
	var walk func(id string, trail []string)
	walk = func(id string, trail []string) {
		if id == to && len(trail) > 1 {
			paths = append(paths, append([]string(nil), trail...))
			return
		}
		if len(trail) > maxDepth {
			return
		}
		fn := r.snap.Node(id)
		if fn == nil || fn.Kind != graph.NodeFunction {
			return
		}
		targets := make(map[string]bool)
		for _, site := range fn.Calls {
			if t := r.resolveSite(fn, site); t != "" && !onPath[t] {
				targets[t] = true
			}
		}
		ordered := make([]string, 0, len(targets))
		for t := range targets {
			ordered = append(ordered, t)
		}
		sort.Strings(ordered)
		for _, t := range ordered {
			onPath[t] = true
			walk(t, append(trail, t))
			delete(onPath, t)
		}
	}
	walk(from, []string{from})
	return paths, nil
}

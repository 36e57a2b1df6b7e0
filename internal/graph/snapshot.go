package graph

import (
	"sort"
)

// Snapshot is one published, immutable version of the code graph. All query
// methods are safe for concurrent use; an incremental update builds a new
// Snapshot with a higher version instead of mutating this one.
type Snapshot struct {
	version  uint64
	repoHash string
	root     string

	nodes   map[string]*Node
	ordered []string // node ids in deterministic build order
	edges   []Edge

	outgoing map[string][]int // node id → indexes into edges
	incoming map[string][]int
}

func newSnapshot(version uint64, repoHash, root string, nodes map[string]*Node, ordered []string, edges []Edge) *Snapshot {
	s := &Snapshot{
		version:  version,
		repoHash: repoHash,
		root:     root,
		nodes:    nodes,
		ordered:  ordered,
		edges:    edges,
		outgoing: make(map[string][]int),
		incoming: make(map[string][]int),
	}
	for i, e := range edges {
		s.outgoing[e.From] = append(s.outgoing[e.From], i)
		s.incoming[e.To] = append(s.incoming[e.To], i)
	}
	return s
}

// Version is the monotonic publish counter for this graph.
func (s *Snapshot) Version() uint64 { return s.version }

// RepoHash is the repository content hash the graph was built from.
func (s *Snapshot) RepoHash() string { return s.repoHash }

// Root is the repository root path.
func (s *Snapshot) Root() string { return s.root }

// Node looks a node up by qualified name (or external id). Nil when absent.
func (s *Snapshot) Node(id string) *Node {
	return s.nodes[id]
}

// Nodes returns all nodes in deterministic build order.
func (s *Snapshot) Nodes() []*Node {
	out := make([]*Node, 0, len(s.ordered))
	for _, id := range s.ordered {
		out = append(out, s.nodes[id])
	}
	return out
}

// NodesOfKind returns all nodes of one kind in deterministic order.
func (s *Snapshot) NodesOfKind(kind NodeKind) []*Node {
	var out []*Node
	for _, id := range s.ordered {
		if n := s.nodes[id]; n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns the full edge list in deterministic order.
func (s *Snapshot) Edges() []Edge {
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// EdgesFrom returns outgoing edges of a node, optionally filtered by kind
// (empty kind matches all).
func (s *Snapshot) EdgesFrom(id string, kind EdgeKind) []Edge {
	var out []Edge
	for _, i := range s.outgoing[id] {
		if kind == "" || s.edges[i].Kind == kind {
			out = append(out, s.edges[i])
		}
	}
	return out
}

// EdgesTo returns incoming edges of a node, optionally filtered by kind.
func (s *Snapshot) EdgesTo(id string, kind EdgeKind) []Edge {
	var out []Edge
	for _, i := range s.incoming[id] {
		if kind == "" || s.edges[i].Kind == kind {
			out = append(out, s.edges[i])
		}
	}
	return out
}

// Children returns ids contained by a node, in deterministic edge order.
func (s *Snapshot) Children(id string) []string {
	var out []string
	for _, e := range s.EdgesFrom(id, EdgeContains) {
		out = append(out, e.To)
	}
	return out
}

// Parent returns the containing node id, or "" for roots and externals.
func (s *Snapshot) Parent(id string) string {
	for _, e := range s.EdgesTo(id, EdgeContains) {
		return e.From
	}
	return ""
}

// ModuleOf returns the module node owning an id (itself for modules).
func (s *Snapshot) ModuleOf(id string) *Node {
	n := s.nodes[id]
	if n == nil {
		return nil
	}
	if n.Kind == NodeModule {
		return n
	}
	if n.Module != "" {
		return s.nodes[n.Module]
	}
	return nil
}

// WithCallEdges derives a new snapshot of the same version with call edges
// appended. The call graph resolver is the only producer of calls edges.
func (s *Snapshot) WithCallEdges(calls []Edge) *Snapshot {
	edges := make([]Edge, 0, len(s.edges)+len(calls))
	edges = append(edges, s.edges...)

	nodes := s.nodes
	ordered := s.ordered
	var extra []string
	for _, e := range calls {
		e.Kind = EdgeCalls
		e.Approximate = true
		// call targets may introduce external pseudo-nodes not seen by the
		// builder (unresolved callee names)
		for _, id := range []string{e.From, e.To} {
			if _, ok := nodes[id]; !ok && IsExternalID(id) {
				extra = append(extra, id)
			}
		}
		edges = append(edges, e)
	}

	if len(extra) > 0 {
		merged := make(map[string]*Node, len(nodes)+len(extra))
		for k, v := range nodes {
			merged[k] = v
		}
		sort.Strings(extra)
		orderedCopy := make([]string, len(ordered), len(ordered)+len(extra))
		copy(orderedCopy, ordered)
		for _, id := range extra {
			if _, ok := merged[id]; ok {
				continue
			}
			merged[id] = &Node{
				ID:   id,
				Kind: NodeExternal,
				Name: id[len(externalPrefix):],
			}
			orderedCopy = append(orderedCopy, id)
		}
		nodes = merged
		ordered = orderedCopy
	}

	return newSnapshot(s.version, s.repoHash, s.root, nodes, ordered, edges)
}

// Facts is the normalized node/edge export consumed by visualization and
// other external collaborators.
type Facts struct {
	Version  uint64  `json:"version"`
	RepoHash string  `json:"repoHash"`
	Nodes    []*Node `json:"nodes"`
	Edges    []Edge  `json:"edges"`
}

// Facts exports the graph as a normalized node/edge list keyed by qualified
// name, in deterministic order.
func (s *Snapshot) Facts() *Facts {
	return &Facts{
		Version:  s.version,
		RepoHash: s.repoHash,
		Nodes:    s.Nodes(),
		Edges:    s.Edges(),
	}
}

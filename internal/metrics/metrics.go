// Package metrics computes per-entity quality metrics over the code graph
// and flags smells when configured thresholds are crossed, including package
// dependency cycle detection.
package metrics

import (
	"sort"

	"github.com/standardbeagle/repolens/internal/graph"
)

// FunctionMetrics are the per-function measurements.
type FunctionMetrics struct {
	ID         string `json:"id"`
	LOC        int    `json:"loc"`
	Complexity int    `json:"complexity"` // 1 + decision points
	Params     int    `json:"params"`
	FanOut     int    `json:"fanOut"` // distinct resolved callees
}

// ClassMetrics are the per-class measurements.
type ClassMetrics struct {
	ID      string `json:"id"`
	Methods int    `json:"methods"`
	LOC     int    `json:"loc"`
	FanIn   int    `json:"fanIn"` // callers from outside the class
}

// CouplingMetrics are the shared module/package coupling measurements.
type CouplingMetrics struct {
	ID string `json:"id"`
	Ca int    `json:"ca"` // afferent: incoming import/call edges from outside
	Ce int    `json:"ce"` // efferent: outgoing import/call edges
	// Instability is Ce/(Ca+Ce), 0 when both are 0.
	Instability float64 `json:"instability"`
	// Abstractness is abstract declarations over total declarations.
	Abstractness float64 `json:"abstractness"`
}

// PackageMetrics extends coupling with membership and cycle participation.
type PackageMetrics struct {
	CouplingMetrics
	Modules int  `json:"modules"`
	InCycle bool `json:"inCycle"`
}

// Report is the full metric set for one graph snapshot.
type Report struct {
	Functions []FunctionMetrics `json:"functions"`
	Classes   []ClassMetrics    `json:"classes"`
	Modules   []CouplingMetrics `json:"modules"`
	Packages  []PackageMetrics  `json:"packages"`
	// Cycles are package SCCs of size > 1, members sorted, cycles ordered by
	// first member.
	Cycles   [][]string     `json:"cycles"`
	Findings []SmellFinding `json:"findings"`
}

// Compute derives all metrics from a snapshot. The snapshot must already
// carry resolved call edges for fan-in/fan-out and call coupling to be
// meaningful.
func Compute(snap *graph.Snapshot) *Report {
	r := &Report{}

	for _, fn := range snap.NodesOfKind(graph.NodeFunction) {
		fanOut := make(map[string]bool)
		for _, e := range snap.EdgesFrom(fn.ID, graph.EdgeCalls) {
			fanOut[e.To] = true
		}
		r.Functions = append(r.Functions, FunctionMetrics{
			ID:         fn.ID,
			LOC:        fn.Range.Lines(),
			Complexity: 1 + fn.DecisionPoints,
			Params:     len(fn.Params),
			FanOut:     len(fanOut),
		})
	}

	for _, cls := range snap.NodesOfKind(graph.NodeClass) {
		m := ClassMetrics{ID: cls.ID, LOC: cls.Range.Lines()}
		callers := make(map[string]bool)
		for _, methodID := range snap.Children(cls.ID) {
			method := snap.Node(methodID)
			if method == nil || method.Kind != graph.NodeFunction {
				continue
			}
			m.Methods++
			for _, e := range snap.EdgesTo(methodID, graph.EdgeCalls) {
				if caller := snap.Node(e.From); caller != nil && caller.Class != cls.ID {
					callers[e.From] = true
				}
			}
		}
		m.FanIn = len(callers)
		r.Classes = append(r.Classes, m)
	}

	r.Modules = moduleCoupling(snap)
	r.Packages, r.Cycles = packageCoupling(snap, r.Modules)
	return r
}

// moduleCoupling counts import/call edges crossing module boundaries.
// Edges to external pseudo-nodes count toward Ce only.
func moduleCoupling(snap *graph.Snapshot) []CouplingMetrics {
	type tally struct {
		in  map[string]bool
		out map[string]bool
	}
	tallies := make(map[string]*tally)
	modules := snap.NodesOfKind(graph.NodeModule)
	for _, mod := range modules {
		tallies[mod.ID] = &tally{in: map[string]bool{}, out: map[string]bool{}}
	}

	for _, e := range snap.Edges() {
		if e.Kind != graph.EdgeImports && e.Kind != graph.EdgeCalls {
			continue
		}
		fromMod, toMod := owningModule(snap, e.From), owningModule(snap, e.To)
		if fromMod == "" || fromMod == toMod {
			continue
		}
		if t := tallies[fromMod]; t != nil {
			key := toMod
			if key == "" {
				key = e.To // external target
			}
			t.out[key] = true
		}
		if toMod != "" {
			if t := tallies[toMod]; t != nil {
				t.in[fromMod] = true
			}
		}
	}

	out := make([]CouplingMetrics, 0, len(modules))
	for _, mod := range modules {
		t := tallies[mod.ID]
		m := CouplingMetrics{
			ID:           mod.ID,
			Ca:           len(t.in),
			Ce:           len(t.out),
			Abstractness: moduleAbstractness(snap, mod.ID),
		}
		m.Instability = instability(m.Ca, m.Ce)
		out = append(out, m)
	}
	return out
}

func owningModule(snap *graph.Snapshot, id string) string {
	n := snap.Node(id)
	if n == nil || n.Kind == graph.NodeExternal {
		return ""
	}
	if n.Kind == graph.NodeModule {
		return n.ID
	}
	return n.Module
}

func moduleAbstractness(snap *graph.Snapshot, modID string) float64 {
	abstract, total := 0, 0
	for _, childID := range snap.Children(modID) {
		child := snap.Node(childID)
		if child == nil {
			continue
		}
		switch child.Kind {
		case graph.NodeClass:
			total++
			if child.IsAbstract {
				abstract++
			}
		case graph.NodeFunction:
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(abstract) / float64(total)
}

// packageCoupling lifts module coupling to the package level and runs cycle
// detection over the package import graph.
func packageCoupling(snap *graph.Snapshot, modules []CouplingMetrics) ([]PackageMetrics, [][]string) {
	packages := snap.NodesOfKind(graph.NodePackage)
	members := make(map[string][]string)
	for _, mod := range snap.NodesOfKind(graph.NodeModule) {
		pkg := mod.Package
		if pkg == "" {
			pkg = graph.RootPackage
		}
		members[pkg] = append(members[pkg], mod.ID)
	}

	// package dependency edges from module-level import/call edges
	deps := make(map[string]map[string]bool)
	incoming := make(map[string]map[string]bool)
	for _, e := range snap.Edges() {
		if e.Kind != graph.EdgeImports && e.Kind != graph.EdgeCalls {
			continue
		}
		fromPkg := owningPackage(snap, e.From)
		toPkg := owningPackage(snap, e.To)
		if fromPkg == "" || fromPkg == toPkg {
			continue
		}
		if deps[fromPkg] == nil {
			deps[fromPkg] = map[string]bool{}
		}
		key := toPkg
		if key == "" {
			key = e.To
		}
		deps[fromPkg][key] = true
		if toPkg != "" {
			if incoming[toPkg] == nil {
				incoming[toPkg] = map[string]bool{}
			}
			incoming[toPkg][fromPkg] = true
		}
	}

	// cycles over repository packages only
	ids := make([]string, 0, len(packages))
	for _, p := range packages {
		ids = append(ids, p.ID)
	}
	adjacency := make(map[string][]string, len(ids))
	for _, id := range ids {
		var targets []string
		for t := range deps[id] {
			if n := snap.Node(t); n != nil && n.Kind == graph.NodePackage {
				targets = append(targets, t)
			}
		}
		sort.Strings(targets)
		adjacency[id] = targets
	}
	cycles := stronglyConnected(ids, adjacency)

	inCycle := make(map[string]bool)
	for _, scc := range cycles {
		for _, id := range scc {
			inCycle[id] = true
		}
	}

	modAbstract := make(map[string]float64, len(modules))
	for _, m := range modules {
		modAbstract[m.ID] = m.Abstractness
	}

	out := make([]PackageMetrics, 0, len(packages))
	for _, p := range packages {
		pm := PackageMetrics{
			CouplingMetrics: CouplingMetrics{ID: p.ID},
			Modules:         len(members[p.ID]),
			InCycle:         inCycle[p.ID],
		}
		pm.Ca = len(incoming[p.ID])
		pm.Ce = len(deps[p.ID])
		pm.Instability = instability(pm.Ca, pm.Ce)
		if n := len(members[p.ID]); n > 0 {
			sum := 0.0
			for _, modID := range members[p.ID] {
				sum += modAbstract[modID]
			}
			pm.Abstractness = sum / float64(n)
		}
		out = append(out, pm)
	}
	return out, cycles
}

func owningPackage(snap *graph.Snapshot, id string) string {
	n := snap.Node(id)
	if n == nil || n.Kind == graph.NodeExternal {
		return ""
	}
	if n.Kind == graph.NodePackage {
		return n.ID
	}
	if n.Package == "" {
		return graph.RootPackage
	}
	return n.Package
}

func instability(ca, ce int) float64 {
	if ca+ce == 0 {
		return 0
	}
	return float64(ce) / float64(ca+ce)
}

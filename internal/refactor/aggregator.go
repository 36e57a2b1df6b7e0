// Package refactor combines smell findings, clone groups and the code graph
// into concrete refactoring candidates with deterministic plans. Plans are
// fixed-rule products of the fact set, directly consumable without any
// text-generation adapter.
package refactor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/standardbeagle/repolens/internal/clones"
	"github.com/standardbeagle/repolens/internal/config"
	"github.com/standardbeagle/repolens/internal/graph"
	"github.com/standardbeagle/repolens/internal/metrics"
)

// Kind classifies a refactoring candidate.
const (
	KindBreakCycle    = "break-cycle"
	KindExtractClass  = "extract-class"
	KindExtractMethod = "extract-method"
	KindExtractModule = "extract-module"
	KindMoveFunction  = "move-function"
	KindRename        = "rename"
)

// Candidate is one proposed refactoring: impacted entities, why, and an
// ordered list of concrete actions.
type Candidate struct {
	ID            string   `json:"id"`
	Kind          string   `json:"kind"`
	Targets       []string `json:"targets"`
	Rationale     string   `json:"rationale"`
	Plan          []string `json:"plan"`
	FindingIDs    []string `json:"findingIds,omitempty"`
	CloneGroupIDs []string `json:"cloneGroupIds,omitempty"`
}

// Aggregator cross-references findings and clones against the code graph.
// The snapshot must carry resolved call edges.
type Aggregator struct {
	snap   *graph.Snapshot
	report *metrics.Report
	clones []clones.CloneGroup
	cfg    *config.Config
}

// New creates an aggregator over one analysis run's outputs.
func New(snap *graph.Snapshot, report *metrics.Report, cloneGroups []clones.CloneGroup, cfg *config.Config) *Aggregator {
	return &Aggregator{snap: snap, report: report, clones: cloneGroups, cfg: cfg}
}

// Candidates produces all refactoring candidates in deterministic order.
// A non-empty selection keeps only candidates tied to at least one of the
// given finding or clone-group ids.
func (a *Aggregator) Candidates(selected []string) []Candidate {
	var out []Candidate
	out = append(out, a.breakCycles()...)
	out = append(out, a.extractClasses()...)
	out = append(out, a.extractMethods()...)
	out = append(out, a.extractModules()...)
	out = append(out, a.moveFunctions()...)
	out = append(out, a.renames()...)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})

	if len(selected) == 0 {
		return out
	}
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	var filtered []Candidate
	for _, c := range out {
		keep := false
		for _, id := range append(append([]string(nil), c.FindingIDs...), c.CloneGroupIDs...) {
			if want[id] {
				keep = true
				break
			}
		}
		if keep {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func (a *Aggregator) breakCycles() []Candidate {
	var out []Candidate
	for _, f := range a.report.Findings {
		if f.Kind != metrics.SmellPackageCycle {
			continue
		}

		inSCC := make(map[string]bool, len(f.Members))
		for _, m := range f.Members {
			inSCC[m] = true
		}
		var edges []depEdge
		seen := make(map[depEdge]bool)
		for _, e := range a.snap.Edges() {
			if e.Kind != graph.EdgeImports && e.Kind != graph.EdgeCalls {
				continue
			}
			from, to := a.packageOf(e.From), a.packageOf(e.To)
			if from == to || !inSCC[from] || !inSCC[to] {
				continue
			}
			de := depEdge{From: from, To: to}
			if !seen[de] {
				seen[de] = true
				edges = append(edges, de)
			}
		}

		cut := feedbackEdges(f.Members, edges)
		plan := make([]string, 0, len(cut))
		for _, e := range cut {
			plan = append(plan, fmt.Sprintf(
				"remove the dependency %s -> %s, by inverting it or extracting the shared parts into a new package",
				e.From, e.To))
		}

		out = append(out, Candidate{
			ID:      KindBreakCycle + ":" + strings.Join(f.Members, ","),
			Kind:    KindBreakCycle,
			Targets: f.Members,
			Rationale: fmt.Sprintf(
				"packages %s form a dependency cycle; removing %d edge(s) breaks it (greedy heuristic, not guaranteed minimal)",
				strings.Join(f.Members, ", "), len(cut)),
			Plan:       plan,
			FindingIDs: []string{f.ID},
		})
	}
	return out
}

func (a *Aggregator) packageOf(id string) string {
	n := a.snap.Node(id)
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

// extractClasses partitions a flagged class's methods by shared-field access:
// methods touching a common field belong together, disjoint groups suggest a
// split.
func (a *Aggregator) extractClasses() []Candidate {
	var out []Candidate
	for _, f := range a.report.Findings {
		if f.Kind != metrics.SmellLargeClass {
			continue
		}
		cls := a.snap.Node(f.Target)
		if cls == nil {
			continue
		}

		groups := a.affinityGroups(cls)
		if len(groups) < 2 {
			continue
		}

		plan := make([]string, 0, len(groups))
		for i, g := range groups {
			label := "a new class"
			if i == 0 {
				label = cls.ID
			}
			plan = append(plan, fmt.Sprintf("keep methods [%s] (fields: %s) in %s",
				strings.Join(g.methods, ", "), strings.Join(g.fields, ", "), label))
		}

		out = append(out, Candidate{
			ID:      KindExtractClass + ":" + cls.ID,
			Kind:    KindExtractClass,
			Targets: []string{cls.ID},
			Rationale: fmt.Sprintf(
				"class %s groups into %d disjoint field-affinity clusters; each cluster can become its own class",
				cls.ID, len(groups)),
			Plan:       plan,
			FindingIDs: []string{f.ID},
		})
	}
	return out
}

type affinityGroup struct {
	methods []string
	fields  []string
}

func (a *Aggregator) affinityGroups(cls *graph.Node) []affinityGroup {
	type methodInfo struct {
		name   string
		fields []string
	}
	var methods []methodInfo
	for _, childID := range a.snap.Children(cls.ID) {
		m := a.snap.Node(childID)
		if m == nil || m.Kind != graph.NodeFunction {
			continue
		}
		methods = append(methods, methodInfo{name: m.Name, fields: m.SelfAccess})
	}

	// union-find over methods, joined through shared fields
	parent := make([]int, len(methods))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	fieldOwner := make(map[string]int)
	for i, m := range methods {
		for _, field := range m.fields {
			if j, ok := fieldOwner[field]; ok {
				parent[find(i)] = find(j)
			} else {
				fieldOwner[field] = i
			}
		}
	}

	byRoot := make(map[int]*affinityGroup)
	var order []int
	for i, m := range methods {
		if len(m.fields) == 0 {
			continue // stateless methods move freely, they never force a split
		}
		root := find(i)
		g, ok := byRoot[root]
		if !ok {
			g = &affinityGroup{}
			byRoot[root] = g
			order = append(order, root)
		}
		g.methods = append(g.methods, m.name)
		g.fields = append(g.fields, m.fields...)
	}

	out := make([]affinityGroup, 0, len(order))
	for _, root := range order {
		g := byRoot[root]
		g.fields = dedupeSorted(g.fields)
		out = append(out, *g)
	}
	return out
}

// extractMethods proposes pulling a clone group's duplicated body into one
// shared function when it spans at least two functions.
func (a *Aggregator) extractMethods() []Candidate {
	var out []Candidate
	for _, g := range a.clones {
		fns := make(map[string]bool)
		for _, o := range g.Occurrences {
			if fn := a.enclosingFunction(o.File, o.StartLine, o.EndLine); fn != "" {
				fns[fn] = true
			}
		}
		if len(fns) < 2 {
			continue
		}

		targets := make([]string, 0, len(fns))
		for fn := range fns {
			targets = append(targets, fn)
		}
		sort.Strings(targets)

		plan := []string{
			fmt.Sprintf("extract the duplicated %d-token block into a shared function", g.TokenLength),
		}
		for _, fn := range targets {
			plan = append(plan, fmt.Sprintf("replace the duplicated block in %s with a call to the new function", fn))
		}

		out = append(out, Candidate{
			ID:      KindExtractMethod + ":" + g.ID,
			Kind:    KindExtractMethod,
			Targets: targets,
			Rationale: fmt.Sprintf(
				"clone group %s duplicates %d tokens across %d functions",
				g.ID, g.TokenLength, len(targets)),
			Plan:          plan,
			CloneGroupIDs: []string{g.ID},
		})
	}
	return out
}

func (a *Aggregator) enclosingFunction(path string, startLine, endLine int) string {
	best := ""
	bestSize := 0
	for _, fn := range a.snap.NodesOfKind(graph.NodeFunction) {
		if fn.Path != path {
			continue
		}
		if fn.Range.StartLine <= startLine && endLine <= fn.Range.EndLine {
			if size := fn.Range.Lines(); best == "" || size < bestSize {
				best, bestSize = fn.ID, size
			}
		}
	}
	return best
}

// extractModules flags modules whose top-level declaration count crosses the
// class-methods threshold; the same "too many members" smell scaled up.
func (a *Aggregator) extractModules() []Candidate {
	var out []Candidate
	threshold := a.cfg.Thresholds.ClassMethods
	for _, mod := range a.snap.NodesOfKind(graph.NodeModule) {
		decls := 0
		for _, childID := range a.snap.Children(mod.ID) {
			if n := a.snap.Node(childID); n != nil && (n.Kind == graph.NodeClass || n.Kind == graph.NodeFunction) {
				decls++
			}
		}
		if decls <= threshold {
			continue
		}
		out = append(out, Candidate{
			ID:      KindExtractModule + ":" + mod.ID,
			Kind:    KindExtractModule,
			Targets: []string{mod.ID},
			Rationale: fmt.Sprintf(
				"module %s declares %d top-level symbols, over the limit of %d",
				mod.ID, decls, threshold),
			Plan: []string{
				fmt.Sprintf("split %s into smaller modules grouped by related declarations", mod.ID),
			},
		})
	}
	return out
}

// moveFunctions flags module-level functions calling another module more than
// their own; feature envy resolved by moving the function.
func (a *Aggregator) moveFunctions() []Candidate {
	var out []Candidate
	for _, fn := range a.snap.NodesOfKind(graph.NodeFunction) {
		if fn.Class != "" {
			continue
		}
		perModule := make(map[string]int)
		for _, e := range a.snap.EdgesFrom(fn.ID, graph.EdgeCalls) {
			target := a.snap.Node(e.To)
			if target == nil || target.Kind == graph.NodeExternal || target.Module == "" {
				continue
			}
			perModule[target.Module]++
		}

		own := perModule[fn.Module]
		bestMod, bestCount := "", own
		mods := make([]string, 0, len(perModule))
		for m := range perModule {
			mods = append(mods, m)
		}
		sort.Strings(mods)
		for _, m := range mods {
			if m != fn.Module && perModule[m] > bestCount {
				bestMod, bestCount = m, perModule[m]
			}
		}
		if bestMod == "" {
			continue
		}

		out = append(out, Candidate{
			ID:      KindMoveFunction + ":" + fn.ID,
			Kind:    KindMoveFunction,
			Targets: []string{fn.ID, bestMod},
			Rationale: fmt.Sprintf(
				"function %s calls into %s %d time(s) but its own module only %d time(s)",
				fn.ID, bestMod, bestCount, own),
			Plan: []string{
				fmt.Sprintf("move %s into module %s", fn.ID, bestMod),
				fmt.Sprintf("update importers of %s to the new location", fn.ID),
			},
		})
	}
	return out
}

// renames groups class and function names by stemmed words; groups mixing
// different spellings of the same concept get a consistency candidate.
func (a *Aggregator) renames() []Candidate {
	byStem := make(map[string][]*graph.Node)
	var stems []string
	for _, n := range a.snap.Nodes() {
		if n.Kind != graph.NodeClass && n.Kind != graph.NodeFunction {
			continue
		}
		stem := nameStem(n.Name)
		if stem == "" {
			continue
		}
		if _, ok := byStem[stem]; !ok {
			stems = append(stems, stem)
		}
		byStem[stem] = append(byStem[stem], n)
	}
	sort.Strings(stems)

	var out []Candidate
	for _, stem := range stems {
		group := byStem[stem]
		names := make(map[string]bool)
		for _, n := range group {
			names[n.Name] = true
		}
		if len(names) < 2 {
			continue
		}

		sortedNames := make([]string, 0, len(names))
		for name := range names {
			sortedNames = append(sortedNames, name)
		}
		sort.Strings(sortedNames)
		canonical := sortedNames[0]

		targets := make([]string, 0, len(group))
		for _, n := range group {
			targets = append(targets, n.ID)
		}
		sort.Strings(targets)

		var plan []string
		for _, n := range group {
			if n.Name != canonical {
				plan = append(plan, fmt.Sprintf("rename %s to %s (similarity %.2f)",
					n.ID, canonical, nameSimilarity(n.Name, canonical)))
			}
		}
		sort.Strings(plan)

		out = append(out, Candidate{
			ID:      KindRename + ":" + strings.ReplaceAll(stem, " ", "-"),
			Kind:    KindRename,
			Targets: targets,
			Rationale: fmt.Sprintf(
				"names %s spell the same concept differently; one consistent name aids search",
				strings.Join(sortedNames, ", ")),
			Plan: plan,
		})
	}
	return out
}

// RenderPrompt formats one candidate as structured text for an external
// elaboration adapter. The engine only produces this text, never consumes
// the adapter's output.
func RenderPrompt(c Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "REFACTOR CANDIDATE %s\n", c.ID)
	fmt.Fprintf(&b, "Kind: %s\n", c.Kind)
	b.WriteString("Targets:\n")
	for _, t := range c.Targets {
		fmt.Fprintf(&b, "  - %s\n", t)
	}
	fmt.Fprintf(&b, "Rationale: %s\n", c.Rationale)
	b.WriteString("Plan:\n")
	for i, step := range c.Plan {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
	}
	return b.String()
}

func dedupeSorted(values []string) []string {
	sort.Strings(values)
	out := values[:0]
	var prev string
	for i, v := range values {
		if i == 0 || v != prev {
			out = append(out, v)
		}
		prev = v
	}
	return out
}

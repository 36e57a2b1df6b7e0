// Package summary turns a graph snapshot and its metrics report into plain
// text at three granularities: per module, per package, and a repository
// overview. The text is a pure function of the inputs; the same snapshot
// always yields byte-identical output.
package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/standardbeagle/repolens/internal/debug"
	"github.com/standardbeagle/repolens/internal/graph"
	"github.com/standardbeagle/repolens/internal/lang"
	"github.com/standardbeagle/repolens/internal/metrics"
)

// Enhancer elaborates the deterministic summaries into richer prose. It runs
// on a side path only: errors are logged and discarded, and nothing in the
// deterministic output depends on it.
type Enhancer interface {
	Enhance(ctx context.Context, s *Summaries) (string, error)
}

// Summaries holds the generated text keyed by qualified name.
type Summaries struct {
	Overview string            `json:"overview"`
	Packages map[string]string `json:"packages"`
	Modules  map[string]string `json:"modules"`
}

// Render concatenates the overview, package and module summaries in sorted
// order into a single report.
func (s *Summaries) Render() string {
	var b strings.Builder
	b.WriteString(s.Overview)
	b.WriteString("\n")
	for _, pkg := range sortedKeys(s.Packages) {
		b.WriteString("\n")
		b.WriteString(s.Packages[pkg])
		b.WriteString("\n")
	}
	for _, mod := range sortedKeys(s.Modules) {
		b.WriteString("\n")
		b.WriteString(s.Modules[mod])
		b.WriteString("\n")
	}
	return b.String()
}

// Summarizer generates summaries for one analysis run.
type Summarizer struct {
	snap     *graph.Snapshot
	report   *metrics.Report
	enhancer Enhancer
}

// New creates a summarizer. enhancer may be nil.
func New(snap *graph.Snapshot, report *metrics.Report, enhancer Enhancer) *Summarizer {
	return &Summarizer{snap: snap, report: report, enhancer: enhancer}
}

// Summarize produces the deterministic summaries.
func (s *Summarizer) Summarize() *Summaries {
	out := &Summaries{
		Packages: make(map[string]string),
		Modules:  make(map[string]string),
	}

	modules := s.snap.NodesOfKind(graph.NodeModule)
	for _, mod := range modules {
		out.Modules[mod.ID] = s.summarizeModule(mod)
	}
	for _, pkg := range s.snap.NodesOfKind(graph.NodePackage) {
		out.Packages[pkg.ID] = s.summarizePackage(pkg)
	}
	out.Overview = s.overview(modules)
	return out
}

// Enhance runs the optional enhancement adapter over finished summaries. A
// nil or failing enhancer yields an empty string; the run is never affected.
func (s *Summarizer) Enhance(ctx context.Context, sums *Summaries) string {
	if s.enhancer == nil {
		return ""
	}
	text, err := s.enhancer.Enhance(ctx, sums)
	if err != nil {
		debug.LogAnalysis("summary enhancer failed: %v", err)
		return ""
	}
	return text
}

func (s *Summarizer) summarizeModule(mod *graph.Node) string {
	var classes, functions []string
	for _, childID := range s.snap.Children(mod.ID) {
		child := s.snap.Node(childID)
		if child == nil {
			continue
		}
		switch child.Kind {
		case graph.NodeClass:
			classes = append(classes, child.Name)
		case graph.NodeFunction:
			functions = append(functions, child.Name)
		}
	}

	var imports []string
	for _, e := range s.snap.EdgesFrom(mod.ID, graph.EdgeImports) {
		imports = append(imports, graph.RawName(e.To))
	}
	sort.Strings(imports)
	if len(imports) > 10 {
		imports = imports[:10]
	}

	parts := []string{fmt.Sprintf("Module %s at %s", mod.ID, mod.Path)}
	if len(classes) > 0 {
		parts = append(parts, "  Classes: "+strings.Join(classes, ", "))
	}
	if len(functions) > 0 {
		parts = append(parts, "  Functions: "+strings.Join(functions, ", "))
	}
	if len(imports) > 0 {
		parts = append(parts, "  Imports: "+strings.Join(imports, ", "))
	}
	return strings.Join(parts, "\n")
}

func (s *Summarizer) summarizePackage(pkg *graph.Node) string {
	modCount, classCount, funcCount := 0, 0, 0
	for _, childID := range s.snap.Children(pkg.ID) {
		child := s.snap.Node(childID)
		if child == nil || child.Kind != graph.NodeModule {
			continue
		}
		modCount++
		for _, memberID := range s.snap.Children(child.ID) {
			if m := s.snap.Node(memberID); m != nil {
				switch m.Kind {
				case graph.NodeClass:
					classCount++
				case graph.NodeFunction:
					funcCount++
				}
			}
		}
	}

	text := fmt.Sprintf("Package %s: %d modules, %d classes, %d functions",
		pkg.ID, modCount, classCount, funcCount)
	for _, pm := range s.report.Packages {
		if pm.ID == pkg.ID && pm.InCycle {
			text += "; part of a dependency cycle"
			break
		}
	}
	return text
}

func (s *Summarizer) overview(modules []*graph.Node) string {
	files, skipped, failed := 0, 0, 0
	classCount := len(s.snap.NodesOfKind(graph.NodeClass))
	funcCount := len(s.snap.NodesOfKind(graph.NodeFunction))
	for _, mod := range modules {
		files++
		switch mod.Status {
		case lang.StatusSkipped:
			skipped++
		case lang.StatusFailed:
			failed++
		}
	}
	pkgCount := len(s.snap.NodesOfKind(graph.NodePackage))

	text := fmt.Sprintf(
		"Repository at %s: %d files (%d skipped, %d failed), %d modules in %d packages, %d classes, %d functions",
		s.snap.Root(), files, skipped, failed, len(modules), pkgCount, classCount, funcCount)
	if n := len(s.report.Findings); n > 0 {
		text += fmt.Sprintf("; %d findings", n)
	}
	return text
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

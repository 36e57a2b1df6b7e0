package refactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/repolens/internal/callgraph"
	"github.com/standardbeagle/repolens/internal/clones"
	"github.com/standardbeagle/repolens/internal/config"
	"github.com/standardbeagle/repolens/internal/graph"
	"github.com/standardbeagle/repolens/internal/lang"
	"github.com/standardbeagle/repolens/internal/metrics"
)

func analyzed(t *testing.T, cfg *config.Config, build func(b *graph.Builder)) (*graph.Snapshot, *metrics.Report) {
	t.Helper()
	b := graph.NewBuilder("/repo")
	build(b)
	snap := b.Build("h")
	snap = snap.WithCallEdges(callgraph.New(snap).ResolveAll())
	return snap, metrics.Analyze(snap, cfg)
}

func TestBreakCycleCandidate(t *testing.T) {
	cfg := config.Default()
	snap, report := analyzed(t, cfg, func(b *graph.Builder) {
		b.SetFile(&lang.FileSymbols{Path: "a/x.py", Language: "python", Status: lang.StatusOK,
			Imports: []lang.ImportInfo{{Target: "b.x", Line: 1}}})
		b.SetFile(&lang.FileSymbols{Path: "b/x.py", Language: "python", Status: lang.StatusOK,
			Imports: []lang.ImportInfo{{Target: "c.x", Line: 1}}})
		b.SetFile(&lang.FileSymbols{Path: "c/x.py", Language: "python", Status: lang.StatusOK,
			Imports: []lang.ImportInfo{{Target: "a.x", Line: 1}}})
	})

	agg := New(snap, report, nil, cfg)
	var breaks []Candidate
	for _, c := range agg.Candidates(nil) {
		if c.Kind == KindBreakCycle {
			breaks = append(breaks, c)
		}
	}
	require.Len(t, breaks, 1)
	c := breaks[0]
	assert.Equal(t, []string{"a", "b", "c"}, c.Targets)
	// a single 3-cycle needs exactly one edge removed
	require.Len(t, c.Plan, 1)
	assert.Contains(t, c.Plan[0], "remove the dependency")
	require.Len(t, c.FindingIDs, 1)
}

func TestFeedbackEdgesDeterministic(t *testing.T) {
	nodes := []string{"a", "b", "c"}
	edges := []depEdge{{"a", "b"}, {"b", "c"}, {"c", "a"}}

	first := feedbackEdges(nodes, edges)
	second := feedbackEdges(nodes, edges)
	require.Len(t, first, 1)
	assert.Equal(t, first, second)
	// every edge lies on the single cycle; the tie breaks lexicographically
	assert.Equal(t, depEdge{"a", "b"}, first[0])
}

func TestFeedbackEdgesTwoCycles(t *testing.T) {
	// a↔b and a↔c: edges at a are shared by nothing; each cycle needs a cut
	nodes := []string{"a", "b", "c"}
	edges := []depEdge{{"a", "b"}, {"b", "a"}, {"a", "c"}, {"c", "a"}}
	cut := feedbackEdges(nodes, edges)
	assert.Len(t, cut, 2)
}

func TestExtractClassCandidate(t *testing.T) {
	cfg := config.Default()
	cfg.Thresholds.ClassMethods = 3
	snap, report := analyzed(t, cfg, func(b *graph.Builder) {
		b.SetFile(&lang.FileSymbols{Path: "blob.py", Language: "python", Status: lang.StatusOK,
			Classes: []lang.ClassInfo{{
				Name: "Blob",
				Methods: []lang.FunctionInfo{
					{Name: "read_a", SelfAccess: []string{"buf"}},
					{Name: "write_a", SelfAccess: []string{"buf", "pos"}},
					{Name: "read_b", SelfAccess: []string{"conn"}},
					{Name: "write_b", SelfAccess: []string{"conn", "retries"}},
				},
			}},
		})
	})

	agg := New(snap, report, nil, cfg)
	var extracts []Candidate
	for _, c := range agg.Candidates(nil) {
		if c.Kind == KindExtractClass {
			extracts = append(extracts, c)
		}
	}
	require.Len(t, extracts, 1)
	c := extracts[0]
	assert.Equal(t, []string{"blob.Blob"}, c.Targets)
	require.Len(t, c.Plan, 2, "buf/pos methods split from conn/retries methods")
	assert.Contains(t, c.Plan[0], "read_a")
	assert.Contains(t, c.Plan[1], "read_b")
}

func TestExtractMethodFromCloneGroup(t *testing.T) {
	cfg := config.Default()
	snap, report := analyzed(t, cfg, func(b *graph.Builder) {
		b.SetFile(&lang.FileSymbols{Path: "a.py", Language: "python", Status: lang.StatusOK,
			Functions: []lang.FunctionInfo{{Name: "f", Range: lang.SourceRange{StartLine: 1, EndLine: 30}}}})
		b.SetFile(&lang.FileSymbols{Path: "b.py", Language: "python", Status: lang.StatusOK,
			Functions: []lang.FunctionInfo{{Name: "g", Range: lang.SourceRange{StartLine: 1, EndLine: 30}}}})
	})

	group := clones.CloneGroup{
		ID:          "deadbeef00000000",
		TokenLength: 40,
		Occurrences: []clones.Occurrence{
			{File: "a.py", StartLine: 5, EndLine: 15},
			{File: "b.py", StartLine: 8, EndLine: 18},
		},
		Dispersion: 2,
	}

	agg := New(snap, report, []clones.CloneGroup{group}, cfg)
	var ems []Candidate
	for _, c := range agg.Candidates(nil) {
		if c.Kind == KindExtractMethod {
			ems = append(ems, c)
		}
	}
	require.Len(t, ems, 1)
	assert.Equal(t, []string{"a.f", "b.g"}, ems[0].Targets)
	assert.Equal(t, []string{"deadbeef00000000"}, ems[0].CloneGroupIDs)

	// selection by clone id keeps only the tied candidate
	selected := agg.Candidates([]string{"deadbeef00000000"})
	require.Len(t, selected, 1)
	assert.Equal(t, KindExtractMethod, selected[0].Kind)
}

func TestMoveFunctionCandidate(t *testing.T) {
	cfg := config.Default()
	snap, report := analyzed(t, cfg, func(b *graph.Builder) {
		b.SetFile(&lang.FileSymbols{Path: "app.py", Language: "python", Status: lang.StatusOK,
			Imports: []lang.ImportInfo{{Target: "store", Names: []string{"load", "save", "purge"}, Line: 1}},
			Functions: []lang.FunctionInfo{{
				Name: "sync",
				Calls: []lang.CallSite{
					{Callee: "load", Line: 3},
					{Callee: "save", Line: 4},
					{Callee: "purge", Line: 5},
				},
			}},
		})
		b.SetFile(&lang.FileSymbols{Path: "store.py", Language: "python", Status: lang.StatusOK,
			Functions: []lang.FunctionInfo{{Name: "load"}, {Name: "save"}, {Name: "purge"}}})
	})

	agg := New(snap, report, nil, cfg)
	var moves []Candidate
	for _, c := range agg.Candidates(nil) {
		if c.Kind == KindMoveFunction {
			moves = append(moves, c)
		}
	}
	require.Len(t, moves, 1)
	assert.Equal(t, []string{"app.sync", "store"}, moves[0].Targets)
}

func TestRenameCandidate(t *testing.T) {
	cfg := config.Default()
	snap, report := analyzed(t, cfg, func(b *graph.Builder) {
		b.SetFile(&lang.FileSymbols{Path: "a.py", Language: "python", Status: lang.StatusOK,
			Functions: []lang.FunctionInfo{{Name: "fetch_users"}}})
		b.SetFile(&lang.FileSymbols{Path: "b.py", Language: "python", Status: lang.StatusOK,
			Functions: []lang.FunctionInfo{{Name: "fetchUser"}}})
	})

	agg := New(snap, report, nil, cfg)
	var renames []Candidate
	for _, c := range agg.Candidates(nil) {
		if c.Kind == KindRename {
			renames = append(renames, c)
		}
	}
	require.Len(t, renames, 1)
	assert.ElementsMatch(t, []string{"a.fetch_users", "b.fetchUser"}, renames[0].Targets)
	require.NotEmpty(t, renames[0].Plan)
}

func TestNameStem(t *testing.T) {
	assert.Equal(t, nameStem("fetch_users"), nameStem("fetchUser"))
	assert.Equal(t, nameStem("HTTPServer"), nameStem("http_server"))
	assert.NotEqual(t, nameStem("parseConfig"), nameStem("writeConfig"))
}

func TestRenderPrompt(t *testing.T) {
	text := RenderPrompt(Candidate{
		ID:        "rename:fetch-user",
		Kind:      KindRename,
		Targets:   []string{"a.fetch_users", "b.fetchUser"},
		Rationale: "inconsistent naming",
		Plan:      []string{"rename b.fetchUser to fetch_users"},
	})

	assert.Contains(t, text, "REFACTOR CANDIDATE rename:fetch-user")
	assert.Contains(t, text, "Kind: rename")
	assert.Contains(t, text, "  - a.fetch_users")
	assert.Contains(t, text, "  1. rename b.fetchUser to fetch_users")
}

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/repolens/internal/callgraph"
	"github.com/standardbeagle/repolens/internal/config"
	"github.com/standardbeagle/repolens/internal/graph"
	"github.com/standardbeagle/repolens/internal/lang"
)

func resolve(snap *graph.Snapshot) *graph.Snapshot {
	return snap.WithCallEdges(callgraph.New(snap).ResolveAll())
}

func TestTarjanSingleCycleFinding(t *testing.T) {
	// A → B → C → A plus an acyclic bystander D
	b := graph.NewBuilder("/repo")
	b.SetFile(&lang.FileSymbols{
		Path: "a/x.py", Language: "python", Status: lang.StatusOK,
		Imports: []lang.ImportInfo{{Target: "b.x", Line: 1}},
	})
	b.SetFile(&lang.FileSymbols{
		Path: "b/x.py", Language: "python", Status: lang.StatusOK,
		Imports: []lang.ImportInfo{{Target: "c.x", Line: 1}},
	})
	b.SetFile(&lang.FileSymbols{
		Path: "c/x.py", Language: "python", Status: lang.StatusOK,
		Imports: []lang.ImportInfo{{Target: "a.x", Line: 1}},
	})
	b.SetFile(&lang.FileSymbols{
		Path: "d/x.py", Language: "python", Status: lang.StatusOK,
		Imports: []lang.ImportInfo{{Target: "a.x", Line: 1}},
	})
	r := Analyze(b.Build("h"), config.Default())

	require.Len(t, r.Cycles, 1, "exactly one SCC finding")
	assert.Equal(t, []string{"a", "b", "c"}, r.Cycles[0])

	var cycleFindings []SmellFinding
	for _, f := range r.Findings {
		if f.Kind == SmellPackageCycle {
			cycleFindings = append(cycleFindings, f)
		}
	}
	require.Len(t, cycleFindings, 1)
	assert.Equal(t, []string{"a", "b", "c"}, cycleFindings[0].Members)
	assert.Equal(t, "high", cycleFindings[0].Severity)

	for _, p := range r.Packages {
		switch p.ID {
		case "a", "b", "c":
			assert.True(t, p.InCycle, "%s participates in the cycle", p.ID)
		default:
			assert.False(t, p.InCycle, "%s is acyclic", p.ID)
		}
	}
}

func TestFunctionMetricsAndComplexity(t *testing.T) {
	b := graph.NewBuilder("/repo")
	b.SetFile(&lang.FileSymbols{
		Path: "m.py", Language: "python", Status: lang.StatusOK,
		Functions: []lang.FunctionInfo{
			{
				Name:  "plain",
				Range: lang.SourceRange{StartLine: 1, EndLine: 3},
			},
			{
				Name:           "branchy",
				Params:         []lang.Param{{Name: "a"}, {Name: "b"}},
				Range:          lang.SourceRange{StartLine: 5, EndLine: 30},
				DecisionPoints: 3,
				Calls: []lang.CallSite{
					{Callee: "plain", Line: 6},
					{Callee: "plain", Line: 7},
					{Callee: "open", Line: 8},
				},
			},
		},
	})
	r := Analyze(resolve(b.Build("h")), config.Default())

	require.Len(t, r.Functions, 2)
	plain := r.Functions[0]
	assert.Equal(t, 1, plain.Complexity, "zero decision points means complexity 1")
	assert.Equal(t, 3, plain.LOC)
	assert.Zero(t, plain.FanOut)

	branchy := r.Functions[1]
	assert.Equal(t, 4, branchy.Complexity)
	assert.Equal(t, 2, branchy.Params)
	assert.Equal(t, 2, branchy.FanOut, "fan-out counts distinct callees")
}

func TestClassFanIn(t *testing.T) {
	b := graph.NewBuilder("/repo")
	b.SetFile(&lang.FileSymbols{
		Path: "svc.py", Language: "python", Status: lang.StatusOK,
		Classes: []lang.ClassInfo{{
			Name: "Service",
			Methods: []lang.FunctionInfo{
				{Name: "run", Calls: []lang.CallSite{
					{Callee: "step", Receiver: "self", IsAttribute: true, Line: 2},
				}},
				{Name: "step"},
			},
		}},
		Functions: []lang.FunctionInfo{
			{Name: "boot", Calls: []lang.CallSite{
				{Callee: "run", Receiver: "svc", IsAttribute: true, Line: 9},
			}},
		},
	})
	r := Analyze(resolve(b.Build("h")), config.Default())

	require.Len(t, r.Classes, 1)
	svc := r.Classes[0]
	assert.Equal(t, 2, svc.Methods)
	// boot calls in from outside; run → step stays inside the class
	assert.Equal(t, 1, svc.FanIn)
}

func TestCouplingAndInstability(t *testing.T) {
	b := graph.NewBuilder("/repo")
	b.SetFile(&lang.FileSymbols{
		Path: "app.py", Language: "python", Status: lang.StatusOK,
		Imports: []lang.ImportInfo{
			{Target: "lib", Line: 1},
			{Target: "requests", Line: 2},
		},
	})
	b.SetFile(&lang.FileSymbols{
		Path: "lib.py", Language: "python", Status: lang.StatusOK,
		Classes: []lang.ClassInfo{
			{Name: "Iface", IsAbstract: true},
			{Name: "Impl"},
		},
	})
	r := Analyze(b.Build("h"), config.Default())

	byID := map[string]CouplingMetrics{}
	for _, m := range r.Modules {
		byID[m.ID] = m
	}

	app := byID["app"]
	assert.Equal(t, 0, app.Ca)
	assert.Equal(t, 2, app.Ce, "external imports count toward efferent coupling")
	assert.Equal(t, 1.0, app.Instability)

	lib := byID["lib"]
	assert.Equal(t, 1, lib.Ca)
	assert.Equal(t, 0, lib.Ce)
	assert.Equal(t, 0.0, lib.Instability)
	assert.Equal(t, 0.5, lib.Abstractness)
}

func TestInstabilityZeroWhenUncoupled(t *testing.T) {
	b := graph.NewBuilder("/repo")
	b.SetFile(&lang.FileSymbols{Path: "island.py", Language: "python", Status: lang.StatusOK})
	r := Analyze(b.Build("h"), config.Default())

	require.Len(t, r.Modules, 1)
	assert.Equal(t, 0.0, r.Modules[0].Instability)
}

func TestThresholdFindings(t *testing.T) {
	cfg := config.Default()
	cfg.Thresholds.FunctionLines = 5
	cfg.Thresholds.FunctionComplexity = 2
	cfg.Thresholds.FunctionParams = 1
	cfg.Thresholds.ClassMethods = 1

	b := graph.NewBuilder("/repo")
	b.SetFile(&lang.FileSymbols{
		Path: "m.py", Language: "python", Status: lang.StatusOK,
		Classes: []lang.ClassInfo{{
			Name: "Big",
			Methods: []lang.FunctionInfo{
				{Name: "a"}, {Name: "b"},
			},
		}},
		Functions: []lang.FunctionInfo{{
			Name:           "bad",
			Params:         []lang.Param{{Name: "x"}, {Name: "y"}},
			Range:          lang.SourceRange{StartLine: 1, EndLine: 20},
			DecisionPoints: 5,
		}},
	})
	r := Analyze(b.Build("h"), cfg)

	kinds := map[SmellKind]SmellFinding{}
	for _, f := range r.Findings {
		kinds[f.Kind] = f
	}

	long := kinds[SmellLongFunction]
	assert.Equal(t, "m.bad", long.Target)
	assert.Equal(t, 20.0, long.Value)
	assert.Equal(t, 5.0, long.Threshold)
	assert.Equal(t, "high", long.Severity, "double the threshold escalates severity")
	assert.Contains(t, long.Rationale, "m.bad")

	assert.Contains(t, kinds, SmellComplexFunction)
	assert.Contains(t, kinds, SmellManyParams)
	assert.Equal(t, "m.Big", kinds[SmellLargeClass].Target)
}

func TestNoFindingsBelowThresholds(t *testing.T) {
	b := graph.NewBuilder("/repo")
	b.SetFile(&lang.FileSymbols{
		Path: "m.py", Language: "python", Status: lang.StatusOK,
		Functions: []lang.FunctionInfo{{
			Name:  "tiny",
			Range: lang.SourceRange{StartLine: 1, EndLine: 2},
		}},
	})
	r := Analyze(b.Build("h"), config.Default())
	assert.Empty(t, r.Findings)
}

func TestStronglyConnectedDirect(t *testing.T) {
	cycles := stronglyConnected(
		[]string{"a", "b", "c", "d", "e"},
		map[string][]string{
			"a": {"b"},
			"b": {"c"},
			"c": {"a"},
			"d": {"e"},
		},
	)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "c"}, cycles[0])
}

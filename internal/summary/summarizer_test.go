package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/repolens/internal/config"
	"github.com/standardbeagle/repolens/internal/graph"
	"github.com/standardbeagle/repolens/internal/lang"
	"github.com/standardbeagle/repolens/internal/metrics"
)

func buildRepo(t *testing.T) (*graph.Snapshot, *metrics.Report) {
	t.Helper()
	b := graph.NewBuilder("/repo")
	b.SetFile(&lang.FileSymbols{Path: "pkg/a.py", Language: "python", Status: lang.StatusOK,
		Imports: []lang.ImportInfo{
			{Target: "pkg.b", Names: []string{"g"}, Line: 1},
			{Target: "os", Line: 2},
		},
		Functions: []lang.FunctionInfo{{Name: "f"}},
	})
	b.SetFile(&lang.FileSymbols{Path: "pkg/b.py", Language: "python", Status: lang.StatusOK,
		Classes:   []lang.ClassInfo{{Name: "Widget"}},
		Functions: []lang.FunctionInfo{{Name: "g"}},
	})
	b.SetFile(&lang.FileSymbols{Path: "data.bin", Language: "", Status: lang.StatusSkipped})
	snap := b.Build("h1")
	return snap, metrics.Analyze(snap, config.Default())
}

func TestModuleSummary(t *testing.T) {
	snap, report := buildRepo(t)
	sums := New(snap, report, nil).Summarize()

	text, ok := sums.Modules["pkg.a"]
	require.True(t, ok)
	assert.Equal(t, "Module pkg.a at pkg/a.py\n  Functions: f\n  Imports: os, pkg.b", text)

	assert.Contains(t, sums.Modules["pkg.b"], "Classes: Widget")
}

func TestPackageSummary(t *testing.T) {
	snap, report := buildRepo(t)
	sums := New(snap, report, nil).Summarize()

	assert.Equal(t, "Package pkg: 2 modules, 1 classes, 2 functions", sums.Packages["pkg"])
}

func TestOverviewCounts(t *testing.T) {
	snap, report := buildRepo(t)
	sums := New(snap, report, nil).Summarize()

	assert.Contains(t, sums.Overview, "Repository at /repo: 3 files (1 skipped, 0 failed)")
	assert.Contains(t, sums.Overview, "3 modules")
}

func TestSummariesDeterministic(t *testing.T) {
	snap, report := buildRepo(t)
	first := New(snap, report, nil).Summarize().Render()
	second := New(snap, report, nil).Summarize().Render()
	assert.Equal(t, first, second)
}

type failingEnhancer struct{}

func (failingEnhancer) Enhance(context.Context, *Summaries) (string, error) {
	return "", errors.New("adapter down")
}

type staticEnhancer struct{}

func (staticEnhancer) Enhance(context.Context, *Summaries) (string, error) {
	return "elaborated", nil
}

func TestEnhancerIsOptional(t *testing.T) {
	snap, report := buildRepo(t)

	plain := New(snap, report, nil)
	sums := plain.Summarize()
	assert.Equal(t, "", plain.Enhance(context.Background(), sums))

	failing := New(snap, report, failingEnhancer{})
	withFailure := failing.Summarize()
	assert.Equal(t, "", failing.Enhance(context.Background(), withFailure))
	assert.Equal(t, sums.Render(), withFailure.Render(), "enhancer failure must not change deterministic output")

	working := New(snap, report, staticEnhancer{})
	assert.Equal(t, "elaborated", working.Enhance(context.Background(), working.Summarize()))
}

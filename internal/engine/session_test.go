package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/repolens/internal/config"
	"github.com/standardbeagle/repolens/internal/graph"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func newSession(t *testing.T, root string) *Session {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = root
	s, err := NewSession(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func twoModuleRepo(t *testing.T) string {
	return writeRepo(t, map[string]string{
		"a.py": "from b import g\n\ndef f():\n    return g()\n",
		"b.py": "def g():\n    return 1\n",
	})
}

func factsJSON(t *testing.T, s *Session) []byte {
	t.Helper()
	facts, err := s.Facts()
	require.NoError(t, err)
	data, err := json.Marshal(facts)
	require.NoError(t, err)
	return data
}

func TestAnalyzeEndToEnd(t *testing.T) {
	s := newSession(t, twoModuleRepo(t))
	require.NoError(t, s.Analyze(context.Background()))

	facts, err := s.Facts()
	require.NoError(t, err)
	var callEdge bool
	for _, e := range facts.Edges {
		if e.Kind == graph.EdgeCalls && e.From == "a.f" && e.To == "b.g" {
			callEdge = true
			assert.True(t, e.Approximate)
		}
	}
	assert.True(t, callEdge, "a.f must call b.g")

	issues, err := s.Issues()
	require.NoError(t, err)
	assert.Empty(t, issues)

	groups, err := s.Clones()
	require.NoError(t, err)
	assert.Empty(t, groups)

	sums, err := s.Summaries()
	require.NoError(t, err)
	rendered := sums.Render()
	assert.Contains(t, rendered, "Module a")
	assert.Contains(t, rendered, "Module b")
	assert.Contains(t, sums.Packages[graph.RootPackage], "2 modules")
}

func TestAccessorsBeforeAnalyze(t *testing.T) {
	s := newSession(t, twoModuleRepo(t))

	_, err := s.Facts()
	assert.ErrorIs(t, err, ErrNoAnalysis)
	_, err = s.Clones()
	assert.ErrorIs(t, err, ErrNoAnalysis)
	_, err = s.CallGraph("a.f", 0, false)
	assert.ErrorIs(t, err, ErrNoAnalysis)
	assert.Equal(t, "", s.RepoHash())
}

func TestAnalyzeIdempotent(t *testing.T) {
	root := twoModuleRepo(t)

	s1 := newSession(t, root)
	require.NoError(t, s1.Analyze(context.Background()))
	s2 := newSession(t, root)
	require.NoError(t, s2.Analyze(context.Background()))

	assert.Equal(t, factsJSON(t, s1), factsJSON(t, s2))

	sums1, err := s1.Summaries()
	require.NoError(t, err)
	sums2, err := s2.Summaries()
	require.NoError(t, err)
	assert.Equal(t, sums1.Render(), sums2.Render())

	// a rerun on unchanged content reuses the published run
	hash := s1.RepoHash()
	require.NoError(t, s1.Analyze(context.Background()))
	assert.Equal(t, hash, s1.RepoHash())
}

func TestIncrementalMatchesFullRebuild(t *testing.T) {
	root := twoModuleRepo(t)

	incremental := newSession(t, root)
	require.NoError(t, incremental.Analyze(context.Background()))
	before := incremental.RepoHash()

	content := "def g():\n    return 1\n\ndef h():\n    return g()\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.py"), []byte(content), 0o644))
	require.NoError(t, incremental.Analyze(context.Background()))
	assert.NotEqual(t, before, incremental.RepoHash())

	fresh := newSession(t, root)
	require.NoError(t, fresh.Analyze(context.Background()))

	assert.Equal(t, factsJSON(t, fresh), factsJSON(t, incremental))
	assert.Equal(t, fresh.RepoHash(), incremental.RepoHash())
}

func TestRemovedFileLeavesNoStaleNodes(t *testing.T) {
	root := twoModuleRepo(t)
	s := newSession(t, root)
	require.NoError(t, s.Analyze(context.Background()))

	require.NoError(t, os.Remove(filepath.Join(root, "b.py")))
	require.NoError(t, s.Analyze(context.Background()))

	facts, err := s.Facts()
	require.NoError(t, err)
	for _, n := range facts.Nodes {
		assert.NotEqual(t, "b.g", n.ID, "removed file's symbols must not survive")
	}
}

func TestSourceRetrieval(t *testing.T) {
	root := twoModuleRepo(t)
	s := newSession(t, root)
	require.NoError(t, s.Analyze(context.Background()))

	whole, err := s.Source("a.py", "")
	require.NoError(t, err)
	assert.Equal(t, "python", whole.Language)
	assert.Contains(t, whole.Text, "from b import g")

	fn, err := s.Source("a.py", "a.f")
	require.NoError(t, err)
	assert.Contains(t, fn.Text, "def f():")
	assert.NotContains(t, fn.Text, "import")
	assert.Equal(t, 3, fn.Range.StartLine)

	_, err = s.Source("missing.py", "")
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = s.Source("a.py", "b.g")
	assert.ErrorAs(t, err, &notFound)
}

func TestCallGraphAccessor(t *testing.T) {
	root := twoModuleRepo(t)
	s := newSession(t, root)
	require.NoError(t, s.Analyze(context.Background()))

	result, err := s.CallGraph("a.f", 0, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Depths["a.f"])
	assert.Equal(t, 1, result.Depths["b.g"])

	_, err = s.CallGraph("a.nope", 0, false)
	assert.Error(t, err)

	paths, err := s.CallPaths("a.f", "b.g", 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a.f", "b.g"}}, paths)
}

func TestInvalidateForcesRebuild(t *testing.T) {
	root := twoModuleRepo(t)
	s := newSession(t, root)
	require.NoError(t, s.Analyze(context.Background()))
	before := factsJSON(t, s)

	s.Invalidate()
	_, err := s.Facts()
	assert.ErrorIs(t, err, ErrNoAnalysis)

	require.NoError(t, s.Analyze(context.Background()))
	assert.Equal(t, before, factsJSON(t, s))
}

func TestSessionRejectsBadRoot(t *testing.T) {
	cfg := config.Default()
	cfg.Project.Root = filepath.Join(t.TempDir(), "does-not-exist")
	_, err := NewSession(cfg)
	var cfgErr *config.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestParseFailureIsLocal(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"ok.py":     "def fine():\n    return 1\n",
		"broken.py": "def broken(:\n",
	})
	s := newSession(t, root)
	require.NoError(t, s.Analyze(context.Background()))

	facts, err := s.Facts()
	require.NoError(t, err)
	var okSeen, brokenFailed bool
	for _, n := range facts.Nodes {
		if n.ID == "ok.fine" {
			okSeen = true
		}
		if n.ID == "broken" && n.Status == "failed" {
			brokenFailed = true
		}
	}
	assert.True(t, okSeen, "healthy files still analyzed")
	assert.True(t, brokenFailed, "broken file recorded as failed")

	sums, err := s.Summaries()
	require.NoError(t, err)
	assert.Contains(t, sums.Overview, "1 failed")
}

func TestWatcherTriggersIncrementalRun(t *testing.T) {
	root := twoModuleRepo(t)

	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Performance.WatchDebounceMs = 50
	s, err := NewSession(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Analyze(context.Background()))
	before := s.RepoHash()

	ran := make(chan error, 8)
	w, err := NewWatcher(s, func(err error) { ran <- err })
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer func() { require.NoError(t, w.Stop()) }()

	content := "def g():\n    return 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.py"), []byte(content), 0o644))

	select {
	case err := <-ran:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not trigger a run")
	}
	assert.NotEqual(t, before, s.RepoHash())
}

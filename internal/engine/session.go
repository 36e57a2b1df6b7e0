// Package engine ties the analysis components into one session-scoped
// pipeline: scan, parallel extraction, graph merge, call resolution, metrics,
// clone detection, aggregation and summarization.
//
// A session is keyed by the repository content hash. Rerunning Analyze on
// unchanged content reuses the published results; a content change triggers an
// incremental rebuild where only changed files are re-extracted. Published
// results are immutable, so accessors never observe a half-updated run.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/repolens/internal/callgraph"
	"github.com/standardbeagle/repolens/internal/clones"
	"github.com/standardbeagle/repolens/internal/config"
	"github.com/standardbeagle/repolens/internal/debug"
	"github.com/standardbeagle/repolens/internal/graph"
	"github.com/standardbeagle/repolens/internal/lang"
	"github.com/standardbeagle/repolens/internal/metrics"
	"github.com/standardbeagle/repolens/internal/refactor"
	"github.com/standardbeagle/repolens/internal/scanner"
	"github.com/standardbeagle/repolens/internal/summary"
)

// cachedExtraction pairs a symbol table with the content hash it was derived
// from, so a stale entry is detected instead of served.
type cachedExtraction struct {
	hash uint64
	syms *lang.FileSymbols
}

// run is the immutable outcome of one analysis. A new run replaces the old
// one wholesale.
type run struct {
	repoHash   string
	snap       *graph.Snapshot // carries resolved call edges
	report     *metrics.Report
	clones     []clones.CloneGroup
	aggregator *refactor.Aggregator
	summarizer *summary.Summarizer
	summaries  *summary.Summaries
	files      map[string]scanner.FileDesc
	scanErrors []*scanner.ScanError
}

// Session owns all per-repository analysis state.
type Session struct {
	cfg      *config.Config
	registry *lang.Registry
	builder  *graph.Builder
	cache    *lru.Cache[string, cachedExtraction]
	enhancer summary.Enhancer

	mu      sync.RWMutex
	known   map[string]bool // paths currently merged into the builder
	current *run
}

// NewSession validates the configuration and prepares an analysis session.
// No filesystem work happens until Analyze.
func NewSession(cfg *config.Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cache, err := lru.New[string, cachedExtraction](cfg.Performance.ExtractionCacheSize)
	if err != nil {
		return nil, err
	}
	return &Session{
		cfg:      cfg,
		registry: lang.NewRegistry(),
		builder:  graph.NewBuilder(cfg.Project.Root),
		cache:    cache,
		known:    make(map[string]bool),
	}, nil
}

// SetEnhancer installs the optional summary elaboration adapter. Must be
// called before Analyze to take effect for that run.
func (s *Session) SetEnhancer(e summary.Enhancer) {
	s.mu.Lock()
	s.enhancer = e
	s.mu.Unlock()
}

// Analyze runs the full pipeline. Per-file failures never abort the run;
// only scan-root and configuration problems do. Unchanged repository content
// reuses the previous run's results.
func (s *Session) Analyze(ctx context.Context) error {
	scan, err := scanner.New(s.cfg).Scan(ctx)
	if err != nil {
		return err
	}
	repoHash := fmt.Sprintf("%016x", scan.RepoHash)

	s.mu.RLock()
	prev := s.current
	s.mu.RUnlock()
	if prev != nil && prev.repoHash == repoHash {
		debug.LogAnalysis("content unchanged (%s), reusing published run\n", repoHash)
		return nil
	}

	symbols, err := s.extract(ctx, scan.Files)
	if err != nil {
		return err
	}

	// Merge is single-threaded: the builder is the one mutable index.
	s.mu.Lock()
	seen := make(map[string]bool, len(scan.Files))
	for i := range scan.Files {
		seen[scan.Files[i].Path] = true
	}
	for path := range s.known {
		if !seen[path] {
			s.builder.RemoveFile(path)
			delete(s.known, path)
		}
	}
	for _, syms := range symbols {
		s.builder.SetFile(syms)
		s.known[syms.Path] = true
	}
	snap := s.builder.Build(repoHash)
	enhancer := s.enhancer
	s.mu.Unlock()

	// Call resolution reads the snapshot; clone detection reads raw text
	// only. The two are independent.
	var calls []graph.Edge
	var cloneGroups []clones.CloneGroup
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		calls = callgraph.New(snap).ResolveAll()
		return gctx.Err()
	})
	g.Go(func() error {
		cloneGroups = s.detectClones(scan.Root, scan.Files)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return err
	}

	resolved := snap.WithCallEdges(calls)
	report := metrics.Analyze(resolved, s.cfg)
	summarizer := summary.New(resolved, report, enhancer)

	files := make(map[string]scanner.FileDesc, len(scan.Files))
	for _, f := range scan.Files {
		files[f.Path] = f
	}

	next := &run{
		repoHash:   repoHash,
		snap:       resolved,
		report:     report,
		clones:     cloneGroups,
		aggregator: refactor.New(resolved, report, cloneGroups, s.cfg),
		summarizer: summarizer,
		summaries:  summarizer.Summarize(),
		files:      files,
		scanErrors: scan.Errors,
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	debug.LogAnalysis("published run %s: %d files, %d findings, %d clone groups\n",
		repoHash, len(files), len(report.Findings), len(cloneGroups))
	return nil
}

// extract runs per-file symbol extraction in a bounded worker pool. Workers
// share nothing mutable beyond the thread-safe cache; each writes only its
// own result slot.
func (s *Session) extract(ctx context.Context, files []scanner.FileDesc) ([]*lang.FileSymbols, error) {
	out := make([]*lang.FileSymbols, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers())
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f := &files[i]
			if entry, ok := s.cache.Get(f.Path); ok {
				if entry.hash == f.Hash {
					out[i] = entry.syms
					return nil
				}
				// Stale facts are never served: drop and re-extract.
				debug.LogExtract("cache inconsistency for %s (have %016x, want %016x), re-extracting\n",
					f.Path, entry.hash, f.Hash)
				s.cache.Remove(f.Path)
			}
			syms := s.registry.Extract(f.Path, f.Content)
			s.cache.Add(f.Path, cachedExtraction{hash: f.Hash, syms: syms})
			out[i] = syms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session) detectClones(root string, files []scanner.FileDesc) []clones.CloneGroup {
	tokenized := make([]clones.FileTokens, 0, len(files))
	for _, f := range files {
		tokenized = append(tokenized, clones.FileTokens{Path: f.Path, Tokens: clones.Tokenize(f.Content)})
	}
	groups := clones.NewDetector(s.cfg).Detect(tokenized)

	if p := s.cfg.Clones.BaselinePath; p != "" {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		baseline, err := clones.LoadBaseline(p)
		if err != nil {
			debug.LogAnalysis("clone baseline %s unreadable: %v\n", p, err)
		} else {
			groups = baseline.Filter(groups)
		}
	}
	return groups
}

// RepoHash returns the content hash of the current run, or "" before any run.
func (s *Session) RepoHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.repoHash
}

// Invalidate discards the published run and the extraction cache, forcing the
// next Analyze to rebuild everything from disk.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.current = nil
	s.known = make(map[string]bool)
	s.builder = graph.NewBuilder(s.cfg.Project.Root)
	s.mu.Unlock()
	s.cache.Purge()
}

// Close tears down the session. Sessions hold no OS resources beyond the
// cache, so Close is Invalidate with lifecycle naming.
func (s *Session) Close() {
	s.Invalidate()
}

func (s *Session) published() (*run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoAnalysis
	}
	return s.current, nil
}

// Facts exports the normalized node/edge list of the current run.
func (s *Session) Facts() (*graph.Facts, error) {
	r, err := s.published()
	if err != nil {
		return nil, err
	}
	return r.snap.Facts(), nil
}

// SourceResult is one source retrieval from the in-memory file cache.
type SourceResult struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Range    lang.SourceRange `json:"range"`
}

// Source returns a file's cached text, narrowed to one symbol's range when a
// qualified name is given.
func (s *Session) Source(path, symbol string) (*SourceResult, error) {
	r, err := s.published()
	if err != nil {
		return nil, err
	}
	f, ok := r.files[path]
	if !ok {
		return nil, &NotFoundError{Kind: "file", Name: path}
	}

	lines := strings.Split(string(f.Content), "\n")
	if symbol == "" {
		return &SourceResult{
			Text:     string(f.Content),
			Language: f.Language,
			Range:    lang.SourceRange{StartLine: 1, EndLine: len(lines)},
		}, nil
	}

	node := r.snap.Node(symbol)
	if node == nil || node.Path != path {
		return nil, &NotFoundError{Kind: "symbol", Name: symbol}
	}
	start, end := node.Range.StartLine, node.Range.EndLine
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if end < start {
		end = start
	}
	return &SourceResult{
		Text:     strings.Join(lines[start-1:end], "\n"),
		Language: f.Language,
		Range:    lang.SourceRange{StartLine: start, EndLine: end},
	}, nil
}

// CallGraph expands the resolved call graph from an entry symbol.
func (s *Session) CallGraph(entry string, maxDepth int, includeExternal bool) (*callgraph.Result, error) {
	r, err := s.published()
	if err != nil {
		return nil, err
	}
	return callgraph.New(r.snap).Expand(entry, maxDepth, includeExternal)
}

// CallPaths lists simple call paths between two symbols in the current run.
func (s *Session) CallPaths(from, to string, maxDepth int) ([][]string, error) {
	r, err := s.published()
	if err != nil {
		return nil, err
	}
	return callgraph.New(r.snap).PathsBetween(from, to, maxDepth)
}

// Clones returns the current run's clone groups.
func (s *Session) Clones() ([]clones.CloneGroup, error) {
	r, err := s.published()
	if err != nil {
		return nil, err
	}
	return r.clones, nil
}

// Issues returns the current run's smell findings.
func (s *Session) Issues() ([]metrics.SmellFinding, error) {
	r, err := s.published()
	if err != nil {
		return nil, err
	}
	return r.report.Findings, nil
}

// Metrics returns the full metrics report of the current run.
func (s *Session) Metrics() (*metrics.Report, error) {
	r, err := s.published()
	if err != nil {
		return nil, err
	}
	return r.report, nil
}

// RefactorCandidates returns refactoring candidates, optionally narrowed to
// those tied to the selected finding or clone-group ids.
func (s *Session) RefactorCandidates(selected []string) ([]refactor.Candidate, error) {
	r, err := s.published()
	if err != nil {
		return nil, err
	}
	return r.aggregator.Candidates(selected), nil
}

// RenderPrompt renders one candidate, by id, as structured text.
func (s *Session) RenderPrompt(candidateID string) (string, error) {
	r, err := s.published()
	if err != nil {
		return "", err
	}
	for _, c := range r.aggregator.Candidates(nil) {
		if c.ID == candidateID {
			return refactor.RenderPrompt(c), nil
		}
	}
	return "", &NotFoundError{Kind: "candidate", Name: candidateID}
}

// Summaries returns the deterministic summaries of the current run.
func (s *Session) Summaries() (*summary.Summaries, error) {
	r, err := s.published()
	if err != nil {
		return nil, err
	}
	return r.summaries, nil
}

// EnhancedSummary runs the optional enhancement adapter over the current
// summaries. Without an adapter, or when it fails, the result is empty and
// the deterministic output is untouched.
func (s *Session) EnhancedSummary(ctx context.Context) (string, error) {
	r, err := s.published()
	if err != nil {
		return "", err
	}
	return r.summarizer.Enhance(ctx, r.summaries), nil
}

// ScanErrors returns unreadable paths recorded during the current run's scan.
func (s *Session) ScanErrors() ([]*scanner.ScanError, error) {
	r, err := s.published()
	if err != nil {
		return nil, err
	}
	return r.scanErrors, nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/repolens/internal/clones"
	"github.com/standardbeagle/repolens/internal/engine"
)

// newAnalyzedSession loads configuration, opens a session and runs one
// analysis. Every command starts here.
func newAnalyzedSession(c *cli.Context) (*engine.Session, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, err
	}
	session, err := engine.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	if err := session.Analyze(c.Context); err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func analyzeCommand(c *cli.Context) error {
	session, err := newAnalyzedSession(c)
	if err != nil {
		return err
	}
	defer session.Close()

	if c.Bool("json") {
		facts, err := session.Facts()
		if err != nil {
			return err
		}
		if err := printJSON(facts); err != nil {
			return err
		}
	} else {
		sums, err := session.Summaries()
		if err != nil {
			return err
		}
		issues, _ := session.Issues()
		groups, _ := session.Clones()
		fmt.Println(sums.Overview)
		fmt.Printf("Run %s: %d findings, %d clone groups\n", session.RepoHash(), len(issues), len(groups))
		if scanErrs, _ := session.ScanErrors(); len(scanErrs) > 0 {
			fmt.Printf("%d paths could not be read:\n", len(scanErrs))
			for _, e := range scanErrs {
				fmt.Printf("  %v\n", e)
			}
		}
	}

	if !c.Bool("watch") {
		return nil
	}

	watcher, err := engine.NewWatcher(session, func(runErr error) {
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "re-analysis failed: %v\n", runErr)
			return
		}
		fmt.Printf("re-analyzed, run %s\n", session.RepoHash())
	})
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	fmt.Println("Watching for changes, Ctrl-C to stop")
	<-ctx.Done()
	return watcher.Stop()
}

func summaryCommand(c *cli.Context) error {
	session, err := newAnalyzedSession(c)
	if err != nil {
		return err
	}
	defer session.Close()

	sums, err := session.Summaries()
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(sums)
	}
	fmt.Print(sums.Render())
	return nil
}

func callgraphCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: repolens callgraph <qualified-symbol>")
	}
	session, err := newAnalyzedSession(c)
	if err != nil {
		return err
	}
	defer session.Close()

	if target := c.String("to"); target != "" {
		paths, err := session.CallPaths(c.Args().First(), target, c.Int("depth"))
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return printJSON(paths)
		}
		if len(paths) == 0 {
			fmt.Println("No call paths found")
			return nil
		}
		for _, p := range paths {
			fmt.Println(strings.Join(p, " -> "))
		}
		return nil
	}

	result, err := session.CallGraph(c.Args().First(), c.Int("depth"), c.Bool("external"))
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(result)
	}
	for _, node := range result.Nodes {
		fmt.Printf("%*s%s\n", result.Depths[node]*2, "", node)
	}
	for _, e := range result.Edges {
		fmt.Printf("%s -> %s\n", e.From, e.To)
	}
	return nil
}

func clonesCommand(c *cli.Context) error {
	session, err := newAnalyzedSession(c)
	if err != nil {
		return err
	}
	defer session.Close()

	groups, err := session.Clones()
	if err != nil {
		return err
	}

	if c.Bool("update-baseline") {
		cfg, err := loadConfigWithOverrides(c)
		if err != nil {
			return err
		}
		path := cfg.Clones.BaselinePath
		if path == "" {
			path = clones.BaselineFileName
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Project.Root, path)
		}
		if err := clones.SaveBaseline(path, groups); err != nil {
			return err
		}
		fmt.Printf("Wrote %d clone groups to %s\n", len(groups), path)
		return nil
	}

	if c.Bool("json") {
		return printJSON(groups)
	}
	if len(groups) == 0 {
		fmt.Println("No clones found")
		return nil
	}
	for _, g := range groups {
		fmt.Printf("%s [%s] %d tokens, %.1f%% duplication across %d files\n",
			g.ID, g.Severity, g.TokenLength, g.DuplicationPct, g.Dispersion)
		for _, o := range g.Occurrences {
			fmt.Printf("  %s:%d-%d\n", o.File, o.StartLine, o.EndLine)
		}
	}
	return nil
}

func issuesCommand(c *cli.Context) error {
	session, err := newAnalyzedSession(c)
	if err != nil {
		return err
	}
	defer session.Close()

	findings, err := session.Issues()
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(findings)
	}
	if len(findings) == 0 {
		fmt.Println("No findings")
		return nil
	}
	for _, f := range findings {
		fmt.Printf("[%s] %s: %s\n", f.Severity, f.ID, f.Rationale)
	}
	return nil
}

func refactorCommand(c *cli.Context) error {
	session, err := newAnalyzedSession(c)
	if err != nil {
		return err
	}
	defer session.Close()

	if id := c.String("prompt"); id != "" {
		text, err := session.RenderPrompt(id)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	}

	candidates, err := session.RefactorCandidates(c.Args().Slice())
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(candidates)
	}
	if len(candidates) == 0 {
		fmt.Println("No refactoring candidates")
		return nil
	}
	for _, cand := range candidates {
		fmt.Printf("%s\n  targets: %s\n  %s\n", cand.ID, strings.Join(cand.Targets, ", "), cand.Rationale)
		for i, step := range cand.Plan {
			fmt.Printf("  %d. %s\n", i+1, step)
		}
	}
	return nil
}

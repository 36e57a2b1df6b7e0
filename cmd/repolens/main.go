package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/repolens/internal/config"
	"github.com/standardbeagle/repolens/internal/debug"
	"github.com/standardbeagle/repolens/internal/version"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")

	// If root is specified and config path is default, look for config in root directory
	if rootFlag := c.String("root"); rootFlag != "" && configPath == config.ConfigFileName {
		configPath = filepath.Join(rootFlag, config.ConfigFileName)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	if ignore := c.StringSlice("ignore"); len(ignore) > 0 {
		cfg.Scan.IgnorePatterns = append(cfg.Scan.IgnorePatterns, ignore...)
	}
	if rootFlag := c.String("root"); rootFlag != "" {
		absRoot, err := filepath.Abs(rootFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", rootFlag, err)
		}
		cfg.Project.Root = absRoot
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	app := &cli.App{
		Name:                   "repolens",
		Usage:                  "Static analysis facts for code repositories",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   config.ConfigFileName,
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Repository root to analyze (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "ignore",
				Usage: "Extra ignore globs (e.g., --ignore 'vendor/**')",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write debug logging to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				debug.EnableDebug = "true"
				debug.SetDebugOutput(os.Stderr)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:    "analyze",
				Aliases: []string{"a"},
				Usage:   "Run the full analysis pipeline and print an overview",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output the fact graph as JSON",
					},
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "Keep running and re-analyze on file changes",
					},
				},
				Action: analyzeCommand,
			},
			{
				Name:   "summary",
				Usage:  "Print deterministic package and module summaries",
				Action: summaryCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
			},
			{
				Name:      "callgraph",
				Usage:     "Expand the resolved call graph from an entry symbol",
				ArgsUsage: "<qualified-symbol>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "depth",
						Aliases: []string{"d"},
						Usage:   "Max expansion depth (0 = unlimited)",
						Value:   0,
					},
					&cli.BoolFlag{
						Name:  "external",
						Usage: "Include unresolved external callees",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "List call paths from the entry to this symbol instead of expanding",
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: callgraphCommand,
			},
			{
				Name:  "clones",
				Usage: "Report duplicated code ranges",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
					&cli.BoolFlag{
						Name:  "update-baseline",
						Usage: "Write current clone groups to the baseline file and exit",
					},
				},
				Action: clonesCommand,
			},
			{
				Name:   "issues",
				Usage:  "Report metric threshold findings",
				Action: issuesCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
			},
			{
				Name:      "refactor",
				Usage:     "Propose refactoring candidates from findings and clones",
				ArgsUsage: "[finding-or-clone-id ...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
					&cli.StringFlag{
						Name:  "prompt",
						Usage: "Render one candidate, by id, as structured prompt text",
					},
				},
				Action: refactorCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package config

import (
	"fmt"
	"os"
	"runtime"
)

// Default smell thresholds. These are deliberately conservative: findings are
// meant to surface genuine outliers, not to grade every function.
const (
	DefaultFunctionLines      = 50
	DefaultFunctionComplexity = 10
	DefaultFunctionParams     = 5
	DefaultClassMethods       = 20
	DefaultFunctionFanOut     = 15
)

// Default clone detector parameters. MinCloneTokens is the k-gram length,
// WinnowWindow the winnowing window; any duplicate span of at least
// MinCloneTokens+WinnowWindow-1 tokens is guaranteed to be fingerprinted.
const (
	DefaultMinCloneTokens = 25
	DefaultWinnowWindow   = 4
)

type Config struct {
	Version     int
	Project     Project
	Scan        Scan
	Performance Performance
	Clones      Clones
	Thresholds  Thresholds
}

type Project struct {
	Root string
	Name string
}

type Scan struct {
	IgnorePatterns   []string // doublestar globs relative to the repository root
	RespectGitignore bool     // Honor .gitignore at the repository root
	FollowSymlinks   bool
	MaxFileSize      int64 // Files above this size are recorded but not parsed
}

type Performance struct {
	ParallelFileWorkers int // 0 = auto-detect (NumCPU)
	ExtractionCacheSize int // LRU entries of per-file extraction results
	WatchMode           bool
	WatchDebounceMs     int // Debounce time for file change events
}

type Clones struct {
	MinCloneTokens int      // k: minimum clone length in tokens
	WinnowWindow   int      // w: winnowing window in fingerprints
	BaselinePath   string   // TOML snapshot of previously accepted clone groups
	Suppressions   []string // file:start-end or fp:<hex> exclusions
}

type Thresholds struct {
	FunctionLines      int
	FunctionComplexity int
	FunctionParams     int
	ClassMethods       int
	FunctionFanOut     int
}

// Default returns the default configuration rooted at the current directory.
func Default() *Config {
	root, _ := os.Getwd()
	if root == "" {
		root = "."
	}

	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Scan: Scan{
			IgnorePatterns:   []string{},
			RespectGitignore: true,
			FollowSymlinks:   false,
			MaxFileSize:      10 * 1024 * 1024,
		},
		Performance: Performance{
			ParallelFileWorkers: 0,
			ExtractionCacheSize: 4096,
			WatchMode:           false,
			WatchDebounceMs:     250,
		},
		Clones: Clones{
			MinCloneTokens: DefaultMinCloneTokens,
			WinnowWindow:   DefaultWinnowWindow,
			Suppressions:   []string{},
		},
		Thresholds: Thresholds{
			FunctionLines:      DefaultFunctionLines,
			FunctionComplexity: DefaultFunctionComplexity,
			FunctionParams:     DefaultFunctionParams,
			ClassMethods:       DefaultClassMethods,
			FunctionFanOut:     DefaultFunctionFanOut,
		},
	}
}

// Workers resolves the effective extraction worker count.
func (c *Config) Workers() int {
	if c.Performance.ParallelFileWorkers > 0 {
		return c.Performance.ParallelFileWorkers
	}
	return runtime.NumCPU()
}

// Load loads configuration from the given path, falling back to defaults when
// the file does not exist. The loaded configuration is validated; an invalid
// configuration fails loudly rather than producing misleading facts.
func Load(path string) (*Config, error) {
	cfg, err := LoadKDL(path)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// String returns a short human-readable description, used by the CLI status output.
func (c *Config) String() string {
	return fmt.Sprintf("root=%s workers=%d clone-k=%d clone-w=%d",
		c.Project.Root, c.Workers(), c.Clones.MinCloneTokens, c.Clones.WinnowWindow)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// ConfigFileName is the configuration file looked up in the repository root.
const ConfigFileName = ".repolens.kdl"

// LoadKDL attempts to load configuration from a .repolens.kdl file.
// Returns (nil, nil) when no config file exists so callers can fall back to defaults.
func LoadKDL(path string) (*Config, error) {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, ConfigFileName)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	// Resolve the project root relative to the directory containing the
	// config file so node identities do not depend on the invocation cwd.
	configDir := filepath.Dir(path)
	if cfg.Project.Root == "" {
		cfg.Project.Root = configDir
	} else if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Join(configDir, cfg.Project.Root)
	}
	cfg.Project.Root = filepath.Clean(cfg.Project.Root)

	return cfg, nil
}

func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children { // project { root "." name "foo" }
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "scan":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "ignore":
					cfg.Scan.IgnorePatterns = append(cfg.Scan.IgnorePatterns, collectStringArgs(cn)...)
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Scan.RespectGitignore = b
					}
				case "follow_symlinks":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Scan.FollowSymlinks = b
					}
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Scan.MaxFileSize = int64(v)
					}
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil {
							cfg.Scan.MaxFileSize = sz
						}
					}
				}
			}
		case "performance":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "workers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.ParallelFileWorkers = v
					}
				case "extraction_cache_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.ExtractionCacheSize = v
					}
				case "watch_mode":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Performance.WatchMode = b
					}
				case "watch_debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.WatchDebounceMs = v
					}
				}
			}
		case "clones":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "min_tokens":
					if v, ok := firstIntArg(cn); ok {
						cfg.Clones.MinCloneTokens = v
					}
				case "winnow_window":
					if v, ok := firstIntArg(cn); ok {
						cfg.Clones.WinnowWindow = v
					}
				case "baseline":
					if s, ok := firstStringArg(cn); ok {
						cfg.Clones.BaselinePath = s
					}
				case "suppress":
					cfg.Clones.Suppressions = append(cfg.Clones.Suppressions, collectStringArgs(cn)...)
				}
			}
		case "thresholds":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "function_lines":
					if v, ok := firstIntArg(cn); ok {
						cfg.Thresholds.FunctionLines = v
					}
				case "function_complexity":
					if v, ok := firstIntArg(cn); ok {
						cfg.Thresholds.FunctionComplexity = v
					}
				case "function_params":
					if v, ok := firstIntArg(cn); ok {
						cfg.Thresholds.FunctionParams = v
					}
				case "class_methods":
					if v, ok := firstIntArg(cn); ok {
						cfg.Thresholds.ClassMethods = v
					}
				case "function_fan_out":
					if v, ok := firstIntArg(cn); ok {
						cfg.Thresholds.FunctionFanOut = v
					}
				}
			}
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize parses human-readable sizes like "10MB" into bytes.
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		multiplier = 1
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return num * multiplier, nil
}

package clones

import (
	"errors"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// BaselineFileName is the default on-disk baseline location, relative to the
// repository root.
const BaselineFileName = ".repolens-baseline.toml"

// Baseline is a snapshot of previously accepted clone groups. Runs filtered
// through a baseline only surface new duplication.
type Baseline struct {
	Version int             `toml:"version"`
	Groups  []BaselineGroup `toml:"groups"`
}

// BaselineGroup records enough of an accepted group to recognize it later.
type BaselineGroup struct {
	ID          string   `toml:"id"`
	TokenLength int      `toml:"token_length"`
	Files       []string `toml:"files"`
}

// LoadBaseline reads a baseline file. A missing file is an empty baseline,
// not an error.
func LoadBaseline(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Baseline{Version: 1}, nil
		}
		return nil, err
	}

	var b Baseline
	if err := toml.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	if b.Version == 0 {
		b.Version = 1
	}
	return &b, nil
}

// SaveBaseline writes the current groups as the new accepted baseline.
func SaveBaseline(path string, groups []CloneGroup) error {
	b := Baseline{Version: 1}
	for _, g := range groups {
		files := make([]string, 0, len(g.Occurrences))
		seen := make(map[string]bool)
		for _, o := range g.Occurrences {
			if !seen[o.File] {
				seen[o.File] = true
				files = append(files, o.File)
			}
		}
		sort.Strings(files)
		b.Groups = append(b.Groups, BaselineGroup{
			ID:          g.ID,
			TokenLength: g.TokenLength,
			Files:       files,
		})
	}

	data, err := toml.Marshal(b)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Filter drops groups already present in the baseline, keeping order.
func (b *Baseline) Filter(groups []CloneGroup) []CloneGroup {
	if b == nil || len(b.Groups) == 0 {
		return groups
	}
	known := make(map[string]bool, len(b.Groups))
	for _, g := range b.Groups {
		known[g.ID] = true
	}

	var out []CloneGroup
	for _, g := range groups {
		if !known[g.ID] {
			out = append(out, g)
		}
	}
	return out
}

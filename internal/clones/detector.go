package clones

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/repolens/internal/config"
	"github.com/standardbeagle/repolens/internal/debug"
)

// Occurrence is one contiguous duplicated region inside a file. Token indexes
// are a half-open range into the file's token stream.
type Occurrence struct {
	File       string `json:"file"`
	StartLine  int    `json:"startLine"`
	EndLine    int    `json:"endLine"`
	StartToken int    `json:"startToken"`
	EndToken   int    `json:"endToken"`
}

func (o Occurrence) tokenLength() int { return o.EndToken - o.StartToken }

// CloneGroup is a set of occurrences sharing a retained fingerprint.
type CloneGroup struct {
	ID          string       `json:"id"` // fingerprint hex, stable across runs
	Fingerprint uint64       `json:"-"`
	TokenLength int          `json:"tokenLength"` // longest merged occurrence
	Occurrences []Occurrence `json:"occurrences"`
	// Approximate is always true: winnowing matches token windows, not
	// semantic equivalence.
	Approximate bool `json:"approximate"`
	// DuplicationPct is covered tokens over total tokens of involved files.
	DuplicationPct float64 `json:"duplicationPct"`
	Dispersion     int     `json:"dispersion"` // distinct files
	Severity       string  `json:"severity"`
}

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// FileTokens is one file's tokenized content.
type FileTokens struct {
	Path   string
	Tokens []Token
}

// Detector finds duplicated token ranges across a set of files.
type Detector struct {
	k            int // minimum clone length in tokens
	w            int // winnowing window
	suppressions []string
}

// NewDetector creates a detector from configuration.
func NewDetector(cfg *config.Config) *Detector {
	return &Detector{
		k:            cfg.Clones.MinCloneTokens,
		w:            cfg.Clones.WinnowWindow,
		suppressions: cfg.Clones.Suppressions,
	}
}

type position struct {
	file  int
	index int
}

// Detect runs fingerprint grouping over all files and returns merged clone
// groups in deterministic order. Groups matching a suppression pattern are
// dropped.
func (d *Detector) Detect(files []FileTokens) []CloneGroup {
	sorted := make([]FileTokens, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	byHash := make(map[uint64][]position)
	totalTokens := make(map[string]int, len(sorted))
	for fi, f := range sorted {
		totalTokens[f.Path] = len(f.Tokens)
		for _, fp := range fingerprintTokens(f.Tokens, d.k, d.w) {
			byHash[fp.Hash] = append(byHash[fp.Hash], position{file: fi, index: fp.Index})
		}
	}

	hashes := make([]uint64, 0, len(byHash))
	for h, positions := range byHash {
		if len(positions) > 1 {
			hashes = append(hashes, h)
		}
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	var groups []CloneGroup
	seenShape := make(map[string]bool)
	for _, h := range hashes {
		g, ok := d.buildGroup(h, byHash[h], sorted, totalTokens)
		if !ok {
			continue
		}
		// distinct fingerprints inside one duplicated span produce the same
		// merged occurrence set; keep the first
		shape := groupShape(g)
		if seenShape[shape] {
			continue
		}
		seenShape[shape] = true
		if d.suppressed(g) {
			debug.LogAnalysis("clone group %s suppressed\n", g.ID)
			continue
		}
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].Occurrences[0], groups[j].Occurrences[0]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.StartToken != b.StartToken {
			return a.StartToken < b.StartToken
		}
		return groups[i].ID < groups[j].ID
	})
	return groups
}

func (d *Detector) buildGroup(hash uint64, positions []position, files []FileTokens, totalTokens map[string]int) (CloneGroup, bool) {
	// expand each position to its k-gram range, then merge overlapping and
	// adjacent ranges per file
	perFile := make(map[int][][2]int)
	for _, p := range positions {
		perFile[p.file] = append(perFile[p.file], [2]int{p.index, p.index + d.k})
	}

	var occurrences []Occurrence
	fileSet := make(map[string]bool)
	for fi, ranges := range perFile {
		sort.Slice(ranges, func(i, j int) bool { return ranges[i][0] < ranges[j][0] })
		merged := ranges[:1]
		for _, r := range ranges[1:] {
			last := &merged[len(merged)-1]
			if r[0] <= last[1] {
				if r[1] > last[1] {
					last[1] = r[1]
				}
			} else {
				merged = append(merged, r)
			}
		}
		f := files[fi]
		for _, r := range merged {
			occurrences = append(occurrences, Occurrence{
				File:       f.Path,
				StartLine:  f.Tokens[r[0]].Line,
				EndLine:    f.Tokens[r[1]-1].Line,
				StartToken: r[0],
				EndToken:   r[1],
			})
			fileSet[f.Path] = true
		}
	}

	if len(occurrences) < 2 {
		return CloneGroup{}, false
	}

	sort.Slice(occurrences, func(i, j int) bool {
		if occurrences[i].File != occurrences[j].File {
			return occurrences[i].File < occurrences[j].File
		}
		return occurrences[i].StartToken < occurrences[j].StartToken
	})

	covered, longest := 0, 0
	involved := 0
	for _, o := range occurrences {
		covered += o.tokenLength()
		if o.tokenLength() > longest {
			longest = o.tokenLength()
		}
	}
	for f := range fileSet {
		involved += totalTokens[f]
	}

	g := CloneGroup{
		ID:          fmt.Sprintf("%016x", hash),
		Fingerprint: hash,
		TokenLength: longest,
		Occurrences: occurrences,
		Approximate: true,
		Dispersion:  len(fileSet),
	}
	if involved > 0 {
		g.DuplicationPct = 100 * float64(covered) / float64(involved)
	}
	g.Severity = severity(longest * len(occurrences))
	return g, true
}

// severity maps size × spread to a bucket; monotonic in both.
func severity(score int) string {
	switch {
	case score >= 400:
		return SeverityHigh
	case score >= 100:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func groupShape(g CloneGroup) string {
	shape := ""
	for _, o := range g.Occurrences {
		shape += fmt.Sprintf("%s:%d-%d;", o.File, o.StartToken, o.EndToken)
	}
	return shape
}

// suppressed reports whether a group matches the suppression list: `fp:<id>`
// entries match the group id, `path:start-end` entries match a group with an
// occurrence inside that line range, anything else is a doublestar path
// pattern that must cover every occurrence.
func (d *Detector) suppressed(g CloneGroup) bool {
	for _, s := range d.suppressions {
		if len(s) > 3 && s[:3] == "fp:" {
			if g.ID == s[3:] {
				return true
			}
			continue
		}
		if file, start, end, ok := parseRangeSuppression(s); ok {
			for _, o := range g.Occurrences {
				if o.File == file && o.StartLine >= start && o.EndLine <= end {
					return true
				}
			}
			continue
		}
		all := true
		for _, o := range g.Occurrences {
			if ok, err := doublestar.Match(s, o.File); err != nil || !ok {
				all = false
				break
			}
		}
		if all && len(g.Occurrences) > 0 {
			return true
		}
	}
	return false
}

// parseRangeSuppression splits a `path:start-end` entry. Entries whose tail
// is not a line range fall through to glob matching.
func parseRangeSuppression(s string) (file string, start, end int, ok bool) {
	sep := strings.LastIndexByte(s, ':')
	if sep <= 0 || sep == len(s)-1 {
		return "", 0, 0, false
	}
	dash := strings.IndexByte(s[sep+1:], '-')
	if dash <= 0 {
		return "", 0, 0, false
	}
	start, err := strconv.Atoi(s[sep+1 : sep+1+dash])
	if err != nil {
		return "", 0, 0, false
	}
	end, err = strconv.Atoi(s[sep+2+dash:])
	if err != nil || end < start || start < 1 {
		return "", 0, 0, false
	}
	return s[:sep], start, end, true
}

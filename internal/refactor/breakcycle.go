package refactor

import (
	"sort"
)

// depEdge is one package dependency edge inside an SCC.
type depEdge struct {
	From, To string
}

// feedbackEdges picks a small edge set whose removal makes the subgraph
// acyclic: repeatedly enumerate the simple cycles still present, drop the
// edge appearing on the most of them, ties broken lexicographically. Greedy,
// not optimal; optimality is a non-goal since minimum feedback edge set is
// NP-hard. Deterministic by construction.
func feedbackEdges(nodes []string, edges []depEdge) []depEdge {
	adjacency := make(map[string][]string)
	present := make(map[depEdge]bool)
	for _, e := range edges {
		if !present[e] {
			present[e] = true
			adjacency[e.From] = append(adjacency[e.From], e.To)
		}
	}
	for _, targets := range adjacency {
		sort.Strings(targets)
	}

	var removed []depEdge
	for {
		cycles := simpleCycles(nodes, adjacency)
		if len(cycles) == 0 {
			return removed
		}

		counts := make(map[depEdge]int)
		for _, cycle := range cycles {
			for i := range cycle {
				e := depEdge{From: cycle[i], To: cycle[(i+1)%len(cycle)]}
				counts[e]++
			}
		}

		var best depEdge
		bestCount := -1
		for e, c := range counts {
			if c > bestCount || (c == bestCount && lessEdge(e, best)) {
				best, bestCount = e, c
			}
		}

		removed = append(removed, best)
		targets := adjacency[best.From][:0]
		for _, t := range adjacency[best.From] {
			if t != best.To {
				targets = append(targets, t)
			}
		}
		adjacency[best.From] = targets
	}
}

func lessEdge(a, b depEdge) bool {
	if a.From != b.From {
		return a.From < b.From
	}
	return a.To < b.To
}

// simpleCycles enumerates simple cycles whose smallest node is the DFS root,
// so each cycle is found exactly once. Enumeration is capped; package SCCs
// are small in practice and the greedy loop only needs edge frequencies.
func simpleCycles(nodes []string, adjacency map[string][]string) [][]string {
	const maxCycles = 1000

	sorted := make([]string, len(nodes))
	copy(sorted, nodes)
	sort.Strings(sorted)

	var cycles [][]string
	for _, root := range sorted {
		if len(cycles) >= maxCycles {
			break
		}
		onPath := map[string]bool{root: true}
		var walk func(id string, trail []string)
		walk = func(id string, trail []string) {
			if len(cycles) >= maxCycles {
				return
			}
			for _, next := range adjacency[id] {
				if next < root {
					continue // canonical form: root is the smallest member
				}
				if next == root {
					cycles = append(cycles, append([]string(nil), trail...))
					continue
				}
				if !onPath[next] {
					onPath[next] = true
					walk(next, append(trail, next))
					delete(onPath, next)
				}
			}
		}
		walk(root, []string{root})
	}
	return cycles
}

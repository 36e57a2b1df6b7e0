package metrics

import (
	"sort"
)

// stronglyConnected runs Tarjan's algorithm over a directed graph given as
// sorted adjacency lists and returns the components of size > 1 — the
// dependency cycles. Members of each component are sorted and components are
// ordered by their first member, so output is deterministic regardless of
// traversal order.
func stronglyConnected(ids []string, adjacency map[string][]string) [][]string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	t := &tarjan{
		adjacency: adjacency,
		index:     make(map[string]int, len(ids)),
		lowlink:   make(map[string]int, len(ids)),
		onStack:   make(map[string]bool, len(ids)),
	}
	for _, id := range sorted {
		if _, visited := t.index[id]; !visited {
			t.strongconnect(id)
		}
	}

	var cycles [][]string
	for _, scc := range t.components {
		if len(scc) > 1 {
			sort.Strings(scc)
			cycles = append(cycles, scc)
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

type tarjan struct {
	adjacency  map[string][]string
	counter    int
	index      map[string]int
	lowlink    map[string]int
	stack      []string
	onStack    map[string]bool
	components [][]string
}

func (t *tarjan) strongconnect(v string) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.adjacency[v] {
		if _, visited := t.index[w]; !visited {
			t.strongconnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []string
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.components = append(t.components, scc)
	}
}

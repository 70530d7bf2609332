package contractfile

import (
	"fmt"
	"slices"
	"strings"
)

// DerivationCycle is a loop in the derivedFrom links between assumptions.
//
// Cycles are reported, not rejected: a contract file stays loadable, but
// the assumptions on the cycle have no grounding outside it.
type DerivationCycle struct {
	Path    []string `json:"path"`    // ["auth.login/a", "auth.login/b", "auth.login/a"]
	Message string   `json:"message"` // Human-readable description
}

// AssumptionKey is the manifest-wide name of an assumption.
func AssumptionKey(ruleID, assumptionID string) string {
	return ruleID + "/" + assumptionID
}

// DerivationCycles reports every cycle formed by assumption derivedFrom
// links. A derivedFrom value names an assumption of the same contract by
// id, or any assumption of the manifest by its AssumptionKey; other values
// are treated as external sources.
//
// Cycles are returned in manifest order. A manifest without cycles returns
// an empty slice.
func (m *Manifest) DerivationCycles() []DerivationCycle {
	graph, nodes := m.derivationGraph()

	var cycles []DerivationCycle
	for _, scc := range tarjanSCC(graph, nodes) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			cycles = append(cycles, sccToCycle(scc, graph, nodes))
		}
	}
	if cycles == nil {
		return []DerivationCycle{}
	}
	return cycles
}

// derivationGraph maps assumption key → assumption keys it derives from.
// nodes lists every key in manifest order.
type derivationGraph map[string][]string

func (m *Manifest) derivationGraph() (derivationGraph, []string) {
	graph := make(derivationGraph)
	var nodes []string
	for _, d := range m.Descriptors {
		if d.Contract == nil {
			continue
		}
		for _, a := range d.Contract.Assumptions {
			key := AssumptionKey(d.ID, a.ID)
			if _, dup := graph[key]; !dup {
				nodes = append(nodes, key)
			}
			graph[key] = []string{}
		}
	}

	for _, d := range m.Descriptors {
		if d.Contract == nil {
			continue
		}
		for _, a := range d.Contract.Assumptions {
			if a.DerivedFrom == "" {
				continue
			}
			key := AssumptionKey(d.ID, a.ID)
			if local := AssumptionKey(d.ID, a.DerivedFrom); hasNode(graph, local) {
				graph[key] = append(graph[key], local)
			} else if hasNode(graph, a.DerivedFrom) {
				graph[key] = append(graph[key], a.DerivedFrom)
			}
		}
	}
	return graph, nodes
}

func hasNode(graph derivationGraph, key string) bool {
	_, ok := graph[key]
	return ok
}

func hasSelfLoop(node string, graph derivationGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm,
// visiting nodes in the given order.
func tarjanSCC(graph derivationGraph, nodes []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// sccToCycle converts an SCC to a cycle starting at its earliest member in
// manifest order.
func sccToCycle(scc []string, graph derivationGraph, nodes []string) DerivationCycle {
	slices.SortFunc(scc, func(a, b string) int {
		return slices.Index(nodes, a) - slices.Index(nodes, b)
	})

	var path []string
	if len(scc) == 1 {
		path = []string{scc[0], scc[0]}
	} else {
		path = reconstructCyclePath(scc, graph)
	}
	return DerivationCycle{
		Path:    path,
		Message: fmt.Sprintf("assumption derivation cycle: %s", strings.Join(path, " → ")),
	}
}

// reconstructCyclePath follows edges inside the SCC from its first member
// until the walk returns to it.
func reconstructCyclePath(scc []string, graph derivationGraph) []string {
	inSCC := make(map[string]bool, len(scc))
	for _, node := range scc {
		inSCC[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if inSCC[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}

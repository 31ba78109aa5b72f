// Package causal parses the compact causal-structure notation into a
// directed graph and answers the structural queries the validators need:
// cycle detection, reachability and parent lookup.
package causal

import "sort"

// Graph is a directed graph over variable names. Node order follows
// first appearance in the parsed notation so traversals are
// deterministic for a given structure string.
type Graph struct {
	nodes []string
	index map[string]int
	out   map[string][]string
	in    map[string][]string
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		index: make(map[string]int),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}
}

// AddNode registers a node if it is not already present.
func (g *Graph) AddNode(name string) {
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.nodes)
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from → to, registering both endpoints.
// Parallel edges collapse into one.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	for _, existing := range g.out[from] {
		if existing == to {
			return
		}
	}
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
}

// Nodes returns node names in first-appearance order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Has reports whether the node exists.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Children returns the direct successors of name.
func (g *Graph) Children(name string) []string {
	return append([]string(nil), g.out[name]...)
}

// Parents returns the direct predecessors of name.
func (g *Graph) Parents(name string) []string {
	return append([]string(nil), g.in[name]...)
}

// EdgeCount returns the number of distinct directed edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, succ := range g.out {
		n += len(succ)
	}
	return n
}

// Reaches reports whether a directed path exists from one node to
// another. A node does not reach itself unless it sits on a cycle.
func (g *Graph) Reaches(from, to string) bool {
	if !g.Has(from) || !g.Has(to) {
		return false
	}
	visited := make(map[string]bool, len(g.nodes))
	stack := append([]string(nil), g.out[from]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if visited[n] {
			continue
		}
		visited[n] = true
		stack = append(stack, g.out[n]...)
	}
	return false
}

// Adjacent reports whether an edge exists between a and b in either
// direction.
func (g *Graph) Adjacent(a, b string) bool {
	for _, n := range g.out[a] {
		if n == b {
			return true
		}
	}
	for _, n := range g.out[b] {
		if n == a {
			return true
		}
	}
	return false
}

// Colliders returns, in node order, every node with at least two
// parents that are not themselves adjacent — the structural collider
// pattern A → C ← B with A and B unconnected.
func (g *Graph) Colliders() []string {
	var out []string
	for _, n := range g.nodes {
		parents := g.in[n]
		if len(parents) < 2 {
			continue
		}
		sorted := append([]string(nil), parents...)
		sort.Strings(sorted)
		found := false
		for i := 0; i < len(sorted) && !found; i++ {
			for j := i + 1; j < len(sorted) && !found; j++ {
				if !g.Adjacent(sorted[i], sorted[j]) {
					found = true
				}
			}
		}
		if found {
			out = append(out, n)
		}
	}
	return out
}

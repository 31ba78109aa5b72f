package causal

// Three-color DFS marking for cycle detection.
const (
	white = iota // unvisited
	gray         // on the recursion stack
	black        // fully explored
)

// FindCycle returns one directed cycle as a closed node sequence
// [v0, ..., v0], or nil if the graph is acyclic. DFS roots follow node
// order, so the same graph always yields the same cycle.
func (g *Graph) FindCycle() []string {
	state := make(map[string]int, len(g.nodes))
	var path []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		state[id] = gray
		path = append(path, id)
		for _, nbr := range g.out[id] {
			switch state[nbr] {
			case white:
				if visit(nbr) {
					return true
				}
			case gray:
				// Back edge: the cycle runs from nbr's position on the
				// path through the current node.
				idx := 0
				for i, v := range path {
					if v == nbr {
						idx = i
						break
					}
				}
				cycle = append(append([]string(nil), path[idx:]...), nbr)
				return true
			}
		}
		path = path[:len(path)-1]
		state[id] = black
		return false
	}

	for _, v := range g.nodes {
		if state[v] == white && visit(v) {
			return cycle
		}
	}
	return nil
}

// IsAcyclic reports whether the graph contains no directed cycle.
func (g *Graph) IsAcyclic() bool { return g.FindCycle() == nil }

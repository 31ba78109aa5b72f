package causal

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// Grammar: EDGE (',' EDGE)*, where EDGE is a chain of names joined by
// '->' or '<-' arrows. Chains may mix directions, so "A -> B <- C"
// yields the edges A→B and C→B.

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parse builds a directed graph from a causal-structure string.
// An empty string yields an empty graph.
func Parse(structure string) (*Graph, error) {
	g := NewGraph()
	trimmed := strings.TrimSpace(structure)
	if trimmed == "" {
		return g, nil
	}

	for _, chain := range strings.Split(trimmed, ",") {
		if err := parseChain(g, strings.TrimSpace(chain)); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// parseChain handles one comma-separated segment: NAME (ARROW NAME)+.
func parseChain(g *Graph, chain string) (err error) {
	if chain == "" {
		return eris.New("causal: empty edge segment")
	}

	tokens := tokenize(chain)
	if len(tokens) < 3 {
		return eris.Errorf("causal: segment %q is not an edge", chain)
	}
	if len(tokens)%2 == 0 {
		return eris.Errorf("causal: segment %q has a dangling arrow", chain)
	}

	for i := 0; i < len(tokens); i++ {
		if i%2 == 0 {
			if !namePattern.MatchString(tokens[i]) {
				return eris.Errorf("causal: invalid variable name %q in %q", tokens[i], chain)
			}
			continue
		}
		if tokens[i] != "->" && tokens[i] != "<-" {
			return eris.Errorf("causal: invalid arrow %q in %q", tokens[i], chain)
		}
	}

	for i := 1; i < len(tokens); i += 2 {
		left, arrow, right := tokens[i-1], tokens[i], tokens[i+1]
		if arrow == "->" {
			g.AddEdge(left, right)
		} else {
			g.AddEdge(right, left)
		}
	}
	return nil
}

// tokenize splits a chain on arrows, keeping the arrows as tokens.
func tokenize(chain string) []string {
	var tokens []string
	rest := chain
	for {
		fwd := strings.Index(rest, "->")
		back := strings.Index(rest, "<-")
		idx, arrow := fwd, "->"
		if fwd == -1 || (back != -1 && back < fwd) {
			idx, arrow = back, "<-"
		}
		if idx == -1 {
			tokens = append(tokens, strings.TrimSpace(rest))
			return tokens
		}
		tokens = append(tokens, strings.TrimSpace(rest[:idx]), arrow)
		rest = rest[idx+2:]
	}
}

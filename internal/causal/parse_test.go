package causal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("simple forward edge", func(t *testing.T) {
		t.Parallel()
		g, err := Parse("A -> B")
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, g.Nodes())
		assert.Equal(t, []string{"B"}, g.Children("A"))
	})

	t.Run("backward arrow reverses edge", func(t *testing.T) {
		t.Parallel()
		g, err := Parse("A <- B")
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, g.Children("B"))
		assert.Empty(t, g.Children("A"))
	})

	t.Run("mixed chain", func(t *testing.T) {
		t.Parallel()
		g, err := Parse("A -> B <- C")
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, g.Children("A"))
		assert.Equal(t, []string{"B"}, g.Children("C"))
		assert.ElementsMatch(t, []string{"A", "C"}, g.Parents("B"))
	})

	t.Run("comma-separated edges", func(t *testing.T) {
		t.Parallel()
		g, err := Parse("Z -> X, Z -> Y, X -> Y")
		require.NoError(t, err)
		assert.Equal(t, 3, g.EdgeCount())
		assert.ElementsMatch(t, []string{"X", "Y"}, g.Children("Z"))
	})

	t.Run("multi-hop chain", func(t *testing.T) {
		t.Parallel()
		g, err := Parse("A -> B -> C -> D")
		require.NoError(t, err)
		assert.Equal(t, 3, g.EdgeCount())
		assert.True(t, g.Reaches("A", "D"))
	})

	t.Run("empty string yields empty graph", func(t *testing.T) {
		t.Parallel()
		g, err := Parse("")
		require.NoError(t, err)
		assert.Empty(t, g.Nodes())
	})

	t.Run("parallel edges collapse", func(t *testing.T) {
		t.Parallel()
		g, err := Parse("A -> B, A -> B")
		require.NoError(t, err)
		assert.Equal(t, 1, g.EdgeCount())
	})

	t.Run("rejects bare name", func(t *testing.T) {
		t.Parallel()
		_, err := Parse("A")
		assert.Error(t, err)
	})

	t.Run("rejects dangling arrow", func(t *testing.T) {
		t.Parallel()
		_, err := Parse("A ->")
		assert.Error(t, err)
	})

	t.Run("rejects invalid name", func(t *testing.T) {
		t.Parallel()
		_, err := Parse("1A -> B")
		assert.Error(t, err)
	})

	t.Run("rejects empty segment", func(t *testing.T) {
		t.Parallel()
		_, err := Parse("A -> B,, C -> D")
		assert.Error(t, err)
	})
}

func TestFindCycle(t *testing.T) {
	t.Parallel()

	t.Run("acyclic chain", func(t *testing.T) {
		t.Parallel()
		g, err := Parse("A -> B -> C")
		require.NoError(t, err)
		assert.True(t, g.IsAcyclic())
		assert.Nil(t, g.FindCycle())
	})

	t.Run("direct cycle", func(t *testing.T) {
		t.Parallel()
		g, err := Parse("A -> B, B -> A")
		require.NoError(t, err)
		cycle := g.FindCycle()
		require.NotNil(t, cycle)
		assert.Equal(t, cycle[0], cycle[len(cycle)-1])
	})

	t.Run("long cycle anywhere in graph", func(t *testing.T) {
		t.Parallel()
		g, err := Parse("R -> A, A -> B -> C -> D -> B")
		require.NoError(t, err)
		cycle := g.FindCycle()
		require.NotNil(t, cycle)
		assert.GreaterOrEqual(t, len(cycle), 4)
	})

	t.Run("self loop", func(t *testing.T) {
		t.Parallel()
		g, err := Parse("A -> A")
		require.NoError(t, err)
		assert.False(t, g.IsAcyclic())
	})

	t.Run("deterministic for same input", func(t *testing.T) {
		t.Parallel()
		g1, err := Parse("A -> B, B -> C, C -> A, X -> Y, Y -> X")
		require.NoError(t, err)
		g2, err := Parse("A -> B, B -> C, C -> A, X -> Y, Y -> X")
		require.NoError(t, err)
		assert.Equal(t, g1.FindCycle(), g2.FindCycle())
	})
}

func TestGraphQueries(t *testing.T) {
	t.Parallel()

	t.Run("reaches follows direction", func(t *testing.T) {
		t.Parallel()
		g, err := Parse("Z -> X, Z -> Y, X -> Y")
		require.NoError(t, err)
		assert.True(t, g.Reaches("Z", "Y"))
		assert.False(t, g.Reaches("Y", "Z"))
	})

	t.Run("colliders need unconnected parents", func(t *testing.T) {
		t.Parallel()
		g, err := Parse("A -> C, B -> C")
		require.NoError(t, err)
		assert.Equal(t, []string{"C"}, g.Colliders())

		// Connecting the parents removes the collider pattern.
		g2, err := Parse("A -> C, B -> C, A -> B")
		require.NoError(t, err)
		assert.Empty(t, g2.Colliders())
	})

	t.Run("adjacent either direction", func(t *testing.T) {
		t.Parallel()
		g, err := Parse("A -> B")
		require.NoError(t, err)
		assert.True(t, g.Adjacent("A", "B"))
		assert.True(t, g.Adjacent("B", "A"))
		assert.False(t, g.Adjacent("A", "C"))
	})
}

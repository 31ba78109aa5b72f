package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func defaultSimilarity() *Similarity { return NewSimilarity(0.6, 0.4, 3) }

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	t.Run("case and punctuation fold away", func(t *testing.T) {
		t.Parallel()
		a := NormalizeText("Ice cream sales CAUSE drowning!")
		b := NormalizeText("ice cream sales cause drowning")
		assert.Equal(t, a, b)
	})

	t.Run("whitespace collapses", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "a b c", NormalizeText("  a\t b \n c  "))
	})

	t.Run("unicode compatibility forms match", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, NormalizeText("ﬁre risk"), NormalizeText("fire risk"))
	})
}

func TestSimilarityScore(t *testing.T) {
	t.Parallel()
	s := defaultSimilarity()

	t.Run("identical text scores one", func(t *testing.T) {
		t.Parallel()
		text := NormalizeText("More firefighters attend larger fires and damage is larger too.")
		assert.InDelta(t, 1.0, s.Score(text, text), 1e-9)
	})

	t.Run("unrelated text scores low", func(t *testing.T) {
		t.Parallel()
		a := NormalizeText("More firefighters attend larger fires and the damage is larger too.")
		b := NormalizeText("Students who eat breakfast score higher on morning examinations.")
		assert.Less(t, s.Score(a, b), 0.5)
	})

	t.Run("near-identical text exceeds threshold", func(t *testing.T) {
		t.Parallel()
		a := NormalizeText("Cities with more police officers record more crimes, and both track population size closely.")
		b := NormalizeText("Cities with more police officers record more crimes, and both track population size very closely.")
		assert.Greater(t, s.Score(a, b), 0.75)
	})

	t.Run("symmetric", func(t *testing.T) {
		t.Parallel()
		a := NormalizeText("Coffee drinkers develop ulcers more often.")
		b := NormalizeText("Tea drinkers develop headaches more often.")
		assert.InDelta(t, s.Score(a, b), s.Score(b, a), 1e-9)
	})

	t.Run("bounded in unit interval", func(t *testing.T) {
		t.Parallel()
		a := NormalizeText("short")
		b := NormalizeText("a considerably longer and wholly different sentence about unrelated things")
		score := s.Score(a, b)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	})
}

package validator

import (
	"strings"

	"github.com/agext/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Similarity computes the composite text-similarity score used for
// near-duplicate detection: a weighted blend of an edit-distance ratio
// and a word-shingle overlap ratio over normalized text.
type Similarity struct {
	editWeight    float64
	shingleWeight float64
	shingleSize   int
}

// NewSimilarity creates a scorer with the given weights and shingle
// size. Weights are expected to sum to 1.
func NewSimilarity(editWeight, shingleWeight float64, shingleSize int) *Similarity {
	if shingleSize < 1 {
		shingleSize = 3
	}
	return &Similarity{
		editWeight:    editWeight,
		shingleWeight: shingleWeight,
		shingleSize:   shingleSize,
	}
}

var foldCaser = cases.Fold()

// NormalizeText canonicalizes text for comparison: NFKC normalization,
// case folding, punctuation stripped, whitespace collapsed. Two cases
// whose normalized scenarios are byte-identical are exact duplicates.
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = foldCaser.String(s)

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r > 127:
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Score returns the composite similarity of two already-normalized
// strings, in [0, 1].
func (s *Similarity) Score(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	edit := levenshtein.Similarity(a, b, nil)
	shingle := s.shingleOverlap(a, b)
	return s.editWeight*edit + s.shingleWeight*shingle
}

// shingleOverlap is the Jaccard ratio of the two strings' word
// n-gram sets.
func (s *Similarity) shingleOverlap(a, b string) float64 {
	sa := shingles(a, s.shingleSize)
	sb := shingles(b, s.shingleSize)
	if len(sa) == 0 && len(sb) == 0 {
		return 1.0
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0.0
	}
	inter := 0
	for sh := range sa {
		if _, ok := sb[sh]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// shingles builds the set of n-word windows. Texts shorter than n words
// contribute their whole word sequence as a single shingle.
func shingles(text string, n int) map[string]struct{} {
	words := strings.Fields(text)
	set := make(map[string]struct{})
	if len(words) == 0 {
		return set
	}
	if len(words) < n {
		set[strings.Join(words, " ")] = struct{}{}
		return set
	}
	for i := 0; i+n <= len(words); i++ {
		set[strings.Join(words[i:i+n], " ")] = struct{}{}
	}
	return set
}

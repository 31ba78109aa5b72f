// Package generator defines the authoring collaborators the pipeline
// drives: per-category case generators and the reviser that patches
// failing cases. The controller only sees these interfaces; the
// template implementations below keep the pipeline runnable and
// deterministic without any external authoring service.
package generator

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/caseforge/internal/model"
)

// IDSource supplies unique case numbers. Satisfied by ident.Allocator.
type IDSource interface {
	Next() int64
}

// Generator authors candidate cases for one taxonomy category.
type Generator interface {
	Category() string
	Generate(ctx context.Context, count int) ([]model.Case, error)
}

// Reviser patches a case that failed validation. The returned case
// keeps its id; a reviser that needs a wholly new case must go through
// a generator instead.
type Reviser interface {
	Revise(ctx context.Context, c model.Case, issues []model.ValidationIssue) (model.Case, error)
}

// Registry maps category names to their generators.
type Registry map[string]Generator

// Categories returns the registered category names in sorted order.
func (r Registry) Categories() []string {
	out := make([]string, 0, len(r))
	for cat := range r {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// Get returns the generator for a category.
func (r Registry) Get(category string) (Generator, error) {
	g, ok := r[category]
	if !ok {
		return nil, eris.Errorf("generator: no generator registered for category %q", category)
	}
	return g, nil
}

// DefaultRegistry returns template generators for every built-in
// category, all drawing ids from the same source.
func DefaultRegistry(ids IDSource) Registry {
	r := make(Registry, len(categoryBlueprints))
	for category := range categoryBlueprints {
		r[category] = NewTemplate(category, ids)
	}
	return r
}

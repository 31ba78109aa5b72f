// Package pipeline implements the checkpointed phase machine that
// drives the corpus through Setup, Generation, Validation, Revision and
// Finalization. The controller owns every phase transition; validators,
// generators and the reviser are injected collaborators and never see
// the store.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/caseforge/internal/config"
	"github.com/sells-group/caseforge/internal/generator"
	"github.com/sells-group/caseforge/internal/ident"
	"github.com/sells-group/caseforge/internal/model"
	"github.com/sells-group/caseforge/internal/store"
	"github.com/sells-group/caseforge/internal/validator"
)

// Controller is the pipeline state machine. All phase methods are
// idempotent: re-running a phase the checkpoint records as completed
// reports prior results instead of reprocessing.
type Controller struct {
	cfg        *config.Config
	store      store.Store
	alloc      *ident.Allocator
	registry   generator.Registry
	reviser    generator.Reviser
	structural *validator.Structural
	quality    *validator.Quality
	corpus     *validator.Corpus
	limiter    *rate.Limiter
}

// New wires a controller from configuration and collaborators. The
// validators are constructed here, once, and shared across phases.
func New(cfg *config.Config, st store.Store, registry generator.Registry, reviser generator.Reviser) *Controller {
	similarity := validator.NewSimilarity(
		cfg.Similarity.EditWeight,
		cfg.Similarity.ShingleWeight,
		cfg.Similarity.ShingleSize,
	)
	targets := validator.DistributionTargets{
		Levels:       cfg.Distribution.Levels,
		Categories:   cfg.Distribution.Categories,
		Difficulties: cfg.Distribution.Difficulties,
	}
	return &Controller{
		cfg:        cfg,
		store:      st,
		alloc:      ident.New(st),
		registry:   registry,
		reviser:    reviser,
		structural: validator.NewStructural(),
		quality:    validator.NewQuality(cfg.Quality.PassThreshold, cfg.Quality.ReviseThreshold),
		corpus:     validator.NewCorpus(cfg.Similarity.Threshold, similarity, targets),
		limiter:    rate.NewLimiter(rate.Limit(cfg.Generation.RatePerSec), cfg.Generation.Burst),
	}
}

// Allocator exposes the id source for generator construction.
func (c *Controller) Allocator() *ident.Allocator { return c.alloc }

// SetRegistry replaces the generator registry. Must be called before
// the generation phase; exists because generators need the allocator,
// which the controller owns.
func (c *Controller) SetRegistry(registry generator.Registry) { c.registry = registry }

// Setup verifies configuration, restores the id allocator from its
// checkpoint and initializes the phase checkpoint. Allocator
// inconsistency is fatal here: a counter behind the ids already in use
// would break corpus-wide uniqueness.
func (c *Controller) Setup(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return eris.Wrap(err, "pipeline: setup")
	}
	if err := c.alloc.Restore(ctx); err != nil {
		return eris.Wrap(err, "pipeline: setup")
	}

	cp, err := c.store.LoadCheckpoint(ctx)
	if err != nil {
		return eris.Wrap(err, "pipeline: setup")
	}
	if cp == nil {
		if err := c.checkpoint(ctx, model.PhaseSetup, model.PhaseStatusCompleted, "", 0); err != nil {
			return err
		}
		zap.L().Info("pipeline: setup complete", zap.Int64("next_id", c.alloc.Peek()))
		return nil
	}
	zap.L().Info("pipeline: resuming from checkpoint",
		zap.String("phase", string(cp.Phase)),
		zap.String("status", string(cp.Status)),
		zap.Int("cycle", cp.Cycle),
	)
	return nil
}

// Generate fans out one worker per configured category, each producing
// the configured number of candidate cases with ids from the shared
// allocator. Workers share a rate limiter so a misbehaving generator
// cannot stampede an external authoring service.
func (c *Controller) Generate(ctx context.Context) (*model.RunSummary, error) {
	cp, err := c.store.LoadCheckpoint(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: generate")
	}
	if cp == nil {
		cp = &model.Checkpoint{}
	}
	if cp.PhaseDone(model.PhaseGeneration) {
		zap.L().Info("pipeline: generation already complete, reporting prior results")
		return c.summarize(ctx)
	}

	run, err := c.store.CreateRun(ctx, "generate")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: generate")
	}
	if err := c.checkpoint(ctx, model.PhaseGeneration, model.PhaseStatusInProgress, run.ID, cp.Cycle); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make([][]model.Case, len(c.cfg.Generation.Categories))
	for i, category := range c.cfg.Generation.Categories {
		i, category := i, category
		g.Go(func() error {
			gen, err := c.registry.Get(category)
			if err != nil {
				return err
			}
			batch := make([]model.Case, 0, c.cfg.Generation.PerCategory)
			for n := 0; n < c.cfg.Generation.PerCategory; n++ {
				if err := c.limiter.Wait(gctx); err != nil {
					return eris.Wrap(err, "pipeline: rate limit")
				}
				cases, err := gen.Generate(gctx, 1)
				if err != nil {
					return eris.Wrapf(err, "pipeline: generate %s", category)
				}
				batch = append(batch, cases...)
			}
			results[i] = batch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.failRun(ctx, run.ID, err)
		return nil, err
	}

	generated := 0
	for _, batch := range results {
		for i := range batch {
			rec := &model.CaseRecord{Case: batch[i], State: model.CaseStatePending}
			if err := c.store.UpsertCase(ctx, rec); err != nil {
				c.failRun(ctx, run.ID, err)
				return nil, err
			}
			generated++
		}
	}

	// Persist the consumed counter before declaring the phase done, so
	// a crash between here and the next phase cannot reissue ids.
	if err := c.alloc.Checkpoint(ctx); err != nil {
		c.failRun(ctx, run.ID, err)
		return nil, err
	}
	if err := c.checkpoint(ctx, model.PhaseGeneration, model.PhaseStatusCompleted, run.ID, cp.Cycle); err != nil {
		return nil, err
	}

	summary := &model.RunSummary{Generated: generated}
	if err := c.store.CompleteRun(ctx, run.ID, summary); err != nil {
		return nil, eris.Wrap(err, "pipeline: generate")
	}
	zap.L().Info("pipeline: generation complete",
		zap.Int("generated", generated),
		zap.Int("categories", len(c.cfg.Generation.Categories)),
	)
	return summary, nil
}

// Validate runs the structural then the quality validator over every
// pending case and routes each to accepted or needs_revision. Outcomes
// are independent across cases; processing order is the stable
// case-number order the store returns.
func (c *Controller) Validate(ctx context.Context) (*model.RunSummary, error) {
	cp, err := c.store.LoadCheckpoint(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: validate")
	}
	if cp == nil {
		cp = &model.Checkpoint{}
	}
	if cp.PhaseDone(model.PhaseFinalization) {
		zap.L().Info("pipeline: corpus already finalized, reporting prior results")
		return c.summarize(ctx)
	}

	run, err := c.store.CreateRun(ctx, "validate")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: validate")
	}
	if err := c.checkpoint(ctx, model.PhaseValidation, model.PhaseStatusInProgress, run.ID, cp.Cycle); err != nil {
		return nil, err
	}

	pending, err := c.store.ListCases(ctx, store.CaseFilter{
		States: []model.CaseState{model.CaseStatePending},
	})
	if err != nil {
		c.failRun(ctx, run.ID, err)
		return nil, eris.Wrap(err, "pipeline: validate")
	}

	accepted, needsRevision, rejected := 0, 0, 0
	for i := range pending {
		rec := &pending[i]
		issues := c.structural.Validate(&rec.Case)
		score, qualityIssues := c.quality.Validate(&rec.Case)
		issues = append(issues, qualityIssues...)

		rec.Score = score
		rec.Issues = issues
		switch c.quality.Route(score, issues) {
		case validator.OutcomePass:
			rec.State = model.CaseStateAccepted
			rec.Issues = nil
			accepted++
		case validator.OutcomeReject:
			// Too far below the revise threshold to be worth the
			// revision budget; rejected with its issues attached.
			rec.State = model.CaseStateRejected
			rejected++
		default:
			rec.State = model.CaseStateNeedsRevision
			needsRevision++
		}
		if err := c.store.UpsertCase(ctx, rec); err != nil {
			c.failRun(ctx, run.ID, err)
			return nil, err
		}
	}

	if err := c.checkpoint(ctx, model.PhaseValidation, model.PhaseStatusCompleted, run.ID, cp.Cycle); err != nil {
		return nil, err
	}
	summary, err := c.summarize(ctx)
	if err != nil {
		c.failRun(ctx, run.ID, err)
		return nil, err
	}
	if err := c.store.CompleteRun(ctx, run.ID, summary); err != nil {
		return nil, eris.Wrap(err, "pipeline: validate")
	}
	zap.L().Info("pipeline: validation complete",
		zap.Int("validated", len(pending)),
		zap.Int("accepted", accepted),
		zap.Int("needs_revision", needsRevision),
		zap.Int("rejected", rejected),
		zap.Int("cycle", cp.Cycle),
	)
	return summary, nil
}

// Revise patches every needs_revision case in place through the reviser
// collaborator and resubmits it as pending. A case out of revision
// budget moves to rejected with its last-known issues and is never
// retried.
func (c *Controller) Revise(ctx context.Context) (*model.RunSummary, error) {
	cp, err := c.store.LoadCheckpoint(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: revise")
	}
	if cp == nil {
		cp = &model.Checkpoint{}
	}
	if cp.PhaseDone(model.PhaseFinalization) {
		zap.L().Info("pipeline: corpus already finalized, reporting prior results")
		return c.summarize(ctx)
	}

	run, err := c.store.CreateRun(ctx, "revise")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: revise")
	}
	cycle := cp.Cycle + 1
	if err := c.checkpoint(ctx, model.PhaseRevision, model.PhaseStatusInProgress, run.ID, cycle); err != nil {
		return nil, err
	}

	candidates, err := c.store.ListCases(ctx, store.CaseFilter{
		States: []model.CaseState{model.CaseStateNeedsRevision},
	})
	if err != nil {
		c.failRun(ctx, run.ID, err)
		return nil, eris.Wrap(err, "pipeline: revise")
	}

	revised, rejected := 0, 0
	for i := range candidates {
		rec := &candidates[i]
		if rec.Revisions >= c.cfg.Pipeline.MaxRevisionCycles {
			rec.State = model.CaseStateRejected
			rejected++
			zap.L().Warn("pipeline: revision budget exhausted",
				zap.String("case_id", rec.Case.ID),
				zap.Int("revisions", rec.Revisions),
			)
		} else {
			patched, err := c.reviser.Revise(ctx, rec.Case, rec.Issues)
			if err != nil {
				c.failRun(ctx, run.ID, err)
				return nil, eris.Wrapf(err, "pipeline: revise %s", rec.Case.ID)
			}
			if patched.ID != rec.Case.ID {
				err := eris.Errorf("pipeline: reviser changed id %s to %s", rec.Case.ID, patched.ID)
				c.failRun(ctx, run.ID, err)
				return nil, err
			}
			rec.Case = patched
			rec.Revisions++
			rec.State = model.CaseStatePending
			revised++
		}
		if err := c.store.UpsertCase(ctx, rec); err != nil {
			c.failRun(ctx, run.ID, err)
			return nil, err
		}
	}

	if err := c.checkpoint(ctx, model.PhaseRevision, model.PhaseStatusCompleted, run.ID, cycle); err != nil {
		return nil, err
	}
	summary, err := c.summarize(ctx)
	if err != nil {
		c.failRun(ctx, run.ID, err)
		return nil, err
	}
	summary.RevisionLoops = cycle
	if err := c.store.CompleteRun(ctx, run.ID, summary); err != nil {
		return nil, eris.Wrap(err, "pipeline: revise")
	}
	zap.L().Info("pipeline: revision complete",
		zap.Int("revised", revised),
		zap.Int("rejected", rejected),
		zap.Int("cycle", cycle),
	)
	return summary, nil
}

// RunAll drives the whole machine: setup, generation, then
// validation/revision cycles until no case is in flight, then
// finalization. The revision cap bounds the cycling.
func (c *Controller) RunAll(ctx context.Context) (*model.RunSummary, *model.CorpusReport, error) {
	if err := c.Setup(ctx); err != nil {
		return nil, nil, err
	}

	cp, err := c.store.LoadCheckpoint(ctx)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: run-all")
	}
	if cp.PhaseDone(model.PhaseFinalization) {
		zap.L().Info("pipeline: already complete, reporting prior results")
		summary, err := c.summarize(ctx)
		return summary, nil, err
	}

	if _, err := c.Generate(ctx); err != nil {
		return nil, nil, err
	}

	// Validation and revision cycle until nothing is in flight. The
	// revision budget bounds the loop: every pass either rejects a case
	// or consumes one of its revision cycles.
	if _, err := c.Validate(ctx); err != nil {
		return nil, nil, err
	}
	for {
		inFlight, err := c.countState(ctx, model.CaseStateNeedsRevision)
		if err != nil {
			return nil, nil, err
		}
		if inFlight == 0 {
			break
		}
		if _, err := c.Revise(ctx); err != nil {
			return nil, nil, err
		}
		resubmitted, err := c.countState(ctx, model.CaseStatePending)
		if err != nil {
			return nil, nil, err
		}
		if resubmitted == 0 {
			break
		}
		if _, err := c.Validate(ctx); err != nil {
			return nil, nil, err
		}
	}

	return c.Finalize(ctx)
}

func (c *Controller) countState(ctx context.Context, state model.CaseState) (int, error) {
	records, err := c.store.ListCases(ctx, store.CaseFilter{States: []model.CaseState{state}})
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: count cases")
	}
	return len(records), nil
}

// checkpoint persists a phase transition. Checkpoint corruption is
// fatal for the run; the caller propagates the error.
func (c *Controller) checkpoint(ctx context.Context, phase model.Phase, status model.PhaseStatus, runID string, cycle int) error {
	return eris.Wrap(c.store.SaveCheckpoint(ctx, model.Checkpoint{
		Phase:  phase,
		Status: status,
		RunID:  runID,
		Cycle:  cycle,
	}), "pipeline: save checkpoint")
}

// summarize builds a RunSummary from the store's current contents.
func (c *Controller) summarize(ctx context.Context) (*model.RunSummary, error) {
	all, err := c.store.ListCases(ctx, store.CaseFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: summarize")
	}

	summary := &model.RunSummary{}
	for i := range all {
		rec := &all[i]
		summary.Generated++
		switch rec.State {
		case model.CaseStateAccepted, model.CaseStateFinal:
			summary.Accepted++
		case model.CaseStateRejected:
			summary.Rejected++
			if summary.RejectedWith == nil {
				summary.RejectedWith = make(map[string][]model.ValidationIssue)
			}
			summary.RejectedWith[rec.Case.ID] = rec.Issues
		case model.CaseStateDropped:
			summary.Dropped++
		}
		if summary.RevisionLoops < rec.Revisions {
			summary.RevisionLoops = rec.Revisions
		}
	}
	return summary, nil
}

// failRun records an unrecoverable error on both the run row and the
// checkpoint, so a later status query sees the phase as failed rather
// than stuck in progress.
func (c *Controller) failRun(ctx context.Context, runID string, cause error) {
	if err := c.store.FailRun(ctx, runID, cause.Error()); err != nil {
		zap.L().Warn("pipeline: failed to mark run failed", zap.String("run_id", runID), zap.Error(err))
	}
	cp, err := c.store.LoadCheckpoint(ctx)
	if err != nil || cp == nil {
		return
	}
	cp.Status = model.PhaseStatusFailed
	cp.RunID = runID
	if err := c.store.SaveCheckpoint(ctx, *cp); err != nil {
		zap.L().Warn("pipeline: failed to mark checkpoint failed", zap.String("run_id", runID), zap.Error(err))
	}
}

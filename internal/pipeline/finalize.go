package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/caseforge/internal/model"
	"github.com/sells-group/caseforge/internal/store"
	"github.com/sells-group/caseforge/internal/validator"
)

// Finalize runs the corpus validator over the accepted batch plus the
// pre-existing corpus, adjudicates duplicates deterministically,
// renumbers the surviving corpus densely from 1 and writes the corpus
// file. Distribution shortfalls are reported, never fatal.
func (c *Controller) Finalize(ctx context.Context) (*model.RunSummary, *model.CorpusReport, error) {
	cp, err := c.store.LoadCheckpoint(ctx)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: finalize")
	}
	if cp == nil {
		cp = &model.Checkpoint{}
	}
	if cp.PhaseDone(model.PhaseFinalization) {
		zap.L().Info("pipeline: corpus already finalized, reporting prior results")
		summary, err := c.summarize(ctx)
		return summary, nil, err
	}

	run, err := c.store.CreateRun(ctx, "finalize")
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: finalize")
	}
	if err := c.checkpoint(ctx, model.PhaseFinalization, model.PhaseStatusInProgress, run.ID, cp.Cycle); err != nil {
		return nil, nil, err
	}

	accepted, err := c.store.ListCases(ctx, store.CaseFilter{
		States: []model.CaseState{model.CaseStateAccepted},
	})
	if err != nil {
		c.failRun(ctx, run.ID, err)
		return nil, nil, eris.Wrap(err, "pipeline: finalize")
	}
	existing, err := c.store.ListCases(ctx, store.CaseFilter{
		States: []model.CaseState{model.CaseStateFinal},
	})
	if err != nil {
		c.failRun(ctx, run.ID, err)
		return nil, nil, eris.Wrap(err, "pipeline: finalize")
	}

	report := c.corpus.Check(accepted, existing)

	dropped, err := c.adjudicate(ctx, report, accepted, existing)
	if err != nil {
		c.failRun(ctx, run.ID, err)
		return nil, nil, err
	}

	if err := c.renumber(ctx, accepted, existing, dropped); err != nil {
		c.failRun(ctx, run.ID, err)
		return nil, nil, err
	}

	if err := c.writeCorpus(ctx); err != nil {
		c.failRun(ctx, run.ID, err)
		return nil, nil, err
	}

	if err := c.checkpoint(ctx, model.PhaseComplete, model.PhaseStatusCompleted, run.ID, cp.Cycle); err != nil {
		return nil, nil, err
	}

	summary, err := c.summarize(ctx)
	if err != nil {
		c.failRun(ctx, run.ID, err)
		return nil, nil, err
	}
	for _, bucket := range report.Distribution {
		if !bucket.Pass {
			summary.Shortfalls = append(summary.Shortfalls, bucket)
		}
	}
	if err := c.store.CompleteRun(ctx, run.ID, summary); err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: finalize")
	}

	zap.L().Info("pipeline: finalization complete",
		zap.Int("accepted", summary.Accepted),
		zap.Int("rejected", summary.Rejected),
		zap.Int("dropped", summary.Dropped),
		zap.Int("shortfalls", len(summary.Shortfalls)),
	)
	return summary, report, nil
}

// adjudicate resolves duplicate pairs. A new case that duplicates the
// pre-existing corpus always loses; between two new cases the higher
// quality score wins, ties broken by the lower id. Losers move to
// dropped. Returns the set of dropped ids.
func (c *Controller) adjudicate(ctx context.Context, report *model.CorpusReport, accepted, existing []model.CaseRecord) (map[string]bool, error) {
	byID := make(map[string]*model.CaseRecord, len(accepted))
	for i := range accepted {
		byID[accepted[i].Case.ID] = &accepted[i]
	}
	existingIDs := make(map[string]bool, len(existing))
	for i := range existing {
		existingIDs[existing[i].Case.ID] = true
	}

	dropped := make(map[string]bool)
	pairs := append(append([]model.DuplicatePair(nil), report.ExactDuplicates...), report.NearDuplicates...)
	for _, pair := range pairs {
		loser := c.loserOf(pair, byID, existingIDs)
		if loser == "" {
			continue
		}
		rec := byID[loser]
		if rec == nil || rec.Terminal() {
			// Already dropped through an earlier pair.
			continue
		}
		rec.State = model.CaseStateDropped
		rec.Issues = duplicateIssues(report, loser)
		dropped[loser] = true
		if err := c.store.UpsertCase(ctx, rec); err != nil {
			return nil, eris.Wrapf(err, "pipeline: drop duplicate %s", loser)
		}
		zap.L().Info("pipeline: dropped duplicate",
			zap.String("case_id", loser),
			zap.String("duplicate_of", otherOf(pair, loser)),
			zap.Float64("score", pair.Score),
			zap.Bool("exact", pair.Exact),
		)
	}
	return dropped, nil
}

// duplicateIssues records every pair that implicated the dropped case,
// so its record explains the drop.
func duplicateIssues(report *model.CorpusReport, loser string) []model.ValidationIssue {
	var issues []model.ValidationIssue
	for _, pair := range report.DuplicateOf(loser) {
		msg := fmt.Sprintf("near-duplicate of %s (similarity %.2f)", otherOf(pair, loser), pair.Score)
		if pair.Exact {
			msg = fmt.Sprintf("exact duplicate of %s", otherOf(pair, loser))
		}
		issues = append(issues, model.ValidationIssue{
			RuleID:   validator.RuleDuplicate,
			Severity: model.SeverityHigh,
			Message:  msg,
			CaseID:   loser,
		})
	}
	return issues
}

// loserOf picks which side of a duplicate pair is dropped, or "" when
// both sides are pre-existing corpus members (never the case for
// reports produced by this controller, but cheap to handle).
func (c *Controller) loserOf(pair model.DuplicatePair, byID map[string]*model.CaseRecord, existingIDs map[string]bool) string {
	aExisting, bExisting := existingIDs[pair.AID], existingIDs[pair.BID]
	switch {
	case aExisting && bExisting:
		return ""
	case aExisting:
		return pair.BID
	case bExisting:
		return pair.AID
	}

	a, b := byID[pair.AID], byID[pair.BID]
	if a == nil || b == nil {
		return ""
	}
	if a.Score != b.Score {
		if a.Score > b.Score {
			return pair.BID
		}
		return pair.AID
	}
	// Equal scores: the lower id survives.
	return pair.BID
}

func otherOf(pair model.DuplicatePair, loser string) string {
	if pair.AID == loser {
		return pair.BID
	}
	return pair.AID
}

// renumber assigns dense final ids from 1 across the surviving corpus
// in original-id order. Pre-existing final cases were numbered by the
// same rule, so their published ids never move.
func (c *Controller) renumber(ctx context.Context, accepted, existing []model.CaseRecord, dropped map[string]bool) error {
	var survivors []*model.CaseRecord
	for i := range existing {
		survivors = append(survivors, &existing[i])
	}
	for i := range accepted {
		if !dropped[accepted[i].Case.ID] {
			survivors = append(survivors, &accepted[i])
		}
	}
	sort.Slice(survivors, func(i, j int) bool {
		return survivors[i].Case.ID < survivors[j].Case.ID
	})

	for i, rec := range survivors {
		finalID := model.FormatID(int64(i + 1))
		if rec.State == model.CaseStateFinal && rec.FinalID == finalID {
			continue
		}
		rec.State = model.CaseStateFinal
		rec.FinalID = finalID
		rec.Issues = nil
		if err := c.store.UpsertCase(ctx, rec); err != nil {
			return eris.Wrapf(err, "pipeline: renumber %s", rec.Case.ID)
		}
	}
	return nil
}

// writeCorpus serializes the final corpus as a JSON array, one object
// per case, with the published (renumbered) ids.
func (c *Controller) writeCorpus(ctx context.Context) error {
	finals, err := c.store.ListCases(ctx, store.CaseFilter{
		States: []model.CaseState{model.CaseStateFinal},
	})
	if err != nil {
		return eris.Wrap(err, "pipeline: write corpus")
	}

	cases := make([]model.Case, 0, len(finals))
	for i := range finals {
		published := finals[i].Case
		published.ID = finals[i].FinalID
		cases = append(cases, published)
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].ID < cases[j].ID })

	data, err := json.MarshalIndent(cases, "", "  ")
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal corpus")
	}
	data = append(data, '\n')

	path := c.cfg.Output.CorpusPath
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "pipeline: create output dir")
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "pipeline: write corpus file")
	}
	zap.L().Info("pipeline: corpus written",
		zap.String("path", path),
		zap.Int("cases", len(cases)),
	)
	return nil
}

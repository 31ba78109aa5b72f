package validator

import (
	"sort"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/sells-group/caseforge/internal/model"
)

// RuleDuplicate tags the issue attached to a case dropped by duplicate
// adjudication.
const RuleDuplicate = "corpus.duplicate"

// Corpus detects duplicate and near-duplicate cases and verifies the
// aggregate distribution targets. It reports; it never deletes — the
// controller adjudicates duplicate pairs.
type Corpus struct {
	threshold  float64
	similarity *Similarity
	targets    DistributionTargets
}

// NewCorpus creates a corpus validator.
func NewCorpus(threshold float64, similarity *Similarity, targets DistributionTargets) *Corpus {
	return &Corpus{threshold: threshold, similarity: similarity, targets: targets}
}

// Check validates a batch of new records against themselves and against
// the already-accepted set. Incremental invocation keeps pipeline runs
// from re-comparing accepted×accepted pairs on every call: new records
// are compared pairwise with each other and against each accepted
// record, nothing more.
func (v *Corpus) Check(newRecords, accepted []model.CaseRecord) *model.CorpusReport {
	report := &model.CorpusReport{}

	type entry struct {
		id         string
		normalized string
	}
	normalize := func(records []model.CaseRecord) []entry {
		out := make([]entry, len(records))
		for i := range records {
			out[i] = entry{
				id:         records[i].Case.ID,
				normalized: NormalizeText(records[i].Case.Scenario),
			}
		}
		return out
	}
	fresh := normalize(newRecords)
	base := normalize(accepted)

	maxSim := 0.0
	compare := func(a, b entry) {
		if a.id == b.id {
			return
		}
		// Order pair ids for stable reporting.
		if a.id > b.id {
			a, b = b, a
		}
		if a.normalized == b.normalized {
			report.ExactDuplicates = append(report.ExactDuplicates, model.DuplicatePair{
				AID: a.id, BID: b.id, Score: 1.0, Exact: true,
			})
			if maxSim < 1.0 {
				maxSim = 1.0
			}
			return
		}
		score := v.similarity.Score(a.normalized, b.normalized)
		if score > maxSim {
			maxSim = score
		}
		if score >= v.threshold {
			report.NearDuplicates = append(report.NearDuplicates, model.DuplicatePair{
				AID: a.id, BID: b.id, Score: score,
			})
		}
	}

	for i := 0; i < len(fresh); i++ {
		for j := i + 1; j < len(fresh); j++ {
			compare(fresh[i], fresh[j])
		}
		for j := 0; j < len(base); j++ {
			compare(fresh[i], base[j])
		}
	}

	sortPairs(report.ExactDuplicates)
	sortPairs(report.NearDuplicates)

	// Placeholder detection shares the full-text scan.
	for i := range newRecords {
		report.Placeholders = append(report.Placeholders, CheckPlaceholders(&newRecords[i].Case)...)
	}

	// Distribution runs over the combined set.
	all := make([]model.Case, 0, len(newRecords)+len(accepted))
	for i := range newRecords {
		all = append(all, newRecords[i].Case)
	}
	for i := range accepted {
		all = append(all, accepted[i].Case)
	}
	report.Distribution = VerifyDistribution(all, v.targets)

	report.Stats = summarize(newRecords, accepted, maxSim)

	zap.L().Debug("corpus: check complete",
		zap.Int("new", len(newRecords)),
		zap.Int("accepted", len(accepted)),
		zap.Int("exact_duplicates", len(report.ExactDuplicates)),
		zap.Int("near_duplicates", len(report.NearDuplicates)),
	)
	return report
}

func sortPairs(pairs []model.DuplicatePair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].AID != pairs[j].AID {
			return pairs[i].AID < pairs[j].AID
		}
		return pairs[i].BID < pairs[j].BID
	})
}

// summarize computes descriptive statistics over the scanned batch.
func summarize(newRecords, accepted []model.CaseRecord, maxSim float64) model.CorpusStats {
	scores := make([]float64, 0, len(newRecords)+len(accepted))
	for i := range newRecords {
		scores = append(scores, newRecords[i].Score)
	}
	for i := range accepted {
		scores = append(scores, accepted[i].Score)
	}

	out := model.CorpusStats{
		Cases:         len(scores),
		MaxSimilarity: maxSim,
	}
	if len(scores) == 0 {
		return out
	}
	// stats errors only on empty input, which is handled above.
	out.MeanScore, _ = stats.Mean(scores)
	out.MedianScore, _ = stats.Median(scores)
	out.P90Score, _ = stats.Percentile(scores, 90)
	return out
}

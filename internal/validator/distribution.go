package validator

import (
	"sort"

	"github.com/sells-group/caseforge/internal/model"
)

// DistributionTargets bounds the corpus share of each bucket along the
// three tallied dimensions. Buckets with no configured range are
// tallied but always pass.
type DistributionTargets struct {
	Levels       map[string]model.TargetRange
	Categories   map[string]model.TargetRange
	Difficulties map[string]model.TargetRange
}

// VerifyDistribution tallies cases by level, category and difficulty
// and compares each bucket's share against its target range. Results
// come back sorted by dimension then bucket so output is deterministic.
// Cases are read, never mutated.
func VerifyDistribution(cases []model.Case, targets DistributionTargets) []model.BucketResult {
	if len(cases) == 0 {
		return nil
	}
	total := float64(len(cases))

	levelCounts := make(map[string]int)
	categoryCounts := make(map[string]int)
	difficultyCounts := make(map[string]int)
	for i := range cases {
		levelCounts[cases[i].Level.String()]++
		categoryCounts[cases[i].Category]++
		difficultyCounts[string(cases[i].Difficulty)]++
	}

	var results []model.BucketResult
	results = append(results, bucketResults("level", levelCounts, targets.Levels, total)...)
	results = append(results, bucketResults("category", categoryCounts, targets.Categories, total)...)
	results = append(results, bucketResults("difficulty", difficultyCounts, targets.Difficulties, total)...)

	sort.Slice(results, func(i, j int) bool {
		if results[i].Dimension != results[j].Dimension {
			return results[i].Dimension < results[j].Dimension
		}
		return results[i].Bucket < results[j].Bucket
	})
	return results
}

// bucketResults evaluates one dimension. Configured buckets with zero
// observed cases still get a row, so shortfalls are visible.
func bucketResults(dimension string, counts map[string]int, targets map[string]model.TargetRange, total float64) []model.BucketResult {
	buckets := make(map[string]struct{}, len(counts)+len(targets))
	for b := range counts {
		buckets[b] = struct{}{}
	}
	for b := range targets {
		buckets[b] = struct{}{}
	}

	var results []model.BucketResult
	for bucket := range buckets {
		count := counts[bucket]
		share := float64(count) / total
		target, hasTarget := targets[bucket]

		r := model.BucketResult{
			Dimension: dimension,
			Bucket:    bucket,
			Count:     count,
			Share:     share,
			Target:    target,
			Pass:      true,
		}
		if hasTarget {
			switch {
			case share < target.Min:
				r.Pass = false
				r.Deviation = target.Min - share
			case share > target.Max:
				r.Pass = false
				r.Deviation = share - target.Max
			}
		}
		results = append(results, r)
	}
	return results
}

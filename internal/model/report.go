package model

// DuplicatePair reports two cases whose composite similarity exceeded
// the configured threshold, or whose normalized text matched exactly.
// Pair ids are ordered so that AID < BID.
type DuplicatePair struct {
	AID   string  `json:"a_id"`
	BID   string  `json:"b_id"`
	Score float64 `json:"score"`
	Exact bool    `json:"exact"`
}

// TargetRange bounds a distribution bucket's share of the corpus,
// expressed as fractions of the total.
type TargetRange struct {
	Min float64 `json:"min" yaml:"min" mapstructure:"min"`
	Max float64 `json:"max" yaml:"max" mapstructure:"max"`
}

// BucketResult is the verification outcome for one distribution bucket.
// Deviation is zero when the share falls inside the target range,
// otherwise the distance to the nearest bound.
type BucketResult struct {
	Dimension string      `json:"dimension"`
	Bucket    string      `json:"bucket"`
	Count     int         `json:"count"`
	Share     float64     `json:"share"`
	Target    TargetRange `json:"target"`
	Pass      bool        `json:"pass"`
	Deviation float64     `json:"deviation"`
}

// CorpusStats summarizes the scanned batch for reporting.
type CorpusStats struct {
	Cases         int     `json:"cases"`
	MeanScore     float64 `json:"mean_score"`
	MedianScore   float64 `json:"median_score"`
	P90Score      float64 `json:"p90_score"`
	MaxSimilarity float64 `json:"max_similarity"`
}

// CorpusReport is the corpus validator's output: duplicate pairs,
// per-bucket distribution results and placeholder findings. The
// validator only reports; adjudication is the controller's job.
type CorpusReport struct {
	ExactDuplicates []DuplicatePair   `json:"exact_duplicates,omitempty"`
	NearDuplicates  []DuplicatePair   `json:"near_duplicates,omitempty"`
	Distribution    []BucketResult    `json:"distribution,omitempty"`
	Placeholders    []ValidationIssue `json:"placeholders,omitempty"`
	Stats           CorpusStats       `json:"stats"`
}

// DuplicateOf returns all duplicate pairs (exact first) involving the
// given case id.
func (r *CorpusReport) DuplicateOf(id string) []DuplicatePair {
	var out []DuplicatePair
	for _, p := range r.ExactDuplicates {
		if p.AID == id || p.BID == id {
			out = append(out, p)
		}
	}
	for _, p := range r.NearDuplicates {
		if p.AID == id || p.BID == id {
			out = append(out, p)
		}
	}
	return out
}

package report

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/caseforge/internal/model"
)

// HistoryEntry is the per-case validation history in the YAML dump.
// The full case body is omitted; the corpus file is the canonical
// serialization.
type HistoryEntry struct {
	CaseID    string   `yaml:"case_id"`
	FinalID   string   `yaml:"final_id,omitempty"`
	Category  string   `yaml:"category"`
	Level     string   `yaml:"level"`
	State     string   `yaml:"state"`
	Score     float64  `yaml:"score"`
	Revisions int      `yaml:"revisions"`
	Issues    []string `yaml:"issues,omitempty"`
}

// WriteHistory dumps the validation history of every record as YAML.
func WriteHistory(path string, records []model.CaseRecord) error {
	entries := make([]HistoryEntry, 0, len(records))
	for i := range records {
		rec := &records[i]
		entry := HistoryEntry{
			CaseID:    rec.Case.ID,
			FinalID:   rec.FinalID,
			Category:  rec.Case.Category,
			Level:     rec.Case.Level.String(),
			State:     string(rec.State),
			Score:     rec.Score,
			Revisions: rec.Revisions,
		}
		for _, issue := range rec.Issues {
			entry.Issues = append(entry.Issues,
				string(issue.Severity)+" "+issue.RuleID+": "+issue.Message)
		}
		entries = append(entries, entry)
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return eris.Wrap(err, "report: marshal history")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "report: create history dir")
		}
	}
	return eris.Wrap(os.WriteFile(path, data, 0o644), "report: write history")
}

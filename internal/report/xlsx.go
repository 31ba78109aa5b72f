package report

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/caseforge/internal/model"
)

// ExportXLSX writes the curation outcome as a workbook: one summary
// sheet, the per-case ledger, distribution results and duplicate pairs.
func ExportXLSX(path string, summary *model.RunSummary, corpus *model.CorpusReport, records []model.CaseRecord) error {
	f := xlsx.NewFile()

	if err := addSummarySheet(f, summary); err != nil {
		return err
	}
	if err := addCasesSheet(f, records); err != nil {
		return err
	}
	if corpus != nil {
		if err := addDistributionSheet(f, corpus.Distribution); err != nil {
			return err
		}
		if err := addDuplicatesSheet(f, corpus); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "report: create export dir")
		}
	}
	return eris.Wrap(f.Save(path), "report: save xlsx")
}

func addSummarySheet(f *xlsx.File, summary *model.RunSummary) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	addKV := func(key string, value int) {
		row := sheet.AddRow()
		row.AddCell().Value = key
		row.AddCell().SetInt(value)
	}
	addKV("generated", summary.Generated)
	addKV("accepted", summary.Accepted)
	addKV("rejected", summary.Rejected)
	addKV("dropped", summary.Dropped)
	addKV("revision_loops", summary.RevisionLoops)
	addKV("distribution_shortfalls", len(summary.Shortfalls))
	return nil
}

func addCasesSheet(f *xlsx.File, records []model.CaseRecord) error {
	sheet, err := f.AddSheet("Cases")
	if err != nil {
		return eris.Wrap(err, "report: add cases sheet")
	}
	header := sheet.AddRow()
	for _, h := range []string{"id", "final_id", "category", "subcategory", "level", "difficulty", "state", "score", "revisions", "issues"} {
		header.AddCell().Value = h
	}
	for i := range records {
		rec := &records[i]
		row := sheet.AddRow()
		row.AddCell().Value = rec.Case.ID
		row.AddCell().Value = rec.FinalID
		row.AddCell().Value = rec.Case.Category
		row.AddCell().Value = rec.Case.Subcategory
		row.AddCell().Value = rec.Case.Level.String()
		row.AddCell().Value = string(rec.Case.Difficulty)
		row.AddCell().Value = string(rec.State)
		row.AddCell().SetFloat(rec.Score)
		row.AddCell().SetInt(rec.Revisions)

		rules := make([]string, 0, len(rec.Issues))
		for _, issue := range rec.Issues {
			rules = append(rules, issue.RuleID)
		}
		row.AddCell().Value = strings.Join(rules, ", ")
	}
	return nil
}

func addDistributionSheet(f *xlsx.File, buckets []model.BucketResult) error {
	sheet, err := f.AddSheet("Distribution")
	if err != nil {
		return eris.Wrap(err, "report: add distribution sheet")
	}
	header := sheet.AddRow()
	for _, h := range []string{"dimension", "bucket", "count", "share", "target_min", "target_max", "pass", "deviation"} {
		header.AddCell().Value = h
	}
	for _, b := range buckets {
		row := sheet.AddRow()
		row.AddCell().Value = b.Dimension
		row.AddCell().Value = b.Bucket
		row.AddCell().SetInt(b.Count)
		row.AddCell().SetFloat(b.Share)
		row.AddCell().SetFloat(b.Target.Min)
		row.AddCell().SetFloat(b.Target.Max)
		row.AddCell().SetBool(b.Pass)
		row.AddCell().SetFloat(b.Deviation)
	}
	return nil
}

func addDuplicatesSheet(f *xlsx.File, corpus *model.CorpusReport) error {
	sheet, err := f.AddSheet("Duplicates")
	if err != nil {
		return eris.Wrap(err, "report: add duplicates sheet")
	}
	header := sheet.AddRow()
	for _, h := range []string{"a_id", "b_id", "score", "exact"} {
		header.AddCell().Value = h
	}
	write := func(pairs []model.DuplicatePair) {
		for _, p := range pairs {
			row := sheet.AddRow()
			row.AddCell().Value = p.AID
			row.AddCell().Value = p.BID
			row.AddCell().SetFloat(p.Score)
			row.AddCell().SetBool(p.Exact)
		}
	}
	write(corpus.ExactDuplicates)
	write(corpus.NearDuplicates)
	return nil
}

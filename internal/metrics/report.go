package metrics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ReportColumns = []string{
	"title", "lead", "output_title", "output_lead",
	"title_rouge2_f1", "title_rougeL_f1", "title_bertscore_f1",
	"lead_rouge2_f1", "lead_rougeL_f1", "lead_bertscore_f1",
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteReport writes one CSV row per scored row, with ReportColumns as header.
func WriteReport(w io.Writer, scores []RowScores) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportColumns); err != nil {
		return fmt.Errorf("error writing report header: %w", err)
	}
	for _, s := range scores {
		record := []string{
			s.Title, s.Lead, s.OutputTitle, s.OutputLead,
			formatScore(s.TitleRouge2), formatScore(s.TitleRougeL), formatScore(s.TitleBERTScore),
			formatScore(s.LeadRouge2), formatScore(s.LeadRougeL), formatScore(s.LeadBERTScore),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("error writing report row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteSummary(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("error writing summary: %w", err)
	}
	return nil
}

// SummaryPath returns the summary file that accompanies a report,
// metrics.csv -> metrics_summary.json.
func SummaryPath(reportPath string) string {
	return strings.TrimSuffix(reportPath, ".csv") + "_summary.json"
}

package metrics

import (
	"context"
	"fmt"
	"log/slog"
)

// Row is one reference/hypothesis record for both slots.
type Row struct {
	Title       string
	Lead        string
	OutputTitle string
	OutputLead  string
}

type RowScores struct {
	Row
	TitleRouge2    float64
	TitleRougeL    float64
	TitleBERTScore float64
	LeadRouge2     float64
	LeadRougeL     float64
	LeadBERTScore  float64
}

type Summary struct {
	TitleRouge2    float64 `json:"title_rouge2_f1"`
	TitleRougeL    float64 `json:"title_rougeL_f1"`
	TitleBERTScore float64 `json:"title_bertscore_f1"`
	LeadRouge2     float64 `json:"lead_rouge2_f1"`
	LeadRougeL     float64 `json:"lead_rougeL_f1"`
	LeadBERTScore  float64 `json:"lead_bertscore_f1"`
	Rows           int     `json:"rows"`
}

func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("title_rouge2_f1", s.TitleRouge2),
		slog.Float64("title_rougeL_f1", s.TitleRougeL),
		slog.Float64("title_bertscore_f1", s.TitleBERTScore),
		slog.Float64("lead_rouge2_f1", s.LeadRouge2),
		slog.Float64("lead_rougeL_f1", s.LeadRougeL),
		slog.Float64("lead_bertscore_f1", s.LeadBERTScore),
		slog.Int("rows", s.Rows),
	)
}

type Options struct {
	Lowercase bool
	// SkipRow excludes a row from scoring when it returns true, e.g. rows whose
	// outputs hold a generation error marker.
	SkipRow func(Row) bool
	// Embedder backs the embedding similarity score. Without one that score is
	// reported as 0.
	Embedder       Embedder
	EmbedBatchSize int
}

// Evaluate scores every row with ROUGE-2 and ROUGE-L F1 and computes one batch
// level embedding similarity F1 per slot, which is attached to every row.
func Evaluate(ctx context.Context, rows []Row, opts Options) ([]RowScores, Summary, error) {
	var kept []Row
	for _, row := range rows {
		if opts.SkipRow != nil && opts.SkipRow(row) {
			continue
		}
		kept = append(kept, row)
	}
	if skipped := len(rows) - len(kept); skipped > 0 {
		slog.Info("excluded rows from evaluation", "skipped", skipped, "rows", len(rows))
	}

	n := len(kept)
	titleRefs, titleHyps := make([][]string, n), make([][]string, n)
	leadRefs, leadHyps := make([][]string, n), make([][]string, n)

	scores := make([]RowScores, n)
	var summary Summary
	for i, row := range kept {
		titleRefs[i], titleHyps[i] = Tokenize(row.Title, opts.Lowercase), Tokenize(row.OutputTitle, opts.Lowercase)
		leadRefs[i], leadHyps[i] = Tokenize(row.Lead, opts.Lowercase), Tokenize(row.OutputLead, opts.Lowercase)

		s := RowScores{
			Row:         row,
			TitleRouge2: RougeN(titleRefs[i], titleHyps[i], 2),
			TitleRougeL: RougeL(titleRefs[i], titleHyps[i]),
			LeadRouge2:  RougeN(leadRefs[i], leadHyps[i], 2),
			LeadRougeL:  RougeL(leadRefs[i], leadHyps[i]),
		}
		scores[i] = s

		summary.TitleRouge2 += s.TitleRouge2
		summary.TitleRougeL += s.TitleRougeL
		summary.LeadRouge2 += s.LeadRouge2
		summary.LeadRougeL += s.LeadRougeL
	}

	if n > 0 {
		summary.TitleRouge2 /= float64(n)
		summary.TitleRougeL /= float64(n)
		summary.LeadRouge2 /= float64(n)
		summary.LeadRougeL /= float64(n)
	}
	summary.Rows = n

	if opts.Embedder == nil {
		slog.Warn("no embedder configured, bertscore is reported as 0")
		return scores, summary, nil
	}

	var err error
	summary.TitleBERTScore, err = BERTScore(ctx, opts.Embedder, titleRefs, titleHyps, opts.EmbedBatchSize)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("error computing title bertscore: %w", err)
	}
	summary.LeadBERTScore, err = BERTScore(ctx, opts.Embedder, leadRefs, leadHyps, opts.EmbedBatchSize)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("error computing lead bertscore: %w", err)
	}

	for i := range scores {
		scores[i].TitleBERTScore = summary.TitleBERTScore
		scores[i].LeadBERTScore = summary.LeadBERTScore
	}

	return scores, summary, nil
}

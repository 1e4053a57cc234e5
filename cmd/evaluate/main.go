package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"headline-sft/cmd"
	"headline-sft/internal/config"
	"headline-sft/internal/inference"
	"headline-sft/internal/metrics"
	"headline-sft/internal/tabular"
)

func writeFile(path string, write func(f *os.File) error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		log.Fatalf("error creating output directory: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("error creating %s: %v", path, err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		log.Fatalf("error writing %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("error closing %s: %v", path, err)
	}
}

func main() {
	var cfg config.Evaluate
	cmd.LoadConfig(&cfg)

	ctx := context.Background()

	store := cmd.CreateObjectStore(ctx, cfg.Storage)
	input := cmd.ResolveInput(ctx, store, cfg.Storage, cfg.Input)

	table, err := tabular.Read(input)
	if err != nil {
		log.Fatalf("error reading outputs: %v", err)
	}
	if err := table.Require("title", "lead", "output_title", "output_lead"); err != nil {
		log.Fatalf("error reading outputs from %s: %v", input, err)
	}

	rows := make([]metrics.Row, table.Len())
	for i := range rows {
		rows[i] = metrics.Row{
			Title:       table.Get(i, "title"),
			Lead:        table.Get(i, "lead"),
			OutputTitle: table.Get(i, "output_title"),
			OutputLead:  table.Get(i, "output_lead"),
		}
	}

	opts := metrics.Options{
		Lowercase:      cfg.Lowercase,
		EmbedBatchSize: cfg.EmbedBatchSize,
	}
	if cfg.SkipErrorRows {
		opts.SkipRow = func(r metrics.Row) bool {
			return inference.IsErrorMarker(r.OutputTitle) || inference.IsErrorMarker(r.OutputLead)
		}
	}
	if cfg.EmbeddingBaseURL != "" {
		opts.Embedder = metrics.NewOpenAIEmbedder(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel)
	}

	slog.Info("evaluating", "input", input, "rows", len(rows), "lowercase", cfg.Lowercase, "skip_error_rows", cfg.SkipErrorRows)

	scores, summary, err := metrics.Evaluate(ctx, rows, opts)
	if err != nil {
		log.Fatalf("error evaluating: %v", err)
	}

	summaryPath := metrics.SummaryPath(cfg.Output)
	writeFile(cfg.Output, func(f *os.File) error { return metrics.WriteReport(f, scores) })
	writeFile(summaryPath, func(f *os.File) error { return metrics.WriteSummary(f, summary) })

	slog.Info("evaluation finished", "report", cfg.Output, "summary_file", summaryPath, "summary", summary)

	cmd.PublishOutputs(ctx, store, cfg.Storage, cfg.Output, summaryPath)
}

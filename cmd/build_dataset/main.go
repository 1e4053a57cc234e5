package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"headline-sft/cmd"
	"headline-sft/internal/config"
	"headline-sft/internal/core/dataset"
	"headline-sft/internal/core/types"
	"headline-sft/internal/tabular"
)

func main() {
	var cfg config.BuildDataset
	cmd.LoadConfig(&cfg)

	ctx := context.Background()

	tasks, err := types.ParseTasks(cfg.Tasks)
	if err != nil {
		log.Fatalf("invalid TASKS: %v", err)
	}
	wrapper, err := dataset.ParseWrapper(cfg.Wrapper)
	if err != nil {
		log.Fatalf("invalid WRAPPER: %v", err)
	}

	store := cmd.CreateObjectStore(ctx, cfg.Storage)
	input := cmd.ResolveInput(ctx, store, cfg.Storage, cfg.Input)

	table, err := tabular.Read(input)
	if err != nil {
		log.Fatalf("error reading articles: %v", err)
	}

	required := []string{"content"}
	if !cfg.WithoutLabels {
		for _, task := range tasks {
			switch task {
			case types.TaskTitle:
				required = append(required, "title")
			case types.TaskLead:
				required = append(required, "lead")
			case types.TaskGeneral:
				required = append(required, "title", "lead")
			}
		}
	}
	if err := table.Require(required...); err != nil {
		log.Fatalf("error reading articles from %s: %v", input, err)
	}

	slog.Info("building dataset", "input", input, "rows", table.Len(), "tasks", cfg.Tasks, "wrapper", wrapper)

	if err := os.MkdirAll(filepath.Dir(cfg.Output), os.ModePerm); err != nil {
		log.Fatalf("error creating output directory: %v", err)
	}
	out, err := os.Create(cfg.Output)
	if err != nil {
		log.Fatalf("error creating output file: %v", err)
	}
	defer out.Close()

	summary, err := dataset.Build(table.Articles(), dataset.NewWriter(out, wrapper), dataset.BuildOptions{
		Tasks:         tasks,
		WithoutLabels: cfg.WithoutLabels,
		ShowProgress:  cfg.ShowProgressBar,
	})
	if err != nil {
		log.Fatalf("error building dataset: %v", err)
	}
	if err := out.Close(); err != nil {
		log.Fatalf("error closing output file: %v", err)
	}

	slog.Info("dataset written", "output", cfg.Output, "summary", summary)

	cmd.PublishOutputs(ctx, store, cfg.Storage, cfg.Output)
}

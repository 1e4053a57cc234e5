package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"headline-sft/cmd"
	"headline-sft/internal/config"
	"headline-sft/internal/database"
	"headline-sft/internal/inference"
	"headline-sft/internal/tabular"
)

func main() {
	var cfg config.Generate
	cmd.LoadConfig(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := inference.NewClient(cfg.Inference.Options())
	if err != nil {
		log.Fatalf("error creating inference client: %v", err)
	}

	store := cmd.CreateObjectStore(ctx, cfg.Storage)
	input := cmd.ResolveInput(ctx, store, cfg.Storage, cfg.Input)

	table, err := tabular.Read(input)
	if err != nil {
		log.Fatalf("error reading articles: %v", err)
	}
	if err := table.Require("content"); err != nil {
		log.Fatalf("error reading articles from %s: %v", input, err)
	}

	opts := inference.BatchOptions{ShowProgress: cfg.ShowProgressBar}
	if cfg.CacheDB != "" {
		db, err := database.Open(cfg.CacheDB)
		if err != nil {
			log.Fatalf("error opening generation cache: %v", err)
		}
		cache := database.NewGenerationCache(db)
		opts.Cache = cache

		cached, err := cache.Count(ctx)
		if err != nil {
			log.Fatalf("error reading generation cache: %v", err)
		}
		slog.Info("using generation cache", "path", cfg.CacheDB, "cached_generations", cached)
	}

	slog.Info("generating", "input", input, "rows", table.Len(), "model", client.Model(), "base_url", cfg.Inference.BaseURL)

	generations, summary, err := client.Batch(ctx, table.Articles(), opts)
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		log.Fatalf("error generating: %v", err)
	}

	table.AddColumn("output_lead")
	table.AddColumn("output_title")
	for i, gen := range generations {
		table.Set(i, "output_lead", gen.Lead)
		table.Set(i, "output_title", gen.Title)
	}

	if err := tabular.Write(cfg.Output, table); err != nil {
		log.Fatalf("error writing outputs: %v", err)
	}

	usage := client.Usage()
	slog.Info("generation finished", "output", cfg.Output, "summary", summary,
		"prompt_tokens", usage.PromptTokens, "completion_tokens", usage.CompletionTokens)

	if interrupted {
		log.Fatalf("interrupted after %d of %d rows, partial outputs written to %s", len(generations), table.Len(), cfg.Output)
	}

	cmd.PublishOutputs(ctx, store, cfg.Storage, cfg.Output)
}

package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"headline-sft/cmd"
	"headline-sft/internal/config"
	"headline-sft/internal/core/filter"
	"headline-sft/internal/core/tokenizer"
)

func main() {
	var cfg config.FilterDataset
	cmd.LoadConfig(&cfg)

	ctx := context.Background()

	factory, err := tokenizer.NewFactory(cfg.Tokenizer.Config())
	if err != nil {
		log.Fatalf("error configuring tokenizer: %v", err)
	}

	store := cmd.CreateObjectStore(ctx, cfg.Storage)
	input := cmd.ResolveInput(ctx, store, cfg.Storage, cfg.Input)

	in, err := os.Open(input)
	if err != nil {
		log.Fatalf("error opening dataset: %v", err)
	}
	defer in.Close()

	var out io.Writer = io.Discard
	var file *os.File
	if cfg.Output != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Output), os.ModePerm); err != nil {
			log.Fatalf("error creating output directory: %v", err)
		}
		file, err = os.Create(cfg.Output)
		if err != nil {
			log.Fatalf("error creating output file: %v", err)
		}
		defer file.Close()
		out = file
	} else {
		slog.Info("no OUTPUT set, only reporting token statistics")
	}

	slog.Info("filtering dataset", "input", input, "min_tokens", cfg.MinTokens, "max_tokens", cfg.MaxTokens, "workers", cfg.Workers, "tokenizer", cfg.Tokenizer.Model)

	summary, err := filter.Run(in, out, filter.Options{
		MinTokens:    cfg.MinTokens,
		MaxTokens:    cfg.MaxTokens,
		Workers:      cfg.Workers,
		NewTokenizer: factory,
		ShowProgress: cfg.ShowProgressBar,
	})
	if err != nil {
		log.Fatalf("error filtering dataset: %v", err)
	}

	slog.Info("token statistics", "summary", summary)

	if file == nil {
		return
	}
	if err := file.Close(); err != nil {
		log.Fatalf("error closing output file: %v", err)
	}
	slog.Info("filtered dataset written", "output", cfg.Output, "kept", summary.Kept)

	cmd.PublishOutputs(ctx, store, cfg.Storage, cfg.Output)
}

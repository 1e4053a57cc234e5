package main

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"headline-sft/cmd"
	"headline-sft/internal/config"
	"headline-sft/internal/core/dataset"
)

func main() {
	var cfg config.FixDataset
	cmd.LoadConfig(&cfg)

	opts := dataset.RewriteOptions{
		Normalize:     cfg.Normalize,
		DefaultSystem: cfg.DefaultSystem,
	}
	if cfg.Wrapper != "" {
		wrapper, err := dataset.ParseWrapper(cfg.Wrapper)
		if err != nil {
			log.Fatalf("invalid WRAPPER: %v", err)
		}
		opts.Wrapper = wrapper
	}

	in, err := os.Open(cfg.Input)
	if err != nil {
		log.Fatalf("error opening dataset: %v", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.Output), os.ModePerm); err != nil {
		log.Fatalf("error creating output directory: %v", err)
	}
	out, err := os.Create(cfg.Output)
	if err != nil {
		log.Fatalf("error creating output file: %v", err)
	}
	defer out.Close()

	summary, err := dataset.Rewrite(in, out, opts)
	if err != nil {
		log.Fatalf("error rewriting dataset: %v", err)
	}
	if err := out.Close(); err != nil {
		log.Fatalf("error closing output file: %v", err)
	}

	slog.Info("dataset rewritten", "output", cfg.Output, "summary", summary)
}

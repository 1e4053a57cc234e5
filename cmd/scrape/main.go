package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"headline-sft/cmd"
	"headline-sft/internal/config"
	"headline-sft/internal/scraper"
	"headline-sft/internal/tabular"
)

func main() {
	var cfg config.Scrape
	cmd.LoadConfig(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manifest, err := scraper.LoadManifest(cfg.Manifest)
	if err != nil {
		log.Fatalf("error loading manifest: %v", err)
	}

	slog.Info("scraping articles", "base_url", cfg.BaseURL, "articles", manifest.Count(), "styles", len(manifest.Styles), "workers", cfg.Workers)

	client := scraper.NewClient(cfg.BaseURL, cfg.Timeout).
		SetConcurrency(cfg.Workers).
		SetInterval(cfg.Interval)

	table, summary, err := client.Scrape(ctx, manifest, cfg.ShowProgressBar)
	if err != nil {
		slog.Warn("scrape interrupted, writing articles fetched so far", "error", err)
	}

	if err := tabular.Write(cfg.Output, table); err != nil {
		log.Fatalf("error writing articles: %v", err)
	}
	slog.Info("articles written", "output", cfg.Output, "summary", summary)

	if err != nil {
		os.Exit(1)
	}

	cmd.PublishOutputs(ctx, cmd.CreateObjectStore(ctx, cfg.Storage), cfg.Storage, cfg.Output)
}

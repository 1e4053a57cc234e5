package config_test

import (
	"log/slog"
	"testing"
	"time"

	"headline-sft/internal/config"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDefaults(t *testing.T) {
	t.Setenv("INPUT", "articles.csv")

	var cfg config.Generate
	require.NoError(t, env.Parse(&cfg))

	opts := cfg.Inference.Options()
	assert.Equal(t, "qwen3-8b-5k-quant-8-2:latest", opts.Model)
	assert.Equal(t, 0.6, opts.Temperature)
	assert.Equal(t, 0.9, opts.TopP)
	assert.Equal(t, int64(4096), opts.MaxTokens)
	assert.Equal(t, 120*time.Second, opts.Timeout)
	assert.Equal(t, 2*time.Second, opts.Backoff)
	assert.Equal(t, 200*time.Millisecond, opts.Pacing)
	assert.Equal(t, 3, opts.MaxAttempts)

	assert.Equal(t, "test_articles_outputs.csv", cfg.Output)
	assert.Equal(t, "", cfg.CacheDB)
	assert.True(t, cfg.ShowProgressBar)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestFilterOverrides(t *testing.T) {
	t.Setenv("INPUT", "s3://datasets/train.jsonl")
	t.Setenv("MIN_TOKENS", "150")
	t.Setenv("WORKERS", "4")
	t.Setenv("TOKENIZER_BACKEND", "tiktoken")
	t.Setenv("TOKENIZER_MODEL", "cl100k_base")
	t.Setenv("LOG_LEVEL", "debug")

	var cfg config.FilterDataset
	require.NoError(t, env.Parse(&cfg))

	assert.Equal(t, 150, cfg.MinTokens)
	assert.Equal(t, 4096, cfg.MaxTokens)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "", cfg.Output)
	assert.Equal(t, "tiktoken", cfg.Tokenizer.Config().Backend)
	assert.Equal(t, "cl100k_base", cfg.Tokenizer.Config().Model)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestRequiredInput(t *testing.T) {
	var cfg config.BuildDataset
	assert.Error(t, env.Parse(&cfg))
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := config.Logging{LogLevel: "loud"}.Level()
	assert.Error(t, err)
}

func TestScrapeDefaults(t *testing.T) {
	var cfg config.Scrape
	require.NoError(t, env.Parse(&cfg))

	assert.Equal(t, "https://gw.vnexpress.net", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 100*time.Millisecond, cfg.Interval)
}

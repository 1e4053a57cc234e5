package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"headline-sft/internal/core/tokenizer"
	"headline-sft/internal/inference"
)

type Logging struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (l Logging) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", l.LogLevel, err)
	}
	return level, nil
}

// Storage configures where s3:// inputs are read from and where outputs are
// published. LocalStoreDir replaces S3 with a directory, for local runs.
type Storage struct {
	S3Endpoint      string `env:"S3_ENDPOINT_URL"`
	S3Region        string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3AccessKeyID   string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretKey     string `env:"AWS_SECRET_ACCESS_KEY"`
	LocalStoreDir   string `env:"LOCAL_STORE_DIR"`
	PublishBucket   string `env:"PUBLISH_BUCKET"`
	PublishPrefix   string `env:"PUBLISH_PREFIX"`
	DownloadDir     string `env:"DOWNLOAD_DIR" envDefault:"./downloads"`
	ShowProgressBar bool   `env:"SHOW_PROGRESS" envDefault:"true"`
}

type Inference struct {
	BaseURL     string        `env:"LLM_BASE_URL" envDefault:"http://localhost:11434/v1"`
	APIKey      string        `env:"LLM_API_KEY"`
	Model       string        `env:"LLM_MODEL" envDefault:"qwen3-8b-5k-quant-8-2:latest"`
	Temperature float64       `env:"LLM_TEMPERATURE" envDefault:"0.6"`
	TopP        float64       `env:"LLM_TOP_P" envDefault:"0.9"`
	MaxTokens   int64         `env:"LLM_MAX_TOKENS" envDefault:"4096"`
	Timeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`
	Backoff     time.Duration `env:"LLM_RETRY_BACKOFF" envDefault:"2s"`
	Pacing      time.Duration `env:"LLM_PACING" envDefault:"200ms"`
	MaxAttempts int           `env:"LLM_MAX_ATTEMPTS" envDefault:"3"`
}

func (c Inference) Options() inference.Options {
	return inference.Options{
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Temperature: c.Temperature,
		TopP:        c.TopP,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout,
		Backoff:     c.Backoff,
		Pacing:      c.Pacing,
		MaxAttempts: c.MaxAttempts,
	}
}

type Tokenizer struct {
	Backend          string `env:"TOKENIZER_BACKEND" envDefault:"hf"`
	Model            string `env:"TOKENIZER_MODEL" envDefault:"Qwen/Qwen3-8B"`
	AddSpecialTokens bool   `env:"TOKENIZER_ADD_SPECIAL_TOKENS" envDefault:"false"`
	HuggingFaceToken string `env:"HF_TOKEN"`
	HuggingFaceCache string `env:"HF_CACHE_DIR"`
}

func (c Tokenizer) Config() tokenizer.Config {
	return tokenizer.Config{
		Backend:          c.Backend,
		Model:            c.Model,
		AddSpecialTokens: c.AddSpecialTokens,
		HuggingFaceToken: c.HuggingFaceToken,
		HuggingFaceCache: c.HuggingFaceCache,
	}
}

type BuildDataset struct {
	Logging
	Storage
	Input         string `env:"INPUT,required"`
	Output        string `env:"OUTPUT" envDefault:"train_data.jsonl"`
	Tasks         string `env:"TASKS" envDefault:"title,lead"`
	Wrapper       string `env:"WRAPPER" envDefault:"conversations"`
	WithoutLabels bool   `env:"WITHOUT_LABELS" envDefault:"false"`
}

type FilterDataset struct {
	Logging
	Storage
	Tokenizer
	Input string `env:"INPUT,required"`
	// Output may be empty to only report token statistics.
	Output    string `env:"OUTPUT"`
	MinTokens int    `env:"MIN_TOKENS" envDefault:"200"`
	MaxTokens int    `env:"MAX_TOKENS" envDefault:"4096"`
	Workers   int    `env:"WORKERS" envDefault:"14"`
}

type FixDataset struct {
	Logging
	Input  string `env:"INPUT,required"`
	Output string `env:"OUTPUT,required"`
	// Wrapper forces every record to one wrapper; empty keeps each record's own.
	Wrapper string `env:"WRAPPER"`
	// Normalize drops empty turns and adds the default system turn when missing.
	Normalize     bool   `env:"NORMALIZE" envDefault:"false"`
	DefaultSystem string `env:"DEFAULT_SYSTEM_PROMPT" envDefault:"You are a helpful assistant."`
}

type Generate struct {
	Logging
	Storage
	Inference
	Input  string `env:"INPUT,required"`
	Output string `env:"OUTPUT" envDefault:"test_articles_outputs.csv"`
	// CacheDB is a sqlite file holding finished generations; empty disables it.
	CacheDB string `env:"CACHE_DB"`
}

type Evaluate struct {
	Logging
	Storage
	Input            string `env:"INPUT,required"`
	Output           string `env:"OUTPUT" envDefault:"metrics_report.csv"`
	Lowercase        bool   `env:"ROUGE_LOWERCASE" envDefault:"false"`
	SkipErrorRows    bool   `env:"SKIP_ERROR_ROWS" envDefault:"false"`
	EmbeddingBaseURL string `env:"EMBEDDING_BASE_URL"`
	EmbeddingAPIKey  string `env:"EMBEDDING_API_KEY"`
	EmbeddingModel   string `env:"EMBEDDING_MODEL"`
	EmbedBatchSize   int    `env:"EMBED_BATCH_SIZE" envDefault:"256"`
}

type Scrape struct {
	Logging
	Storage
	BaseURL  string        `env:"SCRAPE_BASE_URL" envDefault:"https://gw.vnexpress.net"`
	Timeout  time.Duration `env:"SCRAPE_TIMEOUT" envDefault:"10s"`
	Workers  int           `env:"SCRAPE_WORKERS" envDefault:"4"`
	Interval time.Duration `env:"SCRAPE_INTERVAL" envDefault:"100ms"`
	Manifest string        `env:"SCRAPE_MANIFEST"`
	Output   string        `env:"OUTPUT" envDefault:"test_articles.csv"`
}

package cmd

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"headline-sft/internal/config"
	"headline-sft/internal/storage"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

type leveled interface {
	Level() (slog.Level, error)
}

// LoadConfig loads the optional env file, parses cfg (a pointer to a config
// struct) from the environment and sets the default logger's level.
func LoadConfig(cfg leveled) {
	LoadEnvFile()

	if err := env.Parse(cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	level, err := cfg.Level()
	if err != nil {
		log.Fatalf("%v", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// CreateObjectStore returns the store used for s3:// inputs and published
// outputs, or nil when nothing is configured.
func CreateObjectStore(ctx context.Context, cfg config.Storage) storage.ObjectStore {
	if cfg.LocalStoreDir != "" {
		store, err := storage.NewLocalObjectStore(cfg.LocalStoreDir)
		if err != nil {
			log.Fatalf("error creating local object store: %v", err)
		}
		return store
	}

	if cfg.S3Endpoint == "" && cfg.PublishBucket == "" {
		return nil
	}

	store, err := storage.NewS3ObjectStore(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretKey,
	})
	if err != nil {
		log.Fatalf("error creating s3 object store: %v", err)
	}
	return store
}

// ResolveInput returns a local path for input, downloading it from the object
// store when it is an s3:// location.
func ResolveInput(ctx context.Context, store storage.ObjectStore, cfg config.Storage, input string) string {
	path, err := storage.Resolve(ctx, store, input, cfg.DownloadDir)
	if err != nil {
		log.Fatalf("error resolving input %s: %v", input, err)
	}
	if path != input {
		slog.Info("downloaded input", "location", input, "path", path)
	}
	return path
}

// PublishOutputs uploads the given files when a publish bucket is configured.
func PublishOutputs(ctx context.Context, store storage.ObjectStore, cfg config.Storage, files ...string) {
	if cfg.PublishBucket == "" {
		return
	}
	if store == nil {
		log.Fatalf("PUBLISH_BUCKET is set but no object store is configured")
	}

	for _, file := range files {
		key, err := storage.Publish(ctx, store, cfg.PublishBucket, cfg.PublishPrefix, file)
		if err != nil {
			log.Fatalf("error publishing %s: %v", file, err)
		}
		slog.Info("published output", "file", file, "bucket", cfg.PublishBucket, "key", key)
	}
}

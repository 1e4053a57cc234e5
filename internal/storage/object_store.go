package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type ObjectStore interface {
	CreateBucket(ctx context.Context, bucket string) error

	PutObject(ctx context.Context, bucket, key string, data io.Reader) error

	DownloadObject(ctx context.Context, bucket, key, filename string) error
}

const s3Scheme = "s3://"

// ParseURI splits s3://bucket/key. ok is false for plain file paths.
func ParseURI(uri string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(uri, s3Scheme) {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(uri, s3Scheme), "/")
	return bucket, key, bucket != "" && key != ""
}

// Resolve returns a local path for an input location, downloading s3:// inputs
// into dir first. Plain paths are returned unchanged.
func Resolve(ctx context.Context, store ObjectStore, uri, dir string) (string, error) {
	bucket, key, ok := ParseURI(uri)
	if !ok {
		if strings.HasPrefix(uri, s3Scheme) {
			return "", fmt.Errorf("invalid object location %q, expected s3://bucket/key", uri)
		}
		return uri, nil
	}
	if store == nil {
		return "", fmt.Errorf("no object store configured to read %s", uri)
	}

	local := filepath.Join(dir, bucket, filepath.FromSlash(key))
	if err := store.DownloadObject(ctx, bucket, key, local); err != nil {
		return "", err
	}
	return local, nil
}

// Publish uploads a local file to bucket under prefix, keeping its base name,
// and returns the key it was stored at.
func Publish(ctx context.Context, store ObjectStore, bucket, prefix, filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for upload: %w", filename, err)
	}
	defer f.Close()

	if err := store.CreateBucket(ctx, bucket); err != nil {
		return "", err
	}

	key := path.Join(prefix, filepath.Base(filename))
	if err := store.PutObject(ctx, bucket, key, f); err != nil {
		return "", err
	}
	return key, nil
}

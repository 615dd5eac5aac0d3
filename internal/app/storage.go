package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/iamsyg/artisian-dashboard/internal/config"
	"github.com/iamsyg/artisian-dashboard/internal/storage"
	"github.com/iamsyg/artisian-dashboard/internal/storage/memory"
	"github.com/iamsyg/artisian-dashboard/internal/storage/s3"
)

// objectStore is the configured storage driver. media is set when the
// service serves the objects itself.
type objectStore struct {
	bucket func(name string) storage.Bucket
	media  http.Handler
}

func newObjectStore(ctx context.Context, cfg *config.Config) (*objectStore, error) {
	switch cfg.StorageDriver {
	case config.StorageS3:
		store, err := s3.New(ctx, s3.Config{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
			PublicBaseURL:   cfg.StoragePublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		return &objectStore{
			bucket: func(name string) storage.Bucket { return store.Bucket(name) },
		}, nil

	default:
		store := memory.New(cfg.MediaBaseURL())
		return &objectStore{
			bucket: func(name string) storage.Bucket { return store.Bucket(name) },
			media:  store,
		}, nil
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/timmy/legoreviews/internal/config"
)

// ErrArchiveDisabled is returned by OpenCaptionArchive when storage.enabled is off.
var ErrArchiveDisabled = errors.New("caption archive disabled")

// NewStorage creates an S3 client, detecting the provider from the endpoint
// when no type is given.
func NewStorage(cfg *S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.Type == "" {
		cfg.Type = detectStorageType(cfg.Endpoint)
	}
	return NewS3Storage(cfg)
}

// OpenCaptionArchive builds the caption archive described by cfg and makes
// sure its bucket exists.
// Parameters:
//   - ctx: context for the bucket check.
//   - cfg: storage section of the application config.
// Returns:
//   - *CaptionArchive: archive ready for Save.
//   - error: ErrArchiveDisabled when the archive is switched off, otherwise
//     any client or bucket failure.
func OpenCaptionArchive(ctx context.Context, cfg *config.StorageConfig) (*CaptionArchive, error) {
	if !cfg.Enabled {
		return nil, ErrArchiveDisabled
	}

	store, err := NewStorage(&S3Config{
		Type:      StorageType(strings.ToLower(cfg.Type)),
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return NewCaptionArchive(store, cfg.Prefix), nil
}

// detectStorageType guesses the provider from the endpoint host.
func detectStorageType(endpoint string) StorageType {
	host := strings.ToLower(normalizeEndpoint(endpoint))
	switch {
	case host == "", strings.HasSuffix(host, ".amazonaws.com"):
		return StorageTypeS3
	case strings.HasSuffix(host, ".r2.cloudflarestorage.com"):
		return StorageTypeR2
	default:
		return StorageTypeS3Compatible
	}
}

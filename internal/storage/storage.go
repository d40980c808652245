package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	cfg "github.com/templui/fileshare/internal/config"
)

var (
	ErrObjectExists   = errors.New("object already exists")
	ErrObjectNotFound = errors.New("object not found")
)

// Storage defines the interface for share object storage
type Storage interface {
	// Save stores body under key. Unless opts.Overwrite is set an existing key yields ErrObjectExists.
	Save(ctx context.Context, key string, body io.Reader, opts SaveOptions) error

	// Open streams the object stored under key
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object stored under key
	Delete(ctx context.Context, key string) error

	// URL returns a retrieval URL valid for at least ttl
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type SaveOptions struct {
	ContentType string
	Size        int64
	Overwrite   bool
}

// New picks the storage backend configured by STORAGE_DRIVER.
func New(c *cfg.Config) (Storage, error) {
	switch c.StorageDriver {
	case "s3":
		slog.Info("initializing S3 storage",
			"bucket", c.S3Bucket,
			"region", c.S3Region,
			"endpoint", c.S3Endpoint,
		)
		return NewS3Storage(S3Config{
			Region:    c.S3Region,
			Bucket:    c.S3Bucket,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			Endpoint:  c.S3Endpoint,
		})
	case "local":
		slog.Info("initializing local storage", "path", c.LocalStoragePath)
		return NewLocalDisk(c.LocalStoragePath, c.AppURL+LocalRoutePrefix)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
}

// Package filestore keeps generated diploma documents on local disk or in S3.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned when no object is stored under a key.
var ErrNotFound = errors.New("file not found")

// Store defines the operations the diploma pipeline needs from a file backend.
// Keys are slash-separated relative paths such as "12/3.pdf".
type Store interface {
	// Put writes content under key, replacing any previous object.
	Put(ctx context.Context, key string, content []byte, contentType string) error

	// Open streams the object stored under key, or returns ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
}

// Type selects a backend.
type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

// Config holds configuration for the supported backends.
type Config struct {
	Type      Type
	LocalPath string
	S3        S3Config
}

// S3Config configures the S3 backend. Endpoint is optional and targets S3-compatible services.
type S3Config struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string
}

// New builds the backend selected by cfg.Type.
// PRE: cfg.Type is local or s3; s3 requires Bucket and Region
// POST: Returns a ready Store
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case TypeLocal, "":
		path := cfg.LocalPath
		if path == "" {
			path = "./storage/diplomas"
		}
		return NewLocalStore(path)
	case TypeS3:
		if cfg.S3.Bucket == "" || cfg.S3.Region == "" {
			return nil, fmt.Errorf("s3 storage requires STORAGE_S3_BUCKET and STORAGE_S3_REGION")
		}
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// ReadAll loads a whole object into memory.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

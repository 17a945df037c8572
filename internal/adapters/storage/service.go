// Package storage holds rendered documents in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned by Get for a key the bucket does not hold.
var ErrObjectNotFound = errors.New("storage: object not found")

// ObjectStore is one bucket of documents.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key, contentType string, content []byte) error
	// Presign returns a time-limited GET link and its expiry.
	Presign(ctx context.Context, key string) (string, time.Time, error)
}

// Config is the MinIO connection the bucket is opened with.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	IsMinIOEnabled() bool
}

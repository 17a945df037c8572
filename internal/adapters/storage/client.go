package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultLinkTTL bounds how long a presigned document link stays valid.
const DefaultLinkTTL = 15 * time.Minute

var errNotConfigured = errors.New("storage: MINIO_ENDPOINT is not set")

// Bucket is an ObjectStore over a single MinIO bucket.
type Bucket struct {
	client  *minio.Client
	name    string
	linkTTL time.Duration
}

// OpenBucket connects to MinIO. The bucket itself is not touched until Ensure.
func OpenBucket(cfg Config, name string) (*Bucket, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, errNotConfigured
	}
	if name == "" {
		return nil, errors.New("storage: bucket name is required")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}
	return &Bucket{client: client, name: name, linkTTL: DefaultLinkTTL}, nil
}

// Name is the bucket name.
func (b *Bucket) Name() string { return b.name }

// Ensure creates the bucket on first start.
func (b *Bucket) Ensure(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.name)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", b.name, err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.name, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", b.name, err)
	}
	return nil
}

// Get reads the whole object. GetObject defers the missing-key error to the
// first read, so the read is what gets classified.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.name, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(key, err)
	}
	defer func() { _ = obj.Close() }()

	content, err := io.ReadAll(obj)
	if err != nil {
		return nil, classify(key, err)
	}
	return content, nil
}

func (b *Bucket) Put(ctx context.Context, key, contentType string, content []byte) error {
	_, err := b.client.PutObject(ctx, b.name, key, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", b.name, key, err)
	}
	return nil
}

func (b *Bucket) Presign(ctx context.Context, key string) (string, time.Time, error) {
	expiresAt := time.Now().Add(b.linkTTL)
	link, err := b.client.PresignedGetObject(ctx, b.name, key, b.linkTTL, url.Values{})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign %s/%s: %w", b.name, key, err)
	}
	return link.String(), expiresAt, nil
}

func classify(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" {
		return ErrObjectNotFound
	}
	return fmt.Errorf("get %s: %w", key, err)
}

var _ ObjectStore = (*Bucket)(nil)

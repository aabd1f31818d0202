// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package storage uploads relocated images to S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pdiddy/word2md/pkg/types"
)

// ObjectStore creates objects and reports the URL they can be read from.
type ObjectStore interface {
	// Put stores size bytes from r under key and returns the object's URL.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// MinIOStore is an ObjectStore backed by minio-go. It works with MinIO and
// any other S3-compatible server.
type MinIOStore struct {
	client  *minio.Client
	bucket  string
	region  string
	baseURL string
}

// NewMinIOStore creates a client from static configuration. The endpoint may
// carry an http:// or https:// scheme, which then overrides UseSSL.
func NewMinIOStore(cfg types.StorageConfig) (*MinIOStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is not configured")
	}
	endpoint, secure, err := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage client for %s: %w", endpoint, err)
	}

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		base = scheme + "://" + endpoint
	}

	return &MinIOStore{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		baseURL: base,
	}, nil
}

// Bucket returns the configured bucket name.
func (s *MinIOStore) Bucket() string { return s.bucket }

// BucketExists reports whether the configured bucket exists.
func (s *MinIOStore) BucketExists(ctx context.Context) (bool, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return false, fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	return exists, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.BucketExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put uploads an object and returns its public URL.
func (s *MinIOStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("putting %s/%s: %w", s.bucket, key, err)
	}
	return s.URL(key), nil
}

// URL returns the address of key in the bucket.
func (s *MinIOStore) URL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + url.PathEscape(s.bucket) + "/" + strings.Join(segments, "/")
}

// splitEndpoint strips an optional scheme from endpoint.
func splitEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, errors.New("storage endpoint is not configured")
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/"), useSSL, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parsing storage endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("unsupported storage endpoint scheme %q", u.Scheme)
	}
}

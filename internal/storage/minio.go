package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/your-org/vsconsole/internal/config"
	"github.com/your-org/vsconsole/internal/observability"
)

// EvidenceFetcher downloads an evidence file from the detection service.
type EvidenceFetcher func(ctx context.Context, path string) ([]byte, error)

// EvidenceCache is a read-through MinIO cache in front of the detection
// service's evidence files. Evidence is immutable once written, so cached
// objects never expire.
type EvidenceCache struct {
	client *minio.Client
	bucket string
	fetch  EvidenceFetcher
}

func NewEvidenceCache(cfg config.MinIOConfig, fetch EvidenceFetcher) (*EvidenceCache, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &EvidenceCache{
		client: client,
		bucket: cfg.Bucket,
		fetch:  fetch,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *EvidenceCache) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// Get returns the evidence bytes and their content type, filling the cache
// on a miss. A failed cache write is logged and does not fail the read.
func (s *EvidenceCache) Get(ctx context.Context, path string) ([]byte, string, error) {
	key := EvidenceKey(path)

	data, contentType, err := s.getObject(ctx, key)
	if err == nil {
		observability.EvidenceCacheHits.WithLabelValues("hit").Inc()
		return data, contentType, nil
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		slog.Warn("evidence cache read failed", "key", key, "error", err)
	}
	observability.EvidenceCacheHits.WithLabelValues("miss").Inc()

	data, err = s.fetch(ctx, path)
	if err != nil {
		return nil, "", err
	}
	contentType = http.DetectContentType(data)

	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		slog.Warn("evidence cache write failed", "key", key, "error", err)
	}
	return data, contentType, nil
}

func (s *EvidenceCache) getObject(ctx context.Context, key string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, "", err
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("read object %s: %w", key, err)
	}
	return data, info.ContentType, nil
}

// Ping checks MinIO connectivity.
func (s *EvidenceCache) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// EvidenceKey is the object key an evidence path is cached under.
func EvidenceKey(path string) string {
	return "evidence/" + strings.TrimLeft(strings.TrimSpace(path), "/")
}

// DirectEvidence serves evidence straight from the detection service. It
// is used when no object store is configured.
type DirectEvidence struct {
	fetch EvidenceFetcher
}

func NewDirectEvidence(fetch EvidenceFetcher) *DirectEvidence {
	return &DirectEvidence{fetch: fetch}
}

func (d *DirectEvidence) Get(ctx context.Context, path string) ([]byte, string, error) {
	data, err := d.fetch(ctx, path)
	if err != nil {
		return nil, "", err
	}
	observability.EvidenceCacheHits.WithLabelValues("bypass").Inc()
	return data, http.DetectContentType(data), nil
}

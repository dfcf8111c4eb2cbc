package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// BucketConfig points BucketStorage at an object-storage REST endpoint.
type BucketConfig struct {
	BaseURL string
	Bucket  string
	APIKey  string
	Timeout time.Duration
}

// BucketStorage writes documents to a remote bucket over its REST API:
// POST {base}/object/{bucket}/{path} to upload and
// {base}/object/public/{bucket}/{path} as the public reference.
type BucketStorage struct {
	client  *resty.Client
	baseURL string
	bucket  string
	logger  *zap.Logger
}

// NewBucketStorage builds a client for cfg.
func NewBucketStorage(cfg BucketConfig, logger *zap.Logger) (*BucketStorage, error) {
	if cfg.BaseURL == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket base url and name are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")

	// Uploads are never retried transparently; the caller decides.
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey).SetHeader("apikey", cfg.APIKey)
	}

	return &BucketStorage{client: client, baseURL: base, bucket: cfg.Bucket, logger: logger}, nil
}

type bucketError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Put uploads the object. Existing objects are never overwritten.
func (b *BucketStorage) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	path = strings.TrimLeft(path, "/")
	if path == "" || strings.Contains(path, "..") {
		return "", ErrInvalidPath
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload body: %w", err)
	}
	if size > 0 && int64(len(body)) != size {
		return "", fmt.Errorf("read upload body: got %d of %d bytes", len(body), size)
	}

	var apiErr bucketError
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetBody(body).
		SetError(&apiErr).
		Post(b.objectPath(path))
	if err != nil {
		b.logger.Error("bucket upload failed", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("bucket upload: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		b.logger.Warn("bucket rejected upload",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("message", msg),
		)
		return "", fmt.Errorf("bucket upload: status %d: %s", resp.StatusCode(), msg)
	}
	return path, nil
}

// PublicURL returns the public object URL for ref.
func (b *BucketStorage) PublicURL(ref string) (string, error) {
	ref = strings.TrimLeft(ref, "/")
	if ref == "" {
		return "", ErrInvalidPath
	}
	return b.baseURL + "/object/public/" + url.PathEscape(b.bucket) + "/" + escapeSegments(ref), nil
}

func (b *BucketStorage) objectPath(path string) string {
	return "/object/" + url.PathEscape(b.bucket) + "/" + escapeSegments(path)
}

func escapeSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage persists uploaded documents on disk under a base directory and
// hands out signed download links for them.
type LocalStorage struct {
	baseDir     string
	downloadURL string
	signer      *SignedURLSigner
}

// NewLocalStorage ensures the base directory exists and returns a handle.
// downloadURL is the absolute or root-relative endpoint that redeems tokens.
func NewLocalStorage(baseDir, downloadURL string, signer *SignedURLSigner) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: abs, downloadURL: downloadURL, signer: signer}, nil
}

// Put copies r into path. The written byte count must match size when size > 0.
func (s *LocalStorage) Put(ctx context.Context, path string, r io.Reader, size int64, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("prepare storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create storage file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("write storage file: %w", err)
	}
	if size > 0 && written != size {
		return "", fmt.Errorf("write storage file: wrote %d of %d bytes", written, size)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("commit storage file: %w", err)
	}
	return filepath.ToSlash(path), nil
}

// PublicURL returns a time-limited download link for ref.
func (s *LocalStorage) PublicURL(ref string) (string, error) {
	return s.SignedURL(ScopeDownload, ref)
}

// SignedURL returns a download link for ref bound to scope.
func (s *LocalStorage) SignedURL(scope, ref string) (string, error) {
	if s.signer == nil {
		return "", fmt.Errorf("signed url signer not configured")
	}
	if _, err := s.resolve(ref); err != nil {
		return "", err
	}
	token, _, err := s.signer.Generate(scope, ref)
	if err != nil {
		return "", err
	}
	sep := "?"
	if strings.Contains(s.downloadURL, "?") {
		sep = "&"
	}
	return s.downloadURL + sep + "token=" + url.QueryEscape(token), nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(ref string) (*os.File, error) {
	full, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open storage file: %w", err)
	}
	return file, nil
}

// Path exposes the absolute location of ref (used by the CLI).
func (s *LocalStorage) Path(ref string) (string, error) {
	return s.resolve(ref)
}

func (s *LocalStorage) resolve(ref string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimSpace(ref)))
	if clean == "." || clean == "" || filepath.IsAbs(clean) {
		return "", ErrInvalidPath
	}
	full := filepath.Join(s.baseDir, clean)
	rel, err := filepath.Rel(s.baseDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return full, nil
}

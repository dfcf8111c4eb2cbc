package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) (*LocalStorage, *SignedURLSigner) {
	t.Helper()
	signer := NewSignedURLSigner("secret", time.Hour)
	store, err := NewLocalStorage(t.TempDir(), "/api/v1/files/download", signer)
	require.NoError(t, err)
	return store, signer
}

func TestLocalStoragePutAndOpen(t *testing.T) {
	store, _ := newLocal(t)
	payload := []byte("%PDF-1.4 akta")

	ref, err := store.Put(context.Background(), "santri/s-1/AKTA_LAHIR/1-x.pdf", bytes.NewReader(payload), int64(len(payload)), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "santri/s-1/AKTA_LAHIR/1-x.pdf", ref)

	f, err := store.Open(ref)
	require.NoError(t, err)
	defer f.Close()
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestLocalStoragePutSizeMismatch(t *testing.T) {
	store, _ := newLocal(t)
	_, err := store.Put(context.Background(), "santri/a.png", strings.NewReader("abc"), 10, "image/png")
	require.Error(t, err)

	_, err = store.Open("santri/a.png")
	require.Error(t, err)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, _ := newLocal(t)
	for _, p := range []string{"../escape.pdf", "santri/../../x", "/etc/passwd", ""} {
		_, err := store.Put(context.Background(), p, strings.NewReader("x"), 1, "application/pdf")
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}
}

func TestLocalStoragePutHonoursCancelledContext(t *testing.T) {
	store, _ := newLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Put(ctx, "santri/a.pdf", strings.NewReader("x"), 1, "application/pdf")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLocalStoragePublicURL(t *testing.T) {
	store, signer := newLocal(t)
	link, err := store.PublicURL("santri/s-1/PAS_FOTO/1-a.png")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "/api/v1/files/download?token="))

	u, err := url.Parse(link)
	require.NoError(t, err)
	scope, path, _, err := signer.Parse(u.Query().Get("token"), false)
	require.NoError(t, err)
	assert.Equal(t, ScopeDownload, scope)
	assert.Equal(t, "santri/s-1/PAS_FOTO/1-a.png", path)
}

package media

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propline/promopost/internal/config"
)

func writeAsset(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

// tinyPNG is a 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func newHost(t *testing.T, uploadURL string) *Host {
	t.Helper()
	h, err := New(config.MediaHostConfig{UploadURL: uploadURL, MaxUploads: 2}, "test-key")
	require.NoError(t, err)
	return h
}

func TestUploadSuccess(t *testing.T) {
	var served atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("image")
		require.NoError(t, err)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		n := served.Add(1)
		fmt.Fprintf(w, `{"url": "https://img.example/%d/%s"}`, n, header.Filename)
	}))
	defer srv.Close()

	dir := t.TempDir()
	paths := []string{
		writeAsset(t, dir, "front.png", tinyPNG),
		writeAsset(t, dir, "kitchen.png", tinyPNG),
	}

	assets, err := newHost(t, srv.URL).Upload(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	for _, asset := range assets {
		assert.NotEmpty(t, asset.LocalPath)
		assert.Contains(t, asset.HostedURL, "https://img.example/")
		assert.Equal(t, 1, asset.Width)
		assert.Equal(t, 1, asset.Height)
	}
}

func TestUploadPartialFailureReturnsSurvivors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"url": "https://img.example/ok"}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	paths := []string{
		writeAsset(t, dir, "front.png", tinyPNG),
		filepath.Join(dir, "missing.png"),
	}

	assets, err := newHost(t, srv.URL).Upload(context.Background(), paths)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload 1/2")
	assert.Contains(t, err.Error(), "missing.png")

	// The surviving asset still comes back alongside the error.
	require.Len(t, assets, 1)
	assert.Equal(t, paths[0], assets[0].LocalPath)
}

func TestUploadHostRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": "file too large"}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	paths := []string{writeAsset(t, dir, "front.png", tinyPNG)}

	assets, err := newHost(t, srv.URL).Upload(context.Background(), paths)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")
	assert.Empty(t, assets)
}

func TestUploadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	paths := []string{writeAsset(t, dir, "front.png", tinyPNG)}

	_, err := newHost(t, srv.URL).Upload(context.Background(), paths)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status code error: 500")
}

func TestNewRequiresUploadURL(t *testing.T) {
	_, err := New(config.MediaHostConfig{}, "")
	assert.Error(t, err)
}

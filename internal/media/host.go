// Package media uploads local listing photos to the hosting service. It is a
// boundary collaborator: partial results are accepted and the orchestrator
// passes whatever succeeded to the publisher.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	_ "image/jpeg"
	_ "image/png"

	"github.com/propline/promopost/internal/config"
	"github.com/propline/promopost/internal/types"
)

// Host uploads media files over HTTP.
type Host struct {
	uploadURL  string
	apiKey     string
	maxUploads int
	client     *http.Client
	log        *slog.Logger
}

// New creates a host client from config.
func New(cfg config.MediaHostConfig, apiKey string) (*Host, error) {
	if cfg.UploadURL == "" {
		return nil, fmt.Errorf("media host upload_url is not set")
	}
	maxUploads := cfg.MaxUploads
	if maxUploads <= 0 {
		maxUploads = 3
	}
	return &Host{
		uploadURL:  cfg.UploadURL,
		apiKey:     apiKey,
		maxUploads: maxUploads,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: slog.With(slog.String("component", "media")),
	}, nil
}

// uploadResponse is the hosting service's reply for one file.
type uploadResponse struct {
	URL   string `json:"url"`
	Error string `json:"error,omitempty"`
}

// Upload sends each path concurrently and returns the assets that hosted
// successfully. A non-nil error summarizes the paths that failed; the
// returned slice is still valid alongside it.
func (h *Host) Upload(ctx context.Context, paths []string) ([]types.MediaAsset, error) {
	results := make([]types.MediaAsset, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.maxUploads)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			asset, err := h.uploadOne(gctx, path)
			if err != nil {
				h.log.Warn("upload failed", "path", path, "error", err)
				errs[i] = err
				return nil // per-path failure must not cancel the group
			}
			results[i] = asset
			return nil
		})
	}
	g.Wait()

	var assets []types.MediaAsset
	var failed []string
	for i := range paths {
		if errs[i] != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", paths[i], errs[i]))
			continue
		}
		assets = append(assets, results[i])
	}

	if len(failed) > 0 {
		return assets, fmt.Errorf("failed to upload %d/%d: %s",
			len(failed), len(paths), strings.Join(failed, "; "))
	}
	return assets, nil
}

// uploadOne posts a single file as multipart form data.
func (h *Host) uploadOne(ctx context.Context, path string) (types.MediaAsset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.MediaAsset{}, err
	}

	asset := types.MediaAsset{LocalPath: path}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		asset.Width = cfg.Width
		asset.Height = cfg.Height
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filepath.Base(path))
	if err != nil {
		return types.MediaAsset{}, err
	}
	if _, err := part.Write(data); err != nil {
		return types.MediaAsset{}, err
	}
	if err := writer.Close(); err != nil {
		return types.MediaAsset{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.uploadURL, &body)
	if err != nil {
		return types.MediaAsset{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	res, err := h.client.Do(req)
	if err != nil {
		return types.MediaAsset{}, err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return types.MediaAsset{}, err
	}
	if res.StatusCode != http.StatusOK {
		return types.MediaAsset{}, fmt.Errorf("status code error: %d %s", res.StatusCode, res.Status)
	}

	var parsed uploadResponse
	if err := json.Unmarshal(resBody, &parsed); err != nil {
		return types.MediaAsset{}, fmt.Errorf("failed to parse upload response: %w", err)
	}
	if parsed.Error != "" {
		return types.MediaAsset{}, fmt.Errorf("host rejected upload: %s", parsed.Error)
	}
	if parsed.URL == "" {
		return types.MediaAsset{}, fmt.Errorf("host returned no URL")
	}

	asset.HostedURL = parsed.URL
	return asset, nil
}

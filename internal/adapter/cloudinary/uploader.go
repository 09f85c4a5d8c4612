// Package cloudinary provides an HTTP client for the Cloudinary unsigned
// upload API, implementing the blobstore port.
package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/archsaint/storefront/internal/config"
)

// Uploader uploads local image files to Cloudinary and returns their
// public URLs.
type Uploader struct {
	uploadURL    string
	uploadPreset string
	httpClient   *http.Client
}

// New creates a new Cloudinary uploader.
func New(cfg config.Uploads) *Uploader {
	return &Uploader{
		uploadURL:    cfg.CloudURL,
		uploadPreset: cfg.UploadPreset,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Upload posts the file at localPath to the upload endpoint and returns the
// stored object's URL.
func (u *Uploader) Upload(ctx context.Context, localPath, folder string) (string, error) {
	f, err := os.Open(localPath) //nolint:gosec // G304: path comes from our own temp dir
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy file: %w", err)
	}
	_ = mw.WriteField("upload_preset", u.uploadPreset)
	_ = mw.WriteField("folder", folder)
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filepath.Base(localPath), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("upload %s: status %d: %s", filepath.Base(localPath), resp.StatusCode, data)
	}

	var result struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("upload %s: empty secure_url in response", filepath.Base(localPath))
	}
	return result.SecureURL, nil
}

package cloudinary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/archsaint/storefront/internal/config"
)

func writeTempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "product.jpg")
	if err := os.WriteFile(path, []byte("fake-jpeg-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadSuccess(t *testing.T) {
	var gotPreset, gotFolder string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotPreset = r.FormValue("upload_preset")
		gotFolder = r.FormValue("folder")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"secure_url":"https://cdn.example.com/product.jpg"}`))
	}))
	defer srv.Close()

	up := New(config.Uploads{CloudURL: srv.URL, UploadPreset: "unsigned-products"})

	url, err := up.Upload(context.Background(), writeTempImage(t), "storefront/products")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://cdn.example.com/product.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
	if gotPreset != "unsigned-products" {
		t.Errorf("expected preset forwarded, got %q", gotPreset)
	}
	if gotFolder != "storefront/products" {
		t.Errorf("expected folder forwarded, got %q", gotFolder)
	}
}

func TestUploadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid preset", http.StatusBadRequest)
	}))
	defer srv.Close()

	up := New(config.Uploads{CloudURL: srv.URL})

	if _, err := up.Upload(context.Background(), writeTempImage(t), "f"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestUploadMissingFile(t *testing.T) {
	up := New(config.Uploads{CloudURL: "http://localhost:0"})
	if _, err := up.Upload(context.Background(), "/nonexistent/file.jpg", "f"); err == nil {
		t.Fatal("expected error for missing local file")
	}
}

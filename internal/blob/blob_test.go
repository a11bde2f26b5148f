package blob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestUploadAndServe(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root, "/media/")
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	url, err := store.Upload(context.Background(), "slips/abc.jpg", []byte("jpeg-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if url != "/media/slips/abc.jpg" {
		t.Errorf("url = %q, want %q", url, "/media/slips/abc.jpg")
	}

	data, err := os.ReadFile(filepath.Join(root, "slips", "abc.jpg"))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("stored content = %q", data)
	}

	srv := httptest.NewServer(store.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/slips/abc.jpg")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("serving uploaded file = %d, want 200", resp.StatusCode)
	}
}

func TestUploadContainsTraversal(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root, "/media")
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	// Dot-dot segments are resolved against the store root, never past it.
	for _, path := range []string{"../escape.jpg", "a/../../escape.jpg"} {
		if _, err := store.Upload(context.Background(), path, []byte("x"), ""); err != nil {
			t.Fatalf("Upload(%q) failed: %v", path, err)
		}
		if _, err := os.Stat(filepath.Join(root, "escape.jpg")); err != nil {
			t.Errorf("Upload(%q) did not land inside the root: %v", path, err)
		}
		if _, err := os.Stat(filepath.Join(filepath.Dir(root), "escape.jpg")); err == nil {
			t.Errorf("Upload(%q) escaped the root", path)
		}
	}

	if _, err := store.Upload(context.Background(), "", []byte("x"), ""); err == nil {
		t.Error("Upload with empty path should be rejected")
	}
}

// Package blob stores uploaded images (payment slips, avatars, QR codes)
// and hands back retrievable URLs.
package blob

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Store is the interface the services upload through.
type Store interface {
	// Upload persists data under path and returns a retrievable URL.
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// FileStore implements Store on the local filesystem, serving files under
// baseURL (mounted at /media/ by the API server). No object-storage SDK is
// involved; a reverse proxy or the built-in handler serves the files.
type FileStore struct {
	root    string
	baseURL string
}

// NewFileStore creates the root directory and returns a store. baseURL is
// the public prefix the files are served under, e.g. "/media".
func NewFileStore(root, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &FileStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload writes data under path and returns its URL. Path traversal is
// rejected. The content type is implied by the file extension on read.
func (s *FileStore) Upload(_ context.Context, path string, data []byte, _ string) (string, error) {
	clean := filepath.Clean("/" + path)[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid blob path %q", path)
	}

	full := filepath.Join(s.root, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return s.baseURL + "/" + filepath.ToSlash(clean), nil
}

// Handler serves the stored files. Mount it at the baseURL prefix.
func (s *FileStore) Handler() http.Handler {
	return http.FileServer(http.Dir(s.root))
}

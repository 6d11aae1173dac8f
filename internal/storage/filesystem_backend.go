package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FilesystemBackend stores blobs as files under a base directory, with a
// sidecar .meta file carrying content type and provider metadata.
type FilesystemBackend struct {
	basePath string
}

type fileMeta struct {
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	StoredAt    time.Time         `json:"stored_at"`
}

// NewFilesystemBackend creates a filesystem storage backend rooted at basePath.
func NewFilesystemBackend(basePath string) (*FilesystemBackend, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create base path: %w", err)
	}
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}
	return &FilesystemBackend{basePath: absPath}, nil
}

func (f *FilesystemBackend) fullPath(storagePath string) string {
	return filepath.Join(f.basePath, filepath.FromSlash(sanitizePath(storagePath)))
}

// Store writes the blob and its sidecar metadata file.
func (f *FilesystemBackend) Store(ctx context.Context, storagePath string, blob Blob) (string, error) {
	cleanPath := sanitizePath(storagePath)
	fullPath := f.fullPath(cleanPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, blob.Content, 0644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	meta := fileMeta{
		ContentType: blob.ContentType,
		Size:        int64(len(blob.Content)),
		Metadata:    blob.Metadata,
		StoredAt:    time.Now().UTC(),
	}
	metaJSON, err := json.Marshal(meta)
	if err == nil {
		err = os.WriteFile(fullPath+".meta", metaJSON, 0644)
	}
	if err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("write blob metadata: %w", err)
	}

	return cleanPath, nil
}

// Retrieve reads the blob and its metadata back.
func (f *FilesystemBackend) Retrieve(ctx context.Context, storagePath string) (*Blob, error) {
	fullPath := f.fullPath(storagePath)
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	blob := &Blob{Content: content, ContentType: "application/octet-stream"}
	if metaJSON, err := os.ReadFile(fullPath + ".meta"); err == nil {
		var meta fileMeta
		if err := json.Unmarshal(metaJSON, &meta); err == nil {
			if meta.ContentType != "" {
				blob.ContentType = meta.ContentType
			}
			blob.Metadata = meta.Metadata
		}
	}
	return blob, nil
}

// Delete removes the blob and sidecar; missing files are fine.
func (f *FilesystemBackend) Delete(ctx context.Context, storagePath string) error {
	fullPath := f.fullPath(storagePath)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	_ = os.Remove(fullPath + ".meta")
	return nil
}

// Exists checks for the blob file.
func (f *FilesystemBackend) Exists(ctx context.Context, storagePath string) (bool, error) {
	_, err := os.Stat(f.fullPath(storagePath))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HealthCheck verifies the base directory is writable.
func (f *FilesystemBackend) HealthCheck(ctx context.Context) error {
	probe := filepath.Join(f.basePath, ".healthcheck")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("storage not writable: %w", err)
	}
	return os.Remove(probe)
}

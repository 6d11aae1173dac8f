package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestBackend(t *testing.T) *FilesystemBackend {
	t.Helper()
	backend, err := NewFilesystemBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemBackend returned error: %v", err)
	}
	return backend
}

func TestFilesystemStoreRetrieve(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	blob := Blob{
		Content:     []byte("attachment bytes"),
		ContentType: "text/plain",
		Metadata:    map[string]string{"filename": "notes.txt"},
	}
	path := AttachmentPath("acme", 7, 11, 0)
	stored, err := backend.Store(ctx, path, blob)
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if stored != path {
		t.Fatalf("expected path %q back, got %q", path, stored)
	}

	got, err := backend.Retrieve(ctx, path)
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if string(got.Content) != "attachment bytes" {
		t.Fatalf("unexpected content %q", got.Content)
	}
	if got.ContentType != "text/plain" {
		t.Fatalf("unexpected content type %q", got.ContentType)
	}
	if got.Metadata["filename"] != "notes.txt" {
		t.Fatalf("expected filename metadata kept, got %v", got.Metadata)
	}
}

func TestFilesystemRetrieveWithoutSidecar(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	if _, err := backend.Store(ctx, "acme/1/1/0", Blob{Content: []byte("x")}); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if err := os.Remove(filepath.Join(backend.basePath, "acme", "1", "1", "0.meta")); err != nil {
		t.Fatalf("remove sidecar: %v", err)
	}

	got, err := backend.Retrieve(ctx, "acme/1/1/0")
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if got.ContentType != "application/octet-stream" {
		t.Fatalf("expected generic content type without sidecar, got %q", got.ContentType)
	}
}

func TestFilesystemExistsDelete(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()
	path := "acme/7/11/0"

	ok, err := backend.Exists(ctx, path)
	if err != nil || ok {
		t.Fatalf("expected missing blob, got ok=%v err=%v", ok, err)
	}

	if _, err := backend.Store(ctx, path, Blob{Content: []byte("x")}); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if ok, _ := backend.Exists(ctx, path); !ok {
		t.Fatal("expected blob after store")
	}

	if err := backend.Delete(ctx, path); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if ok, _ := backend.Exists(ctx, path); ok {
		t.Fatal("expected blob gone after delete")
	}
	if err := backend.Delete(ctx, path); err != nil {
		t.Fatalf("deleting a missing blob must not error: %v", err)
	}
}

func TestFilesystemTraversalConfined(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	stored, err := backend.Store(ctx, "../../etc/escape", Blob{Content: []byte("x")})
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	full := filepath.Join(backend.basePath, filepath.FromSlash(stored))
	rel, err := filepath.Rel(backend.basePath, full)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) >= 2 && rel[:2] == ".." {
		t.Fatalf("stored path escapes the base directory: %q", stored)
	}
	if _, err := os.Stat(full); err != nil {
		t.Fatalf("expected blob under base path: %v", err)
	}
}

func TestFilesystemHealthCheck(t *testing.T) {
	backend := newTestBackend(t)
	if err := backend.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestSanitizePath(t *testing.T) {
	cases := map[string]string{
		"acme/7/11/0":     "acme/7/11/0",
		"/acme/7/11/0":    "acme/7/11/0",
		"../../etc/x":     "etc/x",
		"a/./b/../c":      "a/c",
		"":                "",
	}
	for in, want := range cases {
		if got := sanitizePath(in); got != want {
			t.Errorf("sanitizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

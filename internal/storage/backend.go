package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Blob is the content handed to a backend for persistence.
type Blob struct {
	Content     []byte
	ContentType string
	// Metadata keeps provider-supplied facts about the blob, notably the
	// original filename of an email attachment.
	Metadata map[string]string
}

// Backend is the blob storage interface consumed by the ingestion pipeline.
// Implementations persist attachment bytes under caller-chosen paths; signed
// URL issuance and retrieval serving happen elsewhere.
type Backend interface {
	// Store persists the blob under the given path and returns the path it
	// is addressable by.
	Store(ctx context.Context, storagePath string, blob Blob) (string, error)

	// Retrieve returns the stored blob.
	Retrieve(ctx context.Context, storagePath string) (*Blob, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, storagePath string) error

	// Exists checks whether a blob is present.
	Exists(ctx context.Context, storagePath string) (bool, error)

	// HealthCheck verifies the backend is operational.
	HealthCheck(ctx context.Context) error
}

// AttachmentPath builds the canonical storage path for an email attachment,
// namespaced org/ticket/message/index.
func AttachmentPath(orgID string, ticketID, messageID int64, index int) string {
	return fmt.Sprintf("%s/%d/%d/%d", orgID, ticketID, messageID, index)
}

// sanitizePath normalizes a storage path and strips any traversal segments.
func sanitizePath(p string) string {
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

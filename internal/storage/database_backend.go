package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/deskmail-io/deskmail/internal/database"
)

// DatabaseBackend stores blobs in the attachment_blobs table. Useful when the
// deployment has no shared filesystem.
type DatabaseBackend struct {
	db *sql.DB
}

// NewDatabaseBackend creates a database-backed blob store.
func NewDatabaseBackend(db *sql.DB) *DatabaseBackend {
	return &DatabaseBackend{db: db}
}

// Store upserts the blob row keyed by path.
func (d *DatabaseBackend) Store(ctx context.Context, storagePath string, blob Blob) (string, error) {
	cleanPath := sanitizePath(storagePath)
	contentType := blob.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	filename := blob.Metadata["filename"]

	_, err := d.db.ExecContext(ctx, database.ConvertPlaceholders(`
		DELETE FROM attachment_blobs WHERE path = $1`), cleanPath)
	if err != nil {
		return "", fmt.Errorf("clear existing blob: %w", err)
	}
	_, err = d.db.ExecContext(ctx, database.ConvertPlaceholders(`
		INSERT INTO attachment_blobs (path, content, content_type, filename, content_size)
		VALUES ($1, $2, $3, $4, $5)`),
		cleanPath, blob.Content, contentType, filename, int64(len(blob.Content)))
	if err != nil {
		return "", fmt.Errorf("insert blob: %w", err)
	}
	return cleanPath, nil
}

// Retrieve reads a blob row.
func (d *DatabaseBackend) Retrieve(ctx context.Context, storagePath string) (*Blob, error) {
	row := d.db.QueryRowContext(ctx, database.ConvertPlaceholders(`
		SELECT content, content_type, filename
		FROM attachment_blobs WHERE path = $1`), sanitizePath(storagePath))

	var blob Blob
	var filename sql.NullString
	if err := row.Scan(&blob.Content, &blob.ContentType, &filename); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("blob not found: %s", storagePath)
		}
		return nil, err
	}
	if filename.Valid && filename.String != "" {
		blob.Metadata = map[string]string{"filename": filename.String}
	}
	return &blob, nil
}

// Delete removes the blob row.
func (d *DatabaseBackend) Delete(ctx context.Context, storagePath string) error {
	_, err := d.db.ExecContext(ctx, database.ConvertPlaceholders(`
		DELETE FROM attachment_blobs WHERE path = $1`), sanitizePath(storagePath))
	return err
}

// Exists checks for a blob row.
func (d *DatabaseBackend) Exists(ctx context.Context, storagePath string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, database.ConvertPlaceholders(`
		SELECT EXISTS(SELECT 1 FROM attachment_blobs WHERE path = $1)`),
		sanitizePath(storagePath)).Scan(&exists)
	return exists, err
}

// HealthCheck pings the underlying database.
func (d *DatabaseBackend) HealthCheck(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// schemaStatements holds the DDL for the ingestion pipeline, written for
// PostgreSQL. The message_id uniqueness constraint is load-bearing: two
// concurrent inserts racing for the same transport identity must collide at
// the storage layer, not in application logic.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS organisations (
		id VARCHAR(190) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		owner_email VARCHAR(255) NOT NULL,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS subgroups (
		id VARCHAR(190) PRIMARY KEY,
		org_id VARCHAR(190) NOT NULL REFERENCES organisations(id),
		name VARCHAR(255) NOT NULL,
		description TEXT,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id BIGSERIAL PRIMARY KEY,
		org_id VARCHAR(190) NOT NULL REFERENCES organisations(id),
		subgroup_id VARCHAR(190) REFERENCES subgroups(id),
		from_email VARCHAR(255) NOT NULL,
		from_name VARCHAR(255),
		message_id VARCHAR(998) NOT NULL,
		title VARCHAR(998) NOT NULL,
		closed_at TIMESTAMP,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		ticket_id BIGINT NOT NULL REFERENCES tickets(id),
		org_id VARCHAR(190) NOT NULL REFERENCES organisations(id),
		subgroup_id VARCHAR(190) REFERENCES subgroups(id),
		message_id VARCHAR(998) NOT NULL UNIQUE,
		in_reply_to BIGINT REFERENCES messages(id),
		from_email VARCHAR(255) NOT NULL,
		from_name VARCHAR(255),
		reply_to VARCHAR(255) NOT NULL,
		title VARCHAR(998) NOT NULL,
		text TEXT NOT NULL,
		attachments TEXT,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_org_message_id ON messages (org_id, message_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_org ON tickets (org_id)`,
	`CREATE TABLE IF NOT EXISTS attachment_blobs (
		path VARCHAR(500) PRIMARY KEY,
		content BYTEA NOT NULL,
		content_type VARCHAR(255) NOT NULL,
		filename VARCHAR(255),
		content_size BIGINT NOT NULL,
		create_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// ApplySchema creates the pipeline tables if they do not exist. Statements
// are rewritten for MySQL when that driver is active.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if IsMySQL() {
			if strings.HasPrefix(stmt, "CREATE INDEX IF NOT EXISTS") {
				// MySQL predates IF NOT EXISTS on CREATE INDEX; the
				// org_id+message_id lookups are covered by the UNIQUE key.
				continue
			}
			stmt = mysqlDDL(stmt)
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func mysqlDDL(stmt string) string {
	stmt = strings.ReplaceAll(stmt, "BIGSERIAL PRIMARY KEY", "BIGINT AUTO_INCREMENT PRIMARY KEY")
	stmt = strings.ReplaceAll(stmt, "BYTEA", "LONGBLOB")
	return stmt
}

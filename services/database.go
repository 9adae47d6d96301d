package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"mediaondemand/models"
)

const createEventsTable = `CREATE TABLE IF NOT EXISTS conversion_events (
	id BIGSERIAL PRIMARY KEY,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	object_id TEXT,
	source_url TEXT,
	storage_path TEXT,
	user_id TEXT,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertEvent = `INSERT INTO conversion_events
	(type, status, object_id, source_url, storage_path, user_id, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// DatabaseService appends conversion audit rows.
type DatabaseService struct {
	db *sql.DB
}

func NewDatabaseService(databaseURL string) (*DatabaseService, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseService{db: db}, nil
}

func NewDatabaseServiceFromDB(db *sql.DB) *DatabaseService {
	return &DatabaseService{db: db}
}

func (d *DatabaseService) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, createEventsTable); err != nil {
		return fmt.Errorf("failed to create conversion_events: %w", err)
	}
	return nil
}

func (d *DatabaseService) Append(ctx context.Context, event *models.ConversionEvent) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode event metadata: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = d.db.ExecContext(ctx, insertEvent,
		string(event.Type),
		string(event.Status),
		nullString(event.ContentID),
		nullString(event.SourceURL),
		event.StoragePath,
		event.RequesterID,
		metadataJSON,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversion event: %w", err)
	}
	return nil
}

func (d *DatabaseService) Close() error {
	return d.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

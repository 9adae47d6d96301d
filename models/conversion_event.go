package models

import "time"

type EventStatus string

const (
	EventSuccess  EventStatus = "success"
	EventError    EventStatus = "error"
	EventCacheHit EventStatus = "cache_hit"
)

// ConversionEvent is one append-only audit row per orchestration attempt.
type ConversionEvent struct {
	Type        ArtifactKind           `json:"type"`
	Status      EventStatus            `json:"status"`
	ContentID   string                 `json:"object_id"`
	SourceURL   string                 `json:"source_url"`
	StoragePath *string                `json:"storage_path"`
	RequesterID *string                `json:"user_id"`
	Metadata    map[string]interface{} `json:"metadata"`
	CreatedAt   time.Time              `json:"created_at"`
}

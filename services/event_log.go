package services

import (
	"context"

	"go.uber.org/zap"

	"mediaondemand/models"
)

// LogEventLog writes audit events to the structured log when no database is
// configured.
type LogEventLog struct {
	logger *zap.Logger
}

func NewLogEventLog(logger *zap.Logger) *LogEventLog {
	return &LogEventLog{logger: logger}
}

func (l *LogEventLog) Append(_ context.Context, event *models.ConversionEvent) error {
	l.logger.Info("conversion_event",
		zap.String("type", string(event.Type)),
		zap.String("status", string(event.Status)),
		zap.String("object_id", event.ContentID),
		zap.String("source_url", event.SourceURL),
		zap.Stringp("storage_path", event.StoragePath),
		zap.Stringp("user_id", event.RequesterID),
		zap.Any("metadata", event.Metadata),
		zap.Time("created_at", event.CreatedAt),
	)
	return nil
}

package logger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/db"
	"github.com/seclab-kr/blacklist-collector/common/models"
)

const insertLogSQL = `
INSERT INTO collection_logs (id, source, event_type, message, details, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

const recentLogsBySourceSQL = `
SELECT id, source, event_type, message, details, created_at
FROM collection_logs
WHERE ($1 = '' OR source = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

// CollectionLogHook implements zerolog.Hook interface
// for storing logs in the database
type CollectionLogHook struct {
	db *db.DB
}

// NewCollectionLogHook creates a new log hook
func NewCollectionLogHook(db *db.DB) *CollectionLogHook {
	return &CollectionLogHook{
		db: db,
	}
}

// Run implements zerolog.Hook.Run
func (h *CollectionLogHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	// Skip if level is too low
	if level < zerolog.InfoLevel {
		return
	}

	// Create a new context with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	event := LogEvent{
		Message:   msg,
		EventType: level.String(),
	}

	// This is done asynchronously to not block the logging
	go func() {
		defer cancel()
		if err := insertLog(ctx, h.db, event); err != nil {
			// Log the error but don't use the hook to avoid potential infinite recursion
			log.Error().Err(err).Msg("Failed to log to database via hook")
		}
	}()
}

// insertLog stores one event in collection_logs
func insertLog(ctx context.Context, database *db.DB, event LogEvent) error {
	var detailsJSON json.RawMessage
	if event.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(event.Details)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal log details")
			detailsJSON = json.RawMessage("{}")
		}
	} else {
		detailsJSON = json.RawMessage("{}")
	}

	source := pgtype.Text{String: event.Source, Valid: event.Source != ""}
	message := pgtype.Text{String: event.Message, Valid: event.Message != ""}

	_, err := database.Pool.Exec(ctx, insertLogSQL,
		uuid.New().String(),
		source,
		event.EventType,
		message,
		detailsJSON,
		time.Now(),
	)
	return err
}

// LogEvent represents a log event
type LogEvent struct {
	Source    string
	RunID     string
	EventType string
	Message   string
	Details   interface{}
}

// InitializeLogging sets up global zerolog configuration with database hooks
func InitializeLogging(db *db.DB) {
	// Create and add the database hook to the global logger
	hook := NewCollectionLogHook(db)
	log.Logger = log.Logger.Hook(hook)
}

// LogService provides structured logging to database
type LogService struct {
	db *db.DB
}

// NewLogService creates a new log service
func NewLogService(db *db.DB) *LogService {
	return &LogService{
		db: db,
	}
}

// Log creates a log entry in the database
func (s *LogService) Log(ctx context.Context, event LogEvent) error {
	if event.RunID != "" {
		details, ok := event.Details.(map[string]interface{})
		if !ok {
			details = map[string]interface{}{}
			if event.Details != nil {
				details["additional"] = event.Details
			}
		}
		details["run_id"] = event.RunID
		event.Details = details
	}

	if err := insertLog(ctx, s.db, event); err != nil {
		log.Error().Err(err).Msg("Failed to insert log into database")
		return err
	}

	// Also log to console for visibility
	logEntry := log.Info()

	if event.Source != "" {
		logEntry = logEntry.Str("source", event.Source)
	}
	if event.RunID != "" {
		logEntry = logEntry.Str("runId", event.RunID)
	}

	logEntry.
		Str("eventType", event.EventType).
		Str("message", event.Message).
		Interface("details", event.Details).
		Msg("Collection event")

	return nil
}

// Error logs an error event
func (s *LogService) Error(ctx context.Context, source, runID, message string, err error, details interface{}) error {
	// Create detail map that includes error
	detailMap := map[string]interface{}{
		"error": err.Error(),
	}

	// Add additional details if provided
	if details != nil {
		if detailsMap, ok := details.(map[string]interface{}); ok {
			for k, v := range detailsMap {
				detailMap[k] = v
			}
		} else {
			detailMap["additional"] = details
		}
	}

	return s.Log(ctx, LogEvent{
		Source:    source,
		RunID:     runID,
		EventType: "error",
		Message:   message,
		Details:   detailMap,
	})
}

// RunStart logs the start of a collection run
func (s *LogService) RunStart(ctx context.Context, source, runID, dateRange string) error {
	return s.Log(ctx, LogEvent{
		Source:    source,
		RunID:     runID,
		EventType: "collection.started",
		Message:   "Collection run started",
		Details: map[string]interface{}{
			"date_range": dateRange,
		},
	})
}

// RunComplete logs the completion of a collection run
func (s *LogService) RunComplete(ctx context.Context, source, runID string, collected, saved, errorCount int) error {
	return s.Log(ctx, LogEvent{
		Source:    source,
		RunID:     runID,
		EventType: "collection.completed",
		Message:   "Collection run completed",
		Details: map[string]interface{}{
			"collected_count": collected,
			"saved_count":     saved,
			"error_count":     errorCount,
		},
	})
}

// RunFailed logs a failed collection run
func (s *LogService) RunFailed(ctx context.Context, source, runID string, err error) error {
	return s.Error(ctx, source, runID, "Collection run failed", err, nil)
}

// GetRecent retrieves recent logs, optionally filtered by source, newest first
func (s *LogService) GetRecent(ctx context.Context, source string, limit, offset int) ([]models.CollectionLogResponse, error) {
	rows, err := s.db.Pool.Query(ctx, recentLogsBySourceSQL, source, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.CollectionLogResponse
	for rows.Next() {
		var entry models.CollectionLogResponse
		var details json.RawMessage
		if err := rows.Scan(
			&entry.ID,
			&entry.Source,
			&entry.EventType,
			&entry.Message,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			var decoded interface{}
			if err := json.Unmarshal(details, &decoded); err == nil {
				entry.Details = decoded
			}
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

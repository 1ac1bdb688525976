package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// CollectionRun is a persisted record of one collection run, written when the
// run finishes regardless of outcome.
type CollectionRun struct {
	ID         string             `json:"id"`
	Source     string             `json:"source"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt pgtype.Timestamptz `json:"finished_at"`
	Success    bool               `json:"success"`
	Collected  int                `json:"collected_count"`
	Saved      int                `json:"saved_count"`
	Error      pgtype.Text        `json:"error,omitempty"`
}

// CollectionLogResponse is the HTTP shape of a collection_logs row.
type CollectionLogResponse struct {
	ID        string      `json:"id"`
	Source    pgtype.Text `json:"source"`
	EventType string      `json:"event_type"`
	Message   pgtype.Text `json:"message"`
	Details   interface{} `json:"details"`
	CreatedAt time.Time   `json:"created_at"`
}

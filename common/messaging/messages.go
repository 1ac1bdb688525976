package messaging

import "time"

// ForceCollectionMessage represents the message for a collection.force.* event
type ForceCollectionMessage struct {
	Source      string `json:"source"`
	RequestedBy string `json:"requested_by,omitempty"`
	JobID       string `json:"job_id,omitempty"`
}

// CollectionCompletedEvent is published on collection.completed after every
// successful run
type CollectionCompletedEvent struct {
	Source     string    `json:"source"`
	RunID      string    `json:"run_id"`
	Collected  int       `json:"collected_count"`
	Saved      int       `json:"saved_count"`
	ErrorCount int       `json:"error_count"`
	FinishedAt time.Time `json:"finished_at"`
}

// CollectionFailedEvent is published on collection.failed when a run aborts
type CollectionFailedEvent struct {
	Source     string    `json:"source"`
	RunID      string    `json:"run_id"`
	Error      string    `json:"error"`
	FinishedAt time.Time `json:"finished_at"`
}

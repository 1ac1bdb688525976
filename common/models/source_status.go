package models

import "time"

// SourceStatusResponse is the per-source block of the scheduler status
// payload. ActiveIPs is nil when the database could not be reached; the
// status surface stays up even when persistence is down.
type SourceStatusResponse struct {
	Name       string     `json:"name"`
	Enabled    bool       `json:"enabled"`
	Status     string     `json:"status"`
	RunCount   int        `json:"run_count"`
	ErrorCount int        `json:"error_count"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	NextRun    *time.Time `json:"next_run,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	ActiveIPs  *int64     `json:"active_ips,omitempty"`
}

// SchedulerStatusResponse is the full scheduler status payload.
type SchedulerStatusResponse struct {
	Running            bool                   `json:"running"`
	UptimeSeconds      int64                  `json:"uptime_seconds"`
	Timestamp          time.Time              `json:"timestamp"`
	TotalActiveEntries *int64                 `json:"total_active_entries,omitempty"`
	Sources            []SourceStatusResponse `json:"sources"`
}

// ForceCollectionResponse is the HTTP shape of one triggered run's outcome.
type ForceCollectionResponse struct {
	Success    bool   `json:"success"`
	Source     string `json:"source"`
	RunID      string `json:"run_id,omitempty"`
	Collected  int    `json:"collected_count"`
	Saved      int    `json:"saved_count"`
	Dropped    int    `json:"dropped_count"`
	SaveErrors int    `json:"save_errors"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

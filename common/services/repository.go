package services

import (
	"context"
	"time"

	"github.com/seclab-kr/blacklist-collector/common/models"
)

// BlacklistService defines the interface for blacklist database operations
type BlacklistService interface {
	// Upsert inserts or refreshes a single entry keyed by (ip_address, source)
	Upsert(ctx context.Context, record models.CandidateRecord) error

	// UpsertBatch persists validated records in chunks, returning how many
	// rows were saved and how many failed
	UpsertBatch(ctx context.Context, records []models.CandidateRecord, chunkSize int) (int, int, error)

	// DeactivateStale deactivates rows of one source not refreshed since the cutoff
	DeactivateStale(ctx context.Context, source string, seenSince time.Time) (int64, error)

	// ActiveIPs returns the deduplicated active addresses minus the whitelist
	ActiveIPs(ctx context.Context) ([]string, error)

	// List returns a page of entries, optionally filtered by source and active flag
	List(ctx context.Context, source string, activeOnly bool, limit, offset int) ([]models.BlacklistEntry, error)

	// Count returns the number of entries matching the same filters as List
	Count(ctx context.Context, source string, activeOnly bool) (int64, error)

	// ActiveCountBySource returns active row counts grouped by source
	ActiveCountBySource(ctx context.Context) (map[string]int64, error)
}

// WhitelistService defines the interface for whitelist database operations
type WhitelistService interface {
	// Create inserts a whitelist entry, reactivating it if it already exists
	Create(ctx context.Context, ipAddress, reason, source string) (models.WhitelistEntry, error)

	// List returns a page of active whitelist entries
	List(ctx context.Context, limit, offset int) ([]models.WhitelistEntry, error)

	// Count returns the number of active whitelist entries
	Count(ctx context.Context) (int64, error)

	// Deactivate removes an address from the active whitelist
	Deactivate(ctx context.Context, ipAddress string) (bool, error)
}

// CollectionRunService defines the interface for collection run bookkeeping
type CollectionRunService interface {
	// Record persists a finished run
	Record(ctx context.Context, run models.CollectionRun) error

	// Latest returns the most recent run of one source
	Latest(ctx context.Context, source string) (models.CollectionRun, error)

	// LatestPerSource returns the most recent run of every source
	LatestPerSource(ctx context.Context) (map[string]models.CollectionRun, error)

	// ListBySource returns recent runs of one source, newest first
	ListBySource(ctx context.Context, source string, limit int) ([]models.CollectionRun, error)
}

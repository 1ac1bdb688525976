package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/db"
	"github.com/seclab-kr/blacklist-collector/common/models"
)

const upsertBlacklistSQL = `
INSERT INTO blacklist_ips (ip_address, source, reason, country, confidence_level, detection_date, removal_date, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, now(), now())
ON CONFLICT (ip_address, source) DO UPDATE SET
	reason = EXCLUDED.reason,
	country = COALESCE(EXCLUDED.country, blacklist_ips.country),
	confidence_level = EXCLUDED.confidence_level,
	detection_date = COALESCE(EXCLUDED.detection_date, blacklist_ips.detection_date),
	removal_date = EXCLUDED.removal_date,
	is_active = TRUE,
	updated_at = now()`

const deactivateStaleSQL = `
UPDATE blacklist_ips
SET is_active = FALSE, updated_at = now()
WHERE source = $1 AND is_active AND updated_at < $2`

const activeIPsSQL = `
SELECT DISTINCT b.ip_address
FROM blacklist_ips b
WHERE b.is_active
  AND NOT EXISTS (
	SELECT 1 FROM whitelist_ips w
	WHERE w.ip_address = b.ip_address AND w.is_active
  )
ORDER BY b.ip_address`

const listBlacklistSQL = `
SELECT id, ip_address, source, reason, country, confidence_level, detection_date, removal_date, is_active, created_at, updated_at
FROM blacklist_ips
WHERE ($1 = '' OR source = $1)
  AND (NOT $2::boolean OR is_active)
ORDER BY updated_at DESC, id DESC
LIMIT $3 OFFSET $4`

const countBlacklistSQL = `
SELECT COUNT(*)
FROM blacklist_ips
WHERE ($1 = '' OR source = $1)
  AND (NOT $2::boolean OR is_active)`

const activeCountBySourceSQL = `
SELECT source, COUNT(*)
FROM blacklist_ips
WHERE is_active
GROUP BY source`

// BlacklistRepository is a PostgreSQL implementation of BlacklistService
type BlacklistRepository struct {
	db *db.DB
}

// NewBlacklistRepository creates a new PostgreSQL BlacklistRepository
func NewBlacklistRepository(db *db.DB) BlacklistService {
	return &BlacklistRepository{
		db: db,
	}
}

// Upsert inserts or refreshes a single entry. The conflict target is the
// (ip_address, source) pair; a refresh reactivates the row and bumps
// updated_at while created_at keeps the first-seen time.
func (r *BlacklistRepository) Upsert(ctx context.Context, record models.CandidateRecord) error {
	_, err := r.db.Pool.Exec(ctx, upsertBlacklistSQL,
		record.IPAddress,
		record.Source,
		record.Reason,
		textOrNull(record.Country),
		record.Confidence,
		dateOrNull(record.DetectionDate),
		dateOrNull(record.RemovalDate),
	)
	return err
}

// UpsertBatch persists records in chunks. Each chunk goes to the server as
// one pipelined batch; a chunk that fails is retried row by row so a single
// malformed record cannot discard its neighbors. The returned error is nil
// unless the context ended or no row at all could be saved.
func (r *BlacklistRepository) UpsertBatch(ctx context.Context, records []models.CandidateRecord, chunkSize int) (int, int, error) {
	if chunkSize <= 0 {
		chunkSize = 100
	}

	saved := 0
	failed := 0
	var lastErr error

	for start := 0; start < len(records); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return saved, failed, err
		}

		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		if err := r.upsertChunk(ctx, chunk); err == nil {
			saved += len(chunk)
			continue
		}

		for _, record := range chunk {
			if err := ctx.Err(); err != nil {
				return saved, failed, err
			}
			if err := r.Upsert(ctx, record); err != nil {
				failed++
				lastErr = err
				log.Warn().
					Err(err).
					Str("ipAddress", record.IPAddress).
					Str("source", record.Source).
					Msg("Failed to upsert blacklist row")
				continue
			}
			saved++
		}
	}

	if saved == 0 && failed > 0 {
		return 0, failed, fmt.Errorf("all %d rows failed: %w", failed, lastErr)
	}
	return saved, failed, nil
}

func (r *BlacklistRepository) upsertChunk(ctx context.Context, records []models.CandidateRecord) error {
	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(upsertBlacklistSQL,
			record.IPAddress,
			record.Source,
			record.Reason,
			textOrNull(record.Country),
			record.Confidence,
			dateOrNull(record.DetectionDate),
			dateOrNull(record.RemovalDate),
		)
	}
	return r.db.Pool.SendBatch(ctx, batch).Close()
}

// DeactivateStale deactivates rows of one source whose updated_at predates
// the cutoff. Rows of other sources are never touched, so a failed REGTECH
// run cannot wipe SECUDIUM entries.
func (r *BlacklistRepository) DeactivateStale(ctx context.Context, source string, seenSince time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, deactivateStaleSQL, source, seenSince)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ActiveIPs returns the deduplicated active addresses with whitelisted ones
// removed, sorted for a stable export.
func (r *BlacklistRepository) ActiveIPs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, activeIPsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ips []string
	for rows.Next() {
		var ip string
		if err := rows.Scan(&ip); err != nil {
			return nil, err
		}
		ips = append(ips, ip)
	}
	return ips, rows.Err()
}

// List returns a page of entries, newest update first
func (r *BlacklistRepository) List(ctx context.Context, source string, activeOnly bool, limit, offset int) ([]models.BlacklistEntry, error) {
	rows, err := r.db.Pool.Query(ctx, listBlacklistSQL, source, activeOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.BlacklistEntry
	for rows.Next() {
		var e models.BlacklistEntry
		if err := rows.Scan(
			&e.ID,
			&e.IPAddress,
			&e.Source,
			&e.Reason,
			&e.Country,
			&e.ConfidenceLevel,
			&e.DetectionDate,
			&e.RemovalDate,
			&e.IsActive,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of entries matching the List filters
func (r *BlacklistRepository) Count(ctx context.Context, source string, activeOnly bool) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, countBlacklistSQL, source, activeOnly).Scan(&count)
	return count, err
}

// ActiveCountBySource returns active row counts grouped by source
func (r *BlacklistRepository) ActiveCountBySource(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Pool.Query(ctx, activeCountBySourceSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			return nil, err
		}
		counts[source] = count
	}
	return counts, rows.Err()
}

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func dateOrNull(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}

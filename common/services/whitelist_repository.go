package services

import (
	"context"

	"github.com/seclab-kr/blacklist-collector/common/db"
	"github.com/seclab-kr/blacklist-collector/common/models"
)

const upsertWhitelistSQL = `
INSERT INTO whitelist_ips (ip_address, source, reason, is_active, created_at, updated_at)
VALUES ($1, $2, $3, TRUE, now(), now())
ON CONFLICT (ip_address) DO UPDATE SET
	source = EXCLUDED.source,
	reason = EXCLUDED.reason,
	is_active = TRUE,
	updated_at = now()
RETURNING id, ip_address, source, reason, is_active, created_at, updated_at`

const listWhitelistSQL = `
SELECT id, ip_address, source, reason, is_active, created_at, updated_at
FROM whitelist_ips
WHERE is_active
ORDER BY ip_address
LIMIT $1 OFFSET $2`

const countWhitelistSQL = `
SELECT COUNT(*) FROM whitelist_ips WHERE is_active`

const deactivateWhitelistSQL = `
UPDATE whitelist_ips
SET is_active = FALSE, updated_at = now()
WHERE ip_address = $1 AND is_active`

// WhitelistRepository is a PostgreSQL implementation of WhitelistService
type WhitelistRepository struct {
	db *db.DB
}

// NewWhitelistRepository creates a new PostgreSQL WhitelistRepository
func NewWhitelistRepository(db *db.DB) WhitelistService {
	return &WhitelistRepository{
		db: db,
	}
}

// Create inserts a whitelist entry. An address already on the whitelist is
// reactivated with the new reason rather than duplicated.
func (r *WhitelistRepository) Create(ctx context.Context, ipAddress, reason, source string) (models.WhitelistEntry, error) {
	var e models.WhitelistEntry
	err := r.db.Pool.QueryRow(ctx, upsertWhitelistSQL, ipAddress, source, textOrNull(reason)).Scan(
		&e.ID,
		&e.IPAddress,
		&e.Source,
		&e.Reason,
		&e.IsActive,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return models.WhitelistEntry{}, err
	}
	return e, nil
}

// List returns a page of active whitelist entries
func (r *WhitelistRepository) List(ctx context.Context, limit, offset int) ([]models.WhitelistEntry, error) {
	rows, err := r.db.Pool.Query(ctx, listWhitelistSQL, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.WhitelistEntry
	for rows.Next() {
		var e models.WhitelistEntry
		if err := rows.Scan(
			&e.ID,
			&e.IPAddress,
			&e.Source,
			&e.Reason,
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

// Count returns the number of active whitelist entries
func (r *WhitelistRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, countWhitelistSQL).Scan(&count)
	return count, err
}

// Deactivate removes an address from the active whitelist. Returns false
// when the address was not on it.
func (r *WhitelistRepository) Deactivate(ctx context.Context, ipAddress string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, deactivateWhitelistSQL, ipAddress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

package services

import (
	"context"

	"github.com/seclab-kr/blacklist-collector/common/db"
	"github.com/seclab-kr/blacklist-collector/common/models"
)

const insertRunSQL = `
INSERT INTO collection_runs (id, source, started_at, finished_at, success, collected_count, saved_count, error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const latestRunSQL = `
SELECT id, source, started_at, finished_at, success, collected_count, saved_count, error
FROM collection_runs
WHERE source = $1
ORDER BY started_at DESC
LIMIT 1`

const latestRunPerSourceSQL = `
SELECT DISTINCT ON (source) id, source, started_at, finished_at, success, collected_count, saved_count, error
FROM collection_runs
ORDER BY source, started_at DESC`

const listRunsBySourceSQL = `
SELECT id, source, started_at, finished_at, success, collected_count, saved_count, error
FROM collection_runs
WHERE source = $1
ORDER BY started_at DESC
LIMIT $2`

// CollectionRunRepository is a PostgreSQL implementation of CollectionRunService
type CollectionRunRepository struct {
	db *db.DB
}

// NewCollectionRunRepository creates a new PostgreSQL CollectionRunRepository
func NewCollectionRunRepository(db *db.DB) CollectionRunService {
	return &CollectionRunRepository{
		db: db,
	}
}

// Record persists a finished run
func (r *CollectionRunRepository) Record(ctx context.Context, run models.CollectionRun) error {
	_, err := r.db.Pool.Exec(ctx, insertRunSQL,
		run.ID,
		run.Source,
		run.StartedAt,
		run.FinishedAt,
		run.Success,
		run.Collected,
		run.Saved,
		run.Error,
	)
	return err
}

// Latest returns the most recent run of one source
func (r *CollectionRunRepository) Latest(ctx context.Context, source string) (models.CollectionRun, error) {
	var run models.CollectionRun
	err := r.db.Pool.QueryRow(ctx, latestRunSQL, source).Scan(
		&run.ID,
		&run.Source,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Success,
		&run.Collected,
		&run.Saved,
		&run.Error,
	)
	if err != nil {
		return models.CollectionRun{}, err
	}
	return run, nil
}

// LatestPerSource returns the most recent run of every source that has ever run
func (r *CollectionRunRepository) LatestPerSource(ctx context.Context) (map[string]models.CollectionRun, error) {
	rows, err := r.db.Pool.Query(ctx, latestRunPerSourceSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make(map[string]models.CollectionRun)
	for rows.Next() {
		var run models.CollectionRun
		if err := rows.Scan(
			&run.ID,
			&run.Source,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Success,
			&run.Collected,
			&run.Saved,
			&run.Error,
		); err != nil {
			return nil, err
		}
		runs[run.Source] = run
	}
	return runs, rows.Err()
}

// ListBySource returns recent runs of one source, newest first
func (r *CollectionRunRepository) ListBySource(ctx context.Context, source string, limit int) ([]models.CollectionRun, error) {
	rows, err := r.db.Pool.Query(ctx, listRunsBySourceSQL, source, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.CollectionRun
	for rows.Next() {
		var run models.CollectionRun
		if err := rows.Scan(
			&run.ID,
			&run.Source,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Success,
			&run.Collected,
			&run.Saved,
			&run.Error,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

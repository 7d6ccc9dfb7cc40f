package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/repository"
)

type stepCacheRepository struct {
	db *sql.DB
}

// NewStepCacheRepository creates a new StepCacheRepository implementation
func NewStepCacheRepository(db *sql.DB) repository.StepCacheRepository {
	return &stepCacheRepository{db: db}
}

func (r *stepCacheRepository) Get(ctx context.Context, dateID string) (int64, bool, error) {
	log := logger.FromContext(ctx).WithPrefix("step_cache_repo")

	query, args, err := sqlBuilder.Select("count").From("step_cache").
		Where(squirrel.Eq{"date_id": dateID}).ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return 0, false, err
	}

	var count int64
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("cache miss: date=%s", dateID)
		return 0, false, nil
	}
	if err != nil {
		log.Error("failed to read cache entry %s: %v", dateID, err)
		return 0, false, err
	}
	log.Debug("cache hit: date=%s count=%d", dateID, count)
	return count, true, nil
}

func (r *stepCacheRepository) Put(ctx context.Context, dateID string, count int64) error {
	log := logger.FromContext(ctx).WithPrefix("step_cache_repo")
	log.Debug("caching steps: date=%s count=%d", dateID, count)

	query, args, err := sqlBuilder.Insert("step_cache").
		Columns("date_id", "count", "fetched_at").
		Values(dateID, count, squirrel.Expr("CURRENT_TIMESTAMP")).
		Suffix("ON CONFLICT(date_id) DO UPDATE SET count = excluded.count, fetched_at = excluded.fetched_at").
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to cache steps for %s: %v", dateID, err)
	}
	return err
}

func (r *stepCacheRepository) Missing(ctx context.Context, dateIDs []string) ([]string, error) {
	log := logger.FromContext(ctx).WithPrefix("step_cache_repo")
	if len(dateIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlBuilder.Select("date_id").From("step_cache").
		Where(squirrel.Eq{"date_id": dateIDs}).ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list cached days: %v", err)
		return nil, err
	}
	defer rows.Close()

	cached := make(map[string]bool, len(dateIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		cached[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, id := range dateIDs {
		if !cached[id] {
			missing = append(missing, id)
		}
	}
	log.Debug("%d of %d days missing from cache", len(missing), len(dateIDs))
	return missing, nil
}

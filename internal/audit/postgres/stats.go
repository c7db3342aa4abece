package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/school-admin/internal/audit"
)

// StatsRepository runs the aggregate queries over plain SQL. Placeholders are rebound for
// the driver the handle was opened with.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

var _ audit.StatsReader = (*StatsRepository)(nil)

const (
	countAllQuery   = `SELECT COUNT(*) FROM audit_logs`
	countSinceQuery = `SELECT COUNT(*) FROM audit_logs WHERE created_at >= ?`

	topActionsQuery = `
SELECT action AS name, COUNT(*) AS count
FROM audit_logs
GROUP BY action
ORDER BY count DESC, action ASC
LIMIT ?`

	topResourceTypesQuery = `
SELECT resource_type AS name, COUNT(*) AS count
FROM audit_logs
GROUP BY resource_type
ORDER BY count DESC, resource_type ASC
LIMIT ?`

	activeActorsQuery = `
SELECT a.user_id AS user_id,
       COALESCE(u.name, '') AS name,
       COALESCE(u.username, '') AS username,
       COUNT(*) AS count
FROM audit_logs a
LEFT JOIN users u ON u.id = a.user_id
WHERE a.user_id IS NOT NULL AND a.created_at >= ?
GROUP BY a.user_id, u.name, u.username
ORDER BY count DESC, a.user_id ASC
LIMIT ?`
)

func (r *StatsRepository) Stats(ctx context.Context, now time.Time) (*audit.Stats, error) {
	now = now.UTC()
	stats := &audit.Stats{
		TopActions:            []audit.NameCount{},
		TopResourceTypes:      []audit.NameCount{},
		ActiveActorsLast7Days: []audit.ActorCount{},
	}

	if err := r.db.GetContext(ctx, &stats.TotalCount, countAllQuery); err != nil {
		return nil, err
	}
	if err := r.db.GetContext(ctx, &stats.Last24hCount, r.db.Rebind(countSinceQuery), now.Add(-24*time.Hour)); err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &stats.TopActions, r.db.Rebind(topActionsQuery), audit.StatsTopLimit); err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &stats.TopResourceTypes, r.db.Rebind(topResourceTypesQuery), audit.StatsTopLimit); err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &stats.ActiveActorsLast7Days, r.db.Rebind(activeActorsQuery), now.AddDate(0, 0, -7), audit.StatsActorsLimit); err != nil {
		return nil, err
	}
	return stats, nil
}

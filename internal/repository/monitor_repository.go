package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MonitorRepository provides data access for live assessment monitoring.
// Integrity counts come from PostgreSQL; live session state comes from the
// in-memory registry and is merged by the monitor service.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

// GetIntegrityCounts returns the number of persisted integrity events per
// application for the given job.
func (r *MonitorRepository) GetIntegrityCounts(ctx context.Context, jobID uuid.UUID) (map[uuid.UUID]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.application_id, COUNT(*)
		 FROM integrity_events e
		 JOIN applications a ON e.application_id = a.id
		 WHERE a.job_id = $1
		 GROUP BY e.application_id`,
		jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int64)
	for rows.Next() {
		var appID uuid.UUID
		var count int64
		if err := rows.Scan(&appID, &count); err != nil {
			return nil, err
		}
		counts[appID] = count
	}
	return counts, rows.Err()
}

// GetSubmittedApplicationIDs returns applications for the job that already
// have a persisted submission.
func (r *MonitorRepository) GetSubmittedApplicationIDs(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT application_id FROM submissions WHERE job_id = $1`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

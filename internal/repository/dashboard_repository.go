package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentgate/talentgate-backend/internal/model"
)

// DashboardRepository handles recruiter dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetSummaryCounts retrieves the high-level metrics for the dashboard.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (totalCandidates, totalJobs, totalApplications, totalSubmissions int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM candidates),
			(SELECT COUNT(*) FROM jobs),
			(SELECT COUNT(*) FROM applications),
			(SELECT COUNT(*) FROM submissions)`,
	).Scan(&totalCandidates, &totalJobs, &totalApplications, &totalSubmissions)
	return
}

// GetApplicationStatusCounts retrieves the distribution of applications by status.
func (r *DashboardRepository) GetApplicationStatusCounts(ctx context.Context) (map[model.ApplicationStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM applications GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.ApplicationStatus]int)
	for rows.Next() {
		var status model.ApplicationStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// DashboardJobResult summarizes assessment outcomes for one job.
type DashboardJobResult struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	LastSubmissionAt *time.Time `json:"last_submission_at"`
	SubmissionCount  int        `json:"submission_count"`
	AverageScore     *float64   `json:"average_score"`
}

// GetRecentJobResults retrieves the last N jobs with submission stats.
func (r *DashboardRepository) GetRecentJobResults(ctx context.Context, limit int) ([]DashboardJobResult, error) {
	query := `
		SELECT
			j.id,
			j.title,
			MAX(s.submitted_at) as last_submission_at,
			COUNT(s.id) as submission_count,
			AVG(s.total_score) as average_score
		FROM jobs j
		LEFT JOIN submissions s ON j.id = s.job_id
		WHERE j.status IN ($1, $2)
		GROUP BY j.id, j.title
		ORDER BY last_submission_at DESC NULLS LAST
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, model.JobStatusOpen, model.JobStatusClosed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DashboardJobResult
	for rows.Next() {
		var res DashboardJobResult
		if err := rows.Scan(&res.ID, &res.Title, &res.LastSubmissionAt, &res.SubmissionCount, &res.AverageScore); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if results == nil {
		results = []DashboardJobResult{}
	}
	return results, rows.Err()
}

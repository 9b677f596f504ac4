package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentgate/talentgate-backend/internal/model"
)

var ErrDuplicateApplication = errors.New("candidate has already applied to this job")

// ApplicationRepository handles application data access.
type ApplicationRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationRepository creates a new ApplicationRepository.
func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

// GetByID retrieves an application by its UUID.
func (r *ApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	a := &model.Application{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, job_id, candidate_id, status, cover_letter, created_at, updated_at
		 FROM applications WHERE id = $1`, id,
	).Scan(&a.ID, &a.JobID, &a.CandidateID, &a.Status, &a.CoverLetter, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListByCandidate returns a candidate's applications enriched with job titles.
func (r *ApplicationRepository) ListByCandidate(ctx context.Context, candidateID int) ([]model.Application, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.job_id, a.candidate_id, a.status, a.cover_letter, a.created_at, a.updated_at, j.title
		 FROM applications a JOIN jobs j ON a.job_id = j.id
		 WHERE a.candidate_id = $1
		 ORDER BY a.created_at DESC`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []model.Application
	for rows.Next() {
		var a model.Application
		if err := rows.Scan(&a.ID, &a.JobID, &a.CandidateID, &a.Status, &a.CoverLetter,
			&a.CreatedAt, &a.UpdatedAt, &a.JobTitle); err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// ListByJobPaginated returns a job's applications enriched with candidate
// identity, for the recruiter console.
func (r *ApplicationRepository) ListByJobPaginated(ctx context.Context, jobID uuid.UUID, limit, offset int) ([]model.Application, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM applications WHERE job_id = $1`, jobID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.job_id, a.candidate_id, a.status, a.cover_letter, a.created_at, a.updated_at,
		        c.full_name, c.email
		 FROM applications a JOIN candidates c ON a.candidate_id = c.id
		 WHERE a.job_id = $1
		 ORDER BY a.created_at DESC
		 LIMIT $2 OFFSET $3`, jobID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var apps []model.Application
	for rows.Next() {
		var a model.Application
		if err := rows.Scan(&a.ID, &a.JobID, &a.CandidateID, &a.Status, &a.CoverLetter,
			&a.CreatedAt, &a.UpdatedAt, &a.CandidateName, &a.CandidateEmail); err != nil {
			return nil, 0, err
		}
		apps = append(apps, a)
	}
	return apps, total, rows.Err()
}

// Create inserts a new application in SUBMITTED status.
func (r *ApplicationRepository) Create(ctx context.Context, a *model.Application) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO applications (job_id, candidate_id, status, cover_letter)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		a.JobID, a.CandidateID, a.Status, a.CoverLetter,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateApplication
		}
		return err
	}
	return nil
}

// UpdateStatus updates an application's assessment status.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ApplicationStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE applications SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// UpdateStatusIf transitions status only when the current value matches.
// Returns false when the application was in a different state.
func (r *ApplicationRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to model.ApplicationStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE applications SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = $3`,
		to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

package repository

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentgate/talentgate-backend/internal/model"
)

// JobRepository handles job posting data access.
type JobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

const jobColumns = `j.id, j.title, j.description, j.author_id, j.duration_seconds,
	(SELECT COUNT(*) FROM job_questions q WHERE q.job_id = j.id),
	j.status, j.created_at, j.updated_at`

func scanJob(row interface{ Scan(...interface{}) error }, j *model.Job) error {
	return row.Scan(&j.ID, &j.Title, &j.Description, &j.AuthorID, &j.DurationSeconds,
		&j.QuestionCount, &j.Status, &j.CreatedAt, &j.UpdatedAt)
}

// GetByID retrieves a job by its UUID, including its question count.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	j := &model.Job{}
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs j WHERE j.id = $1`, id)
	if err := scanJob(row, j); err != nil {
		return nil, err
	}
	return j, nil
}

// ListPaginated retrieves jobs with pagination and optional status filter.
func (r *JobRepository) ListPaginated(ctx context.Context, status *model.JobStatus, limit, offset int) ([]model.Job, int, error) {
	countQuery := `SELECT COUNT(*) FROM jobs`
	var countArgs []interface{}
	if status != nil {
		countQuery += ` WHERE status = $1`
		countArgs = append(countArgs, *status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + jobColumns + ` FROM jobs j`
	var args []interface{}
	argIdx := 1

	if status != nil {
		query += ` WHERE j.status = $1`
		args = append(args, *status)
		argIdx++
	}

	query += ` ORDER BY j.created_at DESC LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		if err := scanJob(rows, &j); err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

// ListOpen returns all jobs accepting applications.
// Used for cache prewarming on application startup.
func (r *JobRepository) ListOpen(ctx context.Context) ([]model.Job, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs j WHERE j.status = $1 ORDER BY j.created_at DESC`,
		model.JobStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		if err := scanJob(rows, &j); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Create inserts a new job in DRAFT status.
func (r *JobRepository) Create(ctx context.Context, j *model.Job) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO jobs (title, description, author_id, duration_seconds, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		j.Title, j.Description, j.AuthorID, j.DurationSeconds, j.Status,
	).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
}

// Update modifies a job's posting details.
func (r *JobRepository) Update(ctx context.Context, j *model.Job) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE jobs SET title = $1, description = $2, duration_seconds = $3, updated_at = NOW()
		 WHERE id = $4`,
		j.Title, j.Description, j.DurationSeconds, j.ID)
	return err
}

// UpdateStatus updates a job's lifecycle status.
func (r *JobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.JobStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// Delete removes a draft job and its questions.
func (r *JobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	return err
}

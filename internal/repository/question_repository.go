package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentgate/talentgate-backend/internal/model"
)

// QuestionRepository handles job question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByJob returns a job's questions in assessment order, including the
// desired answers. Callers serving candidates must strip them.
func (r *QuestionRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]model.JobQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, job_id, prompt, desired_answer, order_num
		 FROM job_questions WHERE job_id = $1 ORDER BY order_num, id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.JobQuestion
	for rows.Next() {
		var q model.JobQuestion
		if err := rows.Scan(&q.ID, &q.JobID, &q.Prompt, &q.DesiredAnswer, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ReplaceForJob atomically swaps a job's full question set.
func (r *QuestionRepository) ReplaceForJob(ctx context.Context, jobID uuid.UUID, questions []model.JobQuestion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace questions: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM job_questions WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}

	for i := range questions {
		q := &questions[i]
		q.JobID = jobID
		if err := tx.QueryRow(ctx,
			`INSERT INTO job_questions (job_id, prompt, desired_answer, order_num)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			q.JobID, q.Prompt, q.DesiredAnswer, q.OrderNum,
		).Scan(&q.ID); err != nil {
			return fmt.Errorf("insert question %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentgate/talentgate-backend/internal/model"
)

// AssessmentRepository persists assessment outcomes: submissions with their
// ordered answers, disqualification records, and later score updates.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

// CreateSubmission inserts a submission and its answers in one transaction.
func (r *AssessmentRepository) CreateSubmission(ctx context.Context, s *model.Submission) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin submission: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx,
		`INSERT INTO submissions (application_id, job_id, submit_trigger, scored)
		 VALUES ($1, $2, $3, FALSE)
		 RETURNING id, submitted_at`,
		s.ApplicationID, s.JobID, s.Trigger,
	).Scan(&s.ID, &s.SubmittedAt); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	for i := range s.Answers {
		a := &s.Answers[i]
		a.SubmissionID = s.ID
		if err := tx.QueryRow(ctx,
			`INSERT INTO submission_answers (submission_id, question_id, answer_text, order_num)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			a.SubmissionID, a.QuestionID, a.AnswerText, a.OrderNum,
		).Scan(&a.ID); err != nil {
			return fmt.Errorf("insert answer %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

// GetSubmissionByApplication retrieves a submission and its answers.
func (r *AssessmentRepository) GetSubmissionByApplication(ctx context.Context, applicationID uuid.UUID) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, application_id, job_id, submit_trigger, scored, total_score, submitted_at
		 FROM submissions WHERE application_id = $1`, applicationID,
	).Scan(&s.ID, &s.ApplicationID, &s.JobID, &s.Trigger, &s.Scored, &s.TotalScore, &s.SubmittedAt)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, submission_id, question_id, answer_text, order_num, score, reasoning
		 FROM submission_answers WHERE submission_id = $1 ORDER BY order_num`, s.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.SubmissionAnswer
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.QuestionID, &a.AnswerText,
			&a.OrderNum, &a.Score, &a.Reasoning); err != nil {
			return nil, err
		}
		s.Answers = append(s.Answers, a)
	}
	return s, rows.Err()
}

// GetSubmissionByID retrieves a submission and its answers by submission ID.
func (r *AssessmentRepository) GetSubmissionByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, application_id, job_id, submit_trigger, scored, total_score, submitted_at
		 FROM submissions WHERE id = $1`, id,
	).Scan(&s.ID, &s.ApplicationID, &s.JobID, &s.Trigger, &s.Scored, &s.TotalScore, &s.SubmittedAt)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, submission_id, question_id, answer_text, order_num, score, reasoning
		 FROM submission_answers WHERE submission_id = $1 ORDER BY order_num`, s.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.SubmissionAnswer
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.QuestionID, &a.AnswerText,
			&a.OrderNum, &a.Score, &a.Reasoning); err != nil {
			return nil, err
		}
		s.Answers = append(s.Answers, a)
	}
	return s, rows.Err()
}

// AnswerScore is a per-answer scoring result applied after review.
type AnswerScore struct {
	AnswerID  uuid.UUID
	Score     float64
	Reasoning string
}

// ApplyScores writes per-answer scores and marks the submission scored,
// all in one transaction.
func (r *AssessmentRepository) ApplyScores(ctx context.Context, submissionID uuid.UUID, scores []AnswerScore, totalScore float64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin apply scores: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, sc := range scores {
		if _, err := tx.Exec(ctx,
			`UPDATE submission_answers SET score = $1, reasoning = $2 WHERE id = $3`,
			sc.Score, sc.Reasoning, sc.AnswerID); err != nil {
			return fmt.Errorf("update answer score: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE submissions SET scored = TRUE, total_score = $1 WHERE id = $2`,
		totalScore, submissionID); err != nil {
		return fmt.Errorf("mark submission scored: %w", err)
	}

	return tx.Commit(ctx)
}

// CreateDisqualification records a punitive session end.
func (r *AssessmentRepository) CreateDisqualification(ctx context.Context, d *model.Disqualification) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO disqualifications (application_id, job_id, violation_count)
		 VALUES ($1, $2, $3)
		 RETURNING id, occurred_at`,
		d.ApplicationID, d.JobID, d.ViolationCount,
	).Scan(&d.ID, &d.OccurredAt)
}

// GetDisqualification retrieves an application's disqualification record.
func (r *AssessmentRepository) GetDisqualification(ctx context.Context, applicationID uuid.UUID) (*model.Disqualification, error) {
	d := &model.Disqualification{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, application_id, job_id, violation_count, occurred_at
		 FROM disqualifications WHERE application_id = $1`, applicationID,
	).Scan(&d.ID, &d.ApplicationID, &d.JobID, &d.ViolationCount, &d.OccurredAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListIntegrityEvents returns an application's proctoring audit trail.
func (r *AssessmentRepository) ListIntegrityEvents(ctx context.Context, applicationID uuid.UUID) ([]model.IntegrityEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, application_id, event_type, recorded_at
		 FROM integrity_events WHERE application_id = $1 ORDER BY recorded_at`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.IntegrityEvent
	for rows.Next() {
		var e model.IntegrityEvent
		if err := rows.Scan(&e.ID, &e.ApplicationID, &e.EventType, &e.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

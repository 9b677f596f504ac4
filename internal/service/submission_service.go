package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/talentgate/talentgate-backend/internal/assessment"
	"github.com/talentgate/talentgate-backend/internal/config"
	"github.com/talentgate/talentgate-backend/internal/model"
	"github.com/talentgate/talentgate-backend/internal/repository"
)

// SubmissionService persists completed assessments and queues them for
// scoring. It implements assessment.Scorer, so a returned error keeps the
// session alive and the engine retries the submission.
type SubmissionService struct {
	assessmentRepo  *repository.AssessmentRepository
	applicationRepo *repository.ApplicationRepository
	rdb             *redis.Client
	log             zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	assessmentRepo *repository.AssessmentRepository,
	applicationRepo *repository.ApplicationRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		assessmentRepo:  assessmentRepo,
		applicationRepo: applicationRepo,
		rdb:             rdb,
		log:             log.With().Str("component", "submission_service").Logger(),
	}
}

// ScoringJob is the queue payload consumed by the scoring worker.
type ScoringJob struct {
	SubmissionID string `json:"submission_id"`
}

// Score persists the submission, advances the application to ASSESSED, and
// enqueues a scoring job. Retried calls are idempotent: a submission that
// already exists for the application is reused rather than duplicated.
func (s *SubmissionService) Score(ctx context.Context, sub *assessment.Submission) error {
	record := &model.Submission{
		ApplicationID: sub.ApplicationID,
		JobID:         sub.JobID,
		Trigger:       string(sub.Trigger),
	}
	record.Answers = make([]model.SubmissionAnswer, len(sub.Answers))
	for i, a := range sub.Answers {
		record.Answers[i] = model.SubmissionAnswer{
			QuestionID: a.QuestionID,
			AnswerText: a.Text,
			OrderNum:   i,
		}
	}

	if err := s.assessmentRepo.CreateSubmission(ctx, record); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// A prior attempt persisted the submission but failed later.
			// Recover it and continue with the remaining steps.
			existing, getErr := s.assessmentRepo.GetSubmissionByApplication(ctx, sub.ApplicationID)
			if getErr != nil {
				return fmt.Errorf("recover existing submission: %w", getErr)
			}
			record = existing
		} else {
			return fmt.Errorf("persist submission: %w", err)
		}
	}

	if _, err := s.applicationRepo.UpdateStatusIf(ctx, sub.ApplicationID,
		model.ApplicationStatusInvited, model.ApplicationStatusAssessed); err != nil {
		return fmt.Errorf("update application status: %w", err)
	}

	if err := s.enqueueScoring(ctx, record.ID); err != nil {
		return err
	}

	s.log.Info().
		Str("application_id", sub.ApplicationID.String()).
		Str("submission_id", record.ID.String()).
		Str("trigger", string(sub.Trigger)).
		Int("answers", len(record.Answers)).
		Msg("Submission persisted and queued for scoring")
	return nil
}

func (s *SubmissionService) enqueueScoring(ctx context.Context, submissionID uuid.UUID) error {
	job, _ := json.Marshal(ScoringJob{SubmissionID: submissionID.String()})
	if err := s.rdb.RPush(ctx, config.WorkerKey.ScoreSubmissionsQueue, job).Err(); err != nil {
		return fmt.Errorf("enqueue scoring job: %w", err)
	}
	return nil
}

// GetByApplication retrieves the persisted submission with its answers.
func (s *SubmissionService) GetByApplication(ctx context.Context, applicationID uuid.UUID) (*model.Submission, error) {
	return s.assessmentRepo.GetSubmissionByApplication(ctx, applicationID)
}

// ListIntegrityEvents returns an application's proctoring audit trail.
func (s *SubmissionService) ListIntegrityEvents(ctx context.Context, applicationID uuid.UUID) ([]model.IntegrityEvent, error) {
	events, err := s.assessmentRepo.ListIntegrityEvents(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.IntegrityEvent{}
	}
	return events, nil
}

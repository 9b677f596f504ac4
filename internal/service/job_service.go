package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/talentgate/talentgate-backend/internal/config"
	"github.com/talentgate/talentgate-backend/internal/model"
	"github.com/talentgate/talentgate-backend/internal/repository"
	"github.com/talentgate/talentgate-backend/internal/response"
)

// Domain Errors
var (
	ErrNotJobAuthor = errors.New("not the author of this job")
	ErrNoQuestions  = errors.New("job has no questions, cannot open")
	ErrJobNotDraft  = errors.New("job status is not DRAFT")
	ErrJobNotOpen   = errors.New("job status is not OPEN")
)

// JobService handles job posting business logic and Redis payload caching.
type JobService struct {
	jobRepo      *repository.JobRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewJobService creates a new JobService.
func NewJobService(
	jobRepo *repository.JobRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *JobService {
	return &JobService{
		jobRepo:      jobRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "job_service").Logger(),
	}
}

// GetByID retrieves a job by its UUID.
func (s *JobService) GetByID(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	return s.jobRepo.GetByID(ctx, id)
}

// List retrieves jobs with pagination and an optional status filter.
func (s *JobService) List(ctx context.Context, status *model.JobStatus, page, perPage int) ([]model.Job, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	jobs, total, err := s.jobRepo.ListPaginated(ctx, status, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if jobs == nil {
		jobs = []model.Job{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return jobs, pagination, nil
}

// Create inserts a new job as DRAFT.
func (s *JobService) Create(ctx context.Context, job *model.Job) error {
	job.Status = model.JobStatusDraft
	return s.jobRepo.Create(ctx, job)
}

// Update modifies an existing draft job.
func (s *JobService) Update(ctx context.Context, authorID int, job *model.Job) error {
	existing, err := s.jobRepo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotJobAuthor
	}
	if existing.Status != model.JobStatusDraft {
		return ErrJobNotDraft
	}
	return s.jobRepo.Update(ctx, job)
}

// Delete removes a draft job.
func (s *JobService) Delete(ctx context.Context, id uuid.UUID, authorID int) error {
	existing, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotJobAuthor
	}
	if existing.Status != model.JobStatusDraft {
		return ErrJobNotDraft
	}
	return s.jobRepo.Delete(ctx, id)
}

// ListQuestions returns a job's questions including desired answers.
// Recruiter console only.
func (s *JobService) ListQuestions(ctx context.Context, jobID uuid.UUID) ([]model.JobQuestion, error) {
	questions, err := s.questionRepo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.JobQuestion{}
	}
	return questions, nil
}

// ReplaceQuestions swaps a draft job's question set. Questions on an open job
// are frozen; close the job first.
func (s *JobService) ReplaceQuestions(ctx context.Context, jobID uuid.UUID, authorID int, questions []model.JobQuestion) error {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if authorID != 0 && job.AuthorID != authorID {
		return ErrNotJobAuthor
	}
	if job.Status != model.JobStatusDraft {
		return ErrJobNotDraft
	}
	return s.questionRepo.ReplaceForJob(ctx, jobID, questions)
}

// Open transitions a job to OPEN and caches the candidate payload in Redis.
// This is the critical path that populates the assessment fast lane.
func (s *JobService) Open(ctx context.Context, jobID uuid.UUID, authorID int) error {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	if authorID != 0 && job.AuthorID != authorID {
		return ErrNotJobAuthor
	}
	if job.Status != model.JobStatusDraft {
		return ErrJobNotDraft
	}

	if err := s.WarmJobCache(ctx, job); err != nil {
		return err
	}

	if err := s.jobRepo.UpdateStatus(ctx, jobID, model.JobStatusOpen); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("job_id", jobID.String()).Msg("Job opened")
	return nil
}

// Close transitions a job to CLOSED and drops its cached payload. Live
// sessions keep running; new assessment starts are rejected.
func (s *JobService) Close(ctx context.Context, jobID uuid.UUID, authorID int) error {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	if authorID != 0 && job.AuthorID != authorID {
		return ErrNotJobAuthor
	}
	if job.Status != model.JobStatusOpen {
		return ErrJobNotOpen
	}

	if err := s.jobRepo.UpdateStatus(ctx, jobID, model.JobStatusClosed); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	if err := s.rdb.Del(ctx, config.CacheKey.JobPayloadKey(jobID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("job_id", jobID.String()).Msg("Failed to drop payload cache")
	}

	s.log.Info().Str("job_id", jobID.String()).Msg("Job closed")
	return nil
}

// WarmJobCache loads a job's candidate payload from PostgreSQL into Redis.
// Desired answers never enter the payload.
func (s *JobService) WarmJobCache(ctx context.Context, job *model.Job) error {
	questions, err := s.questionRepo.ListByJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	candidateQuestions := make([]model.QuestionForCandidate, len(questions))
	for i, q := range questions {
		candidateQuestions[i] = model.QuestionForCandidate{
			ID:       q.ID,
			Prompt:   q.Prompt,
			OrderNum: q.OrderNum,
		}
	}

	payload := model.AssessmentPayload{
		JobID:           job.ID,
		Title:           job.Title,
		DurationSeconds: job.DurationSeconds,
		Questions:       candidateQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if err := s.rdb.Set(ctx, config.CacheKey.JobPayloadKey(job.ID.String()), payloadJSON, 0).Err(); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("job_id", job.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all open jobs into Redis on application startup.
// This prevents lazy-loading races under thundering herd traffic.
func (s *JobService) PrewarmAllCaches(ctx context.Context) error {
	jobs, err := s.jobRepo.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("list open jobs: %w", err)
	}

	if len(jobs) == 0 {
		s.log.Info().Msg("No open jobs to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(jobs)).Msg("Prewarming open jobs...")

	warmed := 0
	for i := range jobs {
		if err := s.WarmJobCache(ctx, &jobs[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("job_id", jobs[i].ID.String()).
				Msg("Failed to warm job, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(jobs)).
		Msg("Prewarming complete")
	return nil
}

// GetAssessmentPayload retrieves the cached candidate payload from Redis,
// falling back to PostgreSQL (and self-healing the cache) on a miss.
func (s *JobService) GetAssessmentPayload(ctx context.Context, jobID uuid.UUID) (*model.AssessmentPayload, error) {
	key := config.CacheKey.JobPayloadKey(jobID.String())
	data, err := s.rdb.Get(ctx, key).Bytes()

	if errors.Is(err, redis.Nil) {
		// Cache miss: rebuild from the source of truth.
		job, dbErr := s.jobRepo.GetByID(ctx, jobID)
		if dbErr != nil {
			return nil, fmt.Errorf("job not found: %w", dbErr)
		}
		if job.Status != model.JobStatusOpen {
			return nil, ErrJobNotOpen
		}
		if warmErr := s.WarmJobCache(ctx, job); warmErr != nil {
			return nil, warmErr
		}
		data, err = s.rdb.Get(ctx, key).Bytes()
	}
	if err != nil {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.AssessmentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

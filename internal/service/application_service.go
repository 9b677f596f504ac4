package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/talentgate/talentgate-backend/internal/model"
	"github.com/talentgate/talentgate-backend/internal/repository"
	"github.com/talentgate/talentgate-backend/internal/response"
)

// Domain Errors
var (
	ErrNotApplicationOwner = errors.New("application belongs to another candidate")
	ErrNotInvited          = errors.New("application has not been invited to the assessment")
	ErrWrongStatus         = errors.New("application is not in a state that allows this action")
)

// ApplicationService handles application lifecycle logic: applying,
// inviting, and the status transitions around assessment outcomes.
type ApplicationService struct {
	applicationRepo *repository.ApplicationRepository
	jobRepo         *repository.JobRepository
	log             zerolog.Logger
}

// NewApplicationService creates a new ApplicationService.
func NewApplicationService(
	applicationRepo *repository.ApplicationRepository,
	jobRepo *repository.JobRepository,
	log zerolog.Logger,
) *ApplicationService {
	return &ApplicationService{
		applicationRepo: applicationRepo,
		jobRepo:         jobRepo,
		log:             log.With().Str("component", "application_service").Logger(),
	}
}

// Apply creates a SUBMITTED application for an open job. A candidate can
// apply to each job at most once.
func (s *ApplicationService) Apply(ctx context.Context, jobID uuid.UUID, candidateID int, coverLetter *string) (*model.Application, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job.Status != model.JobStatusOpen {
		return nil, ErrJobNotOpen
	}

	app := &model.Application{
		JobID:       jobID,
		CandidateID: candidateID,
		Status:      model.ApplicationStatusSubmitted,
		CoverLetter: coverLetter,
	}
	if err := s.applicationRepo.Create(ctx, app); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("application_id", app.ID.String()).
		Str("job_id", jobID.String()).
		Int("candidate_id", candidateID).
		Msg("Application submitted")
	return app, nil
}

// GetByID retrieves an application.
func (s *ApplicationService) GetByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	return s.applicationRepo.GetByID(ctx, id)
}

// GetOwned retrieves an application and verifies the candidate owns it.
func (s *ApplicationService) GetOwned(ctx context.Context, id uuid.UUID, candidateID int) (*model.Application, error) {
	app, err := s.applicationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.CandidateID != candidateID {
		return nil, ErrNotApplicationOwner
	}
	return app, nil
}

// ListMine returns a candidate's applications with the job titles filled in.
func (s *ApplicationService) ListMine(ctx context.Context, candidateID int) ([]model.Application, error) {
	apps, err := s.applicationRepo.ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []model.Application{}
	}
	return apps, nil
}

// ListByJob returns a job's applications for the recruiter console.
func (s *ApplicationService) ListByJob(ctx context.Context, jobID uuid.UUID, page, perPage int) ([]model.Application, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	apps, total, err := s.applicationRepo.ListByJobPaginated(ctx, jobID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if apps == nil {
		apps = []model.Application{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return apps, pagination, nil
}

// Invite transitions SUBMITTED → INVITED, making the assessment available
// to the candidate. Inviting twice or from any other state fails.
func (s *ApplicationService) Invite(ctx context.Context, id uuid.UUID) error {
	ok, err := s.applicationRepo.UpdateStatusIf(ctx, id,
		model.ApplicationStatusSubmitted, model.ApplicationStatusInvited)
	if err != nil {
		return fmt.Errorf("invite application: %w", err)
	}
	if !ok {
		return ErrWrongStatus
	}

	s.log.Info().Str("application_id", id.String()).Msg("Candidate invited to assessment")
	return nil
}

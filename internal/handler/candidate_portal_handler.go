package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/talentgate/talentgate-backend/internal/middleware"
	"github.com/talentgate/talentgate-backend/internal/model"
	"github.com/talentgate/talentgate-backend/internal/repository"
	"github.com/talentgate/talentgate-backend/internal/response"
	"github.com/talentgate/talentgate-backend/internal/service"
	"github.com/talentgate/talentgate-backend/internal/validator"
)

// CandidatePortalHandler handles the candidate-facing job board and
// assessment entry points.
type CandidatePortalHandler struct {
	jobService         *service.JobService
	applicationService *service.ApplicationService
	sessionService     *service.SessionService
}

// NewCandidatePortalHandler creates a new CandidatePortalHandler.
func NewCandidatePortalHandler(
	jobService *service.JobService,
	applicationService *service.ApplicationService,
	sessionService *service.SessionService,
) *CandidatePortalHandler {
	return &CandidatePortalHandler{
		jobService:         jobService,
		applicationService: applicationService,
		sessionService:     sessionService,
	}
}

// ListOpenJobs godoc
// GET /api/v1/candidate/jobs?page=&per_page=
// The job board: open postings only.
func (h *CandidatePortalHandler) ListOpenJobs(c *gin.Context) {
	status := model.JobStatusOpen
	jobs, pagination, err := h.jobService.List(c.Request.Context(), &status,
		queryInt(c, "page", 1), queryInt(c, "per_page", 10))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"jobs": jobs}, pagination)
}

// GetJob godoc
// GET /api/v1/candidate/jobs/:job_id
// Open postings only; question prompts and answers are never exposed here.
func (h *CandidatePortalHandler) GetJob(c *gin.Context) {
	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}

	job, err := h.jobService.GetByID(c.Request.Context(), jobID)
	if err != nil || job.Status != model.JobStatusOpen {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"job": job})
}

// Apply godoc
// POST /api/v1/candidate/jobs/:job_id/apply
func (h *CandidatePortalHandler) Apply(c *gin.Context) {
	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}

	var req model.ApplyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	app, err := h.applicationService.Apply(c.Request.Context(), jobID, claims.UserID, req.CoverLetter)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateApplication):
			response.Fail(c, http.StatusConflict, response.ErrAlreadyApplied)
		case errors.Is(err, service.ErrJobNotOpen):
			response.Fail(c, http.StatusConflict, response.ErrJobNotOpen)
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"application": app})
}

// ListMyApplications godoc
// GET /api/v1/candidate/applications
func (h *CandidatePortalHandler) ListMyApplications(c *gin.Context) {
	claims := middleware.GetClaims(c)

	apps, err := h.applicationService.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"applications": apps})
}

// GetAssessmentState godoc
// GET /api/v1/candidate/applications/:application_id/assessment
// Returns the live session snapshot for a reconnecting client, or the
// availability of an assessment that has not started yet.
func (h *CandidatePortalHandler) GetAssessmentState(c *gin.Context) {
	applicationID, ok := pathUUID(c, "application_id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	app, err := h.applicationService.GetOwned(c.Request.Context(), applicationID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNotApplicationOwner) {
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
			return
		}
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	if sess, err := h.sessionService.Get(applicationID); err == nil {
		response.Success(c, http.StatusOK, gin.H{
			"available": true,
			"live":      true,
			"snapshot":  sess.Snapshot(),
		})
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"available": app.Status == model.ApplicationStatusInvited,
		"live":      false,
		"status":    app.Status,
	})
}

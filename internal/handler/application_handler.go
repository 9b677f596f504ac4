package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/talentgate/talentgate-backend/internal/response"
	"github.com/talentgate/talentgate-backend/internal/service"
)

// ApplicationHandler handles recruiter-side application endpoints.
type ApplicationHandler struct {
	applicationService *service.ApplicationService
	submissionService  *service.SubmissionService
}

// NewApplicationHandler creates a new ApplicationHandler.
func NewApplicationHandler(
	applicationService *service.ApplicationService,
	submissionService *service.SubmissionService,
) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: applicationService,
		submissionService:  submissionService,
	}
}

// ListByJob godoc
// GET /api/v1/admin/jobs/:job_id/applications?page=&per_page=
func (h *ApplicationHandler) ListByJob(c *gin.Context) {
	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}

	apps, pagination, err := h.applicationService.ListByJob(c.Request.Context(), jobID,
		queryInt(c, "page", 1), queryInt(c, "per_page", 10))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"applications": apps}, pagination)
}

// Invite godoc
// POST /api/v1/admin/applications/:application_id/invite
// Transitions SUBMITTED → INVITED, making the assessment available.
func (h *ApplicationHandler) Invite(c *gin.Context) {
	applicationID, ok := pathUUID(c, "application_id")
	if !ok {
		return
	}

	if err := h.applicationService.Invite(c.Request.Context(), applicationID); err != nil {
		if errors.Is(err, service.ErrWrongStatus) {
			response.Fail(c, http.StatusConflict, response.ErrInvalidApplicationStatus)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetSubmission godoc
// GET /api/v1/admin/applications/:application_id/submission
// Returns the persisted answer set with any scores, plus the integrity
// audit trail.
func (h *ApplicationHandler) GetSubmission(c *gin.Context) {
	applicationID, ok := pathUUID(c, "application_id")
	if !ok {
		return
	}

	submission, err := h.submissionService.GetByApplication(c.Request.Context(), applicationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	events, err := h.submissionService.ListIntegrityEvents(c.Request.Context(), applicationID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"submission":       submission,
		"integrity_events": events,
	})
}

// GetIntegrityEvents godoc
// GET /api/v1/admin/applications/:application_id/integrity-events
// Returns the proctoring audit trail on its own; useful for disqualified
// applications that never produced a submission.
func (h *ApplicationHandler) GetIntegrityEvents(c *gin.Context) {
	applicationID, ok := pathUUID(c, "application_id")
	if !ok {
		return
	}

	events, err := h.submissionService.ListIntegrityEvents(c.Request.Context(), applicationID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"integrity_events": events})
}

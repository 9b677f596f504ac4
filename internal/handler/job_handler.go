package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/talentgate/talentgate-backend/internal/middleware"
	"github.com/talentgate/talentgate-backend/internal/model"
	"github.com/talentgate/talentgate-backend/internal/response"
	"github.com/talentgate/talentgate-backend/internal/service"
	"github.com/talentgate/talentgate-backend/internal/validator"
)

// JobHandler handles recruiter job management endpoints.
type JobHandler struct {
	jobService *service.JobService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobService *service.JobService) *JobHandler {
	return &JobHandler{jobService: jobService}
}

// List godoc
// GET /api/v1/admin/jobs?status=&page=&per_page=
func (h *JobHandler) List(c *gin.Context) {
	var status *model.JobStatus
	if raw := c.Query("status"); raw != "" {
		st := model.JobStatus(raw)
		status = &st
	}

	jobs, pagination, err := h.jobService.List(c.Request.Context(), status,
		queryInt(c, "page", 1), queryInt(c, "per_page", 10))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"jobs": jobs}, pagination)
}

// Get godoc
// GET /api/v1/admin/jobs/:job_id
func (h *JobHandler) Get(c *gin.Context) {
	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}

	job, err := h.jobService.GetByID(c.Request.Context(), jobID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"job": job})
}

// Create godoc
// POST /api/v1/admin/jobs
func (h *JobHandler) Create(c *gin.Context) {
	var req model.CreateJobRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	job := &model.Job{
		Title:           req.Title,
		Description:     req.Description,
		AuthorID:        claims.UserID,
		DurationSeconds: req.DurationSeconds,
	}
	if err := h.jobService.Create(c.Request.Context(), job); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"job": job})
}

// Update godoc
// PUT /api/v1/admin/jobs/:job_id
func (h *JobHandler) Update(c *gin.Context) {
	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}

	var req model.UpdateJobRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	job, err := h.jobService.GetByID(c.Request.Context(), jobID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	if req.Title != "" {
		job.Title = req.Title
	}
	if req.Description != "" {
		job.Description = req.Description
	}
	if req.DurationSeconds > 0 {
		job.DurationSeconds = req.DurationSeconds
	}

	claims := middleware.GetClaims(c)
	if err := h.jobService.Update(c.Request.Context(), authorScope(claims), job); err != nil {
		failJobTransition(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"job": job})
}

// Delete godoc
// DELETE /api/v1/admin/jobs/:job_id
func (h *JobHandler) Delete(c *gin.Context) {
	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.jobService.Delete(c.Request.Context(), jobID, authorScope(claims)); err != nil {
		failJobTransition(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ListQuestions godoc
// GET /api/v1/admin/jobs/:job_id/questions
// Includes desired answers; recruiter console only.
func (h *JobHandler) ListQuestions(c *gin.Context) {
	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}

	questions, err := h.jobService.ListQuestions(c.Request.Context(), jobID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/jobs/:job_id/questions
// Replaces the full question set of a draft job.
func (h *JobHandler) ReplaceQuestions(c *gin.Context) {
	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions := make([]model.JobQuestion, len(req.Questions))
	for i, q := range req.Questions {
		orderNum := q.OrderNum
		if orderNum == 0 {
			orderNum = i
		}
		questions[i] = model.JobQuestion{
			Prompt:        q.Prompt,
			DesiredAnswer: q.DesiredAnswer,
			OrderNum:      orderNum,
		}
	}

	claims := middleware.GetClaims(c)
	if err := h.jobService.ReplaceQuestions(c.Request.Context(), jobID, authorScope(claims), questions); err != nil {
		failJobTransition(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// Open godoc
// POST /api/v1/admin/jobs/:job_id/open
// Opens the job for applications and warms the assessment payload cache.
func (h *JobHandler) Open(c *gin.Context) {
	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.jobService.Open(c.Request.Context(), jobID, authorScope(claims)); err != nil {
		failJobTransition(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.JobStatusOpen})
}

// Close godoc
// POST /api/v1/admin/jobs/:job_id/close
func (h *JobHandler) Close(c *gin.Context) {
	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.jobService.Close(c.Request.Context(), jobID, authorScope(claims)); err != nil {
		failJobTransition(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.JobStatusClosed})
}

// authorScope returns the author filter for the claims: super admins see
// everything (0 disables the filter), recruiters only their own jobs.
func authorScope(claims *service.Claims) int {
	if claims == nil || claims.Role == string(model.AdminRoleSuperAdmin) {
		return 0
	}
	return claims.UserID
}

func failJobTransition(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotJobAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrNoQuestions),
		errors.Is(err, service.ErrJobNotDraft),
		errors.Is(err, service.ErrJobNotOpen):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// pathUUID parses a UUID path parameter, writing the 400 response itself on
// failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{name: "must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

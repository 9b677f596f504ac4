package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus enumerates the possible states of a job posting.
type JobStatus string

const (
	JobStatusDraft  JobStatus = "DRAFT"
	JobStatusOpen   JobStatus = "OPEN"
	JobStatusClosed JobStatus = "CLOSED"
)

// Job represents a job posting with its technical assessment definition.
type Job struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	AuthorID        int       `json:"author_id"`
	DurationSeconds int       `json:"duration_seconds"`
	QuestionCount   int       `json:"question_count"`
	Status          JobStatus `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// JobQuestion is one technical question on a job. DesiredAnswer is the
// employer's scoring rubric and must never reach candidates.
type JobQuestion struct {
	ID            uuid.UUID `json:"id"`
	JobID         uuid.UUID `json:"job_id"`
	Prompt        string    `json:"prompt"`
	DesiredAnswer string    `json:"desired_answer,omitempty"`
	OrderNum      int       `json:"order_num"`
}

// QuestionForCandidate is a question stripped of the desired answer, as
// served to candidates taking the assessment.
type QuestionForCandidate struct {
	ID       uuid.UUID `json:"id"`
	Prompt   string    `json:"prompt"`
	OrderNum int       `json:"order_num"`
}

// AssessmentPayload is the candidate-facing assessment definition for a job,
// cached in Redis when the job opens.
type AssessmentPayload struct {
	JobID           uuid.UUID              `json:"job_id"`
	Title           string                 `json:"title"`
	DurationSeconds int                    `json:"duration_seconds"`
	Questions       []QuestionForCandidate `json:"questions"`
}

// CreateJobRequest is the payload for creating a new job posting.
type CreateJobRequest struct {
	Title           string `json:"title" binding:"required,min=3,max=255"`
	Description     string `json:"description" binding:"required,min=10"`
	DurationSeconds int    `json:"duration_seconds" binding:"required,min=60,max=14400"`
}

// UpdateJobRequest is the payload for updating a draft job posting.
type UpdateJobRequest struct {
	Title           string `json:"title" binding:"omitempty,min=3,max=255"`
	Description     string `json:"description" binding:"omitempty,min=10"`
	DurationSeconds int    `json:"duration_seconds" binding:"omitempty,min=60,max=14400"`
}

// AddQuestionRequest is the payload for one question in a replace request.
type AddQuestionRequest struct {
	Prompt        string `json:"prompt" binding:"required,min=1,max=2000"`
	DesiredAnswer string `json:"desired_answer" binding:"required,min=1,max=4000"`
	OrderNum      int    `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a job's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

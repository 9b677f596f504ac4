package model

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus tracks an application relative to its assessment.
// SUBMITTED → INVITED → {ASSESSED | DISQUALIFIED}. The broader HR review
// pipeline lives outside this service.
type ApplicationStatus string

const (
	ApplicationStatusSubmitted    ApplicationStatus = "SUBMITTED"
	ApplicationStatusInvited      ApplicationStatus = "INVITED"
	ApplicationStatusAssessed     ApplicationStatus = "ASSESSED"
	ApplicationStatusDisqualified ApplicationStatus = "DISQUALIFIED"
)

// Application represents a candidate's application to a job.
type Application struct {
	ID          uuid.UUID         `json:"id"`
	JobID       uuid.UUID         `json:"job_id"`
	CandidateID int               `json:"candidate_id"`
	Status      ApplicationStatus `json:"status"`
	CoverLetter *string           `json:"cover_letter,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	// Enriched fields, populated on listing endpoints.
	JobTitle       string `json:"job_title,omitempty"`
	CandidateName  string `json:"candidate_name,omitempty"`
	CandidateEmail string `json:"candidate_email,omitempty"`
}

// ApplyRequest is the payload for applying to a job.
type ApplyRequest struct {
	CoverLetter *string `json:"cover_letter" binding:"omitempty,max=4000"`
}

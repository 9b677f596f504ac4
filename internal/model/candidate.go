package model

import "time"

// Candidate represents a job applicant account.
type Candidate struct {
	ID           int       `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        *string   `json:"phone,omitempty"`
	LinkedInURL  *string   `json:"linkedin_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterCandidateRequest is the payload for candidate self-registration.
type RegisterCandidateRequest struct {
	FullName string `json:"full_name" binding:"required,min=2,max=255"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// CandidateLoginRequest is the payload for candidate login.
type CandidateLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

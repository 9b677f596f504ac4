package model

import (
	"time"

	"github.com/google/uuid"
)

// Submission is the persisted outcome of a completed assessment session:
// the complete, ordered answer set plus scoring state.
type Submission struct {
	ID            uuid.UUID          `json:"id"`
	ApplicationID uuid.UUID          `json:"application_id"`
	JobID         uuid.UUID          `json:"job_id"`
	Trigger       string             `json:"trigger"`
	Scored        bool               `json:"scored"`
	TotalScore    *float64           `json:"total_score,omitempty"`
	SubmittedAt   time.Time          `json:"submitted_at"`
	Answers       []SubmissionAnswer `json:"answers,omitempty"`
}

// SubmissionAnswer is one answered (or sentinel-filled) question of a
// submission. Score and Reasoning arrive later from the scoring
// collaborator.
type SubmissionAnswer struct {
	ID           uuid.UUID `json:"id"`
	SubmissionID uuid.UUID `json:"submission_id"`
	QuestionID   uuid.UUID `json:"question_id"`
	AnswerText   string    `json:"answer_text"`
	OrderNum     int       `json:"order_num"`
	Score        *float64  `json:"score,omitempty"`
	Reasoning    *string   `json:"reasoning,omitempty"`
}

// Disqualification is the persisted record of a punitive session end.
type Disqualification struct {
	ID             uuid.UUID `json:"id"`
	ApplicationID  uuid.UUID `json:"application_id"`
	JobID          uuid.UUID `json:"job_id"`
	ViolationCount int       `json:"violation_count"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// IntegrityEventType labels the proctoring events persisted for audit.
// Clipboard events are informational; only context-loss events count toward
// disqualification.
type IntegrityEventType string

const (
	IntegrityEventViolation      IntegrityEventType = "CONTEXT_LOSS"
	IntegrityEventClipboardCopy  IntegrityEventType = "CLIPBOARD_COPY"
	IntegrityEventClipboardPaste IntegrityEventType = "CLIPBOARD_PASTE"
)

// IntegrityEvent is one proctoring event recorded during a live session.
type IntegrityEvent struct {
	ID            uuid.UUID          `json:"id"`
	ApplicationID uuid.UUID          `json:"application_id"`
	EventType     IntegrityEventType `json:"event_type"`
	RecordedAt    time.Time          `json:"recorded_at"`
}

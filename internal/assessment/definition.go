package assessment

import (
	"github.com/google/uuid"
)

// Question is a single prompt inside an assessment definition. The desired
// answer stays on the job record and never enters the engine.
type Question struct {
	ID     uuid.UUID `json:"id"`
	Prompt string    `json:"prompt"`
}

// Definition is the immutable input a session is built from. It is supplied
// by the job service; the engine never mutates it.
type Definition struct {
	JobID           uuid.UUID  `json:"job_id"`
	Questions       []Question `json:"questions"`
	DurationSeconds int        `json:"duration_seconds"`
}

// Answer pairs a question with the candidate's final text. Unanswered
// questions carry the sentinel text instead of an empty string.
type Answer struct {
	QuestionID uuid.UUID `json:"question_id"`
	Text       string    `json:"answer"`
}

// Submission is the complete, ordered answer set handed to the scoring
// collaborator. It always contains exactly len(Definition.Questions) entries,
// in definition order.
type Submission struct {
	ApplicationID uuid.UUID `json:"application_id"`
	JobID         uuid.UUID `json:"job_id"`
	Trigger       Trigger   `json:"trigger"`
	Answers       []Answer  `json:"answers"`
}

// Trigger identifies what caused a submission.
type Trigger string

const (
	TriggerManual       Trigger = "MANUAL"
	TriggerTimerExpired Trigger = "TIMER_EXPIRED"
)

// Status enumerates session states. Completed and Disqualified are absorbing.
type Status string

const (
	StatusNotStarted   Status = "NOT_STARTED"
	StatusInProgress   Status = "IN_PROGRESS"
	StatusCompleted    Status = "COMPLETED"
	StatusDisqualified Status = "DISQUALIFIED"
)

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDisqualified
}

// ClipboardKind distinguishes the two blocked clipboard gestures. Both are
// informational only and never count toward disqualification.
type ClipboardKind string

const (
	ClipboardCopy  ClipboardKind = "COPY"
	ClipboardPaste ClipboardKind = "PASTE"
)

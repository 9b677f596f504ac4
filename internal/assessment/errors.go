package assessment

import "errors"

// Engine errors. Everything else the engine swallows on purpose: operations
// against a terminal session are expected under duplicate event delivery and
// must not corrupt state or surface as failures.
var (
	// ErrInvalidState is returned when an operation is attempted outside its
	// legal state, e.g. Start on an already started session or Submit before
	// Start.
	ErrInvalidState = errors.New("assessment: operation not allowed in current session state")

	// ErrAlreadySubmitting is returned when a submission is already in flight.
	// Exactly one assembly succeeds per session no matter how many triggers
	// (manual + timer expiry) race.
	ErrAlreadySubmitting = errors.New("assessment: submission already in flight")

	// ErrQuestionIndex is returned by RecordAnswer for an index outside
	// [0, questionCount) while the session is in progress.
	ErrQuestionIndex = errors.New("assessment: question index out of range")

	// ErrInvalidDefinition is returned by NewSession for a definition with a
	// non-positive duration.
	ErrInvalidDefinition = errors.New("assessment: definition duration must be positive")

	// ErrNoApplication is returned by NewSession when the application id is
	// missing. A session cannot exist without its application record.
	ErrNoApplication = errors.New("assessment: application id is required")
)

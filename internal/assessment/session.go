package assessment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultViolationLimit is the number of context-loss violations that
// disqualifies a session. The first violation below the limit produces a
// warning. Tunable via config (ASSESSMENT_VIOLATION_LIMIT).
const DefaultViolationLimit = 2

// Scorer is the external scoring collaborator. Score is called with the
// assembled submission; a non-nil error leaves the session in progress so the
// submission can be retried.
type Scorer interface {
	Score(ctx context.Context, sub *Submission) error
}

// Session is the single source of truth for one candidate's attempt at one
// timed assessment. All state transitions happen under s.mu, which is the
// only serialization point between the clock goroutine, the candidate's
// transport goroutine, and a pending submission.
type Session struct {
	mu sync.Mutex

	applicationID uuid.UUID
	def           Definition
	sink          EventSink
	scorer        Scorer

	status           Status
	currentIndex     int
	answers          map[int]string
	remainingSeconds int
	violationCount   int
	violationLimit   int

	// submitInFlight guards at-most-one assembly per session. Set before the
	// scorer is invoked, cleared only on terminal transition or scorer failure.
	submitInFlight bool
	closed         bool

	tickInterval time.Duration
	clock        *clock
}

// Option tweaks session construction.
type Option func(*Session)

// WithViolationLimit overrides the disqualification threshold.
func WithViolationLimit(limit int) Option {
	return func(s *Session) {
		if limit > 0 {
			s.violationLimit = limit
		}
	}
}

// WithTickInterval overrides the one second wall-clock tick. Each tick still
// decrements the countdown by exactly one logical second; tests shrink the
// interval to run the full countdown quickly.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// withoutClock builds a session whose countdown is driven manually via
// tick(). Test hook; the real clock goroutine is skipped.
func withoutClock() Option {
	return func(s *Session) {
		s.tickInterval = -1
	}
}

// NewSession builds a session in the NotStarted state. The definition must
// have a positive duration; an empty question list is a valid but trivial
// assessment. sink and scorer must be non-nil for a usable session; pass
// NopSink to discard signals.
func NewSession(applicationID uuid.UUID, def Definition, scorer Scorer, sink EventSink, opts ...Option) (*Session, error) {
	if applicationID == uuid.Nil {
		return nil, ErrNoApplication
	}
	if def.DurationSeconds <= 0 {
		return nil, ErrInvalidDefinition
	}
	if sink == nil {
		sink = NopSink
	}

	s := &Session{
		applicationID:  applicationID,
		def:            def,
		sink:           sink,
		scorer:         scorer,
		status:         StatusNotStarted,
		answers:        make(map[int]string),
		violationLimit: DefaultViolationLimit,
		tickInterval:   time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start transitions NotStarted → InProgress and starts the countdown.
// Calling Start twice returns ErrInvalidState.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.status != StatusNotStarted {
		return ErrInvalidState
	}

	s.status = StatusInProgress
	s.remainingSeconds = s.def.DurationSeconds
	s.currentIndex = 0
	if s.tickInterval > 0 {
		s.clock = newClock(s, s.tickInterval)
	}
	return nil
}

// RecordAnswer overwrites the ledger entry for questionIndex. Outside
// InProgress it is a silent no-op: post-termination answer delivery is
// expected under duplicate events and must not tamper with frozen state.
func (s *Session) RecordAnswer(questionIndex int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.status != StatusInProgress {
		return nil
	}
	if questionIndex < 0 || questionIndex >= len(s.def.Questions) {
		return ErrQuestionIndex
	}
	s.answers[questionIndex] = text
	return nil
}

// Navigate moves the current question index by delta, clamped to the valid
// range. It has no effect unless the session is in progress.
func (s *Session) Navigate(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.status != StatusInProgress {
		return s.currentIndex
	}

	idx := s.currentIndex + delta
	if idx < 0 {
		idx = 0
	}
	if max := len(s.def.Questions) - 1; idx > max {
		if max < 0 {
			max = 0
		}
		idx = max
	}
	s.currentIndex = idx
	return idx
}

// Submit assembles the answer set and hands it to the scorer. On scorer
// success the session becomes Completed; on failure it stays InProgress and
// the error is returned so the caller can retry. A concurrent submission is
// rejected with ErrAlreadySubmitting.
func (s *Session) Submit(ctx context.Context, trigger Trigger) error {
	s.mu.Lock()

	if s.closed || s.status != StatusInProgress {
		s.mu.Unlock()
		return ErrInvalidState
	}
	if s.submitInFlight {
		s.mu.Unlock()
		return ErrAlreadySubmitting
	}

	s.submitInFlight = true
	sub := s.assembleLocked(trigger)

	// The scorer performs network I/O; release the lock so the clock keeps
	// ticking and a racing submit gets a clean ErrAlreadySubmitting.
	s.mu.Unlock()

	err := s.scorer.Score(ctx, sub)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.submitInFlight = false
		if !s.closed && !s.status.Terminal() {
			s.sink.Publish(Event{
				Kind:          EventSubmitFailed,
				ApplicationID: s.applicationID,
				Trigger:       trigger,
				Err:           err,
			})
		}
		return err
	}

	// A disqualification may have landed while the scorer call was in
	// flight; a terminal state is never overwritten.
	if s.status.Terminal() {
		return nil
	}

	s.status = StatusCompleted
	s.stopClockLocked()
	if !s.closed {
		s.sink.Publish(Event{
			Kind:          EventCompleted,
			ApplicationID: s.applicationID,
			Trigger:       trigger,
		})
	}
	return nil
}

// ReportViolation records one context-loss event. Below the limit it emits a
// warning; at the limit the session is disqualified. Violations outside
// InProgress are ignored entirely.
func (s *Session) ReportViolation() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.status != StatusInProgress {
		return
	}

	s.violationCount++

	if s.violationCount >= s.violationLimit {
		s.status = StatusDisqualified
		s.stopClockLocked()
		s.sink.Publish(Event{
			Kind:           EventDisqualified,
			ApplicationID:  s.applicationID,
			ViolationCount: s.violationCount,
		})
		return
	}

	s.sink.Publish(Event{
		Kind:           EventWarning,
		ApplicationID:  s.applicationID,
		ViolationCount: s.violationCount,
	})
}

// ReportClipboard records a blocked copy/paste gesture. Clipboard activity is
// a separate, non-punitive control: it never counts toward the violation
// limit.
func (s *Session) ReportClipboard(kind ClipboardKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.status != StatusInProgress {
		return
	}

	s.sink.Publish(Event{
		Kind:          EventClipboardBlocked,
		ApplicationID: s.applicationID,
		Clipboard:     kind,
	})
}

// Close releases the clock and detaches the session from its host. Late
// ticks and violation reports after Close are no-ops. Close never changes
// the session status.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.stopClockLocked()
}

// tick is called by the clock goroutine once per tick interval. It
// decrements the countdown, emits the single Expired-driven submission, and
// retries the expired submission on later ticks if the scorer failed.
func (s *Session) tick() {
	s.mu.Lock()

	if s.closed || s.status != StatusInProgress {
		s.mu.Unlock()
		return
	}

	if s.remainingSeconds > 0 {
		s.remainingSeconds--
	}

	remaining := s.remainingSeconds
	s.sink.Publish(Event{
		Kind:             EventTick,
		ApplicationID:    s.applicationID,
		RemainingSeconds: remaining,
	})

	if remaining > 0 {
		s.mu.Unlock()
		return
	}

	// Countdown hit zero. The first pass is the Expired signal; if that
	// submission fails (scorer unreachable) every following tick retries
	// until one succeeds or the session is torn down.
	if s.submitInFlight {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	// Best effort; failure already surfaced through EventSubmitFailed and
	// the next tick retries.
	_ = s.Submit(context.Background(), TriggerTimerExpired)
}

// assembleLocked builds the complete, ordered submission. Every question gets
// exactly one entry; unanswered or blank entries carry the sentinel.
// Caller must hold s.mu.
func (s *Session) assembleLocked(trigger Trigger) *Submission {
	return &Submission{
		ApplicationID: s.applicationID,
		JobID:         s.def.JobID,
		Trigger:       trigger,
		Answers:       assemble(s.def.Questions, s.answers),
	}
}

func (s *Session) stopClockLocked() {
	if s.clock != nil {
		s.clock.stop()
		s.clock = nil
	}
}

// Snapshot is a point-in-time copy of the observable session state, used for
// reconnect replies and the live monitor.
type Snapshot struct {
	ApplicationID    uuid.UUID      `json:"application_id"`
	JobID            uuid.UUID      `json:"job_id"`
	Status           Status         `json:"status"`
	CurrentIndex     int            `json:"current_question_index"`
	RemainingSeconds int            `json:"remaining_seconds"`
	ViolationCount   int            `json:"violation_count"`
	ViolationLimit   int            `json:"violation_limit"`
	Answers          map[int]string `json:"answers"`
	QuestionCount    int            `json:"question_count"`
}

// Snapshot returns a copy of the current state. The answers map is cloned;
// the caller may keep it.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make(map[int]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}

	return Snapshot{
		ApplicationID:    s.applicationID,
		JobID:            s.def.JobID,
		Status:           s.status,
		CurrentIndex:     s.currentIndex,
		RemainingSeconds: s.remainingSeconds,
		ViolationCount:   s.violationCount,
		ViolationLimit:   s.violationLimit,
		Answers:          answers,
		QuestionCount:    len(s.def.Questions),
	}
}

// Status returns the current session status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ApplicationID returns the application this session belongs to.
func (s *Session) ApplicationID() uuid.UUID {
	return s.applicationID
}

// Definition returns the immutable definition the session was built from.
func (s *Session) Definition() Definition {
	return s.def
}

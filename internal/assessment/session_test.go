package assessment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// stubScorer records submissions and fails a configurable number of times
// before succeeding.
type stubScorer struct {
	mu        sync.Mutex
	failures  int
	calls     int
	last      *Submission
	block     chan struct{} // if set, Score waits until the channel closes
	scoreErrs []error
}

func (s *stubScorer) Score(ctx context.Context, sub *Submission) error {
	s.mu.Lock()
	s.calls++
	s.last = sub
	block := s.block
	var err error
	if s.failures > 0 {
		s.failures--
		err = errors.New("scoring collaborator unreachable")
	}
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	return err
}

func (s *stubScorer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubScorer) lastSubmission() *Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// recordSink collects published events for assertions.
type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordSink) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordSink) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recordSink) lastOf(kind EventKind) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return Event{}, false
}

func testDefinition(questions int, duration int) Definition {
	qs := make([]Question, questions)
	for i := range qs {
		qs[i] = Question{ID: uuid.New(), Prompt: "prompt"}
	}
	return Definition{
		JobID:           uuid.New(),
		Questions:       qs,
		DurationSeconds: duration,
	}
}

// newTestSession builds a started session with a manually driven countdown.
func newTestSession(t *testing.T, def Definition, scorer Scorer, sink EventSink, opts ...Option) *Session {
	t.Helper()
	opts = append(opts, withoutClock())
	s, err := NewSession(uuid.New(), def, scorer, sink, opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestNewSessionValidation(t *testing.T) {
	def := testDefinition(3, 60)

	t.Run("MissingApplicationID", func(t *testing.T) {
		if _, err := NewSession(uuid.Nil, def, &stubScorer{}, NopSink); !errors.Is(err, ErrNoApplication) {
			t.Fatalf("expected ErrNoApplication, got %v", err)
		}
	})

	t.Run("NonPositiveDuration", func(t *testing.T) {
		bad := def
		bad.DurationSeconds = 0
		if _, err := NewSession(uuid.New(), bad, &stubScorer{}, NopSink); !errors.Is(err, ErrInvalidDefinition) {
			t.Fatalf("expected ErrInvalidDefinition, got %v", err)
		}
	})

	t.Run("EmptyQuestionListIsValid", func(t *testing.T) {
		empty := testDefinition(0, 60)
		s, err := NewSession(uuid.New(), empty, &stubScorer{}, NopSink, withoutClock())
		if err != nil {
			t.Fatalf("NewSession: %v", err)
		}
		if err := s.Start(); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if err := s.Submit(context.Background(), TriggerManual); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if got := s.Status(); got != StatusCompleted {
			t.Errorf("status = %s, want %s", got, StatusCompleted)
		}
	})
}

func TestStart(t *testing.T) {
	s := newTestSession(t, testDefinition(5, 900), &stubScorer{}, NopSink)

	if got := s.Status(); got != StatusNotStarted {
		t.Fatalf("status before Start = %s, want %s", got, StatusNotStarted)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap := s.Snapshot()
	if snap.Status != StatusInProgress {
		t.Errorf("status = %s, want %s", snap.Status, StatusInProgress)
	}
	if snap.RemainingSeconds != 900 {
		t.Errorf("remaining = %d, want 900", snap.RemainingSeconds)
	}
	if snap.CurrentIndex != 0 {
		t.Errorf("current index = %d, want 0", snap.CurrentIndex)
	}

	if err := s.Start(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Start = %v, want ErrInvalidState", err)
	}
}

func TestRecordAnswer(t *testing.T) {
	s := newTestSession(t, testDefinition(3, 60), &stubScorer{}, NopSink)

	t.Run("BeforeStartIsSilentNoop", func(t *testing.T) {
		if err := s.RecordAnswer(0, "early"); err != nil {
			t.Fatalf("RecordAnswer before start: %v", err)
		}
		if len(s.Snapshot().Answers) != 0 {
			t.Error("ledger mutated before start")
		}
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	t.Run("OverwritesLedgerEntry", func(t *testing.T) {
		if err := s.RecordAnswer(1, "first draft"); err != nil {
			t.Fatalf("RecordAnswer: %v", err)
		}
		if err := s.RecordAnswer(1, "final"); err != nil {
			t.Fatalf("RecordAnswer overwrite: %v", err)
		}
		if got := s.Snapshot().Answers[1]; got != "final" {
			t.Errorf("answers[1] = %q, want %q", got, "final")
		}
	})

	t.Run("IndexOutOfRange", func(t *testing.T) {
		if err := s.RecordAnswer(3, "x"); !errors.Is(err, ErrQuestionIndex) {
			t.Errorf("index 3 = %v, want ErrQuestionIndex", err)
		}
		if err := s.RecordAnswer(-1, "x"); !errors.Is(err, ErrQuestionIndex) {
			t.Errorf("index -1 = %v, want ErrQuestionIndex", err)
		}
	})
}

func TestNavigate(t *testing.T) {
	s := newTestSession(t, testDefinition(5, 60), &stubScorer{}, NopSink)

	if got := s.Navigate(2); got != 0 {
		t.Errorf("Navigate before start moved index to %d", got)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	steps := []struct {
		delta int
		want  int
	}{
		{1, 1},
		{3, 4},
		{5, 4},   // clamped high
		{-10, 0}, // clamped low
		{2, 2},
	}
	for _, st := range steps {
		if got := s.Navigate(st.delta); got != st.want {
			t.Errorf("Navigate(%d) = %d, want %d", st.delta, got, st.want)
		}
	}
}

func TestSubmitManual(t *testing.T) {
	scorer := &stubScorer{}
	sink := &recordSink{}
	def := testDefinition(5, 900)
	s := newTestSession(t, def, scorer, sink)

	if err := s.Submit(context.Background(), TriggerManual); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Submit before start = %v, want ErrInvalidState", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := s.RecordAnswer(i, "answer"); err != nil {
			t.Fatalf("RecordAnswer(%d): %v", i, err)
		}
	}

	if err := s.Submit(context.Background(), TriggerManual); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if got := s.Status(); got != StatusCompleted {
		t.Fatalf("status = %s, want %s", got, StatusCompleted)
	}

	sub := scorer.lastSubmission()
	if sub == nil {
		t.Fatal("scorer never invoked")
	}
	if len(sub.Answers) != 5 {
		t.Fatalf("submission has %d answers, want 5", len(sub.Answers))
	}
	for i, a := range sub.Answers {
		if a.QuestionID != def.Questions[i].ID {
			t.Errorf("answer %d question id mismatch", i)
		}
		if a.Text != "answer" {
			t.Errorf("answer %d text = %q, want verbatim candidate text", i, a.Text)
		}
	}
	if sink.count(EventCompleted) != 1 {
		t.Errorf("completed events = %d, want 1", sink.count(EventCompleted))
	}

	if err := s.Submit(context.Background(), TriggerManual); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Submit after completion = %v, want ErrInvalidState", err)
	}
}

func TestSubmitScorerFailureIsRetryable(t *testing.T) {
	scorer := &stubScorer{failures: 1}
	sink := &recordSink{}
	s := newTestSession(t, testDefinition(2, 60), scorer, sink)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := s.Submit(context.Background(), TriggerManual); err == nil {
		t.Fatal("expected scorer failure to surface")
	}
	if got := s.Status(); got != StatusInProgress {
		t.Fatalf("status after failed submit = %s, want %s", got, StatusInProgress)
	}
	if sink.count(EventSubmitFailed) != 1 {
		t.Errorf("submit_failed events = %d, want 1", sink.count(EventSubmitFailed))
	}

	// Candidate retries; this time the collaborator is reachable.
	if err := s.Submit(context.Background(), TriggerManual); err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if got := s.Status(); got != StatusCompleted {
		t.Errorf("status = %s, want %s", got, StatusCompleted)
	}
	if scorer.callCount() != 2 {
		t.Errorf("scorer calls = %d, want 2", scorer.callCount())
	}
}

func TestSubmitRace(t *testing.T) {
	gate := make(chan struct{})
	scorer := &stubScorer{block: gate}
	s := newTestSession(t, testDefinition(3, 60), scorer, NopSink)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- s.Submit(context.Background(), TriggerManual)
	}()

	// Wait until the first submission holds the in-flight flag.
	deadline := time.After(2 * time.Second)
	for scorer.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first submission never reached the scorer")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// Simultaneous timer expiry must be rejected, not double-assembled.
	if err := s.Submit(context.Background(), TriggerTimerExpired); !errors.Is(err, ErrAlreadySubmitting) {
		t.Fatalf("concurrent Submit = %v, want ErrAlreadySubmitting", err)
	}

	close(gate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	if scorer.callCount() != 1 {
		t.Errorf("scorer calls = %d, want exactly 1", scorer.callCount())
	}
	if got := s.Status(); got != StatusCompleted {
		t.Errorf("status = %s, want %s", got, StatusCompleted)
	}
}

func TestViolationPolicy(t *testing.T) {
	sink := &recordSink{}
	s := newTestSession(t, testDefinition(3, 60), &stubScorer{}, sink)

	// Violations before start are ignored entirely.
	s.ReportViolation()
	if got := s.Snapshot().ViolationCount; got != 0 {
		t.Fatalf("violation count before start = %d, want 0", got)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.RecordAnswer(0, "kept"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	// First strike: warning, still in progress.
	s.ReportViolation()
	snap := s.Snapshot()
	if snap.ViolationCount != 1 {
		t.Fatalf("violation count = %d, want 1", snap.ViolationCount)
	}
	if snap.Status != StatusInProgress {
		t.Fatalf("status after first violation = %s, want %s", snap.Status, StatusInProgress)
	}
	if sink.count(EventWarning) != 1 {
		t.Errorf("warning events = %d, want 1", sink.count(EventWarning))
	}

	// Second strike: disqualified.
	s.ReportViolation()
	snap = s.Snapshot()
	if snap.Status != StatusDisqualified {
		t.Fatalf("status after second violation = %s, want %s", snap.Status, StatusDisqualified)
	}
	if snap.ViolationCount != 2 {
		t.Fatalf("violation count = %d, want 2", snap.ViolationCount)
	}
	if sink.count(EventDisqualified) != 1 {
		t.Errorf("disqualified events = %d, want 1", sink.count(EventDisqualified))
	}

	// Everything is frozen now.
	s.ReportViolation()
	if err := s.RecordAnswer(0, "tampered"); err != nil {
		t.Fatalf("RecordAnswer after disqualification: %v", err)
	}
	snap = s.Snapshot()
	if snap.ViolationCount != 2 {
		t.Errorf("violation count changed after terminal state: %d", snap.ViolationCount)
	}
	if snap.Answers[0] != "kept" {
		t.Errorf("answers mutated after terminal state: %q", snap.Answers[0])
	}
	if err := s.Submit(context.Background(), TriggerManual); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Submit after disqualification = %v, want ErrInvalidState", err)
	}
}

func TestCustomViolationLimit(t *testing.T) {
	sink := &recordSink{}
	s := newTestSession(t, testDefinition(1, 60), &stubScorer{}, sink, WithViolationLimit(3))

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.ReportViolation()
	s.ReportViolation()
	if got := s.Status(); got != StatusInProgress {
		t.Fatalf("status below custom limit = %s, want %s", got, StatusInProgress)
	}
	if sink.count(EventWarning) != 2 {
		t.Errorf("warning events = %d, want 2", sink.count(EventWarning))
	}

	s.ReportViolation()
	if got := s.Status(); got != StatusDisqualified {
		t.Errorf("status at custom limit = %s, want %s", got, StatusDisqualified)
	}
}

func TestClipboardIsNonPunitive(t *testing.T) {
	sink := &recordSink{}
	s := newTestSession(t, testDefinition(2, 60), &stubScorer{}, sink)

	// Ignored outside InProgress.
	s.ReportClipboard(ClipboardCopy)
	if sink.count(EventClipboardBlocked) != 0 {
		t.Fatal("clipboard event published before start")
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.ReportClipboard(ClipboardCopy)
	s.ReportClipboard(ClipboardPaste)

	snap := s.Snapshot()
	if snap.ViolationCount != 0 {
		t.Errorf("clipboard events counted as violations: %d", snap.ViolationCount)
	}
	if snap.Status != StatusInProgress {
		t.Errorf("status = %s, want %s", snap.Status, StatusInProgress)
	}
	if sink.count(EventClipboardBlocked) != 2 {
		t.Errorf("clipboard events = %d, want 2", sink.count(EventClipboardBlocked))
	}
}

func TestCountdownAndAutoSubmit(t *testing.T) {
	scorer := &stubScorer{}
	sink := &recordSink{}
	def := testDefinition(5, 900)
	s := newTestSession(t, def, scorer, sink)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.RecordAnswer(2, "only this one"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	for i := 0; i < 899; i++ {
		s.tick()
	}
	snap := s.Snapshot()
	if snap.RemainingSeconds != 1 {
		t.Fatalf("remaining after 899 ticks = %d, want 1", snap.RemainingSeconds)
	}
	if snap.Status != StatusInProgress {
		t.Fatalf("status = %s, want %s", snap.Status, StatusInProgress)
	}

	// Tick 900 drains the countdown and fires the automatic submission.
	s.tick()

	if got := s.Status(); got != StatusCompleted {
		t.Fatalf("status after expiry = %s, want %s", got, StatusCompleted)
	}
	sub := scorer.lastSubmission()
	if sub == nil {
		t.Fatal("expiry never reached the scorer")
	}
	if sub.Trigger != TriggerTimerExpired {
		t.Errorf("trigger = %s, want %s", sub.Trigger, TriggerTimerExpired)
	}
	if len(sub.Answers) != 5 {
		t.Fatalf("submission has %d answers, want 5", len(sub.Answers))
	}
	for i, a := range sub.Answers {
		want := SentinelAnswer
		if i == 2 {
			want = "only this one"
		}
		if a.Text != want {
			t.Errorf("answer %d = %q, want %q", i, a.Text, want)
		}
	}

	// Late ticks after the terminal transition are no-ops.
	before := s.Snapshot().RemainingSeconds
	s.tick()
	if after := s.Snapshot().RemainingSeconds; after != before {
		t.Errorf("late tick changed remaining seconds: %d -> %d", before, after)
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	// A permanently failing scorer keeps the session in progress at zero.
	scorer := &stubScorer{failures: 1 << 30}
	s := newTestSession(t, testDefinition(1, 2), scorer, NopSink)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 10; i++ {
		s.tick()
	}
	snap := s.Snapshot()
	if snap.RemainingSeconds != 0 {
		t.Errorf("remaining = %d, want 0", snap.RemainingSeconds)
	}
	if snap.Status != StatusInProgress {
		t.Errorf("status = %s, want %s (retryable)", snap.Status, StatusInProgress)
	}
}

func TestExpiredSubmitRetriesOnNextTick(t *testing.T) {
	scorer := &stubScorer{failures: 1}
	sink := &recordSink{}
	s := newTestSession(t, testDefinition(2, 1), scorer, sink)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// First tick drains the countdown; the expired submission fails.
	s.tick()
	if got := s.Status(); got != StatusInProgress {
		t.Fatalf("status after failed expiry submit = %s, want %s", got, StatusInProgress)
	}
	if sink.count(EventSubmitFailed) != 1 {
		t.Fatalf("submit_failed events = %d, want 1", sink.count(EventSubmitFailed))
	}

	// Next tick retries and succeeds.
	s.tick()
	if got := s.Status(); got != StatusCompleted {
		t.Fatalf("status after retry tick = %s, want %s", got, StatusCompleted)
	}
	if scorer.callCount() != 2 {
		t.Errorf("scorer calls = %d, want 2", scorer.callCount())
	}
}

func TestRealClockDrivesExpiry(t *testing.T) {
	scorer := &stubScorer{}
	completed := make(chan struct{})
	var once sync.Once
	sink := SinkFunc(func(e Event) {
		if e.Kind == EventCompleted {
			once.Do(func() { close(completed) })
		}
	})

	s, err := NewSession(uuid.New(), testDefinition(1, 3), scorer, sink, WithTickInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("clock never drove the session to completion")
	}

	if got := s.Status(); got != StatusCompleted {
		t.Errorf("status = %s, want %s", got, StatusCompleted)
	}
}

func TestCloseReleasesSignals(t *testing.T) {
	sink := &recordSink{}
	s := newTestSession(t, testDefinition(2, 60), &stubScorer{}, sink)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.Close()

	// A dangling tick or violation after teardown must not reach the state.
	before := s.Snapshot()
	s.tick()
	s.ReportViolation()
	after := s.Snapshot()

	if after.RemainingSeconds != before.RemainingSeconds {
		t.Errorf("tick after Close changed remaining: %d -> %d", before.RemainingSeconds, after.RemainingSeconds)
	}
	if after.ViolationCount != 0 {
		t.Errorf("violation after Close counted: %d", after.ViolationCount)
	}
	if after.Status != StatusInProgress {
		t.Errorf("Close changed status to %s", after.Status)
	}
}

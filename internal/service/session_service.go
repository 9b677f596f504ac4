package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/talentgate/talentgate-backend/internal/assessment"
	"github.com/talentgate/talentgate-backend/internal/config"
	"github.com/talentgate/talentgate-backend/internal/model"
)

// assessmentStore is the subset of AssessmentRepository used by the
// session service.
type assessmentStore interface {
	GetSubmissionByApplication(ctx context.Context, applicationID uuid.UUID) (*model.Submission, error)
	GetDisqualification(ctx context.Context, applicationID uuid.UUID) (*model.Disqualification, error)
	CreateDisqualification(ctx context.Context, d *model.Disqualification) error
}

// applicationStatusStore is the subset of ApplicationRepository used by the
// session service.
type applicationStatusStore interface {
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to model.ApplicationStatus) (bool, error)
}

// Session lifecycle errors.
var (
	ErrNoActiveSession  = errors.New("no active assessment session for this application")
	ErrSessionElsewhere = errors.New("assessment session is active on another server instance")
	ErrAssessmentDone   = errors.New("assessment has already been completed or terminated")
)

// subscriberBuffer sizes the per-subscriber event channel. Session events
// are published while the session lock is held, so delivery must never
// block; a slow consumer loses events and resyncs from a snapshot.
const subscriberBuffer = 64

// SessionService owns the in-memory registry of live assessment sessions.
// Sessions are process-local; a Redis node key marks ownership so a second
// instance rejects duplicate starts instead of silently forking the session.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionEntry

	cfg             *config.Config
	jobService      *JobService
	scorer          assessment.Scorer
	assessmentRepo  assessmentStore
	applicationRepo applicationStatusStore
	rdb             *redis.Client
	log             zerolog.Logger
	nodeID          string
}

type sessionEntry struct {
	sess   *assessment.Session
	events chan assessment.Event

	subMu   sync.Mutex
	subs    map[int]chan assessment.Event
	nextSub int
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	cfg *config.Config,
	jobService *JobService,
	scorer assessment.Scorer,
	assessmentRepo assessmentStore,
	applicationRepo applicationStatusStore,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	hostname, _ := os.Hostname()
	return &SessionService{
		sessions:        make(map[uuid.UUID]*sessionEntry),
		cfg:             cfg,
		jobService:      jobService,
		scorer:          scorer,
		assessmentRepo:  assessmentRepo,
		applicationRepo: applicationRepo,
		rdb:             rdb,
		log:             log.With().Str("component", "session_service").Logger(),
		nodeID:          fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8]),
	}
}

// Begin starts a session for an invited application, or returns the live
// session on reconnect. The application must already be verified as owned
// by the calling candidate.
func (s *SessionService) Begin(ctx context.Context, app *model.Application) (*assessment.Session, error) {
	switch app.Status {
	case model.ApplicationStatusInvited:
		// eligible
	case model.ApplicationStatusAssessed, model.ApplicationStatusDisqualified:
		return nil, ErrAssessmentDone
	default:
		return nil, ErrNotInvited
	}

	s.mu.RLock()
	entry, ok := s.sessions[app.ID]
	s.mu.RUnlock()
	if ok {
		return entry.sess, nil
	}

	if err := s.ensureNoTerminalRecord(ctx, app.ID); err != nil {
		return nil, err
	}

	if err := s.claimNode(ctx, app.ID); err != nil {
		return nil, err
	}

	payload, err := s.jobService.GetAssessmentPayload(ctx, app.JobID)
	if err != nil {
		return nil, fmt.Errorf("load assessment payload: %w", err)
	}

	questions := make([]assessment.Question, len(payload.Questions))
	for i, q := range payload.Questions {
		questions[i] = assessment.Question{ID: q.ID, Prompt: q.Prompt}
	}
	def := assessment.Definition{
		JobID:           payload.JobID,
		Questions:       questions,
		DurationSeconds: payload.DurationSeconds,
	}

	entry = &sessionEntry{
		events: make(chan assessment.Event, 256),
		subs:   make(map[int]chan assessment.Event),
	}

	sink := assessment.SinkFunc(func(e assessment.Event) {
		// Called with the session lock held. Never block here.
		select {
		case entry.events <- e:
		default:
			s.log.Warn().
				Str("application_id", e.ApplicationID.String()).
				Str("kind", string(e.Kind)).
				Msg("Session event buffer full, dropping event")
		}
	})

	sess, err := assessment.NewSession(app.ID, def, s.scorer, sink,
		assessment.WithViolationLimit(s.cfg.ViolationLimit))
	if err != nil {
		return nil, fmt.Errorf("build session: %w", err)
	}
	entry.sess = sess

	s.mu.Lock()
	if existing, ok := s.sessions[app.ID]; ok {
		// Lost the race to a concurrent Begin on this instance.
		s.mu.Unlock()
		return existing.sess, nil
	}
	s.sessions[app.ID] = entry
	s.mu.Unlock()

	go s.dispatch(entry)

	if err := sess.Start(); err != nil {
		s.remove(app.ID)
		return nil, fmt.Errorf("start session: %w", err)
	}

	s.rdb.Set(ctx, config.CacheKey.AssessmentStartKey(app.ID.String()), time.Now().Unix(), 0)
	s.publishMonitor(monitorEvent{
		ApplicationID:    app.ID,
		JobID:            app.JobID,
		Kind:             "started",
		Status:           string(assessment.StatusInProgress),
		RemainingSeconds: def.DurationSeconds,
	})

	s.log.Info().
		Str("application_id", app.ID.String()).
		Str("job_id", app.JobID.String()).
		Int("questions", len(questions)).
		Int("duration_seconds", def.DurationSeconds).
		Msg("Assessment session started")
	return sess, nil
}

// ensureNoTerminalRecord refuses a start when a durable submission or
// disqualification already exists. The application status can lag behind
// the terminal record if the process died between the submission commit
// and the status update; heal it here so later checks short-circuit on
// status alone.
func (s *SessionService) ensureNoTerminalRecord(ctx context.Context, applicationID uuid.UUID) error {
	if _, err := s.assessmentRepo.GetSubmissionByApplication(ctx, applicationID); err == nil {
		s.healStatus(ctx, applicationID, model.ApplicationStatusAssessed)
		return ErrAssessmentDone
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check existing submission: %w", err)
	}

	if _, err := s.assessmentRepo.GetDisqualification(ctx, applicationID); err == nil {
		s.healStatus(ctx, applicationID, model.ApplicationStatusDisqualified)
		return ErrAssessmentDone
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check disqualification: %w", err)
	}
	return nil
}

func (s *SessionService) healStatus(ctx context.Context, applicationID uuid.UUID, to model.ApplicationStatus) {
	if _, err := s.applicationRepo.UpdateStatusIf(ctx, applicationID,
		model.ApplicationStatusInvited, to); err != nil {
		s.log.Error().Err(err).
			Str("application_id", applicationID.String()).
			Str("status", string(to)).
			Msg("Failed to heal lagging application status")
	}
}

// claimNode marks this instance as the owner of the application's session.
// A stale claim from a crashed instance of this node is taken over.
func (s *SessionService) claimNode(ctx context.Context, applicationID uuid.UUID) error {
	key := config.CacheKey.AssessmentNodeKey(applicationID.String())
	set, err := s.rdb.SetNX(ctx, key, s.nodeID, 24*time.Hour).Result()
	if err != nil {
		return fmt.Errorf("claim session node: %w", err)
	}
	if set {
		return nil
	}

	owner, err := s.rdb.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read session node: %w", err)
	}
	if owner != "" && owner != s.nodeID {
		return ErrSessionElsewhere
	}
	// Our own stale claim (e.g. process restart). Refresh it.
	return s.rdb.Set(ctx, key, s.nodeID, 24*time.Hour).Err()
}

// Get returns the live session for an application.
func (s *SessionService) Get(applicationID uuid.UUID) (*assessment.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[applicationID]
	if !ok {
		return nil, ErrNoActiveSession
	}
	return entry.sess, nil
}

// Subscribe registers a consumer for a live session's events. The returned
// cancel function must be called when the consumer disconnects.
func (s *SessionService) Subscribe(applicationID uuid.UUID) (<-chan assessment.Event, func(), error) {
	s.mu.RLock()
	entry, ok := s.sessions[applicationID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNoActiveSession
	}

	ch := make(chan assessment.Event, subscriberBuffer)

	entry.subMu.Lock()
	id := entry.nextSub
	entry.nextSub++
	entry.subs[id] = ch
	entry.subMu.Unlock()

	cancel := func() {
		entry.subMu.Lock()
		if _, ok := entry.subs[id]; ok {
			delete(entry.subs, id)
			close(ch)
		}
		entry.subMu.Unlock()
	}
	return ch, cancel, nil
}

// ReportViolation forwards a context-loss signal to the session and queues
// the event for audit persistence.
func (s *SessionService) ReportViolation(ctx context.Context, applicationID uuid.UUID) error {
	sess, err := s.Get(applicationID)
	if err != nil {
		return err
	}
	sess.ReportViolation()
	s.enqueueIntegrityEvent(ctx, applicationID, model.IntegrityEventViolation)
	return nil
}

// ReportClipboard forwards a blocked clipboard gesture to the session and
// queues the event for audit persistence. Never punitive.
func (s *SessionService) ReportClipboard(ctx context.Context, applicationID uuid.UUID, kind assessment.ClipboardKind) error {
	sess, err := s.Get(applicationID)
	if err != nil {
		return err
	}
	sess.ReportClipboard(kind)

	eventType := model.IntegrityEventClipboardCopy
	if kind == assessment.ClipboardPaste {
		eventType = model.IntegrityEventClipboardPaste
	}
	s.enqueueIntegrityEvent(ctx, applicationID, eventType)
	return nil
}

// Shutdown closes every live session. In-progress sessions survive in the
// sense that nothing terminal is recorded; candidates reconnect after a
// restart and resume from their invitation.
func (s *SessionService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	entries := make(map[uuid.UUID]*sessionEntry, len(s.sessions))
	for id, e := range s.sessions {
		entries[id] = e
	}
	s.sessions = make(map[uuid.UUID]*sessionEntry)
	s.mu.Unlock()

	for id, entry := range entries {
		entry.sess.Close()
		s.rdb.Del(ctx, config.CacheKey.AssessmentNodeKey(id.String()))
	}
	s.log.Info().Int("count", len(entries)).Msg("Live sessions closed for shutdown")
}

// dispatch drains a session's event buffer: fan out to subscribers, mirror
// to the monitor channel, and run terminal side effects.
func (s *SessionService) dispatch(entry *sessionEntry) {
	for e := range entry.events {
		entry.subMu.Lock()
		for _, ch := range entry.subs {
			select {
			case ch <- e:
			default:
				// Slow subscriber; it resyncs from a snapshot.
			}
		}
		entry.subMu.Unlock()

		s.forwardMonitor(entry, e)

		switch e.Kind {
		case assessment.EventDisqualified:
			s.persistDisqualification(entry.sess)
			s.teardown(entry)
			return
		case assessment.EventCompleted:
			s.teardown(entry)
			return
		}
	}
}

func (s *SessionService) forwardMonitor(entry *sessionEntry, e assessment.Event) {
	// Ticks are too chatty for the monitor channel; the monitor refreshes
	// snapshots periodically instead.
	if e.Kind == assessment.EventTick {
		return
	}

	snap := entry.sess.Snapshot()
	s.publishMonitor(monitorEvent{
		ApplicationID:    snap.ApplicationID,
		JobID:            snap.JobID,
		Kind:             string(e.Kind),
		Status:           string(snap.Status),
		RemainingSeconds: snap.RemainingSeconds,
		ViolationCount:   snap.ViolationCount,
	})
}

func (s *SessionService) persistDisqualification(sess *assessment.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap := sess.Snapshot()
	d := &model.Disqualification{
		ApplicationID:  snap.ApplicationID,
		JobID:          snap.JobID,
		ViolationCount: snap.ViolationCount,
	}
	if err := s.assessmentRepo.CreateDisqualification(ctx, d); err != nil {
		s.log.Error().Err(err).
			Str("application_id", snap.ApplicationID.String()).
			Msg("Failed to persist disqualification")
	}

	if _, err := s.applicationRepo.UpdateStatusIf(ctx, snap.ApplicationID,
		model.ApplicationStatusInvited, model.ApplicationStatusDisqualified); err != nil {
		s.log.Error().Err(err).
			Str("application_id", snap.ApplicationID.String()).
			Msg("Failed to update application status after disqualification")
	}
}

func (s *SessionService) teardown(entry *sessionEntry) {
	appID := entry.sess.ApplicationID()
	s.remove(appID)
	entry.sess.Close()

	entry.subMu.Lock()
	for id, ch := range entry.subs {
		delete(entry.subs, id)
		close(ch)
	}
	entry.subMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.rdb.Del(ctx,
		config.CacheKey.AssessmentStartKey(appID.String()),
		config.CacheKey.AssessmentNodeKey(appID.String()))

	s.log.Info().
		Str("application_id", appID.String()).
		Str("status", string(entry.sess.Status())).
		Msg("Assessment session torn down")
}

func (s *SessionService) remove(applicationID uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, applicationID)
	s.mu.Unlock()
}

// integrityPayload is the queue payload consumed by the integrity worker.
type integrityPayload struct {
	ApplicationID string `json:"application_id"`
	EventType     string `json:"event_type"`
	Timestamp     int64  `json:"timestamp"`
}

func (s *SessionService) enqueueIntegrityEvent(ctx context.Context, applicationID uuid.UUID, eventType model.IntegrityEventType) {
	data, _ := json.Marshal(integrityPayload{
		ApplicationID: applicationID.String(),
		EventType:     string(eventType),
		Timestamp:     time.Now().Unix(),
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistIntegrityEventsQueue, data).Err(); err != nil {
		s.log.Error().Err(err).
			Str("application_id", applicationID.String()).
			Msg("Failed to enqueue integrity event")
	}
}

// monitorEvent is published to the Redis monitor channel for the HR console.
type monitorEvent struct {
	ApplicationID    uuid.UUID `json:"application_id"`
	JobID            uuid.UUID `json:"job_id"`
	Kind             string    `json:"kind"`
	Status           string    `json:"status"`
	RemainingSeconds int       `json:"remaining_seconds"`
	ViolationCount   int       `json:"violation_count"`
}

func (s *SessionService) publishMonitor(e monitorEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, _ := json.Marshal(e)
	if err := s.rdb.Publish(ctx, config.CacheKey.AssessmentMonitorChannel(), data).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to publish monitor event")
	}
}

// LiveSnapshots returns snapshots of this instance's live sessions,
// optionally filtered by job. Used by the monitor refresh loop.
func (s *SessionService) LiveSnapshots(jobID *uuid.UUID) []assessment.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := make([]assessment.Snapshot, 0, len(s.sessions))
	for _, entry := range s.sessions {
		snap := entry.sess.Snapshot()
		if jobID != nil && snap.JobID != *jobID {
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps
}

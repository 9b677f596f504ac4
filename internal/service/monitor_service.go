package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/talentgate/talentgate-backend/internal/assessment"
	"github.com/talentgate/talentgate-backend/internal/repository"
)

// MonitorService assembles the live assessment overview for the HR console:
// in-memory session snapshots merged with persisted integrity counts.
type MonitorService struct {
	monitorRepo    *repository.MonitorRepository
	sessionService *SessionService
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(monitorRepo *repository.MonitorRepository, sessionService *SessionService) *MonitorService {
	return &MonitorService{monitorRepo: monitorRepo, sessionService: sessionService}
}

// JobProgressSnapshot is the periodic monitor refresh payload for one job.
type JobProgressSnapshot struct {
	LiveSessions    []assessment.Snapshot `json:"live_sessions"`
	IntegrityCounts map[uuid.UUID]int64   `json:"integrity_counts"`
	SubmittedIDs    []uuid.UUID           `json:"submitted_application_ids"`
}

// GetJobProgress merges live session state with persisted counts. The two
// DB fetches run concurrently; integrity counts are best-effort.
func (s *MonitorService) GetJobProgress(ctx context.Context, jobID uuid.UUID) (*JobProgressSnapshot, error) {
	snapshot := &JobProgressSnapshot{
		LiveSessions:    s.sessionService.LiveSnapshots(&jobID),
		IntegrityCounts: make(map[uuid.UUID]int64),
		SubmittedIDs:    []uuid.UUID{},
	}

	var (
		integrityCounts map[uuid.UUID]int64
		submittedIDs    []uuid.UUID
		integrityErr    error
		submittedErr    error
		wg              sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		integrityCounts, integrityErr = s.monitorRepo.GetIntegrityCounts(ctx, jobID)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		submittedIDs, submittedErr = s.monitorRepo.GetSubmittedApplicationIDs(ctx, jobID)
	}()

	wg.Wait()

	if submittedErr != nil {
		return nil, submittedErr
	}
	if submittedIDs != nil {
		snapshot.SubmittedIDs = submittedIDs
	}

	if integrityErr == nil && integrityCounts != nil {
		snapshot.IntegrityCounts = integrityCounts
	}

	return snapshot, nil
}

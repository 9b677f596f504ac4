package handler

import (
	"testing"

	"github.com/google/uuid"
	"github.com/talentgate/talentgate-backend/internal/assessment"
	"github.com/talentgate/talentgate-backend/internal/service"
)

func TestSnapshotEnvelope(t *testing.T) {
	jobID := uuid.New()

	t.Run("live sessions reported as activity", func(t *testing.T) {
		appID := uuid.New()
		progress := &service.JobProgressSnapshot{
			LiveSessions: []assessment.Snapshot{{
				ApplicationID:    appID,
				JobID:            jobID,
				Status:           assessment.StatusInProgress,
				RemainingSeconds: 900,
				ViolationCount:   1,
				Answers:          map[int]string{0: "an answer", 1: ""},
			}},
			SubmittedIDs: []uuid.UUID{uuid.New()},
		}

		envelope, live := snapshotEnvelope(jobID, "Backend Engineer", 2, "snapshot", progress)
		if !live {
			t.Fatal("snapshot with a live session must report activity")
		}

		data := envelope["data"].(map[string]interface{})
		stats := data["stats"].(map[string]interface{})
		if stats["total_live"] != 1 || stats["total_submitted"] != 1 {
			t.Fatalf("stats = %v, want 1 live / 1 submitted", stats)
		}

		sessions := data["live_sessions"].([]map[string]interface{})
		if len(sessions) != 1 {
			t.Fatalf("live_sessions length = %d, want 1", len(sessions))
		}
		// Empty answer slots are sentinel placeholders, not progress.
		if sessions[0]["answered_count"] != 1 {
			t.Fatalf("answered_count = %v, want 1", sessions[0]["answered_count"])
		}
	})

	t.Run("idle job reports no activity", func(t *testing.T) {
		progress := &service.JobProgressSnapshot{}

		envelope, live := snapshotEnvelope(jobID, "Backend Engineer", 2, "refresh", progress)
		if live {
			t.Fatal("snapshot without live sessions must not report activity")
		}
		if envelope["type"] != "refresh" {
			t.Fatalf("type = %v, want refresh", envelope["type"])
		}
	})
}

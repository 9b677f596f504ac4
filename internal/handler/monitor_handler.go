package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/talentgate/talentgate-backend/internal/config"
	"github.com/talentgate/talentgate-backend/internal/middleware"
	"github.com/talentgate/talentgate-backend/internal/response"
	"github.com/talentgate/talentgate-backend/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

type MonitorHandler struct {
	rdb            *redis.Client
	jobService     *service.JobService
	monitorService *service.MonitorService
	log            zerolog.Logger
}

func NewMonitorHandler(
	rdb *redis.Client,
	jobService *service.JobService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		jobService:     jobService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorJobSSE godoc
// GET /api/v1/admin/jobs/:job_id/monitor
func (h *MonitorHandler) MonitorJobSSE(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}

	job, err := h.jobService.GetByID(c.Request.Context(), jobID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	// Seed the activity flag from the first snapshot so an admin attaching
	// mid-exam gets refreshes before the next lifecycle event arrives.
	hasActivity := h.sendSnapshot(c, reqCtx, jobID, job.Title, job.QuestionCount, "snapshot")

	// Session lifecycle events arrive on a single shared channel; filter
	// out other jobs before forwarding.
	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.AssessmentMonitorChannel())
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	h.log.Info().Str("job_id", jobID.String()).Msg("Admin attached to live monitor SSE")

	// Pre-allocate a reusable ping payload (never changes)
	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("job_id", jobID.String()).Msg("Admin disconnected from live monitor SSE")
			return

		case msg := <-ch:
			var event struct {
				JobID uuid.UUID `json:"job_id"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil || event.JobID != jobID {
				continue
			}

			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

			hasActivity = true

		case <-refreshTicker.C:
			if !hasActivity {
				continue // no point querying if nobody has joined
			}
			hasActivity = h.sendSnapshot(c, reqCtx, jobID, job.Title, job.QuestionCount, "refresh")

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSnapshot gathers live and persisted progress and writes one SSE event.
// Reports whether the job still has live sessions; a failed fetch reports
// true so the refresh loop keeps trying.
func (h *MonitorHandler) sendSnapshot(
	c *gin.Context,
	parentCtx context.Context,
	jobID uuid.UUID,
	jobTitle string,
	totalQuestions int,
	eventType string,
) bool {
	// Scoped timeout so a slow query doesn't stall the SSE loop
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	progress, err := h.monitorService.GetJobProgress(ctx, jobID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch job progress")
		return true
	}

	envelope, live := snapshotEnvelope(jobID, jobTitle, totalQuestions, eventType, progress)
	c.SSEvent("message", envelope)
	c.Writer.Flush()
	return live
}

// snapshotEnvelope shapes one job progress snapshot into the SSE payload
// and reports whether any session is still live.
func snapshotEnvelope(
	jobID uuid.UUID,
	jobTitle string,
	totalQuestions int,
	eventType string,
	progress *service.JobProgressSnapshot,
) (map[string]interface{}, bool) {
	sessions := make([]map[string]interface{}, 0, len(progress.LiveSessions))
	for _, snap := range progress.LiveSessions {
		answered := 0
		for _, text := range snap.Answers {
			if text != "" {
				answered++
			}
		}

		sessions = append(sessions, map[string]interface{}{
			"application_id":    snap.ApplicationID,
			"status":            snap.Status,
			"remaining_seconds": snap.RemainingSeconds,
			"answered_count":    answered,
			"violation_count":   snap.ViolationCount,
			"total_questions":   totalQuestions,
		})
	}

	envelope := map[string]interface{}{
		"type": eventType,
		"data": map[string]interface{}{
			"job": map[string]interface{}{
				"id":              jobID.String(),
				"title":           jobTitle,
				"total_questions": totalQuestions,
			},
			"stats": map[string]interface{}{
				"total_live":      len(progress.LiveSessions),
				"total_submitted": len(progress.SubmittedIDs),
			},
			"live_sessions":    sessions,
			"integrity_counts": progress.IntegrityCounts,
			"submitted_ids":    progress.SubmittedIDs,
		},
	}
	return envelope, len(progress.LiveSessions) > 0
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/talentgate/talentgate-backend/internal/assessment"
	"github.com/talentgate/talentgate-backend/internal/middleware"
	"github.com/talentgate/talentgate-backend/internal/service"
	ws "github.com/talentgate/talentgate-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// AssessmentWSHandler drives a live assessment session over WebSocket. The
// server is the sole authority on timing, state, and termination; the client
// only reports intent and signals.
type AssessmentWSHandler struct {
	applicationService *service.ApplicationService
	sessionService     *service.SessionService
	log                zerolog.Logger
	upgrader           websocket.Upgrader
}

// NewAssessmentWSHandler creates a new AssessmentWSHandler.
func NewAssessmentWSHandler(
	applicationService *service.ApplicationService,
	sessionService *service.SessionService,
	log zerolog.Logger,
	allowedOrigins []string,
) *AssessmentWSHandler {
	return &AssessmentWSHandler{
		applicationService: applicationService,
		sessionService:     sessionService,
		log:                log.With().Str("component", "assessment_ws_handler").Logger(),
		upgrader:           buildUpgrader(allowedOrigins),
	}
}

// Stream godoc
// WS /ws/v1/candidate/applications/:application_id/assessment
// Starts (or resumes) the assessment session and streams it.
func (h *AssessmentWSHandler) Stream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	applicationID, err := uuid.Parse(c.Param("application_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid application ID"})
		return
	}

	app, err := h.applicationService.GetOwned(c.Request.Context(), applicationID, claims.UserID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "application not accessible"})
		return
	}

	sess, err := h.sessionService.Begin(c.Request.Context(), app)
	if err != nil {
		status, msg := beginFailure(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(rawConn)
	defer conn.Close()

	wsLog := h.log.With().
		Int("candidate_id", claims.UserID).
		Str("application_id", applicationID.String()).
		Logger()
	wsLog.Info().Msg("Candidate connected")

	// Subscribe before sending the initial state so no event falls between.
	events, cancel, err := h.sessionService.Subscribe(applicationID)
	if err != nil {
		// The session reached a terminal state between Begin and here.
		conn.WriteError("assessment already finished")
		return
	}
	defer cancel()

	if err := conn.WriteTyped(stateResponse(sess)); err != nil {
		wsLog.Warn().Err(err).Msg("Failed to send initial state")
		return
	}

	// Writer side: session events → frames. Closes the connection on a
	// terminal event so the read loop below unblocks.
	go h.forwardEvents(conn, events, sess.Snapshot().ViolationLimit, wsLog)

	h.readLoop(c, conn, sess, applicationID, wsLog)
}

func (h *AssessmentWSHandler) readLoop(c *gin.Context, conn *ws.Conn, sess *assessment.Session, applicationID uuid.UUID, wsLog zerolog.Logger) {
	for {
		var raw json.RawMessage
		if err := conn.ReadJSON(&raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			conn.WriteError("malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAnswer:
			var msg ws.AnswerRequest
			if err := json.Unmarshal(raw, &msg); err != nil {
				conn.WriteError("malformed answer")
				continue
			}
			if err := sess.RecordAnswer(msg.QuestionIndex, msg.Text); err != nil {
				conn.WriteError("question index out of range")
			}

		case ws.ActionNavigate:
			var msg ws.NavigateRequest
			if err := json.Unmarshal(raw, &msg); err != nil {
				conn.WriteError("malformed navigate")
				continue
			}
			sess.Navigate(msg.Delta)

		case ws.ActionFocusLost:
			if err := h.sessionService.ReportViolation(c.Request.Context(), applicationID); err != nil {
				wsLog.Debug().Err(err).Msg("Violation on finished session, ignored")
			}

		case ws.ActionClipboard:
			var msg ws.ClipboardRequest
			if err := json.Unmarshal(raw, &msg); err != nil {
				conn.WriteError("malformed clipboard report")
				continue
			}
			kind := assessment.ClipboardCopy
			if strings.EqualFold(msg.Kind, "paste") {
				kind = assessment.ClipboardPaste
			}
			if err := h.sessionService.ReportClipboard(c.Request.Context(), applicationID, kind); err != nil {
				wsLog.Debug().Err(err).Msg("Clipboard report on finished session, ignored")
			}

		case ws.ActionSubmit:
			err := sess.Submit(c.Request.Context(), assessment.TriggerManual)
			switch {
			case err == nil:
				// Completed event arrives through the event stream.
			case errors.Is(err, assessment.ErrAlreadySubmitting):
				conn.WriteError("a submission is already being processed")
			case errors.Is(err, assessment.ErrInvalidState):
				conn.WriteError("assessment already finished")
			default:
				// Scorer failure; the submit_failed event already went out.
				wsLog.Warn().Err(err).Msg("Submission failed")
			}

		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})

		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(envelope.Action))
		}
	}
}

// forwardEvents translates session events into client frames.
func (h *AssessmentWSHandler) forwardEvents(conn *ws.Conn, events <-chan assessment.Event, violationLimit int, wsLog zerolog.Logger) {
	for e := range events {
		var err error
		switch e.Kind {
		case assessment.EventTick:
			err = conn.WriteTyped(ws.TickResponse{
				Event:            ws.EventTick,
				RemainingSeconds: e.RemainingSeconds,
			})
		case assessment.EventWarning:
			err = conn.WriteTyped(ws.WarningResponse{
				Event:          ws.EventWarning,
				ViolationCount: e.ViolationCount,
				ViolationLimit: violationLimit,
			})
		case assessment.EventDisqualified:
			err = conn.WriteTyped(ws.DisqualifiedResponse{
				Event:  ws.EventDisqualified,
				Reason: "integrity violation limit reached",
			})
			conn.Close()
			return
		case assessment.EventCompleted:
			err = conn.WriteTyped(ws.CompletedResponse{
				Event:   ws.EventCompleted,
				Trigger: string(e.Trigger),
			})
			conn.Close()
			return
		case assessment.EventSubmitFailed:
			err = conn.WriteTyped(ws.SubmitFailedResponse{
				Event: ws.EventSubmitFailed,
				Error: "submission could not be delivered, retrying",
			})
		case assessment.EventClipboardBlocked:
			// Acknowledged implicitly; the client already blocked the gesture.
			continue
		}
		if err != nil {
			wsLog.Debug().Err(err).Msg("Event write failed, stopping forwarder")
			return
		}
	}
	// Channel closed: session torn down elsewhere (e.g. server shutdown).
	conn.Close()
}

// stateResponse builds the full resync frame from a session.
func stateResponse(sess *assessment.Session) ws.StateResponse {
	snap := sess.Snapshot()
	def := sess.Definition()

	questions := make([]ws.StateQuestion, len(def.Questions))
	for i, q := range def.Questions {
		questions[i] = ws.StateQuestion{ID: q.ID.String(), Prompt: q.Prompt}
	}

	return ws.StateResponse{
		Event:            ws.EventState,
		Status:           string(snap.Status),
		Questions:        questions,
		Answers:          snap.Answers,
		CurrentIndex:     snap.CurrentIndex,
		RemainingSeconds: snap.RemainingSeconds,
		ViolationCount:   snap.ViolationCount,
		ViolationLimit:   snap.ViolationLimit,
	}
}

func beginFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotInvited):
		return http.StatusForbidden, "assessment not available for this application"
	case errors.Is(err, service.ErrAssessmentDone):
		return http.StatusConflict, "assessment already finished"
	case errors.Is(err, service.ErrSessionElsewhere):
		return http.StatusConflict, "session active on another server"
	default:
		return http.StatusInternalServerError, "could not start assessment"
	}
}

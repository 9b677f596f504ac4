package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer    Action = "answer"
	ActionNavigate  Action = "navigate"
	ActionFocusLost Action = "focus_lost"
	ActionClipboard Action = "clipboard"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest records the candidate's draft answer for one question.
type AnswerRequest struct {
	Action        Action `json:"action"`
	QuestionIndex int    `json:"question_index"`
	Text          string `json:"text"`
}

// NavigateRequest moves the candidate's cursor by a relative offset.
type NavigateRequest struct {
	Action Action `json:"action"`
	Delta  int    `json:"delta"`
}

// FocusLostRequest reports that the assessment surface lost the
// candidate's attention (tab switch, window blur, fullscreen exit).
type FocusLostRequest struct {
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

// ClipboardRequest reports a blocked copy or paste attempt.
type ClipboardRequest struct {
	Action Action `json:"action"`
	Kind   string `json:"kind"` // "copy" or "paste"
}

// SubmitRequest finalizes the assessment at the candidate's request.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState        Event = "state"
	EventTick         Event = "tick"
	EventWarning      Event = "warning"
	EventDisqualified Event = "disqualified"
	EventCompleted    Event = "completed"
	EventSubmitFailed Event = "submit_failed"
	EventError        Event = "error"
	EventPong         Event = "pong"
)

// StateResponse is the first frame after connect: the full session view.
type StateResponse struct {
	Event            Event           `json:"event"`
	Status           string          `json:"status"`
	Questions        []StateQuestion `json:"questions"`
	Answers          map[int]string  `json:"answers"`
	CurrentIndex     int             `json:"current_index"`
	RemainingSeconds int             `json:"remaining_seconds"`
	ViolationCount   int             `json:"violation_count"`
	ViolationLimit   int             `json:"violation_limit"`
}

// StateQuestion is a prompt as shown to the candidate.
type StateQuestion struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

type WarningResponse struct {
	Event          Event `json:"event"`
	ViolationCount int   `json:"violation_count"`
	ViolationLimit int   `json:"violation_limit"`
}

type DisqualifiedResponse struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
}

type CompletedResponse struct {
	Event   Event  `json:"event"`
	Trigger string `json:"trigger"`
}

type SubmitFailedResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

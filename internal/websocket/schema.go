package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionBookmark Action = "bookmark"
	ActionPosition Action = "position"
	ActionFinish   Action = "finish"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest records (or overwrites) a chosen option.
type AnswerRequest struct {
	Action   Action `json:"action"`
	Position int    `json:"position"`
	OptionID string `json:"option_id"`
}

// BookmarkRequest toggles the bookmark flag on a question.
type BookmarkRequest struct {
	Action   Action `json:"action"`
	Position int    `json:"position"`
}

// PositionRequest moves the taker to a different question.
type PositionRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// FinishRequest ends the session over the socket. Confirmed must be true
// unless the countdown already expired.
type FinishRequest struct {
	Action    Action `json:"action"`
	Confirmed bool   `json:"confirmed"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventSaved    Event = "saved"
	EventTick     Event = "tick"
	EventFinished Event = "finished"
	EventPong     Event = "pong"
)

// SavedResponse acknowledges a state mutation.
type SavedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// TickResponse streams the countdown once per second.
type TickResponse struct {
	Event            Event  `json:"event"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Level            string `json:"level"`
}

// FinishedResponse carries the graded summary. Sent once, either on an
// explicit finish action or when the countdown expires server-side.
type FinishedResponse struct {
	Event     Event   `json:"event"`
	Score     float64 `json:"score"`
	Correct   int     `json:"correct"`
	Incorrect int     `json:"incorrect"`
	AttemptID string  `json:"attempt_id,omitempty"`
	Expired   bool    `json:"expired"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// AnswerRequest records (or toggles off) a single choice. Answer frames
// carry the only extra fields, so this shape covers every action.
type AnswerRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
	Answer string `json:"ans"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventAnswers Event = "answers"
	EventTick    Event = "tick"
	EventAlert   Event = "alert"
	EventExpired Event = "expired"
	EventGraded  Event = "graded"
	EventPong    Event = "pong"
)

// AnswersResponse echoes the full answer map after a toggle.
type AnswersResponse struct {
	Event   Event             `json:"event"`
	Answers map[string]string `json:"answers"`
}

// TickResponse streams the wall-clock remaining seconds.
type TickResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining"`
}

// AlertResponse fires once per crossed time milestone.
type AlertResponse struct {
	Event     Event  `json:"event"`
	Alert     string `json:"alert"`
	Remaining int    `json:"remaining"`
}

// ExpiredResponse announces the timeout; the attempt is abandoned.
type ExpiredResponse struct {
	Event Event `json:"event"`
}

// GradedResponse reports the submission outcome.
type GradedResponse struct {
	Event   Event `json:"event"`
	Correct int   `json:"correct"`
	Total   int   `json:"total"`
	Score   int   `json:"score"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

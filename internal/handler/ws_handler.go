package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/countdown"
	"github.com/thptprep/engprep-backend/internal/middleware"
	"github.com/thptprep/engprep-backend/internal/service"
	ws "github.com/thptprep/engprep-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
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

// WSHandler streams the exam clock and accepts answer and submit
// actions over one WebSocket per attempt.
type WSHandler struct {
	attemptService *service.AttemptService
	cfg            *config.Config
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, cfg *config.Config, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		cfg:            cfg,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(cfg.AllowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/v1/exams/:exam_id/stream
// Streams ticks, milestone alerts and expiry; accepts answer toggles
// and submission.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	examID, err := strconv.Atoi(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	sid := claims.SessionID
	ctx := context.Background()

	attempt, err := h.attemptService.Resume(ctx, sid, examID)
	if err != nil {
		conn.WriteError("no active attempt for this exam")
		return
	}

	wsLog := h.log.With().
		Str("session_id", sid).
		Int("exam_id", examID).
		Logger()
	wsLog.Info().Msg("Attempt stream connected")

	// Drive the attempt clock. Alerts already crossed before a
	// reconnect stay latched.
	duration := int(h.cfg.ExamDuration / time.Second)
	clock := countdown.Restore(attempt.StartTime, duration, time.Now())
	engine := countdown.NewEngine(clock, time.Second, func(ev countdown.Event) {
		h.pushEvent(ctx, conn, sid, ev, wsLog)
	}, wsLog)
	if attempt.Started {
		engine.Start()
		defer engine.Stop()
	}

	for {
		// Answer frames carry the only extra fields, so one shape
		// covers every action.
		var msg ws.AnswerRequest
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(ctx, conn, sid, msg.QID, msg.Answer, wsLog)
		case ws.ActionSubmit:
			h.handleSubmit(ctx, conn, sid, claims.Subject, wsLog)
			return
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			conn.WriteError("unknown action")
		}
	}
}

// pushEvent relays one clock event; expiry abandons the attempt.
func (h *WSHandler) pushEvent(ctx context.Context, conn *ws.Conn, sid string, ev countdown.Event, wsLog zerolog.Logger) {
	conn.WriteTyped(ws.TickResponse{Event: ws.EventTick, Remaining: ev.Remaining})
	for _, alert := range ev.Alerts {
		conn.WriteTyped(ws.AlertResponse{Event: ws.EventAlert, Alert: string(alert), Remaining: ev.Remaining})
	}
	if ev.Expired {
		if err := h.attemptService.Abandon(ctx, sid); err != nil {
			wsLog.Error().Err(err).Msg("Abandon on expiry failed")
		}
		conn.WriteTyped(ws.ExpiredResponse{Event: ws.EventExpired})
	}
}

func (h *WSHandler) handleAnswer(ctx context.Context, conn *ws.Conn, sid, qid, letter string, wsLog zerolog.Logger) {
	answers, err := h.attemptService.RecordAnswer(ctx, sid, qid, letter)
	if err != nil {
		wsLog.Debug().Err(err).Str("q_id", qid).Msg("Answer rejected")
		conn.WriteError(err.Error())
		return
	}
	conn.WriteTyped(ws.AnswersResponse{Event: ws.EventAnswers, Answers: answers})
}

func (h *WSHandler) handleSubmit(ctx context.Context, conn *ws.Conn, sid, userID string, wsLog zerolog.Logger) {
	sub, err := h.attemptService.Submit(ctx, sid, userID)
	if err != nil {
		conn.WriteError("submit failed")
		return
	}
	conn.WriteTyped(ws.GradedResponse{
		Event:   ws.EventGraded,
		Correct: sub.CorrectCount,
		Total:   sub.TotalQuestions,
		Score:   service.ScorePercent(sub.CorrectCount, sub.TotalQuestions),
	})
	wsLog.Info().Int("score", service.ScorePercent(sub.CorrectCount, sub.TotalQuestions)).Msg("Submitted over stream")
}

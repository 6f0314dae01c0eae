package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/guard"
	"github.com/thptprep/engprep-backend/internal/middleware"
	"github.com/thptprep/engprep-backend/internal/model"
	"github.com/thptprep/engprep-backend/internal/response"
	"github.com/thptprep/engprep-backend/internal/service"
	"github.com/thptprep/engprep-backend/internal/validator"
)

// AttemptHandler drives the exam attempt lifecycle over HTTP.
type AttemptHandler struct {
	attemptService *service.AttemptService
	chatService    *service.ChatService
	guards         *guard.Registry
	cfg            *config.Config
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, chatService *service.ChatService, guards *guard.Registry, cfg *config.Config) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		chatService:    chatService,
		guards:         guards,
		cfg:            cfg,
	}
}

// CreateExam godoc
// POST /api/v1/exams
// Returns the session's active attempt, assembling a fresh exam when
// none is in flight.
func (h *AttemptHandler) CreateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attempt, err := h.attemptService.CreateExam(c.Request.Context(), claims.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoQuestions):
			response.Fail(c, http.StatusNotFound, response.ErrNoQuestions)
		case errors.Is(err, service.ErrNotEnoughQuestions):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrNotEnoughQuestions)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"attempt":   attemptView(attempt),
		"countdown": int(h.cfg.PreExamCountdown / time.Second),
	})
}

// Start godoc
// POST /api/v1/exams/:exam_id/start
// Anchors the exam clock after the pre-exam countdown.
func (h *AttemptHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attempt, err := h.attemptService.Start(c.Request.Context(), claims.SessionID)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": attemptView(attempt)})
}

// Resume godoc
// GET /api/v1/exams/:exam_id
// Returns the in-flight attempt with wall-clock remaining time.
func (h *AttemptHandler) Resume(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, err := strconv.Atoi(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.Resume(c.Request.Context(), claims.SessionID, examID)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": attemptView(attempt)})
}

type answerRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	Answer     string `json:"answer" binding:"required,len=1"`
}

// Answer godoc
// POST /api/v1/exams/:exam_id/answers
// Records a choice; repeating the stored letter unselects it.
func (h *AttemptHandler) Answer(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req answerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	answers, err := h.attemptService.RecordAnswer(c.Request.Context(), claims.SessionID, req.QuestionID, req.Answer)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"answers": answers})
}

// Submit godoc
// POST /api/v1/exams/:exam_id/submit
// Grades the attempt and persists the submission.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)

	// Push any debounced chat transcripts out before teardown.
	h.chatService.Flush(claims.SessionID)

	sub, err := h.attemptService.Submit(c.Request.Context(), claims.SessionID, claims.Subject)
	if err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exam_id":   sub.ExamID,
		"correct":   sub.CorrectCount,
		"total":     sub.TotalQuestions,
		"score":     service.ScorePercent(sub.CorrectCount, sub.TotalQuestions),
		"questions": sub.Questions,
	})
}

// Exit godoc
// POST /api/v1/exams/:exam_id/exit
// Leaves the exam. While the guard is armed this requires
// ?confirm=true; a confirmed exit abandons the attempt and wipes the
// session state.
func (h *AttemptHandler) Exit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	sid := claims.SessionID

	if h.guards.Armed(sid) && c.Query("confirm") != "true" {
		response.Fail(c, http.StatusConflict, response.ErrExitConfirmRequired)
		return
	}

	if err := h.attemptService.Abandon(c.Request.Context(), sid); err != nil && !errors.Is(err, service.ErrAttemptNotFound) {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if err := h.attemptService.Clear(c.Request.Context(), sid); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// attemptView shapes an attempt for the client.
func attemptView(a *model.Attempt) gin.H {
	return gin.H{
		"exam_id":        a.ExamID,
		"state":          a.State,
		"started":        a.Started,
		"start_time":     a.StartTime,
		"time_remaining": a.TimeRemaining,
		"answers":        a.Answers,
		"content":        a.Content,
	}
}

// failAttempt maps attempt lifecycle errors onto the response codes.
func failAttempt(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, service.ErrAttemptMismatch):
		response.Fail(c, http.StatusConflict, response.ErrAttemptMismatch)
	case errors.Is(err, service.ErrAttemptFinished):
		response.Fail(c, http.StatusConflict, response.ErrAttemptFinished)
	case errors.Is(err, service.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
	case errors.Is(err, service.ErrInvalidAnswerLetter):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidAnswerLetter)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thptprep/engprep-backend/internal/middleware"
	"github.com/thptprep/engprep-backend/internal/response"
	"github.com/thptprep/engprep-backend/internal/service"
	"github.com/thptprep/engprep-backend/internal/validator"
)

// ChatHandler serves the per-question tutoring chat.
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Open godoc
// GET /api/v1/exams/:exam_id/questions/:question_id/chat
// Returns the transcript for a question, greeting included for new
// conversations.
func (h *ChatHandler) Open(c *gin.Context) {
	claims := middleware.GetClaims(c)
	session := h.chatService.Open(c.Request.Context(), claims.SessionID, c.Param("question_id"))
	response.Success(c, http.StatusOK, gin.H{"messages": session.Messages})
}

type chatSendRequest struct {
	Message string `json:"message" binding:"required"`
}

// Send godoc
// POST /api/v1/exams/:exam_id/questions/:question_id/chat
// Sends one message to the tutor. Failures leave an inline error in
// the transcript and are reported here; nothing retries on its own.
func (h *ChatHandler) Send(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req chatSendRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.chatService.Send(c.Request.Context(), claims.SessionID, c.Param("question_id"), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChatOffTopic):
			// The decline is part of the transcript; still a 200 with a
			// typed marker so the client can style it.
			response.Success(c, http.StatusOK, gin.H{
				"messages":  session.Messages,
				"off_topic": true,
			})
		case errors.Is(err, service.ErrChatEmptyReply):
			if session == nil {
				response.Fail(c, http.StatusBadRequest, response.ErrChatEmpty)
				return
			}
			response.FailWithMessage(c, http.StatusBadGateway, response.ErrChatEmpty, response.GetMessage(response.ErrChatEmpty))
		case errors.Is(err, service.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		case errors.Is(err, service.ErrUnknownQuestion):
			response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
		default:
			response.Fail(c, http.StatusBadGateway, response.ErrUpstream)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"messages": session.Messages})
}

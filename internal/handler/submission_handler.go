package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/thptprep/engprep-backend/internal/middleware"
	"github.com/thptprep/engprep-backend/internal/model"
	"github.com/thptprep/engprep-backend/internal/repository"
	"github.com/thptprep/engprep-backend/internal/response"
	"github.com/thptprep/engprep-backend/internal/service"
)

// SubmissionHandler serves finished exams: reconstruction for review
// and the attempt history.
type SubmissionHandler struct {
	attemptService *service.AttemptService
	submissionRepo *repository.SubmissionRepository
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(attemptService *service.AttemptService, submissionRepo *repository.SubmissionRepository) *SubmissionHandler {
	return &SubmissionHandler{
		attemptService: attemptService,
		submissionRepo: submissionRepo,
	}
}

// Reconstruct godoc
// GET /api/v1/submissions/:exam_id
// Rebuilds a submitted exam for the read-only review page. Concurrent
// requests for the same exam share a single store fetch.
func (h *SubmissionHandler) Reconstruct(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, err := strconv.Atoi(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	rebuilt, err := h.attemptService.Reconstruct(c.Request.Context(), claims.SessionID, claims.Subject, examID)
	if err != nil {
		if errors.Is(err, repository.ErrSubmissionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSubmissionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question_ids": rebuilt.QuestionIDs,
		"exam_info":    rebuilt.ExamInfo,
		"user_answers": rebuilt.UserAnswers,
		"content":      rebuilt.Content,
	})
}

// History godoc
// GET /api/v1/submissions?page=&per_page=
// Lists the user's graded attempts, newest first.
func (h *SubmissionHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	summaries, total, err := h.submissionRepo.ListByUser(c.Request.Context(), claims.Subject, perPage, (page-1)*perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if summaries == nil {
		summaries = []model.SubmissionSummary{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"submissions": summaries}, pagination)
}

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/thptprep/engprep-backend/internal/middleware"
	"github.com/thptprep/engprep-backend/internal/response"
	"github.com/thptprep/engprep-backend/internal/service"
	"github.com/thptprep/engprep-backend/internal/validator"
)

// ReviewHandler serves drills built from previously missed questions.
type ReviewHandler struct {
	reviewService *service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// Pool godoc
// GET /api/v1/review/pool
// Reports how many missed questions are banked.
func (h *ReviewHandler) Pool(c *gin.Context) {
	claims := middleware.GetClaims(c)

	n, err := h.reviewService.PoolSize(c.Request.Context(), claims.Subject)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"size": n})
}

// Quiz godoc
// POST /api/v1/review/quiz?size=
// Samples a drill from the pool.
func (h *ReviewHandler) Quiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	size, _ := strconv.Atoi(c.DefaultQuery("size", "0"))

	questions, err := h.reviewService.BuildQuiz(c.Request.Context(), claims.Subject, size)
	if err != nil {
		if errors.Is(err, service.ErrEmptyReviewPool) {
			response.Fail(c, http.StatusNotFound, response.ErrNoQuestions)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

type reviewResolveRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

// Resolve godoc
// POST /api/v1/review/resolve
// Grades a drill; correctly answered questions leave the pool.
func (h *ReviewHandler) Resolve(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req reviewResolveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.reviewService.Resolve(c.Request.Context(), claims.Subject, req.Answers)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, result)
}

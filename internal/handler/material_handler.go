package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thptprep/engprep-backend/internal/client"
	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/model"
	"github.com/thptprep/engprep-backend/internal/response"
	"github.com/thptprep/engprep-backend/internal/service"
	"github.com/thptprep/engprep-backend/internal/validator"
)

// MaterialHandler turns uploaded study material into bank questions.
type MaterialHandler struct {
	materialService *service.MaterialService
	cfg             *config.Config
}

// NewMaterialHandler creates a new MaterialHandler.
func NewMaterialHandler(materialService *service.MaterialService, cfg *config.Config) *MaterialHandler {
	return &MaterialHandler{materialService: materialService, cfg: cfg}
}

// Extract godoc
// POST /api/v1/materials/extract  (multipart: file)
// Validates an upload and returns its plain text.
func (h *MaterialHandler) Extract(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	if fileHeader.Size > h.cfg.MaxUploadBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxUploadBytes+1))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	text, err := h.materialService.ExtractText(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		failMaterial(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"text": text})
}

type generateRequest struct {
	Source  string            `json:"source" binding:"required"`
	Types   []model.GroupType `json:"types" binding:"required,min=1,dive,oneof=fill_short fill_long reading reorder"`
	PerType int               `json:"per_type" binding:"omitempty,min=1,max=10"`
}

// Generate godoc
// POST /api/v1/materials/generate
// Generates question groups from source text and stores them.
func (h *MaterialHandler) Generate(c *gin.Context) {
	var req generateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	stored, err := h.materialService.Generate(c.Request.Context(), req.Source, req.Types, req.PerType)
	if err != nil {
		failMaterial(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"stored": stored})
}

func failMaterial(c *gin.Context, err error) {
	var upstream *client.UpstreamError
	switch {
	case errors.Is(err, service.ErrUnsupportedFileType):
		response.Fail(c, http.StatusUnsupportedMediaType, response.ErrUnsupportedFile)
	case errors.Is(err, service.ErrFileTooLarge):
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
	case errors.Is(err, service.ErrEmptySource):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	case errors.As(err, &upstream):
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrUpstream, response.GetMessage(response.ErrUpstream))
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

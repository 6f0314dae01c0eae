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

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Code        string `json:"code" binding:"required"`
	RedirectURI string `json:"redirect_uri" binding:"required,url"`
}

// Login godoc
// POST /api/v1/auth/login
// Completes the hosted OAuth flow: exchanges the authorization code
// and issues an app token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, info, err := h.authService.Login(c.Request.Context(), req.Code, req.RedirectURI)
	if err != nil {
		if errors.Is(err, service.ErrCodeExchange) {
			response.Fail(c, http.StatusUnauthorized, response.ErrCodeExchangeFailed)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"sub":      info.Sub,
			"username": info.Username,
			"email":    info.Email,
			"name":     info.Name,
			"picture":  info.Picture,
		},
	})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the identity baked into the current token.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"sub":      claims.Subject,
		"username": claims.Username,
		"email":    claims.Email,
	})
}

// Logout godoc
// POST /api/v1/auth/logout
// Invalidates the current session.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims.SessionID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

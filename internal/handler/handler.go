// Package handler provides HTTP handlers for the application
package handler

import (
	stderrors "errors"
	"net/http"
	"time"

	app_errors "inkcloud/internal/errors"
	"inkcloud/internal/i18n"
	"inkcloud/internal/response"
	"inkcloud/internal/services"
	"inkcloud/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"
)

// Server contains dependencies for HTTP handlers
type Server struct {
	config          types.ConfigManager
	SettingsService *services.SettingsService
	AuthService     *services.AuthService
}

// NewServerParams defines the dependencies for the NewServer constructor.
type NewServerParams struct {
	dig.In
	Config          types.ConfigManager
	SettingsService *services.SettingsService
	AuthService     *services.AuthService
}

// NewServer creates a new handler instance with dependencies injected by dig.
func NewServer(params NewServerParams) *Server {
	return &Server{
		config:          params.Config,
		SettingsService: params.SettingsService,
		AuthService:     params.AuthService,
	}
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	AuthKey string `json:"auth_key" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Login handles authentication verification
func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, LoginResponse{
			Success: false,
			Message: i18n.Message(c, "auth.invalid_request"),
		})
		return
	}

	if s.AuthService.Verify(req.AuthKey) {
		c.JSON(http.StatusOK, LoginResponse{
			Success: true,
			Message: i18n.Message(c, "auth.success"),
		})
	} else {
		logrus.WithField("ip", c.ClientIP()).Warn("Rejected dashboard login")
		c.JSON(http.StatusUnauthorized, LoginResponse{
			Success: false,
			Message: i18n.Message(c, "auth.failed"),
		})
	}
}

// Health handles health check requests
func (s *Server) Health(c *gin.Context) {
	uptime := "unknown"
	if startTime, exists := c.Get("serverStartTime"); exists {
		if st, ok := startTime.(time.Time); ok {
			uptime = time.Since(st).String()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    uptime,
	})
}

// handleServiceError writes err as a localized API error. data, when not nil, is sent along so
// the dashboard can show the store state the failure left behind.
func handleServiceError(c *gin.Context, err error, data any) {
	var i18nErr *services.I18nError
	if stderrors.As(err, &i18nErr) {
		response.Error(c, app_errors.NewAPIError(i18nErr.APIError, i18n.Message(c, i18nErr.MessageID, i18nErr.Template)))
		return
	}

	apiErr := app_errors.FromSyncError(err)
	if stderrors.Is(err, app_errors.ErrValidationFailure) {
		apiErr = app_errors.NewAPIError(apiErr, i18n.Message(c, "settings.validation_failed", map[string]any{"Error": err.Error()}))
	}
	if apiErr.HTTPStatus >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Settings operation failed")
	}

	if data != nil {
		response.ErrorWithData(c, apiErr, data)
		return
	}
	response.Error(c, apiErr)
}

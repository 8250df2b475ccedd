package handler

import (
	app_errors "inkcloud/internal/errors"
	"inkcloud/internal/i18n"
	"inkcloud/internal/response"

	"github.com/gin-gonic/gin"
)

// TenantRequest selects a tenant. An empty id clears the selection.
type TenantRequest struct {
	TenantID string `json:"tenant_id"`
}

// GetTenant returns the tenant the dashboard is managing.
func (s *Server) GetTenant(c *gin.Context) {
	response.Success(c, s.SettingsService.Session().Snapshot())
}

// SetTenant switches the managed tenant.
func (s *Server) SetTenant(c *gin.Context) {
	var req TenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, i18n.Message(c, "error.invalid_json")))
		return
	}

	sess := s.SettingsService.Session()
	ctx := c.Request.Context()

	var err error
	if req.TenantID == "" {
		err = sess.Clear(ctx)
	} else {
		err = sess.Select(ctx, req.TenantID)
	}
	if err != nil {
		handleServiceError(c, err, sess.Snapshot())
		return
	}

	message := i18n.Message(c, "session.tenant_cleared")
	if sess.HasTenant() {
		message = i18n.Message(c, "session.tenant_switched", map[string]any{"Tenant": sess.Tenant()})
	}
	response.SuccessWithMessage(c, message, sess.Snapshot())
}

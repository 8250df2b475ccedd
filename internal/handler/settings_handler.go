package handler

import (
	"fmt"
	"net/http"
	"time"

	app_errors "inkcloud/internal/errors"
	"inkcloud/internal/i18n"
	"inkcloud/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// EntriesRequest lists blacklist entries to add or remove.
type EntriesRequest struct {
	Entries []string `json:"entries" binding:"required,min=1"`
}

// ListSettings returns every configuration domain. With ?group=category the domains are
// grouped by category.
func (s *Server) ListSettings(c *gin.Context) {
	if c.Query("group") == "category" {
		response.Success(c, s.SettingsService.Categorized())
		return
	}
	response.Success(c, s.SettingsService.List())
}

// GetSetting returns one configuration domain.
func (s *Server) GetSetting(c *gin.Context) {
	view, err := s.SettingsService.Get(c.Param("domain"))
	if err != nil {
		handleServiceError(c, err, nil)
		return
	}
	response.Success(c, view)
}

// ReplaceSetting stores the request body as the new value of a domain.
func (s *Server) ReplaceSetting(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || !json.Valid(body) {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, i18n.Message(c, "error.invalid_json")))
		return
	}

	view, err := s.SettingsService.Replace(c.Request.Context(), c.Param("domain"), body)
	if err != nil {
		handleServiceError(c, err, viewOrNil(view.Name, view))
		return
	}
	response.SuccessWithMessage(c, i18n.Message(c, "settings.saved"), view)
}

// PatchSetting replaces the dotted paths given in the request body, such as
// {"thresholds.warn": 50}.
func (s *Server) PatchSetting(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, i18n.Message(c, "error.invalid_json")))
		return
	}

	view, err := s.SettingsService.Patch(c.Request.Context(), c.Param("domain"), fields)
	if err != nil {
		handleServiceError(c, err, viewOrNil(view.Name, view))
		return
	}
	response.SuccessWithMessage(c, i18n.Message(c, "settings.saved"), view)
}

// RefreshSetting reloads a domain from storage.
func (s *Server) RefreshSetting(c *gin.Context) {
	view, err := s.SettingsService.Refresh(c.Request.Context(), c.Param("domain"))
	if err != nil {
		handleServiceError(c, err, viewOrNil(view.Name, view))
		return
	}
	response.Success(c, view)
}

// AddBlacklistEntries appends entries to the blacklist.
func (s *Server) AddBlacklistEntries(c *gin.Context) {
	var req EntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrBadRequest, err.Error()))
		return
	}

	view, err := s.SettingsService.AddBlacklistEntries(c.Request.Context(), req.Entries)
	if err != nil {
		handleServiceError(c, err, view)
		return
	}
	response.Success(c, view)
}

// RemoveBlacklistEntries drops entries from the blacklist.
func (s *Server) RemoveBlacklistEntries(c *gin.Context) {
	var req EntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrBadRequest, err.Error()))
		return
	}

	view, err := s.SettingsService.RemoveBlacklistEntries(c.Request.Context(), req.Entries)
	if err != nil {
		handleServiceError(c, err, view)
		return
	}
	response.Success(c, view)
}

// ClearBlacklist empties the blacklist.
func (s *Server) ClearBlacklist(c *gin.Context) {
	view, err := s.SettingsService.ClearBlacklist(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, view)
		return
	}
	response.SuccessWithMessage(c, i18n.Message(c, "settings.blacklist_cleared"), view)
}

// ToggleNotifications flips the notifications switch.
func (s *Server) ToggleNotifications(c *gin.Context) {
	view, err := s.SettingsService.ToggleNotifications(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, view)
		return
	}
	response.Success(c, view)
}

// SettingsMetrics returns the read and write counters of every domain.
func (s *Server) SettingsMetrics(c *gin.Context) {
	response.Success(c, s.SettingsService.Metrics())
}

// Focus is called by the dashboard when its window regains focus.
func (s *Server) Focus(c *gin.Context) {
	s.SettingsService.Focus()
	c.Status(http.StatusAccepted)
}

// ExportSettings downloads every domain value as one JSON document.
func (s *Server) ExportSettings(c *gin.Context) {
	data, err := json.MarshalIndent(s.SettingsService.Export(), "", "  ")
	if err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInternalServer, i18n.Message(c, "error.export_settings")))
		return
	}

	filename := fmt.Sprintf("inkcloud-settings-%s.json", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// ImportSettings stores the values of the request body, keyed by domain name, storage key or
// legacy key.
func (s *Server) ImportSettings(c *gin.Context) {
	var values map[string]json.RawMessage
	if err := c.ShouldBindJSON(&values); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, i18n.Message(c, "error.invalid_json")))
		return
	}

	result, err := s.SettingsService.Import(c.Request.Context(), values)
	if err != nil {
		handleServiceError(c, err, result)
		return
	}
	response.Success(c, result)
}

// viewOrNil drops the zero view returned for unknown domains.
func viewOrNil(name string, view any) any {
	if name == "" {
		return nil
	}
	return view
}

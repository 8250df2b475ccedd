// Package app wires the settings service and the HTTP server into one lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"inkcloud/internal/i18n"
	"inkcloud/internal/services"
	"inkcloud/internal/store"
	"inkcloud/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"
)

// App holds the application's long-lived components.
type App struct {
	engine          *gin.Engine
	configManager   types.ConfigManager
	settingsService *services.SettingsService
	backend         store.Store
	httpServer      *http.Server

	cancel context.CancelFunc
}

// AppParams defines the dependencies for the App.
type AppParams struct {
	dig.In
	Engine          *gin.Engine
	ConfigManager   types.ConfigManager
	SettingsService *services.SettingsService
	Backend         store.Store
}

// NewApp is the constructor for App, with dependencies injected by dig.
func NewApp(params AppParams) *App {
	return &App{
		engine:          params.Engine,
		configManager:   params.ConfigManager,
		settingsService: params.SettingsService,
		backend:         params.Backend,
	}
}

// Start loads every setting, starts change propagation and begins serving HTTP.
func (a *App) Start() error {
	if err := a.configManager.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	i18n.SetDefault(a.configManager.GetDefaultLanguage())
	a.configManager.DisplayServerConfig()

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if err := a.settingsService.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to start settings service: %w", err)
	}

	serverConfig := a.configManager.GetEffectiveServerConfig()
	a.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
		Handler:        a.engine,
		ReadTimeout:    time.Duration(serverConfig.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(serverConfig.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(serverConfig.IdleTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.Infof("inkCloud settings server started on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server startup failed: %v", err)
		}
	}()

	return nil
}

// Stop shuts the HTTP server down, then stops settings propagation and closes the backend.
func (a *App) Stop(ctx context.Context) {
	logrus.Info("Shutting down server...")

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logrus.Errorf("Server forced to shutdown: %v", err)
		}
	}

	a.settingsService.Stop()
	if a.cancel != nil {
		a.cancel()
	}

	if err := a.backend.Close(); err != nil {
		logrus.Warnf("Failed to close settings backend: %v", err)
	}

	logrus.Info("Server exited gracefully")
}

// ShutdownTimeout is the grace period Stop should be given.
func (a *App) ShutdownTimeout() time.Duration {
	return time.Duration(a.configManager.GetEffectiveServerConfig().GracefulShutdownTimeout) * time.Second
}

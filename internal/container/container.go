// Package container provides a dependency injection container for the application.
package container

import (
	"inkcloud/internal/app"
	"inkcloud/internal/config"
	"inkcloud/internal/encryption"
	"inkcloud/internal/handler"
	"inkcloud/internal/router"
	"inkcloud/internal/services"
	"inkcloud/internal/store"

	"go.uber.org/dig"
)

// BuildContainer creates a new dependency injection container and provides all the application's services.
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Infrastructure Services
	if err := container.Provide(config.NewManager); err != nil {
		return nil, err
	}
	if err := container.Provide(store.NewStore); err != nil {
		return nil, err
	}
	if err := container.Provide(encryption.NewService); err != nil {
		return nil, err
	}

	// Business Services
	if err := container.Provide(services.NewSettingsService); err != nil {
		return nil, err
	}
	if err := container.Provide(services.NewAuthService); err != nil {
		return nil, err
	}

	// Handlers & Router
	if err := container.Provide(handler.NewServer); err != nil {
		return nil, err
	}
	if err := container.Provide(router.NewRouter); err != nil {
		return nil, err
	}

	// Application Layer
	if err := container.Provide(app.NewApp); err != nil {
		return nil, err
	}

	return container, nil
}

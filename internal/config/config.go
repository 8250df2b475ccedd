// Package config provides configuration management for the application
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"inkcloud/internal/scheduler"
	"inkcloud/internal/settings"
	"inkcloud/internal/store"
	"inkcloud/internal/types"
	"inkcloud/internal/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Constants represents configuration constants
type Constants struct {
	MinPort               int
	MaxPort               int
	MinRefreshInterval    time.Duration
	MaxStatusResetDelay   time.Duration
	DefaultDataDir        string
	DefaultLanguage       string
	SupportedLanguages    []string
	DefaultRefreshSeconds int
}

// DefaultConstants holds default configuration values
var DefaultConstants = Constants{
	MinPort:               1,
	MaxPort:               65535,
	MinRefreshInterval:    time.Second,
	MaxStatusResetDelay:   time.Minute,
	DefaultDataDir:        "./data/settings",
	DefaultLanguage:       "pt-BR",
	SupportedLanguages:    []string{"pt-BR", "en"},
	DefaultRefreshSeconds: int(scheduler.DefaultInterval / time.Second),
}

// Manager implements the ConfigManager interface
type Manager struct {
	config *Config
}

// Config represents the application configuration
type Config struct {
	Server          types.ServerConfig
	Auth            types.AuthConfig
	CORS            types.CORSConfig
	Log             types.LogConfig
	Database        types.DatabaseConfig
	Storage         types.StorageConfig
	Sync            types.SyncConfig
	RedisDSN        string
	EncryptionKey   string
	DefaultLanguage string
}

// NewManager creates a new configuration manager
func NewManager() (types.ConfigManager, error) {
	manager := &Manager{}
	if err := manager.ReloadConfig(); err != nil {
		return nil, err
	}
	return manager, nil
}

// ReloadConfig reloads the configuration from environment variables
func (m *Manager) ReloadConfig() error {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables only")
	}

	config := &Config{
		Server: types.ServerConfig{
			Port:                    utils.ParseInteger(os.Getenv("PORT"), 3001),
			Host:                    utils.GetEnvOrDefault("HOST", "0.0.0.0"),
			ReadTimeout:             utils.ParseInteger(os.Getenv("SERVER_READ_TIMEOUT"), 60),
			WriteTimeout:            utils.ParseInteger(os.Getenv("SERVER_WRITE_TIMEOUT"), 600),
			IdleTimeout:             utils.ParseInteger(os.Getenv("SERVER_IDLE_TIMEOUT"), 120),
			GracefulShutdownTimeout: utils.ParseInteger(os.Getenv("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT"), 10),
		},
		Auth: types.AuthConfig{
			Key: os.Getenv("AUTH_KEY"),
		},
		CORS: types.CORSConfig{
			Enabled:          utils.ParseBoolean(os.Getenv("ENABLE_CORS"), false),
			AllowedOrigins:   utils.ParseArray(os.Getenv("ALLOWED_ORIGINS"), nil),
			AllowedMethods:   utils.ParseArray(os.Getenv("ALLOWED_METHODS"), []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders:   utils.ParseArray(os.Getenv("ALLOWED_HEADERS"), []string{"*"}),
			AllowCredentials: utils.ParseBoolean(os.Getenv("ALLOW_CREDENTIALS"), false),
		},
		Log: types.LogConfig{
			Level:      utils.GetEnvOrDefault("LOG_LEVEL", "info"),
			Format:     utils.GetEnvOrDefault("LOG_FORMAT", "text"),
			EnableFile: utils.ParseBoolean(os.Getenv("LOG_ENABLE_FILE"), false),
			FilePath:   utils.GetEnvOrDefault("LOG_FILE_PATH", "./data/logs/app.log"),
		},
		Database: types.DatabaseConfig{
			DSN: os.Getenv("DATABASE_DSN"),
		},
		Storage: types.StorageConfig{
			Backend: strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND"))),
			DataDir: utils.GetEnvOrDefault("DATA_DIR", DefaultConstants.DefaultDataDir),
		},
		Sync: types.SyncConfig{
			Channel:          utils.GetEnvOrDefault("SYNC_CHANNEL", "inkcloud:settings:changed"),
			RefreshInterval:  time.Duration(utils.ParseInteger(os.Getenv("REFRESH_INTERVAL_SECONDS"), DefaultConstants.DefaultRefreshSeconds)) * time.Second,
			StatusResetDelay: utils.ParseMillis(os.Getenv("STATUS_RESET_MS"), settings.DefaultResetDelay),
		},
		RedisDSN:        os.Getenv("REDIS_DSN"),
		EncryptionKey:   os.Getenv("ENCRYPTION_KEY"),
		DefaultLanguage: utils.GetEnvOrDefault("DEFAULT_LANGUAGE", DefaultConstants.DefaultLanguage),
	}

	if config.EncryptionKey == "" {
		config.EncryptionKey = keyringEncryptionKey()
	}

	m.config = config

	if err := m.Validate(); err != nil {
		return err
	}

	return nil
}

// GetAuthConfig returns authentication configuration
func (m *Manager) GetAuthConfig() types.AuthConfig {
	return m.config.Auth
}

// GetCORSConfig returns CORS configuration
func (m *Manager) GetCORSConfig() types.CORSConfig {
	return m.config.CORS
}

// GetLogConfig returns logging configuration
func (m *Manager) GetLogConfig() types.LogConfig {
	return m.config.Log
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() types.DatabaseConfig {
	return m.config.Database
}

// GetStorageConfig returns the settings backend configuration
func (m *Manager) GetStorageConfig() types.StorageConfig {
	return m.config.Storage
}

// GetSyncConfig returns the refresh and notification timing
func (m *Manager) GetSyncConfig() types.SyncConfig {
	return m.config.Sync
}

// GetEffectiveServerConfig returns server configuration
func (m *Manager) GetEffectiveServerConfig() types.ServerConfig {
	return m.config.Server
}

// GetRedisDSN returns the Redis DSN string.
func (m *Manager) GetRedisDSN() string {
	return m.config.RedisDSN
}

// GetEncryptionKey returns the encryption key.
func (m *Manager) GetEncryptionKey() string {
	return m.config.EncryptionKey
}

// GetDefaultLanguage returns the language used when a request names none.
func (m *Manager) GetDefaultLanguage() string {
	return m.config.DefaultLanguage
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	var validationErrors []string

	if m.config.Server.Port < DefaultConstants.MinPort || m.config.Server.Port > DefaultConstants.MaxPort {
		validationErrors = append(validationErrors, fmt.Sprintf("port must be between %d-%d", DefaultConstants.MinPort, DefaultConstants.MaxPort))
	}

	if m.config.Auth.Key == "" {
		validationErrors = append(validationErrors, "AUTH_KEY is required and cannot be empty")
	}

	if m.config.CORS.Enabled && len(m.config.CORS.AllowedOrigins) == 0 {
		validationErrors = append(validationErrors, "ALLOWED_ORIGINS must be set when CORS is enabled")
	}

	switch m.config.Storage.Backend {
	case "", store.BackendMemory, store.BackendFile:
	case store.BackendDatabase:
		if m.config.Database.DSN == "" {
			validationErrors = append(validationErrors, "STORE_BACKEND=database requires DATABASE_DSN")
		}
	case store.BackendRedis:
		if m.config.RedisDSN == "" {
			validationErrors = append(validationErrors, "STORE_BACKEND=redis requires REDIS_DSN")
		}
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("STORE_BACKEND must be one of memory, file, database, redis, got %q", m.config.Storage.Backend))
	}

	if m.config.Sync.RefreshInterval < DefaultConstants.MinRefreshInterval {
		validationErrors = append(validationErrors, fmt.Sprintf("REFRESH_INTERVAL_SECONDS must be at least %d", int(DefaultConstants.MinRefreshInterval/time.Second)))
	}

	if m.config.Sync.StatusResetDelay <= 0 || m.config.Sync.StatusResetDelay > DefaultConstants.MaxStatusResetDelay {
		validationErrors = append(validationErrors, "STATUS_RESET_MS must be between 1 and 60000")
	}

	if !isSupportedLanguage(m.config.DefaultLanguage) {
		validationErrors = append(validationErrors, fmt.Sprintf("DEFAULT_LANGUAGE must be one of %s", strings.Join(DefaultConstants.SupportedLanguages, ", ")))
	}

	if len(validationErrors) > 0 {
		logrus.Error("Configuration validation failed:")
		for _, err := range validationErrors {
			logrus.Errorf("   - %s", err)
		}
		return fmt.Errorf("configuration validation failed: %s", strings.Join(validationErrors, "; "))
	}

	return nil
}

func isSupportedLanguage(lang string) bool {
	for _, supported := range DefaultConstants.SupportedLanguages {
		if strings.EqualFold(lang, supported) {
			return true
		}
	}
	return false
}

// DisplayServerConfig displays current server-related configuration information
func (m *Manager) DisplayServerConfig() {
	serverConfig := m.GetEffectiveServerConfig()
	corsConfig := m.GetCORSConfig()
	logConfig := m.GetLogConfig()
	storageConfig := m.GetStorageConfig()
	syncConfig := m.GetSyncConfig()

	logrus.Info("")
	logrus.Info("======= Server Configuration =======")
	logrus.Info("  --- Server ---")
	logrus.Infof("    Listen Address: %s:%d", serverConfig.Host, serverConfig.Port)
	logrus.Infof("    Graceful Shutdown Timeout: %d seconds", serverConfig.GracefulShutdownTimeout)
	logrus.Infof("    Read Timeout: %d seconds", serverConfig.ReadTimeout)
	logrus.Infof("    Write Timeout: %d seconds", serverConfig.WriteTimeout)
	logrus.Infof("    Idle Timeout: %d seconds", serverConfig.IdleTimeout)

	logrus.Info("  --- Settings Storage ---")
	backend := storageConfig.Backend
	if backend == "" {
		backend = "auto"
	}
	logrus.Infof("    Backend: %s", backend)
	logrus.Infof("    Data Directory: %s", storageConfig.DataDir)
	logrus.Infof("    Database: %s", enabledString(m.config.Database.DSN != ""))
	logrus.Infof("    Redis: %s", enabledString(m.config.RedisDSN != ""))
	logrus.Infof("    Encryption: %s", enabledString(m.config.EncryptionKey != ""))

	logrus.Info("  --- Sync ---")
	logrus.Infof("    Channel: %s", syncConfig.Channel)
	logrus.Infof("    Refresh Interval: %s", syncConfig.RefreshInterval)
	logrus.Infof("    Status Reset Delay: %s", syncConfig.StatusResetDelay)

	logrus.Info("  --- Security ---")
	logrus.Infof("    Authentication: %s", enabledString(m.config.Auth.Key != ""))
	corsStatus := "disabled"
	if corsConfig.Enabled {
		corsStatus = fmt.Sprintf("enabled (Origins: %s)", strings.Join(corsConfig.AllowedOrigins, ", "))
	}
	logrus.Infof("    CORS: %s", corsStatus)

	logrus.Info("  --- Logging ---")
	logrus.Infof("    Log Level: %s", logConfig.Level)
	logrus.Infof("    Log Format: %s", logConfig.Format)
	logrus.Infof("    File Logging: %t", logConfig.EnableFile)
	if logConfig.EnableFile {
		logrus.Infof("    Log File Path: %s", logConfig.FilePath)
	}
	logrus.Infof("    Default Language: %s", m.config.DefaultLanguage)
	logrus.Info("====================================")
	logrus.Info("")
}

func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

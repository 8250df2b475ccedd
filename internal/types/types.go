package types

import "time"

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetAuthConfig() AuthConfig
	GetCORSConfig() CORSConfig
	GetLogConfig() LogConfig
	GetDatabaseConfig() DatabaseConfig
	GetStorageConfig() StorageConfig
	GetSyncConfig() SyncConfig
	GetEffectiveServerConfig() ServerConfig
	GetRedisDSN() string
	GetEncryptionKey() string
	GetDefaultLanguage() string
	Validate() error
	DisplayServerConfig()
	ReloadConfig() error
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port                    int    `json:"port"`
	Host                    string `json:"host"`
	ReadTimeout             int    `json:"read_timeout"`
	WriteTimeout            int    `json:"write_timeout"`
	IdleTimeout             int    `json:"idle_timeout"`
	GracefulShutdownTimeout int    `json:"graceful_shutdown_timeout"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Key string `json:"key"`
}

// CORSConfig represents CORS configuration
type CORSConfig struct {
	Enabled          bool     `json:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	EnableFile bool   `json:"enable_file"`
	FilePath   string `json:"file_path"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

// StorageConfig selects and configures the settings backend
type StorageConfig struct {
	Backend string `json:"backend"` // memory, file, database, redis; empty means auto
	DataDir string `json:"data_dir"`
}

// SyncConfig holds the timing of the settings synchronization loop
type SyncConfig struct {
	Channel          string        `json:"channel"`
	RefreshInterval  time.Duration `json:"refresh_interval"`
	StatusResetDelay time.Duration `json:"status_reset_delay"`
}

// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Address         string   `mapstructure:"address"`
	ReadTimeout     int      `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int      `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowedUsers    []string `mapstructure:"allowed_users"` // empty list disables the gate
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EngineConfig holds settings for the question-answering pipeline.
type EngineConfig struct {
	Timezone          string      `mapstructure:"timezone"`      // IANA name, e.g. Europe/London
	WeekStart         string      `mapstructure:"week_start"`    // monday or sunday
	QueryTimeout      int         `mapstructure:"query_timeout"` // milliseconds
	DefaultLimit      int         `mapstructure:"default_limit"`
	MaxLimit          int         `mapstructure:"max_limit"`
	MaxQuestionLength int         `mapstructure:"max_question_length"`
	MinConfidence     float64     `mapstructure:"min_confidence"`
	Cache             CacheConfig `mapstructure:"cache"`
}

// CacheConfig holds result-cache and conversation-history settings.
type CacheConfig struct {
	TTL         int    `mapstructure:"ttl"`          // seconds
	HistoryTTL  int    `mapstructure:"history_ttl"`  // seconds
	HistorySize int    `mapstructure:"history_size"` // exchanges kept per session
	KeyPrefix   string `mapstructure:"key_prefix"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

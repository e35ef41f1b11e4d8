package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all server configuration loaded from environment variables.
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Server     ServerConfig
	SelfHosted bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// RealtimeConfig tunes the client reconciliation engine. It is loaded
// separately from the server Config because only client binaries consume
// it. Timestamp-based conflict resolution depends on these windows, so
// they are explicit configuration rather than hard-coded constants.
type RealtimeConfig struct {
	// ReconcileTolerance absorbs clock skew when comparing a local record's
	// timestamp against an incoming event's.
	ReconcileTolerance time.Duration
	// PendingTimeout expires unconfirmed optimistic client updates.
	PendingTimeout time.Duration
	// DependencyTTL bounds how long an out-of-order event waits for its
	// missing parent before being dropped.
	DependencyTTL time.Duration
	// BatchGrace is the straggler window before a tracked bulk operation
	// releases a partial set of echoes.
	BatchGrace time.Duration
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("PLANK_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("PLANK_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("PLANK_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("PLANK_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshTTL, err := getEnvDuration("PLANK_JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("PLANK_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("PLANK_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	selfHosted, err := getEnvBool("PLANK_SELF_HOSTED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("PLANK_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("PLANK_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("PLANK_DB_USER", "plank"),
			Password: getEnv("PLANK_DB_PASSWORD", ""),
			DBName:   getEnv("PLANK_DB_NAME", "plank_dev"),
			SSLMode:  getEnv("PLANK_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("PLANK_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("PLANK_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:     getEnv("PLANK_JWT_SECRET", ""),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("PLANK_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		SelfHosted: selfHosted,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("PLANK_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("PLANK_JWT_SECRET must be at least 32 characters")
	}

	// DB SSL mode warning for non-self-hosted deployments.
	if c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("PLANK_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("PLANK_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("PLANK_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("PLANK_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("PLANK_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("PLANK_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("PLANK_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}

	return nil
}

// LoadRealtime reads the reconciliation engine tuning from environment
// variables. Client binaries call this alongside their own flag parsing.
func LoadRealtime() (RealtimeConfig, error) {
	tolerance, err := getEnvDuration("PLANK_RECONCILE_TOLERANCE", 1500*time.Millisecond)
	if err != nil {
		return RealtimeConfig{}, fmt.Errorf("config.LoadRealtime: %w", err)
	}

	pendingTimeout, err := getEnvDuration("PLANK_PENDING_TIMEOUT", 10*time.Second)
	if err != nil {
		return RealtimeConfig{}, fmt.Errorf("config.LoadRealtime: %w", err)
	}

	dependencyTTL, err := getEnvDuration("PLANK_DEPENDENCY_TTL", 5*time.Second)
	if err != nil {
		return RealtimeConfig{}, fmt.Errorf("config.LoadRealtime: %w", err)
	}

	batchGrace, err := getEnvDuration("PLANK_BATCH_GRACE", 400*time.Millisecond)
	if err != nil {
		return RealtimeConfig{}, fmt.Errorf("config.LoadRealtime: %w", err)
	}

	rc := RealtimeConfig{
		ReconcileTolerance: tolerance,
		PendingTimeout:     pendingTimeout,
		DependencyTTL:      dependencyTTL,
		BatchGrace:         batchGrace,
	}

	err = rc.validate()
	if err != nil {
		return RealtimeConfig{}, fmt.Errorf("config.LoadRealtime: %w", err)
	}

	return rc, nil
}

func (r RealtimeConfig) validate() error {
	if r.ReconcileTolerance < 0 {
		return fmt.Errorf("PLANK_RECONCILE_TOLERANCE must not be negative, got %s", r.ReconcileTolerance)
	}
	if r.PendingTimeout <= 0 {
		return fmt.Errorf("PLANK_PENDING_TIMEOUT must be positive, got %s", r.PendingTimeout)
	}
	if r.DependencyTTL <= 0 {
		return fmt.Errorf("PLANK_DEPENDENCY_TTL must be positive, got %s", r.DependencyTTL)
	}
	if r.BatchGrace <= 0 {
		return fmt.Errorf("PLANK_BATCH_GRACE must be positive, got %s", r.BatchGrace)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

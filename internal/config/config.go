package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/richharbor/access-service/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Workflow     WorkflowConfig
	RateLimit    RateLimitConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	PublicBaseURL         string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// File enables a rotating file sink in addition to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// WorkflowConfig tunes the role-upgrade and onboarding workflows.
type WorkflowConfig struct {
	MinResubmitInterval     time.Duration
	UpgradeLadder           domain.Ladder
	RequiredOnboardingSteps []int
	// SchemaDir overrides the built-in JSON schemas when set.
	SchemaDir string
}

// RateLimitConfig configures the Redis fixed-window limiters.
type RateLimitConfig struct {
	Enabled      bool
	Window       time.Duration
	GlobalPoints int
	AuthPoints   int
	FailOpen     bool
}

// NotificationConfig selects the outbound channels.
type NotificationConfig struct {
	AWSRegion   string
	EmailFrom   string
	SNSTopicARN string
}

// Load reads configuration from .env and the environment, applying defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	ladder, err := parseLadder(v.GetString("WORKFLOW_UPGRADE_LADDER"))
	if err != nil {
		return nil, err
	}
	steps, err := parseSteps(v.GetString("WORKFLOW_REQUIRED_ONBOARDING_STEPS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  v.GetString("APP_NAME"),
			Env:                   v.GetString("APP_ENV"),
			Host:                  v.GetString("APP_HOST"),
			Port:                  v.GetString("APP_PORT"),
			Version:               v.GetString("APP_VERSION"),
			RequestTimeoutSeconds: v.GetInt("HTTP_REQUEST_TIMEOUT_SECONDS"),
			PublicBaseURL:         strings.TrimRight(v.GetString("APP_PUBLIC_BASE_URL"), "/"),
		},
		Postgres: PostgresConfig{
			DSN:            v.GetString("POSTGRES_DSN"),
			MaxConns:       v.GetInt32("POSTGRES_MAX_CONNS"),
			MinConns:       v.GetInt32("POSTGRES_MIN_CONNS"),
			RunMigrations:  v.GetBool("POSTGRES_RUN_MIGRATIONS"),
			ConnMaxIdleSec: v.GetInt32("POSTGRES_CONN_MAX_IDLE_SECONDS"),
			ConnMaxLifeSec: v.GetInt32("POSTGRES_CONN_MAX_LIFE_SECONDS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Logger: LoggerConfig{
			Level:      v.GetString("LOG_LEVEL"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		},
		Auth: AuthConfig{
			JWTSecret:             v.GetString("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes: v.GetInt("AUTH_ACCESS_TOKEN_TTL_MINUTES"),
			BcryptCost:            v.GetInt("AUTH_BCRYPT_COST"),
		},
		Workflow: WorkflowConfig{
			MinResubmitInterval:     v.GetDuration("WORKFLOW_MIN_RESUBMIT_INTERVAL"),
			UpgradeLadder:           ladder,
			RequiredOnboardingSteps: steps,
			SchemaDir:               v.GetString("WORKFLOW_SCHEMA_DIR"),
		},
		RateLimit: RateLimitConfig{
			Enabled:      v.GetBool("RATE_LIMIT_ENABLED"),
			Window:       v.GetDuration("RATE_LIMIT_WINDOW"),
			GlobalPoints: v.GetInt("RATE_LIMIT_GLOBAL_POINTS"),
			AuthPoints:   v.GetInt("RATE_LIMIT_AUTH_POINTS"),
			FailOpen:     v.GetBool("RATE_LIMIT_FAIL_OPEN"),
		},
		Notification: NotificationConfig{
			AWSRegion:   v.GetString("AWS_REGION"),
			EmailFrom:   v.GetString("NOTIFY_EMAIL_FROM"),
			SNSTopicARN: v.GetString("NOTIFY_SNS_TOPIC_ARN"),
		},
	}

	if cfg.Workflow.MinResubmitInterval < 0 {
		return nil, fmt.Errorf("invalid WORKFLOW_MIN_RESUBMIT_INTERVAL: must not be negative")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET must not be empty")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "access-service")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_HOST", "0.0.0.0")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_VERSION", "dev")
	v.SetDefault("APP_PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("HTTP_REQUEST_TIMEOUT_SECONDS", 30)

	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("POSTGRES_MAX_CONNS", 10)
	v.SetDefault("POSTGRES_MIN_CONNS", 2)
	v.SetDefault("POSTGRES_RUN_MIGRATIONS", true)
	v.SetDefault("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)
	v.SetDefault("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)

	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)

	v.SetDefault("AUTH_JWT_SECRET", "dev-secret")
	v.SetDefault("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60)
	v.SetDefault("AUTH_BCRYPT_COST", 12)

	v.SetDefault("WORKFLOW_MIN_RESUBMIT_INTERVAL", "24h")
	v.SetDefault("WORKFLOW_UPGRADE_LADDER", "customer,referral_partner,partner")
	v.SetDefault("WORKFLOW_REQUIRED_ONBOARDING_STEPS", "1,2,3,4,5")
	v.SetDefault("WORKFLOW_SCHEMA_DIR", "")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("RATE_LIMIT_GLOBAL_POINTS", 100)
	v.SetDefault("RATE_LIMIT_AUTH_POINTS", 10)
	v.SetDefault("RATE_LIMIT_FAIL_OPEN", false)

	v.SetDefault("AWS_REGION", "")
	v.SetDefault("NOTIFY_EMAIL_FROM", "noreply@example.com")
	v.SetDefault("NOTIFY_SNS_TOPIC_ARN", "")
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// IsDevelopment reports whether the service runs in development mode.
func (a AppConfig) IsDevelopment() bool {
	return strings.EqualFold(a.Env, "development")
}

func parseLadder(raw string) (domain.Ladder, error) {
	var ladder domain.Ladder
	seen := map[domain.PrimaryRole]bool{}
	for _, part := range strings.Split(raw, ",") {
		role := domain.PrimaryRole(strings.TrimSpace(part))
		if role == "" {
			continue
		}
		if !role.Valid() || role == domain.RoleAdmin {
			return nil, fmt.Errorf("invalid WORKFLOW_UPGRADE_LADDER entry %q", role)
		}
		if seen[role] {
			return nil, fmt.Errorf("duplicate WORKFLOW_UPGRADE_LADDER entry %q", role)
		}
		seen[role] = true
		ladder = append(ladder, role)
	}
	if len(ladder) < 2 {
		return nil, fmt.Errorf("WORKFLOW_UPGRADE_LADDER needs at least two roles")
	}
	return ladder, nil
}

func parseSteps(raw string) ([]int, error) {
	var steps []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		step, err := strconv.Atoi(part)
		if err != nil || step < 1 {
			return nil, fmt.Errorf("invalid WORKFLOW_REQUIRED_ONBOARDING_STEPS entry %q", part)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

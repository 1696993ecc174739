package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
	BodyLimit   string   `mapstructure:"BODY_LIMIT"`

	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFile       string `mapstructure:"LOG_FILE"`
	LogMaxSizeMB  int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `mapstructure:"LOG_MAX_AGE_DAYS"`

	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	AuthJWTSecret string `mapstructure:"AUTH_JWT_SECRET"`
	AuthIssuer    string `mapstructure:"AUTH_ISSUER"`
	AuthAudience  string `mapstructure:"AUTH_AUDIENCE"`

	ReasonerURL      string        `mapstructure:"REASONER_URL"`
	ReasonerAppID    string        `mapstructure:"REASONER_APP_ID"`
	ReasonerAppKey   string        `mapstructure:"REASONER_APP_KEY"`
	ReasonerTimeout  time.Duration `mapstructure:"REASONER_TIMEOUT"`
	ReasonerFallback bool          `mapstructure:"REASONER_FALLBACK"`

	InterviewMaxQuestions int           `mapstructure:"INTERVIEW_MAX_QUESTIONS"`
	InterviewMaxPresent   int           `mapstructure:"INTERVIEW_MAX_PRESENT"`
	InterviewTTL          time.Duration `mapstructure:"INTERVIEW_TTL"`
	KnowledgeSource       string        `mapstructure:"KNOWLEDGE_SOURCE"`

	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	SearchCacheTTL time.Duration `mapstructure:"SEARCH_CACHE_TTL"`
	NATSURL        string        `mapstructure:"NATS_URL"`

	OpenAIAPIKey  string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel   string `mapstructure:"OPENAI_MODEL"`
	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL"`
}

var defaults = map[string]interface{}{
	"PORT":                    "8080",
	"ENV":                     "development",
	"CORS_ORIGINS":            "http://localhost:3000",
	"BODY_LIMIT":              "64K",
	"LOG_LEVEL":               "info",
	"LOG_MAX_SIZE_MB":         10,
	"LOG_MAX_BACKUPS":         5,
	"LOG_MAX_AGE_DAYS":        30,
	"RATE_LIMIT_RPS":          20,
	"RATE_LIMIT_BURST":        40,
	"REQUEST_TIMEOUT":         "30s",
	"REASONER_TIMEOUT":        "10s",
	"REASONER_FALLBACK":       true,
	"INTERVIEW_MAX_QUESTIONS": 5,
	"INTERVIEW_MAX_PRESENT":   4,
	"INTERVIEW_TTL":           "2h",
	"KNOWLEDGE_SOURCE":        "builtin",
	"DB_MAX_CONNS":            10,
	"DB_MIN_CONNS":            1,
	"SEARCH_CACHE_TTL":        "15m",
	"OPENAI_MODEL":            "gpt-4o-mini",
}

var keys = []string{
	"PORT", "ENV", "CORS_ORIGINS", "BODY_LIMIT",
	"LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
	"AUTH_JWT_SECRET", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"REASONER_URL", "REASONER_APP_ID", "REASONER_APP_KEY", "REASONER_TIMEOUT", "REASONER_FALLBACK",
	"INTERVIEW_MAX_QUESTIONS", "INTERVIEW_MAX_PRESENT", "INTERVIEW_TTL", "KNOWLEDGE_SOURCE",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL", "SEARCH_CACHE_TTL", "NATS_URL",
	"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
}

// Load reads an optional .env file and the environment, then validates the
// result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesPostgresKnowledge reports whether the knowledge table is read from the
// database rather than the builtin table or a file.
func (c *Config) UsesPostgresKnowledge() bool {
	return c.KnowledgeSource == "postgres"
}

func (c *Config) Validate() error {
	if c.InterviewMaxQuestions <= 0 {
		return fmt.Errorf("INTERVIEW_MAX_QUESTIONS must be positive, got %d", c.InterviewMaxQuestions)
	}
	if c.InterviewMaxPresent <= 0 {
		return fmt.Errorf("INTERVIEW_MAX_PRESENT must be positive, got %d", c.InterviewMaxPresent)
	}
	if c.InterviewTTL <= 0 {
		return fmt.Errorf("INTERVIEW_TTL must be positive, got %s", c.InterviewTTL)
	}
	if c.KnowledgeSource == "" {
		return fmt.Errorf("KNOWLEDGE_SOURCE must be \"builtin\", \"postgres\" or a file path")
	}
	if c.UsesPostgresKnowledge() && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when KNOWLEDGE_SOURCE is \"postgres\"")
	}
	if c.IsProduction() && c.AuthJWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required in production")
	}
	if c.ReasonerURL != "" && (c.ReasonerAppID == "" || c.ReasonerAppKey == "") {
		return fmt.Errorf("REASONER_APP_ID and REASONER_APP_KEY are required when REASONER_URL is set")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}

// Package config loads the process configuration from an optional dotenv
// file and the environment into an explicit Config value.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sanjuz-cas/llm-kg-project/engine/domain"
	"github.com/spf13/viper"
)

// DefaultEnvFile is read when LoadOptions.EnvFile is empty.
const DefaultEnvFile = ".env"

// Environment keys.
const (
	KeyNeo4jURI        = "NEO4J_URI"
	KeyNeo4jUsername   = "NEO4J_USERNAME"
	KeyNeo4jPassword   = "NEO4J_PASSWORD"
	KeyNeo4jDatabase   = "NEO4J_DATABASE"
	KeyGoogleAPIKey    = "GOOGLE_API_KEY"
	KeyLLMModel        = "LLM_MODEL"
	KeyLLMTemperature  = "LLM_TEMPERATURE"
	KeyNATSURL         = "NATS_URL"
	KeyNATSAudit       = "NATS_AUDIT_SUBJECT"
	KeyNATSEvents      = "NATS_EVENT_SUBJECT"
	KeyLogLevel        = "LOG_LEVEL"
	KeyLogFormat       = "LOG_FORMAT"
	KeyMetricsAddr     = "METRICS_ADDR"
	KeyQARatePerMinute = "QA_RATE_PER_MINUTE"
	KeyQATopK          = "QA_TOP_K"
)

// Config is the whole process configuration.
type Config struct {
	Neo4j   Neo4j
	LLM     LLM
	NATS    NATS
	Log     Log
	Metrics Metrics
	QA      QA

	// source names where required keys were expected, for error messages.
	source string
}

type Neo4j struct {
	URI      string
	Username string
	Password string
	Database string
}

type LLM struct {
	APIKey      string
	Model       string
	Temperature float64
}

// NATS is disabled when URL is empty.
type NATS struct {
	URL          string
	AuditSubject string
	EventSubject string
}

type Log struct {
	Level  string
	Format string
}

// Metrics is disabled when Addr is empty.
type Metrics struct {
	Addr string
}

type QA struct {
	RatePerMinute int
	TopK          int
}

// LoadOptions controls Load.
type LoadOptions struct {
	// EnvFile is the dotenv file to read. When empty DefaultEnvFile is read
	// if it exists.
	EnvFile string
	Logger  *slog.Logger
}

// Load reads the dotenv file into the process environment and builds a
// Config. Variables already set in the environment win over the file.
// Presence of required keys is not checked here; see RequireNeo4j and
// RequireLLM.
func Load(opts LoadOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	path := opts.EnvFile
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if opts.EnvFile != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		logger.Debug("no env file found, using environment variables", "path", path)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Neo4j: Neo4j{
			URI:      strings.TrimSpace(v.GetString(KeyNeo4jURI)),
			Username: v.GetString(KeyNeo4jUsername),
			Password: v.GetString(KeyNeo4jPassword),
			Database: v.GetString(KeyNeo4jDatabase),
		},
		LLM: LLM{
			APIKey:      strings.TrimSpace(v.GetString(KeyGoogleAPIKey)),
			Model:       v.GetString(KeyLLMModel),
			Temperature: v.GetFloat64(KeyLLMTemperature),
		},
		NATS: NATS{
			URL:          v.GetString(KeyNATSURL),
			AuditSubject: v.GetString(KeyNATSAudit),
			EventSubject: v.GetString(KeyNATSEvents),
		},
		Log: Log{
			Level:  strings.ToLower(v.GetString(KeyLogLevel)),
			Format: strings.ToLower(v.GetString(KeyLogFormat)),
		},
		Metrics: Metrics{Addr: v.GetString(KeyMetricsAddr)},
		QA: QA{
			RatePerMinute: v.GetInt(KeyQARatePerMinute),
			TopK:          v.GetInt(KeyQATopK),
		},
		source: path,
	}
	if cfg.QA.TopK <= 0 {
		cfg.QA.TopK = 10
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyLLMModel, "gemini-2.5-pro")
	v.SetDefault(KeyLLMTemperature, 0.0)
	v.SetDefault(KeyNATSAudit, "amrgraph.audit.cypher")
	v.SetDefault(KeyNATSEvents, "amrgraph.ingest.rows")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyQATopK, 10)
}

// RequireNeo4j reports the first missing Neo4j credential.
func (c *Config) RequireNeo4j() error {
	switch {
	case c.Neo4j.URI == "":
		return c.missing(KeyNeo4jURI)
	case c.Neo4j.Username == "":
		return c.missing(KeyNeo4jUsername)
	case c.Neo4j.Password == "":
		return c.missing(KeyNeo4jPassword)
	}
	return nil
}

// RequireLLM reports a missing model provider key.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return c.missing(KeyGoogleAPIKey)
	}
	return nil
}

func (c *Config) missing(key string) error {
	src := c.source
	if src == "" || src == DefaultEnvFile {
		src = ".env file"
	}
	return &domain.ConfigError{Key: key, Source: src}
}

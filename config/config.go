package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/aa-analytics/funnelreport/pkg/validation"
)

// Config carries every environment-derived setting the pipeline needs. It is
// parsed once at startup and passed down explicitly; nothing reads the
// environment mid-run.
type Config struct {
	// DrillHost and DrillPort locate the Apache Drill REST endpoint the
	// fetcher queries for funnel CSVs.
	DrillHost string `split_words:"true" default:"localhost"`
	DrillPort int    `split_words:"true" default:"8047" validate:"min=1,max=65535"`

	// DrillBasePath is the dfs directory holding per-date funnel CSV folders.
	DrillBasePath string `split_words:"true" default:"/data/user-funnel" validate:"required"`

	// QueryTimeout bounds each Drill request; QueryAttempts bounds retries on
	// transport failures and 5xx responses.
	QueryTimeout  time.Duration `split_words:"true" default:"30s"`
	QueryAttempts int           `split_words:"true" default:"3" validate:"min=1"`

	// OutputDir receives the rendered .xlsx workbooks.
	OutputDir string `split_words:"true" default:"./output" validate:"required"`

	// RecipientsPath points at the entity -> To/CC mapping file.
	RecipientsPath string `split_words:"true" default:"recipients.json" validate:"required"`

	// MaxConcurrentEntities caps how many entity reports are generated at once.
	MaxConcurrentEntities int `split_words:"true" default:"4" validate:"min=1"`

	SMTP SMTPConfig
}

// SMTPConfig configures report delivery. Empty user or password disables
// mail; the pipeline still writes workbooks.
type SMTPConfig struct {
	From     string `envconfig:"SMTP_FROM"`
	Host     string `envconfig:"SMTP_HOST" default:"smtp.example.com"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	User     string `envconfig:"SMTP_USER"`
	Password string `envconfig:"SMTP_PASSWORD"`
}

// Enabled reports whether credentials are present to actually send mail.
func (s SMTPConfig) Enabled() bool {
	return s.User != "" && s.Password != ""
}

// Load reads .env when present, parses FUNNEL_* environment variables and
// validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	var cfg Config
	if err := envconfig.Process("funnel", &cfg); err != nil {
		_ = envconfig.Usage("funnel", &cfg)
		return nil, errors.Wrap(err, "parse configuration")
	}

	if msg := validation.ValidateStruct(&cfg); msg != "" {
		return nil, errors.Errorf("invalid configuration: %s", msg)
	}
	return &cfg, nil
}

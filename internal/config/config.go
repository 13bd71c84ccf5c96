package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Mail     MailConfig     `yaml:"mail"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Poll     PollConfig     `yaml:"poll"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// MailConfig holds IMAP account settings.
type MailConfig struct {
	Host     string `yaml:"host"     env:"MAIL_HOST"     env-required:"true"` // host:port, e.g. imap.gmail.com:993
	Username string `yaml:"username" env:"MAIL_USERNAME" env-required:"true"`
	// AuthMode selects how the account is authenticated: "password" uses
	// Password (or an app password), "xoauth2" uses either a static
	// AccessToken or, when ClientID is set, tokens minted from RefreshToken.
	AuthMode    string `yaml:"auth_mode"    env:"MAIL_AUTH_MODE"    env-default:"password"`
	Password    string `yaml:"password"     env:"MAIL_PASSWORD"`
	AccessToken string `yaml:"access_token" env:"MAIL_ACCESS_TOKEN"`

	// OAuth2 refresh flow. Access tokens for IMAP expire within the hour, so
	// long-running deployments configure these instead of AccessToken.
	ClientID     string `yaml:"client_id"     env:"MAIL_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"MAIL_CLIENT_SECRET"`
	RefreshToken string `yaml:"refresh_token" env:"MAIL_REFRESH_TOKEN"`
	TokenURL     string `yaml:"token_url"     env:"MAIL_TOKEN_URL" env-default:"https://oauth2.googleapis.com/token"`
	Mailbox     string `yaml:"mailbox"      env:"MAIL_MAILBOX"      env-default:"INBOX"`
	// MaxBatch caps how many messages one poll fetches.
	MaxBatch int `yaml:"max_batch" env:"MAIL_MAX_BATCH" env-default:"200"`
	// InitialLookback bounds the first poll when no last-checked timestamp
	// has been recorded yet.
	InitialLookback time.Duration `yaml:"initial_lookback" env:"MAIL_INITIAL_LOOKBACK" env-default:"720h"`
}

// PipelineConfig holds inference pipeline tuning knobs.
type PipelineConfig struct {
	// SimilarityThreshold is the joint (organization, role) fuzzy-match
	// threshold in [0,1] for resolving a message to an existing application.
	SimilarityThreshold float64 `yaml:"similarity_threshold" env:"PIPELINE_SIMILARITY_THRESHOLD" env-default:"0.80"`
	// ConfidenceFloor is the classifier confidence assigned to a single weak
	// keyword match.
	ConfidenceFloor float64 `yaml:"confidence_floor" env:"PIPELINE_CONFIDENCE_FLOOR" env-default:"0.5"`
	// ExtraPlatformDomains extends the built-in platform domain allow-list,
	// comma-separated "domain=PlatformName" pairs.
	ExtraPlatformDomains string `yaml:"extra_platform_domains" env:"PIPELINE_EXTRA_PLATFORM_DOMAINS"`
}

// PollConfig holds the continuous-mode polling settings.
type PollConfig struct {
	Interval time.Duration `yaml:"interval" env:"POLL_INTERVAL" env-default:"2m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

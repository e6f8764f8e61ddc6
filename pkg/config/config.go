package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/prasanthmj/composer/pkg/email"
)

var (
	ErrParsingConfig = errors.New("failed to parse configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNotConfigured = errors.New("email not configured")
)

const (
	TransportDev      = "dev"
	TransportSMTP     = "smtp"
	TransportPostmark = "postmark"

	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	// Sending
	SenderEmail string `env:"SENDER_EMAIL"`
	Transport   string `env:"EMAIL_TRANSPORT" envDefault:"dev"`
	Provider    string `env:"EMAIL_PROVIDER"` // gmail, outlook, or custom

	// SMTP settings
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	// Postmark settings
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`

	// Sent-folder copy
	IMAPServer     string `env:"IMAP_SERVER"`
	IMAPPort       int    `env:"IMAP_PORT" envDefault:"993"`
	IMAPUsername   string `env:"IMAP_USERNAME"`
	IMAPPassword   string `env:"IMAP_PASSWORD"`
	IMAPSentFolder string `env:"IMAP_SENT_FOLDER"`

	// Storage settings
	FilesRoot     string `env:"FILES_ROOT" envDefault:"/tmp/email-composer"`
	StoreBackend  string `env:"STORE_BACKEND" envDefault:"file"`
	RedisURL      string `env:"REDIS_URL"`
	MongoURL      string `env:"MONGODB_URL"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"composer"`

	// Composer behavior
	ShortcutPlatform string        `env:"SHORTCUT_PLATFORM"`
	ResetDelay       time.Duration `env:"COMPOSER_RESET_DELAY" envDefault:"3s"`
	SendTimeout      time.Duration `env:"EMAIL_SEND_TIMEOUT" envDefault:"30s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Derived paths
	StoreDir  string `env:"-"`
	OutboxDir string `env:"-"`
}

// LoadConfig loads configuration from environment variables. Values in a
// .env file (or the given files) fill in variables that are not set.
func LoadConfig(envFiles ...string) (*Config, error) {
	// a missing .env file is fine
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}
	cfg.applyProvider()

	// Setup derived paths
	cfg.StoreDir = filepath.Join(cfg.FilesRoot, "store")
	cfg.OutboxDir = filepath.Join(cfg.FilesRoot, "outbox")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Create directories
	for _, dir := range []string{cfg.StoreDir, cfg.OutboxDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return cfg, nil
}

// applyProvider fills server settings for known providers unless they were
// set explicitly.
func (c *Config) applyProvider() {
	var smtpHost, imapServer string
	switch c.Provider {
	case "gmail":
		smtpHost, imapServer = "smtp.gmail.com", "imap.gmail.com"
	case "outlook":
		smtpHost, imapServer = "smtp-mail.outlook.com", "outlook.office365.com"
	default:
		return
	}
	if c.SMTPHost == "" {
		c.SMTPHost = smtpHost
	}
	if c.IMAPServer == "" {
		c.IMAPServer = imapServer
	}
}

// Validate checks settings needed at startup
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{TransportDev, TransportSMTP, TransportPostmark}, c.Transport) {
		errs = append(errs, fmt.Errorf("%w: unknown EMAIL_TRANSPORT %q", ErrInvalidConfig, c.Transport))
	}
	if !slices.Contains([]string{BackendFile, BackendRedis, BackendMemory}, c.StoreBackend) {
		errs = append(errs, fmt.Errorf("%w: unknown STORE_BACKEND %q", ErrInvalidConfig, c.StoreBackend))
	}
	if c.StoreBackend == BackendRedis && c.RedisURL == "" {
		errs = append(errs, fmt.Errorf("%w: REDIS_URL is required for the redis backend", ErrInvalidConfig))
	}
	if c.ResetDelay <= 0 {
		errs = append(errs, fmt.Errorf("%w: COMPOSER_RESET_DELAY must be positive", ErrInvalidConfig))
	}
	if c.SendTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: EMAIL_SEND_TIMEOUT must be positive", ErrInvalidConfig))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("%w: LOG_FORMAT must be text or json", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// ValidateForOperation checks that the selected transport can send
func (c *Config) ValidateForOperation() error {
	switch c.Transport {
	case TransportSMTP:
		if c.SenderEmail == "" {
			return fmt.Errorf("%w: SENDER_EMAIL environment variable is required", ErrNotConfigured)
		}
		if c.SMTPHost == "" || c.SMTPPort == 0 {
			return fmt.Errorf("%w: SMTP server configuration is incomplete", ErrNotConfigured)
		}
		if c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("%w: SMTP_USERNAME and SMTP_PASSWORD are required", ErrNotConfigured)
		}
	case TransportPostmark:
		if c.SenderEmail == "" {
			return fmt.Errorf("%w: SENDER_EMAIL environment variable is required", ErrNotConfigured)
		}
		if c.PostmarkServerToken == "" || c.PostmarkAccountToken == "" {
			return fmt.Errorf("%w: POSTMARK_SERVER_TOKEN and POSTMARK_ACCOUNT_TOKEN are required", ErrNotConfigured)
		}
	}
	return nil
}

// IsArchiveConfigured reports whether sent messages should be copied to an
// IMAP Sent folder
func (c *Config) IsArchiveConfigured() bool {
	return c.IMAPServer != "" && c.IMAPUsername != "" && c.IMAPPassword != ""
}

func (c *Config) SMTP() email.SMTPConfig {
	return email.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SenderEmail,
	}
}

func (c *Config) Postmark() email.PostmarkConfig {
	return email.PostmarkConfig{
		ServerToken:  c.PostmarkServerToken,
		AccountToken: c.PostmarkAccountToken,
		From:         c.SenderEmail,
		Tag:          "composer",
	}
}

func (c *Config) IMAP() email.IMAPConfig {
	return email.IMAPConfig{
		Server:   c.IMAPServer,
		Port:     c.IMAPPort,
		Username: c.IMAPUsername,
		Password: c.IMAPPassword,
		Folder:   c.IMAPSentFolder,
		Timeout:  c.SendTimeout,
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the runtime configuration of the membership API, loaded from the environment.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// StorageBackend is one of memory, sqlite, postgres.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	DatabaseURL    string `env:"DATABASE_URL"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"data/membership.db"`
	DBMaxConns     int32  `env:"DB_MAX_CONNS" envDefault:"10"`

	Blob BlobConfig
	Card CardConfig
	Mail MailConfig
	Auth AuthConfig

	MemberNumberPrefix   string `env:"MEMBER_NUMBER_PREFIX" envDefault:"ALU"`
	MemberNumberTimezone string `env:"MEMBER_NUMBER_TZ" envDefault:"UTC"`

	// RegistrationRate is the sustained number of public registrations accepted per minute.
	RegistrationRate  float64 `env:"REGISTRATION_RATE_PER_MINUTE" envDefault:"5"`
	RegistrationBurst int     `env:"REGISTRATION_BURST" envDefault:"5"`

	TracingEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TracingEndpoint string `env:"OTEL_ENDPOINT"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// BlobConfig selects where photos, cards and templates are stored.
type BlobConfig struct {
	// Driver is one of fs, s3, memory.
	Driver string `env:"BLOB_DRIVER" envDefault:"fs"`
	Root   string `env:"BLOB_ROOT" envDefault:"data/blobs"`

	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Prefix          string `env:"S3_PREFIX"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3PathStyle       bool   `env:"S3_PATH_STYLE" envDefault:"false"`
}

// CardConfig controls the card renderer.
type CardConfig struct {
	Variant         string `env:"CARD_VARIANT" envDefault:"generated"`
	Preset          string `env:"CARD_PRESET" envDefault:"portrait"`
	TemplateKey     string `env:"CARD_TEMPLATE_KEY" envDefault:"templates/card_template.png"`
	FontDir         string `env:"CARD_FONT_DIR"`
	AssociationName string `env:"ASSOCIATION_NAME" envDefault:"ALUBILLES"`
	Role            string `env:"CARD_ROLE" envDefault:"MEMBER"`
}

// MailConfig selects the notification transport.
type MailConfig struct {
	// Transport is one of log, smtp.
	Transport  string `env:"MAIL_TRANSPORT" envDefault:"log"`
	From       string `env:"MAIL_FROM" envDefault:"no-reply@alubilles.org"`
	AdminEmail string `env:"ADMIN_EMAIL"`
	SMTPHost   string `env:"SMTP_HOST"`
	SMTPPort   int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser   string `env:"SMTP_USERNAME"`
	SMTPPass   string `env:"SMTP_PASSWORD"`
	QueueSize  int    `env:"MAIL_QUEUE_SIZE" envDefault:"256"`
}

// AuthConfig guards the admin routes.
type AuthConfig struct {
	// Mode is basic or dev. Dev trusts the X-Debug-Admin header.
	Mode              string `env:"AUTH_MODE" envDefault:"basic"`
	AdminUser         string `env:"ADMIN_USER" envDefault:"admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	DevAdmin          string `env:"DEV_ADMIN" envDefault:"dev-admin"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements that env tags cannot express.
func (c Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be memory, sqlite or postgres (got %q)", c.StorageBackend))
	}

	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if c.Blob.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when BLOB_DRIVER=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("BLOB_DRIVER must be fs, s3 or memory (got %q)", c.Blob.Driver))
	}

	switch c.Card.Variant {
	case "generated", "overlay":
	default:
		errs = append(errs, fmt.Errorf("CARD_VARIANT must be generated or overlay (got %q)", c.Card.Variant))
	}

	switch c.Mail.Transport {
	case "log":
	case "smtp":
		if c.Mail.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required when MAIL_TRANSPORT=smtp"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_TRANSPORT must be log or smtp (got %q)", c.Mail.Transport))
	}

	switch c.Auth.Mode {
	case "dev":
	case "basic":
		if c.Auth.AdminPasswordHash == "" {
			errs = append(errs, errors.New("ADMIN_PASSWORD_HASH is required when AUTH_MODE=basic"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_MODE must be basic or dev (got %q)", c.Auth.Mode))
	}

	if strings.TrimSpace(c.MemberNumberPrefix) == "" {
		errs = append(errs, errors.New("MEMBER_NUMBER_PREFIX must not be empty"))
	}
	if _, err := time.LoadLocation(c.MemberNumberTimezone); err != nil {
		errs = append(errs, fmt.Errorf("MEMBER_NUMBER_TZ: %w", err))
	}
	if c.RegistrationRate <= 0 || c.RegistrationBurst <= 0 {
		errs = append(errs, errors.New("REGISTRATION_RATE_PER_MINUTE and REGISTRATION_BURST must be positive"))
	}
	if c.TracingEnabled && c.TracingEndpoint == "" {
		errs = append(errs, errors.New("OTEL_ENDPOINT is required when OTEL_ENABLED=true"))
	}

	return errors.Join(errs...)
}

// Location returns the time zone used to pick the member number year.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.MemberNumberTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Package config loads the site and collector configuration from the
// environment, an optional .env file and command-line flags. Flags win over
// the environment, which wins over the defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// LoadDotEnv reads KEY=VALUE pairs from the given files into the process
// environment without overriding variables already set. Missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		err := godotenv.Load(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		slog.Info("loaded environment file", "path", p)
	}
	return nil
}

// Database holds PostgreSQL connection settings. URL, when set, takes
// precedence over the individual fields.
type Database struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST"     envDefault:"localhost"`
	Port     string `env:"DB_PORT"     envDefault:"5432"`
	User     string `env:"DB_USER"     envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME"     envDefault:"techfest"`
	SSLMode  string `env:"DB_SSLMODE"  envDefault:"disable"`
}

// DSN returns the connection string for pgx.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Site configures the registration site.
type Site struct {
	Port                 string        `env:"PORT"                   envDefault:"8080"`
	BackendURL           string        `env:"BACKEND_URL"            envDefault:"http://localhost:5000"`
	StaticDir            string        `env:"STATIC_DIR"             envDefault:"./web"`
	SuccessResetDelay    time.Duration `env:"SUCCESS_RESET_DELAY"    envDefault:"15s"`
	FestivalStart        time.Time     `env:"FESTIVAL_START"         envDefault:"2025-11-27T16:00:00+05:30"`
	RegistrationDeadline time.Time     `env:"REGISTRATION_DEADLINE"`
	SessionIdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT"   envDefault:"30m"`
	SessionSweepSchedule string        `env:"SESSION_SWEEP_SCHEDULE" envDefault:"@every 1m"`
	SubmitTimeout        time.Duration `env:"SUBMIT_TIMEOUT"         envDefault:"30s"`
	OTelEndpoint         string        `env:"OTEL_ENDPOINT"`
}

// ParseSite reads the site configuration from the environment and then args.
func ParseSite(fs *flag.FlagSet, args []string) (Site, error) {
	var cfg Site
	if err := env.Parse(&cfg); err != nil {
		return Site{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.BackendURL, "backend-url", cfg.BackendURL, "base URL of the submission backend")
	fs.StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir, "directory of static assets")
	fs.DurationVar(&cfg.SuccessResetDelay, "success-reset-delay", cfg.SuccessResetDelay, "how long the success view stays up")
	fs.Func("festival-start", "festival start time (RFC 3339)", timeFlag(&cfg.FestivalStart))
	fs.Func("registration-deadline", "registration deadline (RFC 3339, empty for none)", timeFlag(&cfg.RegistrationDeadline))
	fs.DurationVar(&cfg.SessionIdleTimeout, "session-idle-timeout", cfg.SessionIdleTimeout, "close sessions idle this long")
	fs.StringVar(&cfg.SessionSweepSchedule, "session-sweep-schedule", cfg.SessionSweepSchedule, "cron spec for the idle session sweep")
	fs.DurationVar(&cfg.SubmitTimeout, "submit-timeout", cfg.SubmitTimeout, "timeout of one submission request")
	fs.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP endpoint for traces (empty disables)")
	if err := fs.Parse(args); err != nil {
		return Site{}, err
	}
	if cfg.BackendURL == "" {
		return Site{}, errors.New("backend url is required")
	}
	return cfg, nil
}

// Collector configures the submission collector.
type Collector struct {
	Port         string `env:"PORT"          envDefault:"5000"`
	ReceiptDir   string `env:"RECEIPT_DIR"   envDefault:"./receipts"`
	MaxUploadMB  int64  `env:"MAX_UPLOAD_MB" envDefault:"10"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	Database     Database
}

// ParseCollector reads the collector configuration from the environment and
// then args.
func ParseCollector(fs *flag.FlagSet, args []string) (Collector, error) {
	var cfg Collector
	if err := env.Parse(&cfg); err != nil {
		return Collector{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.ReceiptDir, "receipt-dir", cfg.ReceiptDir, "directory uploaded receipts are stored in")
	fs.Int64Var(&cfg.MaxUploadMB, "max-upload-mb", cfg.MaxUploadMB, "largest accepted submission in MiB")
	fs.StringVar(&cfg.Database.URL, "database-url", cfg.Database.URL, "PostgreSQL connection URL")
	fs.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP endpoint for traces (empty disables)")
	if err := fs.Parse(args); err != nil {
		return Collector{}, err
	}
	if cfg.MaxUploadMB <= 0 {
		return Collector{}, fmt.Errorf("max upload must be positive, got %d", cfg.MaxUploadMB)
	}
	return cfg, nil
}

func timeFlag(dst *time.Time) func(string) error {
	return func(s string) error {
		if s == "" {
			*dst = time.Time{}
			return nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("parse time %q: %w", s, err)
		}
		*dst = t
		return nil
	}
}

// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata" // RSVP_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/sakif/wedding-rsvp/internal/logger"
)

// Config is every setting the server reads at start-up.
type Config struct {
	Port   int    `env:"PORT" envDefault:"3000"`
	AppURL string `env:"APP_URL" envDefault:"http://localhost:3000"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	// GoogleRedirectURI defaults to AppURL + "/auth/google/callback".
	GoogleRedirectURI string `env:"GOOGLE_REDIRECT_URI"`
	// GoogleSheetID pins the spreadsheet; when set nothing is created or cached.
	GoogleSheetID string `env:"GOOGLE_SHEET_ID"`
	SheetTitle    string `env:"SHEET_TITLE" envDefault:"Wedding RSVPs - Maria & Andrei"`

	DBPath    string `env:"DB_PATH" envDefault:"wedding.db"`
	StaticDir string `env:"STATIC_DIR" envDefault:"dist"`

	Timezone      string        `env:"RSVP_TIMEZONE" envDefault:"Europe/Bucharest"`
	RemoteTimeout time.Duration `env:"REMOTE_TIMEOUT" envDefault:"15s"`

	// OAuthStateSecret signs the OAuth state parameter. When empty the
	// server generates one per process, which invalidates in-flight
	// consent flows on restart.
	OAuthStateSecret string `env:"OAUTH_STATE_SECRET"`
	// TokenEncryptionKey, when set, seals the stored Google credentials.
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY"`

	RSVPRatePerMinute float64 `env:"RSVP_RATE_PER_MINUTE" envDefault:"10"`
	RSVPRateBurst     int     `env:"RSVP_RATE_BURST" envDefault:"5"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads .env (if present) into the process environment, then parses
// the environment. Variables already set win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom parses environment instead of the process environment.
func LoadFrom(environment map[string]string) (Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	if cfg.GoogleRedirectURI == "" {
		cfg.GoogleRedirectURI = cfg.AppURL + "/auth/google/callback"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with. Missing Google
// credentials are not an error: the site still serves, and RSVPs answer
// "not configured" until an account is linked.
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("RSVP_TIMEZONE %q: %w", c.Timezone, err))
	}
	if c.RemoteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REMOTE_TIMEOUT must be positive, got %s", c.RemoteTimeout))
	}
	if c.RSVPRatePerMinute <= 0 {
		errs = append(errs, fmt.Errorf("RSVP_RATE_PER_MINUTE must be positive, got %g", c.RSVPRatePerMinute))
	}
	if c.RSVPRateBurst < 1 {
		errs = append(errs, fmt.Errorf("RSVP_RATE_BURST must be at least 1, got %d", c.RSVPRateBurst))
	}
	if c.OAuthStateSecret != "" && len(c.OAuthStateSecret) < 16 {
		errs = append(errs, errors.New("OAUTH_STATE_SECRET must be at least 16 characters"))
	}
	if c.TokenEncryptionKey != "" && len(c.TokenEncryptionKey) < 16 {
		errs = append(errs, errors.New("TOKEN_ENCRYPTION_KEY must be at least 16 characters"))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.LogFormat); f != "" && f != logger.FormatText && f != logger.FormatJSON {
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be text or json", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// GoogleConfigured reports whether an OAuth client is registered.
func (c Config) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// SecureCookies reports whether the site is served over HTTPS.
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(c.AppURL, "https://")
}

// Location resolves Timezone. Validate has already checked it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"assessment-service/internal/domain"
	"assessment-service/internal/scoring"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		// ShutdownTimeout bounds draining of HTTP requests and background deliveries.
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Catalog struct {
		ID   string `yaml:"id"`
		File string `yaml:"file"`
		TTL  string `yaml:"ttl"`
		// BlockedEmailDomains replaces the default free-mail blocklist when set.
		BlockedEmailDomains []string `yaml:"blocked_email_domains"`
	} `yaml:"catalog"`
	Bands   []BandThreshold `yaml:"bands"`
	Session struct {
		TTL string `yaml:"ttl"`
	} `yaml:"session"`
	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Secure   bool   `yaml:"secure"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`
	Sheets struct {
		SpreadsheetID     string `yaml:"spreadsheet_id"`
		CredentialsFile   string `yaml:"credentials_file"`
		CredentialsJSON   string `yaml:"credentials_json"`
		SubmissionSheet   string `yaml:"submission_sheet"`
		ConsultationSheet string `yaml:"consultation_sheet"`
	} `yaml:"sheets"`
	Notifications struct {
		ReplyTo                string   `yaml:"reply_to"`
		AppointmentEmail       string   `yaml:"appointment_email"`
		InternalRecipients     []string `yaml:"internal_recipients"`
		ConsultationRecipients []string `yaml:"consultation_recipients"`
		Timezone               string   `yaml:"timezone"`
		DeliveryTimeout        string   `yaml:"delivery_timeout"`
	} `yaml:"notifications"`
	Report struct {
		Title       string `yaml:"title"`
		BrandName   string `yaml:"brand_name"`
		Tagline     string `yaml:"tagline"`
		Copyright   string `yaml:"copyright"`
		Description string `yaml:"description"`
		CoverImage  string `yaml:"cover_image"`
		LogoImage   string `yaml:"logo_image"`
		Font        string `yaml:"font"`
		BoldFont    string `yaml:"bold_font"`
		LocalesFile string `yaml:"locales_file"`
	} `yaml:"report"`
}

// BandThreshold is the YAML form of a maturity band boundary.
type BandThreshold struct {
	Band string `yaml:"band"`
	Min  int    `yaml:"min"`
}

// Load reads YAML config from path, then applies environment overrides.
// A missing file is not an error: the service runs on defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}
	str("SMTP_HOST", &c.SMTP.Host)
	str("SMTP_USER", &c.SMTP.User)
	str("SMTP_PASS", &c.SMTP.Password)
	str("FROM_EMAIL", &c.SMTP.From)
	str("GOOGLE_SHEET_ID", &c.Sheets.SpreadsheetID)
	str("GOOGLE_SERVICE_ACCOUNT_CREDENTIALS", &c.Sheets.CredentialsJSON)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("DATABASE_URL", &c.Postgres.URL)
	list("INTERNAL_RECIPIENTS", &c.Notifications.InternalRecipients)
	list("CONSULTATION_RECIPIENTS", &c.Notifications.ConsultationRecipients)
	list("ALLOWED_ORIGINS", &c.Server.AllowedOrigins)
	if v, ok := lookup("SMTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		c.SMTP.Port = port
	}
	if v, ok := lookup("SMTP_SECURE"); ok && v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SMTP_SECURE: %w", err)
		}
		c.SMTP.Secure = secure
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the values the service cannot start without making sense of.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port != "" {
		if p, err := strconv.Atoi(c.Server.Port); err != nil || p < 1 || p > 65535 {
			errs = append(errs, fmt.Errorf("server.port %q is not a valid port", c.Server.Port))
		}
	}
	if c.SMTP.Port < 0 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("smtp.port %d is not a valid port", c.SMTP.Port))
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		errs = append(errs, errors.New("smtp.from is required when smtp.host is set"))
	}
	if c.SMTP.From != "" && !domain.ValidEmail(c.SMTP.From) {
		errs = append(errs, fmt.Errorf("smtp.from %q is not a valid address", c.SMTP.From))
	}
	if c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsFile == "" && c.Sheets.CredentialsJSON == "" {
		errs = append(errs, errors.New("sheets credentials are required when a spreadsheet id is set"))
	}
	for _, r := range append(append([]string{}, c.Notifications.InternalRecipients...), c.Notifications.ConsultationRecipients...) {
		if !domain.ValidEmail(r) {
			errs = append(errs, fmt.Errorf("recipient %q is not a valid address", r))
		}
	}
	if c.Notifications.Timezone != "" {
		if _, err := time.LoadLocation(c.Notifications.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("notifications.timezone: %w", err))
		}
	}
	if _, err := c.Classifier(); err != nil {
		errs = append(errs, err)
	}
	for name, raw := range map[string]string{
		"redis.ttl":                      c.Redis.TTL,
		"catalog.ttl":                    c.Catalog.TTL,
		"session.ttl":                    c.Session.TTL,
		"server.shutdown_timeout":        c.Server.ShutdownTimeout,
		"notifications.delivery_timeout": c.Notifications.DeliveryTimeout,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Classifier builds the maturity classifier from the configured bands, or the defaults when none are set.
func (c Config) Classifier() (*scoring.Classifier, error) {
	if len(c.Bands) == 0 {
		return scoring.NewClassifier(nil)
	}
	thresholds := make([]scoring.Threshold, 0, len(c.Bands))
	for _, b := range c.Bands {
		thresholds = append(thresholds, scoring.Threshold{Band: domain.MaturityBand(b.Band), Min: b.Min})
	}
	return scoring.NewClassifier(thresholds)
}

// Location is the timezone used in internal notices; UTC when unset.
func (c Config) Location() *time.Location {
	if c.Notifications.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Notifications.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

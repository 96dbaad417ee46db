package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"

	// Prefix is prepended to every environment variable, e.g. DRUMTONE_API_URL.
	Prefix = "drumtone"
)

// Config holds all application configuration.
type Config struct {
	Env string `envconfig:"ENV" default:"development"`

	// Backend client settings
	APIURL         string        `envconfig:"API_URL" default:"http://localhost:8000"`
	APIToken       string        `envconfig:"API_TOKEN"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`

	// Microphone clip settings
	RecordSeconds    int `envconfig:"RECORD_SECONDS" default:"5"`
	RecordSampleRate int `envconfig:"RECORD_SAMPLE_RATE" default:"22050"`

	// Stub server settings
	Port        string `envconfig:"PORT" default:"8000"`
	ModelLoaded bool   `envconfig:"MODEL_LOADED" default:"true"`

	// Security settings
	HSTSMaxAge int    `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode    string `envconfig:"CSP_MODE" default:"relaxed"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// LogFile receives logs while the terminal UI owns the screen.
	LogFile string `envconfig:"LOG_FILE"`
}

// LoadConfig loads configuration from .env file and environment variables.
func LoadConfig() (*Config, error) {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil {
		// Not an error if file doesn't exist
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	// Parse environment variables into config struct
	var config Config
	if err := envconfig.Process(Prefix, &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid API URL %q", c.APIURL)
		}
	}
	if c.RequestTimeout < 0 {
		return errors.New("request timeout cannot be negative")
	}
	if c.RecordSeconds <= 0 {
		return errors.New("record seconds must be positive")
	}
	if c.RecordSampleRate <= 0 {
		return errors.New("record sample rate must be positive")
	}

	return nil
}

// RecordDuration is the microphone clip cap.
func (c *Config) RecordDuration() time.Duration {
	return time.Duration(c.RecordSeconds) * time.Second
}

// BuildCSP constructs Content Security Policy based on mode.
func BuildCSP(mode string) string {
	if mode == "strict" {
		return "default-src 'none'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'none'; " +
			"form-action 'none'"
	}

	// Development/relaxed CSP
	return "default-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:"
}

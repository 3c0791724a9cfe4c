// Package app wires the HTTP surface of the service: configuration, routes,
// and the server lifecycle.
package app

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the service.
type Config struct {
	DataDir             string
	BindAddress         string
	Port                int
	BaseURL             string
	AppName             string
	OIDCIssuerURL       string
	OIDCClientID        string
	OIDCProviderName    string
	StripeAPIKey        string
	StripeWebhookSecret string
	ResendAPIKey        string // optional; emails are logged when empty
	EmailFrom           string
	PublicMetrics       bool
}

// StoreDir returns the directory holding the SQLite database.
func (c *Config) StoreDir() string {
	return filepath.Join(c.DataDir, "store")
}

// LoadConfig loads configuration from environment variables. A .env file is
// loaded if present but not required.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	port, err := envOrDefaultInt("TEAMPLANE_PORT", 8080)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:             envOrDefault("TEAMPLANE_DATA_DIR", "/data"),
		BindAddress:         envOrDefault("TEAMPLANE_BIND_ADDRESS", "0.0.0.0"),
		Port:                port,
		BaseURL:             strings.TrimSpace(os.Getenv("TEAMPLANE_BASE_URL")),
		AppName:             envOrDefault("TEAMPLANE_APP_NAME", "Teamplane"),
		OIDCIssuerURL:       strings.TrimSpace(os.Getenv("OIDC_ISSUER_URL")),
		OIDCClientID:        strings.TrimSpace(os.Getenv("OIDC_CLIENT_ID")),
		OIDCProviderName:    envOrDefault("OIDC_PROVIDER_NAME", "oidc"),
		StripeAPIKey:        strings.TrimSpace(os.Getenv("STRIPE_API_KEY")),
		StripeWebhookSecret: strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
		ResendAPIKey:        strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		EmailFrom:           envOrDefault("TEAMPLANE_EMAIL_FROM", "noreply@teamplane.dev"),
		PublicMetrics:       envOrDefaultBool("TEAMPLANE_PUBLIC_METRICS", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "TEAMPLANE_BASE_URL")
	}
	if c.OIDCIssuerURL == "" {
		missing = append(missing, "OIDC_ISSUER_URL")
	}
	if c.OIDCClientID == "" {
		missing = append(missing, "OIDC_CLIENT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("TEAMPLANE_PORT must be between 1 and 65535, got %d", c.Port)
	}

	parsedBaseURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("TEAMPLANE_BASE_URL must be a valid URL: %w", err)
	}
	if parsedBaseURL.Scheme != "http" && parsedBaseURL.Scheme != "https" {
		return fmt.Errorf("TEAMPLANE_BASE_URL must use http or https scheme")
	}
	if parsedBaseURL.Host == "" {
		return fmt.Errorf("TEAMPLANE_BASE_URL must include a host")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) (int, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
		}
		return n, nil
	}
	return fallback, nil
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

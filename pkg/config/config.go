package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the dashboard configuration. It is populated once at process
// start and read-only afterwards; the demo-mode toggle mutates the provider
// client, not this struct.
type Config struct {
	APIKey         string        // Upstream device-search API key
	APIHost        string        // Upstream API host, without scheme
	DemoMode       bool          // Serve canned responses instead of live upstream calls
	AlertRecipient string        // Email address high-risk alerts go to
	AlertSender    string        // From address on alert emails
	SMTPHost       string        // SMTP server for alert delivery
	SMTPPort       int           // SMTP server port
	SMTPUsername   string        // SMTP auth username
	SMTPPassword   string        // SMTP auth password
	Port           string        // HTTP listen port for the dashboard
	RequestTimeout time.Duration // Timeout for upstream HTTP requests
	EnableCORS     bool          // Allow cross-origin requests to the API
	TemplatesGlob  string        // Glob for HTML templates
	StaticDir      string        // Directory of static assets
	Verbose        bool          // Enable debug logging
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		APIHost:        "api.shodan.io",
		AlertRecipient: "admin@example.com",
		AlertSender:    "dashboard@example.com",
		SMTPHost:       "smtp.example.com",
		SMTPPort:       587,
		Port:           "8000",
		RequestTimeout: 10 * time.Second,
		EnableCORS:     true,
		TemplatesGlob:  "web/templates/*",
		StaticDir:      "web/static",
	}
}

// FromEnv builds a configuration from environment variables, falling back to
// defaults for anything unset.
func FromEnv() Config {
	cfg := DefaultConfig()

	cfg.APIKey = getEnv("SHODAN_API_KEY", cfg.APIKey)
	cfg.APIHost = getEnv("SHODAN_API_HOST", cfg.APIHost)
	cfg.DemoMode = getEnvBool("DEMO_MODE", cfg.DemoMode)
	cfg.AlertRecipient = getEnv("ALERT_EMAIL", cfg.AlertRecipient)
	cfg.AlertSender = getEnv("ALERT_SENDER", cfg.AlertSender)
	cfg.SMTPHost = getEnv("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = getEnvInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = getEnv("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.Port = getEnv("DASHBOARD_PORT", cfg.Port)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)
	cfg.Verbose = getEnvBool("VERBOSE", cfg.Verbose)

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

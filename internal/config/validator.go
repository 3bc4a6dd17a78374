package config

import (
	"fmt"
	"net/url"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s=%s]: %s", e.Field, e.Value, e.Message)
}

// ValidationResult holds the results of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
	Valid    bool
}

// AddError adds a validation error
func (r *ValidationResult) AddError(field, value, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: message})
	r.Valid = false
}

// AddWarning adds a validation warning
func (r *ValidationResult) AddWarning(field, value, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Value: value, Message: message})
}

// Validate checks the configuration. Missing API keys are warnings only since
// the relay falls back to simulated responses.
func (c *Config) Validate() ValidationResult {
	result := ValidationResult{Valid: true}

	if err := validatePort(c.Server.Port); err != nil {
		result.AddError("server.port", c.Server.Port, err.Error())
	}

	for name, m := range map[string]ModelConfig{
		"models.deepseek": c.Models.DeepSeek,
		"models.openai":   c.Models.OpenAI,
		"image":           c.Image,
	} {
		if err := validateURL(m.BaseURL); err != nil {
			result.AddError(name+".base_url", m.BaseURL, err.Error())
		}
		if !m.HasKey() {
			result.AddWarning(name+".api_key", "", "not configured, simulated responses will be used")
		}
	}

	switch c.Storage.Backend {
	case "mongodb":
		if c.Storage.MongoURI == "" {
			result.AddError("storage.mongodb_uri", "", "required for mongodb backend")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			result.AddError("storage.redis_addr", "", "required for redis backend")
		}
	case "memory":
		result.AddWarning("storage.backend", "memory", "history is lost on restart")
	default:
		result.AddError("storage.backend", c.Storage.Backend, "must be mongodb, redis or memory")
	}
	switch c.Storage.PersistGuard {
	case "", "memory", "redis":
	default:
		result.AddError("storage.persist_guard", c.Storage.PersistGuard, "must be memory or redis")
	}

	if c.Security.JWTSecret == "" {
		result.AddWarning("security.jwt_secret", "", "empty secret, all authenticated requests will be rejected")
	}
	if c.Security.RequirePayment && c.Storage.Backend != "mongodb" {
		result.AddError("security.require_payment", "true", "payment check requires the mongodb backend")
	}

	switch c.Security.LogFormat {
	case "", "json", "text":
	default:
		result.AddError("security.log_format", c.Security.LogFormat, "must be json or text")
	}
	if c.Security.LogLevel != "" {
		if _, err := log.ParseLevel(c.Security.LogLevel); err != nil {
			result.AddError("security.log_level", c.Security.LogLevel, err.Error())
		}
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		result.AddError("rate_limit", strconv.Itoa(c.RateLimit.RPS), "rps and burst must be positive when enabled")
	}
	if c.Transport.ProxyURL != "" {
		if err := validateURL(c.Transport.ProxyURL); err != nil {
			result.AddError("transport.proxy_url", c.Transport.ProxyURL, err.Error())
		}
	}
	return result
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("port must be numeric")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("url host is required")
	}
	return nil
}

package config

import "strings"

// applyEnv overlays environment variables onto cfg. Environment always wins
// over the config file so secrets can stay out of it.
func applyEnv(cfg *Config) {
	setStringFromEnv("PORT", &cfg.Server.Port)
	setStringFromEnv("BASE_PATH", &cfg.Server.BasePath)
	setToggleFromEnv("REQUEST_LOG_ENABLED", &cfg.Server.RequestLog)

	applyModelEnv("DEEPSEEK", &cfg.Models.DeepSeek)
	applyModelEnv("OPENAI", &cfg.Models.OpenAI)
	applyModelEnv("IMAGE", &cfg.Image)

	setStringFromEnv("STORAGE_BACKEND", &cfg.Storage.Backend)
	setStringFromEnv("MONGODB_URI", &cfg.Storage.MongoURI)
	setStringFromEnv("MONGODB_DATABASE", &cfg.Storage.MongoDatabase)
	setStringFromEnv("REDIS_ADDR", &cfg.Storage.RedisAddr)
	setStringFromEnv("REDIS_PASSWORD", &cfg.Storage.RedisPassword)
	setIntFromEnv("REDIS_DB", &cfg.Storage.RedisDB)
	setStringFromEnv("REDIS_PREFIX", &cfg.Storage.RedisPrefix)
	setStringFromEnv("PERSIST_GUARD", &cfg.Storage.PersistGuard)
	setIntFromEnv("STORAGE_TIMEOUT_SEC", &cfg.Storage.TimeoutSec)

	setIntFromEnv("STREAM_IDLE_TIMEOUT_SEC", &cfg.Stream.IdleTimeoutSec)
	setIntFromEnv("STREAM_MAX_DURATION_SEC", &cfg.Stream.MaxDurationSec)
	setIntFromEnv("STREAM_FALLBACK_INTERVAL_MS", &cfg.Stream.FallbackIntervalMs)

	setStringFromEnv("JWT_SECRET", &cfg.Security.JWTSecret)
	setToggleFromEnv("REQUIRE_PAYMENT", &cfg.Security.RequirePayment)
	setToggleFromEnv("DEBUG", &cfg.Security.Debug)
	setStringFromEnv("LOG_FILE", &cfg.Security.LogFile)
	setStringFromEnv("LOG_FORMAT", &cfg.Security.LogFormat)
	setStringFromEnv("LOG_LEVEL", &cfg.Security.LogLevel)

	setToggleFromEnv("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	setIntFromEnv("RATE_LIMIT_RPS", &cfg.RateLimit.RPS)
	setIntFromEnv("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)

	setIntFromEnv("DIAL_TIMEOUT_SEC", &cfg.Transport.DialTimeoutSec)
	setIntFromEnv("TLS_HANDSHAKE_TIMEOUT_SEC", &cfg.Transport.TLSHandshakeTimeoutSec)
	setIntFromEnv("RESPONSE_HEADER_TIMEOUT_SEC", &cfg.Transport.ResponseHeaderTimeoutSec)
	setStringFromEnv("PROXY_URL", &cfg.Transport.ProxyURL)
	setIntFromEnv("UPSTREAM_MAX_RETRIES", &cfg.Transport.MaxRetries)
	setIntFromEnv("UPSTREAM_RETRY_INTERVAL_MS", &cfg.Transport.RetryIntervalMs)

	cfg.Server.BasePath = normalizeBasePath(cfg.Server.BasePath)
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Storage.PersistGuard = strings.ToLower(strings.TrimSpace(cfg.Storage.PersistGuard))
	cfg.Security.LogFormat = strings.ToLower(strings.TrimSpace(cfg.Security.LogFormat))
	cfg.Security.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Security.LogLevel))
}

func applyModelEnv(prefix string, m *ModelConfig) {
	setStringFromEnv(prefix+"_API_KEY", &m.APIKey)
	setStringFromEnv(prefix+"_BASE_URL", &m.BaseURL)
	setStringFromEnv(prefix+"_MODEL", &m.Model)
	m.BaseURL = strings.TrimRight(m.BaseURL, "/")
}

// LoadFromEnv builds a configuration from defaults and environment only.
func LoadFromEnv() *Config {
	cfg := Defaults()
	applyEnv(cfg)
	return cfg
}

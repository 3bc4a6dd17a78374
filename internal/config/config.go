package config

import (
	"strings"
	"time"

	"brandgen-go/internal/constants"
)

// Config 主配置结构体，按功能域拆分
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Models    ModelsConfig    `yaml:"models" json:"models"`
	Image     ModelConfig     `yaml:"image" json:"image"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Stream    StreamConfig    `yaml:"stream" json:"stream"`
	Security  SecurityConfig  `yaml:"security" json:"security"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Transport TransportConfig `yaml:"transport" json:"transport"`
}

// ServerConfig HTTP 监听配置
type ServerConfig struct {
	Port       string `yaml:"port" json:"port"`
	BasePath   string `yaml:"base_path" json:"base_path"`
	RequestLog bool   `yaml:"request_log" json:"request_log"`
}

// ModelConfig describes one OpenAI-compatible upstream.
type ModelConfig struct {
	APIKey  string `yaml:"api_key" json:"api_key"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	Model   string `yaml:"model" json:"model"`
}

// HasKey reports whether live upstream calls are possible.
func (m ModelConfig) HasKey() bool { return strings.TrimSpace(m.APIKey) != "" }

// ModelsConfig 文本对话模型
type ModelsConfig struct {
	DeepSeek ModelConfig `yaml:"deepseek" json:"deepseek"`
	OpenAI   ModelConfig `yaml:"openai" json:"openai"`
}

// StorageConfig 会话存储后端配置
type StorageConfig struct {
	Backend       string `yaml:"backend" json:"backend"` // mongodb, redis, memory
	MongoURI      string `yaml:"mongodb_uri" json:"mongodb_uri"`
	MongoDatabase string `yaml:"mongodb_database" json:"mongodb_database"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix" json:"redis_prefix"`
	// PersistGuard selects the idempotency guard: memory or redis.
	PersistGuard string `yaml:"persist_guard" json:"persist_guard"`
	TimeoutSec   int    `yaml:"timeout_sec" json:"timeout_sec"`
}

// StreamConfig 流式转发行为
type StreamConfig struct {
	IdleTimeoutSec     int `yaml:"idle_timeout_sec" json:"idle_timeout_sec"`
	MaxDurationSec     int `yaml:"max_duration_sec" json:"max_duration_sec"`
	FallbackIntervalMs int `yaml:"fallback_interval_ms" json:"fallback_interval_ms"`
}

// SecurityConfig 认证、访问控制与日志
type SecurityConfig struct {
	JWTSecret      string `yaml:"jwt_secret" json:"jwt_secret"`
	RequirePayment bool   `yaml:"require_payment" json:"require_payment"`
	Debug          bool   `yaml:"debug" json:"debug"`
	LogFile        string `yaml:"log_file" json:"log_file"`
	// LogFormat is json or text; empty picks text in debug mode and json otherwise.
	LogFormat string `yaml:"log_format" json:"log_format"`
	// LogLevel overrides the level implied by Debug when set.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// RateLimitConfig 速率限制
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	RPS     int  `yaml:"rps" json:"rps"`
	Burst   int  `yaml:"burst" json:"burst"`
}

// TransportConfig 上游 HTTP 传输超时
type TransportConfig struct {
	DialTimeoutSec           int    `yaml:"dial_timeout_sec" json:"dial_timeout_sec"`
	TLSHandshakeTimeoutSec   int    `yaml:"tls_handshake_timeout_sec" json:"tls_handshake_timeout_sec"`
	ResponseHeaderTimeoutSec int    `yaml:"response_header_timeout_sec" json:"response_header_timeout_sec"`
	ProxyURL                 string `yaml:"proxy_url" json:"proxy_url"`
	// MaxRetries bounds reconnect attempts before any byte reaches the client.
	MaxRetries      int `yaml:"max_retries" json:"max_retries"`
	RetryIntervalMs int `yaml:"retry_interval_ms" json:"retry_interval_ms"`
}

// Source hands out the configuration in effect for a request.
type Source interface {
	Current() *Config
}

type staticSource struct{ cfg *Config }

func (s staticSource) Current() *Config { return s.cfg }

// Static wraps a fixed configuration, mostly for tests and one-shot tools.
func Static(cfg *Config) Source { return staticSource{cfg: cfg} }

// Model names accepted from clients and stored on history records.
const (
	ModelDeepSeek = "deepseek"
	ModelGPT4     = "gpt4"
)

// ModelFor resolves a client-supplied model name. "deepseek" (or empty) selects
// DeepSeek; anything else selects the OpenAI upstream.
func (c *Config) ModelFor(name string) (string, ModelConfig) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ModelDeepSeek:
		return ModelDeepSeek, c.Models.DeepSeek
	default:
		return ModelGPT4, c.Models.OpenAI
	}
}

// IdleTimeout returns the upstream inactivity bound.
func (s StreamConfig) IdleTimeout() time.Duration {
	return secondsOr(s.IdleTimeoutSec, constants.UpstreamIdleTimeout)
}

// MaxDuration returns the hard cap on a single relay.
func (s StreamConfig) MaxDuration() time.Duration {
	return secondsOr(s.MaxDurationSec, constants.UpstreamStreamTimeout)
}

// FallbackInterval returns the pacing of simulated deltas.
func (s StreamConfig) FallbackInterval() time.Duration {
	if s.FallbackIntervalMs > 0 {
		return time.Duration(s.FallbackIntervalMs) * time.Millisecond
	}
	return constants.FallbackInterval
}

// Timeout returns the per-operation storage timeout.
func (s StorageConfig) Timeout() time.Duration {
	return secondsOr(s.TimeoutSec, constants.PersistTimeout)
}

func secondsOr(sec int, def time.Duration) time.Duration {
	if sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return def
}

package config

// Defaults returns a configuration populated with built-in defaults only.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "5000",
		},
		Models: ModelsConfig{
			DeepSeek: ModelConfig{
				BaseURL: "https://api.deepseek.com",
				Model:   "deepseek-chat",
			},
			OpenAI: ModelConfig{
				BaseURL: "https://api.openai.com",
				Model:   "gpt-4",
			},
		},
		Image: ModelConfig{
			BaseURL: "https://api.xi-ai.cn",
			Model:   "gpt-image-1-vip",
		},
		Storage: StorageConfig{
			Backend:       "mongodb",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "ai-policy-gen",
			RedisAddr:     "localhost:6379",
			RedisPrefix:   "brandgen:",
			PersistGuard:  "memory",
			TimeoutSec:    10,
		},
		Stream: StreamConfig{
			IdleTimeoutSec:     60,
			MaxDurationSec:     600,
			FallbackIntervalMs: 100,
		},
		RateLimit: RateLimitConfig{
			Enabled: false,
			RPS:     5,
			Burst:   10,
		},
		Transport: TransportConfig{
			DialTimeoutSec:           10,
			TLSHandshakeTimeoutSec:   10,
			ResponseHeaderTimeoutSec: 60,
			MaxRetries:               1,
			RetryIntervalMs:          500,
		},
	}
}

package upstream

import (
	"sync"
	"time"

	"brandgen-go/internal/config"
)

// Manager hands out one Client per provider settings, so clients (and their
// connection pools) are reused across requests and rebuilt after a config
// reload changes a key, URL or transport option.
type Manager struct {
	mu      sync.Mutex
	clients map[string]*managedClient
	opts    []Option
}

type managedClient struct {
	sig    clientSignature
	client *Client
}

type clientSignature struct {
	model     config.ModelConfig
	transport config.TransportConfig
	idle      time.Duration
}

// NewManager creates a manager. opts are applied to every client it builds.
func NewManager(opts ...Option) *Manager {
	return &Manager{clients: make(map[string]*managedClient), opts: opts}
}

// Client returns the client for provider under cfg.
func (m *Manager) Client(provider string, model config.ModelConfig, cfg *config.Config) *Client {
	sig := clientSignature{model: model, transport: cfg.Transport, idle: cfg.Stream.IdleTimeout()}

	m.mu.Lock()
	defer m.mu.Unlock()
	if mc, ok := m.clients[provider]; ok && mc.sig == sig {
		return mc.client
	}
	opts := append([]Option{WithIdleTimeout(sig.idle)}, m.opts...)
	c := New(provider, model, cfg.Transport, opts...)
	if old, ok := m.clients[provider]; ok {
		old.client.CloseIdleConnections()
	}
	m.clients[provider] = &managedClient{sig: sig, client: c}
	return c
}

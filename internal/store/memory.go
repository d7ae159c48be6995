package store

import "sync"

// MemoryCredentials is a non-persistent credential slot, used for tokens
// supplied through the environment.
type MemoryCredentials struct {
	mu    sync.Mutex
	token string
}

// NewMemoryCredentials returns a slot pre-loaded with token.
func NewMemoryCredentials(token string) *MemoryCredentials {
	return &MemoryCredentials{token: token}
}

// Token returns the held token.
func (m *MemoryCredentials) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// SetToken replaces the held token.
func (m *MemoryCredentials) SetToken(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

// ClearToken forgets the held token.
func (m *MemoryCredentials) ClearToken() error {
	return m.SetToken("")
}

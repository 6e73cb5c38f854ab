// Package auth owns the authenticated session for the lifetime of the app:
// it validates login input, runs the handshake, persists the credential and
// tears everything down on logout.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"halights/internal/ha"
	"halights/internal/storage"

	"go.uber.org/zap"
)

// ErrValidation marks login input that was rejected before any I/O
var ErrValidation = errors.New("validation failed")

// Connector performs the handshake; *ha.Connector satisfies it
type Connector interface {
	Connect(ctx context.Context, url, token string) (*ha.Session, error)
}

// URLFunc derives the connection URL from user supplied host
type URLFunc func(host string) string

// Manager holds the single session of the app
type Manager struct {
	connector Connector
	store     storage.Store
	logger    *zap.Logger
	urlFor    URLFunc

	mu         sync.Mutex
	session    *ha.Session
	connecting bool
}

// NewManager creates a manager. secure selects wss for derived URLs.
func NewManager(connector Connector, store storage.Store, secure bool, logger *zap.Logger) *Manager {
	return &Manager{
		connector: connector,
		store:     store,
		logger:    logger,
		urlFor: func(host string) string {
			return ha.WebSocketURL(host, secure)
		},
	}
}

// SetURLFunc overrides URL derivation (tests point it at a local server)
func (m *Manager) SetURLFunc(fn URLFunc) {
	m.urlFor = fn
}

// Store returns the persistence backing this manager
func (m *Manager) Store() storage.Store {
	return m.store
}

// Login validates input, connects and on success persists the credential and
// keeps the session. Any session already held is closed first.
func (m *Manager) Login(ctx context.Context, host, token string) (*ha.Session, error) {
	host = strings.TrimSpace(host)
	token = strings.TrimSpace(token)
	if host == "" || token == "" {
		return nil, fmt.Errorf("%w: please fill in all fields", ErrValidation)
	}

	m.mu.Lock()
	if m.session != nil {
		m.session.Close()
		m.session = nil
	}
	m.connecting = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.connecting = false
		m.mu.Unlock()
	}()

	url := m.urlFor(host)
	session, err := m.connector.Connect(ctx, url, token)
	if err != nil {
		return nil, err
	}

	clean, _ := ha.CleanHost(host)
	if err := storage.SaveCredential(m.store, storage.Credential{Host: clean, Token: token}); err != nil {
		// The session is fine; only the next launch has to re-enter the host
		m.logger.Error("Failed to persist credential", zap.Error(err))
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	m.logger.Info("Logged in", zap.String("host", clean))
	return session, nil
}

// Session returns the current session, or nil when logged out
func (m *Manager) Session() *ha.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Status reports connecting while a login is in flight, otherwise the
// session status (closed when there is none).
func (m *Manager) Status() ha.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.connecting:
		return ha.StatusConnecting
	case m.session != nil:
		return m.session.Status()
	default:
		return ha.StatusClosed
	}
}

// Saved returns the persisted credential used to prefill the login form
func (m *Manager) Saved() (storage.Credential, bool) {
	cred, ok, err := storage.LoadCredential(m.store)
	if err != nil {
		m.logger.Warn("Failed to load saved credential", zap.Error(err))
		return storage.Credential{}, false
	}
	return cred, ok
}

// Logout closes the session if any and clears every persisted key.
// Calling it again is harmless.
func (m *Manager) Logout() error {
	m.mu.Lock()
	session := m.session
	m.session = nil
	m.mu.Unlock()

	if session != nil {
		session.Close()
	}

	if err := storage.Clear(m.store); err != nil {
		return fmt.Errorf("failed to clear stored credential: %w", err)
	}
	m.logger.Info("Logged out")
	return nil
}

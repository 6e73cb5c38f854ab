package testutil

import (
	"context"
	"fmt"

	"halights/internal/auth"
	"halights/internal/ha"
	"halights/internal/storage"

	"go.uber.org/zap"
)

// TestEnv wires a MockHAServer to a real auth.Manager backed by an in-memory
// store.
//
// Example usage:
//
//	env := testutil.NewTestEnv("test_token")
//	defer env.Cleanup()
//
//	session, err := env.Login(ctx, "192.168.1.50:8123")
type TestEnv struct {
	Server  *MockHAServer
	Store   *storage.MemoryStore
	Auth    *auth.Manager
	Logger  *zap.Logger
	Token   string
	Host    string
	URLSeen []string
}

// NewTestEnv starts a mock server seeded with InitializeLights
func NewTestEnv(token string) *TestEnv {
	logger := zap.NewNop()

	server := NewMockHAServer(token)
	server.InitializeLights()
	server.Start()

	store := storage.NewMemoryStore()
	env := &TestEnv{
		Server: server,
		Store:  store,
		Logger: logger,
		Token:  token,
	}

	env.Auth = auth.NewManager(ha.NewConnector(logger), store, false, logger)
	// Record the derived URL, then dial the mock instead of port 8123
	env.Auth.SetURLFunc(func(host string) string {
		env.URLSeen = append(env.URLSeen, ha.WebSocketURL(host, false))
		return server.URL()
	})
	return env
}

// Login logs in through the real manager with the environment token
func (e *TestEnv) Login(ctx context.Context, host string) (*ha.Session, error) {
	session, err := e.Auth.Login(ctx, host, e.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	return session, nil
}

// Cleanup logs out and stops the server
func (e *TestEnv) Cleanup() {
	e.Auth.Logout()
	e.Server.Stop()
}

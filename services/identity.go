package services

import (
	"context"
	"sync"

	"cretan-guru/models"

	"github.com/google/uuid"
)

type UserProvider interface {
	CurrentUser(ctx context.Context) (*models.AuthUser, error)
}

// UserProviderFunc adapts a function to UserProvider.
type UserProviderFunc func(ctx context.Context) (*models.AuthUser, error)

func (f UserProviderFunc) CurrentUser(ctx context.Context) (*models.AuthUser, error) {
	return f(ctx)
}

// AnonymousUsers never reports a signed-in user.
var AnonymousUsers = UserProviderFunc(func(context.Context) (*models.AuthUser, error) {
	return nil, nil
})

// KeyValueStore is the visitor's local durable storage (a cookie jar over HTTP).
type KeyValueStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// IdentityContext resolves which owner key the cart is scoped to.
type IdentityContext struct {
	users    UserProvider
	sessions KeyValueStore
	newToken func() string
}

func NewIdentityContext(users UserProvider, sessions KeyValueStore) *IdentityContext {
	if users == nil {
		users = AnonymousUsers
	}
	return &IdentityContext{
		users:    users,
		sessions: sessions,
		newToken: func() string { return uuid.NewString() },
	}
}

// OwnerKey returns the signed-in user's key, or the session key when there is no
// user or the provider fails.
func (ic *IdentityContext) OwnerKey(ctx context.Context) models.OwnerKey {
	if user := ic.User(ctx); user != nil {
		return models.UserOwner(user.ID)
	}
	return models.SessionOwner(ic.SessionID())
}

func (ic *IdentityContext) User(ctx context.Context) *models.AuthUser {
	user, err := ic.users.CurrentUser(ctx)
	if err != nil || user == nil || user.ID == "" {
		return nil
	}
	return user
}

// SessionID reads the anonymous session token, generating and persisting a new one
// when it is missing or malformed.
func (ic *IdentityContext) SessionID() string {
	if token, ok := ic.sessions.Get(models.SessionStorageKey); ok && ValidSessionID(token) {
		return token
	}
	token := ic.newToken()
	ic.sessions.Set(models.SessionStorageKey, token)
	return token
}

// ExistingSessionID returns the stored session token without generating one.
func (ic *IdentityContext) ExistingSessionID() (string, bool) {
	token, ok := ic.sessions.Get(models.SessionStorageKey)
	if !ok || !ValidSessionID(token) {
		return "", false
	}
	return token, true
}

func ValidSessionID(token string) bool {
	_, err := uuid.Parse(token)
	return err == nil && len(token) == 36
}

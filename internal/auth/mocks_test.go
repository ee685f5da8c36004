package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/permission"
	"github.com/launchkit/saas-starter-kit/internal/role"
	"github.com/launchkit/saas-starter-kit/internal/session"
	"github.com/launchkit/saas-starter-kit/internal/user"
)

// Mock UserStore for testing
type mockUserStore struct {
	byID          map[string]*user.User
	created       []user.CreateUserDTO
	lastLogin     map[string]time.Time
	errorToReturn error
}

func newMockUserStore(users ...*user.User) *mockUserStore {
	m := &mockUserStore{
		byID:      make(map[string]*user.User),
		lastLogin: make(map[string]time.Time),
	}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *mockUserStore) GetByID(ctx context.Context, id string) (*user.User, error) {
	if m.errorToReturn != nil {
		return nil, m.errorToReturn
	}
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, internal.ErrUserNotFound
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	if m.errorToReturn != nil {
		return nil, m.errorToReturn
	}
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserStore) Create(ctx context.Context, dto user.CreateUserDTO) (*user.User, error) {
	m.created = append(m.created, dto)
	u := &user.User{
		ID:       uuid.NewString(),
		Email:    user.NormalizeEmail(dto.Email),
		Username: dto.Username,
		IsActive: true,
		Status:   user.StatusActive,
	}
	m.byID[u.ID] = u
	return u, nil
}

func (m *mockUserStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	m.lastLogin[id] = at
	return nil
}

// Mock SessionStore keyed by refresh token jti
type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	metas    map[string]internal.RequestMeta
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{
		sessions: make(map[string]*session.Session),
		metas:    make(map[string]internal.RequestMeta),
	}
}

func (m *mockSessionStore) Create(ctx context.Context, userID, tokenID string, expiresAt time.Time, meta internal.RequestMeta) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &session.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		IsActive:  true,
	}
	m.sessions[tokenID] = s
	m.metas[tokenID] = meta
	return s, nil
}

func (m *mockSessionStore) FindActiveByTokenID(ctx context.Context, tokenID string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tokenID]
	if !ok || !s.IsActive {
		return nil, internal.ErrSessionNotFound
	}
	return s, nil
}

func (m *mockSessionStore) Consume(ctx context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tokenID]
	if !ok || !s.IsActive {
		return internal.ErrSessionNotFound
	}
	s.IsActive = false
	return nil
}

func (m *mockSessionStore) Deactivate(ctx context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[tokenID]; ok {
		s.IsActive = false
	}
	return nil
}

func (m *mockSessionStore) activeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.IsActive {
			n++
		}
	}
	return n
}

// gatedSessionStore holds every lookup until n callers have read the session.
type gatedSessionStore struct {
	*mockSessionStore
	arrived sync.WaitGroup
}

func newGatedSessionStore(inner *mockSessionStore, n int) *gatedSessionStore {
	g := &gatedSessionStore{mockSessionStore: inner}
	g.arrived.Add(n)
	return g
}

func (g *gatedSessionStore) FindActiveByTokenID(ctx context.Context, tokenID string) (*session.Session, error) {
	s, err := g.mockSessionStore.FindActiveByTokenID(ctx, tokenID)
	g.arrived.Done()
	g.arrived.Wait()
	return s, err
}

// Mock AttemptLimiter that allows a fixed number of calls
type mockLimiter struct {
	remaining int
	resets    int
	err       error
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.remaining <= 0 {
		return false, nil
	}
	m.remaining--
	return true, nil
}

func (m *mockLimiter) Reset(ctx context.Context, key string) error {
	m.resets++
	return nil
}

type memoryDenylist struct {
	revoked map[string]time.Time
}

func newMemoryDenylist() *memoryDenylist {
	return &memoryDenylist{revoked: make(map[string]time.Time)}
}

func (d *memoryDenylist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return errors.New("empty jti")
	}
	d.revoked[jti] = expiresAt
	return nil
}

func (d *memoryDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, ok := d.revoked[jti]
	return ok, nil
}

func testRole(name string, active bool, perms ...string) role.Role {
	r := role.Role{ID: uuid.NewString(), Name: name, IsActive: active}
	for _, p := range perms {
		r.Permissions = append(r.Permissions, permission.Permission{ID: uuid.NewString(), Name: p})
	}
	return r
}

func testUser(email, passwordHash string, roles ...role.Role) *user.User {
	return &user.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     email[:len(email)-len("@example.com")],
		PasswordHash: passwordHash,
		IsActive:     true,
		IsVerified:   true,
		Status:       user.StatusActive,
		Roles:        roles,
	}
}

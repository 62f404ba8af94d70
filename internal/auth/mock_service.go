package auth

import (
	"context"
	"sync"
	"time"

	"github.com/zfogg/tinyforum/backend/internal/models"
)

// MockCall records a method call for assertion
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockService is an in-memory ServiceInterface for tests. Tokens are the
// user's id prefixed with "token-".
type MockService struct {
	mu sync.Mutex

	Calls []MockCall

	ValidateTokenFunc func(tokenString string) (*models.User, error)

	// Users keyed by email.
	Users map[string]*models.User
}

// NewMockService returns a mock seeded with users.
func NewMockService(users ...*models.User) *MockService {
	m := &MockService{Users: make(map[string]*models.User)}
	for _, u := range users {
		m.Users[u.Email] = u
	}
	return m
}

func (m *MockService) record(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// TokenFor returns the token the mock accepts for u.
func (m *MockService) TokenFor(u *models.User) string { return "token-" + u.ID }

// Register adds the user without hashing.
func (m *MockService) Register(_ context.Context, req RegisterRequest) (*AuthResponse, error) {
	m.record("Register", req.Email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[req.Email]; ok {
		return nil, ErrUserExists
	}
	u := &models.User{ID: "user-" + req.Username, Email: req.Email, Username: req.Username, DisplayName: req.DisplayName}
	m.Users[req.Email] = u
	return &AuthResponse{Token: "token-" + u.ID, User: *u, ExpiresAt: time.Now().Add(TokenTTL)}, nil
}

// Login accepts any password for a known email.
func (m *MockService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	m.record("Login", req.Email)
	u, err := m.FindUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return &AuthResponse{Token: m.TokenFor(u), User: *u, ExpiresAt: time.Now().Add(TokenTTL)}, nil
}

// FindUserByEmail looks up Users.
func (m *MockService) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.Users[email]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

// ValidateToken resolves "token-<id>" to the matching user.
func (m *MockService) ValidateToken(_ context.Context, tokenString string) (*models.User, error) {
	m.record("ValidateToken", tokenString)
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(tokenString)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if "token-"+u.ID == tokenString {
			return u, nil
		}
	}
	return nil, ErrInvalidToken
}

var _ ServiceInterface = (*MockService)(nil)

package auth

import (
	"context"

	"github.com/zfogg/tinyforum/backend/internal/models"
)

// ServiceInterface defines the contract for authentication operations.
// Handlers and middleware depend on it so tests can swap in MockService.
type ServiceInterface interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ValidateToken(ctx context.Context, tokenString string) (*models.User, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)

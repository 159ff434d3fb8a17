package ports

import (
	"context"

	"github.com/vitalog/vitalog-api/internal/core/domain"
)

// RegisterInput carries a registration request after transport validation.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Timezone string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User   domain.PublicUser `json:"user"`
	Tokens domain.TokenPair  `json:"tokens"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	GetProfile(ctx context.Context, userID string) (*domain.PublicUser, error)
}

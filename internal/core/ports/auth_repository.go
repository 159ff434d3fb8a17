package ports

import (
	"context"

	"github.com/vitalog/vitalog-api/internal/core/domain"
)

// UserRepository is the narrow persistence interface the auth flow needs.
// Lookups return an error wrapping domain.ErrNotFound when no user matches;
// Create returns one wrapping domain.ErrConflict on a duplicate email.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenIssuer signs and verifies bearer tokens. Verify does not look at the
// token type; callers compare it against the use they expect.
type TokenIssuer interface {
	IssuePair(subject, email string) (domain.TokenPair, error)
	Verify(token string) (*domain.TokenPayload, error)
}

package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vitalog/vitalog-api/internal/core/domain"
	"github.com/vitalog/vitalog-api/internal/core/ports"
)

// AuthService implements registration, login, token refresh and profile lookup.
type AuthService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	logger zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(users ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, logger zerolog.Logger) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, logger: logger}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
	email := normalizeEmail(input.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	timezone := input.Timezone
	if timezone == "" {
		timezone = domain.DefaultTimezone
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(input.Name),
		Timezone:     timezone,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user registered")
	return &ports.AuthResult{User: user.Public(), Tokens: pair}, nil
}

// Login verifies credentials. Unknown emails and wrong passwords both yield
// domain.ErrInvalidCredentials after a password comparison of similar cost.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		s.hasher.Verify(password, s.dummyDigest())
		return nil, domain.ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user logged in")
	return &ports.AuthResult{User: user.Public(), Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token stays
// valid until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	payload, err := s.tokens.Verify(refreshToken)
	if err != nil {
		s.logger.Debug().Err(err).Msg("refresh rejected")
		return nil, domain.ErrInvalidRefreshToken
	}
	if payload.Type != domain.TokenRefresh {
		s.logger.Debug().Str("user_id", payload.Subject).Msg("refresh rejected")
		return nil, domain.ErrInvalidRefreshToken
	}

	user, err := s.users.FindByID(ctx, payload.Subject)
	if err != nil {
		s.logger.Debug().Err(err).Str("user_id", payload.Subject).Msg("refresh rejected")
		return nil, domain.ErrInvalidRefreshToken
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

// dummyDigest is compared against on unknown emails. It is computed once with
// the configured hasher so the comparison costs the same as a real one.
func (s *AuthService) dummyDigest() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("vitalog-timing-equalizer")
		if err != nil {
			s.logger.Error().Err(err).Msg("dummy hash generation failed")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

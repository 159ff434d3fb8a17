package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vitalog/vitalog-api/internal/core/domain"
)

// ErrMissingSecret is returned by NewTokenIssuer when no signing secret is
// configured. The server refuses to start on it.
var ErrMissingSecret = errors.New("jwt secret is not configured")

// TokenConfig configures a TokenIssuer. Expiry strings use the
// "<integer><unit>" form, e.g. "15m" or "7d".
type TokenConfig struct {
	Secret             string
	AccessTokenExpiry  string
	RefreshTokenExpiry string
}

// Claims is the JWT body shared by access and refresh tokens.
type Claims struct {
	Email string           `json:"email"`
	Type  domain.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer implements ports.TokenIssuer with HS256-signed JWTs.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	expiresIn  int64
	now        func() time.Time
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}

	access := cfg.AccessTokenExpiry
	if access == "" {
		access = DefaultAccessTokenExpiry
	}
	refresh := cfg.RefreshTokenExpiry
	if refresh == "" {
		refresh = DefaultRefreshTokenExpiry
	}

	expiresIn := ExpiresInSeconds(access)
	refreshTTL, ok := parseLifetime(refresh)
	if !ok {
		refreshTTL = fallbackRefreshTTL
	}

	return &TokenIssuer{
		secret:     []byte(cfg.Secret),
		accessTTL:  time.Duration(expiresIn) * time.Second,
		refreshTTL: refreshTTL,
		expiresIn:  expiresIn,
		now:        time.Now,
	}, nil
}

// IssuePair signs an access and a refresh token for subject.
func (i *TokenIssuer) IssuePair(subject, email string) (domain.TokenPair, error) {
	now := i.now()

	access, err := i.sign(subject, email, domain.TokenAccess, now, i.accessTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := i.sign(subject, email, domain.TokenRefresh, now, i.refreshTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    i.expiresIn,
	}, nil
}

// Verify checks signature and expiry. Any failure is reported as
// domain.ErrInvalidToken; the parser's reason is kept in the chain for logs
// only.
func (i *TokenIssuer) Verify(token string) (*domain.TokenPayload, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return nil, errors.Join(domain.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}

	payload := &domain.TokenPayload{
		Subject: claims.Subject,
		Email:   claims.Email,
		Type:    claims.Type,
	}
	if claims.IssuedAt != nil {
		payload.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		payload.ExpiresAt = claims.ExpiresAt.Time
	}
	return payload, nil
}

func (i *TokenIssuer) sign(subject, email string, typ domain.TokenType, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Email: email,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

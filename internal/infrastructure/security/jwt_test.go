package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalog/vitalog-api/internal/core/domain"
)

func newIssuer(t *testing.T, access, refresh string) *TokenIssuer {
	t.Helper()
	i, err := NewTokenIssuer(TokenConfig{Secret: "test-secret", AccessTokenExpiry: access, RefreshTokenExpiry: refresh})
	require.NoError(t, err)
	return i
}

func TestNewTokenIssuer_MissingSecret(t *testing.T) {
	_, err := NewTokenIssuer(TokenConfig{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	i := newIssuer(t, "15m", "7d")

	pair, err := i.IssuePair("user-1", "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.EqualValues(t, 900, pair.ExpiresIn)

	access, err := i.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", access.Subject)
	assert.Equal(t, "alice@example.com", access.Email)
	assert.Equal(t, domain.TokenAccess, access.Type)
	assert.WithinDuration(t, access.IssuedAt.Add(15*time.Minute), access.ExpiresAt, time.Second)

	refresh, err := i.Verify(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenRefresh, refresh.Type)
	assert.WithinDuration(t, refresh.IssuedAt.Add(7*24*time.Hour), refresh.ExpiresAt, time.Second)
}

func TestTokenIssuer_ExpiresIn(t *testing.T) {
	cases := map[string]int64{
		"15m":   900,
		"7d":    604800,
		"30s":   30,
		"2h":    7200,
		"soon":  900,
		"15":    900,
		"1h30m": 900,
		"-5m":   900,
		"10 m":  900,
		"":      900, // empty means the default "15m"
	}
	for lifetime, want := range cases {
		t.Run(lifetime, func(t *testing.T) {
			i := newIssuer(t, lifetime, "")
			pair, err := i.IssuePair("u", "u@example.com")
			require.NoError(t, err)
			assert.Equal(t, want, pair.ExpiresIn)
		})
	}
}

func TestExpiresInSeconds(t *testing.T) {
	assert.EqualValues(t, 900, ExpiresInSeconds("15m"))
	assert.EqualValues(t, 604800, ExpiresInSeconds("7d"))
	assert.EqualValues(t, 900, ExpiresInSeconds("forever"))
	assert.EqualValues(t, 900, ExpiresInSeconds("200000d"))
	assert.EqualValues(t, 900, ExpiresInSeconds("99999999999999999999s"))
}

func TestTokenIssuer_OverflowingLifetimesFallBack(t *testing.T) {
	i := newIssuer(t, "200000d", "9999999999h")

	pair, err := i.IssuePair("user-1", "alice@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 900, pair.ExpiresIn)

	access, err := i.Verify(pair.AccessToken)
	require.NoError(t, err, "a fresh access token must verify")
	assert.WithinDuration(t, access.IssuedAt.Add(15*time.Minute), access.ExpiresAt, time.Second)

	refresh, err := i.Verify(pair.RefreshToken)
	require.NoError(t, err)
	assert.WithinDuration(t, refresh.IssuedAt.Add(7*24*time.Hour), refresh.ExpiresAt, time.Second)
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	i := newIssuer(t, "1s", "1s")
	issuedAt := time.Now().Add(-time.Hour)
	i.now = func() time.Time { return issuedAt }

	pair, err := i.IssuePair("user-1", "a@example.com")
	require.NoError(t, err)

	i.now = time.Now
	_, err = i.Verify(pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTokenIssuer_RejectsForeignSignature(t *testing.T) {
	other, err := NewTokenIssuer(TokenConfig{Secret: "other-secret"})
	require.NoError(t, err)
	pair, err := other.IssuePair("user-1", "a@example.com")
	require.NoError(t, err)

	_, err = newIssuer(t, "", "").Verify(pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenIssuer_RejectsGarbageAndNone(t *testing.T) {
	i := newIssuer(t, "", "")

	_, err := i.Verify("not-a-token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Type: domain.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = i.Verify(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenIssuer_RejectsMissingExpiry(t *testing.T) {
	i := newIssuer(t, "", "")
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Type:             domain.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = i.Verify(raw)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

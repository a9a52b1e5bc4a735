package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService("test-signing-secret")
	require.NoError(t, err)
	return s
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService("")
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	s := newTestService(t)

	raw, err := s.Issue("42", RoleAdmin, "admin@example.com")
	require.NoError(t, err)

	claims, err := s.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, Issuer, claims.Issuer)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(TTL), claims.ExpiresAt.Time, time.Minute)
}

func TestVerifyExpired(t *testing.T) {
	s := newTestService(t)

	raw, err := s.Issue("42", RoleAdmin, "")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(TTL + time.Minute) }

	_, err = s.Verify(raw)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyNotYetValid(t *testing.T) {
	s := newTestService(t)

	// Issue with a clock one hour ahead, then verify with the real one.
	s.now = func() time.Time { return time.Now().Add(time.Hour) }
	raw, err := s.Issue("42", RoleAdmin, "")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Verify(raw)
	assert.ErrorIs(t, err, ErrNotYetValid)
}

func TestVerifyMalformed(t *testing.T) {
	s := newTestService(t)

	_, err := s.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyWrongSecret(t *testing.T) {
	s := newTestService(t)
	other, err := NewService("another-secret")
	require.NoError(t, err)

	raw, err := other.Issue("42", RoleAdmin, "")
	require.NoError(t, err)

	_, err = s.Verify(raw)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyRejectsForeignIssuerAndAudience(t *testing.T) {
	s := newTestService(t)

	now := time.Now()
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "42",
		Role:   RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Audience:  jwt.ClaimStrings{"elsewhere"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
	})
	raw, err := foreign.SignedString([]byte("test-signing-secret"))
	require.NoError(t, err)

	_, err = s.Verify(raw)
	assert.ErrorIs(t, err, ErrMalformed)
}

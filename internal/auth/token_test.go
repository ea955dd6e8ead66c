package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/compliance-portal/internal/domain"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	user := &domain.User{ID: "u-1", Role: domain.RoleManager, Identity: domain.Identity{PrimaryEmail: "a@x.com", WorkEmail: "a@corp.com", LoginEmail: "a@corp.com"}}

	issued, err := tm.IssueForUser(user)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.Equal(t, 3600, issued.ExpiresIn)

	claims, err := tm.ParseToken(issued.Value)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "a@corp.com", claims.Email)
	assert.Equal(t, domain.RoleManager, claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestTokenManager_DefaultTTL(t *testing.T) {
	tm := NewTokenManager("secret", 0)
	assert.Equal(t, 7*24*time.Hour, tm.TTL())
}

func TestTokenManager_Expired(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	issued, err := tm.GenerateToken("u-1", "a@x.com", domain.RoleUser)
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ParseToken(issued.Value)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	issued, err := NewTokenManager("one", time.Hour).GenerateToken("u-1", "a@x.com", domain.RoleUser)
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Hour).ParseToken(issued.Value)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Hour).ParseToken(unsigned)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenManager_RequiresExpiry(t *testing.T) {
	claims := &Claims{UserID: "u-1"}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Hour).ParseToken(signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenManager_Garbage(t *testing.T) {
	_, err := NewTokenManager("secret", time.Hour).ParseToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPeekExpiry(t *testing.T) {
	issued, err := NewTokenManager("secret", time.Hour).GenerateToken("u-1", "a@x.com", domain.RoleUser)
	require.NoError(t, err)

	exp, ok := PeekExpiry(issued.Value)
	require.True(t, ok)
	assert.WithinDuration(t, issued.ExpiresAt, exp, time.Second)

	_, ok = PeekExpiry("garbage")
	assert.False(t, ok)
}

package service

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"mosaic/internal/config"
	"mosaic/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func newTestCredentials() *CredentialService {
	return NewCredentialService(&config.Config{JWTSecret: testSecret, BcryptCost: bcrypt.MinCost})
}

func signClaims(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	var key any = []byte(secret)
	if method == jwt.SigningMethodNone {
		key = jwt.UnsafeAllowNoneSignatureType
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "7",
		"iss": TokenIssuer,
		"aud": TokenAudience,
		"exp": now.Add(time.Hour).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
	}
}

func TestClampCost(t *testing.T) {
	t.Parallel()
	assert.Equal(t, bcrypt.DefaultCost, clampCost(0))
	assert.Equal(t, bcrypt.MinCost, clampCost(1))
	assert.Equal(t, 12, clampCost(12))
	assert.Equal(t, bcrypt.MaxCost, clampCost(99))
}

func TestCredentialService_Passwords(t *testing.T) {
	t.Parallel()
	creds := newTestCredentials()

	hash, err := creds.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, creds.VerifyPassword("correct horse", hash))
	assert.False(t, creds.VerifyPassword("wrong horse", hash))
	assert.False(t, creds.VerifyPassword("correct horse", "not-a-bcrypt-hash"))

	other, err := creds.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salted")
}

func TestCredentialService_IssueAndValidate(t *testing.T) {
	t.Parallel()
	creds := newTestCredentials()
	fixed := time.Now().Truncate(time.Second)
	creds.now = func() time.Time { return fixed }

	token, err := creds.IssueToken(42)
	require.NoError(t, err)

	id, err := creds.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	iat, err := claims.GetIssuedAt()
	require.NoError(t, err)
	assert.Equal(t, TokenLifetime, exp.Sub(iat.Time))
	assert.NotEmpty(t, claims["jti"])

	t.Run("expires after thirty days", func(t *testing.T) {
		later := *creds
		later.now = func() time.Time { return fixed.Add(TokenLifetime + time.Minute) }
		_, err := later.ValidateToken(token)
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewCredentialService(&config.Config{JWTSecret: "another-secret-entirely-different", BcryptCost: bcrypt.MinCost})
		_, err := other.ValidateToken(token)
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("ids use the full width of uint", func(t *testing.T) {
		big := uint(1) << (strconv.IntSize - 1)
		token, err := creds.IssueToken(big)
		require.NoError(t, err)
		id, err := creds.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, big, id)
	})

	t.Run("unique ids", func(t *testing.T) {
		again, err := creds.IssueToken(42)
		require.NoError(t, err)
		assert.NotEqual(t, token, again)
	})
}

func TestCredentialService_ValidateToken_Rejections(t *testing.T) {
	t.Parallel()
	creds := newTestCredentials()
	now := time.Now()

	withClaim := func(key string, value any) jwt.MapClaims {
		c := validClaims(now)
		if value == nil {
			delete(c, key)
		} else {
			c[key] = value
		}
		return c
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.jwt"},
		{name: "wrong algorithm", token: signClaims(t, jwt.SigningMethodHS512, testSecret, validClaims(now))},
		{name: "wrong issuer", token: signClaims(t, jwt.SigningMethodHS256, testSecret, withClaim("iss", "someone-else"))},
		{name: "wrong audience", token: signClaims(t, jwt.SigningMethodHS256, testSecret, withClaim("aud", "other-client"))},
		{name: "missing expiry", token: signClaims(t, jwt.SigningMethodHS256, testSecret, withClaim("exp", nil))},
		{name: "expired", token: signClaims(t, jwt.SigningMethodHS256, testSecret, withClaim("exp", now.Add(-time.Minute).Unix()))},
		{name: "not yet valid", token: signClaims(t, jwt.SigningMethodHS256, testSecret, withClaim("nbf", now.Add(time.Hour).Unix()))},
		{name: "non numeric subject", token: signClaims(t, jwt.SigningMethodHS256, testSecret, withClaim("sub", "admin"))},
		{name: "subject overflows uint", token: signClaims(t, jwt.SigningMethodHS256, testSecret, withClaim("sub", "18446744073709551616"))},
		{name: "zero subject", token: signClaims(t, jwt.SigningMethodHS256, testSecret, withClaim("sub", "0"))},
		{name: "missing subject", token: signClaims(t, jwt.SigningMethodHS256, testSecret, withClaim("sub", nil))},
		{name: "unsigned", token: signClaims(t, jwt.SigningMethodNone, "", validClaims(now))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := creds.ValidateToken(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidToken))
			assert.Equal(t, "Invalid or expired session", err.Error(), "every failure looks the same")
		})
	}
}

func TestCredentialService_IssueTokenWithoutSecret(t *testing.T) {
	t.Parallel()
	creds := NewCredentialService(&config.Config{})
	_, err := creds.IssueToken(1)
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))

	_, err = creds.ValidateToken("anything")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zumerkk/entas-sub001/common/auth"
)

func TestTokenValidator_RoundTrip(t *testing.T) {
	v := auth.NewTokenValidator("  s3cret  ")
	token, err := v.SignToken("user-1", "admin", "access", time.Minute)
	require.NoError(t, err)

	claims, err := v.ParseAndValidateToken(token, "access")
	require.NoError(t, err)
	assert.Equal(t, &auth.Claims{UserID: "user-1", Role: "admin", Type: "access"}, claims)

	// Whitespace around the configured secret is ignored.
	_, err = auth.NewTokenValidator("s3cret").ParseAndValidateToken(token, "")
	assert.NoError(t, err)
}

func TestTokenValidator_SubjectFallback(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-9",
		"typ": "access",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("s3cret"))
	require.NoError(t, err)

	claims, err := auth.NewTokenValidator("s3cret").ParseAndValidateToken(signed, "access")
	require.NoError(t, err)
	assert.Equal(t, "user-9", claims.UserID)
}

func TestTokenValidator_Errors(t *testing.T) {
	v := auth.NewTokenValidator("s3cret")

	refresh, err := v.SignToken("user-1", "", "refresh", time.Minute)
	require.NoError(t, err)
	_, err = v.ParseAndValidateToken(refresh, "access")
	assert.ErrorIs(t, err, auth.ErrInvalidTokenType)

	anonymous, err := v.SignToken("", "", "access", time.Minute)
	require.NoError(t, err)
	_, err = v.ParseAndValidateToken(anonymous, "access")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "user-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.ParseAndValidateToken(unsigned, "")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = auth.NewTokenValidator(" ").ParseAndValidateToken(refresh, "")
	assert.ErrorIs(t, err, auth.ErrSecretNotConfigured)
	_, err = auth.NewTokenValidator("").SignToken("user-1", "", "access", time.Minute)
	assert.ErrorIs(t, err, auth.ErrSecretNotConfigured)
}

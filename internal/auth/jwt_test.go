package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/pantry-sync/internal/auth"
)

const secret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	token, err := auth.GenerateToken(secret, "owner-1", time.Hour)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenRejects(t *testing.T) {
	t.Run("Should reject a different secret", func(t *testing.T) {
		token, err := auth.GenerateToken(secret, "owner-1", time.Hour)
		require.NoError(t, err)

		_, err = auth.ValidateToken("other", token)
		assert.Error(t, err)
	})

	t.Run("Should reject an expired token", func(t *testing.T) {
		token, err := auth.GenerateToken(secret, "owner-1", -time.Minute)
		require.NoError(t, err)

		_, err = auth.ValidateToken(secret, token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("Should reject the none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "owner-1"})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = auth.ValidateToken(secret, signed)
		assert.Error(t, err)
	})

	t.Run("Should reject garbage", func(t *testing.T) {
		_, err := auth.ValidateToken(secret, "not-a-token")
		assert.Error(t, err)
	})

	t.Run("Should refuse to mint a token without owner", func(t *testing.T) {
		_, err := auth.GenerateToken(secret, "", time.Hour)
		assert.Error(t, err)
	})
}

func TestOwnerContext(t *testing.T) {
	_, ok := auth.OwnerFromContext(context.Background())
	assert.False(t, ok)

	owner, ok := auth.OwnerFromContext(auth.NewContext(context.Background(), "owner-1"))
	assert.True(t, ok)
	assert.Equal(t, "owner-1", owner)
}

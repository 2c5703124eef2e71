package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	s := NewService("test-secret")
	s.RegisterAPICredentials("plant-key", "plant-secret")

	token, err := s.GenerateToken(Credentials{APIKey: "plant-key", APISecret: "plant-secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.True(t, token.Expiration.After(time.Now()))

	claims, err := s.ValidateToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, "plant-key", claims.ClientID)
	assert.Contains(t, claims.Permissions, "inventory")
}

func TestGenerateTokenRejectsBadCredentials(t *testing.T) {
	s := NewService("test-secret")
	s.RegisterAPICredentials("plant-key", "plant-secret")

	_, err := s.GenerateToken(Credentials{APIKey: "plant-key", APISecret: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.GenerateToken(Credentials{APIKey: "unknown", APISecret: "plant-secret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	issuer := NewService("secret-a")
	issuer.RegisterAPICredentials("plant-key", "plant-secret")
	verifier := NewService("secret-b")

	token, err := issuer.GenerateToken(Credentials{APIKey: "plant-key", APISecret: "plant-secret"})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token.Token)
	assert.Error(t, err)

	_, err = verifier.ValidateToken("not-a-token")
	assert.Error(t, err)
}

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmesh/pkg/auth"
)

var testConfig = auth.JWTConfig{
	SecretKey: "test-secret",
	Issuer:    "mindmesh",
	Audience:  []string{"mindmesh-api"},
}

func TestGenerateValidateRoundTrip(t *testing.T) {
	gen, err := auth.NewJWTGenerator(testConfig, time.Hour)
	require.NoError(t, err)
	validator, err := auth.NewJWTValidator(testConfig)
	require.NoError(t, err)

	token, err := gen.GenerateToken("user-1", "u@example.com", []string{"authenticated"})
	require.NoError(t, err)

	claims, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, []string{"authenticated"}, claims.Roles)
}

func TestExpiredToken(t *testing.T) {
	gen, err := auth.NewJWTGenerator(testConfig, time.Nanosecond)
	require.NoError(t, err)
	validator, err := auth.NewJWTValidator(testConfig)
	require.NoError(t, err)

	token, err := gen.GenerateToken("user-1", "", nil)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestWrongSecret(t *testing.T) {
	gen, err := auth.NewJWTGenerator(testConfig, time.Hour)
	require.NoError(t, err)

	other := testConfig
	other.SecretKey = "different-secret"
	validator, err := auth.NewJWTValidator(other)
	require.NoError(t, err)

	token, err := gen.GenerateToken("user-1", "", nil)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidSignature)
}

func TestWrongIssuer(t *testing.T) {
	other := testConfig
	other.Issuer = "someone-else"
	gen, err := auth.NewJWTGenerator(other, time.Hour)
	require.NoError(t, err)
	validator, err := auth.NewJWTValidator(testConfig)
	require.NoError(t, err)

	token, err := gen.GenerateToken("user-1", "", nil)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.Error(t, err)
}

func TestMissingUserID(t *testing.T) {
	gen, err := auth.NewJWTGenerator(testConfig, time.Hour)
	require.NoError(t, err)
	validator, err := auth.NewJWTValidator(testConfig)
	require.NoError(t, err)

	token, err := gen.GenerateToken("", "", nil)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.Error(t, err)
}

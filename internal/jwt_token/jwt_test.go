package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "shadow/pkg/domain-errors"
)

const wallet = "So11111111111111111111111111111111111111112"

var jwtService = NewJWTService("test-signing-key", "test-issuer")

func Test_GenerateWalletToken(t *testing.T) {
	token, err := jwtService.GenerateWalletToken(wallet, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, wallet, claims.Wallet)
	assert.Equal(t, wallet, claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateWalletToken(wallet, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	var de *dErrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "token has expired", de.Message)
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	token, err := NewJWTService("other-key", "test-issuer").GenerateWalletToken(wallet, time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_WrongIssuer(t *testing.T) {
	token, err := NewJWTService("test-signing-key", "someone-else").GenerateWalletToken(wallet, time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_MissingWallet(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_WalletValidator(t *testing.T) {
	token, err := jwtService.GenerateWalletToken(wallet, time.Hour)
	require.NoError(t, err)

	claims, err := NewWalletValidator(jwtService).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, wallet, claims.Wallet)
	assert.NotEmpty(t, claims.JTI)
}

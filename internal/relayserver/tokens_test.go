package relayserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("device-1", secret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	deviceID, err := GetDeviceIDFromToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "device-1", deviceID)
}

func TestTokens_WrongSecret(t *testing.T) {
	token, err := GenerateToken("device-1", []byte("secret-a"), time.Hour)
	require.NoError(t, err)

	_, err = GetDeviceIDFromToken(token, []byte("secret-b"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_Expired(t *testing.T) {
	token, err := GenerateToken("device-1", []byte("secret"), -time.Minute)
	require.NoError(t, err)

	_, err = GetDeviceIDFromToken(token, []byte("secret"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_Garbage(t *testing.T) {
	_, err := GetDeviceIDFromToken("not a token", []byte("secret"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

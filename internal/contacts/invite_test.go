package contacts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := NewInviteCode()
		assert.Len(t, code, CodeLength)
		for _, r := range code {
			assert.Contains(t, codeAlphabet, string(r))
		}
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABCD2345", NormalizeCode("  abcd2345 "))
}

func TestInvite_TransferPayloadRoundTrip(t *testing.T) {
	inv := &Invite{
		Code:      "ABCD2345",
		SharedKey: []byte("0123456789abcdef0123456789abcdef"),
		ExpiresAt: time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
	}

	code, key, expiresAt, err := ParseTransferPayload(inv.TransferPayload())
	require.NoError(t, err)
	assert.Equal(t, inv.Code, code)
	assert.Equal(t, inv.SharedKey, key)
	assert.True(t, expiresAt.Equal(inv.ExpiresAt))
}

func TestParseTransferPayload_BareCode(t *testing.T) {
	code, key, _, err := ParseTransferPayload(" abcd2345\n")
	require.NoError(t, err)
	assert.Equal(t, "ABCD2345", code)
	assert.Empty(t, key)
}

func TestParseTransferPayload_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too many parts", "A:B:C:D"},
		{"bad key encoding", "ABCD2345:!!!:123"},
		{"bad expiry", "ABCD2345:a2V5:soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := ParseTransferPayload(tt.input)
			assert.Error(t, err)
		})
	}
}

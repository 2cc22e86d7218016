package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privault/privault/internal/common"
)

func TestMemoryRelay_InviteLifecycle(t *testing.T) {
	r := NewMemoryRelay()
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := r.FetchInvite(ctx, "UNKNOWN1")
	assert.ErrorIs(t, err, common.ErrInviteNotFound)

	inv := &InviteRecord{
		Code:         "ABCD2345",
		SharedKeyRef: []byte("keyref"),
		ConnectionID: "conn-1",
		ExpiresAt:    now.Add(24 * time.Hour),
	}
	require.NoError(t, r.RegisterInvite(ctx, inv))

	got, err := r.FetchInvite(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.Equal(t, inv.SharedKeyRef, got.SharedKeyRef)
	assert.Equal(t, "conn-1", got.ConnectionID)

	// expiry is enforced even though the record is still present
	now = now.Add(24*time.Hour + time.Second)
	_, err = r.FetchInvite(ctx, "ABCD2345")
	assert.ErrorIs(t, err, common.ErrInviteExpired)
}

func TestMemoryRelay_SendAndSubscribe(t *testing.T) {
	r := NewMemoryRelay()
	ctx := context.Background()

	var got []Message
	unsub, err := r.Subscribe("conn-1", func(m Message) { got = append(got, m) })
	require.NoError(t, err)

	ack, err := r.SendMessage(ctx, "conn-1", "device-a", []byte("cipher"))
	require.NoError(t, err)
	assert.NotEmpty(t, ack.ID)

	require.Len(t, got, 1)
	assert.Equal(t, "device-a", got[0].SenderID)
	assert.Equal(t, []byte("cipher"), got[0].CipherContent)

	// other channels do not see it
	_, err = r.SendMessage(ctx, "conn-2", "device-a", []byte("cipher"))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// after unsubscribe nothing is delivered
	unsub()
	_, err = r.SendMessage(ctx, "conn-1", "device-a", []byte("cipher"))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

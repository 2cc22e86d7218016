package contacts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privault/privault/internal/common"
	"github.com/privault/privault/internal/cryptox"
	"github.com/privault/privault/internal/kvstore"
	"github.com/privault/privault/internal/logging"
	"github.com/privault/privault/internal/relay"
	"github.com/privault/privault/internal/vault"
)

func setupService(t *testing.T, r relay.Relay) (*Service, *vault.Vault, kvstore.Store) {
	t.Helper()

	store := kvstore.NewMemoryStore()
	v := vault.New(store, vault.DefaultConfig(), logging.Nop())
	_, err := v.Setup(context.Background(), "1234", "1234")
	require.NoError(t, err)

	return NewService(store, v, r, "device-a", logging.Nop()), v, store
}

func TestService_CreateInvite_OutOfBand(t *testing.T) {
	s, _, store := setupService(t, nil)
	ctx := context.Background()

	inv, err := s.CreateInvite(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, inv.Code, CodeLength)
	assert.Len(t, inv.SharedKey, cryptox.KeySize)
	assert.False(t, inv.Registered)
	assert.Equal(t, StatusPending, inv.Connection.Status)

	conns, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, inv.Connection.Id, conns[0].Id)

	// the persisted form is sealed, not recognizable JSON
	blob, err := store.Get(ctx, kvstore.KeyContacts)
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "alice")
}

func TestService_CreateInvite_RegistersWithRelay(t *testing.T) {
	r := relay.NewMemoryRelay()
	s, _, _ := setupService(t, r)
	ctx := context.Background()

	inv, err := s.CreateInvite(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, inv.Registered)
	assert.True(t, inv.Connection.Linked())

	rec, err := r.FetchInvite(ctx, inv.Code)
	require.NoError(t, err)
	assert.Equal(t, inv.SharedKey, rec.SharedKeyRef)
	assert.Equal(t, inv.Connection.Id, rec.ConnectionID)
}

func TestService_RedeemInvite_ViaRelay(t *testing.T) {
	r := relay.NewMemoryRelay()
	inviter, _, _ := setupService(t, r)
	redeemer, _, _ := setupService(t, r)
	ctx := context.Background()

	inv, err := inviter.CreateInvite(ctx, "bob")
	require.NoError(t, err)

	conn, err := redeemer.RedeemInvite(ctx, inv.Code, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, conn.Status)
	assert.Equal(t, inv.SharedKey, conn.SharedKey)
	assert.Equal(t, inv.Connection.Id, conn.RemoteConnectionID)
}

func TestService_RedeemInvite_OutOfBandPayload(t *testing.T) {
	inviter, _, _ := setupService(t, nil)
	redeemer, _, _ := setupService(t, nil)
	ctx := context.Background()

	inv, err := inviter.CreateInvite(ctx, "bob")
	require.NoError(t, err)

	conn, err := redeemer.RedeemInvite(ctx, inv.TransferPayload(), "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, conn.Status)
	assert.Equal(t, inv.SharedKey, conn.SharedKey)
	assert.False(t, conn.Linked())
}

func TestService_RedeemInvite_BareCodeWithoutRelay(t *testing.T) {
	s, _, _ := setupService(t, nil)

	_, err := s.RedeemInvite(context.Background(), "ABCD2345", "alice")
	assert.ErrorIs(t, err, common.ErrInviteNotFound)
}

func TestService_RedeemInvite_UnknownCode(t *testing.T) {
	s, _, _ := setupService(t, relay.NewMemoryRelay())

	_, err := s.RedeemInvite(context.Background(), "ABCD2345", "alice")
	assert.ErrorIs(t, err, common.ErrInviteNotFound)
}

func TestService_RedeemInvite_Expired(t *testing.T) {
	r := relay.NewMemoryRelay()
	inviter, _, _ := setupService(t, r)
	redeemer, _, _ := setupService(t, r)
	ctx := context.Background()

	inv, err := inviter.CreateInvite(ctx, "bob")
	require.NoError(t, err)

	// relay path past the deadline
	redeemer.now = func() time.Time { return inv.ExpiresAt.Add(time.Second) }
	_, err = redeemer.RedeemInvite(ctx, inv.Code, "alice")
	assert.ErrorIs(t, err, common.ErrInviteExpired)

	// out-of-band payload enforces the embedded expiry too
	_, err = redeemer.RedeemInvite(ctx, inv.TransferPayload(), "alice")
	assert.ErrorIs(t, err, common.ErrInviteExpired)
}

func TestService_RedeemInvite_Idempotent(t *testing.T) {
	r := relay.NewMemoryRelay()
	inviter, _, _ := setupService(t, r)
	redeemer, _, _ := setupService(t, r)
	ctx := context.Background()

	inv, err := inviter.CreateInvite(ctx, "bob")
	require.NoError(t, err)

	first, err := redeemer.RedeemInvite(ctx, inv.Code, "alice")
	require.NoError(t, err)
	second, err := redeemer.RedeemInvite(ctx, inv.Code, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.Id, second.Id)

	conns, err := redeemer.List(ctx)
	require.NoError(t, err)
	assert.Len(t, conns, 1)
}

func TestService_LockedVaultRefusesAccess(t *testing.T) {
	s, v, _ := setupService(t, nil)
	ctx := context.Background()

	_, err := s.CreateInvite(ctx, "alice")
	require.NoError(t, err)

	v.Lock()

	_, err = s.List(ctx)
	assert.ErrorIs(t, err, common.ErrVaultLocked)
	_, err = s.CreateInvite(ctx, "bob")
	assert.ErrorIs(t, err, common.ErrVaultLocked)
}

func TestService_BlockAndAccept(t *testing.T) {
	s, _, _ := setupService(t, nil)
	ctx := context.Background()

	inv, err := s.CreateInvite(ctx, "alice")
	require.NoError(t, err)
	id := inv.Connection.Id

	require.NoError(t, s.MarkAccepted(ctx, id))
	conn, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, conn.Status)

	require.NoError(t, s.Block(ctx, id))
	conn, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, conn.Status)

	assert.ErrorIs(t, s.Block(ctx, "missing"), common.ErrorNotFound)
}

func TestService_TouchLastMessage(t *testing.T) {
	s, _, _ := setupService(t, nil)
	ctx := context.Background()

	inv, err := s.CreateInvite(ctx, "alice")
	require.NoError(t, err)

	at := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchLastMessage(ctx, inv.Connection.Id, at))

	conn, err := s.Get(ctx, inv.Connection.Id)
	require.NoError(t, err)
	require.NotNil(t, conn.LastMessageAt)
	assert.True(t, conn.LastMessageAt.Equal(at))
}

func TestService_FindByRemoteConnectionID(t *testing.T) {
	r := relay.NewMemoryRelay()
	s, _, _ := setupService(t, r)
	ctx := context.Background()

	inv, err := s.CreateInvite(ctx, "alice")
	require.NoError(t, err)

	conn, err := s.FindByRemoteConnectionID(ctx, inv.Connection.RemoteConnectionID)
	require.NoError(t, err)
	assert.Equal(t, inv.Connection.Id, conn.Id)

	_, err = s.FindByRemoteConnectionID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

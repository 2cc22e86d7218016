package relayserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privault/privault/internal/logging"
	"github.com/privault/privault/internal/relay"
)

type published struct {
	subject string
	data    []byte
}

func setupServer(t *testing.T) (*Server, *[]published) {
	t.Helper()

	s := New(NewMemoryStore(), []byte("test-secret"), logging.Nop())
	var pubs []published
	s.publish = func(subject string, data []byte) error {
		pubs = append(pubs, published{subject, data})
		return nil
	}
	return s, &pubs
}

func call(t *testing.T, handler func(context.Context, []byte) []byte, req any) relay.Envelope {
	t.Helper()

	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var env relay.Envelope
	require.NoError(t, json.Unmarshal(handler(context.Background(), raw), &env))
	return env
}

func registerDevice(t *testing.T, s *Server, deviceID string) string {
	t.Helper()

	env := call(t, s.HandleDeviceRegister, relay.DeviceRegisterRequest{DeviceID: deviceID})
	require.True(t, env.OK, "register failed: %s", env.Error)

	var resp relay.DeviceRegisterResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp.AccessToken
}

func TestServer_DeviceRegisterIssuesValidToken(t *testing.T) {
	s, _ := setupServer(t)

	token := registerDevice(t, s, "device-1")
	deviceID, err := GetDeviceIDFromToken(token, s.secret)
	require.NoError(t, err)
	assert.Equal(t, "device-1", deviceID)
}

func TestServer_DeviceRegisterRejectsEmptyID(t *testing.T) {
	s, _ := setupServer(t)

	env := call(t, s.HandleDeviceRegister, relay.DeviceRegisterRequest{})
	assert.False(t, env.OK)
	assert.Equal(t, relay.WireErrInternal, env.Error)
}

func TestServer_InviteLifecycle(t *testing.T) {
	s, _ := setupServer(t)
	token := registerDevice(t, s, "device-1")
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	env := call(t, s.HandleInviteFetch, relay.InviteFetchRequest{Code: "ABCD2345"})
	assert.False(t, env.OK)
	assert.Equal(t, relay.WireErrInviteNotFound, env.Error)

	env = call(t, s.HandleInviteRegister, relay.InviteRegisterRequest{
		AccessToken:  token,
		Code:         "ABCD2345",
		SharedKeyRef: []byte("keyref"),
		ConnectionID: "conn-1",
		ExpiresAt:    now.Add(24 * time.Hour),
	})
	require.True(t, env.OK, env.Error)

	env = call(t, s.HandleInviteFetch, relay.InviteFetchRequest{Code: "ABCD2345"})
	require.True(t, env.OK, env.Error)
	var resp relay.InviteFetchResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, []byte("keyref"), resp.SharedKeyRef)
	assert.Equal(t, "conn-1", resp.ConnectionID)

	// past the deadline the stored record is reported expired
	s.now = func() time.Time { return now.Add(24*time.Hour + time.Second) }
	env = call(t, s.HandleInviteFetch, relay.InviteFetchRequest{Code: "ABCD2345"})
	assert.False(t, env.OK)
	assert.Equal(t, relay.WireErrInviteExpired, env.Error)
}

func TestServer_InviteRegisterRequiresToken(t *testing.T) {
	s, _ := setupServer(t)

	env := call(t, s.HandleInviteRegister, relay.InviteRegisterRequest{
		AccessToken: "bogus",
		Code:        "ABCD2345",
	})
	assert.False(t, env.OK)
	assert.Equal(t, relay.WireErrUnauthorized, env.Error)
}

func TestServer_MessageSendStoresAndPushes(t *testing.T) {
	s, pubs := setupServer(t)
	token := registerDevice(t, s, "device-1")

	env := call(t, s.HandleMessageSend, relay.MessageSendRequest{
		AccessToken:   token,
		ConnectionID:  "conn-1",
		SenderID:      "device-1",
		CipherContent: []byte("cipher"),
	})
	require.True(t, env.OK, env.Error)

	var msg relay.Message
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "device-1", msg.SenderID)

	require.Len(t, *pubs, 1)
	assert.Equal(t, relay.DeliverSubject("conn-1"), (*pubs)[0].subject)

	var pushed relay.Message
	require.NoError(t, json.Unmarshal((*pubs)[0].data, &pushed))
	assert.Equal(t, msg.ID, pushed.ID)
	assert.Equal(t, []byte("cipher"), pushed.CipherContent)
}

func TestServer_MessageSendRejectsSpoofedSender(t *testing.T) {
	s, pubs := setupServer(t)
	token := registerDevice(t, s, "device-1")

	env := call(t, s.HandleMessageSend, relay.MessageSendRequest{
		AccessToken:   token,
		ConnectionID:  "conn-1",
		SenderID:      "device-other",
		CipherContent: []byte("cipher"),
	})
	assert.False(t, env.OK)
	assert.Equal(t, relay.WireErrUnauthorized, env.Error)
	assert.Empty(t, *pubs)
}

func TestServer_MessageSendRequiresToken(t *testing.T) {
	s, _ := setupServer(t)

	env := call(t, s.HandleMessageSend, relay.MessageSendRequest{
		AccessToken:  "bogus",
		ConnectionID: "conn-1",
	})
	assert.False(t, env.OK)
	assert.Equal(t, relay.WireErrUnauthorized, env.Error)
}

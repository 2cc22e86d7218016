package contacts

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// codeAlphabet excludes the confusable characters 0/O and 1/I so codes can be
// read aloud or retyped from a screen without ambiguity.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the invite code length.
const CodeLength = 8

// NewInviteCode draws a fresh random invite code.
func NewInviteCode() string {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	out := make([]byte, CodeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out)
}

// NormalizeCode upcases and trims a user-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Invite is the result of CreateInvite: the code and key to convey to the
// counterpart, plus the pending connection awaiting redemption.
type Invite struct {
	Code       string
	SharedKey  []byte
	ExpiresAt  time.Time
	Connection *Connection
	// Registered reports whether the relay accepted the invite. When false
	// the invite is still valid for out-of-band key transfer.
	Registered bool
}

// TransferPayload renders the out-of-band form of the invite
// (code:key:expiry), suitable for a QR payload or a copyable link fragment.
// The confidentiality of the channel carrying it is the caller's concern.
func (i *Invite) TransferPayload() string {
	return fmt.Sprintf("%s:%s:%d",
		i.Code,
		base64.RawURLEncoding.EncodeToString(i.SharedKey),
		i.ExpiresAt.Unix(),
	)
}

// ParseTransferPayload splits a redemption input into its parts. A bare code
// yields an empty key; the full payload carries the shared key and expiry for
// relay-less redemption.
func ParseTransferPayload(s string) (code string, key []byte, expiresAt time.Time, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")

	switch len(parts) {
	case 1:
		return NormalizeCode(parts[0]), nil, time.Time{}, nil
	case 3:
		code = NormalizeCode(parts[0])
		key, err = base64.RawURLEncoding.DecodeString(parts[1])
		if err != nil {
			return "", nil, time.Time{}, fmt.Errorf("malformed invite key: %w", err)
		}
		unix, convErr := strconv.ParseInt(parts[2], 10, 64)
		if convErr != nil {
			return "", nil, time.Time{}, fmt.Errorf("malformed invite expiry: %w", convErr)
		}
		return code, key, time.Unix(unix, 0), nil
	default:
		return "", nil, time.Time{}, fmt.Errorf("malformed invite payload")
	}
}

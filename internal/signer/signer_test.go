package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignIsDeterministic(t *testing.T) {
	s := New(123456, "secret-key")

	a := s.Sign("/api/v2/order/get_order_list", 1700000000, "access-token", 987654)
	b := s.Sign("/api/v2/order/get_order_list", 1700000000, "access-token", 987654)

	require.Equal(t, a, b)
	assert.Len(t, a, 64) // hex-encoded SHA-256
}

func TestSignChangesWithEveryComponent(t *testing.T) {
	s := New(123456, "secret-key")
	base := s.Sign("/api/v2/order/get_order_list", 1700000000, "access-token", 987654)

	cases := map[string]string{
		"path":      s.Sign("/api/v2/order/get_order_detail", 1700000000, "access-token", 987654),
		"timestamp": s.Sign("/api/v2/order/get_order_list", 1700000001, "access-token", 987654),
		"token":     s.Sign("/api/v2/order/get_order_list", 1700000000, "other-token", 987654),
		"shop":      s.Sign("/api/v2/order/get_order_list", 1700000000, "access-token", 111111),
	}
	for name, got := range cases {
		assert.NotEqualf(t, base, got, "%s should change the signature", name)
	}
}

func TestSignOmitsOptionalComponentsWhenAbsent(t *testing.T) {
	s := New(123456, "secret-key")

	// Public, unauthenticated calls (e.g. get_access_token) pass no access
	// token or shop id — those components must contribute no bytes, not the
	// literal string "null" or "0".
	withoutOptional := s.Sign("/api/v2/auth/token/get", 1700000000, "", 0)

	mac := hmac.New(sha256.New, []byte("secret-key"))
	mac.Write([]byte("123456/api/v2/auth/token/get1700000000"))
	expected := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, withoutOptional)
}

func TestPartnerID(t *testing.T) {
	s := New(42, "k")
	assert.Equal(t, int64(42), s.PartnerID())
}

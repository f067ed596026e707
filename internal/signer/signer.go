// Package signer builds the HMAC-SHA256 signatures required by every
// authenticated Shopee Open API v2 call (spec.md §4.1).
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Signer holds the partner secret used to key every signature.
type Signer struct {
	partnerID  int64
	partnerKey string
}

// New constructs a Signer for one partner identity.
func New(partnerID int64, partnerKey string) *Signer {
	return &Signer{partnerID: partnerID, partnerKey: partnerKey}
}

// Sign computes the hex HMAC-SHA256 over
// partner_id || path || timestamp || access_token || shop_id,
// keyed by the partner secret. accessToken and shopID are optional: when
// accessToken is empty or shopID is zero, that component contributes no
// bytes to the base string — never the literal string "null".
func (s *Signer) Sign(path string, timestamp int64, accessToken string, shopID int64) string {
	base := strconv.FormatInt(s.partnerID, 10) + path + strconv.FormatInt(timestamp, 10)
	if accessToken != "" {
		base += accessToken
	}
	if shopID != 0 {
		base += strconv.FormatInt(shopID, 10)
	}

	mac := hmac.New(sha256.New, []byte(s.partnerKey))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

// PartnerID exposes the partner id this Signer was built with, so the API
// client can include it in the outgoing query string.
func (s *Signer) PartnerID() int64 { return s.partnerID }

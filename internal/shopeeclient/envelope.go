package shopeeclient

import "encoding/json"

// envelope is the common wrapper every Shopee Open API v2 response uses.
// A response is an error if Error is non-empty; Message then carries the
// human-readable reason (spec.md §4.2).
type envelope struct {
	Error      string          `json:"error"`
	Message    string          `json:"message"`
	RequestID  string          `json:"request_id"`
	Warning    string          `json:"warning"`
	Response   json.RawMessage `json:"response"`
}

// fatalErrorCodes are marketplace error codes that are not worth retrying
// within a shop cycle — authentication is broken, not transient.
var fatalErrorCodes = map[string]bool{
	"error_auth":        true,
	"error_sign":        true,
	"error_permission":  true,
	"invalid_access_token": true,
}

func isFatalCode(code string) bool {
	return fatalErrorCodes[code]
}

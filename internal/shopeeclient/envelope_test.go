package shopeeclient

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"shopee-ingest/internal/ingesterr"
)

func TestIsFatalCode(t *testing.T) {
	assert.True(t, isFatalCode("error_auth"))
	assert.True(t, isFatalCode("invalid_access_token"))
	assert.False(t, isFatalCode("error_param"))
	assert.False(t, isFatalCode(""))
}

func TestClassifyTransportErrorTimeout(t *testing.T) {
	err := classifyTransportError(timeoutErr{})
	var transportErr *ingesterr.TransportError
	if assert.True(t, errors.As(err, &transportErr)) {
		assert.Equal(t, "timeout", transportErr.Op)
	}
}

func TestClassifyTransportErrorOpError(t *testing.T) {
	err := classifyTransportError(&net.OpError{Op: "dial", Err: errors.New("refused")})
	var transportErr *ingesterr.TransportError
	if assert.True(t, errors.As(err, &transportErr)) {
		assert.Equal(t, "connection_reset", transportErr.Op)
	}
}

func TestClassifyTransportErrorGeneric(t *testing.T) {
	err := classifyTransportError(errors.New("boom"))
	var transportErr *ingesterr.TransportError
	if assert.True(t, errors.As(err, &transportErr)) {
		assert.Equal(t, "transport", transportErr.Op)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

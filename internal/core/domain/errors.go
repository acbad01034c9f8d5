package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStopWallet ends the remaining action sequence for a wallet early.
	// It signals completion, not failure.
	ErrStopWallet = errors.New("wallet sequence stopped")

	// ErrBootstrapFailed means a zero-balance wallet could not be funded.
	ErrBootstrapFailed = errors.New("bootstrap failed: wallet balance is still zero")

	// ErrReserveExhausted means the reserve proxy pool has no entries left.
	ErrReserveExhausted = errors.New("reserve proxy pool exhausted")
)

// TransportError marks a network-level failure (proxy dead, connection
// refused, timeout) as opposed to a platform-level rejection.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

var transportPatterns = []string{
	"connection refused",
	"connection reset",
	"proxyconnect",
	"no such host",
	"i/o timeout",
	"tls handshake",
	"unexpected eof",
	"broken pipe",
	"context deadline exceeded",
}

// IsTransportFailure reports whether err should trigger a proxy failover.
func IsTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range transportPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Package resilience retries calls to external services, classifying which
// failures are worth a second attempt.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// IsTransient reports whether err looks like a temporary failure worth
// retrying: a network timeout, a dropped connection, or a model API that is
// momentarily overloaded.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"overloaded",
		"rate limit",
		"too many requests",
		"connection reset by peer",
		"broken pipe",
		"tls handshake timeout",
		"i/o timeout",
		"no such host",
		"temporarily unavailable",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// RetryableStatus reports whether an HTTP status from the model API is worth
// retrying. 529 is the overloaded status Anthropic returns under load.
func RetryableStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504, 529:
		return true
	}
	return false
}

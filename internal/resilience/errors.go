package resilience

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"syscall"
)

// IsTransient reports whether err is worth retrying: network timeouts,
// refused or reset connections, and FTP 4xx transient negative replies
// (421 service not available, 425 data connection, 450 file busy, ...).
// FTP 5xx replies such as 550 file not found are permanent, and so is a
// cancelled or expired context.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 400 && protoErr.Code < 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE)
}

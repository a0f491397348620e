package transport

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"

	"telly/internal/logger"
)

var insecureOnce sync.Once

// WarnInsecure logs the disabled-verification warning once per process
func WarnInsecure() {
	insecureOnce.Do(func() {
		log := logger.GetLogger("transport")
		log.Warn().Msg("TLS certificate verification is disabled for TV endpoints with self-signed certificates")
	})
}

// NormalizeError turns a transport error into a short human message
func NormalizeError(err error) string {
	if err == nil {
		return ""
	}

	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var dnsErr *net.DNSError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return "timed out"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return "host unreachable"
	case errors.Is(err, syscall.ECONNRESET):
		return "connection reset"
	case errors.As(err, &unknownAuthority), errors.As(err, &hostnameErr):
		return "certificate not trusted"
	case errors.As(err, &dnsErr):
		return "host not found"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timed out"
	}

	msg := err.Error()
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		msg = urlErr.Err.Error()
	}
	if i := strings.LastIndex(msg, ": "); i >= 0 && i+2 < len(msg) {
		msg = msg[i+2:]
	}
	return msg
}

package securechannel

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"telly/internal/logger"
	"telly/internal/tizen"
	"telly/internal/transport"
)

const (
	DefaultPort           = 8002
	DefaultConnectTimeout = 8 * time.Second
	DefaultTokenTimeout   = 4 * time.Second
	DefaultPairingTimeout = 12 * time.Second
)

// Reason classifies a secure channel failure
type Reason string

const (
	ReasonInvalidHost           Reason = "invalid_host"
	ReasonTimeout               Reason = "timeout"
	ReasonUnauthorized          Reason = "unauthorized"
	ReasonPinMismatch           Reason = "pin_mismatch"
	ReasonTrustChallengeMissing Reason = "trust_challenge_missing"
	ReasonSendFailed            Reason = "send_failed"
)

// Error is returned by SendPinned
type Error struct {
	Reason Reason
	// Opened is set once the TLS socket was established
	Opened   bool
	Observed string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("secure channel %s: %v", e.Reason, e.Err)
	}
	return "secure channel " + string(e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the failure reason from err, or "" when err is not a channel error
func ReasonOf(err error) Reason {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ""
}

// Request describes one pinned key push
type Request struct {
	Host              string
	Port              int
	AppName           string
	Key               string
	Token             string
	PinnedFingerprint string
}

// Response carries the credentials observed during a successful push
type Response struct {
	Token                  string
	CertificateFingerprint string
}

// Channel performs the pinned-TLS variant of the Samsung remote protocol
type Channel struct {
	ConnectTimeout time.Duration
	TokenTimeout   time.Duration
	PairingTimeout time.Duration

	logger zerolog.Logger
}

// New returns a channel with default timeouts
func New() *Channel {
	return &Channel{
		ConnectTimeout: DefaultConnectTimeout,
		TokenTimeout:   DefaultTokenTimeout,
		PairingTimeout: DefaultPairingTimeout,
		logger:         logger.GetLogger("securechannel"),
	}
}

// SendPinned connects, verifies the certificate against the pin, pushes one key and
// waits for the TV's verdict. The socket is closed before returning.
func (c *Channel) SendPinned(ctx context.Context, req Request) (*Response, error) {
	if !IsPrivateLANHost(req.Host) {
		return nil, &Error{Reason: ReasonInvalidHost, Err: fmt.Errorf("%q is not a private LAN host", req.Host)}
	}

	var decision Decision
	tlsConfig := &tls.Config{
		// Chain validation is replaced by fingerprint pinning in VerifyConnection.
		InsecureSkipVerify: true, //nolint:gosec
		VerifyConnection: func(cs tls.ConnectionState) error {
			decision = EvaluateTrust(cs.PeerCertificates, req.Host, req.PinnedFingerprint)
			if !decision.Accept {
				return &Error{Reason: decision.Reason, Observed: decision.Observed}
			}
			return nil
		},
	}

	dialer := websocket.Dialer{
		TLSClientConfig:  tlsConfig,
		HandshakeTimeout: c.ConnectTimeout,
	}

	port := req.Port
	if port <= 0 {
		port = DefaultPort
	}
	url := tizen.URL("wss", transport.HostPort(req.Host, port, DefaultPort), req.AppName, req.Token)

	dialCtx, cancel := context.WithTimeout(ctx, c.ConnectTimeout)
	defer cancel()

	c.logger.Debug().Str("host", req.Host).Int("port", port).Bool("pinned", req.PinnedFingerprint != "").Msg("Opening pinned channel")

	conn, _, err := dialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return nil, c.dialError(err, decision)
	}
	defer conn.Close()

	timeout := c.PairingTimeout
	if req.Token != "" {
		timeout = c.TokenTimeout
	}

	out, err := tizen.Exchange(ctx, conn, req.Key, timeout)
	if err != nil {
		reason := ReasonSendFailed
		switch {
		case errors.Is(err, tizen.ErrUnauthorized):
			reason = ReasonUnauthorized
		case errors.Is(err, tizen.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
			reason = ReasonTimeout
		}
		return nil, &Error{Reason: reason, Opened: true, Observed: decision.Observed, Err: err}
	}

	return &Response{Token: out.Token, CertificateFingerprint: decision.Observed}, nil
}

func (c *Channel) dialError(err error, decision Decision) error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	if decision.Reason != "" && !decision.Accept {
		return &Error{Reason: decision.Reason, Observed: decision.Observed, Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Reason: ReasonTimeout, Err: err}
	}
	return &Error{Reason: ReasonSendFailed, Err: err}
}

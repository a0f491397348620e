// Package bridge talks to the telly bridge app, a companion service that
// relays commands to TVs without a usable network protocol.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"telly/internal/device"
	"telly/internal/logger"
	"telly/internal/transport"
)

// Config holds the bridge client settings
type Config struct {
	Port           int
	Retries        int
	RequestTimeout time.Duration
	ProbeTimeout   time.Duration
}

// DefaultConfig returns the bridge app's default port and a single retry
func DefaultConfig() Config {
	return Config{
		Port:           8765,
		Retries:        1,
		RequestTimeout: transport.DefaultRequestTimeout,
		ProbeTimeout:   transport.DefaultProbeTimeout,
	}
}

type commandRequest struct {
	Command   string `json:"command"`
	ProfileID string `json:"profileId"`
}

type commandReply struct {
	OK      *bool  `json:"ok"`
	Message string `json:"message"`
}

// Bridge is the last-resort adapter tried for every host
type Bridge struct {
	cfg    Config
	http   *http.Client
	probe  *http.Client
	logger zerolog.Logger
}

// New creates a bridge client
func New(cfg Config) *Bridge {
	def := DefaultConfig()
	if cfg.Port <= 0 {
		cfg.Port = def.Port
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}

	log := logger.GetLogger("bridge")
	return &Bridge{
		cfg:    cfg,
		http:   transport.NewRetryingClient(cfg.RequestTimeout, cfg.Retries, log),
		probe:  transport.NewClient(cfg.ProbeTimeout),
		logger: log,
	}
}

func (b *Bridge) Brand() device.Brand {
	return device.BrandGeneric
}

func (b *Bridge) url(host, path string) string {
	return fmt.Sprintf("http://%s%s", transport.HostPort(host, b.cfg.Port, b.cfg.Port), path)
}

// Send relays the command's wire name to the bridge running at the profile host
func (b *Bridge) Send(ctx context.Context, p device.Profile, cmd device.Command) device.Result {
	if p.Host == "" {
		return device.NoHost(p)
	}

	body, err := json.Marshal(commandRequest{Command: cmd.String(), ProfileID: p.ID})
	if err != nil {
		return device.Failure("failed to encode bridge command: %v", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	resp, err := transport.Do(ctx, b.http, http.MethodPost, b.url(p.Host, "/command"), headers, body, 0)
	if err != nil {
		b.logger.Debug().Err(err).Str("host", p.Host).Msg("Bridge command failed")
		return device.Failure("bridge unreachable at %s: %s", p.Host, transport.NormalizeError(err))
	}

	var reply commandReply
	json.Unmarshal(resp.Body, &reply)

	if !resp.OK() {
		if reply.Message != "" {
			return device.Failure("bridge refused %s: %s", cmd, reply.Message)
		}
		return device.Failure("bridge returned status %d", resp.StatusCode)
	}
	if reply.OK != nil && !*reply.OK {
		return device.Failure("bridge refused %s: %s", cmd, reply.Message)
	}
	return device.Success("%s sent to %s via bridge", cmd, p.DisplayName())
}

// Probe pings the bridge app
func (b *Bridge) Probe(ctx context.Context, host string) bool {
	resp, err := transport.Do(ctx, b.probe, http.MethodGet, b.url(host, "/ping"), nil, nil, b.cfg.ProbeTimeout)
	return err == nil && resp.OK()
}

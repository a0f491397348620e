// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package webos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"telly/internal/credentials"
	"telly/internal/device"
	"telly/internal/logger"
	"telly/internal/transport"
)

// Config holds the webOS adapter settings
type Config struct {
	PlainPort      int
	SecurePort     int
	ConnectTimeout time.Duration
	KeyTimeout     time.Duration
	PairingTimeout time.Duration
	ProbeTimeout   time.Duration
}

// DefaultConfig returns the ports and budgets webOS TVs expect
func DefaultConfig() Config {
	return Config{
		PlainPort:      3000,
		SecurePort:     3001,
		ConnectTimeout: 5 * time.Second,
		KeyTimeout:     4 * time.Second,
		PairingTimeout: 15 * time.Second,
		ProbeTimeout:   transport.DefaultProbeTimeout,
	}
}

// Adapter drives LG TVs over the webOS second-screen socket
type Adapter struct {
	cfg    Config
	creds  credentials.Cache
	probe  *http.Client
	logger zerolog.Logger
}

type candidate struct {
	url    string
	secure bool
}

// New creates an LG adapter backed by creds
func New(creds credentials.Cache, cfg Config) *Adapter {
	def := DefaultConfig()
	if cfg.PlainPort <= 0 {
		cfg.PlainPort = def.PlainPort
	}
	if cfg.SecurePort <= 0 {
		cfg.SecurePort = def.SecurePort
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.KeyTimeout <= 0 {
		cfg.KeyTimeout = def.KeyTimeout
	}
	if cfg.PairingTimeout <= 0 {
		cfg.PairingTimeout = def.PairingTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}

	return &Adapter{
		cfg:    cfg,
		creds:  creds,
		probe:  transport.NewClient(cfg.ProbeTimeout),
		logger: logger.GetLogger("webos"),
	}
}

func (a *Adapter) Brand() device.Brand {
	return device.BrandLG
}

// Send registers with the TV, then performs the action mapped to cmd.
// A cached client key the TV rejects is dropped and registration retried once without it.
func (a *Adapter) Send(ctx context.Context, p device.Profile, cmd device.Command) device.Result {
	act, ok := keyMap[cmd]
	if !ok {
		return device.NotMapped(cmd, device.BrandLG)
	}
	if p.Host == "" {
		return device.NoHost(p)
	}

	ck := p.CredentialKey()
	clientKey, _ := a.creds.Get(credentials.NamespaceLGClientKeys, ck)
	retried := false

	for {
		err := a.run(ctx, p, act, clientKey)
		switch {
		case err == nil:
			return device.Success("%s sent to %s", cmd, p.DisplayName())

		case errors.Is(err, errRejected) && clientKey != "" && !retried:
			a.logger.Debug().Str("host", p.Host).Msg("Client key rejected, registering again")
			if err := a.creds.Delete(credentials.NamespaceLGClientKeys, ck); err != nil {
				a.logger.Warn().Err(err).Msg("Failed to clear LG client key")
			}
			clientKey = ""
			retried = true

		case errors.Is(err, errRejected):
			return device.Failure("%s rejected registration; accept the prompt on the TV and try again", p.DisplayName())

		case errors.Is(err, errTimeout) && clientKey == "":
			return device.Failure("no answer from %s; accept the pairing prompt on the TV and try again", p.DisplayName())

		default:
			return device.Failure("LG command failed: %s", transport.NormalizeError(err))
		}
	}
}

func (a *Adapter) candidates(p device.Profile) []candidate {
	if p.Port > 0 {
		secure := p.Port == a.cfg.SecurePort
		scheme := "ws"
		if secure {
			scheme = "wss"
		}
		return []candidate{{url: fmt.Sprintf("%s://%s/", scheme, transport.HostPort(p.Host, p.Port, p.Port)), secure: secure}}
	}
	return []candidate{
		{url: fmt.Sprintf("ws://%s/", transport.HostPort(p.Host, a.cfg.PlainPort, a.cfg.PlainPort))},
		{url: fmt.Sprintf("wss://%s/", transport.HostPort(p.Host, a.cfg.SecurePort, a.cfg.SecurePort)), secure: true},
	}
}

func (a *Adapter) dial(ctx context.Context, url string, secure bool) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: a.cfg.ConnectTimeout}
	if secure {
		dialer.TLSClientConfig = transport.InsecureTLSConfig()
	}

	dialCtx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout)
	defer cancel()

	conn, _, err := dialer.DialContext(dialCtx, url, nil)
	return conn, err
}

func (a *Adapter) connect(ctx context.Context, p device.Profile) (*websocket.Conn, candidate, error) {
	var lastErr error
	for _, c := range a.candidates(p) {
		if err := ctx.Err(); err != nil {
			return nil, c, err
		}
		conn, err := a.dial(ctx, c.url, c.secure)
		if err == nil {
			return conn, c, nil
		}
		a.logger.Debug().Err(err).Str("url", c.url).Msg("webOS socket unavailable")
		lastErr = err
	}
	return nil, candidate{}, fmt.Errorf("failed to connect: %w", lastErr)
}

func (a *Adapter) run(ctx context.Context, p device.Profile, act action, clientKey string) error {
	conn, c, err := a.connect(ctx, p)
	if err != nil {
		return err
	}
	s := newSession(conn)
	defer s.close()

	timeout := a.cfg.PairingTimeout
	if clientKey != "" {
		timeout = a.cfg.KeyTimeout
	}

	granted, err := s.register(ctx, clientKey, timeout)
	if err != nil {
		return err
	}
	if granted != "" && granted != clientKey {
		if err := a.creds.Set(credentials.NamespaceLGClientKeys, p.CredentialKey(), granted); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to store LG client key")
		}
	}

	if act.button == "" {
		_, err := s.request(ctx, act.uri, act.payload, a.cfg.KeyTimeout)
		return err
	}
	return a.pressButton(ctx, s, c.secure, act.button)
}

func (a *Adapter) pressButton(ctx context.Context, s *session, secure bool, button string) error {
	resp, err := s.request(ctx, "ssap://com.webos.service.networkinput/getPointerInputSocket", nil, a.cfg.KeyTimeout)
	if err != nil {
		return err
	}
	if resp.SocketPath == "" {
		return errors.New("TV did not return a pointer socket")
	}

	pointer, err := a.dial(ctx, resp.SocketPath, secure || strings.HasPrefix(resp.SocketPath, "wss:"))
	if err != nil {
		return fmt.Errorf("failed to open pointer socket: %w", err)
	}
	defer pointer.Close()

	frame := fmt.Sprintf("type:button\nname:%s\n\n", button)
	if err := pointer.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		return fmt.Errorf("failed to send button: %w", err)
	}
	return nil
}

// Probe looks for the "hello world" banner served on the plain socket port
func (a *Adapter) Probe(ctx context.Context, host string) bool {
	url := fmt.Sprintf("http://%s/", transport.HostPort(host, a.cfg.PlainPort, a.cfg.PlainPort))
	resp, err := transport.Do(ctx, a.probe, http.MethodGet, url, nil, nil, a.cfg.ProbeTimeout)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(resp.Body)), "hello world")
}

// FallbackProbe checks whether either socket port accepts connections
func (a *Adapter) FallbackProbe(ctx context.Context, host string) bool {
	return transport.AnyPortOpen(ctx, host, []int{a.cfg.PlainPort, a.cfg.SecurePort}, a.cfg.ProbeTimeout)
}

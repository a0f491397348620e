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

package samsung

import (
	"context"
	"encoding/json"
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
	"telly/internal/securechannel"
	"telly/internal/tizen"
	"telly/internal/transport"
)

var (
	errUnauthorized = errors.New("samsung: unauthorized")
	errPinMismatch  = errors.New("samsung: certificate pin mismatch")
)

// Config holds the Samsung adapter settings
type Config struct {
	AppName        string
	PlainPort      int
	SecurePort     int
	ConnectTimeout time.Duration
	TokenTimeout   time.Duration
	PairingTimeout time.Duration
	ProbeTimeout   time.Duration
}

// DefaultConfig returns the ports and budgets Tizen TVs expect
func DefaultConfig() Config {
	return Config{
		AppName:        "telly",
		PlainPort:      8001,
		SecurePort:     securechannel.DefaultPort,
		ConnectTimeout: securechannel.DefaultConnectTimeout,
		TokenTimeout:   4 * time.Second,
		PairingTimeout: 15 * time.Second,
		ProbeTimeout:   transport.DefaultProbeTimeout,
	}
}

// Adapter pushes key clicks over the Tizen remote-control websocket
type Adapter struct {
	cfg    Config
	creds  credentials.Cache
	secure *securechannel.Channel
	probe  *http.Client
	logger zerolog.Logger
}

// credentialState is the two-step auth machine; a call never goes past withoutCredential.
type credentialState int

const (
	withCredential credentialState = iota
	withoutCredential
)

type pushResult struct {
	token       string
	fingerprint string
}

// New creates a Samsung adapter backed by creds
func New(creds credentials.Cache, cfg Config) *Adapter {
	def := DefaultConfig()
	if cfg.AppName == "" {
		cfg.AppName = def.AppName
	}
	if cfg.PlainPort <= 0 {
		cfg.PlainPort = def.PlainPort
	}
	if cfg.SecurePort <= 0 {
		cfg.SecurePort = def.SecurePort
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.TokenTimeout <= 0 {
		cfg.TokenTimeout = def.TokenTimeout
	}
	if cfg.PairingTimeout <= 0 {
		cfg.PairingTimeout = def.PairingTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}

	secure := securechannel.New()
	secure.ConnectTimeout = cfg.ConnectTimeout
	secure.TokenTimeout = cfg.TokenTimeout
	secure.PairingTimeout = cfg.PairingTimeout

	return &Adapter{
		cfg:    cfg,
		creds:  creds,
		secure: secure,
		probe:  transport.NewClient(cfg.ProbeTimeout),
		logger: logger.GetLogger("samsung"),
	}
}

func (a *Adapter) Brand() device.Brand {
	return device.BrandSamsung
}

// Send clicks the key mapped to cmd, retrying once without a token when the cached one is refused
func (a *Adapter) Send(ctx context.Context, p device.Profile, cmd device.Command) device.Result {
	key, ok := keyMap[cmd]
	if !ok {
		return device.NotMapped(cmd, device.BrandSamsung)
	}
	if p.Host == "" {
		return device.NoHost(p)
	}

	ck := p.CredentialKey()
	token, _ := a.creds.Get(credentials.NamespaceSamsungTokens, ck)
	pin, _ := a.creds.Get(credentials.NamespaceSamsungPins, ck)

	state := withCredential
	if token == "" {
		state = withoutCredential
	}

	for {
		res, err := a.push(ctx, p, key, token, pin)
		switch {
		case err == nil:
			a.remember(ck, token, pin, res)
			return device.Success("%s sent to %s", cmd, p.DisplayName())

		case errors.Is(err, errPinMismatch):
			return device.Failure("the certificate presented by %s does not match the pinned one; clear its credentials and pair again", p.DisplayName())

		case errors.Is(err, errUnauthorized) && state == withCredential:
			a.logger.Debug().Str("host", p.Host).Msg("Cached token refused, retrying without it")
			if err := a.creds.Delete(credentials.NamespaceSamsungTokens, ck); err != nil {
				a.logger.Warn().Err(err).Msg("Failed to clear Samsung token")
			}
			token = ""
			state = withoutCredential

		case errors.Is(err, errUnauthorized):
			return device.Failure("%s refused the connection; allow telly on the TV and try again", p.DisplayName())

		default:
			return device.Failure("Samsung command failed: %s", transport.NormalizeError(err))
		}
	}
}

func (a *Adapter) remember(ck, oldToken, oldPin string, res pushResult) {
	if res.token != "" && res.token != oldToken {
		if err := a.creds.Set(credentials.NamespaceSamsungTokens, ck, res.token); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to store Samsung token")
		}
	}
	if res.fingerprint != "" && oldPin == "" {
		if err := a.creds.Set(credentials.NamespaceSamsungPins, ck, res.fingerprint); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to store certificate pin")
		}
	}
}

func (a *Adapter) push(ctx context.Context, p device.Profile, key, token, pin string) (pushResult, error) {
	if p.Port > 0 {
		if p.Port == a.cfg.SecurePort {
			return a.pushSecure(ctx, p.Host, p.Port, key, token, pin)
		}
		return a.pushPlain(ctx, p.Host, p.Port, key, token)
	}

	res, err := a.pushSecure(ctx, p.Host, a.cfg.SecurePort, key, token, pin)
	if err == nil || !plainFallback(err) {
		return res, err
	}
	if pin != "" {
		// a pinned host never downgrades to the cleartext socket
		a.logger.Debug().Err(err).Str("host", p.Host).Msg("Secure channel unavailable for pinned host")
		return res, err
	}
	a.logger.Debug().Err(err).Str("host", p.Host).Msg("Secure channel unavailable, using plain socket")
	return a.pushPlain(ctx, p.Host, a.cfg.PlainPort, key, token)
}

// plainFallback allows the plain port only when the secure socket never opened
func plainFallback(err error) bool {
	var ce *securechannel.Error
	if !errors.As(err, &ce) || ce.Opened {
		return false
	}
	switch ce.Reason {
	case securechannel.ReasonSendFailed, securechannel.ReasonTimeout, securechannel.ReasonInvalidHost:
		return true
	}
	return false
}

func (a *Adapter) pushSecure(ctx context.Context, host string, port int, key, token, pin string) (pushResult, error) {
	resp, err := a.secure.SendPinned(ctx, securechannel.Request{
		Host:              host,
		Port:              port,
		AppName:           a.cfg.AppName,
		Key:               key,
		Token:             token,
		PinnedFingerprint: pin,
	})
	if err != nil {
		switch securechannel.ReasonOf(err) {
		case securechannel.ReasonUnauthorized:
			return pushResult{}, fmt.Errorf("%w: %v", errUnauthorized, err)
		case securechannel.ReasonPinMismatch:
			return pushResult{}, fmt.Errorf("%w: %v", errPinMismatch, err)
		}
		return pushResult{}, err
	}
	return pushResult{token: resp.Token, fingerprint: resp.CertificateFingerprint}, nil
}

func (a *Adapter) pushPlain(ctx context.Context, host string, port int, key, token string) (pushResult, error) {
	url := tizen.URL("ws", transport.HostPort(host, port, a.cfg.PlainPort), a.cfg.AppName, token)

	dialCtx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: a.cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return pushResult{}, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	timeout := a.cfg.PairingTimeout
	if token != "" {
		timeout = a.cfg.TokenTimeout
	}

	a.logger.Debug().Str("host", host).Int("port", port).Str("key", key).Msg("Sending key over plain socket")

	out, err := tizen.Exchange(ctx, conn, key, timeout)
	if errors.Is(err, tizen.ErrUnauthorized) {
		return pushResult{}, errUnauthorized
	}
	if err != nil {
		return pushResult{}, err
	}
	return pushResult{token: out.Token}, nil
}

type deviceInfo struct {
	Device struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"device"`
}

// Probe asks the REST info endpoint whether this is a Samsung TV
func (a *Adapter) Probe(ctx context.Context, host string) bool {
	url := fmt.Sprintf("http://%s/api/v2/", transport.HostPort(host, a.cfg.PlainPort, a.cfg.PlainPort))
	resp, err := transport.Do(ctx, a.probe, http.MethodGet, url, nil, nil, a.cfg.ProbeTimeout)
	if err != nil || !resp.OK() {
		return false
	}

	var info deviceInfo
	if json.Unmarshal(resp.Body, &info) == nil && strings.Contains(strings.ToLower(info.Device.Type), "samsung") {
		return true
	}
	return strings.Contains(string(resp.Body), "Samsung")
}

// FallbackProbe checks whether either remote-control port accepts connections
func (a *Adapter) FallbackProbe(ctx context.Context, host string) bool {
	return transport.AnyPortOpen(ctx, host, []int{a.cfg.PlainPort, a.cfg.SecurePort}, a.cfg.ProbeTimeout)
}

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

// Package roku sends External Control Protocol keypresses.
package roku

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telly/internal/device"
	"telly/internal/logger"
	"telly/internal/transport"
)

// Config holds the ECP adapter settings
type Config struct {
	Port           int
	RequestTimeout time.Duration
	ProbeTimeout   time.Duration
}

// DefaultConfig returns the standard ECP port and budgets
func DefaultConfig() Config {
	return Config{
		Port:           8060,
		RequestTimeout: transport.DefaultRequestTimeout,
		ProbeTimeout:   transport.DefaultProbeTimeout,
	}
}

// Adapter drives Roku TVs and sticks
type Adapter struct {
	cfg    Config
	http   *http.Client
	probe  *http.Client
	logger zerolog.Logger
}

// New creates a Roku adapter
func New(cfg Config) *Adapter {
	def := DefaultConfig()
	if cfg.Port <= 0 {
		cfg.Port = def.Port
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}

	return &Adapter{
		cfg:    cfg,
		http:   transport.NewClient(cfg.RequestTimeout),
		probe:  transport.NewClient(cfg.ProbeTimeout),
		logger: logger.GetLogger("roku"),
	}
}

func (a *Adapter) Brand() device.Brand {
	return device.BrandRoku
}

// Send posts the keypress, retrying on the default port when a custom one is unreachable
func (a *Adapter) Send(ctx context.Context, p device.Profile, cmd device.Command) device.Result {
	key, ok := keyMap[cmd]
	if !ok {
		return device.NotMapped(cmd, device.BrandRoku)
	}
	if p.Host == "" {
		return device.NoHost(p)
	}

	ports := []int{a.cfg.Port}
	if p.Port > 0 && p.Port != a.cfg.Port {
		ports = []int{p.Port, a.cfg.Port}
	}

	var lastErr error
	for _, port := range ports {
		url := fmt.Sprintf("http://%s/keypress/%s", transport.HostPort(p.Host, port, port), key)
		resp, err := transport.Do(ctx, a.http, http.MethodPost, url, nil, nil, a.cfg.RequestTimeout)
		if err != nil {
			a.logger.Debug().Err(err).Str("url", url).Msg("Keypress failed")
			lastErr = err
			continue
		}
		if !resp.OK() {
			return device.Failure("Roku rejected %s with status %d", cmd, resp.StatusCode)
		}
		return device.Success("%s sent to %s", cmd, p.DisplayName())
	}

	return device.Failure("could not reach %s: %s", p.DisplayName(), transport.NormalizeError(lastErr))
}

// Probe reads the device-info document ECP serves without auth
func (a *Adapter) Probe(ctx context.Context, host string) bool {
	url := fmt.Sprintf("http://%s/query/device-info", transport.HostPort(host, a.cfg.Port, a.cfg.Port))
	resp, err := transport.Do(ctx, a.probe, http.MethodGet, url, nil, nil, a.cfg.ProbeTimeout)
	if err != nil || !resp.OK() {
		return false
	}
	return strings.Contains(string(resp.Body), "<device-info")
}

// FallbackProbe checks whether the ECP port accepts connections
func (a *Adapter) FallbackProbe(ctx context.Context, host string) bool {
	return transport.PortOpen(ctx, host, a.cfg.Port, a.cfg.ProbeTimeout)
}

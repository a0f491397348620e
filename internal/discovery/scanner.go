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

// Package discovery finds TVs on the local network by fingerprinting hosts
// over a bounded worker pool, optionally supplemented by mDNS and SSDP.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"telly/internal/device"
	"telly/internal/logger"
	"telly/internal/transport"
)

// generic ports swept on explicit hosts nothing else recognised
var sweepPorts = []int{80, 443, 8080, 1925, 1926}

var errMatched = errors.New("probe matched")

// Browser is a supplementary discovery source such as mDNS or SSDP
type Browser func(ctx context.Context, timeout time.Duration) []device.DiscoveredDevice

// Scanner fingerprints hosts against a fixed set of adapters
type Scanner struct {
	adapters []device.Adapter
	detect   func() []string
	portOpen func(ctx context.Context, host string, port int, timeout time.Duration) bool
	mdns     Browser
	ssdp     Browser
	logger   zerolog.Logger
}

// NewScanner probes with adapters; their order is the fallback probe order
func NewScanner(adapters []device.Adapter) *Scanner {
	return &Scanner{
		adapters: adapters,
		detect:   DetectPrefixes,
		portOpen: transport.PortOpen,
		mdns:     BrowseMDNS,
		ssdp:     BrowseSSDP,
		logger:   logger.GetLogger("discovery"),
	}
}

// DeviceID derives a stable id for a host
func DeviceID(host string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("telly:"+host)).String()
}

func newDevice(host string, brand device.Brand, port int, source device.Source) device.DiscoveredDevice {
	return device.DiscoveredDevice{
		ID:       DeviceID(host),
		Brand:    brand,
		Nickname: fmt.Sprintf("%s (%s)", brand.Title(), host),
		Host:     host,
		Port:     port,
		Source:   source,
	}
}

type dedupe struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *dedupe) add(host string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[host] {
		return false
	}
	d.seen[host] = true
	return true
}

// Scan streams devices found on the network. The channel is closed when
// every host has been probed or ctx is done; cancellation is not an error.
func (s *Scanner) Scan(ctx context.Context, opts Options) <-chan device.DiscoveredDevice {
	out := make(chan device.DiscoveredDevice)

	go func() {
		defer close(out)

		hosts, explicit := opts.hostList(s.detect)
		timeout := opts.probeTimeout()
		seen := &dedupe{seen: make(map[string]bool)}

		emit := func(d device.DiscoveredDevice) {
			if !seen.add(d.Host) {
				return
			}
			select {
			case out <- d:
			case <-ctx.Done():
			}
		}

		workers := opts.concurrency()
		if workers > len(hosts) {
			workers = len(hosts)
		}
		s.logger.Debug().
			Int("hosts", len(hosts)).
			Int("workers", workers).
			Bool("mdns", opts.MDNS).
			Bool("ssdp", opts.SSDP).
			Msg("Starting scan")

		var cursor atomic.Int64
		var g errgroup.Group
		for w := 0; w < workers; w++ {
			g.Go(func() error {
				for {
					i := int(cursor.Add(1) - 1)
					if i >= len(hosts) || ctx.Err() != nil {
						return nil
					}
					host := hosts[i]
					if d, ok := s.probeHost(ctx, host, explicit[host], timeout); ok {
						emit(d)
					}
				}
			})
		}

		browse := func(b Browser) {
			if b == nil {
				return
			}
			g.Go(func() error {
				for _, d := range b(ctx, 2*timeout) {
					if ctx.Err() != nil {
						return nil
					}
					emit(d)
				}
				return nil
			})
		}
		if opts.MDNS {
			browse(s.mdns)
		}
		if opts.SSDP {
			browse(s.ssdp)
		}

		g.Wait()
		s.logger.Debug().Bool("cancelled", ctx.Err() != nil).Msg("Scan finished")
	}()

	return out
}

// Collect drains a scan into a slice
func (s *Scanner) Collect(ctx context.Context, opts Options) []device.DiscoveredDevice {
	var found []device.DiscoveredDevice
	for d := range s.Scan(ctx, opts) {
		found = append(found, d)
	}
	return found
}

// probeHost races every adapter's fingerprint probe; the first match cancels the rest
func (s *Scanner) probeHost(ctx context.Context, host string, explicit bool, timeout time.Duration) (device.DiscoveredDevice, bool) {
	if brand, ok := s.fingerprint(ctx, host, timeout); ok {
		return newDevice(host, brand, 0, device.SourceProbe), true
	}
	if !explicit || ctx.Err() != nil {
		return device.DiscoveredDevice{}, false
	}
	return s.fallback(ctx, host, timeout)
}

func (s *Scanner) fingerprint(ctx context.Context, host string, timeout time.Duration) (device.Brand, bool) {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	hit := make(chan device.Brand, 1)
	g, gctx := errgroup.WithContext(pctx)
	for _, a := range s.adapters {
		g.Go(func() error {
			if !a.Probe(gctx, host) {
				return nil
			}
			select {
			case hit <- a.Brand():
			default:
			}
			return errMatched
		})
	}
	g.Wait()

	select {
	case b := <-hit:
		return b, true
	default:
		return "", false
	}
}

// fallback runs the slower socket checks reserved for explicitly named hosts
func (s *Scanner) fallback(ctx context.Context, host string, timeout time.Duration) (device.DiscoveredDevice, bool) {
	for _, a := range s.adapters {
		if ctx.Err() != nil {
			return device.DiscoveredDevice{}, false
		}
		fp, ok := a.(device.FallbackProber)
		if !ok {
			continue
		}
		if fp.FallbackProbe(ctx, host) {
			return newDevice(host, a.Brand(), 0, device.SourceFallback), true
		}
	}

	for _, port := range sweepPorts {
		if ctx.Err() != nil {
			return device.DiscoveredDevice{}, false
		}
		if s.portOpen(ctx, host, port, timeout) {
			return newDevice(host, device.BrandGeneric, port, device.SourcePortSweep), true
		}
	}
	return device.DiscoveredDevice{}, false
}

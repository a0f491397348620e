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

// Package router picks the adapter that serves a profile and tracks
// commands suspended on pairing challenges.
package router

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"telly/internal/device"
	"telly/internal/logger"
	"telly/internal/pairing"
)

// order in which fingerprinted protocols are tried for generic profiles
var genericPriority = []device.Brand{
	device.BrandSamsung,
	device.BrandLG,
	device.BrandSony,
	device.BrandVizio,
	device.BrandPanasonic,
	device.BrandRoku,
}

// CredentialClearer removes every credential record owned by a profile key
type CredentialClearer interface {
	DeleteKey(key string) error
}

// Router dispatches commands to brand adapters
type Router struct {
	adapters map[device.Brand]device.Adapter
	ordered  []device.Adapter
	priority []device.Adapter
	bridge   device.Adapter
	sessions *pairing.Manager
	store    CredentialClearer
	logger   zerolog.Logger
}

// New registers adapters in the order given. The bridge is tried last for
// generic profiles and may be nil.
func New(adapters []device.Adapter, bridge device.Adapter, sessions *pairing.Manager, store CredentialClearer) *Router {
	r := &Router{
		adapters: make(map[device.Brand]device.Adapter, len(adapters)),
		bridge:   bridge,
		sessions: sessions,
		store:    store,
		logger:   logger.GetLogger("router"),
	}
	for _, a := range adapters {
		if _, dup := r.adapters[a.Brand()]; dup {
			continue
		}
		r.adapters[a.Brand()] = a
		r.ordered = append(r.ordered, a)
	}
	for _, b := range genericPriority {
		if a, ok := r.adapters[b]; ok {
			r.priority = append(r.priority, a)
		}
	}
	return r
}

// Adapters returns the registered adapters in registration order
func (r *Router) Adapters() []device.Adapter {
	out := make([]device.Adapter, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Dispatch sends cmd to the TV described by p
func (r *Router) Dispatch(ctx context.Context, p device.Profile, cmd device.Command) device.Result {
	if p.Host == "" {
		return device.NoHost(p)
	}

	var res device.Result
	if a, ok := r.adapters[p.Brand]; ok && p.Brand != device.BrandGeneric {
		r.logger.Debug().Str("brand", p.Brand.String()).Str("command", cmd.String()).Msg("Dispatching to declared brand")
		res = a.Send(ctx, p, cmd)
	} else {
		res = r.dispatchGeneric(ctx, p, cmd)
	}

	if res.Pairing != nil {
		r.hold(p, cmd, res.Pairing)
	}
	return res
}

func (r *Router) dispatchGeneric(ctx context.Context, p device.Profile, cmd device.Command) device.Result {
	hits := make([]bool, len(r.priority))

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range r.priority {
		g.Go(func() error {
			hits[i] = a.Probe(gctx, p.Host)
			return nil
		})
	}
	g.Wait()

	for i, a := range r.priority {
		if !hits[i] {
			continue
		}
		res := a.Send(ctx, p, cmd)
		if res.OK || res.Pairing != nil {
			return res
		}
		r.logger.Debug().
			Str("brand", a.Brand().String()).
			Str("host", p.Host).
			Str("message", res.Message).
			Msg("Fingerprinted protocol failed, trying next")
	}

	if r.bridge == nil {
		return device.Failure("no TV protocol answered at %s; bridge fallback: no bridge configured", p.Host)
	}
	res := r.bridge.Send(ctx, p, cmd)
	if res.OK {
		return res
	}
	return device.Failure("no TV protocol answered at %s; bridge fallback: %s", p.Host, res.Message)
}

func (r *Router) hold(p device.Profile, cmd device.Command, req *device.PairingRequest) {
	if r.sessions == nil {
		return
	}
	if err := r.sessions.Hold(p, cmd, req); err != nil {
		r.logger.Warn().Err(err).Str("profile", p.ID).Msg("Failed to persist pairing session")
	}
}

// Pending returns the pairing session held for p, if any
func (r *Router) Pending(p device.Profile) (pairing.Session, bool) {
	if r.sessions == nil {
		return pairing.Session{}, false
	}
	return r.sessions.Lookup(p.CredentialKey())
}

// CompletePairing answers a held challenge with secret and resumes the
// command that raised it
func (r *Router) CompletePairing(ctx context.Context, p device.Profile, secret string, challenge *device.PairingRequest) device.Result {
	ck := p.CredentialKey()
	session, held := r.Pending(p)

	brand := p.Brand
	if _, ok := r.pairer(brand); !ok {
		switch {
		case challenge != nil:
			brand = challenge.Brand
		case held:
			brand = session.Request.Brand
		}
	}

	pairer, ok := r.pairer(brand)
	if !ok {
		return device.Failure("%s does not pair with a PIN or key", brand.Title())
	}

	req := challenge
	if req == nil && held {
		req = &session.Request
	}

	res := pairer.CompletePairing(ctx, p, secret, req)
	if !res.OK {
		if res.Pairing != nil && held {
			r.hold(p, session.Command, res.Pairing)
		}
		return res
	}

	if !held {
		return res
	}

	r.sessions.Clear(ck)
	resumed := r.adapters[brand].Send(ctx, p, session.Command)
	if resumed.Pairing != nil {
		r.hold(p, session.Command, resumed.Pairing)
	}
	return device.Result{
		OK:      resumed.OK,
		Message: fmt.Sprintf("%s; %s", res.Message, resumed.Message),
		Pairing: resumed.Pairing,
	}
}

func (r *Router) pairer(brand device.Brand) (device.Pairer, bool) {
	a, ok := r.adapters[brand]
	if !ok {
		return nil, false
	}
	p, ok := a.(device.Pairer)
	return p, ok
}

// ClearCredentials forgets every secret and pending challenge for p
func (r *Router) ClearCredentials(p device.Profile) error {
	ck := p.CredentialKey()
	if r.sessions != nil {
		r.sessions.Clear(ck)
	}
	if r.store == nil {
		return nil
	}
	if err := r.store.DeleteKey(ck); err != nil {
		return fmt.Errorf("failed to clear credentials for %s: %w", p.DisplayName(), err)
	}
	return nil
}

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

package cmd

import (
	"fmt"
	"strings"

	"telly/internal/bravia"
	"telly/internal/bridge"
	"telly/internal/config"
	"telly/internal/credentials"
	"telly/internal/device"
	"telly/internal/discovery"
	"telly/internal/logger"
	"telly/internal/pairing"
	"telly/internal/roku"
	"telly/internal/router"
	"telly/internal/samsung"
	"telly/internal/smartcast"
	"telly/internal/transport"
	"telly/internal/viera"
	"telly/internal/webos"
)

// app is the wired engine shared by every subcommand
type app struct {
	cfg     *config.Config
	store   *credentials.Store
	router  *router.Router
	scanner *discovery.Scanner
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if !verbose {
		if cfg.Logging.Level == logger.LOG_DEBUG {
			logger.SetSilentMode(false)
		}
		logger.SetLevel(cfg.Logging.Level)
		log = logger.New()
	}
	return cfg, nil
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var opts []credentials.Option
	if cfg.Credentials.Passphrase != "" {
		opts = append(opts, credentials.WithPassphrase(cfg.Credentials.Passphrase))
	}
	store, err := credentials.Open(cfg.Credentials.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	requestTimeout := config.Duration(cfg.Adapters.RequestTimeout, transport.DefaultRequestTimeout)
	probeTimeout := config.Duration(cfg.Adapters.ProbeTimeout, transport.DefaultProbeTimeout)

	samsungCfg := samsung.DefaultConfig()
	samsungCfg.AppName = cfg.Adapters.AppName
	samsungCfg.ProbeTimeout = probeTimeout

	webosCfg := webos.DefaultConfig()
	webosCfg.ProbeTimeout = probeTimeout

	braviaCfg := bravia.DefaultConfig()
	braviaCfg.RequestTimeout = requestTimeout
	braviaCfg.ProbeTimeout = probeTimeout

	smartcastCfg := smartcast.DefaultConfig()
	smartcastCfg.DeviceName = cfg.Adapters.AppName
	smartcastCfg.RequestTimeout = requestTimeout
	smartcastCfg.ProbeTimeout = probeTimeout

	vieraCfg := viera.DefaultConfig()
	vieraCfg.RequestTimeout = requestTimeout
	vieraCfg.ProbeTimeout = probeTimeout

	rokuCfg := roku.DefaultConfig()
	rokuCfg.RequestTimeout = requestTimeout
	rokuCfg.ProbeTimeout = probeTimeout

	br := bridge.New(bridge.Config{
		Port:           cfg.Adapters.BridgePort,
		Retries:        cfg.Adapters.BridgeRetries,
		RequestTimeout: requestTimeout,
		ProbeTimeout:   probeTimeout,
	})

	adapters := []device.Adapter{
		samsung.New(store, samsungCfg),
		webos.New(store, webosCfg),
		bravia.NewBraviaRemote(store, braviaCfg),
		smartcast.New(store, smartcastCfg),
		viera.New(vieraCfg),
		roku.New(rokuCfg),
		bridge.NewDelegate(device.BrandHisense, br),
		bridge.NewDelegate(device.BrandAndroidTV, br),
		bridge.NewDelegate(device.BrandFireTV, br),
	}

	ttl := config.Duration(cfg.Pairing.SessionTTL, pairing.DefaultTTL)
	r := router.New(adapters, br, pairing.NewManager(store, ttl, cfg.Pairing.MaxSessions), store)

	log.Debug().
		Str("config", configPath).
		Str("credentials", cfg.Credentials.Path).
		Int("adapters", len(adapters)).
		Msg("Engine ready")

	return &app{
		cfg:     cfg,
		store:   store,
		router:  r,
		scanner: discovery.NewScanner(r.Adapters()),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close credential store")
	}
}

// profile resolves a configured TV by id or nickname, or builds an ad-hoc
// profile when a host is given on the command line
func (a *app) profile(name, host, brand string) (device.Profile, error) {
	if host != "" && !discovery.ValidHost(host) {
		return device.Profile{}, fmt.Errorf("invalid host: %s", host)
	}

	var prof device.Profile
	if p, err := a.cfg.GetTV(name); err == nil {
		prof = *p
	} else if host == "" {
		return device.Profile{}, err
	} else {
		prof = device.Profile{
			ID:       discovery.DeviceID(host),
			Brand:    device.BrandGeneric,
			Nickname: strings.TrimSpace(name),
		}
	}

	if host != "" {
		prof.Host = host
	}
	if brand != "" {
		prof.Brand = device.ParseBrand(brand)
	}
	return prof, nil
}

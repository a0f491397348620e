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

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"telly/internal/device"
	"telly/internal/discovery"
)

const (
	DefaultConfigFile = "telly.yaml"

	// PassphraseEnv overrides credentials.passphrase so it can stay out of the file
	PassphraseEnv = "TELLY_CREDENTIALS_PASSPHRASE"
	// JWTSecretEnv overrides api.jwt_secret
	JWTSecretEnv = "TELLY_JWT_SECRET"
)

// Config represents the telly configuration file
type Config struct {
	Credentials CredentialsConfig `yaml:"credentials"`
	Adapters    AdaptersConfig    `yaml:"adapters"`
	Pairing     PairingConfig     `yaml:"pairing"`
	Scan        ScanConfig        `yaml:"scan"`
	API         APIConfig         `yaml:"api"`
	Logging     LoggingConfig     `yaml:"logging"`
	TVs         []device.Profile  `yaml:"tvs"`
}

// CredentialsConfig locates the credential database
type CredentialsConfig struct {
	Path       string `yaml:"path"`
	Passphrase string `yaml:"passphrase,omitempty"`
}

// AdaptersConfig holds the settings shared by the brand adapters
type AdaptersConfig struct {
	RequestTimeout string `yaml:"request_timeout"`
	ProbeTimeout   string `yaml:"probe_timeout"`
	AppName        string `yaml:"app_name"`
	BridgePort     int    `yaml:"bridge_port"`
	BridgeRetries  int    `yaml:"bridge_retries"`
}

// PairingConfig bounds the table of suspended pairing challenges
type PairingConfig struct {
	SessionTTL  string `yaml:"session_ttl"`
	MaxSessions int    `yaml:"max_sessions"`
}

// ScanConfig holds discovery defaults
type ScanConfig struct {
	Prefixes     []string `yaml:"prefixes"`
	Workers      int      `yaml:"workers"`
	ProbeTimeout string   `yaml:"probe_timeout"`
	MDNS         bool     `yaml:"mdns"`
	SSDP         bool     `yaml:"ssdp"`
}

// APIConfig contains HTTP API server settings
type APIConfig struct {
	Address     string `yaml:"address"`
	Timeout     string `yaml:"timeout"`
	JWTSecret   string `yaml:"jwt_secret,omitempty"`
	Issuer      string `yaml:"issuer"`
	TokenExpiry string `yaml:"token_expiry"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := NewDefaultConfig()
	config.TVs = nil
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()
	config.setDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// LoadOrDefault loads filepath, falling back to defaults when the file does not exist
func LoadOrDefault(filepath string) (*Config, error) {
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		config := NewDefaultConfig()
		config.TVs = nil
		config.applyEnv()
		return config, nil
	}
	return LoadConfig(filepath)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(PassphraseEnv); v != "" {
		c.Credentials.Passphrase = v
	}
	if v := os.Getenv(JWTSecretEnv); v != "" {
		c.API.JWTSecret = v
	}
}

// setDefaults fills fields an older or partial file left empty
func (c *Config) setDefaults() {
	def := NewDefaultConfig()
	if c.Credentials.Path == "" {
		c.Credentials.Path = def.Credentials.Path
	}
	if c.Adapters.RequestTimeout == "" {
		c.Adapters.RequestTimeout = def.Adapters.RequestTimeout
	}
	if c.Adapters.ProbeTimeout == "" {
		c.Adapters.ProbeTimeout = def.Adapters.ProbeTimeout
	}
	if c.Adapters.AppName == "" {
		c.Adapters.AppName = def.Adapters.AppName
	}
	if c.Adapters.BridgePort == 0 {
		c.Adapters.BridgePort = def.Adapters.BridgePort
	}
	if c.Pairing.SessionTTL == "" {
		c.Pairing.SessionTTL = def.Pairing.SessionTTL
	}
	if c.Pairing.MaxSessions == 0 {
		c.Pairing.MaxSessions = def.Pairing.MaxSessions
	}
	if c.Scan.Workers == 0 {
		c.Scan.Workers = def.Scan.Workers
	}
	if c.Scan.ProbeTimeout == "" {
		c.Scan.ProbeTimeout = def.Scan.ProbeTimeout
	}
	if c.API.Address == "" {
		c.API.Address = def.API.Address
	}
	if c.API.Timeout == "" {
		c.API.Timeout = def.API.Timeout
	}
	if c.API.Issuer == "" {
		c.API.Issuer = def.API.Issuer
	}
	if c.API.TokenExpiry == "" {
		c.API.TokenExpiry = def.API.TokenExpiry
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	durations := map[string]string{
		"adapters.request_timeout": c.Adapters.RequestTimeout,
		"adapters.probe_timeout":   c.Adapters.ProbeTimeout,
		"pairing.session_ttl":      c.Pairing.SessionTTL,
		"scan.probe_timeout":       c.Scan.ProbeTimeout,
		"api.timeout":              c.API.Timeout,
		"api.token_expiry":         c.API.TokenExpiry,
	}
	for field, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q", field, value)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", field)
		}
	}

	if c.Credentials.Path == "" {
		return fmt.Errorf("credentials.path is required")
	}
	if c.Adapters.BridgePort < 1 || c.Adapters.BridgePort > 65535 {
		return fmt.Errorf("adapters.bridge_port must be between 1 and 65535")
	}
	if c.Adapters.BridgeRetries < 0 || c.Adapters.BridgeRetries > 5 {
		return fmt.Errorf("adapters.bridge_retries must be between 0 and 5")
	}
	if c.Pairing.MaxSessions < 1 {
		return fmt.Errorf("pairing.max_sessions must be at least 1")
	}
	if c.Scan.Workers < 1 || c.Scan.Workers > discovery.MaxConcurrency {
		return fmt.Errorf("scan.workers must be between 1 and %d", discovery.MaxConcurrency)
	}
	for _, p := range c.Scan.Prefixes {
		if !discovery.ValidPrefix(p) {
			return fmt.Errorf("scan.prefixes: %q is not an a.b.c prefix", p)
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error")
	}

	ids := make(map[string]bool)
	for i, tv := range c.TVs {
		if tv.ID == "" {
			return fmt.Errorf("tvs[%d].id is required", i)
		}
		if ids[tv.ID] {
			return fmt.Errorf("duplicate tv ID: %s", tv.ID)
		}
		ids[tv.ID] = true

		if tv.Port < 0 || tv.Port > 65535 {
			return fmt.Errorf("tvs[%d].port must be between 0 and 65535", i)
		}
	}

	return nil
}

// GetTV returns a profile by ID or, failing that, by case-insensitive nickname
func (c *Config) GetTV(name string) (*device.Profile, error) {
	for i := range c.TVs {
		if c.TVs[i].ID == name {
			return &c.TVs[i], nil
		}
	}
	for i := range c.TVs {
		if strings.EqualFold(c.TVs[i].Nickname, name) {
			return &c.TVs[i], nil
		}
	}
	return nil, fmt.Errorf("tv not found: %s", name)
}

// Duration parses a validated duration field
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Save saves the configuration to a YAML file
func (c *Config) Save(filepath string) error {
	return SaveConfig(c, filepath)
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filepath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// NewDefaultConfig creates a default configuration template
func NewDefaultConfig() *Config {
	return &Config{
		Credentials: CredentialsConfig{
			Path: "telly.db",
		},
		Adapters: AdaptersConfig{
			RequestTimeout: "5s",
			ProbeTimeout:   "1200ms",
			AppName:        "telly",
			BridgePort:     8765,
			BridgeRetries:  1,
		},
		Pairing: PairingConfig{
			SessionTTL:  "10m",
			MaxSessions: 128,
		},
		Scan: ScanConfig{
			Workers:      discovery.DefaultConcurrency,
			ProbeTimeout: "1500ms",
			MDNS:         true,
			SSDP:         true,
		},
		API: APIConfig{
			Address:     "127.0.0.1:8787",
			Timeout:     "30s",
			Issuer:      "telly",
			TokenExpiry: "720h",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		TVs: []device.Profile{
			{
				ID:       "living_room_tv",
				Brand:    device.BrandSony,
				Nickname: "Living Room",
				Host:     "192.168.1.100",
			},
		},
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telly/internal/device"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telly.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
credentials:
  path: /var/lib/telly/creds.db
scan:
  prefixes: ["192.168.50"]
  mdns: false
tvs:
  - id: lounge
    brand: tizen
    nickname: Lounge
    host: 192.168.50.20
  - id: den
    brand: SmartCast
    host: 192.168.50.21
    port: 9000
  - id: spare
    brand: something-else
    host: 192.168.50.22
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/telly/creds.db", cfg.Credentials.Path)
	assert.Equal(t, []string{"192.168.50"}, cfg.Scan.Prefixes)
	assert.False(t, cfg.Scan.MDNS)
	assert.True(t, cfg.Scan.SSDP, "unset fields keep defaults")
	assert.Equal(t, "5s", cfg.Adapters.RequestTimeout)

	require.Len(t, cfg.TVs, 3)
	assert.Equal(t, device.BrandSamsung, cfg.TVs[0].Brand)
	assert.Equal(t, device.BrandVizio, cfg.TVs[1].Brand)
	assert.Equal(t, 9000, cfg.TVs[1].Port)
	assert.Equal(t, device.BrandGeneric, cfg.TVs[2].Brand)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"bad duration", func(c *Config) { c.Adapters.ProbeTimeout = "soon" }, "adapters.probe_timeout"},
		{"negative duration", func(c *Config) { c.Pairing.SessionTTL = "-1m" }, "pairing.session_ttl must be positive"},
		{"too many workers", func(c *Config) { c.Scan.Workers = 65 }, "scan.workers"},
		{"bad prefix", func(c *Config) { c.Scan.Prefixes = []string{"192.168.1.0"} }, "scan.prefixes"},
		{"missing tv id", func(c *Config) { c.TVs = []device.Profile{{Host: "10.0.0.1"}} }, "tvs[0].id is required"},
		{"duplicate tv", func(c *Config) {
			c.TVs = []device.Profile{{ID: "a"}, {ID: "a"}}
		}, "duplicate tv ID: a"},
		{"bad port", func(c *Config) { c.TVs = []device.Profile{{ID: "a", Port: 70000}} }, "tvs[0].port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad bridge port", func(c *Config) { c.Adapters.BridgePort = 0 }, "adapters.bridge_port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewDefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("default is valid", func(t *testing.T) {
		assert.NoError(t, NewDefaultConfig().Validate())
	})
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telly.yaml")
	cfg := NewDefaultConfig()
	cfg.TVs = append(cfg.TVs, device.Profile{ID: "den", Brand: device.BrandRoku, Host: "10.0.0.8"})

	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.TVs, loaded.TVs)
	assert.Equal(t, cfg.API, loaded.API)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(PassphraseEnv, "hunter2")
	t.Setenv(JWTSecretEnv, "s3cret")

	cfg, err := LoadConfig(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Credentials.Passphrase)
	assert.Equal(t, "s3cret", cfg.API.JWTSecret)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.TVs)
	assert.Equal(t, "telly.db", cfg.Credentials.Path)

	_, err = LoadOrDefault(writeConfig(t, "tvs: [oops"))
	assert.Error(t, err)
}

func TestGetTV(t *testing.T) {
	cfg := NewDefaultConfig()

	tv, err := cfg.GetTV("living_room_tv")
	require.NoError(t, err)
	assert.Equal(t, device.BrandSony, tv.Brand)

	tv, err = cfg.GetTV("living room")
	require.NoError(t, err)
	assert.Equal(t, "living_room_tv", tv.ID)

	_, err = cfg.GetTV("garage")
	assert.EqualError(t, err, "tv not found: garage")
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 1200*time.Millisecond, Duration("1200ms", time.Second))
	assert.Equal(t, time.Second, Duration("", time.Second))
	assert.Equal(t, time.Second, Duration("-3s", time.Second))
}

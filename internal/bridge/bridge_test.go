package bridge_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telly/internal/bridge"
	"telly/internal/device"
)

func startBridge(t *testing.T, handler http.HandlerFunc) bridge.Config {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	_, p, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)

	cfg := bridge.DefaultConfig()
	cfg.Port = port
	cfg.RequestTimeout = time.Second
	return cfg
}

func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

var shieldTV = device.Profile{ID: "shield", Brand: device.BrandAndroidTV, Nickname: "Shield", Host: "127.0.0.1"}

func TestBridgeSend(t *testing.T) {
	t.Run("posts wire name and profile id", func(t *testing.T) {
		cfg := startBridge(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/command", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "volumeDown", body["command"])
			assert.Equal(t, "shield", body["profileId"])
			w.Write([]byte(`{"ok":true}`))
		})

		r := bridge.New(cfg).Send(context.Background(), shieldTV, device.CommandVolumeDown)
		assert.True(t, r.OK, r.Message)
	})

	t.Run("retries once on server error", func(t *testing.T) {
		var calls int32
		cfg := startBridge(t, func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})

		r := bridge.New(cfg).Send(context.Background(), shieldTV, device.CommandHome)
		assert.True(t, r.OK, r.Message)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("persistent server error keeps bridge status", func(t *testing.T) {
		cfg := startBridge(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		r := bridge.New(cfg).Send(context.Background(), shieldTV, device.CommandHome)
		assert.False(t, r.OK)
		assert.Equal(t, "bridge returned status 503", r.Message)
	})

	t.Run("persistent server error carries bridge message", func(t *testing.T) {
		cfg := startBridge(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"ok":false,"message":"input service crashed"}`))
		})

		r := bridge.New(cfg).Send(context.Background(), shieldTV, device.CommandHome)
		assert.False(t, r.OK)
		assert.Equal(t, "bridge refused home: input service crashed", r.Message)
	})

	t.Run("refusal carries bridge message", func(t *testing.T) {
		cfg := startBridge(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":false,"message":"accessibility service disabled"}`))
		})

		r := bridge.New(cfg).Send(context.Background(), shieldTV, device.CommandBack)
		assert.False(t, r.OK)
		assert.Contains(t, r.Message, "accessibility service disabled")
	})

	t.Run("unreachable", func(t *testing.T) {
		cfg := bridge.DefaultConfig()
		cfg.Port = closedPort(t)

		r := bridge.New(cfg).Send(context.Background(), shieldTV, device.CommandBack)
		assert.False(t, r.OK)
		assert.Contains(t, r.Message, "bridge unreachable at 127.0.0.1")
	})
}

func TestBridgeProbe(t *testing.T) {
	cfg := startBridge(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ping" {
			w.Write([]byte("pong"))
			return
		}
		http.NotFound(w, r)
	})
	assert.True(t, bridge.New(cfg).Probe(context.Background(), "127.0.0.1"))

	cfg.Port = closedPort(t)
	assert.False(t, bridge.New(cfg).Probe(context.Background(), "127.0.0.1"))
}

func TestDelegate(t *testing.T) {
	t.Run("success passes through", func(t *testing.T) {
		cfg := startBridge(t, func(w http.ResponseWriter, r *http.Request) {})
		d := bridge.NewDelegate(device.BrandFireTV, bridge.New(cfg))

		assert.Equal(t, device.BrandFireTV, d.Brand())
		r := d.Send(context.Background(), shieldTV, device.CommandPlayPause)
		assert.True(t, r.OK, r.Message)
	})

	t.Run("failure names the brand", func(t *testing.T) {
		cfg := bridge.DefaultConfig()
		cfg.Port = closedPort(t)
		d := bridge.NewDelegate(device.BrandHisense, bridge.New(cfg))

		r := d.Send(context.Background(), shieldTV, device.CommandPower)
		assert.False(t, r.OK)
		assert.Contains(t, r.Message, "Hisense control needs the telly bridge app; bridge unreachable")
	})

	t.Run("no fast probe", func(t *testing.T) {
		d := bridge.NewDelegate(device.BrandAndroidTV, bridge.New(bridge.DefaultConfig()))
		assert.False(t, d.Probe(context.Background(), "127.0.0.1"))
	})
}

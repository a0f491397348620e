package roku_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telly/internal/device"
	"telly/internal/roku"
)

type fakeRoku struct {
	mu      sync.Mutex
	status  int
	pressed []string
}

func (f *fakeRoku) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && len(r.URL.Path) > len("/keypress/"):
		f.pressed = append(f.pressed, r.URL.Path)
		if f.status != 0 {
			w.WriteHeader(f.status)
		}
	case r.URL.Path == "/query/device-info":
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" ?><device-info><vendor-name>Roku</vendor-name></device-info>`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeRoku) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pressed...)
}

func startRoku(t *testing.T, tv *fakeRoku) (int, roku.Config) {
	t.Helper()
	server := httptest.NewServer(tv)
	t.Cleanup(server.Close)

	_, p, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)

	cfg := roku.DefaultConfig()
	cfg.Port = port
	cfg.RequestTimeout = time.Second
	return port, cfg
}

func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func TestSend(t *testing.T) {
	t.Run("volume up keypress", func(t *testing.T) {
		tv := &fakeRoku{}
		_, cfg := startRoku(t, tv)

		r := roku.New(cfg).Send(context.Background(), device.Profile{ID: "tv", Host: "127.0.0.1"}, device.CommandVolumeUp)
		require.True(t, r.OK, r.Message)
		assert.Equal(t, []string{"/keypress/VolumeUp"}, tv.keys())
	})

	t.Run("digits are literal characters", func(t *testing.T) {
		tv := &fakeRoku{}
		_, cfg := startRoku(t, tv)

		r := roku.New(cfg).Send(context.Background(), device.Profile{ID: "tv", Host: "127.0.0.1"}, device.CommandDigit4)
		require.True(t, r.OK, r.Message)
		assert.Equal(t, []string{"/keypress/Lit_4"}, tv.keys())
	})

	t.Run("non-2xx reports status", func(t *testing.T) {
		tv := &fakeRoku{status: http.StatusServiceUnavailable}
		_, cfg := startRoku(t, tv)

		r := roku.New(cfg).Send(context.Background(), device.Profile{ID: "tv", Host: "127.0.0.1"}, device.CommandHome)
		assert.False(t, r.OK)
		assert.Contains(t, r.Message, "503")
	})

	t.Run("unreachable custom port retries default", func(t *testing.T) {
		tv := &fakeRoku{}
		_, cfg := startRoku(t, tv)

		p := device.Profile{ID: "tv", Host: "127.0.0.1", Port: closedPort(t)}
		r := roku.New(cfg).Send(context.Background(), p, device.CommandOK)
		require.True(t, r.OK, r.Message)
		assert.Equal(t, []string{"/keypress/Select"}, tv.keys())
	})

	t.Run("unreachable", func(t *testing.T) {
		cfg := roku.DefaultConfig()
		cfg.Port = closedPort(t)

		r := roku.New(cfg).Send(context.Background(), device.Profile{ID: "tv", Nickname: "Den", Host: "127.0.0.1"}, device.CommandPower)
		assert.False(t, r.OK)
		assert.Contains(t, r.Message, "could not reach Den")
	})

	t.Run("unmapped", func(t *testing.T) {
		r := roku.New(roku.DefaultConfig()).Send(context.Background(), device.Profile{ID: "tv", Host: "192.0.2.1"}, device.CommandNumpadOpen)
		assert.False(t, r.OK)
		assert.Contains(t, r.Message, "not mapped for roku")
	})
}

func TestProbe(t *testing.T) {
	_, cfg := startRoku(t, &fakeRoku{})
	adapter := roku.New(cfg)
	assert.True(t, adapter.Probe(context.Background(), "127.0.0.1"))
	assert.True(t, adapter.FallbackProbe(context.Background(), "127.0.0.1"))

	cfg.Port = closedPort(t)
	assert.False(t, roku.New(cfg).Probe(context.Background(), "127.0.0.1"))
}

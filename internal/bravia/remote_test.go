package bravia_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telly/internal/bravia"
	"telly/internal/credentials"
	"telly/internal/device"
)

// fakeBravia serves the code table and records IRCC presses
type fakeBravia struct {
	mu         sync.Mutex
	psk        string
	table      string
	tableFails bool
	tableCalls int
	pressed    []string
	irccStatus int
}

func (f *fakeBravia) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)

	switch r.URL.Path {
	case "/sony/system":
		if strings.Contains(string(body), "getInterfaceInformation") {
			w.Write([]byte(`{"id":1,"result":[{"productCategory":"tv","modelName":"KD-55X85J"}]}`))
			return
		}
		f.tableCalls++
		if r.Header.Get("X-Auth-PSK") != f.psk {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if f.tableFails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"id":10,"result":[{"bundled":true},` + f.table + `]}`))
	case "/sony/IRCC":
		if r.Header.Get("X-Auth-PSK") != f.psk {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		start := strings.Index(string(body), "<IRCCCode>") + len("<IRCCCode>")
		end := strings.Index(string(body), "</IRCCCode>")
		f.pressed = append(f.pressed, string(body)[start:end])
		if f.irccStatus != 0 {
			w.WriteHeader(f.irccStatus)
		}
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeBravia) snapshot() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tableCalls, append([]string(nil), f.pressed...)
}

func startBravia(t *testing.T, tv *fakeBravia) (device.Profile, bravia.Config) {
	t.Helper()
	server := httptest.NewServer(tv)
	t.Cleanup(server.Close)

	_, p, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)

	cfg := bravia.DefaultConfig()
	cfg.Port = port
	cfg.RequestTimeout = time.Second
	return device.Profile{ID: "bedroom", Brand: device.BrandSony, Host: "127.0.0.1", Port: port}, cfg
}

const defaultTable = `[{"name":"PowerOff","value":"AAAAAQAAAAEAAAAvAw=="},{"name":"VolumeUp","value":"AAAAAQAAAAEAAAASAw=="},{"name":"Confirm","value":"AAAAAQAAAAEAAABlAw=="}]`

func TestBraviaSend(t *testing.T) {
	t.Run("missing psk asks for pairing without I/O", func(t *testing.T) {
		tv := &fakeBravia{psk: "0000", table: defaultTable}
		profile, cfg := startBravia(t, tv)

		r := bravia.NewBraviaRemote(credentials.NewMemoryStore(), cfg).Send(context.Background(), profile, device.CommandPower)
		assert.False(t, r.OK)
		require.NotNil(t, r.Pairing)
		assert.Equal(t, device.BrandSony, r.Pairing.Brand)
		assert.Equal(t, device.ChallengePSK, r.Pairing.Challenge.Kind)

		calls, pressed := tv.snapshot()
		assert.Zero(t, calls)
		assert.Empty(t, pressed)
	})

	t.Run("resolves through code table and caches it", func(t *testing.T) {
		tv := &fakeBravia{psk: "0000", table: defaultTable}
		profile, cfg := startBravia(t, tv)

		creds := credentials.NewMemoryStore()
		require.NoError(t, creds.Set(credentials.NamespaceSonyPSK, profile.CredentialKey(), "0000"))
		remote := bravia.NewBraviaRemote(creds, cfg)

		r := remote.Send(context.Background(), profile, device.CommandVolumeUp)
		require.True(t, r.OK, r.Message)
		r = remote.Send(context.Background(), profile, device.CommandOK)
		require.True(t, r.OK, r.Message)

		calls, pressed := tv.snapshot()
		assert.Equal(t, 1, calls, "table fetched once")
		assert.Equal(t, []string{"AAAAAQAAAAEAAAASAw==", "AAAAAQAAAAEAAABlAw=="}, pressed)

		_, persisted := creds.Get(credentials.NamespaceSonyCodes, profile.CredentialKey())
		assert.True(t, persisted)
	})

	t.Run("name miss refreshes table once", func(t *testing.T) {
		tv := &fakeBravia{psk: "0000", table: defaultTable}
		profile, cfg := startBravia(t, tv)

		creds := credentials.NewMemoryStore()
		require.NoError(t, creds.Set(credentials.NamespaceSonyPSK, profile.CredentialKey(), "0000"))
		remote := bravia.NewBraviaRemote(creds, cfg)

		require.True(t, remote.Send(context.Background(), profile, device.CommandVolumeUp).OK)
		r := remote.Send(context.Background(), profile, device.CommandRewind)
		assert.False(t, r.OK)
		assert.Contains(t, r.Message, "no remote code for rewind")

		calls, _ := tv.snapshot()
		assert.Equal(t, 2, calls)
	})

	t.Run("rejected psk clears credentials and asks again", func(t *testing.T) {
		tv := &fakeBravia{psk: "1234", table: defaultTable}
		profile, cfg := startBravia(t, tv)

		creds := credentials.NewMemoryStore()
		require.NoError(t, creds.Set(credentials.NamespaceSonyPSK, profile.CredentialKey(), "0000"))
		require.NoError(t, creds.Set(credentials.NamespaceSonyCodes, profile.CredentialKey(), defaultTable))

		r := bravia.NewBraviaRemote(creds, cfg).Send(context.Background(), profile, device.CommandPower)
		assert.False(t, r.OK)
		require.NotNil(t, r.Pairing)

		_, ok := creds.Get(credentials.NamespaceSonyPSK, profile.CredentialKey())
		assert.False(t, ok)
		_, ok = creds.Get(credentials.NamespaceSonyCodes, profile.CredentialKey())
		assert.False(t, ok)
	})

	t.Run("table failure falls back to built-in codes", func(t *testing.T) {
		tv := &fakeBravia{psk: "0000", tableFails: true}
		profile, cfg := startBravia(t, tv)

		creds := credentials.NewMemoryStore()
		require.NoError(t, creds.Set(credentials.NamespaceSonyPSK, profile.CredentialKey(), "0000"))

		r := bravia.NewBraviaRemote(creds, cfg).Send(context.Background(), profile, device.CommandMute)
		require.True(t, r.OK, r.Message)
		_, pressed := tv.snapshot()
		assert.Equal(t, []string{string(bravia.Mute)}, pressed)
	})

	t.Run("unmapped command", func(t *testing.T) {
		r := bravia.NewBraviaRemote(credentials.NewMemoryStore(), bravia.DefaultConfig()).
			Send(context.Background(), device.Profile{ID: "x", Host: "192.0.2.1"}, device.CommandNumpadBackspace)
		assert.False(t, r.OK)
		assert.Contains(t, r.Message, "not mapped")
	})
}

func TestBraviaCompletePairing(t *testing.T) {
	tv := &fakeBravia{psk: "4321", table: defaultTable}
	profile, cfg := startBravia(t, tv)

	creds := credentials.NewMemoryStore()
	remote := bravia.NewBraviaRemote(creds, cfg)

	t.Run("wrong key keeps asking", func(t *testing.T) {
		r := remote.CompletePairing(context.Background(), profile, "0000", nil)
		assert.False(t, r.OK)
		assert.NotNil(t, r.Pairing)
		_, ok := creds.Get(credentials.NamespaceSonyPSK, profile.CredentialKey())
		assert.False(t, ok)
	})

	t.Run("valid key stored", func(t *testing.T) {
		r := remote.CompletePairing(context.Background(), profile, "4321", nil)
		require.True(t, r.OK, r.Message)
		psk, _ := creds.Get(credentials.NamespaceSonyPSK, profile.CredentialKey())
		assert.Equal(t, "4321", psk)

		r = remote.Send(context.Background(), profile, device.CommandPower)
		require.True(t, r.OK, r.Message)
	})
}

func TestBraviaProbe(t *testing.T) {
	tv := &fakeBravia{psk: "0000"}
	profile, cfg := startBravia(t, tv)

	remote := bravia.NewBraviaRemote(credentials.NewMemoryStore(), cfg)
	assert.True(t, remote.Probe(context.Background(), profile.Host))
}

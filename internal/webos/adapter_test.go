package webos

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telly/internal/credentials"
	"telly/internal/device"
)

// fakeTV emulates the webOS register handshake and ssap responses
type fakeTV struct {
	mu         sync.Mutex
	keysSeen   []string
	uris       []string
	buttons    []string
	acceptKey  func(key string) bool
	grantedKey string
	pointerURL string
}

func (f *fakeTV) handler() http.Handler {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/pointer", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.buttons = append(f.buttons, string(data))
		f.mu.Unlock()
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !websocket.IsWebSocketUpgrade(r) {
			w.Write([]byte("Hello world"))
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg struct {
				Type    string          `json:"type"`
				ID      string          `json:"id"`
				URI     string          `json:"uri"`
				Payload json.RawMessage `json:"payload"`
			}
			json.Unmarshal(data, &msg)

			switch msg.Type {
			case "register":
				var p struct {
					ClientKey string `json:"client-key"`
				}
				json.Unmarshal(msg.Payload, &p)
				f.mu.Lock()
				f.keysSeen = append(f.keysSeen, p.ClientKey)
				f.mu.Unlock()

				if !f.acceptKey(p.ClientKey) {
					conn.WriteJSON(map[string]interface{}{"type": "error", "id": msg.ID, "error": "403 access denied"})
					continue
				}
				conn.WriteJSON(map[string]interface{}{"type": "response", "id": msg.ID, "payload": map[string]interface{}{"pairingType": "PROMPT"}})
				conn.WriteJSON(map[string]interface{}{"type": "registered", "id": msg.ID, "payload": map[string]interface{}{"client-key": f.grantedKey}})

			case "request":
				f.mu.Lock()
				f.uris = append(f.uris, msg.URI)
				f.mu.Unlock()
				payload := map[string]interface{}{"returnValue": true}
				if strings.HasSuffix(msg.URI, "getPointerInputSocket") {
					payload["socketPath"] = f.pointerURL
				}
				conn.WriteJSON(map[string]interface{}{"type": "response", "id": msg.ID, "payload": payload})
			}
		}
	})
	return mux
}

func (f *fakeTV) snapshot() (keys, uris, buttons []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keysSeen...), append([]string(nil), f.uris...), append([]string(nil), f.buttons...)
}

func startTV(t *testing.T, tv *fakeTV) int {
	t.Helper()
	server := httptest.NewServer(tv.handler())
	t.Cleanup(server.Close)
	tv.pointerURL = "ws" + strings.TrimPrefix(server.URL, "http") + "/pointer"

	_, p, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)
	return port
}

func testConfig(port int) Config {
	cfg := DefaultConfig()
	cfg.PlainPort = port
	cfg.ConnectTimeout = time.Second
	cfg.KeyTimeout = 500 * time.Millisecond
	cfg.PairingTimeout = 500 * time.Millisecond
	return cfg
}

func TestSendSSAPCommand(t *testing.T) {
	tv := &fakeTV{acceptKey: func(string) bool { return true }, grantedKey: "key-1"}
	port := startTV(t, tv)

	creds := credentials.NewMemoryStore()
	adapter := New(creds, testConfig(port))
	profile := device.Profile{ID: "tv", Brand: device.BrandLG, Host: "127.0.0.1", Port: port}

	r := adapter.Send(context.Background(), profile, device.CommandVolumeUp)
	require.True(t, r.OK, r.Message)

	_, uris, _ := tv.snapshot()
	assert.Equal(t, []string{"ssap://audio/volumeUp"}, uris)

	key, ok := creds.Get(credentials.NamespaceLGClientKeys, profile.CredentialKey())
	require.True(t, ok)
	assert.Equal(t, "key-1", key)

	t.Run("cached key presented next time", func(t *testing.T) {
		r := adapter.Send(context.Background(), profile, device.CommandMute)
		require.True(t, r.OK, r.Message)
		keys, _, _ := tv.snapshot()
		assert.Equal(t, []string{"", "key-1"}, keys)
	})
}

func TestSendPointerButton(t *testing.T) {
	tv := &fakeTV{acceptKey: func(string) bool { return true }, grantedKey: "key-1"}
	port := startTV(t, tv)

	adapter := New(credentials.NewMemoryStore(), testConfig(port))
	profile := device.Profile{ID: "tv", Host: "127.0.0.1", Port: port}

	r := adapter.Send(context.Background(), profile, device.CommandLeft)
	require.True(t, r.OK, r.Message)

	require.Eventually(t, func() bool {
		_, _, buttons := tv.snapshot()
		return len(buttons) == 1
	}, time.Second, 10*time.Millisecond)

	_, uris, buttons := tv.snapshot()
	assert.Equal(t, []string{"ssap://com.webos.service.networkinput/getPointerInputSocket"}, uris)
	assert.Equal(t, "type:button\nname:LEFT\n\n", buttons[0])
}

func TestSendRejectedKey(t *testing.T) {
	t.Run("stale key dropped and retried once", func(t *testing.T) {
		tv := &fakeTV{acceptKey: func(k string) bool { return k != "stale" }, grantedKey: "fresh"}
		port := startTV(t, tv)

		creds := credentials.NewMemoryStore()
		profile := device.Profile{ID: "tv", Host: "127.0.0.1", Port: port}
		require.NoError(t, creds.Set(credentials.NamespaceLGClientKeys, profile.CredentialKey(), "stale"))

		r := New(creds, testConfig(port)).Send(context.Background(), profile, device.CommandPower)
		require.True(t, r.OK, r.Message)

		keys, uris, _ := tv.snapshot()
		assert.Equal(t, []string{"stale", ""}, keys)
		assert.Equal(t, []string{"ssap://system/turnOff"}, uris)

		key, _ := creds.Get(credentials.NamespaceLGClientKeys, profile.CredentialKey())
		assert.Equal(t, "fresh", key)
	})

	t.Run("second rejection surfaced", func(t *testing.T) {
		tv := &fakeTV{acceptKey: func(string) bool { return false }}
		port := startTV(t, tv)

		creds := credentials.NewMemoryStore()
		profile := device.Profile{ID: "tv", Host: "127.0.0.1", Port: port}
		require.NoError(t, creds.Set(credentials.NamespaceLGClientKeys, profile.CredentialKey(), "stale"))

		r := New(creds, testConfig(port)).Send(context.Background(), profile, device.CommandPower)
		assert.False(t, r.OK)
		assert.Contains(t, r.Message, "rejected registration")

		keys, uris, _ := tv.snapshot()
		assert.Equal(t, []string{"stale", ""}, keys)
		assert.Empty(t, uris, "no command before successful registration")
	})
}

func TestSendUnmapped(t *testing.T) {
	adapter := New(credentials.NewMemoryStore(), DefaultConfig())
	r := adapter.Send(context.Background(), device.Profile{ID: "tv", Host: "192.0.2.1"}, device.CommandNumpadOpen)
	assert.False(t, r.OK)
	assert.Equal(t, "numpadOpen is not mapped for lg", r.Message)
}

func TestProbe(t *testing.T) {
	tv := &fakeTV{acceptKey: func(string) bool { return true }}
	port := startTV(t, tv)

	adapter := New(credentials.NewMemoryStore(), testConfig(port))
	assert.True(t, adapter.Probe(context.Background(), "127.0.0.1"))
	assert.True(t, adapter.FallbackProbe(context.Background(), "127.0.0.1"))
}

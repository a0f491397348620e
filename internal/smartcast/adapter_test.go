package smartcast_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telly/internal/credentials"
	"telly/internal/device"
	"telly/internal/smartcast"
)

// fakeVizio implements the pairing and key_command endpoints
type fakeVizio struct {
	mu         sync.Mutex
	pin        string
	token      string
	trusted    bool // answer pairing/start with a token directly
	starts     int
	pairs      int
	keys       []map[string]interface{}
	lastDevice string
}

func (f *fakeVizio) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]interface{}
	json.NewDecoder(r.Body).Decode(&body)

	switch r.URL.Path {
	case "/pairing/start":
		f.starts++
		f.lastDevice, _ = body["DEVICE_ID"].(string)
		if f.trusted {
			w.Write([]byte(`{"STATUS":{"RESULT":"SUCCESS"},"ITEM":{"AUTH_TOKEN":"` + f.token + `"}}`))
			return
		}
		w.Write([]byte(`{"STATUS":{"RESULT":"SUCCESS"},"ITEM":{"PAIRING_REQ_TOKEN":42,"CHALLENGE_TYPE":1}}`))
	case "/pairing/pair":
		f.pairs++
		if body["RESPONSE_VALUE"] != f.pin || body["PAIRING_REQ_TOKEN"] != float64(42) || body["DEVICE_ID"] != f.lastDevice {
			w.Write([]byte(`{"STATUS":{"RESULT":"INVALID_PIN","DETAIL":"Invalid PIN"}}`))
			return
		}
		w.Write([]byte(`{"STATUS":{"RESULT":"SUCCESS"},"ITEM":{"AUTH_TOKEN":"` + f.token + `"}}`))
	case "/key_command/":
		if r.Header.Get("AUTH") != f.token {
			w.Write([]byte(`{"STATUS":{"RESULT":"INVALID_AUTH_TOKEN"}}`))
			return
		}
		list, _ := body["KEYLIST"].([]interface{})
		for _, k := range list {
			f.keys = append(f.keys, k.(map[string]interface{}))
		}
		w.Write([]byte(`{"STATUS":{"RESULT":"SUCCESS"}}`))
	case "/state/device/deviceinfo":
		w.Write([]byte(`{"STATUS":{"RESULT":"SUCCESS"},"ITEMS":[{"VALUE":{"MODEL_NAME":"V505"}}]}`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeVizio) counts() (starts, pairs int, keys []map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.pairs, append([]map[string]interface{}(nil), f.keys...)
}

func startVizio(t *testing.T, tv *fakeVizio) (device.Profile, smartcast.Config) {
	t.Helper()
	server := httptest.NewTLSServer(tv)
	t.Cleanup(server.Close)

	_, p, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)

	cfg := smartcast.DefaultConfig()
	cfg.Ports = []int{port}
	cfg.RequestTimeout = 2 * time.Second
	return device.Profile{ID: "den", Brand: device.BrandVizio, Host: "127.0.0.1", Port: port}, cfg
}

func TestPairingThenCommand(t *testing.T) {
	tv := &fakeVizio{pin: "123456", token: "Zmy2"}
	profile, cfg := startVizio(t, tv)
	creds := credentials.NewMemoryStore()
	adapter := smartcast.New(creds, cfg)

	r := adapter.Send(context.Background(), profile, device.CommandPower)
	assert.False(t, r.OK)
	require.NotNil(t, r.Pairing)
	assert.Equal(t, device.BrandVizio, r.Pairing.Brand)
	assert.Equal(t, device.ChallengePIN, r.Pairing.Challenge.Kind)
	assert.Equal(t, 42, r.Pairing.Challenge.PairingToken)
	assert.Equal(t, 1, r.Pairing.Challenge.ChallengeType)
	assert.NotEmpty(t, r.Pairing.Challenge.DeviceID)

	done := adapter.CompletePairing(context.Background(), profile, "123456", r.Pairing)
	require.True(t, done.OK, done.Message)

	r = adapter.Send(context.Background(), profile, device.CommandPower)
	require.True(t, r.OK, r.Message)
	assert.Nil(t, r.Pairing)

	starts, pairs, keys := tv.counts()
	assert.Equal(t, 1, starts, "no new challenge after pairing")
	assert.Equal(t, 1, pairs)
	require.Len(t, keys, 1)
	assert.Equal(t, float64(11), keys[0]["CODESET"])
	assert.Equal(t, float64(2), keys[0]["CODE"])
	assert.Equal(t, "KEYPRESS", keys[0]["ACTION"])
}

func TestCompletePairingRejectsBadPIN(t *testing.T) {
	tv := &fakeVizio{pin: "1234", token: "tok"}
	profile, cfg := startVizio(t, tv)
	adapter := smartcast.New(credentials.NewMemoryStore(), cfg)

	req := &device.PairingRequest{
		Brand:     device.BrandVizio,
		Challenge: device.Challenge{Kind: device.ChallengePIN, PairingToken: 42, DeviceID: "telly-x"},
	}

	for _, pin := range []string{"", "123", "1234567", "12a4", "12 34"} {
		r := adapter.CompletePairing(context.Background(), profile, pin, req)
		assert.False(t, r.OK, pin)
		assert.Contains(t, r.Message, "4 to 6 digits")
	}

	starts, pairs, _ := tv.counts()
	assert.Zero(t, starts)
	assert.Zero(t, pairs, "invalid PINs never reach the TV")
}

func TestWrongPINLeavesNoToken(t *testing.T) {
	tv := &fakeVizio{pin: "1234", token: "tok"}
	profile, cfg := startVizio(t, tv)
	creds := credentials.NewMemoryStore()
	adapter := smartcast.New(creds, cfg)

	r := adapter.Send(context.Background(), profile, device.CommandMute)
	require.NotNil(t, r.Pairing)

	done := adapter.CompletePairing(context.Background(), profile, "9999", r.Pairing)
	assert.False(t, done.OK)
	assert.Contains(t, done.Message, "Invalid PIN")

	_, ok := creds.Get(credentials.NamespaceVizioAuth, profile.CredentialKey())
	assert.False(t, ok)
}

func TestRejectedTokenRestartsPairing(t *testing.T) {
	tv := &fakeVizio{pin: "1234", token: "fresh"}
	profile, cfg := startVizio(t, tv)
	creds := credentials.NewMemoryStore()
	require.NoError(t, credentials.SetJSON(creds, credentials.NamespaceVizioAuth, profile.CredentialKey(),
		map[string]string{"auth_token": "stale", "device_id": "telly-old"}))

	r := smartcast.New(creds, cfg).Send(context.Background(), profile, device.CommandVolumeUp)
	assert.False(t, r.OK)
	require.NotNil(t, r.Pairing)
	assert.Equal(t, "telly-old", r.Pairing.Challenge.DeviceID)

	_, ok := creds.Get(credentials.NamespaceVizioAuth, profile.CredentialKey())
	assert.False(t, ok, "stale token cleared")
}

func TestTrustedDeviceSkipsChallenge(t *testing.T) {
	tv := &fakeVizio{token: "granted", trusted: true}
	profile, cfg := startVizio(t, tv)
	creds := credentials.NewMemoryStore()

	r := smartcast.New(creds, cfg).Send(context.Background(), profile, device.CommandDigit7)
	require.True(t, r.OK, r.Message)

	_, _, keys := tv.counts()
	require.Len(t, keys, 1)
	assert.Equal(t, float64(0), keys[0]["CODESET"])
	assert.Equal(t, float64('7'), keys[0]["CODE"])

	stored, ok := creds.Get(credentials.NamespaceVizioAuth, profile.CredentialKey())
	assert.True(t, ok)
	assert.Contains(t, stored, "granted")
}

func TestUnmappedAndNoHost(t *testing.T) {
	adapter := smartcast.New(credentials.NewMemoryStore(), smartcast.DefaultConfig())

	r := adapter.Send(context.Background(), device.Profile{ID: "x", Host: "192.0.2.1"}, device.CommandNumpadOpen)
	assert.False(t, r.OK)
	assert.Contains(t, r.Message, "not mapped")

	r = adapter.Send(context.Background(), device.Profile{ID: "x"}, device.CommandPower)
	assert.False(t, r.OK)
	assert.Contains(t, r.Message, "no host configured")
}

func TestProbe(t *testing.T) {
	tv := &fakeVizio{}
	profile, cfg := startVizio(t, tv)
	adapter := smartcast.New(credentials.NewMemoryStore(), cfg)

	assert.True(t, adapter.Probe(context.Background(), profile.Host))
	assert.True(t, adapter.FallbackProbe(context.Background(), profile.Host))
}

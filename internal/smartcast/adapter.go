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

package smartcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telly/internal/credentials"
	"telly/internal/device"
	"telly/internal/logger"
	"telly/internal/transport"
)

var errRejected = errors.New("auth token rejected")

// Config holds the SmartCast adapter settings
type Config struct {
	Ports          []int
	DeviceName     string
	RequestTimeout time.Duration
	ProbeTimeout   time.Duration
}

// DefaultConfig returns the ports and budgets SmartCast TVs expect
func DefaultConfig() Config {
	return Config{
		Ports:          []int{7345, 9000},
		DeviceName:     "telly",
		RequestTimeout: transport.DefaultRequestTimeout,
		ProbeTimeout:   transport.DefaultProbeTimeout,
	}
}

// authRecord is the vizio.auth credential payload
type authRecord struct {
	AuthToken string `json:"auth_token"`
	DeviceID  string `json:"device_id"`
	Port      int    `json:"port,omitempty"`
}

type status struct {
	Result string `json:"RESULT"`
	Detail string `json:"DETAIL"`
}

type reply struct {
	Status status `json:"STATUS"`
	Item   struct {
		AuthToken       string `json:"AUTH_TOKEN"`
		PairingReqToken int    `json:"PAIRING_REQ_TOKEN"`
		ChallengeType   int    `json:"CHALLENGE_TYPE"`
	} `json:"ITEM"`
}

type keyEntry struct {
	Codeset int    `json:"CODESET"`
	Code    int    `json:"CODE"`
	Action  string `json:"ACTION"`
}

type keyCommand struct {
	KeyList []keyEntry `json:"KEYLIST"`
}

// Adapter drives Vizio SmartCast TVs
type Adapter struct {
	cfg    Config
	creds  credentials.Cache
	http   *http.Client
	probe  *http.Client
	logger zerolog.Logger
}

// New creates a Vizio adapter backed by creds
func New(creds credentials.Cache, cfg Config) *Adapter {
	def := DefaultConfig()
	if len(cfg.Ports) == 0 {
		cfg.Ports = def.Ports
	}
	if cfg.DeviceName == "" {
		cfg.DeviceName = def.DeviceName
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}

	return &Adapter{
		cfg:    cfg,
		creds:  creds,
		http:   transport.NewInsecureClient(cfg.RequestTimeout),
		probe:  transport.NewInsecureClient(cfg.ProbeTimeout),
		logger: logger.GetLogger("smartcast"),
	}
}

func (a *Adapter) Brand() device.Brand {
	return device.BrandVizio
}

func (a *Adapter) ports(p device.Profile, rec authRecord) []int {
	if p.Port > 0 {
		return []int{p.Port}
	}
	if rec.Port > 0 {
		out := []int{rec.Port}
		for _, port := range a.cfg.Ports {
			if port != rec.Port {
				out = append(out, port)
			}
		}
		return out
	}
	return a.cfg.Ports
}

// put issues a JSON PUT against the first port that answers and returns the port used
func (a *Adapter) put(ctx context.Context, host string, ports []int, path string, headers map[string]string, body interface{}) (*transport.Response, int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request: %w", err)
	}

	hdrs := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		hdrs[k] = v
	}

	var lastErr error
	for _, port := range ports {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		url := fmt.Sprintf("https://%s%s", transport.HostPort(host, port, port), path)
		resp, err := transport.Do(ctx, a.http, http.MethodPut, url, hdrs, data, a.cfg.RequestTimeout)
		if err != nil {
			a.logger.Debug().Err(err).Str("url", url).Msg("SmartCast endpoint unavailable")
			lastErr = err
			continue
		}
		return resp, port, nil
	}
	return nil, 0, lastErr
}

func decodeReply(resp *transport.Response) reply {
	var r reply
	json.Unmarshal(resp.Body, &r)
	return r
}

func (a *Adapter) loadAuth(ck string) authRecord {
	var rec authRecord
	if _, err := credentials.GetJSON(a.creds, credentials.NamespaceVizioAuth, ck, &rec); err != nil {
		a.logger.Warn().Err(err).Msg("Ignoring unreadable Vizio auth record")
		return authRecord{}
	}
	return rec
}

func (a *Adapter) storeAuth(ck string, rec authRecord) {
	if err := credentials.SetJSON(a.creds, credentials.NamespaceVizioAuth, ck, rec); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to store Vizio auth token")
	}
}

// Send presses the key mapped to cmd, starting a pairing when no usable token exists
func (a *Adapter) Send(ctx context.Context, p device.Profile, cmd device.Command) device.Result {
	key, ok := keyMap[cmd]
	if !ok {
		return device.NotMapped(cmd, device.BrandVizio)
	}
	if p.Host == "" {
		return device.NoHost(p)
	}

	ck := p.CredentialKey()
	rec := a.loadAuth(ck)

	if rec.AuthToken == "" {
		var res *device.Result
		rec, res = a.startPairing(ctx, p, rec.DeviceID)
		if res != nil {
			return *res
		}
	}

	err := a.pressKey(ctx, p, rec, key)
	if errors.Is(err, errRejected) {
		a.logger.Debug().Str("host", p.Host).Msg("Auth token rejected, pairing again")
		if err := a.creds.Delete(credentials.NamespaceVizioAuth, ck); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to clear Vizio auth token")
		}
		var res *device.Result
		rec, res = a.startPairing(ctx, p, rec.DeviceID)
		if res != nil {
			return *res
		}
		err = a.pressKey(ctx, p, rec, key)
	}
	if errors.Is(err, errRejected) {
		return device.Failure("%s rejected the pairing token", p.DisplayName())
	}
	if err != nil {
		return device.Failure("Vizio command failed: %s", transport.NormalizeError(err))
	}
	return device.Success("%s sent to %s", cmd, p.DisplayName())
}

func (a *Adapter) pressKey(ctx context.Context, p device.Profile, rec authRecord, key keyCode) error {
	body := keyCommand{KeyList: []keyEntry{{Codeset: key.codeset, Code: key.code, Action: "KEYPRESS"}}}
	resp, _, err := a.put(ctx, p.Host, a.ports(p, rec), "/key_command/", map[string]string{"AUTH": rec.AuthToken}, body)
	if err != nil {
		return err
	}
	if resp.Unauthorized() {
		return errRejected
	}
	r := decodeReply(resp)
	if rejectedResults[strings.ToUpper(r.Status.Result)] {
		return fmt.Errorf("%w: %s", errRejected, r.Status.Result)
	}
	if !resp.OK() {
		return fmt.Errorf("key command failed with status %d", resp.StatusCode)
	}
	if r.Status.Result != "" && !strings.EqualFold(r.Status.Result, "SUCCESS") {
		return fmt.Errorf("key command failed: %s", r.Status.Result)
	}
	return nil
}

// startPairing asks the TV for a challenge. A TV that already trusts the
// device id answers with a token, returned with a nil result.
func (a *Adapter) startPairing(ctx context.Context, p device.Profile, deviceID string) (authRecord, *device.Result) {
	if deviceID == "" {
		deviceID = "telly-" + uuid.NewString()
	}

	body := map[string]string{"DEVICE_ID": deviceID, "DEVICE_NAME": a.cfg.DeviceName}
	resp, port, err := a.put(ctx, p.Host, a.ports(p, authRecord{}), "/pairing/start", nil, body)
	if err != nil {
		res := device.Failure("could not start pairing with %s: %s", p.DisplayName(), transport.NormalizeError(err))
		return authRecord{}, &res
	}

	r := decodeReply(resp)
	if !resp.OK() || (r.Status.Result != "" && !strings.EqualFold(r.Status.Result, "SUCCESS")) {
		res := device.Failure("%s refused to pair: %s", p.DisplayName(), firstNonEmpty(r.Status.Detail, r.Status.Result, http.StatusText(resp.StatusCode)))
		return authRecord{}, &res
	}

	if r.Item.AuthToken != "" {
		rec := authRecord{AuthToken: r.Item.AuthToken, DeviceID: deviceID, Port: port}
		a.storeAuth(p.CredentialKey(), rec)
		return rec, nil
	}

	req := &device.PairingRequest{
		Brand: device.BrandVizio,
		Challenge: device.Challenge{
			Kind:          device.ChallengePIN,
			ChallengeType: r.Item.ChallengeType,
			PairingToken:  r.Item.PairingReqToken,
			DeviceID:      deviceID,
		},
	}
	res := device.NeedsPairing(req, "enter the PIN shown on %s", p.DisplayName())
	return authRecord{}, &res
}

// CompletePairing answers a challenge with the PIN shown on screen
func (a *Adapter) CompletePairing(ctx context.Context, p device.Profile, secret string, req *device.PairingRequest) device.Result {
	secret = strings.TrimSpace(secret)
	if len(secret) < 4 || len(secret) > 6 || !device.IsDigits(secret) {
		return device.Failure("the Vizio PIN must be 4 to 6 digits")
	}
	if p.Host == "" {
		return device.NoHost(p)
	}
	if req == nil || req.Brand != device.BrandVizio || req.Challenge.DeviceID == "" {
		return device.Failure("no pending Vizio pairing for %s; send a command first", p.DisplayName())
	}

	body := map[string]interface{}{
		"DEVICE_ID":         req.Challenge.DeviceID,
		"CHALLENGE_TYPE":    req.Challenge.ChallengeType,
		"RESPONSE_VALUE":    secret,
		"PAIRING_REQ_TOKEN": req.Challenge.PairingToken,
	}
	resp, port, err := a.put(ctx, p.Host, a.ports(p, authRecord{}), "/pairing/pair", nil, body)
	if err != nil {
		return device.Failure("could not complete pairing with %s: %s", p.DisplayName(), transport.NormalizeError(err))
	}

	r := decodeReply(resp)
	if !resp.OK() || r.Item.AuthToken == "" {
		return device.Failure("%s rejected the PIN: %s", p.DisplayName(), firstNonEmpty(r.Status.Detail, r.Status.Result, http.StatusText(resp.StatusCode)))
	}

	a.storeAuth(p.CredentialKey(), authRecord{AuthToken: r.Item.AuthToken, DeviceID: req.Challenge.DeviceID, Port: port})
	return device.Success("paired with %s", p.DisplayName())
}

// Probe reads the device info state, which SmartCast serves without auth
func (a *Adapter) Probe(ctx context.Context, host string) bool {
	for _, port := range a.cfg.Ports {
		url := fmt.Sprintf("https://%s/state/device/deviceinfo", transport.HostPort(host, port, port))
		resp, err := transport.Do(ctx, a.probe, http.MethodGet, url, nil, nil, a.cfg.ProbeTimeout)
		if err != nil {
			continue
		}
		var body map[string]json.RawMessage
		if json.Unmarshal(resp.Body, &body) == nil {
			if _, ok := body["STATUS"]; ok {
				return true
			}
		}
	}
	return false
}

// FallbackProbe checks whether either SmartCast port accepts connections
func (a *Adapter) FallbackProbe(ctx context.Context, host string) bool {
	return transport.AnyPortOpen(ctx, host, a.cfg.Ports, a.cfg.ProbeTimeout)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return "unknown error"
}

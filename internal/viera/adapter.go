// Package viera controls Panasonic Viera TVs through the UPnP network remote control service.
package viera

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telly/internal/device"
	"telly/internal/logger"
	"telly/internal/transport"
)

const (
	serviceURN = "urn:panasonic-com:service:p00NetworkControl:1"
	sendKey    = "X_SendKey"
)

var controlPaths = []string{"/nrc/control_0", "/nrc/control"}

// fault markers that mean network control is disabled or the client is not allowed
var unauthorizedMarkers = []string{"unauthori", "denied", "forbidden", "401", "not allowed", "authoriz"}

var errNextCandidate = errors.New("endpoint not served")

// Config holds the Viera adapter settings
type Config struct {
	Port           int
	RequestTimeout time.Duration
	ProbeTimeout   time.Duration
}

// DefaultConfig returns the standard Viera control port and budgets
func DefaultConfig() Config {
	return Config{
		Port:           55000,
		RequestTimeout: transport.DefaultRequestTimeout,
		ProbeTimeout:   transport.DefaultProbeTimeout,
	}
}

type envelope struct {
	Fault *soapFault `xml:"Body>Fault"`
}

type soapFault struct {
	Code        string `xml:"faultcode"`
	String      string `xml:"faultstring"`
	ErrorCode   string `xml:"detail>UPnPError>errorCode"`
	Description string `xml:"detail>UPnPError>errorDescription"`
}

func (f *soapFault) text() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{f.Description, f.String, f.ErrorCode} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func (f *soapFault) unauthorized() bool {
	text := strings.ToLower(f.text())
	for _, marker := range unauthorizedMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// Adapter drives Panasonic TVs over SOAP
type Adapter struct {
	cfg    Config
	http   *http.Client
	probe  *http.Client
	logger zerolog.Logger
}

// New creates a Viera adapter
func New(cfg Config) *Adapter {
	def := DefaultConfig()
	if cfg.Port <= 0 {
		cfg.Port = def.Port
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}

	return &Adapter{
		cfg:    cfg,
		http:   transport.NewInsecureClient(cfg.RequestTimeout),
		probe:  transport.NewClient(cfg.ProbeTimeout),
		logger: logger.GetLogger("viera"),
	}
}

func (a *Adapter) Brand() device.Brand {
	return device.BrandPanasonic
}

func (a *Adapter) candidates(p device.Profile) []string {
	addr := transport.HostPort(p.Host, p.Port, a.cfg.Port)
	urls := make([]string, 0, 2*len(controlPaths))
	for _, scheme := range []string{"http", "https"} {
		for _, path := range controlPaths {
			urls = append(urls, scheme+"://"+addr+path)
		}
	}
	return urls
}

func keyEnvelope(key string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
  <s:Body>
    <u:%s xmlns:u="%s">
      <X_KeyEvent>%s-ONOFF</X_KeyEvent>
    </u:%s>
  </s:Body>
</s:Envelope>`, sendKey, serviceURN, key, sendKey))
}

// Send walks the control endpoints until one accepts the key event
func (a *Adapter) Send(ctx context.Context, p device.Profile, cmd device.Command) device.Result {
	key, ok := keyMap[cmd]
	if !ok {
		return device.NotMapped(cmd, device.BrandPanasonic)
	}
	if p.Host == "" {
		return device.NoHost(p)
	}

	headers := map[string]string{
		"Content-Type": `text/xml; charset="utf-8"`,
		"SOAPACTION":   fmt.Sprintf(`"%s#%s"`, serviceURN, sendKey),
	}
	body := keyEnvelope(key)

	var lastErr error
	for _, url := range a.candidates(p) {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		resp, err := transport.Do(ctx, a.http, http.MethodPost, url, headers, body, a.cfg.RequestTimeout)
		if err != nil {
			a.logger.Debug().Err(err).Str("url", url).Msg("Viera endpoint unreachable")
			lastErr = err
			continue
		}

		res, err := a.interpret(p, resp)
		if errors.Is(err, errNextCandidate) {
			a.logger.Debug().Int("status", resp.StatusCode).Str("url", url).Msg("Viera endpoint not served")
			lastErr = fmt.Errorf("%s returned status %d", url, resp.StatusCode)
			continue
		}
		if res.OK {
			res = device.Success("%s sent to %s", cmd, p.DisplayName())
		}
		return res
	}

	return device.Failure("could not reach %s: %s", p.DisplayName(), transport.NormalizeError(lastErr))
}

func (a *Adapter) interpret(p device.Profile, resp *transport.Response) (device.Result, error) {
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusMethodNotAllowed {
		return device.Result{}, errNextCandidate
	}

	var env envelope
	if err := xml.Unmarshal(resp.Body, &env); err == nil && env.Fault != nil {
		if env.Fault.unauthorized() {
			return device.Failure("%s refused the command (%s); enable TV Remote App control on the TV", p.DisplayName(), env.Fault.text()), nil
		}
		return device.Failure("Panasonic command failed: %s", env.Fault.text()), nil
	}

	if resp.OK() {
		return device.Result{OK: true}, nil
	}
	if resp.Unauthorized() {
		return device.Failure("%s refused the command (status %d); enable TV Remote App control on the TV", p.DisplayName(), resp.StatusCode), nil
	}
	return device.Failure("Panasonic command failed with status %s", strconv.Itoa(resp.StatusCode)), nil
}

// Probe fetches the device description and looks for the Panasonic manufacturer
func (a *Adapter) Probe(ctx context.Context, host string) bool {
	url := fmt.Sprintf("http://%s/nrc/ddd.xml", transport.HostPort(host, a.cfg.Port, a.cfg.Port))
	resp, err := transport.Do(ctx, a.probe, http.MethodGet, url, nil, nil, a.cfg.ProbeTimeout)
	if err != nil || !resp.OK() {
		return false
	}
	return strings.Contains(string(resp.Body), "Panasonic")
}

// FallbackProbe checks whether the control port accepts connections
func (a *Adapter) FallbackProbe(ctx context.Context, host string) bool {
	return transport.PortOpen(ctx, host, a.cfg.Port, a.cfg.ProbeTimeout)
}

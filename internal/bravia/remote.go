package bravia

import (
	"context"
	"errors"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"telly/internal/credentials"
	"telly/internal/device"
	"telly/internal/logger"
	"telly/internal/transport"
)

// Config holds the Bravia adapter settings
type Config struct {
	Port           int
	SimpleIPPort   int
	RequestTimeout time.Duration
	ProbeTimeout   time.Duration
	TableCacheSize int
}

// DefaultConfig returns the ports and budgets Bravia TVs expect
func DefaultConfig() Config {
	return Config{
		Port:           80,
		SimpleIPPort:   20060,
		RequestTimeout: transport.DefaultRequestTimeout,
		ProbeTimeout:   transport.DefaultProbeTimeout,
		TableCacheSize: 64,
	}
}

// BraviaRemote controls Sony TVs with the JSON-RPC code table and IRCC key presses
type BraviaRemote struct {
	cfg    Config
	creds  credentials.Cache
	http   *http.Client
	probe  *http.Client
	tables *lru.Cache[string, []RemoteCode]
	logger zerolog.Logger
}

// NewBraviaRemote creates a Sony adapter backed by creds
func NewBraviaRemote(creds credentials.Cache, cfg Config) *BraviaRemote {
	def := DefaultConfig()
	if cfg.Port <= 0 {
		cfg.Port = def.Port
	}
	if cfg.SimpleIPPort <= 0 {
		cfg.SimpleIPPort = def.SimpleIPPort
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if cfg.TableCacheSize <= 0 {
		cfg.TableCacheSize = def.TableCacheSize
	}

	tables, _ := lru.New[string, []RemoteCode](cfg.TableCacheSize)

	return &BraviaRemote{
		cfg:    cfg,
		creds:  creds,
		http:   transport.NewClient(cfg.RequestTimeout),
		probe:  transport.NewClient(cfg.ProbeTimeout),
		tables: tables,
		logger: logger.GetLogger("bravia"),
	}
}

func (br *BraviaRemote) Brand() device.Brand {
	return device.BrandSony
}

func pskRequest() *device.PairingRequest {
	return &device.PairingRequest{
		Brand:     device.BrandSony,
		Challenge: device.Challenge{Kind: device.ChallengePSK},
	}
}

func (br *BraviaRemote) client(p device.Profile, psk string) *BraviaClient {
	return NewBraviaClient(br.http, transport.HostPort(p.Host, p.Port, br.cfg.Port), psk, br.cfg.RequestTimeout)
}

// Send resolves cmd through the TV's code table and presses the matching IRCC code
func (br *BraviaRemote) Send(ctx context.Context, p device.Profile, cmd device.Command) device.Result {
	variants, ok := nameVariants[cmd]
	if !ok {
		return device.NotMapped(cmd, device.BrandSony)
	}
	if p.Host == "" {
		return device.NoHost(p)
	}

	ck := p.CredentialKey()
	psk, ok := br.creds.Get(credentials.NamespaceSonyPSK, ck)
	if !ok || psk == "" {
		return device.NeedsPairing(pskRequest(), "%s needs its pre-shared key", p.DisplayName())
	}

	client := br.client(p, psk)

	table, fresh, err := br.codeTable(ctx, client, ck, false)
	if errors.Is(err, errUnauthorized) {
		return br.rejectPSK(p)
	}
	if err != nil {
		br.logger.Debug().Err(err).Str("host", p.Host).Msg("Code table unavailable, using built-in codes")
		table, fresh = builtinCodes, true
	}

	code, found := matchCode(table, variants)
	if !found && !fresh {
		table, _, err = br.codeTable(ctx, client, ck, true)
		if errors.Is(err, errUnauthorized) {
			return br.rejectPSK(p)
		}
		if err == nil {
			code, found = matchCode(table, variants)
		}
	}
	if !found {
		return device.Failure("%s has no remote code for %s", p.DisplayName(), cmd)
	}

	if err := client.RemoteRequest(ctx, code); err != nil {
		if errors.Is(err, errUnauthorized) {
			return br.rejectPSK(p)
		}
		return device.Failure("Sony command failed: %s", transport.NormalizeError(err))
	}
	return device.Success("%s sent to %s", cmd, p.DisplayName())
}

// codeTable returns the cached table unless force is set; fresh reports a network fetch
func (br *BraviaRemote) codeTable(ctx context.Context, client *BraviaClient, ck string, force bool) ([]RemoteCode, bool, error) {
	if !force {
		if table, ok := br.tables.Get(ck); ok {
			return table, false, nil
		}
		var stored []RemoteCode
		if found, err := credentials.GetJSON(br.creds, credentials.NamespaceSonyCodes, ck, &stored); err == nil && found && len(stored) > 0 {
			br.tables.Add(ck, stored)
			return stored, false, nil
		}
	}

	table, err := client.RemoteControllerInfo(ctx)
	if err != nil {
		return nil, true, err
	}
	br.tables.Add(ck, table)
	if err := credentials.SetJSON(br.creds, credentials.NamespaceSonyCodes, ck, table); err != nil {
		br.logger.Warn().Err(err).Msg("Failed to persist Sony code table")
	}
	return table, true, nil
}

func (br *BraviaRemote) rejectPSK(p device.Profile) device.Result {
	br.forget(p.CredentialKey())
	return device.NeedsPairing(pskRequest(), "%s rejected the pre-shared key", p.DisplayName())
}

func (br *BraviaRemote) forget(ck string) {
	br.tables.Remove(ck)
	for _, ns := range []string{credentials.NamespaceSonyPSK, credentials.NamespaceSonyCodes} {
		if err := br.creds.Delete(ns, ck); err != nil {
			br.logger.Warn().Err(err).Str("namespace", ns).Msg("Failed to clear Sony credential")
		}
	}
}

// CompletePairing validates secret against the TV and stores it as the profile's PSK
func (br *BraviaRemote) CompletePairing(ctx context.Context, p device.Profile, secret string, _ *device.PairingRequest) device.Result {
	if p.Host == "" {
		return device.NoHost(p)
	}
	if secret == "" {
		return device.NeedsPairing(pskRequest(), "a pre-shared key is required")
	}

	ck := p.CredentialKey()
	br.tables.Remove(ck)

	_, _, err := br.codeTable(ctx, br.client(p, secret), ck, true)
	switch {
	case errors.Is(err, errUnauthorized):
		return device.NeedsPairing(pskRequest(), "%s rejected the pre-shared key", p.DisplayName())
	case err != nil:
		return device.Failure("could not verify the pre-shared key: %s", transport.NormalizeError(err))
	}

	if err := br.creds.Set(credentials.NamespaceSonyPSK, ck, secret); err != nil {
		return device.Failure("failed to store the pre-shared key: %v", err)
	}
	return device.Success("paired with %s", p.DisplayName())
}

// Probe asks for interface information, which Bravia TVs serve without a key
func (br *BraviaRemote) Probe(ctx context.Context, host string) bool {
	client := NewBraviaClient(br.probe, transport.HostPort(host, br.cfg.Port, br.cfg.Port), "", br.cfg.ProbeTimeout)
	resp, err := client.ControlRequest(ctx, SystemEndpoint, CreatePayload(1, GetInterfaceInformation, nil))
	return err == nil && len(resp.Result) > 0
}

// FallbackProbe checks the simple IP control port
func (br *BraviaRemote) FallbackProbe(ctx context.Context, host string) bool {
	return transport.PortOpen(ctx, host, br.cfg.SimpleIPPort, br.cfg.ProbeTimeout)
}

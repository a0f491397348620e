package device

import (
	"context"
	"fmt"
	"strings"
)

// Adapter speaks one vendor's control protocol
type Adapter interface {
	// Brand returns the brand this adapter serves
	Brand() Brand

	// Send translates cmd into the vendor wire protocol and reports the outcome.
	// Failures are carried in the Result, never returned as errors.
	Send(ctx context.Context, p Profile, cmd Command) Result

	// Probe is a fast fingerprint check used by routing and discovery
	Probe(ctx context.Context, host string) bool
}

// Pairer is implemented by adapters whose brand needs an out-of-band secret
type Pairer interface {
	CompletePairing(ctx context.Context, p Profile, secret string, req *PairingRequest) Result
}

// FallbackProber is the slower socket-open check applied to explicitly named hosts
type FallbackProber interface {
	FallbackProbe(ctx context.Context, host string) bool
}

// Profile is a saved TV as handed to the core by the profile store
type Profile struct {
	ID       string `json:"id" yaml:"id"`
	Brand    Brand  `json:"brand" yaml:"brand"`
	Nickname string `json:"nickname" yaml:"nickname"`
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
}

// CredentialKey identifies the credential records owned by this profile.
// Any change of host yields a different key.
func (p Profile) CredentialKey() string {
	return p.ID + ":" + p.Host
}

// DisplayName falls back to the host when no nickname was given
func (p Profile) DisplayName() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	if p.Host != "" {
		return p.Host
	}
	return p.ID
}

// Result is the outcome of every adapter call
type Result struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message"`
	Pairing *PairingRequest `json:"pairing,omitempty"`
}

// Success builds an OK result
func Success(format string, args ...interface{}) Result {
	return Result{OK: true, Message: fmt.Sprintf(format, args...)}
}

// Failure builds a failed result
func Failure(format string, args ...interface{}) Result {
	return Result{OK: false, Message: fmt.Sprintf(format, args...)}
}

// NeedsPairing builds a result suspended on a pairing challenge
func NeedsPairing(req *PairingRequest, format string, args ...interface{}) Result {
	return Result{OK: false, Message: fmt.Sprintf(format, args...), Pairing: req}
}

// NotMapped is returned for commands missing from a brand's key map
func NotMapped(cmd Command, brand Brand) Result {
	return Failure("%s is not mapped for %s", cmd, brand)
}

// NoHost is returned when the profile carries no address
func NoHost(p Profile) Result {
	return Failure("no host configured for %s", p.DisplayName())
}

// ChallengeKind distinguishes the secret the user is asked for
type ChallengeKind string

const (
	ChallengePIN ChallengeKind = "pin"
	ChallengePSK ChallengeKind = "psk"
)

// Challenge is the brand-specific state of a suspended pairing
type Challenge struct {
	Kind          ChallengeKind `json:"kind"`
	ChallengeType int           `json:"challengeType,omitempty"`
	PairingToken  int           `json:"pairingToken,omitempty"`
	DeviceID      string        `json:"deviceId,omitempty"`
}

// PairingRequest asks the caller for a PIN or pre-shared key
type PairingRequest struct {
	Brand     Brand     `json:"brand"`
	Challenge Challenge `json:"challenge"`
}

// Prompt is the human text shown when asking for the secret
func (r *PairingRequest) Prompt() string {
	if r == nil {
		return ""
	}
	switch r.Challenge.Kind {
	case ChallengePSK:
		return fmt.Sprintf("Enter the pre-shared key configured on the %s TV", r.Brand.Title())
	default:
		return fmt.Sprintf("Enter the PIN shown on the %s TV", r.Brand.Title())
	}
}

// Source records which discovery path found a device
type Source string

const (
	SourceProbe     Source = "probe"
	SourceFallback  Source = "fallback"
	SourcePortSweep Source = "port-sweep"
	SourceMDNS      Source = "mdns"
	SourceSSDP      Source = "ssdp"
)

// DiscoveredDevice is one scan hit
type DiscoveredDevice struct {
	ID       string `json:"id"`
	Brand    Brand  `json:"brand"`
	Nickname string `json:"nickname"`
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	Source   Source `json:"source"`
}

// Profile converts a discovery hit into a profile ready for dispatch.
// A swept port only says something listens there, so it is not carried over.
func (d DiscoveredDevice) Profile() Profile {
	p := Profile{
		ID:       d.ID,
		Brand:    d.Brand,
		Nickname: d.Nickname,
		Host:     d.Host,
		Port:     d.Port,
	}
	if d.Source == SourcePortSweep {
		p.Port = 0
	}
	return p
}

// IsDigits reports whether s is non-empty and made only of ASCII digits
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) == -1
}

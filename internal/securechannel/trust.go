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

package securechannel

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"net"
	"strings"
)

// Decision is the outcome of a trust evaluation
type Decision struct {
	Accept   bool
	Reason   Reason
	Observed string
}

// Fingerprint returns the lowercase hex SHA-256 of the certificate DER
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

// NormalizeFingerprint lowercases a pin and drops colon or space separators
func NormalizeFingerprint(fp string) string {
	fp = strings.ToLower(strings.TrimSpace(fp))
	return strings.NewReplacer(":", "", " ", "").Replace(fp)
}

// EvaluateTrust decides whether the presented chain may be used.
// With no pin the leaf is accepted and its fingerprint reported for pinning.
func EvaluateTrust(certs []*x509.Certificate, expectedHost, pinned string) Decision {
	if !IsPrivateLANHost(expectedHost) {
		return Decision{Reason: ReasonInvalidHost}
	}
	if len(certs) == 0 || certs[0] == nil {
		return Decision{Reason: ReasonTrustChallengeMissing}
	}

	observed := Fingerprint(certs[0])
	pinned = NormalizeFingerprint(pinned)
	if pinned != "" && pinned != observed {
		return Decision{Reason: ReasonPinMismatch, Observed: observed}
	}
	return Decision{Accept: true, Observed: observed}
}

var privateNets = func() []*net.IPNet {
	cidrs := []string{
		"127.0.0.0/8",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}()

// IsPrivateLANHost accepts loopback, localhost, mDNS names, RFC1918 and link-local addresses
func IsPrivateLANHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	host = strings.Trim(host, "[]")
	if host == "" {
		return false
	}
	if host == "localhost" || strings.HasSuffix(host, ".local") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range privateNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

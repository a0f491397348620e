package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultConcurrency  = 24
	MaxConcurrency      = 64
	DefaultProbeTimeout = 1500 * time.Millisecond
)

// DefaultPrefixes are the common home-router /24 subnets scanned when none
// is configured or detected
var DefaultPrefixes = []string{"192.168.1", "192.168.0", "10.0.0", "10.0.1", "192.168.86", "192.168.68"}

// Options bound one scan
type Options struct {
	// Prefixes are /24 subnets written as "a.b.c"
	Prefixes []string
	// Hosts are explicit IPv4 addresses; they get the slower fallback probes too
	Hosts          []string
	HostRangeStart int
	HostRangeEnd   int
	MaxConcurrency int
	ProbeTimeout   time.Duration
	MDNS           bool
	SSDP           bool
}

func (o Options) concurrency() int {
	switch {
	case o.MaxConcurrency <= 0:
		return DefaultConcurrency
	case o.MaxConcurrency > MaxConcurrency:
		return MaxConcurrency
	default:
		return o.MaxConcurrency
	}
}

func (o Options) probeTimeout() time.Duration {
	if o.ProbeTimeout <= 0 {
		return DefaultProbeTimeout
	}
	return o.ProbeTimeout
}

// hostRange clamps the range to [1,254] and swaps an inverted pair
func (o Options) hostRange() (int, int) {
	start, end := o.HostRangeStart, o.HostRangeEnd
	if start == 0 {
		start = 1
	}
	if end == 0 {
		end = 254
	}
	start, end = clamp(start), clamp(end)
	if start > end {
		start, end = end, start
	}
	return start, end
}

func clamp(n int) int {
	if n < 1 {
		return 1
	}
	if n > 254 {
		return 254
	}
	return n
}

// ValidHost reports whether s is a dotted-quad IPv4 address
func ValidHost(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil && strings.Count(s, ".") == 3
}

// ValidPrefix reports whether s is the first three octets of an IPv4 address
func ValidPrefix(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 || p == "" || (len(p) > 1 && p[0] == '0') {
			return false
		}
	}
	return true
}

// hostList builds the ordered, deduplicated scan list. Explicit hosts come
// first. Prefixes are detected or defaulted only when the caller named
// neither hosts nor prefixes.
func (o Options) hostList(detect func() []string) ([]string, map[string]bool) {
	seen := make(map[string]bool)
	explicit := make(map[string]bool)
	var hosts []string

	for _, h := range o.Hosts {
		h = strings.TrimSpace(h)
		if !ValidHost(h) || seen[h] {
			continue
		}
		seen[h] = true
		explicit[h] = true
		hosts = append(hosts, h)
	}

	var prefixes []string
	for _, p := range o.Prefixes {
		if p = strings.TrimSuffix(strings.TrimSpace(p), "."); ValidPrefix(p) {
			prefixes = append(prefixes, p)
		}
	}
	if len(prefixes) == 0 {
		if len(o.Prefixes) > 0 || len(o.Hosts) > 0 {
			return hosts, explicit
		}
		if detect != nil {
			prefixes = detect()
		}
		if len(prefixes) == 0 {
			prefixes = DefaultPrefixes
		}
	}

	start, end := o.hostRange()
	for _, p := range prefixes {
		for i := start; i <= end; i++ {
			h := fmt.Sprintf("%s.%d", p, i)
			if seen[h] {
				continue
			}
			seen[h] = true
			hosts = append(hosts, h)
		}
	}
	return hosts, explicit
}

// prefixOf returns the /24 prefix of a private IPv4 address
func prefixOf(ip net.IP) (string, bool) {
	v4 := ip.To4()
	if v4 == nil || !v4.IsPrivate() {
		return "", false
	}
	return fmt.Sprintf("%d.%d.%d", v4[0], v4[1], v4[2]), true
}

package discovery

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/alexballas/go-ssdp"

	"telly/internal/device"
	"telly/internal/logger"
)

// BrowseSSDP sends one ssdp:all search and keeps responders that look like TVs
func BrowseSSDP(ctx context.Context, timeout time.Duration) []device.DiscoveredDevice {
	wait := int(timeout / time.Second)
	if wait < 1 {
		wait = 1
	}

	type result struct {
		services []ssdp.Service
		err      error
	}
	ch := make(chan result, 1)
	go func() {
		services, err := ssdp.Search(ssdp.All, wait, "")
		ch <- result{services, err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return nil
	}
	if r.err != nil {
		l := logger.GetLogger("discovery")
		l.Debug().Err(r.err).Msg("SSDP search failed")
		return nil
	}
	return fromServices(r.services)
}

func fromServices(services []ssdp.Service) []device.DiscoveredDevice {
	var found []device.DiscoveredDevice
	seen := make(map[string]bool)
	for _, s := range services {
		host := locationHost(s.Location)
		if host == "" || seen[host] {
			continue
		}
		brand := guessBrand(s.Server, s.Type, s.USN)
		if brand == device.BrandGeneric {
			continue
		}
		seen[host] = true
		found = append(found, newDevice(host, brand, 0, device.SourceSSDP))
	}
	return found
}

func locationHost(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if ip := net.ParseIP(host); ip == nil || ip.To4() == nil {
		return ""
	}
	return host
}

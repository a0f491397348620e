package discovery

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/hashicorp/mdns"

	"telly/internal/device"
	"telly/internal/logger"
)

// services browsed over mDNS and the brand each implies. AirPlay is
// advertised by several vendors, so its brand is read from the TXT record.
var mdnsServices = []struct {
	service string
	brand   device.Brand
}{
	{"_viziocast._tcp", device.BrandVizio},
	{"_amzn-wplay._tcp", device.BrandFireTV},
	{"_androidtvremote2._tcp", device.BrandAndroidTV},
	{"_airplay._tcp", device.BrandGeneric},
}

// BrowseMDNS queries each TV service for up to timeout
func BrowseMDNS(ctx context.Context, timeout time.Duration) []device.DiscoveredDevice {
	var found []device.DiscoveredDevice

	for _, svc := range mdnsServices {
		if ctx.Err() != nil {
			break
		}

		entries := make(chan *mdns.ServiceEntry, 16)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for e := range entries {
				if d, ok := fromServiceEntry(e, svc.brand); ok {
					found = append(found, d)
				}
			}
		}()

		params := mdns.DefaultParams(svc.service)
		params.Entries = entries
		params.Timeout = timeout
		params.DisableIPv6 = true
		params.Logger = stdlog()

		if err := mdns.QueryContext(ctx, params); err != nil {
			l := logger.GetLogger("discovery")
			l.Debug().Err(err).Str("service", svc.service).Msg("mDNS query failed")
		}
		close(entries)
		<-done
	}
	return found
}

func fromServiceEntry(e *mdns.ServiceEntry, brand device.Brand) (device.DiscoveredDevice, bool) {
	if e == nil || e.AddrV4 == nil {
		return device.DiscoveredDevice{}, false
	}
	host := e.AddrV4.String()
	if brand == device.BrandGeneric {
		brand = guessBrand(append([]string{e.Name, e.Host}, e.InfoFields...)...)
	}

	d := newDevice(host, brand, 0, device.SourceMDNS)
	if name := instanceName(e.Name); name != "" {
		d.Nickname = name
	}
	if brand == device.BrandVizio {
		d.Port = e.Port
	}
	return d, true
}

// instanceName strips the service and domain labels from a full instance name
func instanceName(full string) string {
	if i := strings.Index(full, "._"); i > 0 {
		return strings.ReplaceAll(full[:i], `\ `, " ")
	}
	return ""
}

func stdlog() *log.Logger {
	return log.New(io.Discard, "", 0)
}

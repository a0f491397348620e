package bridge

import (
	"context"
	"time"

	"telly/internal/device"
	"telly/internal/transport"
)

// native ports that identify bridge-only brands on explicitly named hosts
var fallbackPorts = map[device.Brand]int{
	device.BrandHisense:   36669,
	device.BrandAndroidTV: 6466,
	device.BrandFireTV:    5555,
}

// Delegate serves a brand whose only control path is the bridge app
type Delegate struct {
	brand        device.Brand
	bridge       *Bridge
	probeTimeout time.Duration
}

// NewDelegate binds brand to b
func NewDelegate(brand device.Brand, b *Bridge) *Delegate {
	return &Delegate{brand: brand, bridge: b, probeTimeout: b.cfg.ProbeTimeout}
}

func (d *Delegate) Brand() device.Brand {
	return d.brand
}

func (d *Delegate) Send(ctx context.Context, p device.Profile, cmd device.Command) device.Result {
	r := d.bridge.Send(ctx, p, cmd)
	if r.OK {
		return r
	}
	return device.Failure("%s control needs the telly bridge app; %s", d.brand.Title(), r.Message)
}

// Probe always misses; these brands expose no fingerprintable endpoint
func (d *Delegate) Probe(ctx context.Context, host string) bool {
	return false
}

func (d *Delegate) FallbackProbe(ctx context.Context, host string) bool {
	port, ok := fallbackPorts[d.brand]
	if !ok {
		return false
	}
	return transport.PortOpen(ctx, host, port, d.probeTimeout)
}

//go:build linux

package discovery

import (
	"net"

	"github.com/vishvananda/netlink"
)

// DetectPrefixes lists the /24 prefixes of private IPv4 addresses on up,
// non-loopback links
func DetectPrefixes() []string {
	links, err := netlink.LinkList()
	if err != nil {
		return detectFromInterfaces()
	}

	var prefixes []string
	seen := make(map[string]bool)
	for _, link := range links {
		attrs := link.Attrs()
		if attrs.Flags&net.FlagUp == 0 || attrs.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if a.IPNet == nil {
				continue
			}
			if p, ok := prefixOf(a.IP); ok && !seen[p] {
				seen[p] = true
				prefixes = append(prefixes, p)
			}
		}
	}
	return prefixes
}

package discovery

import "net"

func detectFromInterfaces() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}

	var prefixes []string
	seen := make(map[string]bool)
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if p, ok := prefixOf(ipnet.IP); ok && !seen[p] {
			seen[p] = true
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}

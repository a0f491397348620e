//go:build !linux

package discovery

// DetectPrefixes lists the /24 prefixes of private IPv4 interface addresses
func DetectPrefixes() []string {
	return detectFromInterfaces()
}

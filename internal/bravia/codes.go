package bravia

import (
	"strings"
)

// matchCode resolves variants against table. Every variant is tried as an exact
// case-insensitive name before any substring match is considered.
func matchCode(table []RemoteCode, variants []string) (BraviaRemoteCode, bool) {
	for _, v := range variants {
		for _, c := range table {
			if strings.EqualFold(c.Name, v) && c.Value != "" {
				return c.Value, true
			}
		}
	}
	for _, v := range variants {
		lv := strings.ToLower(v)
		for _, c := range table {
			if strings.Contains(strings.ToLower(c.Name), lv) && c.Value != "" {
				return c.Value, true
			}
		}
	}
	return "", false
}

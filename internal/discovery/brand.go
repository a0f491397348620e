package discovery

import (
	"strings"

	"telly/internal/device"
)

// vendor markers found in SSDP server headers and mDNS TXT records
var brandMarkers = []struct {
	marker string
	brand  device.Brand
}{
	{"samsung", device.BrandSamsung},
	{"tizen", device.BrandSamsung},
	{"webos", device.BrandLG},
	{"lg electronics", device.BrandLG},
	{"lge", device.BrandLG},
	{"bravia", device.BrandSony},
	{"sony", device.BrandSony},
	{"vizio", device.BrandVizio},
	{"smartcast", device.BrandVizio},
	{"panasonic", device.BrandPanasonic},
	{"viera", device.BrandPanasonic},
	{"roku", device.BrandRoku},
	{"amazon", device.BrandFireTV},
	{"firetv", device.BrandFireTV},
	{"fire tv", device.BrandFireTV},
	{"hisense", device.BrandHisense},
	{"vidaa", device.BrandHisense},
	{"android", device.BrandAndroidTV},
	{"google", device.BrandAndroidTV},
}

// guessBrand returns the first brand whose marker appears in any text
func guessBrand(texts ...string) device.Brand {
	joined := strings.ToLower(strings.Join(texts, " "))
	for _, m := range brandMarkers {
		if strings.Contains(joined, m.marker) {
			return m.brand
		}
	}
	return device.BrandGeneric
}

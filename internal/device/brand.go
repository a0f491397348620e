package device

import (
	"strings"
)

// Brand is the closed set of TV families the core knows about
type Brand string

const (
	BrandSamsung   Brand = "samsung"
	BrandLG        Brand = "lg"
	BrandSony      Brand = "sony"
	BrandVizio     Brand = "vizio"
	BrandPanasonic Brand = "panasonic"
	BrandRoku      Brand = "roku"
	BrandFireTV    Brand = "firetv"
	BrandAndroidTV Brand = "androidtv"
	BrandHisense   Brand = "hisense"
	BrandGeneric   Brand = "generic"
)

var allBrands = []Brand{
	BrandSamsung,
	BrandLG,
	BrandSony,
	BrandVizio,
	BrandPanasonic,
	BrandRoku,
	BrandFireTV,
	BrandAndroidTV,
	BrandHisense,
	BrandGeneric,
}

var brandTitles = map[Brand]string{
	BrandSamsung:   "Samsung",
	BrandLG:        "LG",
	BrandSony:      "Sony",
	BrandVizio:     "Vizio",
	BrandPanasonic: "Panasonic",
	BrandRoku:      "Roku",
	BrandFireTV:    "Fire TV",
	BrandAndroidTV: "Android TV",
	BrandHisense:   "Hisense",
	BrandGeneric:   "Generic",
}

// Brands returns every known brand
func Brands() []Brand {
	out := make([]Brand, len(allBrands))
	copy(out, allBrands)
	return out
}

// ParseBrand maps free text to a brand. Unknown values become BrandGeneric.
func ParseBrand(s string) Brand {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(norm)

	switch norm {
	case "samsung", "tizen":
		return BrandSamsung
	case "lg", "webos":
		return BrandLG
	case "sony", "bravia":
		return BrandSony
	case "vizio", "smartcast":
		return BrandVizio
	case "panasonic", "viera":
		return BrandPanasonic
	case "roku":
		return BrandRoku
	case "firetv", "amazon", "firestick":
		return BrandFireTV
	case "androidtv", "googletv", "android":
		return BrandAndroidTV
	case "hisense", "vidaa":
		return BrandHisense
	default:
		return BrandGeneric
	}
}

// Valid reports whether b is one of the known brands
func (b Brand) Valid() bool {
	_, ok := brandTitles[b]
	return ok
}

// Title is the display name of the brand
func (b Brand) Title() string {
	if t, ok := brandTitles[b]; ok {
		return t
	}
	return string(b)
}

func (b Brand) String() string {
	return string(b)
}

// UnmarshalText normalizes brand names read from YAML or JSON
func (b *Brand) UnmarshalText(text []byte) error {
	*b = ParseBrand(string(text))
	return nil
}

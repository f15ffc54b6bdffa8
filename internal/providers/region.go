package providers

import "strings"

// RegionMeta holds the search localisation for a region code.
type RegionMeta struct {
	GoogleDomain string
	Location     string
	Lang         string
}

// DefaultRegion is used for unknown region codes.
const DefaultRegion = "us"

var regions = map[string]RegionMeta{
	"us": {GoogleDomain: "google.com", Location: "United States", Lang: "en"},
	"gb": {GoogleDomain: "google.co.uk", Location: "United Kingdom", Lang: "en"},
	"de": {GoogleDomain: "google.de", Location: "Germany", Lang: "de"},
	"fr": {GoogleDomain: "google.fr", Location: "France", Lang: "fr"},
	"es": {GoogleDomain: "google.es", Location: "Spain", Lang: "es"},
	"in": {GoogleDomain: "google.co.in", Location: "India", Lang: "en"},
}

// LookupRegion returns the metadata for code, falling back to DefaultRegion.
func LookupRegion(code string) RegionMeta {
	if meta, ok := regions[strings.ToLower(code)]; ok {
		return meta
	}
	return regions[DefaultRegion]
}

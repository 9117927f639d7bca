package domain

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// coordinatePairRe matches a literal "lat,lon" location, e.g. "52.52,13.405".
	coordinatePairRe = regexp.MustCompile(`^(-?\d+\.?\d*),(-?\d+\.?\d*)$`)

	// apiKeyRe matches the 32-character alphanumeric OpenWeather key format.
	apiKeyRe = regexp.MustCompile(`^[a-zA-Z0-9]{32}$`)

	languageRe = regexp.MustCompile(`^[a-z]{2}$`)
)

// DefaultLanguage is used when no valid language code is configured.
const DefaultLanguage = "de"

// ParseCoordinates parses a literal "lat,lon" location. The bool is false when
// the input is not a coordinate pair, in which case it should be geocoded.
// Ranges are not checked; the upstream API decides validity.
func ParseCoordinates(location string) (Coordinates, bool) {
	m := coordinatePairRe.FindStringSubmatch(strings.TrimSpace(location))
	if len(m) != 3 {
		return Coordinates{}, false
	}
	lat, errLat := strconv.ParseFloat(m[1], 64)
	lon, errLon := strconv.ParseFloat(m[2], 64)
	if errLat != nil || errLon != nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lon: lon}, true
}

// LooksLikeAPIKey reports whether key has the usual OpenWeather key shape.
// Keys of other shapes are still sent upstream; this only feeds a startup warning.
func LooksLikeAPIKey(key string) bool {
	return apiKeyRe.MatchString(key)
}

// NormalizeLanguage lower-cases a 2-letter language code, falling back to DefaultLanguage.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if !languageRe.MatchString(lang) {
		return DefaultLanguage
	}
	return lang
}

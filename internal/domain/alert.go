package domain

// Severity tiers, highest first.
const (
	SeverityExtreme  = "extreme"
	SeveritySevere   = "severe"
	SeverityModerate = "moderate"
	SeverityMinor    = "minor"
)

// Urgency levels derived from the time until onset.
const (
	UrgencyImmediate = "immediate"
	UrgencyExpected  = "expected"
	UrgencyFuture    = "future"
)

// Certainty qualifiers.
const (
	CertaintyObserved = "observed"
	CertaintyLikely   = "likely"
	CertaintyPossible = "possible"
	CertaintyUnlikely = "unlikely"
)

// Unknown is the normalizer's fallback for any unrecognized classification value.
const Unknown = "unknown"

// Display levels consumed by the rendering layer.
const (
	LevelDanger  = "danger"
	LevelWarning = "warning"
	LevelInfo    = "info"
	LevelSuccess = "success"
)

// Defaults applied when upstream omits a field.
const (
	DefaultEvent  = "Weather Alert"
	DefaultSender = "Unknown"
)

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RawAlert is a single alert record as returned by the upstream One Call API.
// Every field is optional; pointers distinguish "absent" from "empty".
type RawAlert struct {
	SenderName  *string  `json:"sender_name,omitempty"`
	Event       *string  `json:"event,omitempty"`
	Start       *int64   `json:"start,omitempty"`
	End         *int64   `json:"end,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Severity    *string  `json:"severity,omitempty"`
	Urgency     *string  `json:"urgency,omitempty"`
	Certainty   *string  `json:"certainty,omitempty"`
}

// Classification holds the inferred or upstream-supplied impact qualifiers of an alert.
type Classification struct {
	Severity  string `json:"severity"`
	Urgency   string `json:"urgency"`
	Certainty string `json:"certainty"`
}

// Alert is the normalized, display-ready representation of a RawAlert.
type Alert struct {
	ID          string   `json:"id"`
	Event       string   `json:"event"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Level       string   `json:"level"`
	Urgency     string   `json:"urgency"`
	Certainty   string   `json:"certainty"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	StartUnix   int64    `json:"start_unix"`
	EndUnix     int64    `json:"end_unix"`
	Tags        []string `json:"tags"`
	Sender      string   `json:"sender"`
}

// Place is a single geocoding match.
type Place struct {
	Name    string  `json:"name"`
	Country string  `json:"country,omitempty"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Coordinates returns the place's position.
func (p Place) Coordinates() Coordinates {
	return Coordinates{Lat: p.Lat, Lon: p.Lon}
}

// SeverityWeight ranks a severity tier: extreme=4, severe=3, moderate=2, minor=1, anything else 0.
func SeverityWeight(severity string) int {
	switch severity {
	case SeverityExtreme:
		return 4
	case SeveritySevere:
		return 3
	case SeverityModerate:
		return 2
	case SeverityMinor:
		return 1
	default:
		return 0
	}
}

// SeverityLevel maps a severity tier to its display level.
func SeverityLevel(severity string) string {
	switch severity {
	case SeverityExtreme:
		return LevelDanger
	case SeveritySevere:
		return LevelWarning
	case SeverityModerate:
		return LevelInfo
	case SeverityMinor:
		return LevelSuccess
	default:
		return LevelInfo
	}
}

// Package domain models severe-weather alerts as delivered by the OpenWeather
// One Call API and the rules that turn them into a display-ready list.
//
// # Data Source
//
// Alerts come from the "alerts" section of a One Call response for a single
// coordinate pair. The section is absent when nothing is active, which is the
// common case and not an error. Each alert may carry any subset of:
//
//	sender_name, event, start, end, description, tags,
//	severity, urgency, certainty
//
// start and end are Unix epoch seconds. Older API versions never send
// severity, urgency, or certainty; newer ones sometimes do.
//
// # Classification
//
// When qualifiers are missing they are inferred from the alert text. Keyword
// groups are checked in order against event and description, case-insensitive,
// and the first group with a hit wins:
//
//	extreme:  "extreme", "life-threatening", "catastrophic"
//	severe:   "severe", "warning", "dangerous"
//	moderate: "moderate", "watch"
//	minor:    everything else
//
// Urgency comes from the seconds until onset (start - now):
//
//	<= 1h immediate | <= 4h expected | otherwise future
//
// Certainty is read from the description only:
//
//	"observed"/"confirmed" observed | "likely" likely | "possible" possible | otherwise unlikely
//
// [StrategyUpstream] keeps upstream qualifiers that are in vocabulary and
// infers the rest; [StrategyInfer] always infers.
//
// # Display Levels
//
//	extreme -> danger | severe -> warning | moderate -> info | minor -> success | other -> info
//
// # ID Generation
//
// Alert IDs are the first 8 bytes of SHA-256(event|start|description), hex
// encoded. Identical upstream content yields identical IDs across refetches,
// which lets downstream consumers deduplicate. See [fingerprint].
package domain

package domain

import "slices"

// Rank orders alerts by descending severity weight and keeps the first limit.
// Equal weights keep their upstream order. When limit <= 0 or there are no more
// than limit alerts, the input is returned unchanged, unsorted.
func Rank(alerts []Alert, limit int) []Alert {
	if limit <= 0 || len(alerts) <= limit {
		return alerts
	}
	sorted := slices.Clone(alerts)
	slices.SortStableFunc(sorted, func(a, b Alert) int {
		return SeverityWeight(b.Severity) - SeverityWeight(a.Severity)
	})
	return sorted[:limit]
}

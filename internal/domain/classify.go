package domain

import (
	"fmt"
	"strings"
)

// Strategy selects how classification treats qualifiers supplied by upstream.
type Strategy string

const (
	// StrategyUpstream keeps each upstream qualifier that is present and in
	// vocabulary, and infers only the missing or unrecognized ones.
	StrategyUpstream Strategy = "upstream"
	// StrategyInfer ignores upstream qualifiers and always applies the keyword heuristics.
	StrategyInfer Strategy = "infer"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyUpstream:
		return StrategyUpstream, nil
	case StrategyInfer:
		return StrategyInfer, nil
	default:
		return "", fmt.Errorf("unknown severity strategy %q", s)
	}
}

// Urgency thresholds in seconds until onset.
const (
	immediateWindow = 3600
	expectedWindow  = 14400
)

// Keyword groups, checked in order; the first group with a hit wins.
var severityKeywords = []struct {
	severity string
	words    []string
}{
	{SeverityExtreme, []string{"extreme", "life-threatening", "catastrophic"}},
	{SeveritySevere, []string{"severe", "warning", "dangerous"}},
	{SeverityModerate, []string{"moderate", "watch"}},
}

var certaintyKeywords = []struct {
	certainty string
	words     []string
}{
	{CertaintyObserved, []string{"observed", "confirmed"}},
	{CertaintyLikely, []string{"likely"}},
	{CertaintyPossible, []string{"possible"}},
}

// Classify infers severity, urgency, and certainty from an alert's text and start time.
// It is total: every input, including an alert with no fields, yields a value from each vocabulary.
func Classify(raw RawAlert) Classification {
	return Classification{
		Severity:  inferSeverity(raw),
		Urgency:   inferUrgency(raw),
		Certainty: inferCertainty(raw),
	}
}

// ClassifyWith applies the given strategy. Unknown strategies behave like StrategyInfer.
func ClassifyWith(strategy Strategy, raw RawAlert) Classification {
	inferred := Classify(raw)
	if strategy != StrategyUpstream {
		return inferred
	}
	if v, ok := upstreamValue(raw.Severity, SeverityExtreme, SeveritySevere, SeverityModerate, SeverityMinor); ok {
		inferred.Severity = v
	}
	if v, ok := upstreamValue(raw.Urgency, UrgencyImmediate, UrgencyExpected, UrgencyFuture); ok {
		inferred.Urgency = v
	}
	if v, ok := upstreamValue(raw.Certainty, CertaintyObserved, CertaintyLikely, CertaintyPossible, CertaintyUnlikely); ok {
		inferred.Certainty = v
	}
	return inferred
}

// ClassifyAll classifies each alert in order.
func ClassifyAll(strategy Strategy, raws []RawAlert) []Classification {
	out := make([]Classification, len(raws))
	for i, raw := range raws {
		out[i] = ClassifyWith(strategy, raw)
	}
	return out
}

func inferSeverity(raw RawAlert) string {
	text := strings.ToLower(deref(raw.Event) + "\n" + deref(raw.Description))
	for _, group := range severityKeywords {
		if containsAny(text, group.words) {
			return group.severity
		}
	}
	return SeverityMinor
}

func inferUrgency(raw RawAlert) string {
	now := nowUnix()
	start := now
	if raw.Start != nil {
		start = *raw.Start
	}
	switch diff := start - now; {
	case diff <= immediateWindow:
		return UrgencyImmediate
	case diff <= expectedWindow:
		return UrgencyExpected
	default:
		return UrgencyFuture
	}
}

func inferCertainty(raw RawAlert) string {
	text := strings.ToLower(deref(raw.Description))
	for _, group := range certaintyKeywords {
		if containsAny(text, group.words) {
			return group.certainty
		}
	}
	return CertaintyUnlikely
}

func upstreamValue(v *string, allowed ...string) (string, bool) {
	if v == nil {
		return "", false
	}
	s := strings.ToLower(strings.TrimSpace(*v))
	for _, a := range allowed {
		if s == a {
			return s, true
		}
	}
	return "", false
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

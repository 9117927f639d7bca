package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// DefaultTimeLayout renders display timestamps as day.month.year hour:minute.
const DefaultTimeLayout = "02.01.2006 15:04"

// TimeFormat controls how epoch timestamps are rendered for display.
type TimeFormat struct {
	Layout   string
	Location *time.Location
}

func (f TimeFormat) format(epoch int64) string {
	layout := f.Layout
	if layout == "" {
		layout = DefaultTimeLayout
	}
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(epoch, 0).In(loc).Format(layout)
}

// Normalize maps raw alerts and their classifications into Alerts. It never
// drops a record: the output has exactly one Alert per RawAlert, in input order.
// A missing classification entry leaves severity, urgency, and certainty "unknown".
func Normalize(raws []RawAlert, classifications []Classification, f TimeFormat) []Alert {
	out := make([]Alert, len(raws))
	for i, raw := range raws {
		var c Classification
		if i < len(classifications) {
			c = classifications[i]
		}
		out[i] = normalizeOne(raw, c, f)
	}
	return out
}

func normalizeOne(raw RawAlert, c Classification, f TimeFormat) Alert {
	now := nowUnix()

	event := DefaultEvent
	if raw.Event != nil && *raw.Event != "" {
		event = *raw.Event
	}
	sender := DefaultSender
	if raw.SenderName != nil && *raw.SenderName != "" {
		sender = *raw.SenderName
	}
	start := now
	if raw.Start != nil {
		start = *raw.Start
	}
	end := now
	if raw.End != nil {
		end = *raw.End
	}
	tags := make([]string, len(raw.Tags))
	copy(tags, raw.Tags)

	severity := vocabularyOrUnknown(c.Severity, SeverityExtreme, SeveritySevere, SeverityModerate, SeverityMinor)

	return Alert{
		ID:          fingerprint(event, raw.Start, deref(raw.Description)),
		Event:       event,
		Description: deref(raw.Description),
		Severity:    severity,
		Level:       SeverityLevel(severity),
		Urgency:     vocabularyOrUnknown(c.Urgency, UrgencyImmediate, UrgencyExpected, UrgencyFuture),
		Certainty:   vocabularyOrUnknown(c.Certainty, CertaintyObserved, CertaintyLikely, CertaintyPossible, CertaintyUnlikely),
		Start:       f.format(start),
		End:         f.format(end),
		StartUnix:   start,
		EndUnix:     end,
		Tags:        tags,
		Sender:      sender,
	}
}

// fingerprint produces a deterministic ID from the alert's content so the same
// upstream alert keeps its ID across refetches. A missing start contributes an
// empty component rather than "now", which would change on every fetch.
func fingerprint(event string, start *int64, description string) string {
	startStr := ""
	if start != nil {
		startStr = strconv.FormatInt(*start, 10)
	}
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", event, startStr, description)))
	return hex.EncodeToString(hash[:8])
}

func vocabularyOrUnknown(v string, allowed ...string) string {
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return Unknown
}

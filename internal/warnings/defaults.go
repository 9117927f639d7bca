package warnings

import (
	"context"
	"strings"
)

// Defaults is the configured request; callers override individual fields.
type Defaults Request

// Apply fills the empty fields of an override from the defaults. A nil limit
// keeps the configured MaxWarnings so an explicit 0 ("no limit") survives.
func (d Defaults) Apply(location string, limit *int, lang string) Request {
	req := Request(d)
	if l := strings.TrimSpace(location); l != "" {
		req.Location = l
	}
	if limit != nil {
		req.MaxWarnings = *limit
	}
	if l := strings.TrimSpace(lang); l != "" {
		req.Language = l
	}
	return req
}

// CheckReadiness reports whether a credential and a default location are configured.
func (d Defaults) CheckReadiness(_ context.Context) error {
	return Validate(Request(d))
}

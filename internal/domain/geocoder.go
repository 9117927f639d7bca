package domain

import "context"

// Geocoder resolves place names to coordinates and back. credential is the
// upstream API key scoping the call.
type Geocoder interface {
	// Geocode returns up to limit places matching a free-form query.
	Geocode(ctx context.Context, credential, query string, limit int) ([]Place, error)

	// ReverseGeocode returns up to limit places near the given coordinates.
	ReverseGeocode(ctx context.Context, credential string, c Coordinates, limit int) ([]Place, error)
}

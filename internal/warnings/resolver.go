package warnings

import (
	"context"
	"strings"

	"github.com/couchcryptid/weather-warnings-service/internal/domain"
)

// Place search limits for autocomplete.
const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 10
)

// Resolver turns configured locations into coordinates.
type Resolver struct {
	geocoder domain.Geocoder
}

// NewResolver creates a resolver backed by geocoder.
func NewResolver(geocoder domain.Geocoder) *Resolver {
	return &Resolver{geocoder: geocoder}
}

// Resolve returns the coordinates for location. A literal "lat,lon" pair is
// parsed without a network call; anything else costs exactly one geocoding
// request for a single result.
func (r *Resolver) Resolve(ctx context.Context, credential, location string) (domain.Coordinates, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return domain.Coordinates{}, domain.NewError(domain.KindValidation, "resolve", "location is empty", nil)
	}
	if c, ok := domain.ParseCoordinates(location); ok {
		return c, nil
	}

	places, err := r.geocoder.Geocode(ctx, credential, location, 1)
	if err != nil {
		return domain.Coordinates{}, err
	}
	if len(places) == 0 {
		return domain.Coordinates{}, domain.NewError(domain.KindNotFound, "resolve",
			"no geocoding match for "+location, nil)
	}
	return places[0].Coordinates(), nil
}

// Search returns up to limit places matching query, for location autocomplete.
// limit is clamped to [1, MaxSearchLimit]; values <= 0 use DefaultSearchLimit.
func (r *Resolver) Search(ctx context.Context, credential, query string, limit int) ([]domain.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewError(domain.KindValidation, "search", "query is empty", nil)
	}
	return r.geocoder.Geocode(ctx, credential, query, clampLimit(limit))
}

// Describe returns the place nearest to c.
func (r *Resolver) Describe(ctx context.Context, credential string, c domain.Coordinates) (domain.Place, error) {
	places, err := r.geocoder.ReverseGeocode(ctx, credential, c, 1)
	if err != nil {
		return domain.Place{}, err
	}
	if len(places) == 0 {
		return domain.Place{}, domain.NewError(domain.KindNotFound, "describe", "no place near coordinates", nil)
	}
	return places[0], nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	default:
		return limit
	}
}

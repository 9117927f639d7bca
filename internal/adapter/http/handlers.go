package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/weather-warnings-service/internal/domain"
	"github.com/couchcryptid/weather-warnings-service/internal/warnings"
)

type warningsResponse struct {
	Location string `json:"location"`
	warnings.Result
}

// handleWarnings always answers 200 once the query parses: configuration
// defects travel in the "error" field and upstream failures as an empty list.
func (s *Server) handleWarnings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var limit *int
	if v := q.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "max must be a non-negative integer"})
			return
		}
		limit = &n
	}

	req := s.defaults.Apply(q.Get("location"), limit, q.Get("lang"))
	res := s.service.Warnings(r.Context(), req)
	writeJSON(w, http.StatusOK, warningsResponse{Location: req.Location, Result: res})
}

func (s *Server) handlePlaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "q is required"})
		return
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be an integer"})
			return
		}
		limit = n
	}

	if !s.hasCredential(w) {
		return
	}
	places, err := s.places.Search(r.Context(), s.defaults.Credential, query, limit)
	if err != nil {
		s.writeLookupError(w, r, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, places)
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "lat and lon must be valid coordinates"})
		return
	}

	if !s.hasCredential(w) {
		return
	}
	place, err := s.places.Describe(r.Context(), s.defaults.Credential, domain.Coordinates{Lat: lat, Lon: lon})
	if err != nil {
		s.writeLookupError(w, r, "reverse", err)
		return
	}
	writeJSON(w, http.StatusOK, place)
}

func (s *Server) hasCredential(w http.ResponseWriter) bool {
	if strings.TrimSpace(s.defaults.Credential) == "" {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no OpenWeather API key configured"})
		return false
	}
	return true
}

func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case domain.KindNotFound:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no matching place"})
	default:
		s.logger.Error("place lookup failed", "op", op, "request_id", RequestIDFromContext(r.Context()), "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "geocoding unavailable"})
	}
}

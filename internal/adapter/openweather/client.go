// Package openweather talks to the OpenWeather One Call and Geocoding APIs.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-warnings-service/internal/domain"
	"github.com/couchcryptid/weather-warnings-service/internal/observability"
)

// Defaults for Options fields left empty.
const (
	DefaultBaseURL    = "https://api.openweathermap.org"
	DefaultGeoBaseURL = "https://api.openweathermap.org"
	DefaultUnits      = "metric"
	DefaultUserAgent  = "weather-warnings-service/1.0"
	DefaultTimeout    = 10 * time.Second
)

// Sections of the One Call payload the service never reads.
const excludeSections = "minutely,hourly,daily"

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	BaseURL    string
	GeoBaseURL string
	Units      string
	UserAgent  string
	Timeout    time.Duration
}

// Client fetches weather alerts and implements domain.Geocoder.
// It returns classified *domain.Error values and leaves logging of failures to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	geoBaseURL string
	units      string
	userAgent  string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeather client.
func NewClient(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.GeoBaseURL == "" {
		opts.GeoBaseURL = DefaultGeoBaseURL
	}
	if opts.Units == "" {
		opts.Units = DefaultUnits
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		geoBaseURL: strings.TrimRight(opts.GeoBaseURL, "/"),
		units:      opts.Units,
		userAgent:  opts.UserAgent,
		metrics:    metrics,
		logger:     logger.With("component", "openweather"),
	}
}

// FetchAlerts returns the active alerts for a coordinate pair. No "alerts"
// section in the response means nothing is active and yields an empty slice.
func (c *Client) FetchAlerts(ctx context.Context, credential string, coords domain.Coordinates, lang string) ([]domain.RawAlert, error) {
	params := url.Values{
		"lat":     {formatCoord(coords.Lat)},
		"lon":     {formatCoord(coords.Lon)},
		"appid":   {credential},
		"lang":    {lang},
		"units":   {c.units},
		"exclude": {excludeSections},
	}

	var resp oneCallResponse
	if err := c.getJSON(ctx, "alerts", c.baseURL+"/data/3.0/onecall?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if code, ok := resp.Cod.failure(); ok {
		return nil, domain.NewError(domain.KindParse, "fetch_alerts", "upstream reported an error",
			&domain.APIError{StatusCode: http.StatusOK, Code: code, Message: resp.Message})
	}
	if resp.Alerts == nil {
		return []domain.RawAlert{}, nil
	}
	return resp.Alerts, nil
}

// Geocode looks up places by name via the direct geocoding endpoint.
func (c *Client) Geocode(ctx context.Context, credential, query string, limit int) ([]domain.Place, error) {
	params := url.Values{
		"q":     {query},
		"limit": {strconv.Itoa(limit)},
		"appid": {credential},
	}
	var places []geoPlace
	if err := c.getJSON(ctx, "geocode", c.geoBaseURL+"/geo/1.0/direct?"+params.Encode(), &places); err != nil {
		return nil, err
	}
	return toPlaces(places), nil
}

// ReverseGeocode looks up places near a coordinate pair.
func (c *Client) ReverseGeocode(ctx context.Context, credential string, coords domain.Coordinates, limit int) ([]domain.Place, error) {
	params := url.Values{
		"lat":   {formatCoord(coords.Lat)},
		"lon":   {formatCoord(coords.Lon)},
		"limit": {strconv.Itoa(limit)},
		"appid": {credential},
	}
	var places []geoPlace
	if err := c.getJSON(ctx, "reverse", c.geoBaseURL+"/geo/1.0/reverse?"+params.Encode(), &places); err != nil {
		return nil, err
	}
	return toPlaces(places), nil
}

// getJSON performs a GET and decodes a 200 response into out. endpoint labels
// metrics and names the failing operation. The URL carries the API key and is never logged.
func (c *Client) getJSON(ctx context.Context, endpoint, fullURL string, out any) error {
	op := opName(endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.NewError(domain.KindTransport, op, "create request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return domain.NewError(domain.KindTransport, op, "request failed", redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.NewError(domain.KindTransport, op,
			fmt.Sprintf("upstream returned status %d", resp.StatusCode), apiErrorFromBody(resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return domain.NewError(domain.KindParse, op, "decode response", err)
	}

	c.metrics.UpstreamRequests.WithLabelValues(endpoint, "success").Inc()
	c.logger.Debug("upstream request complete", "endpoint", endpoint, "duration", time.Since(start))
	return nil
}

func opName(endpoint string) string {
	switch endpoint {
	case "alerts":
		return "fetch_alerts"
	case "reverse":
		return "reverse_geocode"
	default:
		return endpoint
	}
}

// apiErrorFromBody extracts the upstream message from an error body, which is
// usually {"cod":..., "message":...} but may be plain text.
func apiErrorFromBody(status int, body []byte) *domain.APIError {
	apiErr := &domain.APIError{StatusCode: status}
	var payload struct {
		Cod     code   `json:"cod"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		apiErr.Code = payload.Cod.String()
		apiErr.Message = payload.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// redact strips the request URL, which contains the API key, from a transport error.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toPlaces(in []geoPlace) []domain.Place {
	out := make([]domain.Place, 0, len(in))
	for _, p := range in {
		out = append(out, domain.Place{
			Name:    p.Name,
			Country: p.Country,
			State:   p.State,
			Lat:     p.Lat,
			Lon:     p.Lon,
		})
	}
	return out
}

// OpenWeather API response types.

type oneCallResponse struct {
	Cod     code              `json:"cod"`
	Message string            `json:"message"`
	Alerts  []domain.RawAlert `json:"alerts"`
}

type geoPlace struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

// code is the "cod" field, which upstream sends as either a number or a string.
type code string

func (c *code) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*c = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*c = code(strings.TrimSpace(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = code(n.String())
	return nil
}

func (c code) String() string {
	return string(c)
}

// failure reports whether cod is present and signals something other than success.
func (c code) failure() (string, bool) {
	if c == "" || c == "200" {
		return "", false
	}
	return string(c), true
}

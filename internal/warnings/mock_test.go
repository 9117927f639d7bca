package warnings

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/couchcryptid/weather-warnings-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- recording log handler ---

type recordingHandler struct {
	mu      *sync.Mutex
	records *[]slog.Record
	attrs   []slog.Attr
}

func newRecordingLogger() (*slog.Logger, *recordingHandler) {
	h := &recordingHandler{mu: &sync.Mutex{}, records: &[]slog.Record{}}
	return slog.New(h), h
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	r = r.Clone()
	r.AddAttrs(h.attrs...)
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{mu: h.mu, records: h.records, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func (h *recordingHandler) all() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]slog.Record(nil), *h.records...)
}

func attr(r slog.Record, key string) string {
	var v string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			v = a.Value.String()
			return false
		}
		return true
	})
	return v
}

// --- mock fetcher ---

type mockFetcher struct {
	mu         sync.Mutex
	calls      int
	lastCoords domain.Coordinates
	lastLang   string
	alerts     []domain.RawAlert
	err        error
}

func (m *mockFetcher) FetchAlerts(_ context.Context, _ string, c domain.Coordinates, lang string) ([]domain.RawAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastCoords = c
	m.lastLang = lang
	return m.alerts, m.err
}

// --- mock geocoder ---

type mockGeocoder struct {
	mu           sync.Mutex
	forwardCalls int
	reverseCalls int
	lastLimit    int
	places       []domain.Place
	err          error
}

func (m *mockGeocoder) Geocode(_ context.Context, _, _ string, limit int) ([]domain.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forwardCalls++
	m.lastLimit = limit
	return m.places, m.err
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _ string, _ domain.Coordinates, limit int) ([]domain.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reverseCalls++
	m.lastLimit = limit
	return m.places, m.err
}

// --- mock sink ---

type mockSink struct {
	mu       sync.Mutex
	calls    int
	location string
	alerts   []domain.Alert
	err      error
	// block, when set, holds Publish until it is closed or ctx ends.
	block chan struct{}
}

func (m *mockSink) Publish(ctx context.Context, location string, alerts []domain.Alert) error {
	m.mu.Lock()
	m.calls++
	m.location = location
	m.alerts = alerts
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func (m *mockSink) snapshot() (int, string, []domain.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls, m.location, m.alerts
}

// --- fixtures ---

func ptr[T any](v T) *T { return &v }

func rawAlert(event, description string, start int64) domain.RawAlert {
	return domain.RawAlert{
		SenderName:  ptr("Deutscher Wetterdienst"),
		Event:       ptr(event),
		Start:       ptr(start),
		End:         ptr(start + 3600),
		Description: ptr(description),
		Tags:        []string{"Wind"},
	}
}

var sampleRaws = []domain.RawAlert{
	rawAlert("Frost", "light frost", 1748786400),
	rawAlert("Extreme heat", "life-threatening temperatures", 1748786400),
	rawAlert("Thunderstorm watch", "storms possible", 1748790000),
	rawAlert("Severe wind warning", "gusts observed", 1748786400),
	rawAlert("Extreme rain", "catastrophic flooding likely", 1748793600),
}

package warnings

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-warnings-service/internal/adapter/memcache"
	"github.com/couchcryptid/weather-warnings-service/internal/adapter/openweather"
	"github.com/couchcryptid/weather-warnings-service/internal/cache"
	"github.com/couchcryptid/weather-warnings-service/internal/domain"
	"github.com/couchcryptid/weather-warnings-service/internal/observability"
)

const testKey = "0123456789abcdef0123456789abcdef"

type fixture struct {
	svc      *Service
	fetcher  *mockFetcher
	geocoder *mockGeocoder
	logs     *recordingHandler
	metrics  *observability.Metrics
}

func newFixture(t *testing.T, fetcher AlertFetcher, opts Options) *fixture {
	t.Helper()
	logger, logs := newRecordingLogger()
	metrics := observability.NewMetricsForTesting()
	geocoder := &mockGeocoder{places: []domain.Place{{Name: "Berlin", Country: "DE", Lat: 52.52, Lon: 13.405}}}
	gateway := cache.NewGateway(memcache.NewStore(16, nil), discardLogger(), metrics)

	f := &fixture{geocoder: geocoder, logs: logs, metrics: metrics}
	if mf, ok := fetcher.(*mockFetcher); ok {
		f.fetcher = mf
	}
	f.svc = NewService(NewResolver(geocoder), fetcher, gateway, opts, logger, metrics)
	return f
}

func baseRequest() Request {
	return Request{
		Credential:           testKey,
		Location:             "Berlin",
		MaxWarnings:          5,
		CacheLifetimeSeconds: 1800,
		Language:             "de",
	}
}

func TestWarnings_Success(t *testing.T) {
	f := newFixture(t, &mockFetcher{alerts: sampleRaws}, Options{Strategy: domain.StrategyInfer})

	req := baseRequest()
	req.MaxWarnings = 4

	res := f.svc.Warnings(context.Background(), req)

	assert.Empty(t, res.Error)
	require.Len(t, res.Alerts, 4)
	assert.Equal(t, "Extreme heat", res.Alerts[0].Event)
	assert.Equal(t, "Extreme rain", res.Alerts[1].Event)
	assert.Equal(t, "Severe wind warning", res.Alerts[2].Event)
	assert.Equal(t, "Thunderstorm watch", res.Alerts[3].Event)
	require.NotNil(t, res.Location)
	assert.Equal(t, domain.Coordinates{Lat: 52.52, Lon: 13.405}, *res.Location)
	assert.Equal(t, "de", f.fetcher.lastLang)
	assert.Empty(t, f.logs.all(), "success path logs nothing")
}

func TestWarnings_Idempotent(t *testing.T) {
	f := newFixture(t, &mockFetcher{alerts: sampleRaws}, Options{})
	ctx := context.Background()

	first := f.svc.Warnings(ctx, baseRequest())
	second := f.svc.Warnings(ctx, baseRequest())

	assert.Equal(t, first.Alerts, second.Alerts)
	assert.Equal(t, 1, f.fetcher.calls, "second call must be served from cache")
	assert.Equal(t, 1, f.geocoder.forwardCalls)
}

func TestWarnings_CacheBypass(t *testing.T) {
	f := newFixture(t, &mockFetcher{alerts: sampleRaws}, Options{})
	req := baseRequest()
	req.CacheLifetimeSeconds = 0

	f.svc.Warnings(context.Background(), req)
	f.svc.Warnings(context.Background(), req)

	assert.Equal(t, 2, f.fetcher.calls)
}

func TestWarnings_CacheStoresFullSet(t *testing.T) {
	f := newFixture(t, &mockFetcher{alerts: sampleRaws}, Options{Strategy: domain.StrategyInfer})
	ctx := context.Background()

	req := baseRequest()
	req.MaxWarnings = 2
	limited := f.svc.Warnings(ctx, req)
	require.Len(t, limited.Alerts, 2)
	assert.Equal(t, domain.SeverityExtreme, limited.Alerts[0].Severity)
	assert.Equal(t, domain.SeverityExtreme, limited.Alerts[1].Severity)
	assert.Equal(t, "Extreme heat", limited.Alerts[0].Event)
	assert.Equal(t, "Extreme rain", limited.Alerts[1].Event)

	req.MaxWarnings = 0
	all := f.svc.Warnings(ctx, req)
	assert.Len(t, all.Alerts, 5)
	assert.Equal(t, "Frost", all.Alerts[0].Event, "no limit returns upstream order")
	assert.Equal(t, 1, f.fetcher.calls)
}

func TestWarnings_CoordinateShortcut(t *testing.T) {
	f := newFixture(t, &mockFetcher{}, Options{})
	req := baseRequest()
	req.Location = "52.52,13.405"

	res := f.svc.Warnings(context.Background(), req)

	assert.Equal(t, 0, f.geocoder.forwardCalls)
	assert.Equal(t, domain.Coordinates{Lat: 52.52, Lon: 13.405}, f.fetcher.lastCoords)
	require.NotNil(t, res.Location)

	// Served from cache, the literal location still yields coordinates.
	res = f.svc.Warnings(context.Background(), req)
	require.NotNil(t, res.Location)
	assert.Equal(t, 1, f.fetcher.calls)
}

func TestWarnings_ConfigurationGuard(t *testing.T) {
	tests := []struct {
		name       string
		credential string
		location   string
	}{
		{"missing credential", "", "Berlin"},
		{"blank credential", "   ", "Berlin"},
		{"missing location", testKey, ""},
		{"blank location", testKey, "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &mockFetcher{alerts: sampleRaws}, Options{})
			req := baseRequest()
			req.Credential = tt.credential
			req.Location = tt.location

			res := f.svc.Warnings(context.Background(), req)

			assert.NotNil(t, res.Alerts)
			assert.Empty(t, res.Alerts)
			assert.NotEmpty(t, res.Error)
			assert.Equal(t, 0, f.fetcher.calls)
			assert.Equal(t, 0, f.geocoder.forwardCalls)
		})
	}
}

func TestWarnings_DegradesOnHTTP500(t *testing.T) {
	var upstreamCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		upstreamCalls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"cod":500,"message":"Internal error"}`))
	}))
	defer srv.Close()

	client := openweather.NewClient(openweather.Options{BaseURL: srv.URL, Timeout: 5 * time.Second},
		discardLogger(), observability.NewMetricsForTesting())
	f := newFixture(t, client, Options{})
	req := baseRequest()
	req.Location = "52.52,13.405"

	res := f.svc.Warnings(context.Background(), req)

	assert.NotNil(t, res.Alerts)
	assert.Empty(t, res.Alerts)
	assert.Empty(t, res.Error, "transport failures are not surfaced")
	assert.Equal(t, 1, upstreamCalls)

	records := f.logs.all()
	require.Len(t, records, 1, "exactly one log entry per degraded request")
	assert.Equal(t, slog.LevelError, records[0].Level)
	assert.Equal(t, "fetch_alerts", attr(records[0], "op"))
	assert.Equal(t, "transport", attr(records[0], "kind"))
	assert.Contains(t, attr(records[0], "error"), "Internal error")
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.DegradedRequests.WithLabelValues("transport")), 0)
}

func TestWarnings_FailedFetchIsNotCached(t *testing.T) {
	fetcher := &mockFetcher{err: domain.NewError(domain.KindTransport, "fetch_alerts", "boom", nil)}
	f := newFixture(t, fetcher, Options{})

	f.svc.Warnings(context.Background(), baseRequest())
	fetcher.err = nil
	fetcher.alerts = sampleRaws
	res := f.svc.Warnings(context.Background(), baseRequest())

	assert.Len(t, res.Alerts, 5)
	assert.Equal(t, 2, fetcher.calls)
}

func TestWarnings_DegradesOnGeocodeNotFound(t *testing.T) {
	f := newFixture(t, &mockFetcher{alerts: sampleRaws}, Options{})
	f.geocoder.places = nil

	res := f.svc.Warnings(context.Background(), baseRequest())

	assert.Empty(t, res.Alerts)
	assert.Empty(t, res.Error)
	assert.Equal(t, 0, f.fetcher.calls)

	records := f.logs.all()
	require.Len(t, records, 1)
	assert.Equal(t, slog.LevelWarn, records[0].Level)
	assert.Equal(t, "not_found", attr(records[0], "kind"))
	assert.Equal(t, "warnings", attr(records[0], "component"))
}

func TestWarnings_DegradesOnParseError(t *testing.T) {
	fetcher := &mockFetcher{err: domain.NewError(domain.KindParse, "fetch_alerts", "decode response", errors.New("unexpected EOF"))}
	f := newFixture(t, fetcher, Options{})

	res := f.svc.Warnings(context.Background(), baseRequest())

	assert.Empty(t, res.Alerts)
	records := f.logs.all()
	require.Len(t, records, 1)
	assert.Equal(t, slog.LevelError, records[0].Level)
	assert.Equal(t, "parse", attr(records[0], "kind"))
}

func TestFetch_ReturnsTypedErrors(t *testing.T) {
	f := newFixture(t, &mockFetcher{}, Options{})
	f.geocoder.places = nil

	_, _, err := f.svc.fetch(context.Background(), baseRequest())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	f.geocoder.err = domain.NewError(domain.KindTransport, "geocode", "request failed", nil)
	_, _, err = f.svc.fetch(context.Background(), baseRequest())
	assert.True(t, domain.IsKind(err, domain.KindTransport))
}

func TestWarnings_LanguageDefaults(t *testing.T) {
	f := newFixture(t, &mockFetcher{}, Options{})
	req := baseRequest()
	req.Language = "deutsch"
	req.CacheLifetimeSeconds = 0

	f.svc.Warnings(context.Background(), req)
	assert.Equal(t, "de", f.fetcher.lastLang)

	req.Language = "EN"
	f.svc.Warnings(context.Background(), req)
	assert.Equal(t, "en", f.fetcher.lastLang)
}

func TestWarnings_UpstreamStrategyKeepsUpstreamSeverity(t *testing.T) {
	raw := rawAlert("Frost", "light frost", 1748786400)
	raw.Severity = ptr("Extreme")

	upstream := newFixture(t, &mockFetcher{alerts: []domain.RawAlert{raw}}, Options{Strategy: domain.StrategyUpstream})
	infer := newFixture(t, &mockFetcher{alerts: []domain.RawAlert{raw}}, Options{Strategy: domain.StrategyInfer})

	assert.Equal(t, domain.SeverityExtreme, upstream.svc.Warnings(context.Background(), baseRequest()).Alerts[0].Severity)
	assert.Equal(t, domain.SeverityMinor, infer.svc.Warnings(context.Background(), baseRequest()).Alerts[0].Severity)
}

func TestWarnings_PublishesFreshSetsOnly(t *testing.T) {
	sink := &mockSink{}
	f := newFixture(t, &mockFetcher{alerts: sampleRaws}, Options{Sink: sink})
	req := baseRequest()
	req.MaxWarnings = 1

	f.svc.Warnings(context.Background(), req)
	f.svc.Warnings(context.Background(), req)
	require.NoError(t, f.svc.Drain(context.Background()))

	calls, location, alerts := sink.snapshot()
	assert.Equal(t, 1, calls, "cache hits are not republished")
	assert.Equal(t, "Berlin", location)
	assert.Len(t, alerts, 5, "the full set is published, not the limited one")
	assert.InDelta(t, 5, testutil.ToFloat64(f.metrics.AlertsPublished), 0)
}

func TestWarnings_SinkFailureDoesNotAffectResult(t *testing.T) {
	sink := &mockSink{err: errors.New("broker down")}
	f := newFixture(t, &mockFetcher{alerts: sampleRaws}, Options{Sink: sink})

	res := f.svc.Warnings(context.Background(), baseRequest())
	require.NoError(t, f.svc.Drain(context.Background()))

	assert.Len(t, res.Alerts, 5)
	assert.Empty(t, res.Error)
	records := f.logs.all()
	require.Len(t, records, 1)
	assert.Equal(t, slog.LevelWarn, records[0].Level)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.PublishErrors), 0)
}

func TestWarnings_EmptySetIsNotPublished(t *testing.T) {
	sink := &mockSink{}
	f := newFixture(t, &mockFetcher{alerts: nil}, Options{Sink: sink})

	res := f.svc.Warnings(context.Background(), baseRequest())

	require.NoError(t, f.svc.Drain(context.Background()))

	assert.NotNil(t, res.Alerts)
	assert.Empty(t, res.Alerts)
	calls, _, _ := sink.snapshot()
	assert.Equal(t, 0, calls)
}

func TestWarnings_StalledSinkDoesNotDelayResult(t *testing.T) {
	sink := &mockSink{block: make(chan struct{})}
	f := newFixture(t, &mockFetcher{alerts: sampleRaws}, Options{Sink: sink, PublishTimeout: 500 * time.Millisecond})

	start := time.Now()
	res := f.svc.Warnings(context.Background(), baseRequest())
	elapsed := time.Since(start)

	assert.Len(t, res.Alerts, 5)
	assert.Less(t, elapsed, 250*time.Millisecond, "result must not wait for the sink")

	require.NoError(t, f.svc.Drain(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.PublishErrors), 0, "publish is cut off by its own timeout")
	assert.InDelta(t, 0, testutil.ToFloat64(f.metrics.AlertsPublished), 0)
}

func TestWarnings_PublishOutlivesRequestContext(t *testing.T) {
	sink := &mockSink{}
	f := newFixture(t, &mockFetcher{alerts: sampleRaws}, Options{Sink: sink})
	ctx, cancel := context.WithCancel(context.Background())

	f.svc.Warnings(ctx, baseRequest())
	cancel()
	require.NoError(t, f.svc.Drain(context.Background()))

	calls, _, _ := sink.snapshot()
	assert.Equal(t, 1, calls)
	assert.InDelta(t, 5, testutil.ToFloat64(f.metrics.AlertsPublished), 0)
}

func TestDrain_HonoursContext(t *testing.T) {
	sink := &mockSink{block: make(chan struct{})}
	f := newFixture(t, &mockFetcher{alerts: sampleRaws}, Options{Sink: sink, PublishTimeout: time.Minute})
	t.Cleanup(func() { close(sink.block) })

	f.svc.Warnings(context.Background(), baseRequest())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.svc.Drain(ctx), context.DeadlineExceeded)
}

func TestWarnings_ConcurrentSameKey(t *testing.T) {
	fetcher := &mockFetcher{alerts: sampleRaws}
	f := newFixture(t, fetcher, Options{Strategy: domain.StrategyInfer})
	req := baseRequest()
	req.MaxWarnings = 3

	const workers = 16
	results := make([]Result, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.svc.Warnings(context.Background(), req)
		}()
	}
	wg.Wait()

	for _, res := range results {
		require.Len(t, res.Alerts, 3)
		assert.Equal(t, domain.SeverityExtreme, res.Alerts[0].Severity)
	}
	fetcher.mu.Lock()
	calls := fetcher.calls
	fetcher.mu.Unlock()
	assert.GreaterOrEqual(t, calls, 1)
	assert.LessOrEqual(t, calls, workers)

	// Once settled, the entry serves everyone.
	f.svc.Warnings(context.Background(), req)
	fetcher.mu.Lock()
	assert.Equal(t, calls, fetcher.calls)
	fetcher.mu.Unlock()
}

func TestDefaults(t *testing.T) {
	d := Defaults(baseRequest())

	req := d.Apply("", nil, "")
	assert.Equal(t, Request(d), req)

	req = d.Apply(" Hamburg ", ptr(0), "en")
	assert.Equal(t, "Hamburg", req.Location)
	assert.Equal(t, 0, req.MaxWarnings)
	assert.Equal(t, "en", req.Language)
	assert.Equal(t, testKey, req.Credential)

	require.NoError(t, d.CheckReadiness(context.Background()))

	d.Credential = ""
	err := d.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConfiguration))
}

// Package warnings orchestrates alert retrieval: it validates a request,
// consults the result cache, resolves the location, fetches and normalizes
// alerts, and ranks the result. Failures other than configuration defects
// degrade to an empty list.
package warnings

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/weather-warnings-service/internal/cache"
	"github.com/couchcryptid/weather-warnings-service/internal/domain"
	"github.com/couchcryptid/weather-warnings-service/internal/observability"
)

// AlertFetcher retrieves the raw alerts active at a coordinate pair.
type AlertFetcher interface {
	FetchAlerts(ctx context.Context, credential string, c domain.Coordinates, lang string) ([]domain.RawAlert, error)
}

// DefaultPublishTimeout bounds a single background publish when Options leaves it unset.
const DefaultPublishTimeout = 5 * time.Second

// AlertSink receives every freshly fetched alert set.
type AlertSink interface {
	Publish(ctx context.Context, location string, alerts []domain.Alert) error
}

// Request is a single warnings lookup.
type Request struct {
	Credential           string
	Location             string
	MaxWarnings          int
	CacheLifetimeSeconds int
	Language             string
}

// Result is what the presentation layer renders. Error is set only for
// configuration defects the operator must fix; Alerts is never nil.
type Result struct {
	Alerts   []domain.Alert      `json:"warnings"`
	Error    string              `json:"error,omitempty"`
	Location *domain.Coordinates `json:"coordinates,omitempty"`
}

// Options tunes classification, display, and publishing.
type Options struct {
	Strategy   domain.Strategy
	TimeFormat domain.TimeFormat
	// Sink is optional. Publishing runs in the background and never delays a result.
	Sink           AlertSink
	PublishTimeout time.Duration
}

// Service runs the warnings pipeline.
type Service struct {
	resolver *Resolver
	fetcher  AlertFetcher
	cache    *cache.Gateway
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics

	publishing sync.WaitGroup
}

// NewService creates a warnings service.
func NewService(resolver *Resolver, fetcher AlertFetcher, gateway *cache.Gateway, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if opts.Strategy == "" {
		opts.Strategy = domain.StrategyUpstream
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultPublishTimeout
	}
	return &Service{
		resolver: resolver,
		fetcher:  fetcher,
		cache:    gateway,
		opts:     opts,
		logger:   logger.With("component", "warnings"),
		metrics:  metrics,
	}
}

// Warnings returns the ranked alerts for req. It never fails: configuration
// defects come back in Result.Error and every other failure is logged once
// and yields an empty list.
func (s *Service) Warnings(ctx context.Context, req Request) Result {
	req.Credential = strings.TrimSpace(req.Credential)
	req.Location = strings.TrimSpace(req.Location)
	req.Language = domain.NormalizeLanguage(req.Language)

	if err := Validate(req); err != nil {
		s.degrade(err)
		var derr *domain.Error
		errors.As(err, &derr)
		return Result{Alerts: []domain.Alert{}, Error: derr.Message}
	}

	key := cache.Key(req.Location, req.Credential)
	if cached, ok := s.cache.Get(ctx, key, req.CacheLifetimeSeconds); ok {
		return s.ok(domain.Rank(cached, req.MaxWarnings), literalCoordinates(req.Location))
	}

	alerts, coords, err := s.fetch(ctx, req)
	if err != nil {
		s.degrade(err)
		return Result{Alerts: []domain.Alert{}}
	}

	s.cache.Put(ctx, key, alerts, req.CacheLifetimeSeconds)
	s.publish(ctx, req.Location, alerts)

	return s.ok(domain.Rank(alerts, req.MaxWarnings), &coords)
}

// fetch resolves the location and turns the upstream alerts into normalized,
// unranked Alerts. Errors carry their domain kind.
func (s *Service) fetch(ctx context.Context, req Request) ([]domain.Alert, domain.Coordinates, error) {
	coords, err := s.resolver.Resolve(ctx, req.Credential, req.Location)
	if err != nil {
		return nil, domain.Coordinates{}, err
	}

	raws, err := s.fetcher.FetchAlerts(ctx, req.Credential, coords, req.Language)
	if err != nil {
		return nil, coords, err
	}

	classifications := domain.ClassifyAll(s.opts.Strategy, raws)
	return domain.Normalize(raws, classifications, s.opts.TimeFormat), coords, nil
}

// Validate checks the fields a request cannot do without.
func Validate(req Request) error {
	if strings.TrimSpace(req.Credential) == "" {
		return domain.NewError(domain.KindConfiguration, "validate", "no OpenWeather API key configured", nil)
	}
	if strings.TrimSpace(req.Location) == "" {
		return domain.NewError(domain.KindConfiguration, "validate", "no location configured", nil)
	}
	return nil
}

func (s *Service) ok(alerts []domain.Alert, coords *domain.Coordinates) Result {
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	s.metrics.Requests.WithLabelValues("ok").Inc()
	s.metrics.WarningsReturned.Observe(float64(len(alerts)))
	return Result{Alerts: alerts, Location: coords}
}

// degrade records a failed request with exactly one log entry.
func (s *Service) degrade(err error) {
	kind := domain.KindOf(err)
	s.metrics.Requests.WithLabelValues("degraded").Inc()
	s.metrics.DegradedRequests.WithLabelValues(kind.String()).Inc()

	op := "warnings"
	var derr *domain.Error
	if errors.As(err, &derr) && derr.Op != "" {
		op = derr.Op
	}

	switch kind {
	case domain.KindConfiguration, domain.KindValidation, domain.KindNotFound:
		s.logger.Warn("warnings unavailable", "op", op, "kind", kind.String(), "error", err)
	default:
		s.logger.Error("warnings unavailable", "op", op, "kind", kind.String(), "error", err)
	}
}

// publish hands a fresh set to the sink without blocking the caller. The
// publish outlives the request context but not PublishTimeout.
func (s *Service) publish(ctx context.Context, location string, alerts []domain.Alert) {
	if s.opts.Sink == nil || len(alerts) == 0 {
		return
	}
	alerts = slices.Clone(alerts)
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PublishTimeout)

	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		defer cancel()
		if err := s.opts.Sink.Publish(pubCtx, location, alerts); err != nil {
			s.metrics.PublishErrors.Inc()
			s.logger.Warn("alert feed publish failed", "location", location, "error", err)
			return
		}
		s.metrics.AlertsPublished.Add(float64(len(alerts)))
	}()
}

// Drain waits for in-flight publishes to finish or ctx to end, whichever
// comes first. Call it before closing the sink.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.publishing.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func literalCoordinates(location string) *domain.Coordinates {
	if c, ok := domain.ParseCoordinates(location); ok {
		return &c
	}
	return nil
}

// Package service provides the scoring and anomaly aggregation engine that
// implements the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/peerscore/internal/adapters/repository"
	"github.com/okian/peerscore/internal/domain/dedupe"
	"github.com/okian/peerscore/internal/domain/stats"
	"github.com/okian/peerscore/pkg/logger"
	"github.com/okian/peerscore/pkg/metrics"
)

const (
	defaultMaxListLimit = 500
	tracerName          = "github.com/okian/peerscore/internal/app"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Service implements the engine on top of a repository.Store.
type Service struct {
	mu sync.RWMutex

	store  repository.Store
	locker *dedupe.Locker

	// Configuration
	thresholds     stats.Thresholds
	strictCriteria bool
	statsWorkers   int
	maxListLimit   int
	now            func() time.Time

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
	tracer trace.Tracer
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithThresholds sets the anomaly thresholds.
func WithThresholds(t stats.Thresholds) Option {
	return func(s *Service) {
		if t.MinSamples >= 0 && t.ZScore > 0 {
			s.thresholds = t
		}
	}
}

// WithStrictCriteria rejects submissions naming unknown criteria instead of
// dropping those scores.
func WithStrictCriteria(strict bool) Option {
	return func(s *Service) {
		s.strictCriteria = strict
	}
}

// WithStatsWorkers bounds how many targets have their anomaly counts
// computed concurrently.
func WithStatsWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.statsWorkers = n
		}
	}
}

// WithMaxListLimit caps the page size of score listings.
func WithMaxListLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxListLimit = n
		}
	}
}

// WithClock sets the time source used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		locker:       dedupe.NewLocker(),
		thresholds:   stats.DefaultThresholds(),
		statsWorkers: runtime.NumCPU(),
		maxListLimit: defaultMaxListLimit,
		now:          func() time.Time { return time.Now().UTC() },
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Thresholds returns the anomaly thresholds in use.
func (s *Service) Thresholds() stats.Thresholds {
	return s.thresholds
}

// Start marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "peerscore service started",
		logger.Int("minSamples", s.thresholds.MinSamples),
		logger.Float64("zScore", s.thresholds.ZScore),
		logger.Bool("strictCriteria", s.strictCriteria),
		logger.Int("statsWorkers", s.statsWorkers),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(context.Background(), "failed to close store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "peerscore service stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[string]interface{}{
		"started":           s.started,
		"anomalyMinSamples": s.thresholds.MinSamples,
		"anomalyZScore":     s.thresholds.ZScore,
		"strictCriteria":    s.strictCriteria,
		"statsWorkers":      s.statsWorkers,
		"pendingSlots":      s.locker.Size(),
	}
	if s.started {
		out["uptimeSeconds"] = s.now().Sub(s.startedAt).Seconds()
		n, err := s.store.CountEvaluations(context.Background())
		if err == nil {
			out["evaluations"] = n
			metrics.UpdateEvaluationsTotal(n)
		}
	}
	return out
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

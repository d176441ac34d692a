// Package service assembles the dashboard view served by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/okian/covidmap/internal/adapters/source"
	"github.com/okian/covidmap/internal/domain/bubblemap"
	"github.com/okian/covidmap/internal/domain/dataset"
	"github.com/okian/covidmap/internal/domain/ranking"
	"github.com/okian/covidmap/internal/domain/totals"
	"github.com/okian/covidmap/pkg/logger"
	"github.com/okian/covidmap/pkg/metrics"
)

// ErrNoFetcher is returned by Dashboard when the service has no report source.
var ErrNoFetcher = errors.New("service: no fetcher configured")

// Fetcher resolves the newest daily report.
type Fetcher interface {
	Fetch(ctx context.Context) (source.Result, error)
}

// View holds every value the dashboard page renders.
type View struct {
	Date    string
	DataURL string

	Confirmed string
	Active    string
	Deaths    string
	Recovered string

	// TopBody is the countries table body fragment.
	TopBody template.HTML
	// BubbleMap is the embeddable map document.
	BubbleMap template.HTML

	Markers int
}

// Service builds dashboard views from a fresh report on every call.
type Service struct {
	fetcher Fetcher
	builder *bubblemap.Builder
	topN    int
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFetcher sets the report source.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithMapBuilder sets the bubble map builder.
func WithMapBuilder(b *bubblemap.Builder) Option {
	return func(s *Service) {
		if b != nil {
			s.builder = b
		}
	}
}

// WithTopN sets how many countries the table lists.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
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

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		topN: ranking.DefaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.builder == nil {
		s.builder = bubblemap.NewBuilder()
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s
}

// Dashboard fetches the report once and derives totals, the top countries
// table and the bubble map from that same snapshot.
func (s *Service) Dashboard(ctx context.Context) (View, error) {
	if s.fetcher == nil {
		return View{}, ErrNoFetcher
	}
	start := time.Now()

	res, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return View{}, err
	}

	tot, err := totals.Compute(res.Dataset)
	if err != nil {
		metrics.RecordErrorByComponent("totals", "schema")
		return View{}, fmt.Errorf("totals for %s: %w", res.Date, err)
	}

	top, err := ranking.Top(res.Dataset, s.topN)
	if err != nil {
		metrics.RecordErrorByComponent("ranking", "schema")
		return View{}, fmt.Errorf("ranking for %s: %w", res.Date, err)
	}
	body, err := ranking.TableBody(top)
	if err != nil {
		metrics.RecordErrorByComponent("ranking", "render")
		return View{}, err
	}

	m, err := s.builder.Build(res.Dataset)
	if err != nil {
		if errors.Is(err, dataset.ErrMissingColumn) {
			metrics.RecordErrorByComponent("bubblemap", "schema")
			return View{}, fmt.Errorf("map for %s: %w", res.Date, err)
		}
		metrics.RecordErrorByComponent("bubblemap", "render")
		return View{}, err
	}
	metrics.UpdateMapMarkers(len(m.Markers), m.Dropped)

	f := tot.Format()
	view := View{
		Date:      res.Date,
		DataURL:   res.URL,
		Confirmed: f.Confirmed,
		Active:    f.Active,
		Deaths:    f.Deaths,
		Recovered: f.Recovered,
		TopBody:   body,
		BubbleMap: m.HTML,
		Markers:   len(m.Markers),
	}

	elapsed := time.Since(start)
	metrics.RecordRender(float64(elapsed.Milliseconds()))
	s.logger.Debug(ctx, "dashboard assembled",
		logger.String("date", res.Date),
		logger.Int("rows", res.Dataset.Len()),
		logger.Int("markers", len(m.Markers)),
		logger.Int("dropped", m.Dropped),
		logger.Int("countries", len(top)),
		logger.Duration("elapsed", elapsed),
	)
	return view, nil
}

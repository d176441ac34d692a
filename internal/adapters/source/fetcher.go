package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/covidmap/internal/domain/dataset"
	"github.com/okian/covidmap/pkg/logger"
	"github.com/okian/covidmap/pkg/metrics"
)

// DateLayout is the MM-DD-YYYY name of a daily report file.
const DateLayout = "01-02-2006"

// Placeholder marks the date in a URL template.
const Placeholder = "{date}"

// Default fetcher configuration constants.
const (
	DefaultURLTemplate  = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_daily_reports/{date}.csv"
	DefaultFallbackDays = 2
)

// Result is one resolved daily report.
type Result struct {
	// Date is the MM-DD-YYYY date actually served, not necessarily today.
	Date string
	// URL is the locator actually fetched.
	URL string
	// Dataset is the parsed report.
	Dataset *dataset.Dataset
}

// Fetcher resolves the newest published daily report.
type Fetcher struct {
	getter       Getter
	urlTemplate  string
	fallbackDays int
	now          func() time.Time
	logger       logger.Logger
}

// Option applies a configuration option to the Fetcher.
type Option func(*Fetcher)

// WithURLTemplate sets the report URL template; it must contain {date}.
func WithURLTemplate(tmpl string) Option {
	return func(f *Fetcher) {
		if strings.Contains(tmpl, Placeholder) {
			f.urlTemplate = tmpl
		}
	}
}

// WithFallbackDays sets how many earlier days are tried after today.
func WithFallbackDays(days int) Option {
	return func(f *Fetcher) {
		if days >= 0 {
			f.fallbackDays = days
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher creates a Fetcher reading through getter.
func NewFetcher(getter Getter, opts ...Option) *Fetcher {
	f := &Fetcher{
		getter:       getter,
		urlTemplate:  DefaultURLTemplate,
		fallbackDays: DefaultFallbackDays,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.Get()
	}
	return f
}

// CandidateDates returns today in UTC followed by the previous fallbackDays
// days, formatted with DateLayout.
func CandidateDates(now time.Time, fallbackDays int) []string {
	today := now.UTC()
	dates := make([]string, 0, fallbackDays+1)
	for i := 0; i <= fallbackDays; i++ {
		dates = append(dates, today.AddDate(0, 0, -i).Format(DateLayout))
	}
	return dates
}

// URL returns the locator for date.
func (f *Fetcher) URL(date string) string {
	return strings.ReplaceAll(f.urlTemplate, Placeholder, date)
}

// Fetch tries each candidate date in order and returns the first report
// found. Only not-found failures move on to the previous day; anything else
// is returned at once. When every date is missing the error is an
// *ExhaustedError.
func (f *Fetcher) Fetch(ctx context.Context) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))
	}()

	dates := CandidateDates(f.now(), f.fallbackDays)
	exhausted := &ExhaustedError{Attempts: make([]string, 0, len(dates))}

	for i, date := range dates {
		url := f.URL(date)
		d, err := f.attempt(ctx, url)
		switch {
		case err == nil:
			metrics.RecordFetchAttempt(metrics.OutcomeSuccess)
			metrics.UpdateFetchFallbackDays(i)
			metrics.UpdateDatasetRows(d.Len())
			f.logger.Info(ctx, "daily report fetched",
				logger.String("date", date),
				logger.String("url", url),
				logger.Int("fallback_days", i),
				logger.Int("rows", d.Len()),
			)
			return Result{Date: date, URL: url, Dataset: d}, nil
		case errors.Is(err, ErrNotFound):
			metrics.RecordFetchAttempt(metrics.OutcomeNotFound)
			f.logger.Warn(ctx, "daily report not published",
				logger.String("date", date),
				logger.String("url", url),
			)
			exhausted.Attempts = append(exhausted.Attempts, url)
			exhausted.Last = err
		default:
			metrics.RecordFetchAttempt(metrics.OutcomeError)
			metrics.RecordErrorByComponent("source", errorType(err))
			f.logger.Error(ctx, "daily report fetch failed",
				logger.String("date", date),
				logger.String("url", url),
				logger.Error(err),
			)
			return Result{}, fmt.Errorf("fetch %s: %w", url, err)
		}
	}

	metrics.RecordFetchExhausted()
	metrics.RecordErrorByComponent("source", "exhausted")
	return Result{}, exhausted
}

func (f *Fetcher) attempt(ctx context.Context, url string) (*dataset.Dataset, error) {
	body, err := f.getter.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()
	return dataset.Parse(body)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrUpstreamStatus):
		return "upstream_status"
	case errors.Is(err, dataset.ErrMalformed), errors.Is(err, dataset.ErrEmpty):
		return "parse"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}

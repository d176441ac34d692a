package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/covidmap/internal/adapters/http/api"
	"github.com/okian/covidmap/internal/adapters/http/site"
	"github.com/okian/covidmap/internal/adapters/source"
	app "github.com/okian/covidmap/internal/app"
	"github.com/okian/covidmap/internal/config"
	"github.com/okian/covidmap/internal/domain/bubblemap"
	"github.com/okian/covidmap/pkg/logger"
	"github.com/okian/covidmap/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeoutSlack         = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		loggerInstance.Error(ctx, "failed to load config", logger.Error(err))
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithMetricPrefix(cfg.MetricsPrefix),
		metrics.WithCustomLabels(cfg.MetricsLabels),
	)

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, loggerInstance),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.Int("fallback_days", cfg.FallbackDays),
			logger.Int("top_n", cfg.TopN),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newMux builds the upstream getter chain, the dashboard service and the
// routes serving it.
func newMux(ctx context.Context, cfg *config.Config, l logger.Logger) *http.ServeMux {
	getter := source.NewBreakerGetter(
		source.NewHTTPGetter(
			source.WithTimeout(ms(cfg.FetchTimeoutMS)),
			source.WithRateLimit(cfg.FetchRatePerMinute, cfg.FallbackDays+1),
		),
		source.WithMaxFailures(cfg.BreakerMaxFailures),
		source.WithOpenTimeout(ms(cfg.BreakerTimeoutMS)),
		source.WithBreakerLogger(l.Named("breaker")),
	)
	fetcher := source.NewFetcher(getter,
		source.WithURLTemplate(cfg.SourceURL),
		source.WithFallbackDays(cfg.FallbackDays),
		source.WithLogger(l.Named("source")),
	)
	svc := app.New(
		app.WithFetcher(fetcher),
		app.WithTopN(cfg.TopN),
		app.WithLogger(l.Named("service")),
		app.WithMapBuilder(bubblemap.NewBuilder(
			bubblemap.WithColor(cfg.MarkerColor),
			bubblemap.WithRadiusScale(cfg.RadiusScale),
		)),
	)

	mux := http.NewServeMux()
	site.Register(ctx, mux)
	api.NewServer(svc, api.WithLogger(l.Named("api"))).Register(ctx, mux)
	return mux
}

// writeTimeout leaves room for every fallback download of one request.
func writeTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.FallbackDays+1)*ms(cfg.FetchTimeoutMS) + writeTimeoutSlack
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// Package shutdown coordinates graceful teardown of the gateway's components.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	shutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_shutdown_duration_seconds",
		Help:    "Total time taken to shut down gracefully",
		Buckets: []float64{1, 5, 10, 15, 20, 25, 30},
	})

	shutdownErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_shutdown_errors_total",
		Help: "Shutdown errors by component",
	}, []string{"component"})
)

// Func tears down one component within the given context.
type Func func(context.Context) error

type component struct {
	name string
	fn   Func
}

// Manager runs registered teardown functions in reverse registration order,
// so the HTTP surface stops taking traffic before the database pool closes.
type Manager struct {
	logger     *zap.Logger
	components []component
	mu         sync.Mutex
	timeout    time.Duration
}

// NewManager creates a shutdown manager with an overall teardown deadline.
func NewManager(logger *zap.Logger, timeout time.Duration) *Manager {
	return &Manager{logger: logger, timeout: timeout}
}

// Register appends a teardown function. Registration order should follow
// startup order; teardown runs LIFO.
func (m *Manager) Register(name string, fn Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, fn: fn})
}

// RegisterCloser registers a component exposing Close() error.
func (m *Manager) RegisterCloser(name string, closer interface{ Close() error }) {
	m.Register(name, func(context.Context) error { return closer.Close() })
}

// RegisterNoErr registers a teardown function without an error return.
func (m *Manager) RegisterNoErr(name string, fn func()) {
	m.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// WaitForShutdown blocks until SIGINT or SIGTERM, then tears everything down.
func (m *Manager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	m.logger.Info("shutdown signal received",
		zap.String("signal", sig.String()),
		zap.Duration("timeout", m.timeout))

	m.Shutdown()
}

// Shutdown tears down all registered components in reverse order. Components
// run sequentially: a dependency must not close while its dependent is still
// draining.
func (m *Manager) Shutdown() {
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	components := make([]component, len(m.components))
	copy(components, m.components)
	m.mu.Unlock()

	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		stepStart := time.Now()
		if err := c.fn(ctx); err != nil {
			shutdownErrors.WithLabelValues(c.name).Inc()
			m.logger.Error("component shutdown failed",
				zap.String("component", c.name),
				zap.Error(err))
			continue
		}
		m.logger.Info("component shut down",
			zap.String("component", c.name),
			zap.Duration("elapsed", time.Since(stepStart)))
	}

	elapsed := time.Since(started)
	shutdownDuration.Observe(elapsed.Seconds())
	m.logger.Info("graceful shutdown complete", zap.Duration("elapsed", elapsed))
}

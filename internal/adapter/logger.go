package adapter

// Logger defines the logging interface used by the Registry and handed to
// factories. *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return noopLogger{} }

// Metrics receives registry events. The Prometheus implementation lives in
// internal/infrastructure/metrics.
type Metrics interface {
	CacheHit(category Category)
	CacheMiss(category Category)
	TypeGuardViolation(category Category)
	// Construction is called once per factory invocation; err is nil on success.
	Construction(category Category, adapterType AdapterType, err error)
	// Invalidation is called when entries are dropped from a cache
	// ("adapters" or "services").
	Invalidation(cache string, entries int)
}

type noopMetrics struct{}

func (noopMetrics) CacheHit(Category)                         {}
func (noopMetrics) CacheMiss(Category)                        {}
func (noopMetrics) TypeGuardViolation(Category)               {}
func (noopMetrics) Construction(Category, AdapterType, error) {}
func (noopMetrics) Invalidation(string, int)                  {}

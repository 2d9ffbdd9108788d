package depwatch

import "log/slog"

// DefaultMaxUpdateCount is how many times one watcher may be re-queued
// within a single flush before it is treated as a runaway.
const DefaultMaxUpdateCount = 100

type WarnHandler func(msg string, w *Watcher)

type Config struct {
	// Async defers flushes to the microtask primitive. When false every
	// queued watcher flushes immediately and Dep notification runs in id
	// order.
	Async bool

	MaxUpdateCount int

	// Microtask schedules fn to run after the current synchronous turn.
	// Nil means the system's own queue, drained by Drain.
	Microtask func(fn func())

	Logger      *slog.Logger
	WarnHandler WarnHandler
	Silent      bool

	Monitor Monitor

	// GoroutineCheck warns when the graph is touched from a goroutine other
	// than the one that created the system.
	GoroutineCheck bool
}

type Option func(*Config)

func DefaultConfig() Config {
	return Config{
		Async:          true,
		MaxUpdateCount: DefaultMaxUpdateCount,
	}
}

func WithAsync(async bool) Option {
	return func(c *Config) {
		c.Async = async
	}
}

func WithMaxUpdateCount(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxUpdateCount = n
		}
	}
}

func WithMicrotask(schedule func(fn func())) Option {
	return func(c *Config) {
		c.Microtask = schedule
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithWarnHandler routes diagnostics to h instead of the logger.
func WithWarnHandler(h WarnHandler) Option {
	return func(c *Config) {
		c.WarnHandler = h
	}
}

func WithSilent() Option {
	return func(c *Config) {
		c.Silent = true
	}
}

func WithMonitor(m Monitor) Option {
	return func(c *Config) {
		c.Monitor = m
	}
}

func WithGoroutineCheck() Option {
	return func(c *Config) {
		c.GoroutineCheck = true
	}
}

package observability

import (
	"log/slog"
	"sync"

	combobs "github.com/goldentooth/flowengine/combinators/observability"
)

// Hooks bundles the observability backends an application wires up once at
// startup — a tracer, a metrics counter, and a logger — so examples and
// consumers don't have to thread three separate globals through their
// wiring code. It is deliberately a distinct type from flow.Registry: the
// flow registry catalogs flow definitions for discovery, while Hooks holds
// the instrumentation backends those flows are composed with. spec.md §9
// calls out this decoupling explicitly; conflating the two would make it
// impossible to swap instrumentation backends without touching the flow
// catalog, or vice versa.
type Hooks struct {
	mu     sync.RWMutex
	tracer combobs.Tracer
	counter combobs.Counter
	logger *slog.Logger
}

// DefaultHookRegistry is the process-wide Hooks instance examples and
// application code register backends into at startup.
var DefaultHookRegistry = &Hooks{}

// SetTracer installs the tracer used by combinators/observability.Trace.
func (h *Hooks) SetTracer(tracer combobs.Tracer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tracer = tracer
}

// Tracer returns the installed tracer, or nil if none was set.
func (h *Hooks) Tracer() combobs.Tracer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tracer
}

// SetCounter installs the counter used by combinators/observability.Metrics.
func (h *Hooks) SetCounter(counter combobs.Counter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counter = counter
}

// Counter returns the installed counter, or nil if none was set.
func (h *Hooks) Counter() combobs.Counter {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.counter
}

// SetLogger installs the logger propagated via flow.WithLogger.
func (h *Hooks) SetLogger(logger *slog.Logger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logger = logger
}

// Logger returns the installed logger, or slog.Default() if none was set.
func (h *Hooks) Logger() *slog.Logger {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.logger == nil {
		return slog.Default()
	}
	return h.logger
}

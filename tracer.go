// Package corecaller traces functions and names spans after the code that
// called into it, found by walking the stack with callerfinder.
package corecaller

import (
	"context"
	"sync"
	"time"
)

var (
	tracer    Tracer
	shutdowns []ExporterShutdownFn
	tracerMux = new(sync.RWMutex)

	config *Config
)

const exporterShutdownTimeout = 10 * time.Second

type SpanEnderFn func()

// ExporterShutdownFn flushes and stops an exporter installed by an ExporterInitFn.
type ExporterShutdownFn func(ctx context.Context) error

// ExporterInitFn installs a global trace provider for cfg.
type ExporterInitFn func(cfg *Config) ExporterShutdownFn

type Tracer interface {
	// Trace starts a span named after the calling function and stores it in ctx.
	Trace(ctx *context.Context, tags ...Tags) SpanEnderFn
	TraceWithName(ctx *context.Context, name string, tags ...Tags) SpanEnderFn
	// TraceError records err on the span in ctx, or on a new virtual span
	// when ctx carries none.
	TraceError(ctx context.Context, err error, tags ...Tags)
	// Traceless starts a span with virtual parents made from the call stack.
	Traceless(ctx *context.Context, tags ...Tags) SpanEnderFn
	TracelessWithName(ctx *context.Context, name string, tags ...Tags) SpanEnderFn

	WithTags(ctx context.Context, tags ...Tags)
	Close()
}

// Enable installs the default tracer. Exporters run before the tracer is
// created and are shut down by Close.
func Enable(cfg *Config, exporters ...ExporterInitFn) {
	cfg = validateConfig(cfg)
	cfg.Enabled = true

	fns := make([]ExporterShutdownFn, 0, len(exporters))
	for _, initExporter := range exporters {
		if initExporter == nil {
			continue
		}

		if fn := initExporter(cfg); fn != nil {
			fns = append(fns, fn)
		}
	}

	tracerMux.Lock()
	defer tracerMux.Unlock()

	config = cfg
	tracer = newOtelTracer(cfg)
	shutdowns = append(shutdowns, fns...)
}

// Disable removes the default tracer. Package level functions become no-ops.
func Disable() {
	tracerMux.Lock()
	defer tracerMux.Unlock()

	if tracer != nil {
		tracer.Close()
	}

	tracer = nil
}

// Close disables tracing and shuts down every exporter passed to Enable.
func Close() {
	Disable()

	tracerMux.Lock()
	fns := shutdowns
	shutdowns = nil
	logger := currentLoggerLocked()
	tracerMux.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), exporterShutdownTimeout)
	defer cancel()

	for _, shutdown := range fns {
		if err := shutdown(ctx); err != nil {
			logger.Warn("corecaller: exporter shutdown failed", "error", err)
		}
	}
}

func DefaultTracer() Tracer {
	tracerMux.RLock()
	defer tracerMux.RUnlock()

	return tracer
}

func currentConfig() *Config {
	tracerMux.RLock()
	defer tracerMux.RUnlock()

	return config
}

func currentLoggerLocked() BasicLogger {
	if config == nil || config.Logger == nil {
		return DefaultConfig().Logger
	}

	return config.Logger
}

func noopSpanEnder() {}

// Trace starts a span named after the calling function.
//
//	defer corecaller.Trace(&ctx, tags)()
func Trace(ctx *context.Context, tags ...Tags) SpanEnderFn {
	if t := DefaultTracer(); t != nil {
		return t.Trace(ctx, tags...)
	}

	return noopSpanEnder
}

func TraceWithName(ctx *context.Context, name string, tags ...Tags) SpanEnderFn {
	if t := DefaultTracer(); t != nil {
		return t.TraceWithName(ctx, name, tags...)
	}

	return noopSpanEnder
}

func TraceError(ctx context.Context, err error, tags ...Tags) {
	if t := DefaultTracer(); t != nil {
		t.TraceError(ctx, err, tags...)
	}
}

// Traceless starts a span even without a context; ctx may be nil.
func Traceless(ctx *context.Context, tags ...Tags) SpanEnderFn {
	if t := DefaultTracer(); t != nil {
		return t.Traceless(ctx, tags...)
	}

	return noopSpanEnder
}

func TracelessWithName(ctx *context.Context, name string, tags ...Tags) SpanEnderFn {
	if t := DefaultTracer(); t != nil {
		return t.TracelessWithName(ctx, name, tags...)
	}

	return noopSpanEnder
}

func WithTags(ctx context.Context, tags ...Tags) {
	if t := DefaultTracer(); t != nil {
		t.WithTags(ctx, tags...)
	}
}

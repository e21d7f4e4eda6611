package corecaller

import (
	"context"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	otel "go.opentelemetry.io/otel"
	otelattribute "go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltracer "go.opentelemetry.io/otel/trace"

	"github.com/InjectiveLabs/corecaller/callerfinder"
	"github.com/InjectiveLabs/corecaller/stackframe"
)

const (
	instrumentationName = "github.com/InjectiveLabs/corecaller"
	unknownFunction     = "unknown"
)

var _ Tracer = (*otelTracer)(nil)

// Every frame of this package is skipped, so spans are named after the
// first function outside of it.
var selfTarget = stackframe.Package(instrumentationName)

type otelTracer struct {
	config  *Config
	tracer  oteltracer.Tracer
	logger  BasicLogger
	locator *callerfinder.Locator
	closed  atomic.Bool
}

func newOtelTracer(cfg *Config) *otelTracer {
	cfg = validateConfig(cfg)

	locator, err := callerfinder.New(selfTarget, 0, cfg.MaxStackDepth)
	if err != nil {
		// only reachable with an invalid MaxStackDepth, which validateConfig rules out
		panic(err)
	}

	return &otelTracer{
		config:  cfg,
		logger:  cfg.Logger,
		tracer:  otel.GetTracerProvider().Tracer(instrumentationName),
		locator: locator,
	}
}

// Close implements Tracer.
func (t *otelTracer) Close() {
	t.closed.Store(true)
}

// Trace implements Tracer.
func (t *otelTracer) Trace(ctx *context.Context, tags ...Tags) (ender SpanEnderFn) {
	defer t.recoverPanic("Trace", &ender)

	if t.closed.Load() {
		return noopSpanEnder
	}

	return t.traceStart(ctx, t.callerName(), false, tags).ender()
}

// TraceWithName implements Tracer.
func (t *otelTracer) TraceWithName(ctx *context.Context, name string, tags ...Tags) (ender SpanEnderFn) {
	defer t.recoverPanic("TraceWithName", &ender)

	if t.closed.Load() {
		return noopSpanEnder
	}

	return t.traceStart(ctx, name, false, tags).ender()
}

// Traceless implements Tracer.
func (t *otelTracer) Traceless(ctx *context.Context, tags ...Tags) (ender SpanEnderFn) {
	defer t.recoverPanic("Traceless", &ender)

	if t.closed.Load() {
		return noopSpanEnder
	}

	funcName := t.callerName()
	t.logger.Debug("corecaller: Traceless() starts from", "function", funcName)

	return t.traceStart(ctx, funcName, true, tags).ender()
}

// TracelessWithName implements Tracer.
func (t *otelTracer) TracelessWithName(ctx *context.Context, name string, tags ...Tags) (ender SpanEnderFn) {
	defer t.recoverPanic("TracelessWithName", &ender)

	if t.closed.Load() {
		return noopSpanEnder
	}

	return t.traceStart(ctx, name, true, tags).ender()
}

// TraceError implements Tracer.
func (t *otelTracer) TraceError(ctx context.Context, err error, tags ...Tags) {
	defer t.recoverPanic("TraceError", nil)

	if t.closed.Load() {
		return
	} else if err == nil {
		t.logger.Debug("corecaller: TraceError() called with nil error")
		return
	} else if ctx == nil {
		ctx = context.Background()
	}

	var virtual *activeSpan
	span := oteltracer.SpanFromContext(ctx)

	if !span.SpanContext().IsValid() {
		funcName := t.callerName()
		t.logger.Debug("corecaller: TracelessError starts from", "function", funcName)

		virtual = t.traceStart(&ctx, funcName, true, tags)
		span = virtual.span
	} else if !span.IsRecording() {
		return
	}

	var attributes []otelattribute.KeyValue

	// a virtual span already carries the tags
	if len(tags) > 0 && virtual == nil {
		attributes = attributesOf(tags)
	}

	if stack := t.locator.Stack(); len(stack) > 0 {
		attributes = append(attributes, otelattribute.String(
			"exception.stacktrace", stackframe.Frames(stack).String(),
		))
	}

	span.RecordError(err, oteltracer.WithAttributes(attributes...))

	if virtual != nil {
		virtual.end(otelcodes.Error, err.Error())
		return
	}

	// the span is over once it failed; its ender becomes a no-op
	span.SetStatus(otelcodes.Error, err.Error())
	span.End()
}

// WithTags implements Tracer.
func (t *otelTracer) WithTags(ctx context.Context, tags ...Tags) {
	defer t.recoverPanic("WithTags", nil)

	if ctx == nil {
		return
	}

	span := oteltracer.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		t.logger.Warn("corecaller: no span found in context - WithTags() with invalid context")
		return
	}

	span.SetAttributes(attributesOf(tags)...)
}

func (t *otelTracer) callerName() string {
	frame, ok := t.locator.Caller()
	if !ok {
		return unknownFunction
	}

	return stackframe.FuncName(frame.Function)
}

// recoverPanic keeps a bug in the tracer from taking down the traced code.
func (t *otelTracer) recoverPanic(method string, ender *SpanEnderFn) {
	r := recover()
	if r == nil {
		return
	}

	t.logger.Error("corecaller: "+method+"() panicked - this is a bug", "panic", r)
	t.logger.Error("corecaller: stack trace", "stack", string(debug.Stack()))

	if ender != nil {
		*ender = noopSpanEnder
	}
}

// activeSpan is a started span along with the virtual parents made for it.
type activeSpan struct {
	span     oteltracer.Span
	parents  []oteltracer.Span
	started  time.Time
	doneC    chan struct{}
	stuck    atomic.Bool
	finished atomic.Bool
}

func (t *otelTracer) traceStart(ctx *context.Context, funcName string, virtualTrace bool, tags []Tags) *activeSpan {
	if ctx == nil {
		emptyCtx := context.Background()
		ctx = &emptyCtx

		virtualTrace = true
	}

	attributes := attributesOf(tags)
	now := time.Now().UTC()

	a := &activeSpan{
		started: now,
		doneC:   make(chan struct{}),
	}

	if virtualTrace {
		*ctx, a.parents = t.callStackFramesToSpans(now, t.locator.Stack(), attributes)
	}

	// this is the final span
	modifiedContext, span := t.tracer.Start(
		*ctx,
		funcName,
		oteltracer.WithAttributes(attributes...),
	)
	a.span = span

	if t.config.StuckFunctionWatchdog {
		go t.watchStuck(a, funcName, t.config.StuckFunctionTimeout)
	}

	// set the modified context in-place
	*ctx = modifiedContext

	return a
}

func (t *otelTracer) watchStuck(a *activeSpan, name string, timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-a.doneC:
		return
	case <-timer.C:
		if !a.span.IsRecording() {
			return
		}

		a.stuck.Store(true)

		err := errors.Errorf("detected stuck function: %s stuck for %v", name, time.Since(a.started))
		a.span.RecordError(err, oteltracer.WithStackTrace(true))
		a.span.SetAttributes(otelattribute.String("exception.type", "stuck"))
		a.span.SetStatus(otelcodes.Error, "stuck")
	}
}

func (a *activeSpan) ender() SpanEnderFn {
	return func() {
		a.end(otelcodes.Ok, "")
	}
}

// end is safe to call more than once; only the first call counts.
func (a *activeSpan) end(code otelcodes.Code, description string) {
	if !a.finished.CompareAndSwap(false, true) {
		return
	}

	close(a.doneC)

	if a.span.IsRecording() {
		if code != otelcodes.Ok || !a.stuck.Load() {
			a.span.SetStatus(code, description)
		}
		a.span.End()
	}

	// children first
	for i := len(a.parents) - 1; i >= 0; i-- {
		a.parents[i].End(oteltracer.WithTimestamp(a.started))
	}
}

// callStackFramesToSpans turns the callers of the traced function into
// virtual spans, outermost first. frames[0] is the traced function itself.
func (t *otelTracer) callStackFramesToSpans(
	timestamp time.Time,
	frames []stackframe.Frame,
	attributes []otelattribute.KeyValue,
) (context.Context, []oteltracer.Span) {
	ctx := context.Background()
	if len(frames) < 2 {
		return ctx, nil
	}

	spans := make([]oteltracer.Span, 0, len(frames)-1)

	for i := len(frames) - 1; i > 0; i-- {
		if isEntryFrame(frames[i]) {
			continue
		}

		opts := []oteltracer.SpanStartOption{
			oteltracer.WithAttributes(attributes...),
			oteltracer.WithTimestamp(timestamp),
		}

		if len(spans) == 0 {
			opts = append(opts, oteltracer.WithNewRoot())
		}

		var newSpan oteltracer.Span
		ctx, newSpan = t.tracer.Start(
			ctx,
			stackframe.FuncName(frames[i].Function),
			opts...,
		)

		spans = append(spans, newSpan)
	}

	return ctx, spans
}

// isEntryFrame reports frames every goroutine or test starts from.
func isEntryFrame(frame stackframe.Frame) bool {
	switch frame.Function {
	case "main.main", "testing.tRunner":
		return true
	}

	return frame.Package() == "runtime"
}

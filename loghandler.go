package corecaller

import (
	"context"
	"log/slog"

	"github.com/InjectiveLabs/corecaller/callerfinder"
	"github.com/InjectiveLabs/corecaller/stackframe"
)

// CallerKey is the group CallerHandler adds to every record.
const CallerKey = "caller"

var (
	slogTarget = stackframe.Package("log/slog")
	logTarget  = stackframe.Package("log")
)

// CallerHandler adds the call site of the logging code to each record.
// The call site is the first frame after the frames of the target, so
// wrappers around *slog.Logger are attributed to their callers when the
// wrapper type is the target.
//
// Records written through a *log.Logger bridged to slog (slog.NewLogLogger,
// or log.SetOutput after slog.SetDefault) are attributed to the caller of
// the log package.
type CallerHandler struct {
	next    slog.Handler
	locator *callerfinder.Locator
	bridge  *callerfinder.Locator
}

var _ slog.Handler = (*CallerHandler)(nil)

// NewCallerHandler wraps next. A zero target means the log/slog package.
func NewCallerHandler(next slog.Handler, target stackframe.Target) (*CallerHandler, error) {
	if target.IsZero() {
		target = slogTarget
	}

	locator, err := callerfinder.New(target, 0, 1)
	if err != nil {
		return nil, err
	}

	bridge, err := callerfinder.New(logTarget, 0, 1)
	if err != nil {
		return nil, err
	}

	return &CallerHandler{
		next:    next,
		locator: locator,
		bridge:  bridge,
	}, nil
}

func (h *CallerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *CallerHandler) Handle(ctx context.Context, r slog.Record) error {
	frame, ok := h.locator.Caller()
	if ok && frame.Package() == "log" {
		frame, ok = h.bridge.Caller()
	}

	if !ok {
		return h.next.Handle(ctx, r)
	}

	r = r.Clone()
	r.AddAttrs(slog.Group(CallerKey,
		slog.String("function", frame.Function),
		slog.String("file", frame.File),
		slog.Int("line", frame.Line),
	))

	return h.next.Handle(ctx, r)
}

func (h *CallerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CallerHandler{
		next:    h.next.WithAttrs(attrs),
		locator: h.locator,
		bridge:  h.bridge,
	}
}

// WithGroup nests the caller group too, like any attribute added later.
func (h *CallerHandler) WithGroup(name string) slog.Handler {
	return &CallerHandler{
		next:    h.next.WithGroup(name),
		locator: h.locator,
		bridge:  h.bridge,
	}
}

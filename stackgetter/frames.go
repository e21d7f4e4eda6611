package stackgetter

import (
	"iter"
	"runtime"

	"github.com/InjectiveLabs/corecaller/stackframe"
)

const initialCallersDepth = 64

// framesGetter symbolizes program counters with runtime.CallersFrames.
// It sees inlined calls as separate frames and only resolves the frames the
// search actually visits.
type framesGetter struct{}

func newFramesGetter() (StackGetter, error) {
	g := framesGetter{}
	if err := probe(g); err != nil {
		return nil, err
	}

	return g, nil
}

//go:noinline
func (framesGetter) CallerOf(target stackframe.Target, skipFrames int) (stackframe.Frame, bool) {
	mustBeValid(target, Unbounded, skipFrames)

	return callerOf(callersFrames(callers(skipFrames+1)), target, 0)
}

//go:noinline
func (framesGetter) StackForCaller(target stackframe.Target, maxDepth, skipFrames int) []stackframe.Frame {
	mustBeValid(target, maxDepth, skipFrames)

	return stackForCaller(callersFrames(callers(skipFrames+1)), target, maxDepth, 0)
}

// callers returns the program counters of the calling goroutine, starting
// skip frames above the function that called callers.
//
//go:noinline
func callers(skip int) []uintptr {
	pcs := make([]uintptr, initialCallersDepth)

	for {
		// skip runtime.Callers and callers itself
		n := runtime.Callers(skip+2, pcs)
		if n < len(pcs) {
			return pcs[:n]
		}

		pcs = make([]uintptr, 2*len(pcs))
	}
}

func callersFrames(pcs []uintptr) iter.Seq[stackframe.Frame] {
	return func(yield func(stackframe.Frame) bool) {
		if len(pcs) == 0 {
			return
		}

		frames := runtime.CallersFrames(pcs)

		for {
			frame, more := frames.Next()
			if !yield(stackframe.FromRuntime(frame)) || !more {
				return
			}
		}
	}
}

package stackgetter

import (
	"iter"
	"runtime"

	"github.com/InjectiveLabs/corecaller/stackframe"
)

// funcForPCGetter resolves every program counter on its own with
// runtime.FuncForPC. It reports one frame per physical call, so inlined
// calls are attributed to the function they were inlined into.
type funcForPCGetter struct{}

func newFuncForPCGetter() (StackGetter, error) {
	g := funcForPCGetter{}
	if err := probe(g); err != nil {
		return nil, err
	}

	return g, nil
}

//go:noinline
func (funcForPCGetter) CallerOf(target stackframe.Target, skipFrames int) (stackframe.Frame, bool) {
	mustBeValid(target, Unbounded, skipFrames)

	return callerOf(funcForPCFrames(callers(skipFrames+1)), target, 0)
}

//go:noinline
func (funcForPCGetter) StackForCaller(target stackframe.Target, maxDepth, skipFrames int) []stackframe.Frame {
	mustBeValid(target, maxDepth, skipFrames)

	return stackForCaller(funcForPCFrames(callers(skipFrames+1)), target, maxDepth, 0)
}

func funcForPCFrames(pcs []uintptr) iter.Seq[stackframe.Frame] {
	return func(yield func(stackframe.Frame) bool) {
		for _, pc := range pcs {
			// pc is a return address; pc-1 is inside the call instruction
			fn := runtime.FuncForPC(pc - 1)
			if fn == nil {
				continue
			}

			file, line := fn.FileLine(pc - 1)
			if !yield(stackframe.New(fn.Name(), file, line)) {
				return
			}
		}
	}
}

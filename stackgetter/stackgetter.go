// Package stackgetter finds callers of a target on the current goroutine's
// stack using the best stack capture mechanism the runtime offers.
package stackgetter

import (
	"fmt"
	"iter"

	"github.com/InjectiveLabs/corecaller/stackframe"
)

// Unbounded is the maxDepth value that requests every frame below the caller.
const Unbounded = -1

// StackGetter captures the current goroutine's stack with one particular
// runtime mechanism.
//
// skipFrames is counted from the function that called the StackGetter method:
// with skipFrames == 0 the search starts at that function.
type StackGetter interface {
	// CallerOf returns the first frame that called into target but does not
	// itself belong to target. It returns false if target is not on the stack
	// or its frames are the bottom of the stack.
	CallerOf(target stackframe.Target, skipFrames int) (stackframe.Frame, bool)

	// StackForCaller returns up to maxDepth frames starting at the frame
	// CallerOf would return, most recent call first. A maxDepth of Unbounded
	// returns all of them. The result is empty, never nil, if no caller is found.
	StackForCaller(target stackframe.Target, maxDepth, skipFrames int) []stackframe.Frame
}

// fromCaller yields the frames of a stack starting at the first frame that
// follows the first contiguous run of target frames found after skipping
// skip frames.
func fromCaller(frames iter.Seq[stackframe.Frame], target stackframe.Target, skip int) iter.Seq[stackframe.Frame] {
	return func(yield func(stackframe.Frame) bool) {
		toSkip := skip
		inTarget, found := false, false

		for f := range frames {
			switch {
			case found:
			case toSkip > 0:
				toSkip--
				continue
			case target.Contains(f):
				inTarget = true
				continue
			case !inTarget:
				continue
			default:
				found = true
			}

			if !yield(f) {
				return
			}
		}
	}
}

func callerOf(frames iter.Seq[stackframe.Frame], target stackframe.Target, skip int) (stackframe.Frame, bool) {
	for f := range fromCaller(frames, target, skip) {
		return f, true
	}

	return stackframe.Frame{}, false
}

func stackForCaller(frames iter.Seq[stackframe.Frame], target stackframe.Target, maxDepth, skip int) []stackframe.Frame {
	size := 16
	if maxDepth != Unbounded && maxDepth < size {
		size = maxDepth
	}

	stack := make([]stackframe.Frame, 0, size)

	for f := range fromCaller(frames, target, skip) {
		stack = append(stack, f)

		if maxDepth != Unbounded && len(stack) >= maxDepth {
			break
		}
	}

	return stack
}

// mustBeValid panics on arguments the callerfinder package rejects before
// they ever reach a StackGetter.
func mustBeValid(target stackframe.Target, maxDepth, skipFrames int) {
	if target.IsZero() {
		panic("stackgetter: target cannot be empty")
	}

	if maxDepth <= 0 && maxDepth != Unbounded {
		panic(fmt.Sprintf("stackgetter: invalid maximum depth: %d", maxDepth))
	}

	if skipFrames < 0 {
		panic(fmt.Sprintf("stackgetter: skip count cannot be negative: %d", skipFrames))
	}
}

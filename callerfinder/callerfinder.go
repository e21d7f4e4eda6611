// Package callerfinder locates the code that called into a target type or
// package, e.g. the user function that called a logger.
//
// Every entry point hides its own frame: skip == 0 starts the search at the
// function that called FindCallerOf, GetStackForCallerOf, Locator.Caller or
// Locator.Stack. A wrapper around these functions must add its own frames to
// skip, or make sure they belong to the target.
package callerfinder

import (
	"github.com/pkg/errors"

	"github.com/InjectiveLabs/corecaller/stackframe"
	"github.com/InjectiveLabs/corecaller/stackgetter"
)

// Unbounded is the maxDepth value that requests the complete stack below the caller.
const Unbounded = stackgetter.Unbounded

// ErrInvalidArgument is wrapped by every error returned for bad input.
var ErrInvalidArgument = errors.New("invalid argument")

var bestStackGetter = stackgetter.Best

// FindCallerOf returns the frame that called into target, i.e. the first frame
// below the first run of target frames on the stack. skip frames are ignored
// before the search starts; when in doubt pass 0 to avoid skipping past the
// caller.
//
// It returns nil, with no error, if no caller is found: target is not on the
// stack, or its frames are the bottom of the stack.
//
//go:noinline
func FindCallerOf(target stackframe.Target, skip int) (*stackframe.Frame, error) {
	if err := checkTarget(target); err != nil {
		return nil, err
	}

	if err := checkSkip(skip); err != nil {
		return nil, err
	}

	frame, ok := bestStackGetter().CallerOf(target, skip+1)
	if !ok {
		return nil, nil
	}

	return &frame, nil
}

// GetStackForCallerOf returns up to maxDepth frames starting at the frame
// FindCallerOf would return, most recent call first. Pass Unbounded for the
// complete stack.
//
// It returns an empty slice, with no error, if no caller is found.
//
//go:noinline
func GetStackForCallerOf(target stackframe.Target, maxDepth, skip int) ([]stackframe.Frame, error) {
	if err := checkTarget(target); err != nil {
		return nil, err
	}

	if err := checkMaxDepth(maxDepth); err != nil {
		return nil, err
	}

	if err := checkSkip(skip); err != nil {
		return nil, err
	}

	return bestStackGetter().StackForCaller(target, maxDepth, skip+1), nil
}

func checkTarget(target stackframe.Target) error {
	if target.IsZero() {
		return errors.Wrap(ErrInvalidArgument, "target cannot be empty")
	}

	return nil
}

func checkSkip(skip int) error {
	if skip < 0 {
		return errors.Wrapf(ErrInvalidArgument, "skip count cannot be negative: %d", skip)
	}

	return nil
}

// checkMaxDepth accepts positive depths and Unbounded only.
func checkMaxDepth(maxDepth int) error {
	if maxDepth <= 0 && maxDepth != Unbounded {
		return errors.Wrapf(ErrInvalidArgument, "invalid maximum depth: %d", maxDepth)
	}

	return nil
}

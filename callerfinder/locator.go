package callerfinder

import (
	"github.com/InjectiveLabs/corecaller/stackframe"
	"github.com/InjectiveLabs/corecaller/stackgetter"
)

// Locator is a validated, reusable (target, skip, maxDepth) binding.
// It is immutable and safe for concurrent use.
type Locator struct {
	target   stackframe.Target
	skip     int
	maxDepth int
	getter   stackgetter.StackGetter
}

// New validates the arguments once so that Caller and Stack can be called on
// hot paths without error handling.
func New(target stackframe.Target, skip, maxDepth int) (*Locator, error) {
	if err := checkTarget(target); err != nil {
		return nil, err
	}

	if err := checkSkip(skip); err != nil {
		return nil, err
	}

	if err := checkMaxDepth(maxDepth); err != nil {
		return nil, err
	}

	return &Locator{
		target:   target,
		skip:     skip,
		maxDepth: maxDepth,
		getter:   bestStackGetter(),
	}, nil
}

// Target returns the target the Locator searches for.
func (l *Locator) Target() stackframe.Target {
	return l.target
}

// Caller behaves like FindCallerOf(target, skip) called from the same place.
//
//go:noinline
func (l *Locator) Caller() (stackframe.Frame, bool) {
	return l.getter.CallerOf(l.target, l.skip+1)
}

// Stack behaves like GetStackForCallerOf(target, maxDepth, skip) called from
// the same place.
//
//go:noinline
func (l *Locator) Stack() []stackframe.Frame {
	return l.getter.StackForCaller(l.target, l.maxDepth, l.skip+1)
}

package stackgetter

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/InjectiveLabs/corecaller/stackframe"
)

const pkgPath = "github.com/InjectiveLabs/corecaller/stackgetter"

type A struct{}
type B struct{}
type C struct{}
type D struct{}

func syntheticFrame(class, method string) stackframe.Frame {
	return stackframe.New(pkgPath+".(*"+class+")."+method, "synthetic.go", 1)
}

// syntheticStack is [A.m1, A.m2, B.m3, B.m4, C.m5], top to bottom.
func syntheticStack() []stackframe.Frame {
	return []stackframe.Frame{
		syntheticFrame("A", "m1"),
		syntheticFrame("A", "m2"),
		syntheticFrame("B", "m3"),
		syntheticFrame("B", "m4"),
		syntheticFrame("C", "m5"),
	}
}

func TestCallerOf_Synthetic(t *testing.T) {
	stack := syntheticStack()

	frame, ok := callerOf(slices.Values(stack), stackframe.For[B](), 0)
	require.True(t, ok)
	require.Equal(t, stack[4], frame)
	require.Equal(t, "m5", frame.Method)

	frame, ok = callerOf(slices.Values(stack), stackframe.For[A](), 0)
	require.True(t, ok)
	require.Equal(t, stack[2], frame)
}

func TestCallerOf_TargetAbsent(t *testing.T) {
	frame, ok := callerOf(slices.Values(syntheticStack()), stackframe.For[D](), 0)
	require.False(t, ok)
	require.Equal(t, stackframe.Frame{}, frame)
}

func TestCallerOf_TargetIsLast(t *testing.T) {
	_, ok := callerOf(slices.Values(syntheticStack()), stackframe.For[C](), 0)
	require.False(t, ok)
}

func TestCallerOf_Skip(t *testing.T) {
	stack := syntheticStack()

	// skipping into the middle of B's run still finds C
	frame, ok := callerOf(slices.Values(stack), stackframe.For[B](), 3)
	require.True(t, ok)
	require.Equal(t, stack[4], frame)

	// skipping past every B frame loses the target
	_, ok = callerOf(slices.Values(stack), stackframe.For[B](), 4)
	require.False(t, ok)

	// skipped frames are never considered, even if they belong to the target
	frame, ok = callerOf(slices.Values(stack), stackframe.For[A](), 1)
	require.True(t, ok)
	require.Equal(t, stack[2], frame)

	_, ok = callerOf(slices.Values(stack), stackframe.For[A](), 2)
	require.False(t, ok)

	_, ok = callerOf(slices.Values(stack), stackframe.For[B](), 100)
	require.False(t, ok)
}

func TestCallerOf_FirstRunWins(t *testing.T) {
	stack := []stackframe.Frame{
		syntheticFrame("A", "m1"),
		syntheticFrame("B", "enter"),
		syntheticFrame("C", "callback"),
		syntheticFrame("B", "enter"),
		syntheticFrame("D", "outer"),
	}

	frame, ok := callerOf(slices.Values(stack), stackframe.For[B](), 0)
	require.True(t, ok)
	require.Equal(t, stack[2], frame)

	// after skipping the first run the second one is used
	frame, ok = callerOf(slices.Values(stack), stackframe.For[B](), 2)
	require.True(t, ok)
	require.Equal(t, stack[4], frame)
}

func TestStackForCaller_Synthetic(t *testing.T) {
	stack := syntheticStack()

	frames := stackForCaller(slices.Values(stack), stackframe.For[B](), Unbounded, 0)
	require.Equal(t, []stackframe.Frame{stack[4]}, frames)

	frames = stackForCaller(slices.Values(stack), stackframe.For[A](), Unbounded, 0)
	require.Equal(t, stack[2:], frames)

	frames = stackForCaller(slices.Values(stack), stackframe.For[A](), 2, 0)
	require.Equal(t, stack[2:4], frames)

	frames = stackForCaller(slices.Values(stack), stackframe.For[A](), 10, 0)
	require.Equal(t, stack[2:], frames)
}

func TestStackForCaller_NotFoundIsEmpty(t *testing.T) {
	frames := stackForCaller(slices.Values(syntheticStack()), stackframe.For[D](), Unbounded, 0)
	require.NotNil(t, frames)
	require.Empty(t, frames)

	frames = stackForCaller(slices.Values(syntheticStack()), stackframe.For[C](), 5, 0)
	require.NotNil(t, frames)
	require.Empty(t, frames)

	frames = stackForCaller(slices.Values([]stackframe.Frame(nil)), stackframe.For[B](), 5, 0)
	require.NotNil(t, frames)
	require.Empty(t, frames)
}

func TestMustBeValid(t *testing.T) {
	target := stackframe.For[B]()

	require.Panics(t, func() { mustBeValid(stackframe.Target{}, Unbounded, 0) })
	require.Panics(t, func() { mustBeValid(target, 0, 0) })
	require.Panics(t, func() { mustBeValid(target, -2, 0) })
	require.Panics(t, func() { mustBeValid(target, 1, -1) })

	require.NotPanics(t, func() { mustBeValid(target, Unbounded, 0) })
	require.NotPanics(t, func() { mustBeValid(target, 1, 5) })
}

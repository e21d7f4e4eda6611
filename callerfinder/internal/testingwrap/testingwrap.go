// Package testingwrap puts frames of a foreign package on the stack.
package testingwrap

import "github.com/InjectiveLabs/corecaller/stackframe"

type Locator interface {
	Caller() (stackframe.Frame, bool)
	Stack() []stackframe.Frame
}

//go:noinline
func Caller(l Locator) (stackframe.Frame, bool) {
	return l.Caller()
}

//go:noinline
func Stack(l Locator) []stackframe.Frame {
	return l.Stack()
}

//go:noinline
func WrapCall(l Locator, fn func(l Locator)) {
	fn(l)
}

//go:noinline
func Call[T any](fn func() T) T {
	return fn()
}

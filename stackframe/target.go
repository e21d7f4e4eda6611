package stackframe

import (
	"reflect"
)

// Target identifies the code whose callers are looked for: either a named
// type (all of its methods and their closures) or a whole package.
// The zero Target is absent and matches nothing.
type Target struct {
	pkg   string
	class string // empty for package targets
}

// TypeOf returns the Target for the dynamic type of v. Pointer types are
// dereferenced. Unnamed types and nil yield the zero Target.
func TypeOf(v any) Target {
	return ForType(reflect.TypeOf(v))
}

// For returns the Target for the type parameter T.
func For[T any]() Target {
	return ForType(reflect.TypeFor[T]())
}

// ForType returns the Target for t. Pointer types are dereferenced.
// A nil or unnamed type yields the zero Target.
func ForType(t reflect.Type) Target {
	if t == nil {
		return Target{}
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Name() == "" || t.PkgPath() == "" {
		return Target{}
	}

	return Target{
		pkg:   t.PkgPath(),
		class: t.PkgPath() + "." + stripTypeArgs(t.Name()),
	}
}

// Package returns the Target matching every function of the package with
// the given import path. An empty path yields the zero Target.
func Package(path string) Target {
	return Target{pkg: path}
}

// IsZero reports whether the Target is absent.
func (t Target) IsZero() bool {
	return t.pkg == ""
}

// IsPackage reports whether the Target spans a whole package.
func (t Target) IsPackage() bool {
	return t.pkg != "" && t.class == ""
}

// Contains reports whether the frame's function belongs to the Target.
func (t Target) Contains(f Frame) bool {
	switch {
	case t.IsZero():
		return false
	case t.class == "":
		return f.Package() == t.pkg
	default:
		return f.Class == t.class
	}
}

func (t Target) String() string {
	if t.class != "" {
		return t.class
	}

	return t.pkg
}

// Package stackframe describes call stack entries and the targets whose
// callers are being located.
package stackframe

import (
	"net/url"
	"runtime"
	"strconv"
	"strings"
)

// Frame is one call stack entry. Frames are values: they are created fresh
// for every query and never change afterwards.
type Frame struct {
	// Function is the fully qualified function name as reported by the runtime,
	// e.g. "github.com/InjectiveLabs/corecaller.(*otelTracer).Trace".
	Function string
	// Class is the declaring type ("pkg/path.Type"), or the package path
	// for plain functions and their closures.
	Class string
	// Method is the function name relative to Class.
	Method string
	// File is the source file, empty when unknown.
	File string
	// Line is the source line, 0 when unknown.
	Line int
}

// New builds a Frame from a runtime function name and an optional source position.
func New(function, file string, line int) Frame {
	class, method := splitFunction(function)

	return Frame{
		Function: function,
		Class:    class,
		Method:   method,
		File:     file,
		Line:     line,
	}
}

// FromRuntime converts a frame produced by runtime.CallersFrames.
func FromRuntime(f runtime.Frame) Frame {
	return New(f.Function, f.File, f.Line)
}

// Package returns the import path of the package the frame's function belongs to.
func (f Frame) Package() string {
	return PackageName(f.Function)
}

// HasSource reports whether the frame carries a source position.
func (f Frame) HasSource() bool {
	return f.File != "" && f.Line > 0
}

func (f Frame) String() string {
	if !f.HasSource() {
		return f.Function
	}

	return f.Function + " " + f.File + ":" + strconv.Itoa(f.Line)
}

// Frames is a slice of frames ordered most recent call first.
type Frames []Frame

// String renders the frames the way Go prints a goroutine traceback:
// function name, then a tab-indented file:line when the source is known.
func (fs Frames) String() string {
	var b strings.Builder

	for i, f := range fs {
		if i > 0 {
			b.WriteByte('\n')
		}

		b.WriteString(f.Function)
		if !f.HasSource() {
			continue
		}

		b.WriteString("\n\t")
		b.WriteString(f.File)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(f.Line))
	}

	return b.String()
}

// PackageName returns the package import path of a runtime function name.
// It returns an empty string if the name carries no package qualifier.
//
// The linker escapes the last path element in symbol names ("gopkg.in/yaml.v3"
// becomes "gopkg.in/yaml%2ev3"); the result is unescaped so it compares equal
// to reflect.Type.PkgPath.
func PackageName(function string) string {
	pkg, _ := splitPackage(function)
	return pkg
}

// splitPackage cuts a runtime function name after its package qualifier.
func splitPackage(function string) (pkg, rest string) {
	lastSlash := strings.LastIndexByte(function, '/')
	dot := strings.IndexByte(function[lastSlash+1:], '.')
	if dot < 0 {
		return "", function
	}

	dot += lastSlash + 1

	return unescapePath(function[:dot]), function[dot+1:]
}

// unescapePath reverses the %xx escaping applied to import paths in symbol
// names. Malformed escapes are kept as they are.
func unescapePath(path string) string {
	if !strings.Contains(path, "%") {
		return path
	}

	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return path
	}

	return unescaped
}

// FuncName returns the short name of a runtime function: the innermost named
// function plus any numbered closure suffix, e.g. "func2.1.1" or "Trace".
func FuncName(function string) string {
	if lastSlash := strings.LastIndexByte(function, '/'); lastSlash >= 0 {
		function = function[lastSlash+1:]
	}

	parts := strings.Split(function, ".")
	if len(parts) < 2 {
		return function
	}

	for i := len(parts) - 1; i > 0; i-- {
		if isIdentifier(parts[i]) {
			return strings.Join(parts[i:], ".")
		}
	}

	return function
}

// splitFunction splits a runtime function name into the declaring class and
// the method name relative to it.
func splitFunction(function string) (class, method string) {
	pkg, rest := splitPackage(function)
	if pkg == "" {
		return "", function
	}

	if strings.HasPrefix(rest, "(*") {
		end := strings.Index(rest, ").")
		if end < 0 {
			return pkg, rest
		}

		return pkg + "." + stripTypeArgs(rest[2:end]), rest[end+2:]
	}

	recv, name, ok := cutReceiver(rest)
	if !ok || isClosureName(firstSegment(name)) {
		return pkg, rest
	}

	return pkg + "." + stripTypeArgs(recv), name
}

// cutReceiver cuts "T.M" or "T[...].M" at the dot that follows the type.
func cutReceiver(rest string) (recv, name string, ok bool) {
	from := 0
	if open := strings.IndexByte(rest, '['); open >= 0 {
		dot := strings.IndexByte(rest, '.')
		if dot < 0 || open < dot {
			closing := strings.IndexByte(rest[open:], ']')
			if closing < 0 {
				return "", "", false
			}
			from = open + closing
		}
	}

	dot := strings.IndexByte(rest[from:], '.')
	if dot < 0 {
		return "", "", false
	}

	dot += from

	return rest[:dot], rest[dot+1:], true
}

func stripTypeArgs(typ string) string {
	if open := strings.IndexByte(typ, '['); open >= 0 {
		return typ[:open]
	}

	return typ
}

func firstSegment(name string) string {
	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		return name[:dot]
	}

	return name
}

// isClosureName reports whether a name segment is compiler generated:
// "func1", "gowrap2", "deferwrap1" or a bare nesting index like "1".
func isClosureName(seg string) bool {
	for _, prefix := range [...]string{"func", "gowrap", "deferwrap", ""} {
		digits, ok := strings.CutPrefix(seg, prefix)
		if ok && isDigits(digits) {
			return true
		}
	}

	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	c := s[0]

	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

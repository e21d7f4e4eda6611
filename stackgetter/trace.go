package stackgetter

import (
	"bytes"
	"iter"
	"runtime"
	"strconv"

	"github.com/InjectiveLabs/corecaller/stackframe"
)

const initialTraceSize = 4 << 10

// traceGetter parses the text traceback produced by runtime.Stack.
// It is the slowest mechanism and the one every Go runtime supports, so it
// is never probed.
//
// The runtime elides the middle of very deep tracebacks (beyond about 100
// frames). traceGetter only sees the frames above the "...N frames
// elided..." line, so on such stacks it returns a shorter stack and cannot
// find targets that sit below the cut.
type traceGetter struct{}

//go:noinline
func (traceGetter) CallerOf(target stackframe.Target, skipFrames int) (stackframe.Frame, bool) {
	mustBeValid(target, Unbounded, skipFrames)

	// skip stackTrace and CallerOf
	return callerOf(traceFrames(stackTrace()), target, skipFrames+2)
}

//go:noinline
func (traceGetter) StackForCaller(target stackframe.Target, maxDepth, skipFrames int) []stackframe.Frame {
	mustBeValid(target, maxDepth, skipFrames)

	return stackForCaller(traceFrames(stackTrace()), target, maxDepth, skipFrames+2)
}

// stackTrace returns the traceback of the calling goroutine. The first frame
// in it is stackTrace itself.
//
//go:noinline
func stackTrace() []byte {
	buf := make([]byte, initialTraceSize)

	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			return buf[:n]
		}

		buf = make([]byte, 2*len(buf))
	}
}

// traceFrames parses a single goroutine traceback:
//
//	goroutine 7 [running]:
//	github.com/InjectiveLabs/corecaller.(*otelTracer).Trace(0xc000010000, ...)
//		/src/corecaller/tracer_otel.go:93 +0x1d
//	...12 frames elided...
//	created by testing.(*T).Run in goroutine 1
//		/usr/local/go/src/testing/testing.go:1742 +0x390
func traceFrames(trace []byte) iter.Seq[stackframe.Frame] {
	return func(yield func(stackframe.Frame) bool) {
		rest := trace

		for len(rest) > 0 {
			var line []byte
			line, rest, _ = bytes.Cut(rest, []byte{'\n'})

			if len(line) == 0 {
				return
			}

			if bytes.HasPrefix(line, []byte("goroutine ")) || line[0] == '\t' {
				continue
			}

			// frames after an elision marker are not adjacent to the ones before it
			if bytes.HasPrefix(line, []byte("...")) ||
				bytes.HasPrefix(line, []byte("created by ")) {
				return
			}

			function := line
			if open := bytes.LastIndexByte(line, '('); open > 0 {
				function = line[:open]
			}

			var file string
			var lineNo int

			if bytes.HasPrefix(rest, []byte{'\t'}) {
				var pos []byte
				pos, rest, _ = bytes.Cut(rest[1:], []byte{'\n'})
				file, lineNo = parseTracePosition(pos)
			}

			if !yield(stackframe.New(string(function), file, lineNo)) {
				return
			}
		}
	}
}

// parseTracePosition parses "/path/file.go:93 +0x1d".
func parseTracePosition(pos []byte) (string, int) {
	if offset := bytes.LastIndex(pos, []byte(" +0x")); offset >= 0 {
		pos = pos[:offset]
	}

	colon := bytes.LastIndexByte(pos, ':')
	if colon < 0 {
		return string(pos), 0
	}

	line, err := strconv.Atoi(string(pos[colon+1:]))
	if err != nil {
		return string(pos), 0
	}

	return string(pos[:colon]), line
}

package stackgetter

import (
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/InjectiveLabs/corecaller/stackframe"
)

// EnvDisabledStackGetters lists candidate names, comma separated, that must
// not be selected. The trace based baseline cannot be disabled.
const EnvDisabledStackGetters = "CORECALLER_DISABLED_STACK_GETTERS"

var (
	// ErrDisabled is returned by candidates excluded via EnvDisabledStackGetters.
	ErrDisabled = errors.New("stack getter disabled")

	// ErrUnknown is returned by New for names that are not a StackGetter.
	ErrUnknown = errors.New("unknown stack getter")

	errProbeFailed = errors.New("stack getter probe failed")
)

const baselineName = "trace"

type candidate struct {
	name   string
	create func() (StackGetter, error)
}

// candidates are ordered by preference.
var candidates = []candidate{
	{name: "frames", create: newFramesGetter},
	{name: "funcforpc", create: newFuncForPCGetter},
}

var best = sync.OnceValue(func() StackGetter {
	return selectStackGetter(candidates, disabledStackGetters(os.Getenv(EnvDisabledStackGetters)))
})

// Best returns the StackGetter selected for this process. Selection happens
// once, on first use; every later call returns the same instance.
func Best() StackGetter {
	return best()
}

// Names lists every StackGetter by preference, the baseline last.
func Names() []string {
	names := make([]string, 0, len(candidates)+1)
	for _, c := range candidates {
		names = append(names, c.name)
	}

	return append(names, baselineName)
}

// New creates the named StackGetter, bypassing selection and
// EnvDisabledStackGetters. It fails if the mechanism does not work in this
// process.
func New(name string) (StackGetter, error) {
	if name == baselineName {
		return traceGetter{}, nil
	}

	for _, c := range candidates {
		if c.name == name {
			return c.create()
		}
	}

	return nil, errors.Wrapf(ErrUnknown, "%q", name)
}

// selectStackGetter returns the first candidate that can be created, or the
// trace based baseline when none can.
func selectStackGetter(cands []candidate, disabled map[string]bool) StackGetter {
	for _, c := range cands {
		if g, ok := tryCreate(c, disabled); ok {
			return g
		}
	}

	return traceGetter{}
}

// tryCreate absorbs every failure of a candidate, panics included.
func tryCreate(c candidate, disabled map[string]bool) (g StackGetter, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			g, ok = nil, false
		}
	}()

	g, err := c.build(disabled)
	if err != nil || g == nil {
		return nil, false
	}

	return g, true
}

func (c candidate) build(disabled map[string]bool) (StackGetter, error) {
	if disabled[c.name] {
		return nil, errors.Wrapf(ErrDisabled, "%s", c.name)
	}

	return c.create()
}

func disabledStackGetters(env string) map[string]bool {
	disabled := make(map[string]bool)

	for _, name := range strings.Split(env, ",") {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			disabled[name] = true
		}
	}

	return disabled
}

// prober gives the probe a type target of its own.
type prober struct {
	g StackGetter
}

//go:noinline
func (p prober) callerOfSelf() (stackframe.Frame, bool) {
	return p.g.CallerOf(stackframe.For[prober](), 0)
}

var probeFunction = reflect.TypeFor[prober]().PkgPath() + ".probe"

// probe checks that g reports probe as the caller of prober, which only
// holds if the mechanism sees and names every frame it skips.
//
//go:noinline
func probe(g StackGetter) error {
	frame, ok := prober{g: g}.callerOfSelf()
	if !ok {
		return errors.Wrap(errProbeFailed, "caller not found")
	}

	if frame.Function != probeFunction {
		return errors.Wrapf(errProbeFailed, "got caller %q, expected %q", frame.Function, probeFunction)
	}

	return nil
}

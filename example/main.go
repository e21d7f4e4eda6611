package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/xlab/closer"

	"github.com/InjectiveLabs/corecaller"
	"github.com/InjectiveLabs/corecaller/callerfinder"
	otel "github.com/InjectiveLabs/corecaller/exporters/otel"
	"github.com/InjectiveLabs/corecaller/stackframe"
)

func main() {
	handler, err := corecaller.NewCallerHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}),
		stackframe.For[appLogger](),
	)
	if err != nil {
		panic(err)
	}

	logger := appLogger{l: slog.New(handler)}
	logger.Infof("we expect an OTEL collector listening on %s", "localhost:4317")

	corecaller.Enable(&corecaller.Config{
		ServiceName:           "example",
		ServiceVersion:        "1.0.0",
		EnvName:               "dev",
		CollectorDSN:          "localhost:4317",
		ClusterID:             "svc-us-east",
		StuckFunctionTimeout:  10 * time.Second,
		StuckFunctionWatchdog: true,
		Logger:                logger.l,
	}, otel.InitExporter)

	defer closer.Close()
	closer.Bind(func() {
		corecaller.Close()
	})

	svc := &MyService{
		log: logger,
		svcTags: corecaller.NewTags(map[string]any{
			"svc": "myService",
		}),
	}

	doneC := make(chan any, 1)
	go func() {
		doneC <- svc.StuckHandler(context.Background())
	}()

	svc.NestedHandler(context.Background())
	svc.FailingHandler(context.Background())
	svc.GoroutineHandler(context.Background())
	svc.TracelessHandler(context.Background())
	svc.WhoCalledMe()

	// wait for the stuck function to finish
	<-doneC

	fmt.Println(">>> check the collector UI for service \"example\"")
}

// appLogger is a printf style wrapper; CallerHandler reports its callers.
type appLogger struct {
	l *slog.Logger
}

func (a appLogger) Infof(format string, args ...any) {
	a.l.Info(fmt.Sprintf(format, args...))
}

func (a appLogger) Errorf(format string, args ...any) {
	a.l.Error(fmt.Sprintf(format, args...))
}

type MyService struct {
	log     appLogger
	svcTags corecaller.Tags
}

func (s *MyService) NestedHandler(ctx context.Context) {
	defer corecaller.Trace(&ctx, s.svcTags)()

	s.loadAccount(ctx)
}

func (s *MyService) loadAccount(ctx context.Context) {
	defer corecaller.Trace(&ctx, s.svcTags)()

	s.log.Infof("loading account")
	time.Sleep(500 * time.Millisecond)

	corecaller.WithTags(ctx, corecaller.NewTag("account", "inj1qqq"))
}

func (s *MyService) FailingHandler(ctx context.Context) {
	defer corecaller.Trace(&ctx, s.svcTags)()

	err := errors.New("account not found")
	s.log.Errorf("handler failed: %v", err)

	// the span carries the stack of this function as exception.stacktrace
	corecaller.TraceError(ctx, err)
}

func (s *MyService) GoroutineHandler(ctx context.Context) {
	defer corecaller.Trace(&ctx, s.svcTags)()

	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func(ctx context.Context) {
		defer corecaller.TraceWithName(&ctx, "kawabanga_goroutine", s.svcTags)()
		defer wg.Done()

		time.Sleep(500 * time.Millisecond)
		s.log.Infof("goroutine kawabanga just happened")
	}(ctx)
	wg.Wait()
}

func (s *MyService) StuckHandler(ctx context.Context) any {
	defer corecaller.Trace(&ctx, s.svcTags)()

	s.log.Infof("running a func that will be stuck")
	time.Sleep(11 * time.Second)

	return nil
}

func (s *MyService) TracelessHandler(_ context.Context) {
	func() {
		defer corecaller.Traceless(nil, s.svcTags)()

		// spans for TracelessHandler and main are made from the stack
		s.log.Infof("look mum no context!")
	}()
}

// WhoCalledMe finds its own caller, the way loggers and tracers do.
func (s *MyService) WhoCalledMe() {
	frame, err := callerfinder.FindCallerOf(stackframe.TypeOf(s), 0)
	if err != nil {
		s.log.Errorf("caller lookup failed: %v", err)
		return
	} else if frame == nil {
		s.log.Infof("no caller found")
		return
	}

	s.log.Infof("called by %s", frame)

	stack, err := callerfinder.GetStackForCallerOf(stackframe.TypeOf(s), callerfinder.Unbounded, 0)
	if err != nil {
		s.log.Errorf("stack lookup failed: %v", err)
		return
	}

	s.log.Infof("stack of the caller:\n%s", stackframe.Frames(stack))
}

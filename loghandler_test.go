package corecaller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/InjectiveLabs/corecaller"
	"github.com/InjectiveLabs/corecaller/stackframe"
)

type loggedCaller struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

type loggedRecord struct {
	Msg    string       `json:"msg"`
	Caller loggedCaller `json:"caller"`
	Svc    string       `json:"svc"`
}

func newJSONLogger(t *testing.T, target stackframe.Target) (*slog.Logger, *bytes.Buffer) {
	buf := new(bytes.Buffer)

	h, err := corecaller.NewCallerHandler(slog.NewJSONHandler(buf, nil), target)
	require.NoError(t, err)

	return slog.New(h), buf
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) loggedRecord {
	var record loggedRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record), buf.String())
	buf.Reset()

	return record
}

func TestCallerHandler(t *testing.T) {
	logger, buf := newJSONLogger(t, stackframe.Target{})

	logger.Info("hello")

	record := decodeRecord(t, buf)
	require.Equal(t, "hello", record.Msg)
	require.Equal(t, testPkg+".TestCallerHandler", record.Caller.Function)
	require.Contains(t, record.Caller.File, "loghandler_test.go")
	require.Positive(t, record.Caller.Line)
}

func TestCallerHandler_WithAttrs(t *testing.T) {
	logger, buf := newJSONLogger(t, stackframe.Target{})

	logger.With("svc", "myService").Warn("with attrs")

	record := decodeRecord(t, buf)
	require.Equal(t, "myService", record.Svc)
	require.Equal(t, testPkg+".TestCallerHandler_WithAttrs", record.Caller.Function)
}

func TestCallerHandler_Disabled(t *testing.T) {
	logger, buf := newJSONLogger(t, stackframe.Target{})

	logger.Debug("below the default level")
	require.Zero(t, buf.Len())
	require.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

// appLogger is the kind of wrapper services put around *slog.Logger.
type appLogger struct {
	l *slog.Logger
}

//go:noinline
func (a appLogger) Infof(format string, args ...any) {
	a.l.Info(fmt.Sprintf(format, args...))
}

//go:noinline
func logThroughWrapper(a appLogger) {
	a.Infof("through %s", "wrapper")
}

func TestCallerHandler_WrapperTarget(t *testing.T) {
	logger, buf := newJSONLogger(t, stackframe.For[appLogger]())

	logThroughWrapper(appLogger{l: logger})

	record := decodeRecord(t, buf)
	require.Equal(t, "through wrapper", record.Msg)
	require.Equal(t, testPkg+".logThroughWrapper", record.Caller.Function)
}

func TestCallerHandler_WrapperWithDefaultTarget(t *testing.T) {
	logger, buf := newJSONLogger(t, stackframe.Target{})

	logThroughWrapper(appLogger{l: logger})

	record := decodeRecord(t, buf)
	require.Equal(t, testPkg+".appLogger.Infof", record.Caller.Function)
}

func TestCallerHandler_TargetNotOnStack(t *testing.T) {
	logger, buf := newJSONLogger(t, stackframe.Package("example.com/not/on/stack"))

	logger.Info("no caller")

	record := decodeRecord(t, buf)
	require.Equal(t, "no caller", record.Msg)
	require.Empty(t, record.Caller.Function)
}

func TestCallerHandler_LogBridge(t *testing.T) {
	buf := new(bytes.Buffer)

	h, err := corecaller.NewCallerHandler(slog.NewJSONHandler(buf, nil), stackframe.Target{})
	require.NoError(t, err)

	slog.NewLogLogger(h, slog.LevelInfo).Printf("bridged %d", 1)

	record := decodeRecord(t, buf)
	require.Equal(t, "bridged 1", record.Msg)
	require.Equal(t, testPkg+".TestCallerHandler_LogBridge", record.Caller.Function)
	require.Contains(t, record.Caller.File, "loghandler_test.go")
}

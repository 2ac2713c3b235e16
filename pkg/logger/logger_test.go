package logger

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
)

func TestStandardLogger_Prefixes(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewStandardLogger(log.New(buf, "", 0))

	logger.Info("imported %d cookies", 3)
	logger.Warning("retry %d/%d", 1, 2)
	logger.Error("relay returned %d", 500)

	output := buf.String()
	for _, want := range []string{
		"[INFO] imported 3 cookies",
		"[WARNING] retry 1/2",
		"[ERROR] relay returned 500",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestStandardLogger_DebugOnlyWhenVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	NewStandardLogger(log.New(buf, "", 0)).Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be dropped, got: %s", buf.String())
	}

	NewVerboseLogger(log.New(buf, "", 0)).Debug("set cookie %s", "sid")
	if !strings.Contains(buf.String(), "[DEBUG] set cookie sid") {
		t.Fatalf("expected debug output, got: %s", buf.String())
	}
}

func TestStandardLogger_CloseRunsCloserOnce(t *testing.T) {
	calls := 0
	logger := NewStandardLogger(log.New(&bytes.Buffer{}, "", 0)).WithCloser(func() error {
		calls++
		return nil
	})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected closer to run once, ran %d times", calls)
	}
}

func TestStandardLogger_CloseWithoutCloser(t *testing.T) {
	if err := NewStandardLogger(log.Default()).Close(); err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Debug("test")
	logger.Info("test")
	logger.Warning("test")
	logger.Error("test")
	if err := logger.Close(); err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
}

func TestMockLogger_RecordsCalls(t *testing.T) {
	logger := NewMockLogger()

	logger.Info("info %d", 1)
	logger.Warning("warn %s", "test")
	logger.Error("err %v", "fail")
	logger.Debug("dbg")

	if len(logger.InfoCalls) != 1 || logger.InfoCalls[0] != "info 1" {
		t.Errorf("unexpected info calls: %v", logger.InfoCalls)
	}
	if w := logger.Warnings(); len(w) != 1 || w[0] != "warn test" {
		t.Errorf("unexpected warning calls: %v", w)
	}
	if e := logger.Errors(); len(e) != 1 || e[0] != "err fail" {
		t.Errorf("unexpected error calls: %v", e)
	}
	if len(logger.DebugCalls) != 1 {
		t.Errorf("expected 1 debug call, got %d", len(logger.DebugCalls))
	}
	_ = logger.Close()
	if !logger.CloseCalled {
		t.Error("CloseCalled should be true after Close()")
	}
}

func TestMultiLogger_BroadcastsToAll(t *testing.T) {
	mock1 := NewMockLogger()
	mock2 := NewMockLogger()
	multi := NewMultiLogger(mock1, mock2)

	multi.Debug("debug msg")
	multi.Info("info msg")
	multi.Warning("warn msg")
	multi.Error("error msg")

	for i, m := range []*MockLogger{mock1, mock2} {
		if len(m.DebugCalls) != 1 || len(m.InfoCalls) != 1 ||
			len(m.WarningCalls) != 1 || len(m.ErrorCalls) != 1 {
			t.Errorf("logger %d did not receive every message", i)
		}
	}
}

type failingCloseLogger struct {
	NopLogger
	err error
}

func (f *failingCloseLogger) Close() error { return f.err }

func TestMultiLogger_Close_ReturnsFirstError(t *testing.T) {
	err1 := errors.New("log file busy")
	err2 := errors.New("second")
	mock := NewMockLogger()
	multi := NewMultiLogger(&failingCloseLogger{err: err1}, mock, &failingCloseLogger{err: err2})

	if err := multi.Close(); !errors.Is(err, err1) {
		t.Errorf("expected first error %v, got %v", err1, err)
	}
	if !mock.CloseCalled {
		t.Error("expected every logger to be closed")
	}
}

func TestMultiLogger_SkipsNil(t *testing.T) {
	mock := NewMockLogger()
	multi := NewMultiLogger(nil, mock, nil)
	if len(multi) != 1 {
		t.Fatalf("expected one backend, got %d", len(multi))
	}
	multi.Warning("jar %s unreadable", "example.com")
	if w := mock.Warnings(); len(w) != 1 || w[0] != "jar example.com unreadable" {
		t.Errorf("unexpected warnings %v", w)
	}
	if err := NewMultiLogger().Close(); err != nil {
		t.Errorf("empty Close: %v", err)
	}
}

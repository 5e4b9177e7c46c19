package logger

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/alphabill-org/econsec/logger"
)

/*
New returns logger for test "t" on debug level. Output goes through t.Log
so it is only shown when the test fails or with the -v flag.
*/
func New(t testing.TB) *slog.Logger {
	return NewLvl(t, level())
}

/*
NewLvl returns logger for test "t" on the given level.
*/
func NewLvl(t testing.TB, lvl slog.Level) *slog.Logger {
	cfg := &logger.LogConfiguration{Level: lvl.String(), Format: format(), TimeFormat: "15:04:05.0000"}
	h, err := cfg.Handler(testWriter{t})
	if err != nil {
		t.Fatalf("creating test logger: %v", err)
	}
	return slog.New(h)
}

/*
LoggerBuilder returns logger factory func which ignores the configuration
and builds test logger instead.
*/
func LoggerBuilder(t testing.TB) func(*logger.LogConfiguration) (*slog.Logger, error) {
	return func(*logger.LogConfiguration) (*slog.Logger, error) {
		return New(t), nil
	}
}

// NOP returns logger which discards everything.
func NOP() *slog.Logger {
	return logger.NOP()
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// ECONSEC_TEST_LOG_LEVEL allows to change level of the test loggers.
func level() slog.Level {
	lvl := slog.LevelDebug
	if v := os.Getenv("ECONSEC_TEST_LOG_LEVEL"); v != "" {
		if err := lvl.UnmarshalText([]byte(v)); err != nil {
			return slog.LevelDebug
		}
	}
	return lvl
}

func format() string {
	if v := os.Getenv("ECONSEC_TEST_LOG_FORMAT"); v != "" {
		return v
	}
	return "text"
}

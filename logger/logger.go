package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

/*
LogConfiguration describes how to build the application logger. Zero value
is valid and results in INFO level text logger writing to stdout.
*/
type LogConfiguration struct {
	// DEBUG, INFO, WARN or ERROR, case insensitive.
	Level string `yaml:"defaultLevel"`
	// text, json, console, ecs or wallet.
	Format string `yaml:"format"`
	// File name or one of the special values: stdout, stderr, discard.
	OutputPath string `yaml:"outputPath"`
	// Go time layout for the time attribute, "none" removes time from the output.
	TimeFormat string `yaml:"timeFormat"`
	// How validator addresses are logged: "short", "none" or full (default).
	AddressFormat string `yaml:"addressFormat"`
}

/*
New creates logger based on the configuration. Nil configuration is
accepted and means defaults.
*/
func New(cfg *LogConfiguration) (*slog.Logger, error) {
	if cfg == nil {
		cfg = &LogConfiguration{}
	}
	h, err := cfg.Handler(nil)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

/*
Handler builds slog.Handler for the configuration. When "out" is nil the
OutputPath of the configuration determines where log is written.
*/
func (cfg *LogConfiguration) Handler(out io.Writer) (slog.Handler, error) {
	var lvl slog.Level
	if cfg.Level != "" {
		if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	if out == nil {
		var err error
		if out, err = cfg.output(); err != nil {
			return nil, err
		}
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		opts.ReplaceAttr = composeAttrFmt(formatTimeAttr(cfg.TimeFormat), formatAddressAttr(cfg.AddressFormat), formatDataAttrAsJSON)
		return slog.NewTextHandler(out, opts), nil
	case "json":
		opts.ReplaceAttr = composeAttrFmt(formatTimeAttr(cfg.TimeFormat), formatAddressAttr(cfg.AddressFormat))
		return slog.NewJSONHandler(out, opts), nil
	case "ecs":
		opts.AddSource = true
		opts.ReplaceAttr = composeAttrFmt(formatTimeAttr(cfg.TimeFormat), formatAddressAttr(cfg.AddressFormat), formatAttrECS)
		return slog.NewJSONHandler(out, opts), nil
	case "wallet":
		opts.ReplaceAttr = formatAttrWallet
		return slog.NewTextHandler(out, opts), nil
	case "console":
		// zerolog's console writer pretty prints JSON lines using its own field names
		cw := zerolog.ConsoleWriter{Out: out, NoColor: !isTerminal(out), TimeFormat: "15:04:05.000"}
		if cfg.TimeFormat != "" {
			cw.TimeFormat = cfg.TimeFormat
		}
		opts.ReplaceAttr = composeAttrFmt(formatAddressAttr(cfg.AddressFormat), formatDataAttrAsJSON, formatAttrConsole)
		return slog.NewJSONHandler(cw, opts), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

func (cfg *LogConfiguration) output() (io.Writer, error) {
	switch strings.ToLower(cfg.OutputPath) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "discard":
		return io.Discard, nil
	default:
		if dir := filepath.Dir(cfg.OutputPath); dir != "" {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return nil, fmt.Errorf("creating directory for log file: %w", err)
			}
		}
		f, err := os.OpenFile(filepath.Clean(cfg.OutputPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // -rw-------
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		return f, nil
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

/*
NOP returns logger which discards everything.
*/
func NOP() *slog.Logger {
	return slog.New(discardHandler{})
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }

/*
OrNOP returns "log" unless it is nil in which case NOP logger is returned.
*/
func OrNOP(log *slog.Logger) *slog.Logger {
	if log == nil {
		return NOP()
	}
	return log
}

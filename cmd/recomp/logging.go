package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/term"
)

// logEnv overrides the configured log level when set.
const logEnv = "RECOMP_LOG"

// resolveLevel picks the log level: --debug first, then RECOMP_LOG, then
// the config file. Unknown names fall back to info.
func resolveLevel(configured string, debug bool) charmlog.Level {
	if debug {
		return charmlog.DebugLevel
	}
	name := configured
	if env := strings.TrimSpace(os.Getenv(logEnv)); env != "" {
		name = env
	}
	switch strings.ToLower(name) {
	case "debug":
		return charmlog.DebugLevel
	case "warn", "warning":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// newLogger returns a slog.Logger backed by charmbracelet/log. Terminals get
// the coloured text format; anything else gets logfmt.
func newLogger(w io.Writer, level charmlog.Level) *slog.Logger {
	formatter := charmlog.LogfmtFormatter
	if isTerminal(w) {
		formatter = charmlog.TextFormatter
	}
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		Formatter:       formatter,
	})
	return slog.New(handler)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

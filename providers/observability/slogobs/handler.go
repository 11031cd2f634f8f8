package slogobs

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// NewHandler builds the slog.Handler for format. Console output uses tint;
// colours are disabled unless requested or output is a terminal.
func NewHandler(format Format, level slog.Level, output io.Writer, colors bool) slog.Handler {
	if output == nil {
		output = os.Stderr
	}
	switch format {
	case FormatJSON:
		return slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	case FormatText:
		return slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})
	default:
		return tint.NewHandler(output, &tint.Options{
			Level:       level,
			TimeFormat:  time.TimeOnly,
			NoColor:     !(colors || isTerminal(output)),
			ReplaceAttr: replaceTraceLevel,
		})
	}
}

// replaceTraceLevel renders LevelTrace as TRC instead of DBG-4.
func replaceTraceLevel(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 && attr.Key == slog.LevelKey {
		if level, ok := attr.Value.Any().(slog.Level); ok && level <= LevelTrace {
			return slog.String(slog.LevelKey, "TRC")
		}
	}
	return attr
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

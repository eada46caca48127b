package readably

import (
	"io"
	"log/slog"
	"os"
)

func loggerFor(opts *Options) *slog.Logger {
	if !opts.debug {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

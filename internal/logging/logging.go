package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Version is stamped at build time.
var Version = "dev"

type Opts struct {
	Debug   bool
	JSON    bool
	UID     bool
	Service string
	Version string
}

// SetupLogger builds the process logger writing to stderr.
func SetupLogger(opts *Opts) *slog.Logger {
	return New(os.Stderr, opts)
}

func New(w io.Writer, opts *Opts) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	logger := slog.New(handler)
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	if opts.Version != "" {
		logger = logger.With("version", opts.Version)
	}
	if opts.UID {
		logger = logger.With("uid", uuid.Must(uuid.NewRandom()).String())
	}
	return logger
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

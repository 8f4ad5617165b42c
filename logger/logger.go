package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	EnvLocal = "local"
	EnvDev   = "development"
	EnvProd  = "production"
)

// Setup returns the process logger for env. Unknown envs get the local setup.
func Setup(env string) *slog.Logger {
	return setup(os.Stdout, env)
}

func setup(w io.Writer, env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case EnvDev:
		log = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case EnvProd:
		log = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return log
}

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Card logs an RFID card id with all but its last four characters masked.
func Card(id string) slog.Attr {
	if n := len(id); n > 4 {
		id = strings.Repeat("*", n-4) + id[n-4:]
	}
	return slog.String("card_id", id)
}

// Discard is a logger that drops everything, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns the process logger, tagged with the app name.
// APP_ENV=dev (or development) writes colored console lines with the caller.
// An unknown level falls back to info.
func NewLogger(env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	var out io.Writer = os.Stdout
	dev := env == "dev" || env == "development"
	if dev {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(out).Level(lvl).With().Timestamp().Str("app", "myrestaurants")
	if dev {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

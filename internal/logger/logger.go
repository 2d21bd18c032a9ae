package logger

import (
	"log/slog"
	"os"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

// Log is the process-wide logger.
var Log *slog.Logger

// Init configures the global logger. Development gets text output at debug
// level; everything else gets JSON at info level. When a Sentry DSN is set,
// error records are additionally forwarded there.
func Init(isDev bool, sentryDSN string) {
	handlers := []slog.Handler{stdoutHandler(isDev)}

	if sentryDSN != "" {
		env := "production"
		if isDev {
			env = "development"
		}
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         sentryDSN,
			Environment: env,
		}); err == nil {
			handlers = append(handlers, slogsentry.Option{
				Level: slog.LevelError,
			}.NewSentryHandler())
		}
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = slogmulti.Fanout(handlers...)
	} else {
		handler = handlers[0]
	}

	Log = slog.New(handler)
	slog.SetDefault(Log)
}

func stdoutHandler(isDev bool) slog.Handler {
	if isDev {
		return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
}

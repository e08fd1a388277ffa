package logger

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup builds the process logger and installs it as the global zerolog logger.
func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	log.Logger = logger

	return logger
}

// RequestLogger logs every outbound API request.
type RequestLogger struct {
	logger zerolog.Logger
}

func NewRequestLogger(logger zerolog.Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

// Wrap returns a RoundTripper that logs requests sent through next.
func (l *RequestLogger) Wrap(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		started := time.Now()

		ctx := l.logger.With().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("request_id", req.Header.Get("X-Request-Id")).
			Logger().WithContext(req.Context())

		resp, err := next.RoundTrip(req.WithContext(ctx))
		if err != nil {
			zerolog.Ctx(ctx).Error().
				Err(err).
				Dur("duration", time.Since(started)).
				Msg("api call")

			return resp, err
		}

		zerolog.Ctx(ctx).Debug().
			Int("status", resp.StatusCode).
			Dur("duration", time.Since(started)).
			Msg("api call")

		return resp, nil
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

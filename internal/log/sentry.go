package log

import (
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentrylogrus "github.com/getsentry/sentry-go/logrus"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// SentrySettings represents the configuration required to bootstrap Sentry.
type SentrySettings struct {
	DSN         string
	Environment string
	Release     string
}

const sentryFlushTimeout = 2 * time.Second

// InitSentry creates a hub for settings.DSN and forwards error level log entries
// to it. An empty DSN disables reporting and returns a nil hub.
func InitSentry(logger *logrus.Logger, settings SentrySettings) (*sentry.Hub, func(), error) {
	if strings.TrimSpace(settings.DSN) == "" {
		return nil, func() {}, nil
	}
	if settings.Release == "" {
		settings.Release = "pagewiki@dev"
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         settings.DSN,
		Environment: settings.Environment,
		Release:     settings.Release,
		ServerName:  "pagewiki",
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "error initializing sentry client")
	}

	hub := sentry.NewHub(client, sentry.NewScope())

	hook := sentrylogrus.NewLogHookFromClient([]logrus.Level{
		logrus.ErrorLevel,
		logrus.FatalLevel,
		logrus.PanicLevel,
	}, client)
	if logger != nil {
		logger.AddHook(hook)
	}

	flush := func() {
		hub.Flush(sentryFlushTimeout)
	}

	return hub, flush, nil
}

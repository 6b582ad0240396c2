// Package errtrack reports unexpected errors to Sentry.
package errtrack

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// Init configures the Sentry client. An empty dsn leaves reporting disabled;
// capture calls are then no-ops.
func Init(dsn, env string) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Debug:            false,
		AttachStacktrace: true,
	})
}

func Flush() {
	sentry.Flush(2 * time.Second)
}

func Capture(err error) {
	sentry.CaptureException(err)
}

// CaptureWithExtra reports err along with one piece of request context.
func CaptureWithExtra(err error, extraKey string, extraValue any) {
	sentry.WithScope(func(scope *sentry.Scope) {
		if extraKey != "" {
			scope.SetExtra(extraKey, extraValue)
		}
		sentry.CaptureException(err)
	})
}

package errtrack

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
)

type Config struct {
	DSN         string
	Environment string
	Release     string
}

// Init enables Sentry reporting. An empty DSN leaves reporting disabled and
// every capture call becomes a no-op.
func Init(cfg Config) error {
	if cfg.DSN == "" {
		log.Println("SENTRY_DSN not set, error tracking disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		BeforeSend:  scrubHeaders,
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}

	log.Printf("Sentry initialized for %s", cfg.Environment)
	return nil
}

func scrubHeaders(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if event.Request != nil && event.Request.Headers != nil {
		delete(event.Request.Headers, "Authorization")
		delete(event.Request.Headers, "Cookie")
		delete(event.Request.Headers, "X-Pprof-Secret")
		delete(event.Request.Headers, "Svix-Signature")
	}
	return event
}

// CaptureException reports err with extra context attached to this event only.
func CaptureException(err error, context map[string]any) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if len(context) > 0 {
			scope.SetContext("details", sentry.Context(context))
		}
		sentry.CaptureException(err)
	})
}

// Middleware attaches a hub to each request and reports panics before
// handing them back to net/http.
func Middleware(next http.Handler) http.Handler {
	return sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(next)
}

func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

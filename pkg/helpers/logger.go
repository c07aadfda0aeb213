package helpers

import (
	"errors"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// NewLogger creates a configured Logrus logger
func NewLogger(appName, env string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if env == "development" {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.WithFields(logrus.Fields{"app": appName, "env": env}).Info("logger initialized")
	return logger
}

// RequestIDField is the log field carrying the HTTP request id.
const RequestIDField = "request_id"

// SentryHook forwards error-level entries to Sentry once sentry.Init has run.
// Entries tagged with a request id are skipped: the HTTP layer reports those
// on the request's own hub.
type SentryHook struct{}

func (SentryHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}
}

func (SentryHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data[RequestIDField]; ok {
		return nil
	}
	if sentry.CurrentHub().Client() == nil {
		return nil
	}
	// clone so concurrent entries never share a scope
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range entry.Data {
			if k == logrus.ErrorKey {
				continue
			}
			scope.SetExtra(k, v)
		}
	})
	if err, ok := entry.Data[logrus.ErrorKey].(error); ok {
		hub.CaptureException(errors.Join(errors.New(entry.Message), err))
		return nil
	}
	hub.CaptureMessage(entry.Message)
	return nil
}

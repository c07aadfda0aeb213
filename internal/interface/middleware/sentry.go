package middleware

import (
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// Sentry attaches a hub to every request and reports panics. It passes
// requests straight through until sentry.Init has configured a client.
func Sentry() gin.HandlerFunc {
	capture := sentrygin.New(sentrygin.Options{Repanic: true, Timeout: 2 * time.Second})
	return func(c *gin.Context) {
		if sentry.CurrentHub().Client() == nil {
			c.Next()
			return
		}
		capture(c)
	}
}

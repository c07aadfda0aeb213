package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/pkg/helpers"
	"github.com/oksasatya/go-ddd-shop/pkg/response"
)

// fail logs server-side failures and writes the error envelope. Sentry
// reporting happens once, in response.FromError.
func fail(c *gin.Context, logger *logrus.Logger, err error) {
	switch apperror.KindOf(err) {
	case apperror.KindInternal, apperror.KindServiceUnavailable:
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				helpers.RequestIDField: c.GetString("request_id"),
				"route":                c.FullPath(),
			}).Error("request failed")
		}
	}
	response.FromError(c, err)
}

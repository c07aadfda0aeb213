package response

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/pkg/validation"
)

var statusByKind = map[apperror.Kind]int{
	apperror.KindValidation:         http.StatusBadRequest,
	apperror.KindNotFound:           http.StatusNotFound,
	apperror.KindDuplicateEmail:     http.StatusConflict,
	apperror.KindDuplicateItem:      http.StatusBadRequest,
	apperror.KindInvalidCredentials: http.StatusBadRequest,
	apperror.KindInvalidQuantity:    http.StatusBadRequest,
	apperror.KindInvalidToken:       http.StatusUnauthorized,
	apperror.KindForbidden:          http.StatusForbidden,
	apperror.KindServiceUnavailable: http.StatusServiceUnavailable,
	apperror.KindInternal:           http.StatusInternalServerError,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperror.Kind) int {
	if s, ok := statusByKind[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// FromError writes the envelope for err. Untyped errors become a 500 with a
// generic message; 5xx errors are reported to Sentry when a hub is attached.
func FromError(c *gin.Context, err error) APIResponse[any] {
	kind := apperror.KindOf(err)
	status := StatusFor(kind)
	body := ErrorBody{Kind: string(kind)}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body.Details = validation.ToDetails(verrs)
	}
	if status >= http.StatusInternalServerError {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("request_id", c.GetString("request_id"))
				if uid := c.GetString("userID"); uid != "" {
					scope.SetUser(sentry.User{ID: uid})
				}
				hub.CaptureException(err)
			})
		}
	}
	_ = c.Error(err)
	return Error[any](c, status, apperror.MessageOf(err), body)
}

// BindError writes a 400 for a request body or query that failed to bind.
func BindError(c *gin.Context, err error) APIResponse[any] {
	return Error[any](c, http.StatusBadRequest, "invalid payload", ErrorBody{
		Kind:    string(apperror.KindValidation),
		Details: validation.ToDetails(err),
	})
}

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidTextRep      = "22P02"
	codeNumericOutOfRange   = "22003"

	constraintUsersEmail = "users_email_key"
)

const defaultQueryTimeout = 5 * time.Second

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultQueryTimeout
	}
	return context.WithTimeout(ctx, d)
}

// mapError converts driver errors into apperror kinds. notFound is used for
// pgx.ErrNoRows and malformed ids so callers get a resource-specific message.
func mapError(op string, err error, notFound *apperror.Error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			if pgErr.ConstraintName == constraintUsersEmail {
				return apperror.ErrDuplicateEmail
			}
			return apperror.ErrDuplicateItem
		case codeNumericOutOfRange:
			return apperror.New(apperror.KindInvalidQuantity, "value out of range")
		case codeInvalidTextRep:
			// a non-uuid id can never match a row
			return notFound
		}
	}
	if isUnavailable(err) {
		return apperror.Wrap(apperror.KindServiceUnavailable, op+": store unavailable", err)
	}
	return apperror.Wrap(apperror.KindInternal, op, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
)

func TestMapError(t *testing.T) {
	notFound := apperror.New(apperror.KindNotFound, "thing not found")

	tests := []struct {
		name string
		err  error
		kind apperror.Kind
	}{
		{"no rows", pgx.ErrNoRows, apperror.KindNotFound},
		{"email unique", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: constraintUsersEmail}, apperror.KindDuplicateEmail},
		{"other unique", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "user_cart_items_pkey"}, apperror.KindDuplicateItem},
		{"bad uuid", &pgconn.PgError{Code: codeInvalidTextRep}, apperror.KindNotFound},
		{"out of range", &pgconn.PgError{Code: codeNumericOutOfRange}, apperror.KindInvalidQuantity},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), apperror.KindServiceUnavailable},
		{"unknown", errors.New("boom"), apperror.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError("op", tt.err, notFound)
			require.Error(t, got)
			assert.Equal(t, tt.kind, apperror.KindOf(got))
		})
	}

	assert.NoError(t, mapError("op", nil, notFound))
	assert.Same(t, notFound, mapError("op", pgx.ErrNoRows, notFound))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, isForeignKeyViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: codeForeignKeyViolation})))
	assert.False(t, isForeignKeyViolation(&pgconn.PgError{Code: codeUniqueViolation}))
}

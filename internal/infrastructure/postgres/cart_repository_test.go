package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
)

// testPool connects to TEST_DATABASE_URL and applies the migrations. The test
// is skipped when no database is configured.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	require.NoError(t, err)
	m, err := migrate.NewWithDatabaseInstance("file://../../../db/migrations", "postgres", driver)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}

	pool, err := NewPool(context.Background(), dsn, PoolOptions{MaxConns: 4, MinConns: 1, MaxConnLifetime: time.Minute})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func createUser(t *testing.T, users *UserRepository) *entity.User {
	t.Helper()
	u := &entity.User{
		Name:         gofakeit.Name(),
		Email:        gofakeit.Email(),
		PasswordHash: "hash",
		Phone:        gofakeit.Phone(),
	}
	require.NoError(t, users.Create(context.Background(), u))
	t.Cleanup(func() { _ = users.Delete(context.Background(), u.ID) })
	return u
}

func cartQuantity(t *testing.T, carts *CartRepository, userID, productID string) int {
	t.Helper()
	lines, err := carts.CartLines(context.Background(), userID)
	require.NoError(t, err)
	for _, l := range lines {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	t.Fatalf("no cart line for %s", productID)
	return 0
}

func TestCartRepository_RejectsWithoutWriting(t *testing.T) {
	pool := testPool(t)
	users := NewUserRepository(pool, 5*time.Second)
	carts := NewCartRepository(pool, 5*time.Second)
	ctx := context.Background()

	u := createUser(t, users)
	productID := uuid.NewString()

	require.NoError(t, carts.AddCartLine(ctx, u.ID, productID))
	assert.ErrorIs(t, carts.AddCartLine(ctx, u.ID, productID), apperror.ErrDuplicateItem)
	assert.ErrorIs(t, carts.AddCartLine(ctx, uuid.NewString(), productID), apperror.ErrNotFound)

	line, err := carts.AdjustCartLine(ctx, u.ID, productID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, line.Quantity)

	_, err = carts.AdjustCartLine(ctx, u.ID, productID, -3)
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)
	assert.Equal(t, 3, cartQuantity(t, carts, u.ID, productID))

	_, err = carts.AdjustCartLine(ctx, u.ID, productID, entity.MaxCartQuantity)
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)
	_, err = carts.AdjustCartLine(ctx, u.ID, productID, 1<<40)
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)
	assert.Equal(t, 3, cartQuantity(t, carts, u.ID, productID))

	line, err = carts.AdjustCartLine(ctx, u.ID, productID, entity.MaxCartQuantity-3)
	require.NoError(t, err)
	assert.Equal(t, entity.MaxCartQuantity, line.Quantity)

	_, err = carts.AdjustCartLine(ctx, u.ID, uuid.NewString(), 1)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, carts.RemoveCartLine(ctx, u.ID, productID))
	assert.ErrorIs(t, carts.RemoveCartLine(ctx, u.ID, productID), apperror.ErrNotFound)

	lines, err := carts.CartLines(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCartRepository_ConcurrentAdjusts(t *testing.T) {
	pool := testPool(t)
	users := NewUserRepository(pool, 5*time.Second)
	carts := NewCartRepository(pool, 5*time.Second)
	ctx := context.Background()

	u := createUser(t, users)
	productID := uuid.NewString()
	require.NoError(t, carts.AddCartLine(ctx, u.ID, productID))

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := carts.AdjustCartLine(ctx, u.ID, productID, 1)
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, 1+n, cartQuantity(t, carts, u.ID, productID))
}

package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
	"github.com/oksasatya/go-ddd-shop/internal/domain/repository"
)

var errUserNotFound = apperror.New(apperror.KindNotFound, "user not found")

const userColumns = `id, name, email, password_hash, phone, is_admin, address_ids, created_at, updated_at`

type UserRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewUserRepository(pool *pgxpool.Pool, timeout time.Duration) *UserRepository {
	return &UserRepository{pool: pool, timeout: timeout}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.IsAdmin,
		&u.AddressIDs, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// Create relies on the users_email_key constraint, so two concurrent
// registrations with the same email cannot both succeed.
func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if u.AddressIDs == nil {
		u.AddressIDs = []string{}
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, phone, is_admin, address_ids)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.Phone, u.IsAdmin, u.AddressIDs)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapError("users.create", err, errUserNotFound)
	}
	u.Email = strings.ToLower(u.Email)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("users.get", err, errUserNotFound)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if err != nil {
		return nil, mapError("users.get_by_email", err, errUserNotFound)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]entity.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, mapError("users.list", err, errUserNotFound)
	}
	defer rows.Close()

	out := make([]entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapError("users.list", err, errUserNotFound)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("users.list", err, errUserNotFound)
	}
	return out, nil
}

// Update applies the patch in a single statement; unset fields keep their value.
func (r *UserRepository) Update(ctx context.Context, id string, p entity.UserPatch) (*entity.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var email *string
	if p.Email != nil {
		e := strings.ToLower(*p.Email)
		email = &e
	}
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET
			name          = COALESCE($2, name),
			email         = COALESCE($3, email),
			phone         = COALESCE($4, phone),
			password_hash = COALESCE($5, password_hash),
			is_admin      = COALESCE($6, is_admin),
			address_ids   = COALESCE($7, address_ids),
			updated_at    = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, p.Name, email, p.Phone, p.PasswordHash, p.IsAdmin, p.AddressIDs))
	if err != nil {
		return nil, mapError("users.update", err, errUserNotFound)
	}
	return u, nil
}

// Delete removes the user; cart and wishlist rows go with it via ON DELETE CASCADE.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError("users.delete", err, errUserNotFound)
	}
	if res.RowsAffected() == 0 {
		return errUserNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)

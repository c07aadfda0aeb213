package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
)

// UserRepository defines the persistence contract for users.
// Create must enforce email uniqueness atomically and fail with apperror.ErrDuplicateEmail.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context) ([]entity.User, error)
	Update(ctx context.Context, id string, patch entity.UserPatch) (*entity.User, error)
	Delete(ctx context.Context, id string) error
}

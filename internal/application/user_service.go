package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-shop/internal/domain/repository"
	"github.com/oksasatya/go-ddd-shop/pkg/helpers"
	"github.com/oksasatya/go-ddd-shop/pkg/mailer"
	tpl "github.com/oksasatya/go-ddd-shop/pkg/mailer/templates"
	"github.com/oksasatya/go-ddd-shop/pkg/validation"
)

// JobPublisher puts email jobs on the outbound queue. *helpers.RabbitPublisher satisfies it.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

type AccountService struct {
	Repo        repo.UserRepository
	JWT         *helpers.JWTManager
	HashCost    int
	Logger      *logrus.Logger
	Mail        JobPublisher
	Brand       tpl.Brand
	SupportURL  string
	ShopURL     string
	adminEmails map[string]struct{}
}

func NewAccountService(repo repo.UserRepository, jwt *helpers.JWTManager, hashCost int, logger *logrus.Logger) *AccountService {
	return &AccountService{
		Repo:        repo,
		JWT:         jwt,
		HashCost:    helpers.ClampCost(hashCost),
		Logger:      logger,
		adminEmails: map[string]struct{}{},
	}
}

// WithMail enables welcome and goodbye emails. A nil publisher leaves them off.
func (s *AccountService) WithMail(pub JobPublisher, brand tpl.Brand, supportURL, shopURL string) *AccountService {
	s.Mail = pub
	s.Brand = brand
	s.SupportURL = supportURL
	s.ShopURL = shopURL
	return s
}

// WithAdminEmails marks accounts registered under these emails as admins.
func (s *AccountService) WithAdminEmails(emails []string) *AccountService {
	for _, e := range emails {
		s.adminEmails[normalizeEmail(e)] = struct{}{}
	}
	return s
}

type RegisterInput struct {
	Name      string   `json:"name" binding:"required"`
	Email     string   `json:"email" binding:"required,email"`
	Password  string   `json:"password" binding:"required"`
	Phone     string   `json:"phone" binding:"required"`
	IsAdmin   bool     `json:"isAdmin"`
	Addresses []string `json:"addresses" binding:"omitempty,dive,uuid"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UpdateProfileInput is a partial update; nil fields are left unchanged.
type UpdateProfileInput struct {
	Name      *string   `json:"name" binding:"omitnil,min=1"`
	Email     *string   `json:"email" binding:"omitnil,email"`
	Phone     *string   `json:"phone" binding:"omitnil,min=1"`
	Password  *string   `json:"password" binding:"omitnil,min=1"`
	IsAdmin   *bool     `json:"isAdmin"`
	Addresses *[]string `json:"addresses"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalid(message string, err error) error {
	return apperror.Wrap(apperror.KindValidation, message, err)
}

func (s *AccountService) log() *logrus.Logger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

// Register stores a new user with a hashed password. The returned user still
// carries PasswordHash; callers must not serialize it.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, invalid("invalid registration", err)
	}

	hash, err := helpers.HashPassword(in.Password, s.HashCost)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "hash password", err)
	}
	_, forcedAdmin := s.adminEmails[in.Email]
	u := &entity.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        in.Phone,
		IsAdmin:      in.IsAdmin || forcedAdmin,
		AddressIDs:   append([]string{}, in.Addresses...),
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if !errors.Is(err, apperror.ErrDuplicateEmail) {
			s.log().WithError(err).Warn("create user failed")
		}
		return nil, err
	}
	s.log().WithField("user_id", u.ID).Info("user registered")
	s.enqueue(ctx, u, tpl.Welcome, tpl.NewWelcomeData)
	return u, nil
}

// Login returns the same error whether the email is unknown or the password is
// wrong, and spends one bcrypt comparison either way.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		helpers.CompareHashAndPassword(helpers.DummyHash(), password)
		return nil, apperror.ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, apperror.ErrInvalidCredentials
	}
	token, exp, err := s.JWT.IssueToken(u.ID, u.IsAdmin)
	if err != nil {
		s.log().WithError(err).WithField("user_id", u.ID).Warn("issue token failed")
		return nil, apperror.Wrap(apperror.KindInternal, "issue token", err)
	}
	return &LoginResult{Token: token, UserID: u.ID, Email: u.Email, ExpiresAt: exp}, nil
}

func (s *AccountService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	return s.Repo.GetByID(ctx, userID)
}

func (s *AccountService) ListUsers(ctx context.Context) ([]entity.User, error) {
	return s.Repo.List(ctx)
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, invalid("invalid profile update", err)
	}
	patch := entity.UserPatch{IsAdmin: in.IsAdmin}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.New(apperror.KindValidation, "name must not be blank")
		}
		patch.Name = &name
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if phone == "" {
			return nil, apperror.New(apperror.KindValidation, "phone must not be blank")
		}
		patch.Phone = &phone
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		patch.Email = &email
	}
	if in.Addresses != nil {
		for _, id := range *in.Addresses {
			if _, err := uuid.Parse(id); err != nil {
				return nil, apperror.Newf(apperror.KindValidation, "address %q is not a valid id", id)
			}
		}
		patch.AddressIDs = in.Addresses
	}
	if in.Password != nil {
		hash, err := helpers.HashPassword(*in.Password, s.HashCost)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindInternal, "hash password", err)
		}
		patch.PasswordHash = &hash
	}

	u, err := s.Repo.Update(ctx, userID, patch)
	if err != nil {
		return nil, err
	}
	s.log().WithField("user_id", u.ID).Info("profile updated")
	return u, nil
}

// DeleteAccount removes the user together with its cart and wishlist.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.log().WithField("user_id", userID).Info("account deleted")
	s.enqueue(ctx, u, tpl.AccountDeleted, tpl.NewAccountDeletedData)
	return nil
}

// enqueue publishes a templated email job. Failures are logged and never fail the caller.
func (s *AccountService) enqueue(ctx context.Context, u *entity.User, template string, data func(tpl.Brand, string, string, ...tpl.Option) map[string]any) {
	if s.Mail == nil {
		return
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: template,
		Data: data(s.Brand, u.Name, u.Email,
			tpl.WithTime(time.Now()),
			tpl.WithSupportURL(s.SupportURL),
			tpl.WithShopURL(s.ShopURL),
		),
	}
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.Mail.PublishJSON(c, job); err != nil {
		s.log().WithError(err).WithFields(logrus.Fields{"user_id": u.ID, "template": template}).Warn("enqueue email failed")
	}
}

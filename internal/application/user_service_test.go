package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	"github.com/oksasatya/go-ddd-shop/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-shop/pkg/helpers"
	"github.com/oksasatya/go-ddd-shop/pkg/mailer"
	tpl "github.com/oksasatya/go-ddd-shop/pkg/mailer/templates"
)

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
	err  error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, body.(mailer.EmailJob))
	return nil
}

func newAccountService(t *testing.T) (*AccountService, *memory.UserStore) {
	t.Helper()
	store := memory.NewUserStore()
	logger, _ := test.NewNullLogger()
	svc := NewAccountService(store, helpers.NewJWTManager("test-secret", time.Hour), bcrypt.MinCost, logger)
	return svc, store
}

func fakeRegistration() RegisterInput {
	return RegisterInput{
		Name:     gofakeit.Name(),
		Email:    gofakeit.Email(),
		Password: gofakeit.Password(true, true, true, false, false, 12),
		Phone:    gofakeit.Phone(),
	}
}

func TestRegister_HashesPassword(t *testing.T) {
	svc, store := newAccountService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		in := fakeRegistration()
		u, err := svc.Register(ctx, in)
		require.NoError(t, err)

		stored, err := store.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.NotEqual(t, in.Password, stored.PasswordHash)
		assert.True(t, helpers.CompareHashAndPassword(stored.PasswordHash, in.Password))
		assert.False(t, stored.IsAdmin)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newAccountService(t)
	cases := map[string]func(*RegisterInput){
		"missing name":   func(in *RegisterInput) { in.Name = "  " },
		"bad email":      func(in *RegisterInput) { in.Email = "not-an-email" },
		"empty password": func(in *RegisterInput) { in.Password = "" },
		"missing phone":  func(in *RegisterInput) { in.Phone = "" },
		"bad address":    func(in *RegisterInput) { in.Addresses = []string{"nope"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := fakeRegistration()
			mutate(&in)
			_, err := svc.Register(context.Background(), in)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestRegister_DuplicateEmailKeepsOriginal(t *testing.T) {
	svc, store := newAccountService(t)
	ctx := context.Background()
	first := fakeRegistration()
	u, err := svc.Register(ctx, first)
	require.NoError(t, err)

	second := fakeRegistration()
	second.Email = "  " + first.Email + " "
	_, err = svc.Register(ctx, second)
	assert.ErrorIs(t, err, apperror.ErrDuplicateEmail)

	stored, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Name, stored.Name)
	assert.True(t, helpers.CompareHashAndPassword(stored.PasswordHash, first.Password))
}

func TestRegister_AdminEmailsAndWelcomeJob(t *testing.T) {
	svc, _ := newAccountService(t)
	pub := &recordingPublisher{}
	svc.WithAdminEmails([]string{"Boss@Shop.io"}).
		WithMail(pub, tpl.Brand{AppName: "Shop"}, "https://help", "https://shop")

	in := fakeRegistration()
	in.Email = "boss@shop.io"
	u, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	require.Len(t, pub.jobs, 1)
	job := pub.jobs[0]
	assert.Equal(t, "boss@shop.io", job.To)
	assert.Equal(t, tpl.Welcome, job.Template)
	assert.Equal(t, in.Name, job.Data["Name"])
	assert.Equal(t, "Shop", job.Data["AppName"])
}

func TestRegister_PublishFailureIsNotFatal(t *testing.T) {
	svc, _ := newAccountService(t)
	logger, hook := test.NewNullLogger()
	svc.Logger = logger
	svc.WithMail(&recordingPublisher{err: errors.New("broker down")}, tpl.Brand{}, "", "")

	_, err := svc.Register(context.Background(), fakeRegistration())
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestLogin_UniformFailure(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()
	in := fakeRegistration()
	_, err := svc.Register(ctx, in)
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, in.Email, "definitely-wrong")
	_, unknownEmail := svc.Login(ctx, "nobody@example.com", in.Password)

	assert.ErrorIs(t, wrongPassword, apperror.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, apperror.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLogin_TokenRoundTrip(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()
	in := fakeRegistration()
	in.IsAdmin = true
	u, err := svc.Register(ctx, in)
	require.NoError(t, err)

	res, err := svc.Login(ctx, in.Email, in.Password)
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.UserID)
	assert.Equal(t, u.Email, res.Email)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	claims, err := svc.JWT.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, u.IsAdmin, claims.IsAdmin)
}

func TestUpdateProfile(t *testing.T) {
	svc, store := newAccountService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, fakeRegistration())
	require.NoError(t, err)

	name, pw := "New Name", "new-password"
	addresses := []string{uuid.NewString()}
	got, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Name: &name, Password: &pw, Addresses: &addresses})
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, addresses, got.AddressIDs)

	stored, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, pw, stored.PasswordHash)
	assert.True(t, helpers.CompareHashAndPassword(stored.PasswordHash, pw))

	blank := "   "
	_, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Name: &blank})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	badEmail := "nope"
	_, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Email: &badEmail})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.UpdateProfile(ctx, uuid.NewString(), UpdateProfileInput{Name: &name})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteAccount(t *testing.T) {
	svc, _ := newAccountService(t)
	pub := &recordingPublisher{}
	svc.WithMail(pub, tpl.Brand{}, "", "")
	ctx := context.Background()
	u, err := svc.Register(ctx, fakeRegistration())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, u.ID))
	assert.ErrorIs(t, svc.DeleteAccount(ctx, u.ID), apperror.ErrNotFound)

	_, err = svc.GetProfile(ctx, u.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.Len(t, pub.jobs, 2)
	assert.Equal(t, tpl.AccountDeleted, pub.jobs[1].Template)
}

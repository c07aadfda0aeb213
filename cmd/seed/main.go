package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-shop/config"
	"github.com/oksasatya/go-ddd-shop/internal/application"
	"github.com/oksasatya/go-ddd-shop/internal/domain/apperror"
	pginfra "github.com/oksasatya/go-ddd-shop/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-shop/pkg/helpers"
)

var defaultCategories = []application.CategoryInput{
	{Name: "Electronics", Icon: "icon-electronics", Color: "#1e88e5"},
	{Name: "Clothing", Icon: "icon-clothing", Color: "#8e24aa"},
	{Name: "Home", Icon: "icon-home", Color: "#43a047"},
	{Name: "Sports", Icon: "icon-sports", Color: "#fb8c00"},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	email := flag.String("email", "admin@shop.local", "admin account email")
	password := flag.String("password", "password123", "admin account password")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2, MinConns: 1, MaxConnLifetime: time.Hour})
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	users := pginfra.NewUserRepository(pool, cfg.DBQueryTimeout)
	accounts := application.NewAccountService(users, helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL), cfg.HashCost, logger).
		WithAdminEmails([]string{*email})

	u, err := accounts.Register(ctx, application.RegisterInput{
		Name:     "Shop Admin",
		Email:    *email,
		Password: *password,
		Phone:    "0000000000",
	})
	switch {
	case errors.Is(err, apperror.ErrDuplicateEmail):
		logger.Infof("admin %s already exists", *email)
	case err != nil:
		logger.Fatalf("failed to seed admin: %v", err)
	default:
		logger.Infof("seeded admin: id=%s email=%s", u.ID, u.Email)
	}

	catalog := application.NewCatalogService(
		pginfra.NewProductRepository(pool, cfg.DBQueryTimeout),
		pginfra.NewCategoryRepository(pool, cfg.DBQueryTimeout),
		logger,
	)
	existing, err := catalog.ListCategories(ctx)
	if err != nil {
		logger.Fatalf("failed to list categories: %v", err)
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c.Name] = true
	}
	for _, in := range defaultCategories {
		if have[in.Name] {
			continue
		}
		c, err := catalog.CreateCategory(ctx, in)
		if err != nil {
			logger.Fatalf("failed to seed category %s: %v", in.Name, err)
		}
		logger.Infof("seeded category: id=%s name=%s", c.ID, c.Name)
	}
}

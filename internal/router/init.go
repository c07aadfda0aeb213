package router

import (
	"context"

	"github.com/oksasatya/go-ddd-shop/internal/application"
	"github.com/oksasatya/go-ddd-shop/internal/container"
	"github.com/oksasatya/go-ddd-shop/internal/domain/repository"
	"github.com/oksasatya/go-ddd-shop/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-ddd-shop/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/go-ddd-shop/internal/interface/http"
	"github.com/oksasatya/go-ddd-shop/internal/router/modules"
	"github.com/oksasatya/go-ddd-shop/pkg/helpers"
	tpl "github.com/oksasatya/go-ddd-shop/pkg/mailer/templates"
)

type repositories struct {
	Users      repository.UserRepository
	Carts      repository.CartRepository
	Products   repository.ProductRepository
	Categories repository.CategoryRepository
}

// buildRepositories uses Postgres when a pool is configured and the in-memory store otherwise.
func buildRepositories() repositories {
	cfg := container.GetConfig()
	if pool := container.GetPGPool(); pool != nil {
		return repositories{
			Users:      pginfra.NewUserRepository(pool, cfg.DBQueryTimeout),
			Carts:      pginfra.NewCartRepository(pool, cfg.DBQueryTimeout),
			Products:   pginfra.NewProductRepository(pool, cfg.DBQueryTimeout),
			Categories: pginfra.NewCategoryRepository(pool, cfg.DBQueryTimeout),
		}
	}
	container.GetLogger().Warn("no postgres pool configured, using in-memory store")
	users := memory.NewUserStore()
	catalog := memory.NewCatalogStore()
	return repositories{Users: users, Carts: users, Products: catalog.Products(), Categories: catalog.Categories()}
}

type services struct {
	Accounts *application.AccountService
	Carts    *application.CartService
	Catalog  *application.CatalogService
}

func buildServices(repos repositories) services {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	catalog := application.NewCatalogService(repos.Products, repos.Categories, logger).
		WithSearch(container.GetES(), cfg.ESProductsIndex)
	if rdb := container.GetRedis(); rdb != nil {
		catalog.WithCache(rdb, cfg.ProductCacheTTL)
	}
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		catalog.WithImages(&helpers.GCSImageStore{Client: gcs, Bucket: cfg.GCSBucket}, cfg.UploadMaxBytes)
	}

	accounts := application.NewAccountService(repos.Users, container.GetJWT(), cfg.HashCost, logger).
		WithAdminEmails(cfg.AdminEmailList())
	if pub := container.GetRabbitPub(); pub != nil && cfg.MailSendEnabled {
		accounts.WithMail(pub, tpl.Brand{AppName: cfg.AppName, CompanyName: cfg.CompanyName}, cfg.SupportURL, cfg.ShopURL)
	}

	return services{
		Accounts: accounts,
		Carts:    application.NewCartService(repos.Users, repos.Carts, catalog, logger),
		Catalog:  catalog,
	}
}

func healthChecks() map[string]handlers.Check {
	checks := map[string]handlers.Check{}
	if pool := container.GetPGPool(); pool != nil {
		checks["postgres"] = pool.Ping
	}
	if rdb := container.GetRedis(); rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	svcs := buildServices(buildRepositories())
	logger := container.GetLogger()
	jwt := container.GetJWT()

	r.Add(modules.NewUserModule(handlers.NewUserHandler(svcs.Accounts, logger), jwt))
	r.Add(modules.NewCartModule(handlers.NewCartHandler(svcs.Carts, logger), jwt))
	r.Add(modules.NewCatalogModule(handlers.NewCatalogHandler(svcs.Catalog, logger), jwt))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
	r.AddRoot(modules.NewHealthModule(handlers.NewHealthHandler(healthChecks())))
}

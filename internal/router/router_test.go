package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-ddd-shop/config"
	"github.com/oksasatya/go-ddd-shop/internal/container"
	"github.com/oksasatya/go-ddd-shop/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-shop/pkg/helpers"
	"github.com/oksasatya/go-ddd-shop/pkg/validation"
)

type envelope struct {
	Status    int             `json:"status"`
	RequestID string          `json:"request_id"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Error     struct {
		Kind    string            `json:"kind"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type api struct {
	t      *testing.T
	engine *gin.Engine
	redis  *miniredis.Miniredis
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	container.Reset()
	t.Cleanup(container.Reset)

	cfg := config.Load()
	cfg.HashCost = bcrypt.MinCost
	cfg.JWTSecret = "router-test"
	cfg.AdminEmails = "admin@shop.io"
	cfg.DebugMetricsEnabled = false

	mr := miniredis.RunT(t)
	logger, _ := test.NewNullLogger()
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetRedis(helpers.NewRedisClient(mr.Addr(), "", 0))
	container.SetJWT(helpers.NewJWTManager(cfg.JWTSecret, time.Hour))
	validation.Init()

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware(), middleware.RealIP())
	reg := NewRegistry(r)
	InitModules(reg)
	reg.RegisterAll()
	return &api{t: t, engine: r, redis: mr}
}

func (a *api) call(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (a *api) decode(env envelope, v any) {
	a.t.Helper()
	require.NoError(a.t, json.Unmarshal(env.Data, v))
}

// register and log in; returns the user id and bearer token.
func (a *api) signup(name, email string) (string, string) {
	a.t.Helper()
	code, env := a.call(http.MethodPost, "/api/users/register", "", map[string]any{
		"name": name, "email": email, "password": "p1", "phone": "1",
	})
	require.Equal(a.t, http.StatusCreated, code, env.Message)
	var u struct {
		ID string `json:"id"`
	}
	a.decode(env, &u)

	code, env = a.call(http.MethodPost, "/api/users/login", "", map[string]any{"email": email, "password": "p1"})
	require.Equal(a.t, http.StatusOK, code, env.Message)
	var login struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	a.decode(env, &login)
	require.Equal(a.t, u.ID, login.UserID)
	return u.ID, login.Token
}

func (a *api) seedProduct(adminToken, name string) string {
	a.t.Helper()
	code, env := a.call(http.MethodPost, "/api/categories", adminToken, map[string]any{"name": "General", "color": "#00ff00"})
	require.Equal(a.t, http.StatusCreated, code, env.Message)
	var cat struct {
		ID string `json:"id"`
	}
	a.decode(env, &cat)

	code, env = a.call(http.MethodPost, "/api/products", adminToken, map[string]any{
		"name": name, "description": name + " desc", "category": cat.ID, "price": 19.99, "countInStock": 5,
	})
	require.Equal(a.t, http.StatusCreated, code, env.Message)
	var p struct {
		ID string `json:"id"`
	}
	a.decode(env, &p)
	return p.ID
}

func TestShopFlow(t *testing.T) {
	a := newAPI(t)
	_, adminToken := a.signup("Admin", "admin@shop.io")
	productID := a.seedProduct(adminToken, "Trail Runner")
	userID, token := a.signup("A", "a@x.com")

	code, env := a.call(http.MethodPost, "/api/users/register", "", map[string]any{
		"name": "Again", "email": "A@X.com", "password": "p2", "phone": "2",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "duplicate_email", env.Error.Kind)

	code, env = a.call(http.MethodPost, "/api/users/login", "", map[string]any{"email": "a@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_credentials", env.Error.Kind)

	cartPath := "/api/users/" + userID + "/cart"
	code, env = a.call(http.MethodPost, cartPath, token, map[string]any{"product": productID})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.RequestID)

	code, env = a.call(http.MethodPost, cartPath, token, map[string]any{"product": productID})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "duplicate_item", env.Error.Kind)

	code, env = a.call(http.MethodPost, cartPath+"/"+productID, token, map[string]any{"count": 2})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = a.call(http.MethodPost, cartPath+"/"+productID, token, map[string]any{"count": -3})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_quantity", env.Error.Kind)

	code, env = a.call(http.MethodPost, cartPath+"/"+productID, token, map[string]any{"count": int64(1) << 40})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", env.Error.Kind)
	assert.Contains(t, env.Error.Details, "count")

	code, env = a.call(http.MethodGet, cartPath, token, nil)
	require.Equal(t, http.StatusOK, code)
	var cart struct {
		UserID string `json:"userId"`
		Items  []struct {
			ProductID string `json:"productId"`
			Quantity  int    `json:"quantity"`
			Product   *struct {
				Name string `json:"name"`
			} `json:"product"`
		} `json:"items"`
		TotalItems int `json:"totalItems"`
	}
	a.decode(env, &cart)
	assert.Equal(t, userID, cart.UserID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	require.NotNil(t, cart.Items[0].Product)
	assert.Equal(t, "Trail Runner", cart.Items[0].Product.Name)
	assert.Equal(t, 3, cart.TotalItems)

	// a deleted product leaves a dangling line
	code, _ = a.call(http.MethodDelete, "/api/products/"+productID, adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	_, env = a.call(http.MethodGet, cartPath, token, nil)
	a.decode(env, &cart)
	require.Len(t, cart.Items, 1)
	assert.Nil(t, cart.Items[0].Product)
}

func TestAccessControl(t *testing.T) {
	a := newAPI(t)
	_, adminToken := a.signup("Admin", "admin@shop.io")
	aliceID, aliceToken := a.signup("Alice", "alice@x.com")
	bobID, _ := a.signup("Bob", "bob@x.com")

	code, env := a.call(http.MethodGet, "/api/users/"+aliceID+"/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid_token", env.Error.Kind)

	code, env = a.call(http.MethodGet, "/api/users/"+bobID+"/cart", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", env.Error.Kind)

	code, _ = a.call(http.MethodGet, "/api/users/"+bobID, adminToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.call(http.MethodGet, "/api/users", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.call(http.MethodPost, "/api/categories", aliceToken, map[string]any{"name": "Nope"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = a.call(http.MethodPut, "/api/users/"+aliceID, aliceToken, map[string]any{"isAdmin": true})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", env.Error.Kind)

	// isAdmin in a public registration is ignored
	code, env = a.call(http.MethodPost, "/api/users/register", "", map[string]any{
		"name": "Mallory", "email": "m@x.com", "password": "p1", "phone": "1", "isAdmin": true,
	})
	require.Equal(t, http.StatusCreated, code)
	var u struct {
		IsAdmin bool `json:"isAdmin"`
	}
	a.decode(env, &u)
	assert.False(t, u.IsAdmin)

	code, env = a.call(http.MethodPost, "/api/users/register", adminToken, map[string]any{
		"name": "Ops", "email": "ops@x.com", "password": "p1", "phone": "1", "isAdmin": true,
	})
	require.Equal(t, http.StatusCreated, code)
	a.decode(env, &u)
	assert.True(t, u.IsAdmin)
}

func TestValidationDetailsAndHealth(t *testing.T) {
	a := newAPI(t)

	code, env := a.call(http.MethodPost, "/api/users/register", "", map[string]any{"name": "A", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", env.Error.Kind)
	assert.Contains(t, env.Error.Details, "email")
	assert.Contains(t, env.Error.Details, "password")

	code, env = a.call(http.MethodGet, "/api/products/count", "", nil)
	require.Equal(t, http.StatusOK, code)
	var count struct {
		ProductCount int `json:"productCount"`
	}
	a.decode(env, &count)
	assert.Zero(t, count.ProductCount)

	code, env = a.call(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	a.redis.Close()
	code, env = a.call(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "service_unavailable", env.Error.Kind)
	assert.Contains(t, env.Error.Details, "redis")
}

package server_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kitsunehq/kitsune"
	"github.com/kitsunehq/kitsune/repository"
	"github.com/kitsunehq/kitsune/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type testEnv struct {
	app    *fiber.App
	users  *kitsune.UserService
	tokens kitsune.TokenService
	cfg    *kitsune.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &kitsune.Config{
		ProjectName:              "Kitsune API",
		APIPrefix:                "/api/v1",
		SecretKey:                "test-secret-key",
		Algorithm:                kitsune.SigningAlgorithmHS256,
		AccessTokenExpireMinutes: 30,
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	manager := repository.NewManager(db)
	require.NoError(t, manager.CreateSchema(context.Background()))

	users := kitsune.NewUserService(manager.Users())
	tokens := kitsune.NewTokenService([]byte(cfg.SecretKey), cfg.TokenTTL(), cfg.ProjectName, nil)

	srv := server.New(cfg, users, tokens)

	return &testEnv{
		app:    srv.App(),
		users:  users,
		tokens: tokens,
		cfg:    cfg,
	}
}

func (e *testEnv) request(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	res, err := e.app.Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()

	return res, body
}

func (e *testEnv) registerJSON(t *testing.T, payload map[string]any) (*http.Response, []byte) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/", bytes.NewReader(raw))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	return e.request(t, req)
}

func (e *testEnv) login(t *testing.T, username, password string) (*http.Response, []byte) {
	t.Helper()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/login/access-token", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	return e.request(t, req)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	res, body := env.request(t, req)

	assert.Equal(t, http.StatusOK, res.StatusCode)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, "System is healthy", payload["message"])
}

func TestCreateUserEndpoint(t *testing.T) {
	t.Run("registers a user and never serializes the hash", func(t *testing.T) {
		env := newTestEnv(t)

		res, body := env.registerJSON(t, map[string]any{
			"email":     "a@x.com",
			"password":  "p4ssword",
			"full_name": "A",
		})

		assert.Equal(t, http.StatusOK, res.StatusCode)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "a@x.com", payload["email"])
		assert.Equal(t, "A", payload["full_name"])
		assert.Equal(t, true, payload["is_active"])
		assert.NotZero(t, payload["id"])
		assert.NotContains(t, string(body), "p4ssword")
		assert.NotContains(t, string(body), "password")
	})

	t.Run("rejects a duplicate email", func(t *testing.T) {
		env := newTestEnv(t)

		res, _ := env.registerJSON(t, map[string]any{"email": "a@x.com", "password": "p4ssword"})
		require.Equal(t, http.StatusOK, res.StatusCode)

		res, body := env.registerJSON(t, map[string]any{"email": "a@x.com", "password": "other"})

		assert.Equal(t, http.StatusBadRequest, res.StatusCode)

		var payload server.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "error", payload.Status)
		assert.Equal(t, http.StatusBadRequest, payload.Code)
		assert.Equal(t, "The user with this username already exists in the system.", payload.Message)
	})

	t.Run("rejects an invalid email", func(t *testing.T) {
		env := newTestEnv(t)

		res, _ := env.registerJSON(t, map[string]any{"email": "not-an-email", "password": "p4ssword"})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("rejects a missing password", func(t *testing.T) {
		env := newTestEnv(t)

		res, _ := env.registerJSON(t, map[string]any{"email": "a@x.com"})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

func TestLoginAccessToken(t *testing.T) {
	t.Run("exchanges valid credentials for a bearer token", func(t *testing.T) {
		env := newTestEnv(t)
		res, _ := env.registerJSON(t, map[string]any{"email": "a@x.com", "password": "p4ssword"})
		require.Equal(t, http.StatusOK, res.StatusCode)

		res, body := env.login(t, "a@x.com", "p4ssword")

		assert.Equal(t, http.StatusOK, res.StatusCode)

		var payload server.TokenResponse
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "bearer", payload.TokenType)
		assert.NotEmpty(t, payload.AccessToken)

		claims, err := env.tokens.Validate(payload.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "1", claims.Subject)
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		env := newTestEnv(t)
		res, _ := env.registerJSON(t, map[string]any{"email": "a@x.com", "password": "p4ssword"})
		require.Equal(t, http.StatusOK, res.StatusCode)

		res, body := env.login(t, "a@x.com", "wrong")

		assert.Equal(t, http.StatusBadRequest, res.StatusCode)

		var payload server.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "Incorrect email or password", payload.Message)
	})

	t.Run("rejects an unknown email with the same message", func(t *testing.T) {
		env := newTestEnv(t)

		res, body := env.login(t, "nobody@x.com", "p4ssword")

		assert.Equal(t, http.StatusBadRequest, res.StatusCode)

		var payload server.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "Incorrect email or password", payload.Message)
	})

	t.Run("rejects an inactive user", func(t *testing.T) {
		env := newTestEnv(t)
		res, _ := env.registerJSON(t, map[string]any{
			"email":     "sleeper@x.com",
			"password":  "p4ssword",
			"is_active": false,
		})
		require.Equal(t, http.StatusOK, res.StatusCode)

		res, body := env.login(t, "sleeper@x.com", "p4ssword")

		assert.Equal(t, http.StatusBadRequest, res.StatusCode)

		var payload server.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "Inactive user", payload.Message)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		env := newTestEnv(t)

		res, _ := env.login(t, "", "")
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

func TestListUsersEndpoint(t *testing.T) {
	authedGet := func(t *testing.T, env *testEnv, target, token string) (*http.Response, []byte) {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if token != "" {
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
		return env.request(t, req)
	}

	obtainToken := func(t *testing.T, env *testEnv, email, password string) string {
		t.Helper()
		res, body := env.login(t, email, password)
		require.Equal(t, http.StatusOK, res.StatusCode)

		var payload server.TokenResponse
		require.NoError(t, json.Unmarshal(body, &payload))
		return payload.AccessToken
	}

	t.Run("requires a bearer token", func(t *testing.T) {
		env := newTestEnv(t)

		res, body := authedGet(t, env, "/api/v1/users/", "")

		assert.Equal(t, http.StatusForbidden, res.StatusCode)

		var payload server.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "Could not validate credentials", payload.Message)
	})

	t.Run("rejects a garbage token", func(t *testing.T) {
		env := newTestEnv(t)

		res, _ := authedGet(t, env, "/api/v1/users/", "not.a.token")
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		env := newTestEnv(t)
		res, _ := env.registerJSON(t, map[string]any{"email": "a@x.com", "password": "p4ssword"})
		require.Equal(t, http.StatusOK, res.StatusCode)

		stale := kitsune.NewTokenClaims("1", time.Now().Add(-2*time.Hour), time.Hour, env.cfg.ProjectName)
		signer := env.tokens.(*kitsune.HMACTokenService)
		token, err := signer.SignClaims(stale)
		require.NoError(t, err)

		res, _ = authedGet(t, env, "/api/v1/users/", token)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})

	t.Run("reports 404 for a token whose subject is gone", func(t *testing.T) {
		env := newTestEnv(t)

		token, err := env.tokens.Generate("9999")
		require.NoError(t, err)

		res, body := authedGet(t, env, "/api/v1/users/", token)

		assert.Equal(t, http.StatusNotFound, res.StatusCode)

		var payload server.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "User not found", payload.Message)
	})

	t.Run("rejects an inactive caller", func(t *testing.T) {
		env := newTestEnv(t)

		created, err := env.users.CreateUser(context.Background(), kitsune.CreateUserInput{
			Email:    "sleeper@x.com",
			Password: "p4ssword",
		})
		require.NoError(t, err)

		token, err := env.tokens.Generate(created.Subject())
		require.NoError(t, err)

		inactive := false
		_, err = env.users.CreateUser(context.Background(), kitsune.CreateUserInput{
			Email:    "other@x.com",
			Password: "p4ssword",
			Active:   &inactive,
		})
		require.NoError(t, err)

		otherToken, err := env.tokens.Generate("2")
		require.NoError(t, err)

		res, body := authedGet(t, env, "/api/v1/users/", otherToken)

		assert.Equal(t, http.StatusBadRequest, res.StatusCode)

		var payload server.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "Inactive user", payload.Message)

		res, _ = authedGet(t, env, "/api/v1/users/", token)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("lists users in pages", func(t *testing.T) {
		env := newTestEnv(t)

		for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
			res, _ := env.registerJSON(t, map[string]any{"email": email, "password": "p4ssword"})
			require.Equal(t, http.StatusOK, res.StatusCode)
		}

		token := obtainToken(t, env, "a@x.com", "p4ssword")

		res, body := authedGet(t, env, "/api/v1/users/?page=1&size=2", token)

		assert.Equal(t, http.StatusOK, res.StatusCode)

		var page struct {
			Items []map[string]any `json:"items"`
			Total int              `json:"total"`
			Page  int              `json:"page"`
			Size  int              `json:"size"`
			Pages int              `json:"pages"`
		}
		require.NoError(t, json.Unmarshal(body, &page))
		assert.Equal(t, 3, page.Total)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 2, page.Size)
		assert.Equal(t, 2, page.Pages)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "a@x.com", page.Items[0]["email"])
		assert.Equal(t, "b@x.com", page.Items[1]["email"])
		assert.NotContains(t, string(body), "password")

		res, body = authedGet(t, env, "/api/v1/users/?page=2&size=2", token)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.NoError(t, json.Unmarshal(body, &page))
		require.Len(t, page.Items, 1)
		assert.Equal(t, "c@x.com", page.Items[0]["email"])
	})

	t.Run("rejects an out-of-range page size", func(t *testing.T) {
		env := newTestEnv(t)
		res, _ := env.registerJSON(t, map[string]any{"email": "a@x.com", "password": "p4ssword"})
		require.Equal(t, http.StatusOK, res.StatusCode)

		token := obtainToken(t, env, "a@x.com", "p4ssword")

		res, _ = authedGet(t, env, "/api/v1/users/?page=1&size=500", token)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

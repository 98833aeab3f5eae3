package middleware_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fixture struct {
	app   *fiber.App
	auth  *services.AuthService
	user  *models.User
	staff *models.User
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	user := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	staff := &models.User{Username: "boss", Email: "boss@example.com", Password: "hash", IsStaff: true}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(staff).Error)

	auth := services.NewAuthService(
		repositories.NewGORMUserRepository(db),
		repositories.NewMemorySessionStore(time.Hour),
		config.AuthConfig{JWTSecret: "test_jwt_secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour},
	)

	app := fiber.New()
	app.Get("/me", middleware.AuthRequired(auth), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":  middleware.UserID(c),
			"is_staff": middleware.IsStaff(c),
			"session":  middleware.SessionID(c),
		})
	})
	app.Get("/staff", middleware.AuthRequired(auth), middleware.StaffRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return fixture{app: app, auth: auth, user: user, staff: staff}
}

func get(t *testing.T, app *fiber.App, path string, mutate func(*http.Request)) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if mutate != nil {
		mutate(req)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthRequired_NoCredentials(t *testing.T) {
	f := setup(t)
	resp := get(t, f.app, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired_MalformedHeader(t *testing.T) {
	f := setup(t)
	for _, header := range []string{"Token abc", "Bearer", "Bearer not-a-jwt"} {
		resp := get(t, f.app, "/me", func(r *http.Request) { r.Header.Set("Authorization", header) })
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, header)
	}
}

func TestAuthRequired_Bearer(t *testing.T) {
	f := setup(t)
	pair, err := f.auth.IssueTokenPair(f.user)
	require.NoError(t, err)

	resp := get(t, f.app, "/me", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+pair.Access) })
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, decodeJSON(resp, &body))
	assert.Equal(t, float64(f.user.ID), body["user_id"])
	assert.Equal(t, false, body["is_staff"])
	assert.Equal(t, "", body["session"])
}

func TestAuthRequired_SessionCookie(t *testing.T) {
	f := setup(t)
	sessionID, err := f.auth.StartSession(context.Background(), f.user)
	require.NoError(t, err)

	withCookie := func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: sessionID})
	}
	resp := get(t, f.app, "/me", withCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, decodeJSON(resp, &body))
	assert.Equal(t, float64(f.user.ID), body["user_id"])
	assert.Equal(t, sessionID, body["session"])

	require.NoError(t, f.auth.EndSession(context.Background(), sessionID))
	resp = get(t, f.app, "/me", withCookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStaffRequired(t *testing.T) {
	f := setup(t)

	userPair, err := f.auth.IssueTokenPair(f.user)
	require.NoError(t, err)
	staffPair, err := f.auth.IssueTokenPair(f.staff)
	require.NoError(t, err)

	resp := get(t, f.app, "/staff", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+userPair.Access) })
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = get(t, f.app, "/staff", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+staffPair.Access) })
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func decodeJSON(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anime-loyalty-system/models"
	"anime-loyalty-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	app        *fiber.App
	db         *gorm.DB
	auth       *services.AuthService
	affiliates *services.AffiliateService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.PointRecord{},
		&models.Activity{},
		&models.DailyTaskState{},
		&models.Product{},
		&models.Purchase{},
		&models.Affiliate{},
		&models.AffiliateClick{},
		&models.AffiliateConversion{},
		&models.AnalyticsEvent{},
	))

	points := services.NewPointsService(db)
	tasks := services.NewDailyTaskService(db, points)
	auth := services.NewAuthService(db, points, tasks, "test-secret", time.Hour)
	affiliates := services.NewAffiliateService(db, 5.0, 0.1)
	analytics := services.NewAnalyticsService(db)

	app := fiber.New()
	SetupAuthRoutes(app, auth, affiliates, analytics)
	SetupAffiliateRoutes(app, db, auth, affiliates, 30*24*time.Hour)

	return &testEnv{app: app, db: db, auth: auth, affiliates: affiliates}
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/auth/register", fiber.Map{
		"email":    "gendo@example.com",
		"password": "hunter2hunter2",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
		User  struct {
			Email  string `json:"email"`
			Points int    `json:"points"`
			Tier   string `json:"tier"`
		} `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	require.Equal(t, "gendo@example.com", body.User.Email)
	require.Zero(t, body.User.Points)
	require.Equal(t, "bronze", body.User.Tier)

	// The session cookie rides along with the JSON token.
	var sawSession bool
	for _, c := range resp.Cookies() {
		if c.Name == "session_token" && c.Value != "" {
			sawSession = true
		}
	}
	require.True(t, sawSession)
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	env := newTestEnv(t)

	payload := fiber.Map{"email": "yui@example.com", "password": "hunter2hunter2"}
	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/auth/register", payload), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/auth/register", payload), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestLoginAndSessionEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/auth/register", fiber.Map{
		"email":    "kaworu@example.com",
		"password": "hunter2hunter2",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/auth/login", fiber.Map{
		"email":    "kaworu@example.com",
		"password": "hunter2hunter2",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	resp, err = env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var profile struct {
		Email string `json:"email"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	require.Equal(t, "kaworu@example.com", profile.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/auth/register", fiber.Map{
		"email":    "pen@example.com",
		"password": "hunter2hunter2",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/auth/login", fiber.Map{
		"email":    "pen@example.com",
		"password": "wrong-password",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSessionWithoutToken(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/auth/session", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterAttributesReferralSignup(t *testing.T) {
	env := newTestEnv(t)

	owner, err := env.auth.Register("owner@example.com", "hunter2hunter2")
	require.NoError(t, err)
	affiliate, err := env.affiliates.CreateAffiliate(owner.ID)
	require.NoError(t, err)

	req := jsonRequest(http.MethodPost, "/auth/register", fiber.Map{
		"email":    "referred@example.com",
		"password": "hunter2hunter2",
	})
	req.AddCookie(&http.Cookie{Name: services.ReferralCookieName, Value: affiliate.ReferralCode})

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var conversion models.AffiliateConversion
	require.NoError(t, env.db.First(&conversion, "affiliate_id = ?", affiliate.ID).Error)
	require.Equal(t, models.ConversionSignup, conversion.ConversionType)
	require.InDelta(t, 5.0, conversion.CommissionAmount, 1e-9)

	// The cookie is spent on the conversion.
	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == services.ReferralCookieName && c.Value == "" {
			cleared = true
		}
	}
	require.True(t, cleared)
}

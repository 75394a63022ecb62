package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	identityapp "github.com/resepku/backend/internal/application/identity"
	recipeapp "github.com/resepku/backend/internal/application/recipe"
	"github.com/resepku/backend/internal/infrastructure/auth"
	"github.com/resepku/backend/internal/infrastructure/config"
	"github.com/resepku/backend/internal/infrastructure/persistence"
	"github.com/resepku/backend/internal/infrastructure/sanitize"
	"github.com/resepku/backend/internal/infrastructure/storage"
	"github.com/resepku/backend/internal/infrastructure/telemetry"
	"github.com/resepku/backend/internal/interfaces/http/router"
	"github.com/resepku/backend/tests/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testPassword = "rahasia123"

type testServer struct {
	api       *testutil.APIClient
	db        *TestDB
	blacklist auth.TokenBlacklist
	registry  *prometheus.Registry
}

// newTestServer wires the full engine over PostgreSQL and the Redis blacklist
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	testDB := NewSharedTestDB(t)
	blacklist := auth.NewRedisTokenBlacklist(NewTestRedis(t))
	log := zaptest.NewLogger(t)

	cfg := &config.Config{
		App: config.AppConfig{Name: "resepku", Env: "test"},
		HTTP: config.HTTPConfig{
			MaxBodySize:      2 << 20,
			CORSAllowOrigins: []string{"http://localhost:3000"},
			CORSAllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			CORSAllowHeaders: []string{"Authorization", "Content-Type"},
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "integration-test-secret-at-least-32-chars",
		RefreshSecret:          "integration-test-refresh-secret-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "resepku-integration",
		MaxRefreshCount:        3,
	})
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	sessions := identityapp.NewSessionService(
		persistence.NewGormUserRepository(testDB.DB), jwtService, blacklist,
		identityapp.WithLogger(log), identityapp.WithRecorder(metrics),
	)
	recipes := recipeapp.NewService(
		persistence.NewGormRecipeRepository(testDB.DB),
		recipeapp.WithImageStore(storage.InlineImageStore{}),
		recipeapp.WithSanitizer(sanitize.NewPlainText()),
		recipeapp.WithRecorder(metrics),
		recipeapp.WithLogger(log),
	)

	engine, err := router.NewEngine(router.Dependencies{
		Config:    cfg,
		Logger:    log,
		Version:   "integration",
		JWT:       jwtService,
		Blacklist: blacklist,
		Sessions:  sessions,
		Recipes:   recipes,
		DB:        &persistence.Database{DB: testDB.DB},
		Metrics:   metrics,
		Gatherer:  reg,
	})
	require.NoError(t, err)

	return &testServer{
		api:       testutil.NewAPIClient(engine, "/api/v1"),
		db:        testDB,
		blacklist: blacklist,
		registry:  reg,
	}
}

func (s *testServer) signUp(t *testing.T, email, name string) identityapp.SessionResult {
	t.Helper()
	w := s.api.Do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":            email,
		"password":         testPassword,
		"confirm_password": testPassword,
		"display_name":     name,
	})
	require.Equal(t, http.StatusCreated, w.Code, testutil.StatusText(w))
	return testutil.DecodeData[identityapp.SessionResult](t, w)
}

func recipePayload(title, category string) map[string]any {
	return map[string]any{
		"title":       title,
		"description": "Resep rumahan",
		"category":    category,
		"servings":    4,
		"cook_time":   45,
		"difficulty":  "Medium",
		"ingredients": []map[string]string{
			{"name": "Daging sapi", "amount": "500", "unit": "gram"},
			{"name": "Santan", "amount": "400", "unit": "ml"},
		},
		"instructions": []string{"Tumis bumbu", "Masukkan daging", "Masak hingga empuk"},
		"nutrition":    map[string]string{"calories": "450.5", "protein": "30", "carbs": "12", "fat": "28.25"},
	}
}

func (s *testServer) createRecipe(t *testing.T, token, title, category string) recipeapp.RecipeResponse {
	t.Helper()
	w := s.api.Do(t, http.MethodPost, "/recipes", token, recipePayload(title, category))
	require.Equal(t, http.StatusCreated, w.Code, testutil.StatusText(w))
	return testutil.DecodeData[recipeapp.RecipeResponse](t, w)
}

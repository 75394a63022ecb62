package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	identityapp "github.com/resepku/backend/internal/application/identity"
	recipeapp "github.com/resepku/backend/internal/application/recipe"
	"github.com/resepku/backend/internal/infrastructure/auth"
	"github.com/resepku/backend/internal/infrastructure/config"
	"github.com/resepku/backend/internal/infrastructure/persistence"
	"github.com/resepku/backend/internal/infrastructure/persistence/models"
	"github.com/resepku/backend/internal/infrastructure/sanitize"
	"github.com/resepku/backend/internal/infrastructure/storage"
	"github.com/resepku/backend/internal/interfaces/http/dto"
	"github.com/resepku/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type testAPI struct {
	engine    *gin.Engine
	jwt       *auth.JWTService
	blacklist *auth.InMemoryTokenBlacklist
}

type apiOptions struct {
	noImages bool
}

// newTestAPI wires the real services and repositories over an in-memory
// SQLite database and mounts the handlers the way the router does.
func newTestAPI(t *testing.T, opts ...func(*apiOptions)) *testAPI {
	t.Helper()
	var o apiOptions
	for _, opt := range opts {
		opt(&o)
	}
	middleware.SetupValidator()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.UserModel{}, &models.RecipeModel{}))

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "handler-test-secret-at-least-32-chars",
		RefreshSecret:          "handler-test-refresh-secret-32-chars!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "resepku-test",
		MaxRefreshCount:        5,
	})
	blacklist := auth.NewInMemoryTokenBlacklist()

	sessions := identityapp.NewSessionService(persistence.NewGormUserRepository(db), jwtService, blacklist)
	recipeOpts := []recipeapp.Option{recipeapp.WithSanitizer(sanitize.NewPlainText())}
	if !o.noImages {
		recipeOpts = append(recipeOpts, recipeapp.WithImageStore(storage.InlineImageStore{}))
	}
	recipes := recipeapp.NewService(persistence.NewGormRecipeRepository(db), recipeOpts...)

	jwtCfg := middleware.JWTMiddlewareConfig{JWTService: jwtService, TokenBlacklist: blacklist}
	requireAuth := middleware.JWTAuthMiddlewareWithConfig(jwtCfg)
	optionalAuth := middleware.OptionalJWTAuthMiddleware(jwtCfg)

	authHandler := NewAuthHandler(sessions)
	recipeHandler := NewRecipeHandler(recipes)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.BodyLimit(1<<20))
	api := engine.Group("/api/v1")

	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.RefreshToken)
	api.POST("/auth/logout", requireAuth, authHandler.Logout)
	api.GET("/auth/me", optionalAuth, authHandler.GetCurrentUser)

	api.GET("/recipes", optionalAuth, recipeHandler.List)
	api.GET("/recipes/search", optionalAuth, recipeHandler.Search)
	api.GET("/recipes/form", optionalAuth, recipeHandler.Form)
	api.GET("/recipes/:id", optionalAuth, recipeHandler.Get)
	api.POST("/recipes", requireAuth, recipeHandler.Create)
	api.POST("/recipes/images", requireAuth, recipeHandler.UploadImage)
	api.GET("/recipes/:id/form", requireAuth, recipeHandler.EditForm)
	api.PATCH("/recipes/:id", requireAuth, recipeHandler.Update)
	api.DELETE("/recipes/:id", requireAuth, recipeHandler.Delete)
	api.GET("/me/recipes", requireAuth, recipeHandler.MyRecipes)
	api.GET("/me/recipes/stats", requireAuth, recipeHandler.Stats)

	return &testAPI{engine: engine, jwt: jwtService, blacklist: blacklist}
}

func withoutImageStore(o *apiOptions) { o.noImages = true }

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	env := decode(t, w)
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// register signs up a user and returns the session
func (a *testAPI) register(t *testing.T, email, name string) identityapp.SessionResult {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":            email,
		"password":         "rahasia123",
		"confirm_password": "rahasia123",
		"display_name":     name,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[identityapp.SessionResult](t, w)
}

func validRecipe(title, category string) map[string]any {
	return map[string]any{
		"title":       title,
		"description": "Resep keluarga",
		"category":    category,
		"servings":    2,
		"cook_time":   30,
		"difficulty":  "Easy",
		"ingredients": []map[string]string{
			{"name": "Nasi", "amount": "2", "unit": "piring"},
		},
		"instructions": []string{"Panaskan minyak", "Masukkan nasi"},
	}
}

func (a *testAPI) createRecipe(t *testing.T, token, title, category string) recipeapp.RecipeResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/recipes", token, validRecipe(title, category))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[recipeapp.RecipeResponse](t, w)
}

package integration

import (
	"net/http"
	"strings"
	"testing"

	recipeapp "github.com/resepku/backend/internal/application/recipe"
	"github.com/resepku/backend/internal/domain/recipe"
	"github.com/resepku/backend/internal/interfaces/http/dto"
	"github.com/resepku/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipeFlow_OwnerLifecycle(t *testing.T) {
	s := newTestServer(t)
	owner := s.signUp(t, "koki@example.com", "Koki")
	guest := s.signUp(t, "tamu@example.com", "Tamu")
	token := owner.Token.AccessToken

	created := s.createRecipe(t, token, "Rendang Padang", recipe.CategoryDaging)
	assert.Equal(t, owner.User.ID, created.OwnerID)
	assert.Equal(t, "Sedang", created.DifficultyLabel)
	assert.True(t, created.Nutrition.Fat.Equal(decimal.RequireFromString("28.25")))

	path := "/recipes/" + created.ID.String()

	t.Run("anyone can read", func(t *testing.T) {
		w := s.api.Do(t, http.MethodGet, path, "", nil)
		got := testutil.DecodeData[recipeapp.RecipeResponse](t, w)
		assert.Equal(t, created.Ingredients, got.Ingredients)
		assert.Equal(t, created.Instructions, got.Instructions)
	})

	t.Run("other users are forbidden", func(t *testing.T) {
		w := s.api.Do(t, http.MethodPatch, path, guest.Token.AccessToken, map[string]any{"title": "Curian"})
		testutil.AssertError(t, w, http.StatusForbidden, dto.ErrCodeForbidden)

		w = s.api.Do(t, http.MethodDelete, path, guest.Token.AccessToken, nil)
		testutil.AssertError(t, w, http.StatusForbidden, dto.ErrCodeForbidden)

		w = s.api.Do(t, http.MethodGet, path+"/form", guest.Token.AccessToken, nil)
		testutil.AssertError(t, w, http.StatusForbidden, dto.ErrCodeForbidden)
	})

	t.Run("partial update keeps the rest", func(t *testing.T) {
		w := s.api.Do(t, http.MethodPatch, path, token, map[string]any{
			"servings": 6,
			"owner_id": guest.User.ID,
		})
		updated := testutil.DecodeData[recipeapp.RecipeResponse](t, w)
		assert.Equal(t, 6, updated.Servings)
		assert.Equal(t, "Rendang Padang", updated.Title)
		assert.Equal(t, owner.User.ID, updated.OwnerID)
		assert.Equal(t, created.CreatedAt.UTC(), updated.CreatedAt.UTC())
	})

	t.Run("owner stats", func(t *testing.T) {
		s.createRecipe(t, token, "Nasi Uduk", recipe.CategoryNasi)
		w := s.api.Do(t, http.MethodGet, "/me/recipes/stats", token, nil)
		stats := testutil.DecodeData[recipeapp.OwnerStatsResponse](t, w)
		assert.Equal(t, int64(2), stats.Total)
		assert.Equal(t, int64(1), stats.ByCategory[recipe.CategoryNasi])
		require.NotNil(t, stats.LatestCreatedAt)
		assert.False(t, stats.LatestCreatedAt.Before(created.CreatedAt))
	})

	t.Run("delete then gone", func(t *testing.T) {
		w := s.api.Do(t, http.MethodDelete, path, token, nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = s.api.Do(t, http.MethodGet, path, "", nil)
		testutil.AssertError(t, w, http.StatusNotFound, dto.ErrCodeNotFound)

		w = s.api.Do(t, http.MethodDelete, path, token, nil)
		testutil.AssertError(t, w, http.StatusNotFound, dto.ErrCodeNotFound)
	})
}

func TestRecipeFlow_ListingsAndSearch(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp(t, "alice@example.com", "Alice")
	bob := s.signUp(t, "bob@example.com", "Bob")

	s.createRecipe(t, alice.Token.AccessToken, "Nasi Kuning", recipe.CategoryNasi)
	s.createRecipe(t, bob.Token.AccessToken, "Sup Jagung", recipe.CategorySup)
	s.createRecipe(t, alice.Token.AccessToken, "Es Teler", recipe.CategoryDessert)

	w := s.api.Do(t, http.MethodGet, "/recipes", "", nil)
	all := testutil.DecodeData[[]recipeapp.RecipeResponse](t, w)
	require.Len(t, all, 3)
	assert.Equal(t, "Es Teler", all[0].Title)
	assert.Equal(t, 3, testutil.DecodeEnvelope(t, w).Meta.Total)

	w = s.api.Do(t, http.MethodGet, "/me/recipes", alice.Token.AccessToken, nil)
	mine := testutil.DecodeData[[]recipeapp.RecipeResponse](t, w)
	require.Len(t, mine, 2)
	for _, r := range mine {
		assert.Equal(t, alice.User.ID, r.OwnerID)
	}

	w = s.api.Do(t, http.MethodGet, "/recipes/search?q=JAGUNG", "", nil)
	found := testutil.DecodeData[[]recipeapp.RecipeResponse](t, w)
	require.Len(t, found, 1)
	assert.Equal(t, "Sup Jagung", found[0].Title)

	w = s.api.Do(t, http.MethodGet, "/recipes/search?category=Nasi", "", nil)
	assert.Len(t, testutil.DecodeData[[]recipeapp.RecipeResponse](t, w), 1)

	w = s.api.Do(t, http.MethodGet, "/recipes/search?category=Pizza", "", nil)
	testutil.AssertError(t, w, http.StatusUnprocessableEntity, dto.ErrCodeValidation)
}

func TestRecipeFlow_ImageUpload(t *testing.T) {
	s := newTestServer(t)
	session := s.signUp(t, "foto@example.com", "")

	// 1x1 transparent PNG
	const pixel = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

	w := s.api.Do(t, http.MethodPost, "/recipes/images", session.Token.AccessToken, map[string]string{"image": pixel})
	require.Equal(t, http.StatusCreated, w.Code, testutil.StatusText(w))
	uploaded := testutil.DecodeData[recipeapp.ImageUploadResponse](t, w)
	assert.True(t, strings.HasPrefix(uploaded.Image, "data:image/png;base64,"))

	payload := recipePayload("Pisang Goreng", recipe.CategoryGorengan)
	payload["image"] = uploaded.Image
	w = s.api.Do(t, http.MethodPost, "/recipes", session.Token.AccessToken, payload)
	created := testutil.DecodeData[recipeapp.RecipeResponse](t, w)
	assert.Equal(t, uploaded.Image, created.Image)
}

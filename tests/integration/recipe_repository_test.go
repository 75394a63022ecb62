package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/resepku/backend/internal/domain/identity"
	"github.com/resepku/backend/internal/domain/recipe"
	"github.com/resepku/backend/internal/domain/shared"
	"github.com/resepku/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, db *TestDB, email string) *identity.User {
	t.Helper()
	u, err := identity.NewUser(email, testPassword, "")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormUserRepository(db.DB).Create(context.Background(), u))
	return u
}

func newRecipe(t *testing.T, owner uuid.UUID, title, description, category string) *recipe.Recipe {
	t.Helper()
	r, err := recipe.New(owner, recipe.Draft{
		Title:        title,
		Description:  description,
		Category:     category,
		Servings:     2,
		Ingredients:  []recipe.Ingredient{{Name: "Bawang merah", Amount: "5", Unit: "siung"}},
		Instructions: []string{"Iris tipis", "Goreng"},
		Nutrition: recipe.Nutrition{
			Calories: decimal.RequireFromString("320.75"),
			Protein:  decimal.NewFromInt(12),
		},
	})
	require.NoError(t, err)
	return r
}

func TestPostgresRecipeRepository_RoundTrip(t *testing.T) {
	db := NewSharedTestDB(t)
	repo := persistence.NewGormRecipeRepository(db.DB)
	ctx := context.Background()
	owner := seedUser(t, db, "pemilik@example.com")

	rec := newRecipe(t, owner.ID, "Rendang", "Daging bumbu kelapa", recipe.CategoryDaging)
	require.NoError(t, repo.Create(ctx, rec))
	require.NotEqual(t, uuid.Nil, rec.ID)
	require.False(t, rec.CreatedAt.IsZero())

	got, err := repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.OwnerID)
	assert.Equal(t, rec.Ingredients, got.Ingredients)
	assert.Equal(t, rec.Instructions, got.Instructions)
	assert.True(t, rec.Nutrition.Equal(got.Nutrition), "nutrition survives JSONB: %v", got.Nutrition)
	assert.Equal(t, recipe.DifficultyMedium, got.Difficulty)
	assert.Equal(t, recipe.DefaultImage, got.Image)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestPostgresRecipeRepository_UpdateKeepsOwnerAndCreatedAt(t *testing.T) {
	db := NewSharedTestDB(t)
	repo := persistence.NewGormRecipeRepository(db.DB)
	ctx := context.Background()
	owner := seedUser(t, db, "ubah@example.com")

	rec := newRecipe(t, owner.ID, "Soto", "Kuah kuning", recipe.CategorySup)
	require.NoError(t, repo.Create(ctx, rec))
	created := rec.CreatedAt

	title := "Soto Ayam"
	require.NoError(t, rec.Apply(recipe.Patch{Title: &title}))
	rec.OwnerID = uuid.New()
	require.NoError(t, repo.Update(ctx, rec))

	got, err := repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Soto Ayam", got.Title)
	assert.Equal(t, owner.ID, got.OwnerID, "user_id is not a mutable column")
	assert.WithinDuration(t, created, got.CreatedAt, time.Millisecond)

	ghost := newRecipe(t, owner.ID, "Hantu", "", recipe.CategorySup)
	ghost.ID = uuid.New()
	assert.True(t, errors.Is(repo.Update(ctx, ghost), shared.ErrNotFound))
}

func TestPostgresRecipeRepository_DeleteAndCascade(t *testing.T) {
	db := NewSharedTestDB(t)
	repo := persistence.NewGormRecipeRepository(db.DB)
	ctx := context.Background()
	owner := seedUser(t, db, "hapus@example.com")

	first := newRecipe(t, owner.ID, "Bakwan", "", recipe.CategoryGorengan)
	second := newRecipe(t, owner.ID, "Tempe Mendoan", "", recipe.CategoryGorengan)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.True(t, errors.Is(repo.Delete(ctx, first.ID), shared.ErrNotFound))

	require.NoError(t, db.DB.Exec("DELETE FROM users WHERE id = ?", owner.ID).Error)
	_, err := repo.FindByID(ctx, second.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound), "recipes go away with their owner")
}

func TestPostgresRecipeRepository_ListingOrderAndOwnerFilter(t *testing.T) {
	db := NewSharedTestDB(t)
	repo := persistence.NewGormRecipeRepository(db.DB)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")

	var titles []string
	for i, title := range []string{"Pertama", "Kedua", "Ketiga"} {
		owner := alice.ID
		if i == 1 {
			owner = bob.ID
		}
		require.NoError(t, repo.Create(ctx, newRecipe(t, owner, title, "", recipe.CategoryNasi)))
		titles = append(titles, title)
		time.Sleep(5 * time.Millisecond)
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{titles[2], titles[1], titles[0]}, recipeTitles(all))

	mine, err := repo.FindByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ketiga", "Pertama"}, recipeTitles(mine))

	none, err := repo.FindByOwner(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPostgresRecipeRepository_Search(t *testing.T) {
	db := NewSharedTestDB(t)
	repo := persistence.NewGormRecipeRepository(db.DB)
	ctx := context.Background()
	owner := seedUser(t, db, "cari@example.com")

	for _, r := range []*recipe.Recipe{
		newRecipe(t, owner.ID, "Nasi Goreng Kampung", "Pedas manis", recipe.CategoryNasi),
		newRecipe(t, owner.ID, "Sop Buntut", "Kuah bening dengan nasi", recipe.CategorySup),
		newRecipe(t, owner.ID, "Diskon 100%", "Es campur", recipe.CategoryDessert),
		newRecipe(t, owner.ID, "Crème Brûlée", "Karamel", recipe.CategoryDessert),
	} {
		require.NoError(t, repo.Create(ctx, r))
		time.Sleep(5 * time.Millisecond)
	}

	tests := []struct {
		name   string
		filter recipe.SearchFilter
		want   []string
	}{
		{name: "empty filter returns everything", filter: recipe.SearchFilter{}, want: []string{"Crème Brûlée", "Diskon 100%", "Sop Buntut", "Nasi Goreng Kampung"}},
		{name: "case insensitive title or description", filter: recipe.SearchFilter{Query: "NASI"}, want: []string{"Sop Buntut", "Nasi Goreng Kampung"}},
		{name: "category narrows the query", filter: recipe.SearchFilter{Query: "nasi", Category: recipe.CategoryNasi}, want: []string{"Nasi Goreng Kampung"}},
		{name: "category only", filter: recipe.SearchFilter{Category: recipe.CategoryDessert}, want: []string{"Crème Brûlée", "Diskon 100%"}},
		{name: "percent is literal", filter: recipe.SearchFilter{Query: "%"}, want: []string{"Diskon 100%"}},
		{name: "underscore is literal", filter: recipe.SearchFilter{Query: "_"}, want: []string{}},
		{name: "unicode folding", filter: recipe.SearchFilter{Query: "CRÈME"}, want: []string{"Crème Brûlée"}},
		{name: "injection attempt is just text", filter: recipe.SearchFilter{Query: "' OR 1=1 --"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Search(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, recipeTitles(got))
		})
	}
}

func TestPostgresRecipeRepository_CountByCategory(t *testing.T) {
	db := NewSharedTestDB(t)
	repo := persistence.NewGormRecipeRepository(db.DB)
	ctx := context.Background()
	owner := seedUser(t, db, "hitung@example.com")
	other := seedUser(t, db, "lain@example.com")

	for _, c := range []string{recipe.CategoryNasi, recipe.CategoryNasi, recipe.CategorySeafood} {
		require.NoError(t, repo.Create(ctx, newRecipe(t, owner.ID, "Resep "+c, "", c)))
	}
	require.NoError(t, repo.Create(ctx, newRecipe(t, other.ID, "Punya orang", "", recipe.CategoryNasi)))

	counts, err := repo.CountByCategory(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{recipe.CategoryNasi: 2, recipe.CategorySeafood: 1}, counts)

	mine, err := repo.FindByOwner(ctx, owner.ID)
	require.NoError(t, err)
	latest, err := repo.LatestCreatedAt(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, mine[0].CreatedAt.Equal(latest), "latest %s, newest %s", latest, mine[0].CreatedAt)

	none, err := repo.LatestCreatedAt(ctx, seedUser(t, db, "kosong@example.com").ID)
	require.NoError(t, err)
	assert.True(t, none.IsZero())
}

func recipeTitles(rs []*recipe.Recipe) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Title)
	}
	return out
}

package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/resepku/backend/internal/domain/identity"
	"github.com/resepku/backend/internal/domain/recipe"
	"github.com/resepku/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// ============================================================================
// Mocks
// ============================================================================

type MockRecipeRepository struct {
	mock.Mock
}

func (m *MockRecipeRepository) Create(ctx context.Context, r *recipe.Recipe) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) FindAll(ctx context.Context) ([]*recipe.Recipe, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]*recipe.Recipe, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) Search(ctx context.Context, filter recipe.SearchFilter) ([]*recipe.Recipe, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) Update(ctx context.Context, r *recipe.Recipe) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRecipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRecipeRepository) CountByCategory(ctx context.Context, ownerID uuid.UUID) (map[string]int64, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockRecipeRepository) LatestCreatedAt(ctx context.Context, ownerID uuid.UUID) (time.Time, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(time.Time), args.Error(1)
}

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Put(ctx context.Context, ownerID uuid.UUID, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, ownerID, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) Remove(ctx context.Context, ref string) error {
	return m.Called(ctx, ref).Error(0)
}

type recordedOp struct {
	op  string
	err error
}

type fakeRecorder struct {
	ops []recordedOp
}

func (f *fakeRecorder) RecordRecipeOp(op string, err error) {
	f.ops = append(f.ops, recordedOp{op: op, err: err})
}

type nulStripper struct{}

func (nulStripper) Text(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// ============================================================================
// Helpers
// ============================================================================

var (
	alice = identity.Identity{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Email: "alice@example.com", DisplayName: "Alice"}
	bob   = identity.Identity{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Email: "bob@example.com", DisplayName: "Bob"}
	anon  = identity.Identity{}
)

func nasiGorengRequest() CreateRecipeRequest {
	return CreateRecipeRequest{
		Title:       "Nasi Goreng",
		Description: "Nasi goreng kampung",
		Category:    recipe.CategoryNasi,
		Servings:    2,
		CookTime:    15,
		Difficulty:  "mudah",
		Ingredients: []recipe.Ingredient{
			{Name: "Nasi putih", Amount: "2", Unit: "piring"},
			{Name: "", Amount: "", Unit: "gram"},
		},
		Instructions: []string{"Tumis bumbu", "  ", "Masukkan nasi"},
		Nutrition: &recipe.Nutrition{
			Calories: decimal.NewFromInt(450),
			Protein:  decimal.NewFromInt(12),
			Carbs:    decimal.NewFromInt(60),
			Fat:      decimal.NewFromInt(15),
		},
	}
}

func storedRecipe(t *testing.T, owner identity.Identity, title string) *recipe.Recipe {
	t.Helper()
	r, err := recipe.New(owner.ID, recipe.Draft{
		Title:        title,
		Category:     recipe.CategoryNasi,
		Servings:     2,
		Image:        "https://cdn.example.com/recipes/old.png",
		Ingredients:  []recipe.Ingredient{{Name: "Nasi", Amount: "1", Unit: "piring"}},
		Instructions: []string{"Masak"},
	})
	require.NoError(t, err)
	r.ID = uuid.New()
	r.CreatedAt = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	r.UpdatedAt = r.CreatedAt
	return r
}

func strPtr(s string) *string { return &s }

// ============================================================================
// Create
// ============================================================================

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous caller is rejected", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)

		_, err := svc.Create(ctx, anon, nasiGorengRequest())
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("owner comes from the caller and server fields are returned", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)

		id := uuid.New()
		created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(r *recipe.Recipe) bool {
			return r.OwnerID == alice.ID
		})).Run(func(args mock.Arguments) {
			r := args.Get(1).(*recipe.Recipe)
			r.ID = id
			r.CreatedAt = created
			r.UpdatedAt = created
		}).Return(nil)

		got, err := svc.Create(ctx, alice, nasiGorengRequest())
		require.NoError(t, err)

		want := &RecipeResponse{
			ID:              id,
			OwnerID:         alice.ID,
			Title:           "Nasi Goreng",
			Description:     "Nasi goreng kampung",
			Category:        recipe.CategoryNasi,
			Servings:        2,
			CookTime:        15,
			Difficulty:      "Easy",
			DifficultyLabel: "Mudah",
			Image:           recipe.DefaultImage,
			Ingredients:     []recipe.Ingredient{{Name: "Nasi putih", Amount: "2", Unit: "piring"}},
			Instructions:    []string{"Tumis bumbu", "Masukkan nasi"},
			Nutrition:       *nasiGorengRequest().Nutrition,
			CreatedAt:       created,
			UpdatedAt:       created,
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Create() mismatch (-want +got):\n%s", diff)
		}
		repo.AssertExpectations(t)
	})

	t.Run("incomplete form is a validation error", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)

		req := nasiGorengRequest()
		req.Title = "   "
		req.Instructions = []string{""}

		_, err := svc.Create(ctx, alice, req)
		require.ErrorIs(t, err, shared.ErrValidation)

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Contains(t, de.Details, "title")
		assert.Contains(t, de.Details, "instructions")
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("sanitizer runs before saving", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo, WithSanitizer(nulStripper{}))

		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		req := nasiGorengRequest()
		req.Title = "Nasi\x00 Goreng"
		req.Instructions = []string{"Aduk\x00 rata"}

		got, err := svc.Create(ctx, alice, req)
		require.NoError(t, err)
		assert.Equal(t, "Nasi Goreng", got.Title)
		assert.Equal(t, []string{"Aduk rata"}, got.Instructions)
	})

	t.Run("text with markup characters is stored as typed", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)

		var saved *recipe.Recipe
		repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			saved = args.Get(1).(*recipe.Recipe)
		}).Return(nil)

		req := nasiGorengRequest()
		req.Title = "a<b"
		req.Description = "Fish & chips <3 a<b"
		req.Instructions = []string{"Panggang < 180 derajat", "&lt;b&gt;"}

		got, err := svc.Create(ctx, alice, req)
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, "a<b", saved.Title)
		assert.Equal(t, "Fish & chips <3 a<b", got.Description)
		assert.Equal(t, []string{"Panggang < 180 derajat", "&lt;b&gt;"}, got.Instructions)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		rec := &fakeRecorder{}
		svc := NewService(repo, WithRecorder(rec))

		storeErr := shared.NewStoreError("create recipe", errors.New("connection reset"))
		repo.On("Create", mock.Anything, mock.Anything).Return(storeErr)

		_, err := svc.Create(ctx, alice, nasiGorengRequest())
		assert.ErrorIs(t, err, shared.ErrStore)
		assert.ErrorContains(t, err, "connection reset")
		require.Len(t, rec.ops, 1)
		assert.Equal(t, OpCreate, rec.ops[0].op)
		assert.ErrorIs(t, rec.ops[0].err, shared.ErrStore)
	})
}

// ============================================================================
// Reads
// ============================================================================

func TestService_Reads(t *testing.T) {
	ctx := context.Background()

	t.Run("anyone can read a recipe", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)
		r := storedRecipe(t, alice, "Nasi Goreng")
		repo.On("FindByID", mock.Anything, r.ID).Return(r, nil)

		got, err := svc.GetByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.ID, got.ID)
		assert.Equal(t, alice.ID, got.OwnerID)
	})

	t.Run("missing recipe is not found", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)
		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		_, err := svc.GetByID(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("list all keeps repository order", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)
		newer := storedRecipe(t, bob, "Soto")
		older := storedRecipe(t, alice, "Rendang")
		repo.On("FindAll", mock.Anything).Return([]*recipe.Recipe{newer, older}, nil)

		got, err := svc.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Soto", got[0].Title)
		assert.Equal(t, "Rendang", got[1].Title)
	})

	t.Run("empty list is not nil", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)
		repo.On("FindAll", mock.Anything).Return([]*recipe.Recipe{}, nil)

		got, err := svc.ListAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("list by owner requires identity", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)

		_, err := svc.ListByOwner(ctx, anon)
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
		repo.AssertNotCalled(t, "FindByOwner", mock.Anything, mock.Anything)
	})

	t.Run("list by owner uses the caller id", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)
		repo.On("FindByOwner", mock.Anything, alice.ID).Return([]*recipe.Recipe{storedRecipe(t, alice, "Nasi Goreng")}, nil)

		got, err := svc.ListByOwner(ctx, alice)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, alice.ID, got[0].OwnerID)
		repo.AssertExpectations(t)
	})

	t.Run("search trims its inputs", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)
		repo.On("Search", mock.Anything, recipe.SearchFilter{Query: "nasi", Category: "Sup"}).Return([]*recipe.Recipe{}, nil)

		_, err := svc.Search(ctx, SearchRequest{Query: "  nasi ", Category: " Sup"})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

// ============================================================================
// Ownership guard
// ============================================================================

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("non-owner is forbidden and the row is unchanged", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		core, logs := observer.New(zapcore.WarnLevel)
		svc := NewService(repo, WithLogger(zap.New(core)))

		r1 := storedRecipe(t, alice, "Nasi Goreng")
		repo.On("FindByID", mock.Anything, r1.ID).Return(r1, nil)

		_, err := svc.Update(ctx, bob, r1.ID, UpdateRecipeRequest{Title: strPtr("Hacked")})
		assert.ErrorIs(t, err, shared.ErrForbidden)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)

		got, err := svc.GetByID(ctx, r1.ID)
		require.NoError(t, err)
		assert.Equal(t, "Nasi Goreng", got.Title)

		entries := logs.FilterMessage("recipe ownership check failed").All()
		require.Len(t, entries, 1)
		assert.Equal(t, OpUpdate, entries[0].ContextMap()["op"])
	})

	t.Run("anonymous caller never reaches the store", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)

		_, err := svc.Update(ctx, anon, uuid.New(), UpdateRecipeRequest{Title: strPtr("x")})
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("missing row is not found before ownership", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)
		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		_, err := svc.Update(ctx, bob, id, UpdateRecipeRequest{Title: strPtr("x")})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("owner patch changes only provided fields", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)

		r1 := storedRecipe(t, alice, "Nasi Goreng")
		createdAt := r1.CreatedAt
		repo.On("FindByID", mock.Anything, r1.ID).Return(r1, nil)
		repo.On("Update", mock.Anything, r1).Return(nil)

		got, err := svc.Update(ctx, alice, r1.ID, UpdateRecipeRequest{
			Title:      strPtr("Nasi Goreng Spesial"),
			Difficulty: strPtr("Sulit"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Nasi Goreng Spesial", got.Title)
		assert.Equal(t, "Hard", got.Difficulty)
		assert.Equal(t, recipe.CategoryNasi, got.Category)
		assert.Equal(t, 2, got.Servings)
		assert.Equal(t, alice.ID, got.OwnerID)
		assert.Equal(t, r1.ID, got.ID)
		assert.True(t, createdAt.Equal(got.CreatedAt))
		repo.AssertExpectations(t)
	})

	t.Run("identity fields in the body are ignored", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)

		r1 := storedRecipe(t, alice, "Nasi Goreng")
		repo.On("FindByID", mock.Anything, r1.ID).Return(r1, nil)
		repo.On("Update", mock.Anything, r1).Return(nil)

		body := `{"id":"` + uuid.NewString() + `","owner_id":"` + bob.ID.String() + `","created_at":"2000-01-01T00:00:00Z","servings":6}`
		var req UpdateRecipeRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))

		got, err := svc.Update(ctx, alice, r1.ID, req)
		require.NoError(t, err)
		assert.Equal(t, r1.ID, got.ID)
		assert.Equal(t, alice.ID, got.OwnerID)
		assert.Equal(t, 2024, got.CreatedAt.Year())
		assert.Equal(t, 6, got.Servings)
	})

	t.Run("blank title in a patch is rejected", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)

		r1 := storedRecipe(t, alice, "Nasi Goreng")
		repo.On("FindByID", mock.Anything, r1.ID).Return(r1, nil)

		_, err := svc.Update(ctx, alice, r1.ID, UpdateRecipeRequest{Title: strPtr(" ")})
		assert.ErrorIs(t, err, shared.ErrValidation)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("replaced image is removed after a successful update", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		images := new(MockImageStore)
		svc := NewService(repo, WithImageStore(images))

		r1 := storedRecipe(t, alice, "Nasi Goreng")
		old := r1.Image
		repo.On("FindByID", mock.Anything, r1.ID).Return(r1, nil)
		repo.On("Update", mock.Anything, r1).Return(nil)
		images.On("Remove", mock.Anything, old).Return(nil)

		_, err := svc.Update(ctx, alice, r1.ID, UpdateRecipeRequest{Image: strPtr("https://cdn.example.com/recipes/new.png")})
		require.NoError(t, err)
		images.AssertExpectations(t)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("owner deletes and the image is cleaned up", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		images := new(MockImageStore)
		svc := NewService(repo, WithImageStore(images))

		r1 := storedRecipe(t, alice, "Nasi Goreng")
		repo.On("FindByID", mock.Anything, r1.ID).Return(r1, nil).Once()
		repo.On("Delete", mock.Anything, r1.ID).Return(nil)
		images.On("Remove", mock.Anything, r1.Image).Return(nil)

		require.NoError(t, svc.Delete(ctx, alice, r1.ID))

		repo.On("FindByID", mock.Anything, r1.ID).Return(nil, shared.ErrNotFound)
		_, err := svc.GetByID(ctx, r1.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		err = svc.Delete(ctx, alice, r1.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		repo.AssertNumberOfCalls(t, "Delete", 1)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)

		r1 := storedRecipe(t, alice, "Nasi Goreng")
		repo.On("FindByID", mock.Anything, r1.ID).Return(r1, nil)

		err := svc.Delete(ctx, bob, r1.ID)
		assert.ErrorIs(t, err, shared.ErrForbidden)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("anonymous caller is rejected", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)

		assert.ErrorIs(t, svc.Delete(ctx, anon, uuid.New()), shared.ErrUnauthenticated)
	})

	t.Run("image cleanup failure does not fail the delete", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		images := new(MockImageStore)
		core, logs := observer.New(zapcore.WarnLevel)
		svc := NewService(repo, WithImageStore(images), WithLogger(zap.New(core)))

		r1 := storedRecipe(t, alice, "Nasi Goreng")
		repo.On("FindByID", mock.Anything, r1.ID).Return(r1, nil)
		repo.On("Delete", mock.Anything, r1.ID).Return(nil)
		images.On("Remove", mock.Anything, r1.Image).Return(errors.New("bucket unavailable"))

		require.NoError(t, svc.Delete(ctx, alice, r1.ID))
		assert.Equal(t, 1, logs.FilterMessage("failed to remove recipe image").Len())
	})
}

// ============================================================================
// Dashboard, forms and images
// ============================================================================

func TestService_OwnerStats(t *testing.T) {
	ctx := context.Background()

	t.Run("counts per category with the newest date", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		rec := &fakeRecorder{}
		svc := NewService(repo, WithRecorder(rec))

		latest := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)
		repo.On("CountByCategory", mock.Anything, alice.ID).Return(map[string]int64{"Nasi": 2, "Sup": 1}, nil)
		repo.On("LatestCreatedAt", mock.Anything, alice.ID).Return(latest, nil)

		stats, err := svc.OwnerStats(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.Total)
		assert.Equal(t, int64(2), stats.ByCategory["Nasi"])
		assert.Equal(t, int64(0), stats.ByCategory["Dessert"])
		assert.Len(t, stats.ByCategory, len(recipe.Categories))
		require.NotNil(t, stats.LatestCreatedAt)
		assert.True(t, latest.Equal(*stats.LatestCreatedAt))
		assert.Equal(t, []recordedOp{{op: OpOwnerStats}}, rec.ops)
	})

	t.Run("no recipes yet", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		svc := NewService(repo)
		repo.On("CountByCategory", mock.Anything, bob.ID).Return(map[string]int64{}, nil)
		repo.On("LatestCreatedAt", mock.Anything, bob.ID).Return(time.Time{}, nil)

		stats, err := svc.OwnerStats(ctx, bob)
		require.NoError(t, err)
		assert.Zero(t, stats.Total)
		assert.Nil(t, stats.LatestCreatedAt)
	})

	t.Run("store failure is recorded", func(t *testing.T) {
		repo := new(MockRecipeRepository)
		rec := &fakeRecorder{}
		svc := NewService(repo, WithRecorder(rec))
		repo.On("CountByCategory", mock.Anything, alice.ID).
			Return(nil, shared.NewStoreError("count recipes", errors.New("timeout")))

		_, err := svc.OwnerStats(ctx, alice)
		assert.ErrorIs(t, err, shared.ErrStore)
		require.Len(t, rec.ops, 1)
		assert.Equal(t, OpOwnerStats, rec.ops[0].op)
		repo.AssertNotCalled(t, "LatestCreatedAt", mock.Anything, mock.Anything)
	})

	t.Run("anonymous caller is rejected", func(t *testing.T) {
		svc := NewService(new(MockRecipeRepository))
		_, err := svc.OwnerStats(ctx, anon)
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})
}

func TestService_Forms(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRecipeRepository)
	svc := NewService(repo)

	defaults := svc.FormDefaults()
	assert.Equal(t, recipe.CategoryNasi, defaults.Form.Category)
	assert.Equal(t, recipe.Categories, defaults.Categories)
	require.Len(t, defaults.Difficulties, 3)
	assert.Equal(t, DifficultyOption{Value: "Medium", Label: "Sedang"}, defaults.Difficulties[1])

	r1 := storedRecipe(t, alice, "Nasi Goreng")
	repo.On("FindByID", mock.Anything, r1.ID).Return(r1, nil)

	form, err := svc.EditForm(ctx, alice, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nasi Goreng", form.Form.Title)

	_, err = svc.EditForm(ctx, bob, r1.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestService_UploadImage(t *testing.T) {
	ctx := context.Background()
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	t.Run("stores a png", func(t *testing.T) {
		images := new(MockImageStore)
		svc := NewService(new(MockRecipeRepository), WithImageStore(images))
		images.On("Put", mock.Anything, alice.ID, "image/png", png).Return("https://cdn.example.com/recipes/a.png", nil)

		got, err := svc.UploadImage(ctx, alice, png)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/recipes/a.png", got.Image)
		assert.Equal(t, "image/png", got.ContentType)
		assert.Equal(t, len(png), got.Size)
	})

	t.Run("rejects non images", func(t *testing.T) {
		images := new(MockImageStore)
		svc := NewService(new(MockRecipeRepository), WithImageStore(images))

		_, err := svc.UploadImage(ctx, alice, []byte("<svg onload=alert(1)></svg>"))
		assert.ErrorIs(t, err, shared.ErrValidation)
		images.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects oversized images", func(t *testing.T) {
		svc := NewService(new(MockRecipeRepository), WithImageStore(new(MockImageStore)), WithMaxImageSize(16))

		_, err := svc.UploadImage(ctx, alice, png)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects empty and anonymous uploads", func(t *testing.T) {
		svc := NewService(new(MockRecipeRepository), WithImageStore(new(MockImageStore)))

		_, err := svc.UploadImage(ctx, alice, nil)
		assert.ErrorIs(t, err, shared.ErrValidation)

		_, err = svc.UploadImage(ctx, anon, png)
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})

	t.Run("no store configured", func(t *testing.T) {
		svc := NewService(new(MockRecipeRepository))

		_, err := svc.UploadImage(ctx, alice, png)
		assert.ErrorIs(t, err, ErrImageStorageUnavailable)
	})
}

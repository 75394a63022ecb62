package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/resepku/backend/internal/domain/recipe"
	"github.com/resepku/backend/internal/domain/shared"
	"github.com/resepku/backend/internal/infrastructure/persistence/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// newestFirst is the listing order for every recipe query; id breaks ties so
// recipes created in the same instant still list deterministically.
const newestFirst = "created_at DESC, id DESC"

// GormRecipeRepository implements recipe.RecipeRepository using GORM
type GormRecipeRepository struct {
	db *gorm.DB
}

// NewGormRecipeRepository creates a new GormRecipeRepository
func NewGormRecipeRepository(db *gorm.DB) *GormRecipeRepository {
	return &GormRecipeRepository{db: db}
}

// Create inserts the recipe and copies the generated ID and timestamps back
func (r *GormRecipeRepository) Create(ctx context.Context, rec *recipe.Recipe) error {
	model, err := models.RecipeModelFromDomain(rec)
	if err != nil {
		return shared.NewStoreError("encode recipe", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return shared.NewStoreError("create recipe", err)
	}
	rec.BaseEntity = model.BaseModel.ToDomain()
	return nil
}

// FindByID finds a recipe by ID
func (r *GormRecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	var model models.RecipeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewStoreError("find recipe", err)
	}
	rec, err := model.ToDomain()
	if err != nil {
		return nil, shared.NewStoreError("decode recipe", err)
	}
	return rec, nil
}

// FindAll returns all recipes, newest first
func (r *GormRecipeRepository) FindAll(ctx context.Context) ([]*recipe.Recipe, error) {
	return r.list("list recipes", r.db.WithContext(ctx))
}

// FindByOwner returns the owner's recipes, newest first
func (r *GormRecipeRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]*recipe.Recipe, error) {
	return r.list("list recipes by owner", r.db.WithContext(ctx).Where("user_id = ?", ownerID))
}

// Search matches the query as a case-insensitive substring of title or description,
// optionally restricted to one category. An empty filter returns everything.
func (r *GormRecipeRepository) Search(ctx context.Context, filter recipe.SearchFilter) ([]*recipe.Recipe, error) {
	query := r.db.WithContext(ctx)

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(foldQuery(q)) + "%"
		query = query.Where(
			`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`,
			pattern, pattern,
		)
	}
	if c := strings.TrimSpace(filter.Category); c != "" {
		query = query.Where("category = ?", c)
	}

	return r.list("search recipes", query)
}

func (r *GormRecipeRepository) list(op string, query *gorm.DB) ([]*recipe.Recipe, error) {
	var rows []models.RecipeModel
	if err := query.Order(newestFirst).Find(&rows).Error; err != nil {
		return nil, shared.NewStoreError(op, err)
	}

	out := make([]*recipe.Recipe, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].ToDomain()
		if err != nil {
			return nil, shared.NewStoreError(op, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Update writes every mutable column. id, user_id and created_at are never touched.
func (r *GormRecipeRepository) Update(ctx context.Context, rec *recipe.Recipe) error {
	if !rec.IsPersisted() {
		return shared.ErrNotFound
	}
	model, err := models.RecipeModelFromDomain(rec)
	if err != nil {
		return shared.NewStoreError("encode recipe", err)
	}

	result := r.db.WithContext(ctx).
		Model(&models.RecipeModel{}).
		Where("id = ?", rec.ID).
		Updates(model.MutableColumns())
	if result.Error != nil {
		return shared.NewStoreError("update recipe", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete physically removes the recipe
func (r *GormRecipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.RecipeModel{}, "id = ?", id)
	if result.Error != nil {
		return shared.NewStoreError("delete recipe", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountByCategory returns how many recipes the owner has per category
func (r *GormRecipeRepository) CountByCategory(ctx context.Context, ownerID uuid.UUID) (map[string]int64, error) {
	var rows []struct {
		Category string
		Total    int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.RecipeModel{}).
		Select("category, COUNT(*) AS total").
		Where("user_id = ?", ownerID).
		Group("category").
		Scan(&rows).Error; err != nil {
		return nil, shared.NewStoreError("count recipes", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Total
	}
	return counts, nil
}

// LatestCreatedAt reads the creation time of the owner's newest recipe
func (r *GormRecipeRepository) LatestCreatedAt(ctx context.Context, ownerID uuid.UUID) (time.Time, error) {
	var model models.RecipeModel
	err := r.db.WithContext(ctx).
		Select("created_at").
		Where("user_id = ?", ownerID).
		Order(newestFirst).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, shared.NewStoreError("latest recipe", err)
	}
	return model.CreatedAt, nil
}

// foldQuery lowercases with Unicode rules. Casers are stateful so one is built per call.
func foldQuery(q string) string {
	return cases.Lower(language.Und).String(q)
}

// escapeLike makes user input literal inside a LIKE pattern
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ recipe.RecipeRepository = (*GormRecipeRepository)(nil)

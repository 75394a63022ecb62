package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/resepku/backend/internal/domain/recipe"
)

// RecipeModel is the persistence model for recipe.Recipe.
// Ingredient rows, steps and nutrition are stored as JSON documents.
type RecipeModel struct {
	BaseModel
	UserID          uuid.UUID `gorm:"type:uuid;not null;index"`
	Title           string    `gorm:"type:varchar(200);not null"`
	Description     string    `gorm:"type:text;not null;default:''"`
	Category        string    `gorm:"type:varchar(50);not null;default:'';index"`
	Servings        int       `gorm:"not null;default:0"`
	CookTime        int       `gorm:"column:cook_time;not null;default:0"`
	Difficulty      string    `gorm:"type:varchar(10);not null;default:'Medium'"`
	Image           string    `gorm:"type:text;not null"`
	IngredientsJSON string    `gorm:"column:ingredients;type:jsonb;not null;default:'[]'"`
	StepsJSON       string    `gorm:"column:instructions;type:jsonb;not null;default:'[]'"`
	NutritionJSON   string    `gorm:"column:nutrition;type:jsonb;not null;default:'{}'"`
}

func (RecipeModel) TableName() string {
	return "recipes"
}

// ToDomain converts the row to a domain Recipe. Malformed JSON columns are reported
// rather than silently dropped since they indicate a corrupt row.
func (m *RecipeModel) ToDomain() (*recipe.Recipe, error) {
	r := &recipe.Recipe{
		BaseEntity:      m.BaseModel.ToDomain(),
		OwnerID:         m.UserID,
		Title:           m.Title,
		Description:     m.Description,
		Category:        m.Category,
		Servings:        m.Servings,
		CookTimeMinutes: m.CookTime,
		Difficulty:      recipe.Difficulty(m.Difficulty),
		Image:           m.Image,
		Ingredients:     []recipe.Ingredient{},
		Instructions:    []string{},
	}

	if err := decodeColumn("ingredients", m.IngredientsJSON, &r.Ingredients); err != nil {
		return nil, err
	}
	if err := decodeColumn("instructions", m.StepsJSON, &r.Instructions); err != nil {
		return nil, err
	}
	if err := decodeColumn("nutrition", m.NutritionJSON, &r.Nutrition); err != nil {
		return nil, err
	}
	return r, nil
}

// FromDomain populates the model from a domain Recipe
func (m *RecipeModel) FromDomain(r *recipe.Recipe) error {
	m.BaseModel.FromDomain(r.BaseEntity)
	m.UserID = r.OwnerID
	m.Title = r.Title
	m.Description = r.Description
	m.Category = r.Category
	m.Servings = r.Servings
	m.CookTime = r.CookTimeMinutes
	m.Difficulty = string(r.Difficulty)
	m.Image = r.Image

	var err error
	if m.IngredientsJSON, err = encodeColumn(r.Ingredients, "[]"); err != nil {
		return err
	}
	if m.StepsJSON, err = encodeColumn(r.Instructions, "[]"); err != nil {
		return err
	}
	if m.NutritionJSON, err = encodeColumn(r.Nutrition, "{}"); err != nil {
		return err
	}
	return nil
}

// MutableColumns returns the columns a recipe update may change, keyed by column name.
// id, user_id and created_at are intentionally absent.
func (m *RecipeModel) MutableColumns() map[string]any {
	return map[string]any{
		"title":        m.Title,
		"description":  m.Description,
		"category":     m.Category,
		"servings":     m.Servings,
		"cook_time":    m.CookTime,
		"difficulty":   m.Difficulty,
		"image":        m.Image,
		"ingredients":  m.IngredientsJSON,
		"instructions": m.StepsJSON,
		"nutrition":    m.NutritionJSON,
		"updated_at":   m.UpdatedAt,
	}
}

// RecipeModelFromDomain creates a new persistence model from a domain Recipe
func RecipeModelFromDomain(r *recipe.Recipe) (*RecipeModel, error) {
	m := &RecipeModel{}
	if err := m.FromDomain(r); err != nil {
		return nil, err
	}
	return m, nil
}

func encodeColumn(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func decodeColumn(name, raw string, dst any) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode recipes.%s: %w", name, err)
	}
	return nil
}

// Package recipe holds the recipe aggregate, its drafts and patches, and the
// repository contract used by the application layer.
package recipe

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/resepku/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
	maxStepLength        = 2000
	maxImageLength       = 5 << 20 // inline data URLs can be large
)

// Ingredient is one line of the ingredient list
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// IsBlank reports whether the ingredient row was left empty
func (i Ingredient) IsBlank() bool {
	return strings.TrimSpace(i.Name) == "" && strings.TrimSpace(i.Amount) == ""
}

// Nutrition holds per-serving nutrition facts.
// Calories are kcal, the macros are grams.
type Nutrition struct {
	Calories decimal.Decimal `json:"calories"`
	Protein  decimal.Decimal `json:"protein"`
	Carbs    decimal.Decimal `json:"carbs"`
	Fat      decimal.Decimal `json:"fat"`
}

// IsNegative reports whether any value is below zero
func (n Nutrition) IsNegative() bool {
	return n.Calories.IsNegative() || n.Protein.IsNegative() || n.Carbs.IsNegative() || n.Fat.IsNegative()
}

// Equal compares values numerically
func (n Nutrition) Equal(o Nutrition) bool {
	return n.Calories.Equal(o.Calories) &&
		n.Protein.Equal(o.Protein) &&
		n.Carbs.Equal(o.Carbs) &&
		n.Fat.Equal(o.Fat)
}

// Recipe is the aggregate root.
// ID and CreatedAt are assigned by the store on insert; OwnerID is fixed at
// creation and never changes afterwards.
type Recipe struct {
	shared.BaseEntity
	OwnerID         uuid.UUID
	Title           string
	Description     string
	Category        string
	Servings        int
	CookTimeMinutes int
	Difficulty      Difficulty
	Image           string
	Ingredients     []Ingredient
	Instructions    []string
	Nutrition       Nutrition
}

// Draft is the user-supplied payload for a new recipe
type Draft struct {
	Title           string
	Description     string
	Category        string
	Servings        int
	CookTimeMinutes int
	Difficulty      Difficulty
	Image           string
	Ingredients     []Ingredient
	Instructions    []string
	Nutrition       Nutrition
}

// New builds an unsaved recipe owned by ownerID.
// The ID and timestamps stay zero until the repository persists it.
func New(ownerID uuid.UUID, d Draft) (*Recipe, error) {
	if ownerID == uuid.Nil {
		return nil, shared.ErrUnauthenticated
	}

	r := &Recipe{
		OwnerID:         ownerID,
		Title:           strings.TrimSpace(d.Title),
		Description:     strings.TrimSpace(d.Description),
		Category:        strings.TrimSpace(d.Category),
		Servings:        d.Servings,
		CookTimeMinutes: d.CookTimeMinutes,
		Difficulty:      d.Difficulty,
		Image:           strings.TrimSpace(d.Image),
		Ingredients:     cloneIngredients(d.Ingredients),
		Instructions:    cloneStrings(d.Instructions),
		Nutrition:       d.Nutrition,
	}
	if r.Difficulty == "" {
		r.Difficulty = DifficultyMedium
	}
	if r.Image == "" {
		r.Image = DefaultImage
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Apply merges the patch over the recipe. Only fields present in the patch
// change; identity and ownership fields are not part of Patch at all.
func (r *Recipe) Apply(p Patch) error {
	next := *r
	next.Ingredients = cloneIngredients(r.Ingredients)
	next.Instructions = cloneStrings(r.Instructions)

	if p.Title != nil {
		next.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		next.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		next.Category = strings.TrimSpace(*p.Category)
	}
	if p.Servings != nil {
		next.Servings = *p.Servings
	}
	if p.CookTimeMinutes != nil {
		next.CookTimeMinutes = *p.CookTimeMinutes
	}
	if p.Difficulty != nil {
		next.Difficulty = *p.Difficulty
	}
	if p.Image != nil {
		next.Image = strings.TrimSpace(*p.Image)
		if next.Image == "" {
			next.Image = DefaultImage
		}
	}
	if p.Ingredients != nil {
		next.Ingredients = cloneIngredients(*p.Ingredients)
	}
	if p.Instructions != nil {
		next.Instructions = cloneStrings(*p.Instructions)
	}
	if p.Nutrition != nil {
		next.Nutrition = *p.Nutrition
	}

	if err := next.validate(); err != nil {
		return err
	}

	next.Touch()
	*r = next
	return nil
}

// IsOwnedBy reports whether ownerID owns the recipe
func (r *Recipe) IsOwnedBy(ownerID uuid.UUID) bool {
	return ownerID != uuid.Nil && r.OwnerID == ownerID
}

// validate enforces structural invariants only. Completeness rules such as
// a required title belong to Form.Validate.
func (r *Recipe) validate() error {
	err := shared.NewValidationError("Recipe is invalid")
	invalid := false

	if utf8.RuneCountInString(r.Title) > maxTitleLength {
		err = err.WithDetail("title", "Title cannot exceed 200 characters")
		invalid = true
	}
	if utf8.RuneCountInString(r.Description) > maxDescriptionLength {
		err = err.WithDetail("description", "Description cannot exceed 2000 characters")
		invalid = true
	}
	for _, step := range r.Instructions {
		if utf8.RuneCountInString(step) > maxStepLength {
			err = err.WithDetail("instructions", "A step cannot exceed 2000 characters")
			invalid = true
			break
		}
	}
	if len(r.Image) > maxImageLength {
		err = err.WithDetail("image", "Image reference is too large")
		invalid = true
	}
	if r.Servings < 0 {
		err = err.WithDetail("servings", "Servings cannot be negative")
		invalid = true
	}
	if r.CookTimeMinutes < 0 {
		err = err.WithDetail("cook_time", "Cook time cannot be negative")
		invalid = true
	}
	if !r.Difficulty.IsValid() {
		err = err.WithDetail("difficulty", "Difficulty must be one of Easy, Medium, Hard")
		invalid = true
	}
	if r.Nutrition.IsNegative() {
		err = err.WithDetail("nutrition", "Nutrition values cannot be negative")
		invalid = true
	}

	if invalid {
		return err
	}
	return nil
}

func cloneIngredients(in []Ingredient) []Ingredient {
	out := make([]Ingredient, len(in))
	copy(out, in)
	return out
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

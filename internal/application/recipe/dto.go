package recipe

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/resepku/backend/internal/domain/recipe"
	"github.com/resepku/backend/internal/domain/shared"
)

// CreateRecipeRequest represents a request to create a recipe
type CreateRecipeRequest struct {
	Title        string              `json:"title" binding:"required,max=200"`
	Description  string              `json:"description" binding:"max=2000"`
	Category     string              `json:"category" binding:"required,recipe_category"`
	Servings     int                 `json:"servings" binding:"gte=0,lte=100"`
	CookTime     int                 `json:"cook_time" binding:"gte=0,lte=1440"`
	Difficulty   string              `json:"difficulty" binding:"omitempty,recipe_difficulty"`
	Image        string              `json:"image"`
	Ingredients  []recipe.Ingredient `json:"ingredients" binding:"required,min=1,dive"`
	Instructions []string            `json:"instructions" binding:"required,min=1,dive,max=2000"`
	Nutrition    *recipe.Nutrition   `json:"nutrition"`
}

// ToForm converts the request into a recipe form
func (r CreateRecipeRequest) ToForm() (recipe.Form, error) {
	f := recipe.NewForm()
	f.Title = r.Title
	f.Description = r.Description
	f.Category = r.Category
	f.Servings = r.Servings
	f.CookTimeMinutes = r.CookTime
	f.Image = r.Image
	f.Ingredients = r.Ingredients
	f.Instructions = r.Instructions
	if r.Nutrition != nil {
		f.Nutrition = *r.Nutrition
	}
	if r.Difficulty != "" {
		d, err := recipe.ParseDifficulty(r.Difficulty)
		if err != nil {
			return recipe.Form{}, err
		}
		f.Difficulty = d
	}
	return f, nil
}

// UpdateRecipeRequest is a partial update; omitted fields stay unchanged.
// Unknown JSON keys such as id, owner_id or created_at are dropped by binding.
type UpdateRecipeRequest struct {
	Title        *string              `json:"title" binding:"omitempty,max=200"`
	Description  *string              `json:"description" binding:"omitempty,max=2000"`
	Category     *string              `json:"category" binding:"omitempty,recipe_category"`
	Servings     *int                 `json:"servings" binding:"omitempty,gte=0,lte=100"`
	CookTime     *int                 `json:"cook_time" binding:"omitempty,gte=0,lte=1440"`
	Difficulty   *string              `json:"difficulty" binding:"omitempty,recipe_difficulty"`
	Image        *string              `json:"image"`
	Ingredients  *[]recipe.Ingredient `json:"ingredients" binding:"omitempty,min=1,dive"`
	Instructions *[]string            `json:"instructions" binding:"omitempty,min=1,dive,max=2000"`
	Nutrition    *recipe.Nutrition    `json:"nutrition"`
}

// ToPatch converts the request into a domain patch. The completeness rules of
// the form apply to the fields that are present.
func (r UpdateRecipeRequest) ToPatch() (recipe.Patch, error) {
	p := recipe.Patch{
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		Servings:        r.Servings,
		CookTimeMinutes: r.CookTime,
		Image:           r.Image,
		Nutrition:       r.Nutrition,
	}

	verr := shared.NewValidationError("Recipe update is invalid")
	invalid := false

	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		verr = verr.WithDetail("title", "Title is required")
		invalid = true
	}
	if r.Category != nil && !recipe.IsKnownCategory(*r.Category) {
		verr = verr.WithDetail("category", "Unknown category")
		invalid = true
	}
	if r.Difficulty != nil {
		d, err := recipe.ParseDifficulty(*r.Difficulty)
		if err != nil {
			verr = verr.WithDetail("difficulty", "Difficulty must be one of Easy, Medium, Hard")
			invalid = true
		} else {
			p.Difficulty = &d
		}
	}
	if r.Ingredients != nil {
		kept := make([]recipe.Ingredient, 0, len(*r.Ingredients))
		for _, ing := range *r.Ingredients {
			if ing.IsBlank() {
				continue
			}
			if strings.TrimSpace(ing.Name) == "" {
				verr = verr.WithDetail("ingredients", "Ingredient name is required")
				invalid = true
				continue
			}
			kept = append(kept, ing)
		}
		if len(kept) == 0 {
			verr = verr.WithDetail("ingredients", "At least one ingredient is required")
			invalid = true
		}
		p.Ingredients = &kept
	}
	if r.Instructions != nil {
		steps := make([]string, 0, len(*r.Instructions))
		for _, s := range *r.Instructions {
			if s = strings.TrimSpace(s); s != "" {
				steps = append(steps, s)
			}
		}
		if len(steps) == 0 {
			verr = verr.WithDetail("instructions", "At least one instruction is required")
			invalid = true
		}
		p.Instructions = &steps
	}

	if invalid {
		return recipe.Patch{}, verr
	}
	return p, nil
}

// RecipeResponse represents a recipe in API responses
type RecipeResponse struct {
	ID              uuid.UUID           `json:"id"`
	OwnerID         uuid.UUID           `json:"owner_id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Category        string              `json:"category"`
	Servings        int                 `json:"servings"`
	CookTime        int                 `json:"cook_time"`
	Difficulty      string              `json:"difficulty"`
	DifficultyLabel string              `json:"difficulty_label"`
	Image           string              `json:"image"`
	Ingredients     []recipe.Ingredient `json:"ingredients"`
	Instructions    []string            `json:"instructions"`
	Nutrition       recipe.Nutrition    `json:"nutrition"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// ToRecipeResponse converts a domain Recipe to RecipeResponse
func ToRecipeResponse(r *recipe.Recipe) RecipeResponse {
	ingredients := r.Ingredients
	if ingredients == nil {
		ingredients = []recipe.Ingredient{}
	}
	instructions := r.Instructions
	if instructions == nil {
		instructions = []string{}
	}
	return RecipeResponse{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		Servings:        r.Servings,
		CookTime:        r.CookTimeMinutes,
		Difficulty:      r.Difficulty.String(),
		DifficultyLabel: r.Difficulty.Label(),
		Image:           r.Image,
		Ingredients:     ingredients,
		Instructions:    instructions,
		Nutrition:       r.Nutrition,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// ToRecipeResponses converts a slice, never returning nil
func ToRecipeResponses(rs []*recipe.Recipe) []RecipeResponse {
	out := make([]RecipeResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, ToRecipeResponse(r))
	}
	return out
}

// SearchRequest holds the search query parameters
type SearchRequest struct {
	Query    string `form:"q" binding:"max=200"`
	Category string `form:"category" binding:"omitempty,recipe_category"`
}

// OwnerStatsResponse summarises the caller's recipes for the dashboard
type OwnerStatsResponse struct {
	Total      int64            `json:"total"`
	ByCategory map[string]int64 `json:"by_category"`
	// LatestCreatedAt is null until the owner has a recipe
	LatestCreatedAt *time.Time `json:"latest_created_at"`
}

// ImageUploadResponse is returned after an image has been stored
type ImageUploadResponse struct {
	Image       string `json:"image"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// DifficultyOption is one entry of the difficulty picker
type DifficultyOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FormResponse carries a form and the catalogues needed to render it
type FormResponse struct {
	Form         recipe.Form        `json:"form"`
	Categories   []string           `json:"categories"`
	Units        []string           `json:"units"`
	Difficulties []DifficultyOption `json:"difficulties"`
	DefaultImage string             `json:"default_image"`
}

func newFormResponse(f recipe.Form) FormResponse {
	difficulties := make([]DifficultyOption, 0, len(recipe.Difficulties))
	for _, d := range recipe.Difficulties {
		difficulties = append(difficulties, DifficultyOption{Value: d.String(), Label: d.Label()})
	}
	return FormResponse{
		Form:         f,
		Categories:   append([]string(nil), recipe.Categories...),
		Units:        append([]string(nil), recipe.Units...),
		Difficulties: difficulties,
		DefaultImage: recipe.DefaultImage,
	}
}

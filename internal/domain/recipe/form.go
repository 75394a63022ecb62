package recipe

import (
	"fmt"
	"strings"

	"github.com/resepku/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Form defaults for a new recipe
const (
	DefaultServings        = 4
	DefaultCookTimeMinutes = 20
)

// Form is the editable state behind the create/edit recipe screen.
// Every mutator returns a new Form; the receiver is never modified.
type Form struct {
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Category        string       `json:"category"`
	Servings        int          `json:"servings"`
	CookTimeMinutes int          `json:"cook_time"`
	Difficulty      Difficulty   `json:"difficulty"`
	Image           string       `json:"image"`
	Ingredients     []Ingredient `json:"ingredients"`
	Instructions    []string     `json:"instructions"`
	Nutrition       Nutrition    `json:"nutrition"`
}

// NewForm returns an empty form with the default selections
func NewForm() Form {
	return Form{
		Category:        CategoryNasi,
		Servings:        DefaultServings,
		CookTimeMinutes: DefaultCookTimeMinutes,
		Difficulty:      DifficultyMedium,
		Ingredients:     []Ingredient{{Unit: DefaultUnit}},
		Instructions:    []string{""},
		Nutrition: Nutrition{
			Calories: decimal.Zero,
			Protein:  decimal.Zero,
			Carbs:    decimal.Zero,
			Fat:      decimal.Zero,
		},
	}
}

// FormFromRecipe pre-fills a form for editing an existing recipe
func FormFromRecipe(r *Recipe) Form {
	f := Form{
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		Servings:        r.Servings,
		CookTimeMinutes: r.CookTimeMinutes,
		Difficulty:      r.Difficulty,
		Image:           r.Image,
		Ingredients:     cloneIngredients(r.Ingredients),
		Instructions:    cloneStrings(r.Instructions),
		Nutrition:       r.Nutrition,
	}
	if len(f.Ingredients) == 0 {
		f.Ingredients = []Ingredient{{Unit: DefaultUnit}}
	}
	if len(f.Instructions) == 0 {
		f.Instructions = []string{""}
	}
	return f
}

func (f Form) clone() Form {
	f.Ingredients = cloneIngredients(f.Ingredients)
	f.Instructions = cloneStrings(f.Instructions)
	return f
}

// WithTitle sets the title
func (f Form) WithTitle(title string) Form {
	n := f.clone()
	n.Title = title
	return n
}

// WithDescription sets the description
func (f Form) WithDescription(description string) Form {
	n := f.clone()
	n.Description = description
	return n
}

// WithCategory sets the category
func (f Form) WithCategory(category string) Form {
	n := f.clone()
	n.Category = category
	return n
}

// WithServings sets the number of servings
func (f Form) WithServings(servings int) Form {
	n := f.clone()
	n.Servings = servings
	return n
}

// WithCookTime sets the cooking time in minutes
func (f Form) WithCookTime(minutes int) Form {
	n := f.clone()
	n.CookTimeMinutes = minutes
	return n
}

// WithDifficulty sets the difficulty
func (f Form) WithDifficulty(d Difficulty) Form {
	n := f.clone()
	n.Difficulty = d
	return n
}

// WithImage sets the image reference
func (f Form) WithImage(image string) Form {
	n := f.clone()
	n.Image = image
	return n
}

// WithNutrition sets the nutrition facts
func (f Form) WithNutrition(nutrition Nutrition) Form {
	n := f.clone()
	n.Nutrition = nutrition
	return n
}

// AddIngredient appends an empty ingredient row
func (f Form) AddIngredient() Form {
	n := f.clone()
	n.Ingredients = append(n.Ingredients, Ingredient{Unit: DefaultUnit})
	return n
}

// RemoveIngredient drops row i. The last remaining row is never removed,
// and an out-of-range index leaves the form unchanged.
func (f Form) RemoveIngredient(i int) Form {
	n := f.clone()
	if len(n.Ingredients) <= 1 || i < 0 || i >= len(n.Ingredients) {
		return n
	}
	n.Ingredients = append(n.Ingredients[:i], n.Ingredients[i+1:]...)
	return n
}

// UpdateIngredient replaces row i
func (f Form) UpdateIngredient(i int, ing Ingredient) Form {
	n := f.clone()
	if i < 0 || i >= len(n.Ingredients) {
		return n
	}
	n.Ingredients[i] = ing
	return n
}

// AddInstruction appends an empty step
func (f Form) AddInstruction() Form {
	n := f.clone()
	n.Instructions = append(n.Instructions, "")
	return n
}

// RemoveInstruction drops step i, keeping at least one step
func (f Form) RemoveInstruction(i int) Form {
	n := f.clone()
	if len(n.Instructions) <= 1 || i < 0 || i >= len(n.Instructions) {
		return n
	}
	n.Instructions = append(n.Instructions[:i], n.Instructions[i+1:]...)
	return n
}

// UpdateInstruction replaces step i
func (f Form) UpdateInstruction(i int, text string) Form {
	n := f.clone()
	if i < 0 || i >= len(n.Instructions) {
		return n
	}
	n.Instructions[i] = text
	return n
}

// Validate checks the form is complete enough to submit
func (f Form) Validate() error {
	err := shared.NewValidationError("Recipe form is incomplete")
	invalid := false

	if strings.TrimSpace(f.Title) == "" {
		err = err.WithDetail("title", "Title is required")
		invalid = true
	}
	if f.Category != "" && !IsKnownCategory(f.Category) {
		err = err.WithDetail("category", "Unknown category")
		invalid = true
	}

	named := 0
	for i, ing := range f.Ingredients {
		if ing.IsBlank() {
			continue
		}
		if strings.TrimSpace(ing.Name) == "" {
			err = err.WithDetail(fmt.Sprintf("ingredients[%d].name", i), "Ingredient name is required")
			invalid = true
			continue
		}
		named++
	}
	if named == 0 {
		err = err.WithDetail("ingredients", "At least one ingredient is required")
		invalid = true
	}

	if len(nonBlank(f.Instructions)) == 0 {
		err = err.WithDetail("instructions", "At least one instruction is required")
		invalid = true
	}

	if invalid {
		return err
	}
	return nil
}

// ToDraft validates the form and converts it to a Draft.
// Blank instruction steps and blank ingredient rows are dropped.
func (f Form) ToDraft() (Draft, error) {
	if err := f.Validate(); err != nil {
		return Draft{}, err
	}

	ingredients := make([]Ingredient, 0, len(f.Ingredients))
	for _, ing := range f.Ingredients {
		if ing.IsBlank() {
			continue
		}
		ingredients = append(ingredients, Ingredient{
			Name:   strings.TrimSpace(ing.Name),
			Amount: strings.TrimSpace(ing.Amount),
			Unit:   strings.TrimSpace(ing.Unit),
		})
	}

	image := strings.TrimSpace(f.Image)
	if image == "" {
		image = DefaultImage
	}

	return Draft{
		Title:           strings.TrimSpace(f.Title),
		Description:     strings.TrimSpace(f.Description),
		Category:        f.Category,
		Servings:        f.Servings,
		CookTimeMinutes: f.CookTimeMinutes,
		Difficulty:      f.Difficulty,
		Image:           image,
		Ingredients:     ingredients,
		Instructions:    nonBlank(f.Instructions),
		Nutrition:       f.Nutrition,
	}, nil
}

func nonBlank(steps []string) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package recipe

// Patch is a partial update. Nil fields are left untouched.
// There is deliberately no ID, OwnerID or CreatedAt field.
type Patch struct {
	Title           *string
	Description     *string
	Category        *string
	Servings        *int
	CookTimeMinutes *int
	Difficulty      *Difficulty
	Image           *string
	Ingredients     *[]Ingredient
	Instructions    *[]string
	Nutrition       *Nutrition
}

// IsEmpty reports whether the patch changes nothing
func (p Patch) IsEmpty() bool {
	return p.Title == nil &&
		p.Description == nil &&
		p.Category == nil &&
		p.Servings == nil &&
		p.CookTimeMinutes == nil &&
		p.Difficulty == nil &&
		p.Image == nil &&
		p.Ingredients == nil &&
		p.Instructions == nil &&
		p.Nutrition == nil
}

package recipe

import (
	"strings"

	"github.com/resepku/backend/internal/domain/shared"
)

// Difficulty grades how hard a recipe is to cook
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Difficulties lists the valid values in ascending order
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

var difficultyLabels = map[Difficulty]string{
	DifficultyEasy:   "Mudah",
	DifficultyMedium: "Sedang",
	DifficultyHard:   "Sulit",
}

// ParseDifficulty accepts the canonical names and the Indonesian labels,
// case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy", "mudah":
		return DifficultyEasy, nil
	case "medium", "sedang":
		return DifficultyMedium, nil
	case "hard", "sulit":
		return DifficultyHard, nil
	}
	return "", shared.NewValidationError("Difficulty must be one of Easy, Medium, Hard").
		WithDetail("difficulty", "unknown difficulty "+s)
}

// IsValid reports whether d is one of the canonical values
func (d Difficulty) IsValid() bool {
	_, ok := difficultyLabels[d]
	return ok
}

// Label returns the Indonesian display label
func (d Difficulty) Label() string {
	return difficultyLabels[d]
}

func (d Difficulty) String() string {
	return string(d)
}

// UnmarshalText lets JSON and form bindings accept either spelling
func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalText always emits the canonical name
func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d), nil
}

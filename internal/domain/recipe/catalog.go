package recipe

import "strings"

// DefaultImage is used when a recipe is saved without an image
const DefaultImage = "/handwritten-recipe.png"

// Recipe categories offered by the form
const (
	CategoryNasi     = "Nasi"
	CategorySup      = "Sup"
	CategoryDaging   = "Daging"
	CategorySayuran  = "Sayuran"
	CategoryGorengan = "Gorengan"
	CategorySeafood  = "Seafood"
	CategoryDessert  = "Dessert"
)

// Categories lists the known categories in display order
var Categories = []string{
	CategoryNasi,
	CategorySup,
	CategoryDaging,
	CategorySayuran,
	CategoryGorengan,
	CategorySeafood,
	CategoryDessert,
}

// Units lists the ingredient units offered by the form
var Units = []string{
	"gram",
	"ml",
	"sendok makan",
	"sendok teh",
	"buah",
	"siung",
	"batang",
	"rimpang",
	"lembar",
	"piring",
}

// DefaultUnit is preselected for a new ingredient row
const DefaultUnit = "gram"

// IsKnownCategory reports whether c is one of Categories (exact match)
func IsKnownCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// IsKnownUnit reports whether u is one of Units, ignoring case
func IsKnownUnit(u string) bool {
	u = strings.ToLower(strings.TrimSpace(u))
	for _, known := range Units {
		if u == known {
			return true
		}
	}
	return false
}

// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain entities so the domain layer stays free of
// ORM tags. Each model offers ToDomain and FromDomain mappers used by the repositories.
//
// Tables:
//   - users: UserModel (identity.go)
//   - recipes: RecipeModel (recipe.go)
package models

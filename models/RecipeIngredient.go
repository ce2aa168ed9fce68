package models

import "time"

// RecipeIngredient links a recipe to one ingredient with a quantity.
// The composite unique index backs the "no ingredient twice per recipe"
// invariant even when two writers race past the service-level validation.
// Rows are hard-deleted: an ingredient replacement must fully vacate the
// index before the new set is written.
type RecipeIngredient struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RecipeID     uint      `gorm:"not null;uniqueIndex:idx_recipe_ingredient" json:"recipe_id"`
	IngredientID uint      `gorm:"not null;uniqueIndex:idx_recipe_ingredient" json:"ingredient_id"`
	Amount       int       `gorm:"not null" json:"amount"`
	CreatedAt    time.Time `json:"created_at"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}

package models

import (
	"gorm.io/gorm"
)

// Recipe is owned by exactly one author and carries its quantified
// ingredient rows through RecipeIngredient.
type Recipe struct {
	gorm.Model
	AuthorID    uint               `gorm:"not null;index" json:"author_id"`
	Author      *User              `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Name        string             `gorm:"not null" json:"name"`
	Text        string             `gorm:"type:text" json:"text"`
	Image       string             `json:"image"`
	CookingTime int                `gorm:"not null" json:"cooking_time"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ingredients"`
}

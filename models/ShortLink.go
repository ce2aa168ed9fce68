package models

import "time"

// ShortLink maps an opaque code to a recipe for shareable URLs.
type ShortLink struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"uniqueIndex;not null" json:"code"`
	RecipeID  uint      `gorm:"not null;index" json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`
}

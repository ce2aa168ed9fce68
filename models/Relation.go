package models

import "time"

// RelationKind discriminates the toggleable user-recipe sets that share the
// relations table.
type RelationKind string

const (
	RelationFavorite     RelationKind = "favorite"
	RelationShoppingCart RelationKind = "shopping_cart"
)

// Valid reports whether the kind is one of the known discriminants.
func (k RelationKind) Valid() bool {
	return k == RelationFavorite || k == RelationShoppingCart
}

// Relation is a single row of the favorite or shopping-cart set. Uniqueness
// per (kind, user, recipe) is enforced by the index; the stores surface the
// duplicate-key failure as a conflict. Rows are hard-deleted so a removed
// pair can be re-added without tripping the index.
type Relation struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Kind      RelationKind `gorm:"type:varchar(32);not null;uniqueIndex:idx_relation_identity" json:"kind"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_relation_identity" json:"user_id"`
	RecipeID  uint         `gorm:"not null;uniqueIndex:idx_relation_identity;index" json:"recipe_id"`
	CreatedAt time.Time    `json:"created_at"`

	Recipe *Recipe `gorm:"foreignKey:RecipeID" json:"recipe,omitempty"`
}

func (Relation) TableName() string {
	return "relations"
}

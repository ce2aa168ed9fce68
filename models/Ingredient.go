package models

import (
	"gorm.io/gorm"
)

// Ingredient is immutable reference data identified by its name together with
// the unit it is measured in ("flour"/"g" and "flour"/"cup" are distinct rows).
type Ingredient struct {
	gorm.Model
	Name            string `gorm:"not null;uniqueIndex:idx_ingredient_identity" json:"name"`
	MeasurementUnit string `gorm:"not null;uniqueIndex:idx_ingredient_identity" json:"measurement_unit"`
}

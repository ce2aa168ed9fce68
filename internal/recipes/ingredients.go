package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"foodgram/internal/apperr"
	"foodgram/models"
)

// Catalog serves the read-only ingredient reference data.
type Catalog struct {
	db *gorm.DB
}

// NewCatalog wraps a database handle.
func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// Search lists ingredients whose name starts with the given prefix,
// case-insensitively, ordered by name. An empty prefix lists everything.
func (c *Catalog) Search(ctx context.Context, namePrefix string) ([]models.Ingredient, error) {
	query := c.db.WithContext(ctx).Order("name asc, measurement_unit asc")

	if prefix := strings.ToLower(strings.TrimSpace(namePrefix)); prefix != "" {
		query = query.Where("lower(name) LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
	}

	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("search ingredients: %w", err)
	}
	return ingredients, nil
}

// Get loads one ingredient by id.
func (c *Catalog) Get(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := c.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ingredient %d: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("load ingredient %d: %w", id, err)
	}
	return &ingredient, nil
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

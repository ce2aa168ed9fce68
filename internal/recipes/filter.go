package recipes

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"foodgram/internal/relations"
	"foodgram/models"
)

// Filters narrows a recipe listing. Predicates compose with AND; zero values
// are no-ops. The boolean predicates apply only to an authenticated current
// user and silently pass everything through for anonymous callers.
type Filters struct {
	AuthorID       uint
	Favorited      bool
	InShoppingCart bool
	Limit          int
	Offset         int
}

// Lister resolves recipe listings against the membership sets.
type Lister struct {
	db    *gorm.DB
	store *relations.Store
}

// NewLister wraps a database handle and the relation store used for the
// favorite and cart membership predicates.
func NewLister(db *gorm.DB, store *relations.Store) *Lister {
	return &Lister{db: db, store: store}
}

// List returns the recipes matching the filters, ordered by name, with
// authors and ingredient rows preloaded.
func (l *Lister) List(ctx context.Context, current *models.User, filters Filters) ([]models.Recipe, error) {
	query := l.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Preload("Author").
		Preload("Ingredients").
		Preload("Ingredients.Ingredient").
		Order("name asc, id asc")

	if filters.AuthorID != 0 {
		query = query.Where("author_id = ?", filters.AuthorID)
	}

	for _, predicate := range []struct {
		enabled bool
		kind    models.RelationKind
	}{
		{filters.Favorited, models.RelationFavorite},
		{filters.InShoppingCart, models.RelationShoppingCart},
	} {
		if !predicate.enabled || current == nil {
			continue
		}
		ids, err := l.store.RecipeIDs(ctx, predicate.kind, current.ID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []models.Recipe{}, nil
		}
		query = query.Where("id IN ?", ids)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

// ByAuthor returns the author's recipes ordered by name, optionally capped.
func (l *Lister) ByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error) {
	query := l.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("name asc, id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list recipes for author %d: %w", authorID, err)
	}
	return recipes, nil
}

// CountByAuthor returns how many recipes the author has published.
func (l *Lister) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Where("author_id = ?", authorID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count recipes for author %d: %w", authorID, err)
	}
	return count, nil
}

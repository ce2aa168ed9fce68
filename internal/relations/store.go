// Package relations implements the toggleable many-to-many links between
// users and recipes (favorites, shopping cart) and between users
// (subscriptions). Adding an existing pair is a conflict, not a no-op;
// removing an absent pair is not found. Under concurrent duplicate adds the
// composite unique index decides the winner and the loser sees the conflict.
package relations

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"foodgram/internal/apperr"
	"foodgram/models"
)

// Store manages favorite and shopping-cart rows.
type Store struct {
	db *gorm.DB
}

// NewStore wraps a database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Add inserts the (kind, user, recipe) row. A second add for the same triple
// fails with apperr.ErrConflict.
func (s *Store) Add(ctx context.Context, kind models.RelationKind, userID, recipeID uint) (*models.Relation, error) {
	if !kind.Valid() {
		return nil, apperr.Validation("kind", fmt.Sprintf("unknown relation kind %q", kind))
	}

	relation := &models.Relation{Kind: kind, UserID: userID, RecipeID: recipeID}
	if err := s.db.WithContext(ctx).Create(relation).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("add %s relation user=%d recipe=%d: %w", kind, userID, recipeID, apperr.ErrConflict)
		}
		return nil, fmt.Errorf("add %s relation: %w", kind, err)
	}
	return relation, nil
}

// Remove deletes the (kind, user, recipe) row, failing with
// apperr.ErrNotFound when no such row exists.
func (s *Store) Remove(ctx context.Context, kind models.RelationKind, userID, recipeID uint) error {
	if !kind.Valid() {
		return apperr.Validation("kind", fmt.Sprintf("unknown relation kind %q", kind))
	}

	result := s.db.WithContext(ctx).
		Where("kind = ? AND user_id = ? AND recipe_id = ?", kind, userID, recipeID).
		Delete(&models.Relation{})
	if result.Error != nil {
		return fmt.Errorf("remove %s relation: %w", kind, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("remove %s relation user=%d recipe=%d: %w", kind, userID, recipeID, apperr.ErrNotFound)
	}
	return nil
}

// Exists reports whether the (kind, user, recipe) row is present.
func (s *Store) Exists(ctx context.Context, kind models.RelationKind, userID, recipeID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Relation{}).
		Where("kind = ? AND user_id = ? AND recipe_id = ?", kind, userID, recipeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check %s relation: %w", kind, err)
	}
	return count > 0, nil
}

// RecipeIDs lists the recipes in the user's set of the given kind.
func (s *Store) RecipeIDs(ctx context.Context, kind models.RelationKind, userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.Relation{}).
		Where("kind = ? AND user_id = ?", kind, userID).
		Order("recipe_id asc").
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list %s relations for user %d: %w", kind, userID, err)
	}
	return ids, nil
}

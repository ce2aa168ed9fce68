// Package recipes holds the recipe write path, the ownership rule and the
// listing filters. All reads are public; every mutation is guarded by the
// author check and executes as a single transaction.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"foodgram/internal/apperr"
	applog "foodgram/internal/log"
	"foodgram/models"
)

// IngredientAmount pairs an ingredient id with its quantity in a recipe.
type IngredientAmount struct {
	IngredientID uint
	Amount       int
}

// CreateInput carries the validated fields for a new recipe.
type CreateInput struct {
	Name        string
	Text        string
	Image       string
	CookingTime int
	Ingredients []IngredientAmount
}

// UpdateInput carries the replacement fields for an existing recipe. A nil
// Image keeps the stored one; Ingredients is mandatory on every write.
type UpdateInput struct {
	Name        string
	Text        string
	Image       *string
	CookingTime int
	Ingredients []IngredientAmount
}

// Service implements recipe creation, wholesale update and deletion.
type Service struct {
	db *gorm.DB
}

// NewService wraps a database handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CanMutate reports whether user may change recipe. Only the authenticated
// author may; reads are always allowed and never consult this.
func CanMutate(user *models.User, recipe *models.Recipe) bool {
	return user != nil && recipe != nil && user.ID == recipe.AuthorID
}

// Create stores a recipe together with its ingredient rows in one
// transaction.
func (s *Service) Create(ctx context.Context, author *models.User, input CreateInput) (*models.Recipe, error) {
	if author == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if err := validateRecipeFields(input.Name, input.CookingTime); err != nil {
		return nil, err
	}
	if err := validateIngredientAmounts(input.Ingredients); err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        strings.TrimSpace(input.Name),
		Text:        input.Text,
		Image:       input.Image,
		CookingTime: input.CookingTime,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureIngredientsExist(tx, input.Ingredients); err != nil {
			return err
		}
		if err := tx.Create(recipe).Error; err != nil {
			return fmt.Errorf("create recipe: %w", err)
		}
		return createIngredientRows(tx, recipe.ID, input.Ingredients)
	})
	if err != nil {
		return nil, err
	}

	applog.Info(ctx, "recipe created", "recipe_id", recipe.ID, "author_id", author.ID)
	return s.Get(ctx, recipe.ID)
}

// Update replaces the recipe's fields and its entire ingredient set. The
// delete-and-recreate of the join rows happens inside one transaction so a
// failure leaves the previous set intact and no reader ever observes a
// recipe without ingredients.
func (s *Service) Update(ctx context.Context, user *models.User, recipeID uint, input UpdateInput) (*models.Recipe, error) {
	if user == nil {
		return nil, apperr.ErrUnauthenticated
	}

	recipe, err := s.Get(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if !CanMutate(user, recipe) {
		return nil, fmt.Errorf("update recipe %d as user %d: %w", recipeID, user.ID, apperr.ErrForbidden)
	}

	if err := validateRecipeFields(input.Name, input.CookingTime); err != nil {
		return nil, err
	}
	if err := validateIngredientAmounts(input.Ingredients); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureIngredientsExist(tx, input.Ingredients); err != nil {
			return err
		}

		updates := map[string]any{
			"name":         strings.TrimSpace(input.Name),
			"text":         input.Text,
			"cooking_time": input.CookingTime,
		}
		if input.Image != nil {
			updates["image"] = *input.Image
		}
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update recipe %d: %w", recipeID, err)
		}

		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return fmt.Errorf("clear ingredient rows for recipe %d: %w", recipeID, err)
		}
		return createIngredientRows(tx, recipeID, input.Ingredients)
	})
	if err != nil {
		return nil, err
	}

	applog.Info(ctx, "recipe updated", "recipe_id", recipeID, "author_id", user.ID)
	return s.Get(ctx, recipeID)
}

// Delete removes the recipe along with its ingredient rows, relation rows and
// short links, in one transaction.
func (s *Service) Delete(ctx context.Context, user *models.User, recipeID uint) error {
	if user == nil {
		return apperr.ErrUnauthenticated
	}

	recipe, err := s.Get(ctx, recipeID)
	if err != nil {
		return err
	}
	if !CanMutate(user, recipe) {
		return fmt.Errorf("delete recipe %d as user %d: %w", recipeID, user.ID, apperr.ErrForbidden)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return fmt.Errorf("clear ingredient rows: %w", err)
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.Relation{}).Error; err != nil {
			return fmt.Errorf("clear relation rows: %w", err)
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.ShortLink{}).Error; err != nil {
			return fmt.Errorf("clear short links: %w", err)
		}
		if err := tx.Delete(&models.Recipe{}, recipeID).Error; err != nil {
			return fmt.Errorf("delete recipe %d: %w", recipeID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	applog.Info(ctx, "recipe deleted", "recipe_id", recipeID, "author_id", user.ID)
	return nil
}

// Get loads a recipe with its author and ingredient rows.
func (s *Service) Get(ctx context.Context, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Ingredients").
		Preload("Ingredients.Ingredient").
		First(&recipe, recipeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipe %d: %w", recipeID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("load recipe %d: %w", recipeID, err)
	}
	return &recipe, nil
}

func validateRecipeFields(name string, cookingTime int) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation("name", "must not be empty")
	}
	if cookingTime < 1 {
		return apperr.Validation("cooking_time", "must be at least 1 minute")
	}
	return nil
}

func validateIngredientAmounts(amounts []IngredientAmount) error {
	if len(amounts) == 0 {
		return apperr.Validation("ingredients", "at least one ingredient is required")
	}
	seen := make(map[uint]struct{}, len(amounts))
	for _, item := range amounts {
		if item.Amount < 1 {
			return apperr.Validation("ingredients", fmt.Sprintf("amount for ingredient %d must be at least 1", item.IngredientID))
		}
		if _, dup := seen[item.IngredientID]; dup {
			return apperr.Validation("ingredients", fmt.Sprintf("ingredient %d appears more than once", item.IngredientID))
		}
		seen[item.IngredientID] = struct{}{}
	}
	return nil
}

func ensureIngredientsExist(tx *gorm.DB, amounts []IngredientAmount) error {
	ids := make([]uint, 0, len(amounts))
	for _, item := range amounts {
		ids = append(ids, item.IngredientID)
	}

	var count int64
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return fmt.Errorf("verify ingredients: %w", err)
	}
	if count != int64(len(ids)) {
		return apperr.Validation("ingredients", "one or more ingredients do not exist")
	}
	return nil
}

func createIngredientRows(tx *gorm.DB, recipeID uint, amounts []IngredientAmount) error {
	rows := make([]models.RecipeIngredient, 0, len(amounts))
	for _, item := range amounts {
		rows = append(rows, models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: item.IngredientID,
			Amount:       item.Amount,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("create ingredient rows for recipe %d: %w", recipeID, err)
	}
	return nil
}

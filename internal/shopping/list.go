// Package shopping aggregates ingredient quantities across the recipes in a
// user's cart and produces the data for the downloadable shopping list.
package shopping

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"

	"foodgram/internal/apperr"
	"foodgram/internal/relations"
	"foodgram/models"
)

// Item is one aggregated line: an ingredient identity with the summed amount.
type Item struct {
	Name   string
	Amount int
	Unit   string
}

// RecipeRef names a recipe in the list footer together with its author.
type RecipeRef struct {
	Name   string
	Author string
}

// List is the complete shopping-list document data.
type List struct {
	Username    string
	GeneratedAt time.Time
	Items       []Item
	Recipes     []RecipeRef
}

// Builder assembles shopping lists from the cart relation set.
type Builder struct {
	db    *gorm.DB
	store *relations.Store
	now   func() time.Time
}

// NewBuilder wraps a database handle and the relation store that defines
// cart membership.
func NewBuilder(db *gorm.DB, store *relations.Store) *Builder {
	return &Builder{db: db, store: store, now: time.Now}
}

// Aggregate sums ingredient amounts across the given recipes, grouped by
// (case-normalized ingredient name, unit), ordered by name then unit.
// An empty recipe set yields an empty slice.
func (b *Builder) Aggregate(ctx context.Context, recipeIDs []uint) ([]Item, error) {
	if len(recipeIDs) == 0 {
		return []Item{}, nil
	}

	var items []Item
	err := b.db.WithContext(ctx).
		Model(&models.RecipeIngredient{}).
		Select("lower(ingredients.name) AS name, ingredients.measurement_unit AS unit, SUM(recipe_ingredients.amount) AS amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("recipe_ingredients.recipe_id IN ?", recipeIDs).
		Group("lower(ingredients.name), ingredients.measurement_unit").
		Order("lower(ingredients.name) asc, ingredients.measurement_unit asc").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate ingredients: %w", err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// BuildList produces the shopping list for the user's current cart. A user
// with an empty cart gets apperr.ErrEmptyCart, never an empty document.
func (b *Builder) BuildList(ctx context.Context, user *models.User) (*List, error) {
	if user == nil {
		return nil, apperr.ErrUnauthenticated
	}

	recipeIDs, err := b.store.RecipeIDs(ctx, models.RelationShoppingCart, user.ID)
	if err != nil {
		return nil, err
	}
	if len(recipeIDs) == 0 {
		return nil, apperr.ErrEmptyCart
	}

	items, err := b.Aggregate(ctx, recipeIDs)
	if err != nil {
		return nil, err
	}

	var recipes []models.Recipe
	err = b.db.WithContext(ctx).
		Preload("Author").
		Where("id IN ?", recipeIDs).
		Order("name asc").
		Find(&recipes).Error
	if err != nil {
		return nil, fmt.Errorf("load cart recipes: %w", err)
	}

	refs := make([]RecipeRef, 0, len(recipes))
	for _, recipe := range recipes {
		author := ""
		if recipe.Author != nil {
			author = recipe.Author.FullName()
		}
		refs = append(refs, RecipeRef{Name: recipe.Name, Author: author})
	}

	return &List{
		Username:    user.Username,
		GeneratedAt: b.now().UTC(),
		Items:       items,
		Recipes:     refs,
	}, nil
}

// Render formats the list as the plain-text download artifact.
func (l *List) Render() string {
	var sb strings.Builder

	sb.WriteString("Foodgram - Shopping Cart\n")
	sb.WriteString(fmt.Sprintf("Date: %s UTC\n", l.GeneratedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("User: %s\n", l.Username))
	sb.WriteString("\nIngredients:\n")

	for i, item := range l.Items {
		sb.WriteString(fmt.Sprintf("%d. %s - %d %s\n", i+1, capitalize(item.Name), item.Amount, item.Unit))
	}

	sb.WriteString("\nRecipes:\n")
	for _, recipe := range l.Recipes {
		sb.WriteString(fmt.Sprintf("- %s (Author: %s)\n", recipe.Name, recipe.Author))
	}

	sb.WriteString(fmt.Sprintf("\nFoodgram - Your cooking helper © %d\n", l.GeneratedAt.Year()))
	return sb.String()
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

package recipes

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"foodgram/internal/apperr"
	"foodgram/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Ingredient{},
		&models.Recipe{},
		&models.RecipeIngredient{},
		&models.Relation{},
		&models.ShortLink{},
	); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	db      *gorm.DB
	service *Service
	author  *models.User
	other   *models.User
	flour   models.Ingredient
	egg     models.Ingredient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	f := &fixture{
		db:      db,
		service: NewService(db),
		author:  &models.User{Email: "author@example.com", Username: "author", FirstName: "Ada", LastName: "Author", PasswordHash: "x"},
		other:   &models.User{Email: "other@example.com", Username: "other", PasswordHash: "x"},
		flour:   models.Ingredient{Name: "flour", MeasurementUnit: "g"},
		egg:     models.Ingredient{Name: "egg", MeasurementUnit: "pcs"},
	}
	for _, user := range []*models.User{f.author, f.other} {
		if err := db.Create(user).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	for _, ingredient := range []*models.Ingredient{&f.flour, &f.egg} {
		if err := db.Create(ingredient).Error; err != nil {
			t.Fatalf("seed ingredient: %v", err)
		}
	}
	return f
}

func (f *fixture) createRecipe(t *testing.T) *models.Recipe {
	t.Helper()
	recipe, err := f.service.Create(context.Background(), f.author, CreateInput{
		Name:        "Pancakes",
		Text:        "Mix and fry.",
		CookingTime: 20,
		Ingredients: []IngredientAmount{
			{IngredientID: f.flour.ID, Amount: 200},
			{IngredientID: f.egg.ID, Amount: 2},
		},
	})
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	return recipe
}

func (f *fixture) ingredientRows(t *testing.T, recipeID uint) []models.RecipeIngredient {
	t.Helper()
	var rows []models.RecipeIngredient
	if err := f.db.Where("recipe_id = ?", recipeID).Order("ingredient_id asc").Find(&rows).Error; err != nil {
		t.Fatalf("load ingredient rows: %v", err)
	}
	return rows
}

func TestCreatePersistsRecipeWithIngredients(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	recipe := f.createRecipe(t)

	if recipe.AuthorID != f.author.ID {
		t.Fatalf("recipe author = %d, want %d", recipe.AuthorID, f.author.ID)
	}
	if len(recipe.Ingredients) != 2 {
		t.Fatalf("expected 2 ingredient rows, got %d", len(recipe.Ingredients))
	}
	if recipe.Author == nil || recipe.Author.Username != "author" {
		t.Fatal("expected preloaded author")
	}
	for _, row := range recipe.Ingredients {
		if row.Ingredient == nil {
			t.Fatal("expected preloaded ingredient reference")
		}
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateInput
	}{
		{
			name:  "empty ingredient list",
			input: CreateInput{Name: "X", CookingTime: 5, Ingredients: nil},
		},
		{
			name: "duplicate ingredient id",
			input: CreateInput{Name: "X", CookingTime: 5, Ingredients: []IngredientAmount{
				{IngredientID: f.flour.ID, Amount: 1},
				{IngredientID: f.flour.ID, Amount: 2},
			}},
		},
		{
			name: "amount below one",
			input: CreateInput{Name: "X", CookingTime: 5, Ingredients: []IngredientAmount{
				{IngredientID: f.flour.ID, Amount: 0},
			}},
		},
		{
			name: "unknown ingredient",
			input: CreateInput{Name: "X", CookingTime: 5, Ingredients: []IngredientAmount{
				{IngredientID: 9999, Amount: 1},
			}},
		},
		{
			name: "cooking time below one minute",
			input: CreateInput{Name: "X", CookingTime: 0, Ingredients: []IngredientAmount{
				{IngredientID: f.flour.ID, Amount: 1},
			}},
		},
		{
			name: "blank name",
			input: CreateInput{Name: "  ", CookingTime: 5, Ingredients: []IngredientAmount{
				{IngredientID: f.flour.ID, Amount: 1},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.service.Create(ctx, f.author, tt.input); !apperr.IsValidation(err) {
				t.Fatalf("Create error = %v, want validation error", err)
			}
		})
	}

	var count int64
	if err := f.db.Model(&models.Recipe{}).Count(&count).Error; err != nil {
		t.Fatalf("count recipes: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no recipes persisted after failed creates, got %d", count)
	}
}

func TestCreateRequiresAuthenticatedAuthor(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.service.Create(context.Background(), nil, CreateInput{
		Name: "X", CookingTime: 5,
		Ingredients: []IngredientAmount{{IngredientID: f.flour.ID, Amount: 1}},
	})
	if !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("Create error = %v, want ErrUnauthenticated", err)
	}
}

func TestUpdateReplacesIngredientSetWholesale(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	recipe := f.createRecipe(t)

	updated, err := f.service.Update(ctx, f.author, recipe.ID, UpdateInput{
		Name:        "Thin pancakes",
		Text:        "Looser batter.",
		CookingTime: 30,
		Ingredients: []IngredientAmount{{IngredientID: f.egg.ID, Amount: 4}},
	})
	if err != nil {
		t.Fatalf("update recipe: %v", err)
	}

	if updated.Name != "Thin pancakes" || updated.CookingTime != 30 {
		t.Fatalf("unexpected updated recipe: %+v", updated)
	}

	rows := f.ingredientRows(t, recipe.ID)
	if len(rows) != 1 {
		t.Fatalf("expected 1 ingredient row after replace, got %d", len(rows))
	}
	if rows[0].IngredientID != f.egg.ID || rows[0].Amount != 4 {
		t.Fatalf("unexpected surviving row: %+v", rows[0])
	}
}

func TestUpdateFailureLeavesPriorIngredientsIntact(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	recipe := f.createRecipe(t)

	_, err := f.service.Update(ctx, f.author, recipe.ID, UpdateInput{
		Name:        "Broken",
		CookingTime: 10,
		Ingredients: []IngredientAmount{
			{IngredientID: f.flour.ID, Amount: 1},
			{IngredientID: f.flour.ID, Amount: 2},
		},
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("update error = %v, want validation error", err)
	}

	rows := f.ingredientRows(t, recipe.ID)
	if len(rows) != 2 {
		t.Fatalf("expected original 2 ingredient rows, got %d", len(rows))
	}

	reloaded, err := f.service.Get(ctx, recipe.ID)
	if err != nil {
		t.Fatalf("reload recipe: %v", err)
	}
	if reloaded.Name != "Pancakes" {
		t.Fatalf("recipe name mutated by failed update: %q", reloaded.Name)
	}
}

func TestUpdateRejectsVanishedIngredient(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	recipe := f.createRecipe(t)

	// The referenced ingredient is gone by the time the write runs; the
	// replace must fail and leave the stored set untouched.
	sugar := models.Ingredient{Name: "sugar", MeasurementUnit: "g"}
	if err := f.db.Create(&sugar).Error; err != nil {
		t.Fatalf("seed sugar: %v", err)
	}
	if err := f.db.Unscoped().Delete(&models.Ingredient{}, sugar.ID).Error; err != nil {
		t.Fatalf("hard delete sugar: %v", err)
	}

	_, err := f.service.Update(ctx, f.author, recipe.ID, UpdateInput{
		Name:        "Broken",
		CookingTime: 10,
		Ingredients: []IngredientAmount{{IngredientID: sugar.ID, Amount: 5}},
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("update error = %v, want validation error", err)
	}

	rows := f.ingredientRows(t, recipe.ID)
	if len(rows) != 2 {
		t.Fatalf("expected original 2 ingredient rows after rollback, got %d", len(rows))
	}
}

func TestUpdateByNonAuthorIsForbidden(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	recipe := f.createRecipe(t)

	_, err := f.service.Update(ctx, f.other, recipe.ID, UpdateInput{
		Name:        "Hijacked",
		CookingTime: 5,
		Ingredients: []IngredientAmount{{IngredientID: f.flour.ID, Amount: 1}},
	})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("update error = %v, want ErrForbidden", err)
	}

	reloaded, err := f.service.Get(ctx, recipe.ID)
	if err != nil {
		t.Fatalf("reload recipe: %v", err)
	}
	if reloaded.Name != "Pancakes" {
		t.Fatalf("recipe mutated by forbidden update: %q", reloaded.Name)
	}
}

func TestDeleteCascadesJoinAndRelationRows(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	recipe := f.createRecipe(t)

	relation := models.Relation{Kind: models.RelationFavorite, UserID: f.other.ID, RecipeID: recipe.ID}
	if err := f.db.Create(&relation).Error; err != nil {
		t.Fatalf("seed relation: %v", err)
	}
	link := models.ShortLink{Code: "abc123", RecipeID: recipe.ID}
	if err := f.db.Create(&link).Error; err != nil {
		t.Fatalf("seed short link: %v", err)
	}

	if err := f.service.Delete(ctx, f.other, recipe.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-author delete error = %v, want ErrForbidden", err)
	}

	if err := f.service.Delete(ctx, f.author, recipe.ID); err != nil {
		t.Fatalf("author delete returned error: %v", err)
	}

	if _, err := f.service.Get(ctx, recipe.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("get after delete error = %v, want ErrNotFound", err)
	}
	if rows := f.ingredientRows(t, recipe.ID); len(rows) != 0 {
		t.Fatalf("expected ingredient rows removed, got %d", len(rows))
	}
	var relationCount int64
	if err := f.db.Model(&models.Relation{}).Where("recipe_id = ?", recipe.ID).Count(&relationCount).Error; err != nil {
		t.Fatalf("count relations: %v", err)
	}
	if relationCount != 0 {
		t.Fatalf("expected relation rows removed, got %d", relationCount)
	}
}

func TestCanMutate(t *testing.T) {
	t.Parallel()

	author := &models.User{Model: gorm.Model{ID: 1}}
	stranger := &models.User{Model: gorm.Model{ID: 2}}
	recipe := &models.Recipe{AuthorID: 1}

	if !CanMutate(author, recipe) {
		t.Fatal("author should be allowed to mutate")
	}
	if CanMutate(stranger, recipe) {
		t.Fatal("non-author should not be allowed to mutate")
	}
	if CanMutate(nil, recipe) {
		t.Fatal("anonymous user should not be allowed to mutate")
	}
}

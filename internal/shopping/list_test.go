package shopping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"foodgram/internal/apperr"
	"foodgram/internal/relations"
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

type cartFixture struct {
	db      *gorm.DB
	builder *Builder
	store   *relations.Store
	user    *models.User
	recipeA *models.Recipe
	recipeB *models.Recipe
}

// newCartFixture seeds two recipes sharing an ingredient: recipe A holds
// (flour, 200, g) and (egg, 2, pcs); recipe B holds (flour, 100, g).
func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	db := newTestDB(t)

	f := &cartFixture{
		db:      db,
		builder: NewBuilder(db, relations.NewStore(db)),
		store:   relations.NewStore(db),
		user:    &models.User{Email: "marta@example.com", Username: "marta", FirstName: "Marta", LastName: "Nowak", PasswordHash: "x"},
	}
	if err := db.Create(f.user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	flour := models.Ingredient{Name: "flour", MeasurementUnit: "g"}
	egg := models.Ingredient{Name: "egg", MeasurementUnit: "pcs"}
	for _, ingredient := range []*models.Ingredient{&flour, &egg} {
		if err := db.Create(ingredient).Error; err != nil {
			t.Fatalf("seed ingredient: %v", err)
		}
	}

	f.recipeA = &models.Recipe{AuthorID: f.user.ID, Name: "Pancakes", CookingTime: 20}
	f.recipeB = &models.Recipe{AuthorID: f.user.ID, Name: "Crepes", CookingTime: 30}
	for _, recipe := range []*models.Recipe{f.recipeA, f.recipeB} {
		if err := db.Create(recipe).Error; err != nil {
			t.Fatalf("seed recipe: %v", err)
		}
	}

	rows := []models.RecipeIngredient{
		{RecipeID: f.recipeA.ID, IngredientID: flour.ID, Amount: 200},
		{RecipeID: f.recipeA.ID, IngredientID: egg.ID, Amount: 2},
		{RecipeID: f.recipeB.ID, IngredientID: flour.ID, Amount: 100},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed ingredient rows: %v", err)
	}
	return f
}

func TestAggregateSumsSharedIngredients(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	items, err := f.builder.Aggregate(context.Background(), []uint{f.recipeA.ID, f.recipeB.ID})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	want := []Item{
		{Name: "egg", Amount: 2, Unit: "pcs"},
		{Name: "flour", Amount: 300, Unit: "g"},
	}
	if len(items) != len(want) {
		t.Fatalf("got %v, want %v", items, want)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("item %d = %+v, want %+v", i, items[i], want[i])
		}
	}
}

func TestAggregateKeepsUnitsDistinct(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)

	// Same name, different unit: must stay a separate line.
	flourCup := models.Ingredient{Name: "flour", MeasurementUnit: "cup"}
	if err := f.db.Create(&flourCup).Error; err != nil {
		t.Fatalf("seed ingredient: %v", err)
	}
	row := models.RecipeIngredient{RecipeID: f.recipeB.ID, IngredientID: flourCup.ID, Amount: 1}
	if err := f.db.Create(&row).Error; err != nil {
		t.Fatalf("seed ingredient row: %v", err)
	}

	items, err := f.builder.Aggregate(context.Background(), []uint{f.recipeA.ID, f.recipeB.ID})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	want := []Item{
		{Name: "egg", Amount: 2, Unit: "pcs"},
		{Name: "flour", Amount: 1, Unit: "cup"},
		{Name: "flour", Amount: 300, Unit: "g"},
	}
	if len(items) != len(want) {
		t.Fatalf("got %v, want %v", items, want)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("item %d = %+v, want %+v", i, items[i], want[i])
		}
	}
}

func TestAggregateEmptyRecipeSet(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	items, err := f.builder.Aggregate(context.Background(), nil)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestBuildListRequiresAuthenticatedUser(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	if _, err := f.builder.BuildList(context.Background(), nil); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("BuildList error = %v, want ErrUnauthenticated", err)
	}
}

func TestBuildListEmptyCart(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	if _, err := f.builder.BuildList(context.Background(), f.user); !errors.Is(err, apperr.ErrEmptyCart) {
		t.Fatalf("BuildList error = %v, want ErrEmptyCart", err)
	}
}

func TestBuildListCollectsCartRecipes(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	ctx := context.Background()

	for _, recipeID := range []uint{f.recipeA.ID, f.recipeB.ID} {
		if _, err := f.store.Add(ctx, models.RelationShoppingCart, f.user.ID, recipeID); err != nil {
			t.Fatalf("add to cart: %v", err)
		}
	}

	fixed := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	f.builder.now = func() time.Time { return fixed }

	list, err := f.builder.BuildList(ctx, f.user)
	if err != nil {
		t.Fatalf("BuildList: %v", err)
	}

	if list.Username != "marta" {
		t.Fatalf("username = %q, want marta", list.Username)
	}
	if !list.GeneratedAt.Equal(fixed) {
		t.Fatalf("generated at = %v, want %v", list.GeneratedAt, fixed)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 aggregated items, got %v", list.Items)
	}
	if len(list.Recipes) != 2 {
		t.Fatalf("expected 2 recipe refs, got %v", list.Recipes)
	}
	if list.Recipes[0].Name != "Crepes" || list.Recipes[1].Name != "Pancakes" {
		t.Fatalf("recipes not ordered by name: %v", list.Recipes)
	}
	if list.Recipes[0].Author != "Marta Nowak" {
		t.Fatalf("author = %q, want full name", list.Recipes[0].Author)
	}
}

func TestRenderFormat(t *testing.T) {
	t.Parallel()

	list := &List{
		Username:    "marta",
		GeneratedAt: time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC),
		Items: []Item{
			{Name: "egg", Amount: 2, Unit: "pcs"},
			{Name: "flour", Amount: 300, Unit: "g"},
		},
		Recipes: []RecipeRef{
			{Name: "Crepes", Author: "Marta Nowak"},
			{Name: "Pancakes", Author: "Marta Nowak"},
		},
	}

	got := list.Render()
	want := strings.Join([]string{
		"Foodgram - Shopping Cart",
		"Date: 2026-03-14 09:30:00 UTC",
		"User: marta",
		"",
		"Ingredients:",
		"1. Egg - 2 pcs",
		"2. Flour - 300 g",
		"",
		"Recipes:",
		"- Crepes (Author: Marta Nowak)",
		"- Pancakes (Author: Marta Nowak)",
		"",
		"Foodgram - Your cooking helper © 2026",
		"",
	}, "\n")
	if got != want {
		t.Fatalf("rendered list mismatch:\n got:\n%s\nwant:\n%s", got, want)
	}
}

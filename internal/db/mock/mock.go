package mock

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "foodgram/internal/log"
	"foodgram/models"
)

// New returns an in-memory sqlite database seeded with a pair of cooks, a
// small ingredient catalog and two recipes sharing an ingredient. Used when
// no DATABASE_URL is configured and by integration-style tests.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	db, err := gorm.Open(sqlite.Open("file:foodgram-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Ingredient{},
		&models.Recipe{},
		&models.RecipeIngredient{},
		&models.Relation{},
		&models.Subscription{},
		&models.ShortLink{},
	); err != nil {
		return nil, err
	}

	if err := seed(ctx, db); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte("kitchen"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	marta := &models.User{
		Email:        "marta@foodgram.app",
		Username:     "marta",
		FirstName:    "Marta",
		LastName:     "Oliveira",
		PasswordHash: string(password),
	}
	janek := &models.User{
		Email:        "janek@foodgram.app",
		Username:     "janek",
		FirstName:    "Janek",
		LastName:     "Kowalski",
		PasswordHash: string(password),
	}
	for _, user := range []*models.User{marta, janek} {
		if err := db.WithContext(ctx).Create(user).Error; err != nil {
			return err
		}
	}

	flour := models.Ingredient{Name: "flour", MeasurementUnit: "g"}
	egg := models.Ingredient{Name: "egg", MeasurementUnit: "pcs"}
	milk := models.Ingredient{Name: "milk", MeasurementUnit: "ml"}
	sugar := models.Ingredient{Name: "sugar", MeasurementUnit: "g"}

	ingredients := []*models.Ingredient{&flour, &egg, &milk, &sugar}
	for _, ingredient := range ingredients {
		if err := db.WithContext(ctx).Create(ingredient).Error; err != nil {
			return err
		}
	}

	pancakes := models.Recipe{
		AuthorID:    marta.ID,
		Name:        "Buttermilk pancakes",
		Text:        "Whisk, rest the batter, fry on medium heat.",
		CookingTime: 25,
	}
	crepes := models.Recipe{
		AuthorID:    janek.ID,
		Name:        "Thin crepes",
		Text:        "A loose batter rested overnight makes the thinnest crepes.",
		CookingTime: 40,
	}
	for _, recipe := range []*models.Recipe{&pancakes, &crepes} {
		if err := db.WithContext(ctx).Create(recipe).Error; err != nil {
			return err
		}
	}

	rows := []models.RecipeIngredient{
		{RecipeID: pancakes.ID, IngredientID: flour.ID, Amount: 200},
		{RecipeID: pancakes.ID, IngredientID: egg.ID, Amount: 2},
		{RecipeID: pancakes.ID, IngredientID: milk.ID, Amount: 300},
		{RecipeID: crepes.ID, IngredientID: flour.ID, Amount: 100},
		{RecipeID: crepes.ID, IngredientID: egg.ID, Amount: 3},
		{RecipeID: crepes.ID, IngredientID: sugar.ID, Amount: 30},
	}
	for _, row := range rows {
		rowCopy := row
		if err := db.WithContext(ctx).Create(&rowCopy).Error; err != nil {
			return err
		}
	}

	relations := []models.Relation{
		{Kind: models.RelationFavorite, UserID: janek.ID, RecipeID: pancakes.ID},
		{Kind: models.RelationShoppingCart, UserID: marta.ID, RecipeID: pancakes.ID},
		{Kind: models.RelationShoppingCart, UserID: marta.ID, RecipeID: crepes.ID},
	}
	for _, relation := range relations {
		relationCopy := relation
		if err := db.WithContext(ctx).Create(&relationCopy).Error; err != nil {
			return err
		}
	}

	subscription := models.Subscription{FollowerID: janek.ID, FolloweeID: marta.ID}
	if err := db.WithContext(ctx).Create(&subscription).Error; err != nil {
		return err
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}

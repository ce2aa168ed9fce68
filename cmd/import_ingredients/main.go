// Command import_ingredients loads the ingredient reference catalog from a
// JSON file into the database. Rows are keyed by (name, unit) and both parts
// are lowercased, so re-running the import is safe: known pairs are skipped.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"foodgram/internal/config"
	"foodgram/internal/db"
	"foodgram/models"
)

type ingredientRecord struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

func main() {
	jsonPath := "ingredients.json"
	if len(os.Args) > 1 {
		jsonPath = os.Args[1]
	}

	if err := run(jsonPath); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(jsonPath string) error {
	if strings.TrimSpace(jsonPath) == "" {
		return fmt.Errorf("json path must not be empty")
	}

	records, err := readRecords(jsonPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, err := db.Initialize(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	imported, skipped, err := importRecords(database, records)
	if err != nil {
		return err
	}

	fmt.Printf("loaded %d ingredients (%d already present)\n", imported, skipped)
	return nil
}

func readRecords(jsonPath string) ([]ingredientRecord, error) {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}

	var records []ingredientRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return records, nil
}

func importRecords(database *gorm.DB, records []ingredientRecord) (imported, skipped int, err error) {
	err = database.Transaction(func(tx *gorm.DB) error {
		for idx, record := range records {
			name := strings.ToLower(strings.TrimSpace(record.Name))
			unit := strings.ToLower(strings.TrimSpace(record.MeasurementUnit))
			if name == "" || unit == "" {
				return fmt.Errorf("record %d: name and measurement_unit are required", idx+1)
			}

			var existing models.Ingredient
			findErr := tx.Where("name = ? AND measurement_unit = ?", name, unit).First(&existing).Error
			if findErr == nil {
				skipped++
				continue
			}
			if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("find ingredient %q (%s): %w", name, unit, findErr)
			}

			ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
			if createErr := tx.Create(&ingredient).Error; createErr != nil {
				return fmt.Errorf("create ingredient %q (%s): %w", name, unit, createErr)
			}
			imported++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return imported, skipped, nil
}

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"foodgram/models"
)

func TestIngredientSearch(t *testing.T) {
	db, _ := withHandlerEnv(t)
	seedIngredient(t, db, "flour", "g")
	seedIngredient(t, db, "egg", "pcs")

	req := httptest.NewRequest(http.MethodGet, "/api/ingredients?name=FL", nil)
	w := httptest.NewRecorder()
	IngredientResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp []models.Ingredient
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Name != "flour" {
		t.Fatalf("expected prefix match on flour, got %+v", resp)
	}
}

func TestIngredientShow(t *testing.T) {
	db, _ := withHandlerEnv(t)
	flour := seedIngredient(t, db, "flour", "g")

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/ingredients/%d", flour.ID), nil)
	w := httptest.NewRecorder()
	IngredientResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.Ingredient
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != flour.ID || resp.MeasurementUnit != "g" {
		t.Fatalf("unexpected ingredient: %+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/ingredients/9999", nil)
	w = httptest.NewRecorder()
	IngredientResource(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for missing ingredient, got %d", w.Code)
	}
}

func TestIngredientResourceReadOnly(t *testing.T) {
	withHandlerEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/ingredients", nil)
	w := httptest.NewRecorder()
	IngredientResource(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", w.Code)
	}
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"foodgram/internal/apperr"
	applog "foodgram/internal/log"
	"foodgram/internal/recipes"
	"foodgram/models"
)

type ingredientAmountRequest struct {
	ID     uint `json:"id" validate:"required"`
	Amount int  `json:"amount" validate:"required,min=1"`
}

type recipeWriteRequest struct {
	Name        string                    `json:"name" validate:"required,max=256"`
	Text        string                    `json:"text"`
	Image       *string                   `json:"image"`
	CookingTime int                       `json:"cooking_time" validate:"required,min=1"`
	Ingredients []ingredientAmountRequest `json:"ingredients" validate:"required,min=1,dive"`
}

type recipeIngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

type recipeResponse struct {
	ID                uint                       `json:"id"`
	Author            userResponse               `json:"author"`
	Name              string                     `json:"name"`
	Text              string                     `json:"text"`
	Image             string                     `json:"image"`
	CookingTime       int                        `json:"cooking_time"`
	Ingredients       []recipeIngredientResponse `json:"ingredients"`
	IsFavorited       bool                       `json:"is_favorited"`
	IsInShoppingCart  bool                       `json:"is_in_shopping_cart"`
	CreatedAt         time.Time                  `json:"created_at"`
	UpdatedAt         time.Time                  `json:"updated_at"`
}

type shortRecipeResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

func projectShortRecipe(recipe models.Recipe) shortRecipeResponse {
	return shortRecipeResponse{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       recipe.Image,
		CookingTime: recipe.CookingTime,
	}
}

func projectRecipe(r *http.Request, recipe *models.Recipe) recipeResponse {
	resp := recipeResponse{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Text:        recipe.Text,
		Image:       recipe.Image,
		CookingTime: recipe.CookingTime,
		CreatedAt:   recipe.CreatedAt,
		UpdatedAt:   recipe.UpdatedAt,
	}
	if recipe.Author != nil {
		resp.Author = projectUser(r, recipe.Author)
	}

	resp.Ingredients = make([]recipeIngredientResponse, 0, len(recipe.Ingredients))
	for _, row := range recipe.Ingredients {
		entry := recipeIngredientResponse{ID: row.IngredientID, Amount: row.Amount}
		if row.Ingredient != nil {
			entry.Name = row.Ingredient.Name
			entry.MeasurementUnit = row.Ingredient.MeasurementUnit
		}
		resp.Ingredients = append(resp.Ingredients, entry)
	}

	if current := CurrentUser(r); current != nil {
		for _, check := range []struct {
			kind   models.RelationKind
			target *bool
		}{
			{models.RelationFavorite, &resp.IsFavorited},
			{models.RelationShoppingCart, &resp.IsInShoppingCart},
		} {
			present, err := relationStore.Exists(r.Context(), check.kind, current.ID, recipe.ID)
			if err != nil {
				applog.Error(r.Context(), "failed to check relation", "error", err, "kind", check.kind, "recipe_id", recipe.ID)
				continue
			}
			*check.target = present
		}
	}
	return resp
}

// RecipeResource handles the recipe listing, the write path and the relation
// toggles nested under a recipe.
func RecipeResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/recipes"), "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listRecipes(w, r)
		case http.MethodPost:
			createRecipe(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if path == "download_shopping_cart" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		downloadShoppingCart(w, r)
		return
	}

	segments := strings.Split(path, "/")
	idValue, err := strconv.ParseUint(segments[0], 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid recipe identifier", "identifier", segments[0], "error", err)
		http.NotFound(w, r)
		return
	}
	recipeID := uint(idValue)

	if len(segments) == 2 {
		switch segments[1] {
		case "favorite":
			toggleRelation(w, r, models.RelationFavorite, recipeID)
		case "shopping_cart":
			toggleRelation(w, r, models.RelationShoppingCart, recipeID)
		case "get-link":
			if r.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			getRecipeLink(w, r, recipeID)
		default:
			http.NotFound(w, r)
		}
		return
	}
	if len(segments) != 1 {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		showRecipe(w, r, recipeID)
	case http.MethodPatch, http.MethodPut:
		updateRecipe(w, r, recipeID)
	case http.MethodDelete:
		deleteRecipe(w, r, recipeID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listRecipes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := recipes.Filters{
		Favorited:      queryFlag(query.Get("is_favorited")),
		InShoppingCart: queryFlag(query.Get("is_in_shopping_cart")),
	}
	if value := strings.TrimSpace(query.Get("author")); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			filters.AuthorID = uint(parsed)
		}
	}
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			filters.Limit = parsed
		}
	}
	if value := strings.TrimSpace(query.Get("offset")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			filters.Offset = parsed
		}
	}

	results, err := recipeLister.List(r.Context(), CurrentUser(r), filters)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	responses := make([]recipeResponse, 0, len(results))
	for i := range results {
		responses = append(responses, projectRecipe(r, &results[i]))
	}
	writeJSON(w, http.StatusOK, responses)
}

func showRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	recipe, err := recipeService.Get(r.Context(), recipeID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectRecipe(r, recipe))
}

func createRecipe(w http.ResponseWriter, r *http.Request) {
	current := CurrentUser(r)
	if current == nil {
		writeDomainError(w, r, apperr.ErrUnauthenticated)
		return
	}

	var payload recipeWriteRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeDomainError(w, r, err)
		return
	}

	imageRef := ""
	if payload.Image != nil && *payload.Image != "" {
		ref, err := storeRecipeImage(*payload.Image)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		imageRef = ref
	}

	recipe, err := recipeService.Create(r.Context(), current, recipes.CreateInput{
		Name:        payload.Name,
		Text:        payload.Text,
		Image:       imageRef,
		CookingTime: payload.CookingTime,
		Ingredients: toIngredientAmounts(payload.Ingredients),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, projectRecipe(r, recipe))
}

func updateRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	current := CurrentUser(r)
	if current == nil {
		writeDomainError(w, r, apperr.ErrUnauthenticated)
		return
	}

	var payload recipeWriteRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeDomainError(w, r, err)
		return
	}

	input := recipes.UpdateInput{
		Name:        payload.Name,
		Text:        payload.Text,
		CookingTime: payload.CookingTime,
		Ingredients: toIngredientAmounts(payload.Ingredients),
	}
	if payload.Image != nil && *payload.Image != "" {
		ref, err := storeRecipeImage(*payload.Image)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		input.Image = &ref
	}

	recipe, err := recipeService.Update(r.Context(), current, recipeID, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectRecipe(r, recipe))
}

func deleteRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	current := CurrentUser(r)
	if current == nil {
		writeDomainError(w, r, apperr.ErrUnauthenticated)
		return
	}
	if err := recipeService.Delete(r.Context(), current, recipeID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// toggleRelation adds or removes a favorite / cart row. Adding twice is a
// conflict; removing an absent pair is not found.
func toggleRelation(w http.ResponseWriter, r *http.Request, kind models.RelationKind, recipeID uint) {
	current := CurrentUser(r)
	if current == nil {
		writeDomainError(w, r, apperr.ErrUnauthenticated)
		return
	}

	recipe, err := recipeService.Get(r.Context(), recipeID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodPost:
		if _, err := relationStore.Add(r.Context(), kind, current.ID, recipe.ID); err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, projectShortRecipe(*recipe))
	case http.MethodDelete:
		if err := relationStore.Remove(r.Context(), kind, current.ID, recipe.ID); err != nil {
			writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func downloadShoppingCart(w http.ResponseWriter, r *http.Request) {
	current := CurrentUser(r)
	if current == nil {
		writeDomainError(w, r, apperr.ErrUnauthenticated)
		return
	}

	list, err := shoppingList.BuildList(r.Context(), current)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	if _, err := w.Write([]byte(list.Render())); err != nil {
		applog.Error(r.Context(), "failed to write shopping list", "error", err)
	}
}

func getRecipeLink(w http.ResponseWriter, r *http.Request, recipeID uint) {
	recipe, err := recipeService.Get(r.Context(), recipeID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	link := &models.ShortLink{}
	err = database.WithContext(r.Context()).Where("recipe_id = ?", recipe.ID).First(link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		link = &models.ShortLink{Code: uuid.NewString()[:8], RecipeID: recipe.ID}
		err = database.WithContext(r.Context()).Create(link).Error
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"short-link": fmt.Sprintf("%s://%s/s/%s", scheme, r.Host, link.Code),
	})
}

// ShortLinkRedirect resolves /s/{code} to the recipe it was minted for.
func ShortLinkRedirect(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/s"), "/")
	if code == "" {
		http.NotFound(w, r)
		return
	}

	link := &models.ShortLink{}
	if err := database.WithContext(r.Context()).Where("code = ?", code).First(link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		writeDomainError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/api/recipes/%d", link.RecipeID), http.StatusFound)
}

func storeRecipeImage(dataURI string) (string, error) {
	if mediaStore == nil {
		return "", fmt.Errorf("media store not configured")
	}
	return mediaStore.SaveDataURI("recipes", dataURI)
}

func toIngredientAmounts(items []ingredientAmountRequest) []recipes.IngredientAmount {
	amounts := make([]recipes.IngredientAmount, 0, len(items))
	for _, item := range items {
		amounts = append(amounts, recipes.IngredientAmount{IngredientID: item.ID, Amount: item.Amount})
	}
	return amounts
}

func queryFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true":
		return true
	}
	return false
}

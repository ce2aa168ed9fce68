// Package handlers exposes the JSON API over the core services. Handlers
// resolve the current user from the session once per request and pass it
// explicitly into the core; they own no business rules beyond mapping domain
// errors to HTTP statuses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/alexedwards/scs/v2"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"foodgram/internal/apperr"
	applog "foodgram/internal/log"
	"foodgram/internal/media"
	"foodgram/internal/recipes"
	"foodgram/internal/relations"
	"foodgram/internal/shopping"
)

var (
	sessionManager *scs.SessionManager
	database       *gorm.DB
	mediaStore     *media.Store

	recipeService *recipes.Service
	recipeLister  *recipes.Lister
	catalog       *recipes.Catalog
	relationStore *relations.Store
	subscriptions *relations.Subscriptions
	shoppingList  *shopping.Builder

	validate = newValidator()
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Mirrors the username charset accepted at registration.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(sm *scs.SessionManager, db *gorm.DB, store *media.Store) {
	sessionManager = sm
	database = db
	mediaStore = store

	recipeService = recipes.NewService(db)
	relationStore = relations.NewStore(db)
	subscriptions = relations.NewSubscriptions(db)
	recipeLister = recipes.NewLister(db, relationStore)
	catalog = recipes.NewCatalog(db)
	shoppingList = shopping.NewBuilder(db, relationStore)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps the core error taxonomy onto stable HTTP statuses.
// Anything outside the taxonomy is a storage failure and stays opaque.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": ve.Fields})
	case errors.Is(err, apperr.ErrSelfSubscription),
		errors.Is(err, apperr.ErrEmptyCart):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrConflict):
		writeJSONError(w, http.StatusConflict, "already exists")
	case errors.Is(err, apperr.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, apperr.ErrUnauthenticated):
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
	default:
		applog.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, payload any) error {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		return apperr.Validation("body", "invalid json payload")
	}
	if err := validate.Struct(payload); err != nil {
		fields := map[string]string{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = "failed " + fe.Tag() + " validation"
			}
			return &apperr.ValidationError{Fields: fields}
		}
		return apperr.Validation("body", "invalid payload")
	}
	return nil
}

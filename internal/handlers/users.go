package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"foodgram/internal/apperr"
	applog "foodgram/internal/log"
	"foodgram/models"
)

type userResponse struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
	Avatar       string `json:"avatar,omitempty"`
}

type userWithRecipesResponse struct {
	userResponse
	Recipes      []shortRecipeResponse `json:"recipes"`
	RecipesCount int64                 `json:"recipes_count"`
}

type avatarRequest struct {
	Avatar string `json:"avatar" validate:"required"`
}

func projectUser(r *http.Request, user *models.User) userResponse {
	resp := userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Avatar:    user.Avatar,
	}
	if current := CurrentUser(r); current != nil && current.ID != user.ID {
		subscribed, err := subscriptions.Exists(r.Context(), current.ID, user.ID)
		if err != nil {
			applog.Error(r.Context(), "failed to check subscription", "error", err, "followee_id", user.ID)
		} else {
			resp.IsSubscribed = subscribed
		}
	}
	return resp
}

// UserResource handles profile reads, avatar management and subscriptions.
func UserResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users"), "/")

	switch {
	case path == "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		listUsers(w, r)
	case path == "me":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		me(w, r)
	case path == "me/avatar":
		updateAvatar(w, r)
	case path == "subscriptions":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		listSubscriptions(w, r)
	default:
		segments := strings.Split(path, "/")
		idValue, err := strconv.ParseUint(segments[0], 10, 64)
		if err != nil {
			applog.Debug(r.Context(), "invalid user identifier", "identifier", segments[0], "error", err)
			http.NotFound(w, r)
			return
		}
		userID := uint(idValue)

		if len(segments) == 2 && segments[1] == "subscribe" {
			toggleSubscription(w, r, userID)
			return
		}
		if len(segments) != 1 || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		showUser(w, r, userID)
	}
}

func listUsers(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := database.WithContext(r.Context()).Order("username asc").Find(&users).Error; err != nil {
		writeDomainError(w, r, err)
		return
	}

	responses := make([]userResponse, 0, len(users))
	for i := range users {
		responses = append(responses, projectUser(r, &users[i]))
	}
	writeJSON(w, http.StatusOK, responses)
}

func showUser(w http.ResponseWriter, r *http.Request, userID uint) {
	user, err := loadUser(r, userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectUser(r, user))
}

func me(w http.ResponseWriter, r *http.Request) {
	current := CurrentUser(r)
	if current == nil {
		writeDomainError(w, r, apperr.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, projectUser(r, current))
}

func updateAvatar(w http.ResponseWriter, r *http.Request) {
	current := CurrentUser(r)
	if current == nil {
		writeDomainError(w, r, apperr.ErrUnauthenticated)
		return
	}
	if mediaStore == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "media storage unavailable")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var payload avatarRequest
		if err := decodeJSON(r, &payload); err != nil {
			writeDomainError(w, r, err)
			return
		}

		ref, err := mediaStore.SaveDataURI("avatars", payload.Avatar)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		previous := current.Avatar
		if err := database.WithContext(r.Context()).Model(current).Update("avatar", ref).Error; err != nil {
			writeDomainError(w, r, err)
			return
		}
		if previous != "" {
			if err := mediaStore.Remove(previous); err != nil {
				applog.Warn(r.Context(), "failed to remove replaced avatar", "error", err, "ref", previous)
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"avatar": ref})
	case http.MethodDelete:
		if current.Avatar == "" {
			writeDomainError(w, r, apperr.Validation("avatar", "no avatar to delete"))
			return
		}
		ref := current.Avatar
		if err := database.WithContext(r.Context()).Model(current).Update("avatar", "").Error; err != nil {
			writeDomainError(w, r, err)
			return
		}
		if err := mediaStore.Remove(ref); err != nil {
			applog.Warn(r.Context(), "failed to remove avatar file", "error", err, "ref", ref)
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listSubscriptions(w http.ResponseWriter, r *http.Request) {
	current := CurrentUser(r)
	if current == nil {
		writeDomainError(w, r, apperr.ErrUnauthenticated)
		return
	}

	limit := 0
	if value := strings.TrimSpace(r.URL.Query().Get("recipes_limit")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	followees, err := subscriptions.Followees(r.Context(), current.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	responses := make([]userWithRecipesResponse, 0, len(followees))
	for i := range followees {
		followee := &followees[i]
		entry := userWithRecipesResponse{userResponse: projectUser(r, followee)}

		authored, err := recipeLister.ByAuthor(r.Context(), followee.ID, limit)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		entry.Recipes = make([]shortRecipeResponse, 0, len(authored))
		for _, recipe := range authored {
			entry.Recipes = append(entry.Recipes, projectShortRecipe(recipe))
		}

		count, err := recipeLister.CountByAuthor(r.Context(), followee.ID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		entry.RecipesCount = count

		responses = append(responses, entry)
	}
	writeJSON(w, http.StatusOK, responses)
}

func toggleSubscription(w http.ResponseWriter, r *http.Request, followeeID uint) {
	current := CurrentUser(r)
	if current == nil {
		writeDomainError(w, r, apperr.ErrUnauthenticated)
		return
	}

	followee, err := loadUser(r, followeeID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodPost:
		if _, err := subscriptions.Add(r.Context(), current.ID, followee.ID); err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, projectUser(r, followee))
	case http.MethodDelete:
		if err := subscriptions.Remove(r.Context(), current.ID, followee.ID); err != nil {
			writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func loadUser(r *http.Request, userID uint) (*models.User, error) {
	user := &models.User{}
	if err := database.WithContext(r.Context()).First(user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return user, nil
}

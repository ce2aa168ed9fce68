package handlers

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"foodgram/internal/apperr"
	applog "foodgram/internal/log"
	"foodgram/models"
)

const (
	sessionAuthenticatedKey = "auth:authenticated"
	sessionUserIDKey        = "auth:user:id"
)

type signupRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,min=1,max=150,username"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Password  string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Signup registers a new account and signs it in.
func Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if sessionManager == nil || database == nil {
		applog.Debug(r.Context(), "registration dependencies unavailable", "hasSession", sessionManager != nil, "hasDatabase", database != nil)
		writeJSONError(w, http.StatusServiceUnavailable, "registration not available")
		return
	}

	var payload signupRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeDomainError(w, r, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))

	if _, err := findUserByEmail(r, email); err == nil {
		writeDomainError(w, r, apperr.Validation("email", "an account with that email already exists"))
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		writeDomainError(w, r, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	user := &models.User{
		Email:        email,
		Username:     strings.TrimSpace(payload.Username),
		FirstName:    strings.TrimSpace(payload.FirstName),
		LastName:     strings.TrimSpace(payload.LastName),
		PasswordHash: string(hashed),
	}
	if err := database.WithContext(r.Context()).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeDomainError(w, r, apperr.Validation("username", "email or username already taken"))
			return
		}
		writeDomainError(w, r, err)
		return
	}

	if err := establishSession(r, user); err != nil {
		applog.Error(r.Context(), "failed to establish session after signup", "error", err)
		writeDomainError(w, r, err)
		return
	}

	applog.Info(r.Context(), "user registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, projectUser(r, user))
}

// Login verifies credentials and starts a session.
func Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if sessionManager == nil || database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "authentication not available")
		return
	}

	var payload loginRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeDomainError(w, r, err)
		return
	}

	user, err := findUserByEmail(r, payload.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeDomainError(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		writeJSONError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := establishSession(r, user); err != nil {
		applog.Error(r.Context(), "failed to establish session", "error", err)
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, projectUser(r, user))
}

// Logout destroys the current session.
func Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if sessionManager != nil {
		if err := sessionManager.Destroy(r.Context()); err != nil {
			applog.Error(r.Context(), "failed to destroy session", "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func establishSession(r *http.Request, user *models.User) error {
	if sessionManager == nil {
		return errors.New("session manager not configured")
	}
	if err := sessionManager.RenewToken(r.Context()); err != nil {
		return err
	}
	sessionManager.Put(r.Context(), sessionAuthenticatedKey, true)
	sessionManager.Put(r.Context(), sessionUserIDKey, int(user.ID))
	return nil
}

func findUserByEmail(r *http.Request, email string) (*models.User, error) {
	if database == nil {
		return nil, gorm.ErrInvalidDB
	}
	user := &models.User{}
	err := database.WithContext(r.Context()).
		Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CurrentUser resolves the signed-in user for this request, or nil for an
// anonymous caller. A stale session pointing at a deleted account counts as
// anonymous.
func CurrentUser(r *http.Request) *models.User {
	if sessionManager == nil || database == nil {
		return nil
	}
	if !sessionManager.GetBool(r.Context(), sessionAuthenticatedKey) {
		return nil
	}
	id := sessionManager.GetInt(r.Context(), sessionUserIDKey)
	if id <= 0 {
		return nil
	}

	user := &models.User{}
	if err := database.WithContext(r.Context()).First(user, uint(id)).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Error(r.Context(), "failed to load session user", "error", err, "user_id", id)
		}
		return nil
	}
	return user
}

// RequireAuthentication rejects anonymous requests with 401 before the
// wrapped handler runs.
func RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r) == nil {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	applog "foodgram/internal/log"
)

// IngredientResource serves the public ingredient catalog.
func IngredientResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/ingredients"), "/")

	if path == "" {
		results, err := catalog.Search(r.Context(), r.URL.Query().Get("name"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid ingredient identifier", "identifier", path, "error", err)
		http.NotFound(w, r)
		return
	}

	ingredient, err := catalog.Get(r.Context(), uint(idValue))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredient)
}

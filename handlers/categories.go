package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/openshelf/bookapp/middleware"
	"github.com/openshelf/bookapp/models"
	"github.com/openshelf/bookapp/service"
)

type CategoriesHandler struct {
	Categories *service.Categories
}

func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.Categories.List(r.Context())
	if err != nil {
		http.Error(w, `{"error":"failed to list categories"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// Create adds a category. Admin only.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if middleware.RoleFromContext(r.Context()) != models.RoleAdmin {
		http.Error(w, `{"error":"admin only"}`, http.StatusForbidden)
		return
	}
	var req struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Category == "" {
		http.Error(w, `{"error":"category name required"}`, http.StatusBadRequest)
		return
	}
	cat, err := h.Categories.Create(r.Context(), uid, req.Category)
	if err != nil {
		http.Error(w, `{"error":"failed to create category"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(cat)
}

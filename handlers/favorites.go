package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openshelf/bookapp/favorites"
	"github.com/openshelf/bookapp/middleware"
)

type FavoritesHandler struct {
	Favorites *favorites.Manager
}

func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if err := h.Favorites.Add(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		http.Error(w, `{"error":"failed to add favorite"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if err := h.Favorites.Remove(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		http.Error(w, `{"error":"failed to remove favorite"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FavoritesHandler) Check(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	fav, err := h.Favorites.IsFavorite(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"failed to check favorite"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"favorite": fav})
}

func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	ids, err := h.Favorites.ListBookIDs(r.Context(), uid)
	if err != nil {
		http.Error(w, `{"error":"failed to list favorites"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"bookIds": ids})
}

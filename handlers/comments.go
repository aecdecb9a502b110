package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openshelf/bookapp/comments"
	"github.com/openshelf/bookapp/middleware"
	"github.com/openshelf/bookapp/models"
)

type CommentsHandler struct {
	Comments *comments.Service
}

func (h *CommentsHandler) Add(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Comment == "" {
		http.Error(w, `{"error":"comment text required"}`, http.StatusBadRequest)
		return
	}
	c, err := h.Comments.Add(r.Context(), uid, chi.URLParam(r, "id"), req.Comment)
	if err != nil {
		http.Error(w, `{"error":"failed to add comment"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

func (h *CommentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	admin := middleware.RoleFromContext(r.Context()) == models.RoleAdmin
	err := h.Comments.Delete(r.Context(), uid, chi.URLParam(r, "commentId"), admin)
	if errors.Is(err, comments.ErrNotOwner) {
		http.Error(w, `{"error":"not your comment"}`, http.StatusForbidden)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"failed to delete comment"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CommentsHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.Comments.ListForBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"failed to list comments"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

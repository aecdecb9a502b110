package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/openshelf/bookapp/middleware"
	"github.com/openshelf/bookapp/models"
	"github.com/openshelf/bookapp/service"
)

const contentTypePDF = "application/pdf"

type UploadHandler struct {
	Uploader *service.Uploader
	MaxBytes int64
}

// Upload accepts a multipart PDF with title/description/categoryId fields
// and creates the catalog entry. Admin only.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if middleware.RoleFromContext(r.Context()) != models.RoleAdmin {
		http.Error(w, `{"error":"admin only"}`, http.StatusForbidden)
		return
	}

	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		http.Error(w, `{"error":"failed to parse multipart form"}`, http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"missing file"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(strings.TrimSpace(filepath.Ext(header.Filename)))
	partContentType := header.Header.Get("Content-Type")
	if ext != ".pdf" && !strings.HasPrefix(partContentType, contentTypePDF) {
		http.Error(w, `{"error":"only pdf is allowed"}`, http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}
	description := r.FormValue("description")
	categoryID := r.FormValue("categoryId")
	if categoryID == "" {
		http.Error(w, `{"error":"categoryId required"}`, http.StatusBadRequest)
		return
	}

	book, err := h.Uploader.UploadBook(r.Context(), uid, title, description, categoryID, file)
	if err != nil {
		http.Error(w, `{"error":"upload failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(book)
}

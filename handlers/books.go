package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openshelf/bookapp/catalog"
	"github.com/openshelf/bookapp/counter"
	"github.com/openshelf/bookapp/delivery"
	"github.com/openshelf/bookapp/middleware"
	"github.com/openshelf/bookapp/models"
	"github.com/openshelf/bookapp/service"
	"github.com/openshelf/bookapp/store"
)

type BooksHandler struct {
	Remote   store.Remote
	Counters *counter.Updater
	Pipeline *delivery.Pipeline
	Uploader *service.Uploader
}

// List serves one of the catalog's view shapes, selected by query params:
// ?category=<id>, ?top=views|downloads&limit=N, or neither for all books.
// ?q=<text> filters the result by title locally.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	spec := catalog.AllBooks()
	if categoryID := r.URL.Query().Get("category"); categoryID != "" {
		spec = catalog.ByCategory(categoryID)
	} else if top := r.URL.Query().Get("top"); top != "" {
		metric := catalog.MetricViews
		if top == "downloads" {
			metric = catalog.MetricDownloads
		}
		limit := 10
		if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
			limit = n
		}
		spec = catalog.TopByMetric(metric, limit)
	}
	docs, err := h.Remote.QueryOnce(r.Context(), store.Books, spec.Query())
	if err != nil {
		http.Error(w, `{"error":"failed to list books"}`, http.StatusInternalServerError)
		return
	}
	books := make([]models.Book, 0, len(docs))
	for _, doc := range docs {
		book, err := catalog.DecodeBook(doc)
		if err != nil {
			log.Printf("books: skipping record %s: %v", doc.ID, err)
			continue
		}
		books = append(books, book)
	}
	books = catalog.FilterBooks(books, r.URL.Query().Get("q"))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(books)
}

// Get returns one book and counts the view, the same trigger as opening the
// detail screen. The increment is fire-and-forget so a slow or failed count
// never delays the response.
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")
	doc, err := h.Remote.ReadOnce(r.Context(), store.Books, id)
	if err != nil {
		http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
		return
	}
	book, err := catalog.DecodeBook(doc)
	if err != nil {
		http.Error(w, `{"error":"book record malformed"}`, http.StatusInternalServerError)
		return
	}
	// The record stores only the blob ref; resolve a short-lived URL now.
	if book.BlobRef != "" {
		url, err := h.Pipeline.ContentURL(r.Context(), book.BlobRef)
		if err != nil {
			log.Printf("books: content url for %s: %v", id, err)
		} else {
			book.URL = url
		}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.Counters.IncrementViews(ctx, id); err != nil {
			log.Printf("books: view count for %s: %v", id, err)
		}
	}()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(book)
}

// Size reports the content size of the book's PDF, human formatted.
func (h *BooksHandler) Size(w http.ResponseWriter, r *http.Request) {
	book, ok := h.loadBook(w, r)
	if !ok {
		return
	}
	size, err := h.Pipeline.FetchSize(r.Context(), book.BlobRef)
	if err != nil {
		http.Error(w, `{"error":"failed to read size"}`, http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"size": size})
}

// Preview reports the page count from a first-page fetch of the PDF.
func (h *BooksHandler) Preview(w http.ResponseWriter, r *http.Request) {
	book, ok := h.loadBook(w, r)
	if !ok {
		return
	}
	preview, err := h.Pipeline.FetchFirstPagePreview(r.Context(), book.BlobRef)
	if err != nil {
		if errors.Is(err, store.ErrSizeExceeded) {
			http.Error(w, `{"error":"file too large"}`, http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, `{"error":"failed to load preview"}`, http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"pageCount": preview.PageCount})
}

// Download streams the full PDF and counts the download after the bytes
// have been written out, mirroring the persist-then-increment rule.
func (h *BooksHandler) Download(w http.ResponseWriter, r *http.Request) {
	book, ok := h.loadBook(w, r)
	if !ok {
		return
	}
	data, err := h.Pipeline.FetchFullDocument(r.Context(), book.BlobRef)
	if err != nil {
		if errors.Is(err, store.ErrSizeExceeded) {
			http.Error(w, `{"error":"file too large"}`, http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, `{"error":"download failed"}`, http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+book.ID+`.pdf"`)
	if _, err := w.Write(data); err != nil {
		log.Printf("books: download write for %s: %v", book.ID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.Counters.IncrementDownloads(ctx, book.ID); err != nil {
		log.Printf("books: download count for %s: %v", book.ID, err)
	}
}

// Delete removes a book and its stored content. Admin only.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if middleware.RoleFromContext(r.Context()) != models.RoleAdmin {
		http.Error(w, `{"error":"admin only"}`, http.StatusForbidden)
		return
	}
	book, ok := h.loadBook(w, r)
	if !ok {
		return
	}
	if err := h.Uploader.DeleteBook(r.Context(), uid, book.ID, book.BlobRef); err != nil {
		http.Error(w, `{"error":"failed to delete book"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BooksHandler) loadBook(w http.ResponseWriter, r *http.Request) (models.Book, bool) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return models.Book{}, false
	}
	doc, err := h.Remote.ReadOnce(r.Context(), store.Books, chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
		return models.Book{}, false
	}
	book, err := catalog.DecodeBook(doc)
	if err != nil {
		http.Error(w, `{"error":"book record malformed"}`, http.StatusInternalServerError)
		return models.Book{}, false
	}
	return book, true
}

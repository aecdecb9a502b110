package catalog

import (
	"strings"

	"github.com/openshelf/bookapp/models"
)

// FilterBooks returns the books whose title contains query,
// case-insensitively. An empty query returns the input unchanged. The
// input is never mutated, so the function is safe to call on every
// keystroke against the projection's current snapshot.
func FilterBooks(books []models.Book, query string) []models.Book {
	if query == "" {
		return books
	}
	q := strings.ToUpper(query)
	var out []models.Book
	for _, b := range books {
		if strings.Contains(strings.ToUpper(b.Title), q) {
			out = append(out, b)
		}
	}
	return out
}

// FilterCategories is FilterBooks for category lists, matching on the
// display name.
func FilterCategories(categories []models.Category, query string) []models.Category {
	if query == "" {
		return categories
	}
	q := strings.ToUpper(query)
	var out []models.Category
	for _, c := range categories {
		if strings.Contains(strings.ToUpper(c.Name), q) {
			out = append(out, c)
		}
	}
	return out
}

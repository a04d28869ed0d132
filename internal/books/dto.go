package books

import (
	"strings"
	"time"

	"github.com/openshelf-labs/openshelf-backend/pkg/db/models"
)

// BookDTO is the API shape of a catalog entry. Available is derived from
// quantity minus active loans at read time.
type BookDTO struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	ISBN      string    `json:"isbn"`
	Category  *string   `json:"category,omitempty"`
	Quantity  int       `json:"quantity"`
	Available int       `json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateBookInput holds the validated payload to create a book.
type CreateBookInput struct {
	Title    string  `json:"title" validate:"required"`
	Author   string  `json:"author" validate:"required"`
	ISBN     string  `json:"isbn" validate:"required"`
	Category *string `json:"category,omitempty"`
	Quantity int     `json:"quantity" validate:"min=0"`
}

// UpdateBookInput holds optional mutation values for a book.
type UpdateBookInput struct {
	Title    *string `json:"title,omitempty"`
	Author   *string `json:"author,omitempty"`
	ISBN     *string `json:"isbn,omitempty"`
	Category *string `json:"category,omitempty"`
	Quantity *int    `json:"quantity,omitempty"`
}

// ListBooksFilter narrows the catalog listing. Search matches title or author
// case-insensitively; AvailableOnly keeps books with at least one free copy.
type ListBooksFilter struct {
	Search        string
	Category      string
	AvailableOnly bool
}

func inputToModel(input CreateBookInput) *models.Book {
	return &models.Book{
		Title:    strings.TrimSpace(input.Title),
		Author:   strings.TrimSpace(input.Author),
		ISBN:     strings.TrimSpace(input.ISBN),
		Category: normalizeCategory(input.Category),
		Quantity: input.Quantity,
	}
}

// normalizeCategory collapses blank categories to nil so they group together.
func normalizeCategory(category *string) *string {
	if category == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*category)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toDTO(book *models.Book, available int) *BookDTO {
	return &BookDTO{
		ID:        book.ID,
		Title:     book.Title,
		Author:    book.Author,
		ISBN:      book.ISBN,
		Category:  book.Category,
		Quantity:  book.Quantity,
		Available: available,
		CreatedAt: book.CreatedAt,
		UpdatedAt: book.UpdatedAt,
	}
}

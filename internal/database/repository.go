package database

import (
	"context"
	"errors"

	"github.com/bookvault/bookvault-api/internal/database/models"
)

var ErrNotFound = errors.New("record not found")

// BookPatch carries a partial update. Only non-nil fields are written, so a
// field left absent never clobbers the stored value. Setting a pointer to an
// empty string explicitly clears the column.
type BookPatch struct {
	Title           *string
	Author          *string
	ISBN            *string
	Year            *string
	Genre           *string
	Description     *string
	CoverImageURL   *string
	AICoverImageURL *string
	VoiceURL        *string
}

// BookRepository handles book record persistence.
type BookRepository interface {
	// CreateBook assigns an id and both timestamps, then writes the record.
	CreateBook(ctx context.Context, book *models.Book) (string, error)
	// GetBookByID returns ErrNotFound when no record exists for id.
	GetBookByID(ctx context.Context, id string) (*models.Book, error)
	// ListBooks returns all records ordered by creation time, newest first.
	ListBooks(ctx context.Context) ([]*models.Book, error)
	// UpdateBook merges the provided fields and refreshes UpdatedAt.
	// Returns ErrNotFound when id does not exist.
	UpdateBook(ctx context.Context, id string, patch BookPatch) error
	// DeleteBook removes the record. Deleting a missing id is not an error.
	DeleteBook(ctx context.Context, id string) error
}

package bunstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bookvault/bookvault-api/internal/database"
	"github.com/bookvault/bookvault-api/internal/database/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *sql.DB, dialect schema.Dialect) (*BunStore, error) {
	bunDB := bun.NewDB(db, dialect)

	store := &BunStore{db: bunDB}

	// Create the table if it doesn't exist
	ctx := context.Background()
	if _, err := bunDB.NewCreateTable().Model((*models.Book)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create books table: %w", err)
	}

	return store, nil
}

// BookRepository Implementation
func (s *BunStore) CreateBook(ctx context.Context, book *models.Book) (string, error) {
	now := time.Now().UTC()
	book.ID = uuid.NewString()
	book.CreatedAt = now
	book.UpdatedAt = now
	if _, err := s.db.NewInsert().Model(book).Exec(ctx); err != nil {
		return "", err
	}
	return book.ID, nil
}

func (s *BunStore) GetBookByID(ctx context.Context, id string) (*models.Book, error) {
	book := new(models.Book)
	if err := s.db.NewSelect().Model(book).Where("id = ?", id).Scan(ctx); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return book, nil
}

func (s *BunStore) ListBooks(ctx context.Context) ([]*models.Book, error) {
	var books []*models.Book
	if err := s.db.NewSelect().Model(&books).Order("created_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	if books == nil {
		books = []*models.Book{}
	}
	return books, nil
}

func (s *BunStore) UpdateBook(ctx context.Context, id string, patch database.BookPatch) error {
	q := s.db.NewUpdate().Model((*models.Book)(nil)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id)

	set := func(column string, value *string) {
		if value == nil {
			return
		}
		if *value == "" {
			// Absent means omitted entirely; an explicit empty string clears
			// the column back to NULL.
			q = q.Set(column+" = NULL")
			return
		}
		q = q.Set(column+" = ?", *value)
	}
	set("title", patch.Title)
	set("author", patch.Author)
	set("isbn", patch.ISBN)
	set("year", patch.Year)
	set("genre", patch.Genre)
	set("description", patch.Description)
	set("cover_image_url", patch.CoverImageURL)
	set("ai_cover_image_url", patch.AICoverImageURL)
	set("voice_url", patch.VoiceURL)

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (s *BunStore) DeleteBook(ctx context.Context, id string) error {
	if _, err := s.db.NewDelete().Model((*models.Book)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return err
	}
	return nil
}

package workflow

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bookvault/bookvault-api/internal/database"
	"github.com/bookvault/bookvault-api/internal/database/models"
	"github.com/bookvault/bookvault-api/internal/enrichment"
)

// MockBookRepository provides an in-memory record store for workflow and
// HTTP-layer testing.
type MockBookRepository struct {
	mu     sync.Mutex
	seq    int
	order  []string
	books  map[string]*models.Book
	FailOn string // operation name that should fail, e.g. "create"
}

func NewMockBookRepository() *MockBookRepository {
	return &MockBookRepository{books: map[string]*models.Book{}}
}

func (m *MockBookRepository) CreateBook(ctx context.Context, book *models.Book) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOn == "create" {
		return "", fmt.Errorf("simulated store failure")
	}
	m.seq++
	book.ID = fmt.Sprintf("book-%d", m.seq)
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now
	clone := *book
	m.books[book.ID] = &clone
	m.order = append(m.order, book.ID)
	return book.ID, nil
}

func (m *MockBookRepository) GetBookByID(ctx context.Context, id string) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	clone := *book
	return &clone, nil
}

func (m *MockBookRepository) ListBooks(ctx context.Context) ([]*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	books := []*models.Book{}
	for i := len(m.order) - 1; i >= 0; i-- {
		if book, ok := m.books[m.order[i]]; ok {
			clone := *book
			books = append(books, &clone)
		}
	}
	return books, nil
}

func (m *MockBookRepository) UpdateBook(ctx context.Context, id string, patch database.BookPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[id]
	if !ok {
		return database.ErrNotFound
	}
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&book.Title, patch.Title)
	apply(&book.Author, patch.Author)
	apply(&book.ISBN, patch.ISBN)
	apply(&book.Year, patch.Year)
	apply(&book.Genre, patch.Genre)
	apply(&book.Description, patch.Description)
	apply(&book.CoverImageURL, patch.CoverImageURL)
	apply(&book.AICoverImageURL, patch.AICoverImageURL)
	apply(&book.VoiceURL, patch.VoiceURL)
	book.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockBookRepository) DeleteBook(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.books, id)
	return nil
}

// MockAssetStore records uploads and deletions instead of talking to a
// bucket. Uploaded keys resolve to URLs under its base prefix, which also
// drives the ownership check.
type MockAssetStore struct {
	mu        sync.Mutex
	Uploads   map[string]string // key -> content type
	Deleted   []string          // URLs passed to DeleteByURL
	UploadErr error
	DeleteErr error
}

const mockAssetBase = "https://storage.googleapis.com/test-bucket/"

func NewMockAssetStore() *MockAssetStore {
	return &MockAssetStore{Uploads: map[string]string{}}
}

func (m *MockAssetStore) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	if _, err := io.ReadAll(data); err != nil {
		return "", err
	}
	m.Uploads[key] = contentType
	return mockAssetBase + key, nil
}

func (m *MockAssetStore) DeleteByURL(ctx context.Context, rawURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if !strings.HasPrefix(rawURL, mockAssetBase) {
		return fmt.Errorf("foreign url: %s", rawURL)
	}
	m.Deleted = append(m.Deleted, rawURL)
	return nil
}

func (m *MockAssetStore) Owns(rawURL string) bool {
	return strings.HasPrefix(rawURL, mockAssetBase)
}

// MockEnricher returns canned generation results.
type MockEnricher struct {
	Metadata    *enrichment.Metadata
	MetadataErr error
	Audio       []byte
	AudioErr    error
	ImageBytes  []byte
	ImageErr    error

	NarrationInputs []string
	FetchedURLs     []string
}

func (m *MockEnricher) GenerateMetadata(ctx context.Context, title, author string) (*enrichment.Metadata, error) {
	if m.MetadataErr != nil {
		return nil, m.MetadataErr
	}
	if m.Metadata != nil {
		return m.Metadata, nil
	}
	return &enrichment.Metadata{Description: "mock description", CoverPrompt: "mock prompt"}, nil
}

func (m *MockEnricher) StageCoverImageURL(prompt string) string {
	return "https://img.example/prompt/" + url.PathEscape(prompt) + "?width=600&height=800"
}

func (m *MockEnricher) GenerateNarration(ctx context.Context, text string) ([]byte, error) {
	m.NarrationInputs = append(m.NarrationInputs, text)
	if m.AudioErr != nil {
		return nil, m.AudioErr
	}
	if m.Audio != nil {
		return m.Audio, nil
	}
	return []byte("mock-audio"), nil
}

func (m *MockEnricher) FetchRemoteImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	m.FetchedURLs = append(m.FetchedURLs, rawURL)
	if m.ImageErr != nil {
		return nil, "", m.ImageErr
	}
	if m.ImageBytes != nil {
		return m.ImageBytes, "image/png", nil
	}
	return []byte("mock-image"), "image/png", nil
}

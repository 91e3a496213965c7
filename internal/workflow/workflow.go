package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/bookvault/bookvault-api/internal/database"
	"github.com/bookvault/bookvault-api/internal/database/models"
	"github.com/bookvault/bookvault-api/internal/enrichment"
	"github.com/bookvault/bookvault-api/internal/storage"
	"golang.org/x/sync/errgroup"
)

// ErrValidation is returned before any side effect when a required field is
// missing from a submission.
var ErrValidation = errors.New("missing required field")

// Enricher is the boundary to the external AI generation endpoints.
type Enricher interface {
	GenerateMetadata(ctx context.Context, title, author string) (*enrichment.Metadata, error)
	StageCoverImageURL(prompt string) string
	GenerateNarration(ctx context.Context, text string) ([]byte, error)
	FetchRemoteImage(ctx context.Context, url string) ([]byte, string, error)
}

// Workflow orchestrates validation, asset resolution, enrichment and
// persistence for book submissions. Clients are injected once at startup;
// the workflow holds no other state.
type Workflow struct {
	books  database.BookRepository
	assets storage.AssetStore
	ai     Enricher
}

func New(books database.BookRepository, assets storage.AssetStore, ai Enricher) *Workflow {
	return &Workflow{
		books:  books,
		assets: assets,
		ai:     ai,
	}
}

// SaveRequest is a normalized form submission. Nil fields were absent from
// the form and are never written; a non-nil empty string clears the field.
type SaveRequest struct {
	Title           *string
	Author          *string
	ISBN            *string
	Year            *string
	Genre           *string
	Description     *string
	CoverImageURL   *string
	AICoverImageURL *string
	VoiceURL        *string

	// CoverFile, when set, is a newly chosen local file to upload. It takes
	// precedence over CoverImageURL.
	CoverFile     io.Reader
	CoverFilename string
}

// BookMetadata is the result of an enrichment request: generated description,
// the derived cover prompt, and the staged (not yet re-hosted) image URL.
type BookMetadata struct {
	Description   string `json:"description"`
	CoverPrompt   string `json:"coverPrompt"`
	CoverImageURL string `json:"coverImageUrl"`
}

// CreateBook validates the submission, resolves assets and writes a new
// record. Blobs uploaded before a later step fails are left orphaned; the
// record is the source of truth.
func (w *Workflow) CreateBook(ctx context.Context, req SaveRequest) (*models.Book, error) {
	title := strings.TrimSpace(deref(req.Title))
	author := strings.TrimSpace(deref(req.Author))
	if title == "" || author == "" {
		return nil, fmt.Errorf("%w: title and author", ErrValidation)
	}

	coverURL, err := w.resolveCover(ctx, req)
	if err != nil {
		return nil, err
	}
	aiCoverURL := w.resolveAICover(ctx, deref(req.AICoverImageURL))

	book := &models.Book{
		Title:           title,
		Author:          author,
		ISBN:            deref(req.ISBN),
		Year:            deref(req.Year),
		Genre:           deref(req.Genre),
		Description:     deref(req.Description),
		CoverImageURL:   coverURL,
		AICoverImageURL: aiCoverURL,
		VoiceURL:        deref(req.VoiceURL),
	}
	if _, err := w.books.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to save book: %w", err)
	}

	log.Printf("[Workflow] Created book %s (%q by %s)", book.ID, book.Title, book.Author)
	return book, nil
}

// UpdateBook applies a submission to an existing record. Only fields present
// in the request are written. Returns database.ErrNotFound for a missing id.
func (w *Workflow) UpdateBook(ctx context.Context, id string, req SaveRequest) (*models.Book, error) {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, fmt.Errorf("%w: title", ErrValidation)
	}
	if req.Author != nil && strings.TrimSpace(*req.Author) == "" {
		return nil, fmt.Errorf("%w: author", ErrValidation)
	}

	patch := database.BookPatch{
		Title:           trimPtr(req.Title),
		Author:          trimPtr(req.Author),
		ISBN:            req.ISBN,
		Year:            req.Year,
		Genre:           req.Genre,
		Description:     req.Description,
		CoverImageURL:   req.CoverImageURL,
		AICoverImageURL: req.AICoverImageURL,
		VoiceURL:        req.VoiceURL,
	}

	if req.CoverFile != nil {
		url, err := w.uploadCoverFile(ctx, req)
		if err != nil {
			return nil, err
		}
		patch.CoverImageURL = &url
	}
	if req.AICoverImageURL != nil && *req.AICoverImageURL != "" {
		resolved := w.resolveAICover(ctx, *req.AICoverImageURL)
		patch.AICoverImageURL = &resolved
	}

	if err := w.books.UpdateBook(ctx, id, patch); err != nil {
		if err == database.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save book: %w", err)
	}
	return w.books.GetBookByID(ctx, id)
}

// DeleteBook removes the record and its owned blobs. Asset deletion is
// best-effort and runs concurrently; the record delete starts only after all
// three have settled. Deleting a missing id is a no-op.
func (w *Workflow) DeleteBook(ctx context.Context, id string) error {
	book, err := w.books.GetBookByID(ctx, id)
	if err != nil && err != database.ErrNotFound {
		return err
	}

	if book != nil {
		var g errgroup.Group
		for _, url := range []string{book.CoverImageURL, book.AICoverImageURL, book.VoiceURL} {
			if url == "" {
				continue
			}
			g.Go(func() error {
				if err := w.assets.DeleteByURL(ctx, url); err != nil {
					log.Printf("[Workflow] Best-effort asset delete failed for %s: %v", url, err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	return w.books.DeleteBook(ctx, id)
}

// GetBook returns a single record; database.ErrNotFound for a missing id.
func (w *Workflow) GetBook(ctx context.Context, id string) (*models.Book, error) {
	return w.books.GetBookByID(ctx, id)
}

// ListBooks returns every record, newest first.
func (w *Workflow) ListBooks(ctx context.Context) ([]*models.Book, error) {
	return w.books.ListBooks(ctx)
}

// GenerateMetadata runs the two-step enrichment chain and stages the cover
// image URL. Nothing is persisted; the caller submits the result with the
// form.
func (w *Workflow) GenerateMetadata(ctx context.Context, title, author string) (*BookMetadata, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" || author == "" {
		return nil, fmt.Errorf("%w: title and author", ErrValidation)
	}

	meta, err := w.ai.GenerateMetadata(ctx, title, author)
	if err != nil {
		return nil, err
	}

	return &BookMetadata{
		Description:   meta.Description,
		CoverPrompt:   meta.CoverPrompt,
		CoverImageURL: w.ai.StageCoverImageURL(meta.CoverPrompt),
	}, nil
}

// GenerateNarration synthesizes speech for text and immediately persists the
// audio to the asset store, so a voice URL always points at an owned blob.
func (w *Workflow) GenerateNarration(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: narration text", ErrValidation)
	}

	audio, err := w.ai.GenerateNarration(ctx, text)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("voices/%d_narration.mp3", time.Now().UnixNano())
	url, err := w.assets.Upload(ctx, key, bytes.NewReader(audio), "audio/mpeg")
	if err != nil {
		return "", fmt.Errorf("failed to store narration: %w", err)
	}
	return url, nil
}

// resolveCover uploads a newly chosen cover file, or keeps the submitted URL.
func (w *Workflow) resolveCover(ctx context.Context, req SaveRequest) (string, error) {
	if req.CoverFile == nil {
		return deref(req.CoverImageURL), nil
	}
	return w.uploadCoverFile(ctx, req)
}

func (w *Workflow) uploadCoverFile(ctx context.Context, req SaveRequest) (string, error) {
	// Nanosecond timestamps keep keys from concurrent requests distinct, so
	// no two records ever share a blob.
	key := fmt.Sprintf("covers/%d_%s", time.Now().UnixNano(), sanitizeFilename(req.CoverFilename))
	url, err := w.assets.Upload(ctx, key, req.CoverFile, contentTypeForFilename(req.CoverFilename))
	if err != nil {
		return "", fmt.Errorf("failed to upload cover image: %w", err)
	}
	return url, nil
}

// resolveAICover re-hosts a staged third-party image into the owned asset
// store. When the fetch or upload fails the raw URL is kept instead of
// losing the enrichment; that persists a link to a host we don't control,
// a documented availability-over-durability tradeoff.
func (w *Workflow) resolveAICover(ctx context.Context, staged string) string {
	if staged == "" || w.assets.Owns(staged) {
		return staged
	}

	data, contentType, err := w.ai.FetchRemoteImage(ctx, staged)
	if err != nil {
		log.Printf("[Workflow] AI cover fetch failed, keeping third-party URL: %v", err)
		return staged
	}

	key := fmt.Sprintf("ai_covers/%d_ai.png", time.Now().UnixNano())
	url, err := w.assets.Upload(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		log.Printf("[Workflow] AI cover re-host failed, keeping third-party URL: %v", err)
		return staged
	}
	return url
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "cover"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", "?", "_", "#", "_")
	return replacer.Replace(name)
}

func contentTypeForFilename(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

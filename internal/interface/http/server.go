package http

import (
	"encoding/json"
	"errors"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/bookvault/bookvault-api/internal/auth"
	"github.com/bookvault/bookvault-api/internal/database"
	"github.com/bookvault/bookvault-api/internal/workflow"
)

// Server holds the dependencies for the HTTP API server
type Server struct {
	flow     *workflow.Workflow
	verifier *auth.Verifier
}

// NewServer initializes a new API server with the required dependencies
func NewServer(flow *workflow.Workflow, verifier *auth.Verifier) *Server {
	return &Server{
		flow:     flow,
		verifier: verifier,
	}
}

// RegisterRoutes registers all API endpoints with a new ServeMux. Reads are
// public; every mutating route sits behind the identity gate.
func (s *Server) RegisterRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/healthz", s.handleHealthz)
	mux.HandleFunc("GET /api/v1/books", s.handleListBooks)
	mux.HandleFunc("GET /api/v1/books/{id}", s.handleGetBook)

	mux.Handle("POST /api/v1/books", s.requireAuth(s.handleCreateBook))
	mux.Handle("PUT /api/v1/books/{id}", s.requireAuth(s.handleUpdateBook))
	mux.Handle("DELETE /api/v1/books/{id}", s.requireAuth(s.handleDeleteBook))
	mux.Handle("POST /api/v1/books/metadata", s.requireAuth(s.handleGenerateMetadata))
	mux.Handle("POST /api/v1/books/narration", s.requireAuth(s.handleGenerateNarration))
	mux.Handle("GET /api/v1/auth/me", s.requireAuth(s.handleMe))

	return mux
}

func (s *Server) requireAuth(handler http.HandlerFunc) http.Handler {
	return s.verifier.Middleware(handler)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.flow.ListBooks(r.Context())
	if err != nil {
		s.fail(w, err, "Failed to load books")
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.flow.GetBook(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err, "Failed to load book")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	req, err := parseSaveRequest(r)
	if err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	book, err := s.flow.CreateBook(r.Context(), req)
	if err != nil {
		s.fail(w, err, "Failed to save book. Please try again.")
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	req, err := parseSaveRequest(r)
	if err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	book, err := s.flow.UpdateBook(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.fail(w, err, "Failed to save book. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := s.flow.DeleteBook(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, err, "Failed to delete book")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type metadataRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

func (s *Server) handleGenerateMetadata(w http.ResponseWriter, r *http.Request) {
	var req metadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	meta, err := s.flow.GenerateMetadata(r.Context(), req.Title, req.Author)
	if err != nil {
		s.fail(w, err, "Failed to generate metadata. Ensure API keys are configured.")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

type narrationRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleGenerateNarration(w http.ResponseWriter, r *http.Request) {
	var req narrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	voiceURL, err := s.flow.GenerateNarration(r.Context(), req.Text)
	if err != nil {
		s.fail(w, err, "Failed to generate narration")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"voiceUrl": voiceURL})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		http.Error(w, "Not signed in", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// parseSaveRequest maps a multipart form submission onto a SaveRequest.
// Fields absent from the form stay nil so they are never written; submitted
// empty strings clear the stored value.
func parseSaveRequest(r *http.Request) (workflow.SaveRequest, error) {
	if err := r.ParseMultipartForm(10 << 20); err != nil { // limit 10MB in memory
		return workflow.SaveRequest{}, err
	}
	form := r.MultipartForm

	req := workflow.SaveRequest{
		Title:           formPtr(form, "title"),
		Author:          formPtr(form, "author"),
		ISBN:            formPtr(form, "isbn"),
		Year:            formPtr(form, "year"),
		Genre:           formPtr(form, "genre"),
		Description:     formPtr(form, "description"),
		CoverImageURL:   formPtr(form, "coverImageUrl"),
		AICoverImageURL: formPtr(form, "aiCoverImageUrl"),
		VoiceURL:        formPtr(form, "voiceUrl"),
	}

	file, header, err := r.FormFile("cover")
	if err == nil {
		req.CoverFile = file
		req.CoverFilename = header.Filename
	} else if err != http.ErrMissingFile {
		return workflow.SaveRequest{}, err
	}

	return req, nil
}

func formPtr(form *multipart.Form, field string) *string {
	values, ok := form.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	value := values[0]
	return &value
}

// fail maps workflow errors to short, non-technical responses. Detail goes
// to the log only.
func (s *Server) fail(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, workflow.ErrValidation):
		http.Error(w, "Required field missing", http.StatusBadRequest)
	case errors.Is(err, database.ErrNotFound):
		http.Error(w, "Book not found", http.StatusNotFound)
	default:
		log.Printf("[Server] %s: %v", message, err)
		http.Error(w, message, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

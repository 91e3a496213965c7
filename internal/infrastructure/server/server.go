package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"google.golang.org/api/option"

	"github.com/bookvault/bookvault-api/internal/auth"
	"github.com/bookvault/bookvault-api/internal/config"
	"github.com/bookvault/bookvault-api/internal/database/bunstore"
	"github.com/bookvault/bookvault-api/internal/enrichment"
	httpserver "github.com/bookvault/bookvault-api/internal/interface/http"
	"github.com/bookvault/bookvault-api/internal/storage"
	"github.com/bookvault/bookvault-api/internal/workflow"
)

type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	dbConn     *sql.DB
}

func New(cfg *config.Config) *Server {
	return &Server{
		cfg: cfg,
	}
}

// Run wires the dependencies together and serves until a shutdown signal
// arrives, then drains in-flight requests.
func (s *Server) Run() error {
	ctx := context.Background()

	// ==========================================
	// Initialize Dependencies (Dependency Injection)
	// ==========================================

	var err error
	s.dbConn, err = sql.Open(sqliteshim.ShimName, s.cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.dbConn.Close(); closeErr != nil {
			log.Printf("[Warning] Failed to close database: %v", closeErr)
		}
	}()

	bunStore, err := bunstore.NewBunStore(s.dbConn, sqlitedialect.New())
	if err != nil {
		return err
	}

	var gcsOpts []option.ClientOption
	if s.cfg.GCSCredentialsFile != "" {
		gcsOpts = append(gcsOpts, option.WithCredentialsFile(s.cfg.GCSCredentialsFile))
	}
	assetStore, err := storage.NewGCSStore(ctx, s.cfg.GCSBucket, s.cfg.CDNDomain, gcsOpts...)
	if err != nil {
		return err
	}
	defer func() { _ = assetStore.Close() }()

	geminiClient, err := enrichment.NewGeminiClient(ctx, s.cfg.GeminiAPIKey, s.cfg.GeminiModel)
	if err != nil {
		return err
	}
	defer func() { _ = geminiClient.Close() }()
	log.Printf("[System] Text generation via %s (%s)", geminiClient.Name(), s.cfg.GeminiModel)

	enricher := enrichment.NewClient(
		geminiClient,
		&http.Client{Timeout: s.cfg.DefaultTimeout},
		s.cfg.TTSURL,
		s.cfg.ImageGenURL,
	)

	flow := workflow.New(bunStore, assetStore, enricher)
	verifier := auth.NewVerifier(s.cfg.AuthSecret)

	// ==========================================
	// Initialize and Start HTTP Server
	// ==========================================

	apiServer := httpserver.NewServer(flow, verifier)
	handler := apiServer.RegisterRoutes()

	s.httpServer = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: handler,
	}

	// Listen for shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("[System] Starting REST API Server on %s", s.cfg.HTTPAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Error] HTTP server failed: %v", err)
		}
	}()

	<-stop
	log.Println("[System] Shutdown signal received. Draining connections...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Error] HTTP shutdown error: %v", err)
	}

	log.Println("[System] Server stopped gracefully.")
	return nil
}

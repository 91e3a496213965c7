package main

import (
	"log"

	"github.com/bookvault/bookvault-api/internal/config"
	"github.com/bookvault/bookvault-api/internal/infrastructure/server"
)

func main() {
	log.Println("Starting BookVault API...")

	// Load Configuration
	cfg := config.Load()

	srv := server.New(cfg)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}

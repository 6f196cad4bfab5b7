package main

import (
	"fmt"
	"log"

	"github.com/guilamu/gravity-extract/internal/config"
	"github.com/guilamu/gravity-extract/internal/extract"
	"github.com/guilamu/gravity-extract/internal/gateway/poe"
	"github.com/guilamu/gravity-extract/internal/handler"
	"github.com/guilamu/gravity-extract/internal/mapping"
	"github.com/guilamu/gravity-extract/internal/preprocess"
	"github.com/guilamu/gravity-extract/internal/profile"
	"github.com/guilamu/gravity-extract/internal/repository/postgres"
	"github.com/guilamu/gravity-extract/internal/router"
	"github.com/guilamu/gravity-extract/internal/service"
	s3storage "github.com/guilamu/gravity-extract/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	optionStore := postgres.NewOptionRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Initialize services
	gateway := poe.NewClient(cfg.Poe)
	preprocessor := preprocess.New(cfg.Crop)
	uploadSvc := service.NewUploadService(s3Client, cfg.S3, preprocessor)
	profileStore := profile.NewStore(optionStore)
	extractSvc := extract.NewService(gateway, profileStore, cfg.Poe)
	automapper := mapping.NewAutomapper(gateway, cfg.Poe)
	resolver := mapping.NewResolver()

	// Initialize handlers
	extractH := handler.NewExtractHandler(uploadSvc, extractSvc, automapper, resolver)
	profileH := handler.NewProfileHandler(profileStore)
	modelH := handler.NewModelHandler(gateway)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(cfg, extractH, profileH, modelH, healthH)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

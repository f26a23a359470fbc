package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	miniogo "github.com/minio/minio-go/v7"

	"docindex/internal/config"
	"docindex/internal/database/milvus"
	"docindex/internal/database/minio"
	"docindex/internal/embedding"
	"docindex/internal/index_service/api"
	"docindex/internal/index_service/service"
	"docindex/internal/index_service/storage/vectorstore"
	"docindex/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	// Secrets may come from a local .env during development.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(logger.ParseLevel(cfg.LogLevel))
	appLogger := logger.New("IndexService", "")
	appLogger.Info("Starting indexing service...")

	if err := os.MkdirAll(cfg.UploadPath, 0o755); err != nil {
		log.Fatalf("Failed to create upload directory %s: %v", cfg.UploadPath, err)
	}

	store, err := newStore(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize vector store: %v", err)
	}

	embedder, err := embedding.NewModel(cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.APIKey, cfg.Embedding.BaseURL)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}

	archiveClient, err := newArchive(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to archive storage: %v", err)
	}

	indexService := service.New(appLogger, store, embedder, cfg, archiveClient)
	handler := api.NewHandler(appLogger, indexService, cfg.UploadPath)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: api.NewRouter(cfg, handler),
	}

	go func() {
		appLogger.Info("HTTP server listening at " + cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown: " + err.Error())
	}
	appLogger.Info("Server stopped")
}

// newStore selects the vector store implementation from configuration.
func newStore(cfg *config.AppConfig, appLogger *logger.Logger) (vectorstore.Store, error) {
	switch cfg.Store.Type {
	case "memory":
		return vectorstore.NewMemoryStore(), nil
	case "milvus":
		milvusClient, err := milvus.GetClient(context.Background(), &cfg.Store)
		if err != nil {
			return nil, err
		}
		return vectorstore.NewMilvusStore(milvusClient, cfg.Store.MetricType, appLogger)
	default:
		return nil, errors.New("unsupported store type: " + cfg.Store.Type)
	}
}

// newArchive connects to MinIO when upload archival is enabled.
func newArchive(cfg *config.AppConfig) (*miniogo.Client, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	return minio.GetClient(context.Background(), &cfg.Archive)
}

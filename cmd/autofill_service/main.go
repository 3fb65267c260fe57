package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"autofill/internal/api"
	"autofill/internal/artifact"
	"autofill/internal/config"
	"autofill/internal/embedding"
	"autofill/internal/formschema"
	"autofill/internal/ingest"
	"autofill/internal/knowledge"
	"autofill/internal/llm"
	"autofill/internal/policy"
	"autofill/internal/service"
	"autofill/internal/session"
	"autofill/internal/websearch"
	"autofill/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("autofill_service", "")
	appLogger.Info("Starting autofill service...")

	ctx := context.Background()

	embedModel, err := embedding.NewModel(cfg.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding model: %v", err)
	}

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	store, err := knowledge.NewStore(ctx, cfg.Milvus, embedModel, cfg.Embedding.Dim)
	if err != nil {
		log.Fatalf("Failed to connect to Milvus: %v", err)
	}
	defer store.Close()

	registry, err := session.NewRegistry(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer registry.Close()

	archive, err := artifact.NewArchive(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("Failed to connect to MinIO: %v", err)
	}

	splitter, err := ingest.NewTokenSplitter(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		log.Fatalf("Failed to create splitter: %v", err)
	}
	ingestor := ingest.NewIngestor(splitter, logger.New("ingest", ""))

	searcher := websearch.NewDuckDuckGo(cfg.Search)
	retrievalPolicy := policy.New(store, llmClient, searcher)
	inference := formschema.New(ingestor, llmClient)

	svc := service.New(ingestor, store, registry, archive, retrievalPolicy, inference)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.RegisterRoutes(router, api.NewAPI(svc))

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}
	go func() {
		appLogger.Info(fmt.Sprintf("HTTP server listening at %s", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down...")

	if err := shutdownGracefully(srv, shutdownTimeout); err != nil {
		appLogger.Error(fmt.Sprintf("Forced shutdown: %v", err))
	}
	appLogger.Info("Server stopped")
}

const shutdownTimeout = 10 * time.Second

// shutdownGracefully stops accepting new connections and waits up to the
// timeout for in-flight requests to finish.
func shutdownGracefully(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

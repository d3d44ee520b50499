// Package server assembles the service: clients, repositories, pipelines,
// the HTTP API and the broker consumer.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Birzhan20/neuro-search-core/internal/broker"
	"github.com/Birzhan20/neuro-search-core/internal/chunker"
	"github.com/Birzhan20/neuro-search-core/internal/config"
	"github.com/Birzhan20/neuro-search-core/internal/db"
	"github.com/Birzhan20/neuro-search-core/internal/handlers"
	"github.com/Birzhan20/neuro-search-core/internal/loader"
	"github.com/Birzhan20/neuro-search-core/internal/repositories"
	"github.com/Birzhan20/neuro-search-core/internal/routes"
	"github.com/Birzhan20/neuro-search-core/internal/services"
)

// Server owns the two runtime loops (HTTP serving and broker consumption)
// and everything they depend on.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	httpServer *http.Server
	consumer   *broker.Consumer

	pg          *sql.DB
	redisClient *redis.Client
	pool        *ants.Pool

	vectorRepo repositories.VectorRepository
}

// New connects to all backing services and wires the pipelines. Any backing
// service being unreachable is a startup failure: the process should not come
// up half-alive.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pg, err := db.NewPostgres(cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pg.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	qdrant := db.NewQdrantClient(db.QdrantConfig{URL: cfg.QdrantURL})

	chatRepo := repositories.NewPostgresChatRepository(pg)
	vectorRepo := repositories.NewQdrantVectorRepository(qdrant, cfg.QdrantCollection)
	statusRepo := repositories.NewRedisTaskStatusRepository(redisClient)

	embedder, err := services.NewOpenAIEmbedder(services.EmbeddingConfig{
		BaseURL: cfg.EmbeddingBaseURL,
		Model:   cfg.EmbeddingModel,
		APIKey:  cfg.EmbeddingAPIKey,
	})
	if err != nil {
		pg.Close()
		redisClient.Close()
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	generator, err := services.NewOpenAIGenerator(services.LLMConfig{
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		APIKey:  cfg.OpenAIAPIKey,
	})
	if err != nil {
		pg.Close()
		redisClient.Close()
		return nil, fmt.Errorf("create generator: %w", err)
	}

	splitter, err := chunker.New(cfg.TiktokenEncoding, cfg.ChunkSizeTokens, cfg.ChunkOverlapTokens)
	if err != nil {
		pg.Close()
		redisClient.Close()
		return nil, fmt.Errorf("create splitter: %w", err)
	}

	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		pg.Close()
		redisClient.Close()
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	docSvc := services.NewDocumentService(
		loader.New(), splitter, embedder, vectorRepo, statusRepo, pool, logger)
	ragSvc := services.NewRAGService(
		chatRepo, vectorRepo, embedder, generator, cfg.SearchTopK, cfg.HistoryLimit, logger)

	consumer := broker.NewConsumer(broker.ConsumerConfig{
		URL:        cfg.RabbitMQURL,
		Queue:      cfg.IngestionQueue,
		MaxRetries: cfg.BrokerMaxRetries,
		RetryDelay: cfg.BrokerRetryDelay,
	}, docSvc, logger)

	router := mux.NewRouter()
	routes.RegisterRoutes(router, &routes.Handlers{
		Chat: handlers.NewChatHandler(ragSvc, logger),
	})

	return &Server{
		cfg:    cfg,
		logger: logger.With("component", "server"),

		httpServer: &http.Server{
			Addr:    ":" + cfg.HTTPPort,
			Handler: router,
		},
		consumer: consumer,

		pg:          pg,
		redisClient: redisClient,
		pool:        pool,

		vectorRepo: vectorRepo,
	}, nil
}

// Run migrates storage, then serves HTTP and consumes broker tasks until ctx
// is canceled or the HTTP listener fails. A dead consumer does not stop
// serving: queries keep working while ingestion is dormant.
func (s *Server) Run(ctx context.Context) error {
	if err := db.MigrateChat(ctx, s.pg); err != nil {
		return fmt.Errorf("migrate chat schema: %w", err)
	}
	if err := s.vectorRepo.EnsureCollection(ctx, s.cfg.VectorDimension); err != nil {
		return fmt.Errorf("ensure vector collection: %w", err)
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}

	return s.serve(ctx, ln)
}

// serve runs the two loops on the given listener until ctx is canceled or
// the HTTP server fails, then drains.
func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := s.consumer.Run(runCtx); err != nil {
			s.logger.Error("broker consumer stopped, ingestion dormant", "err", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-httpErr:
		runErr = fmt.Errorf("http server failed: %w", err)
	}

	cancel()
	s.shutdown(consumerDone)
	return runErr
}

// shutdown drains in-flight work within the configured timeout and releases
// all connections.
func (s *Server) shutdown(consumerDone <-chan struct{}) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown incomplete", "err", err)
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		s.logger.Warn("consumer did not stop within shutdown timeout")
	}

	s.pool.Release()

	if err := s.pg.Close(); err != nil {
		s.logger.Warn("closing postgres", "err", err)
	}
	if err := s.redisClient.Close(); err != nil {
		s.logger.Warn("closing redis", "err", err)
	}

	s.logger.Info("shutdown complete")
}

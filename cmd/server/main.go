package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"research-agent/api/rest/handlers"
	"research-agent/api/rest/routes"
	"research-agent/config"
	"research-agent/core/aggregator"
	"research-agent/core/logging"
	"research-agent/core/progress"
	"research-agent/core/repository"
	"research-agent/core/scheduler"
	"research-agent/core/workflow"
	"research-agent/providers/hackernews"
	"research-agent/providers/wikipedia"

	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	// Initialize database
	db, err := repository.NewDB(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("database ready")

	// Initialize repositories
	researchRepo := repository.NewResearchRepository(db)
	worklogRepo := repository.NewWorklogRepository(db)
	articleRepo := repository.NewArticleRepository(db)

	// Initialize content providers and the aggregator
	timeout := cfg.Providers.Timeout()
	wiki := wikipedia.New(cfg.Providers.Wikipedia.BaseURL, timeout, logger)
	hn := hackernews.New(cfg.Providers.HackerNews.BaseURL, timeout, logger)
	agg := aggregator.New(logger,
		aggregator.Source{Provider: wiki, Limit: cfg.Providers.Wikipedia.Limit},
		aggregator.Source{Provider: hn, Limit: cfg.Providers.HackerNews.Limit},
	)

	// Progress hub is owned here and injected everywhere it is needed
	hub := progress.NewHub(logger)

	// Initialize the workflow orchestrator and its worker pool
	orchestrator := workflow.New(researchRepo, worklogRepo, articleRepo, agg, hub, logger)
	runner := scheduler.NewRunner(cfg.Workers.Count, cfg.Workers.QueueSize, logger)
	runner.Start(ctx)
	defer runner.Stop()

	schedule := func(requestID string) (string, error) {
		return runner.Submit(func(taskCtx context.Context) {
			orchestrator.Run(taskCtx, requestID)
		})
	}

	// Setup routes
	researchHandler := handlers.NewResearchHandler(researchRepo, worklogRepo, articleRepo, schedule, logger)
	wsHandler := handlers.NewWSHandler(hub, researchRepo, logger)

	r := mux.NewRouter()
	routes.SetupRoutes(r, researchHandler, wsHandler)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	logger.Info("server exited")
}

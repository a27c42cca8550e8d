package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medious/internal/common"
	"medious/internal/config"
	"medious/internal/logging"
	"medious/internal/metrics"
	"medious/internal/ratelimit"
	"medious/internal/wire"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	logger.Info("initializing application", zap.String("environment", cfg.Server.Environment))
	app, cleanup, err := wire.InitializeApplication(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer cleanup()

	app.Sweeper.Start(ctx)

	server := &http.Server{
		Addr:           cfg.Addr(),
		Handler:        setupRouter(app),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	app.Sweeper.Stop()
	stop()

	logger.Info("server gracefully stopped")
}

func setupRouter(app *wire.Application) http.Handler {
	logger := app.Logger
	router := mux.NewRouter()
	router.Use(app.Metrics.Middleware)
	router.Use(metrics.LoggingMiddleware(logger))

	router.Handle("/metrics", app.Metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/", rootHandler).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler(app)).Methods(http.MethodGet)

	// Media is public so <img> tags can load it without a bearer token.
	open := api.NewRoute().Subrouter()
	app.MediaServer.RegisterRoutes(open)

	public := api.NewRoute().Subrouter()
	if app.Limiter != nil {
		public.Use(ratelimit.Middleware(app.Limiter, logger))
	}

	protected := api.NewRoute().Subrouter()
	protected.Use(common.AuthMiddleware(app.Tokens, app.UserService.Exists, logger))

	app.UserHandler.RegisterRoutes(public, protected)
	app.FeedHandler.RegisterRoutes(protected)
	app.EventHandler.RegisterRoutes(protected)
	app.ChatHandler.RegisterRoutes(protected)
	app.StoryHandler.RegisterRoutes(protected)

	c := cors.New(cors.Options{
		AllowedOrigins:   app.Config.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(router)
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	common.WriteJSON(w, http.StatusOK, map[string]string{"message": "Medious API - Authentication System"})
}

func healthHandler(app *wire.Application) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := app.Mongo.Ping(ctx); err != nil {
			app.Logger.Warn("health check failed", zap.Error(err))
			common.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		common.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// Package main implements the server entry point for the native handler
// gateway. This application follows Clean Architecture principles with clear
// separation of concerns across multiple layers: Repository (data access) →
// UseCase (business logic) → Handler (HTTP interface) → Dispatcher (request
// plane). The main function demonstrates Dependency Injection, Factory
// patterns, and graceful shutdown handling.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/config"
	"github.com/aras-services/native-gateway/internal/compiler"
	httphandler "github.com/aras-services/native-gateway/internal/delivery/http"
	"github.com/aras-services/native-gateway/internal/dispatch"
	gatewaymiddleware "github.com/aras-services/native-gateway/internal/middleware"
	"github.com/aras-services/native-gateway/internal/provider"
	"github.com/aras-services/native-gateway/internal/registry"
	"github.com/aras-services/native-gateway/internal/repository/postgres"
	"github.com/aras-services/native-gateway/internal/usecase"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func printVersion() {
	fmt.Printf("native-gateway version %s\n", version)
	if buildTime != "unknown" {
		fmt.Printf("Build Time: %s\n", buildTime)
	}
	if gitCommit != "unknown" {
		fmt.Printf("Git Commit: %s\n", gitCommit)
	}
	os.Exit(0)
}

func main() {
	if len(os.Args) > 1 {
		for _, arg := range os.Args[1:] {
			if arg == "--version" || arg == "-v" {
				printVersion()
			}
		}
	}

	// PHASE 1: Configuration and Infrastructure Setup
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// PHASE 2: Database Connection and Health Check
	db, err := pgxpool.New(context.Background(), cfg.GetDSN())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Connected to database successfully")

	// PHASE 3: Repository Layer Initialization (Data Access Layer)
	endpointRepo := postgres.NewEndpointRepository(db)
	providerRepo := postgres.NewProviderRepository(db)

	// PHASE 4: Registry Layer Initialization
	// Handler Registry (C2) owns loaded images; Provider Registry (C5) owns
	// live backend actors. Neither knows about the other or about the
	// database — that orchestration lives in the usecase layer.
	handlerRegistry := registry.New(logger)
	providerRegistry := provider.NewRegistry(providerRepo, cfg.Provider.DefaultInboxDepth, logger)

	// PHASE 5: Compiler and Route Index
	handlerCompiler := compiler.New(cfg.Handlers.Root, cfg.Handlers.SDKModule, cfg.Handlers.BuildTimeout, logger)
	routeIndex := dispatch.NewRouteIndex()

	// Republish persisted routes into the index on boot. No image is
	// loaded automatically — until an admin call loads one, matching
	// requests see ErrNotLoaded (spec §4.1).
	if endpoints, err := endpointRepo.List(context.Background()); err != nil {
		logger.Error("failed to list persisted endpoints", zap.Error(err))
	} else {
		for _, e := range endpoints {
			routeIndex.Add(e.RouteKey, e.ID)
		}
		logger.Info("republished persisted routes", zap.Int("count", len(endpoints)))
	}

	// PHASE 6: Use Case Layer Initialization (Business Logic Layer)
	endpointUsecase := usecase.NewEndpointUsecase(endpointRepo, handlerCompiler, handlerRegistry, routeIndex, logger)
	providerUsecase := usecase.NewProviderUsecase(providerRegistry)

	// PHASE 7: Handler Layer Initialization (Interface Adapters)
	endpointHandler := httphandler.NewEndpointHandler(endpointUsecase)
	providerHandler := httphandler.NewProviderHandler(providerUsecase)

	// PHASE 8: Dispatcher (Request Plane)
	requestDispatcher := dispatch.New(routeIndex, handlerRegistry, providerRegistry, cfg.Drain.DefaultDeadline, logger)

	// PHASE 9: Router Configuration and Middleware Chain Setup
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(gatewaymiddleware.NewCORSMiddleware())
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Admin hooks: thin pass-through CRUD and lifecycle calls.
	r.Route("/admin/v1", func(r chi.Router) {
		endpointHandler.RegisterRoutes(r)
		providerHandler.RegisterRoutes(r)
	})

	// Everything else falls through to the Request Dispatcher, which
	// matches against the live route index rather than chi's own tree.
	r.NotFound(requestDispatcher.ServeHTTP)
	r.MethodNotAllowed(requestDispatcher.ServeHTTP)

	// PHASE 10: Server Initialization and Startup
	server := &http.Server{
		Addr:    cfg.GetServerAddr(),
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.GetServerAddr()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// PHASE 11: Graceful Shutdown Implementation
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

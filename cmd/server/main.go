package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/deskmail-io/deskmail/internal/classifier"
	"github.com/deskmail-io/deskmail/internal/config"
	"github.com/deskmail-io/deskmail/internal/database"
	"github.com/deskmail-io/deskmail/internal/inbound"
	"github.com/deskmail-io/deskmail/internal/metrics"
	"github.com/deskmail-io/deskmail/internal/repository"
	"github.com/deskmail-io/deskmail/internal/storage"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	provider, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := provider.Get()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, database.ConnectionConfig{
		Driver:       cfg.Database.Driver,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		Name:         cfg.Database.Name,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxLifetime:  cfg.Database.MaxLifetime,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.ApplySchema(ctx, db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	var blobs storage.Backend
	switch cfg.Storage.Backend {
	case "database":
		blobs = storage.NewDatabaseBackend(db)
	default:
		blobs, err = storage.NewFilesystemBackend(cfg.Storage.BasePath)
		if err != nil {
			log.Fatalf("Failed to initialize attachment storage: %v", err)
		}
	}
	if err := blobs.HealthCheck(ctx); err != nil {
		log.Fatalf("Attachment storage unhealthy: %v", err)
	}

	orgs := repository.NewOrganisationRepository(db)
	subgroups := repository.NewSubgroupRepository(db)
	tickets := repository.NewTicketRepository(db)
	messages := repository.NewMessageRepository(db)

	opts := []inbound.Option{
		inbound.WithBlobStorage(blobs),
	}
	if cfg.AI.Enabled {
		opts = append(opts, inbound.WithClassifier(classifier.NewClient(
			cfg.AI.AccountID,
			cfg.AI.APIKey,
			classifier.WithModel(cfg.AI.Model),
			classifier.WithTimeout(cfg.AI.Timeout),
		)))
	} else {
		log.Println("AI classification disabled; unhinted tickets stay ungrouped")
	}

	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, inbound.WithMetrics(metrics.NewPipeline(registry)))
	}

	processor := inbound.NewProcessor(orgs, subgroups, tickets, messages, opts...)
	handler := inbound.NewHandler(cfg.Inbound.WebhookSecret, cfg.Inbound.Domain, processor, log.Default())
	router := inbound.NewRouter(inbound.RouterConfig{
		Handler:  handler,
		DB:       db,
		Registry: registry,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Starting deskmail server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

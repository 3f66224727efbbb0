package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/datec-bo/facturaflow/internal/ai"
	"github.com/datec-bo/facturaflow/internal/config"
	"github.com/datec-bo/facturaflow/internal/database"
	"github.com/datec-bo/facturaflow/internal/handlers"
	"github.com/datec-bo/facturaflow/internal/matching"
	"github.com/datec-bo/facturaflow/internal/models"
	"github.com/datec-bo/facturaflow/internal/payload"
	"github.com/datec-bo/facturaflow/internal/pipeline"
	"github.com/datec-bo/facturaflow/internal/services/sap"
	"github.com/datec-bo/facturaflow/internal/tools"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logrus.New()
	if cfg.NodeEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	// 2. Initialize database (detects embedded vs external automatically)
	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in the shutdown handler below

	// 3. Auto-migrate schema
	log.Info("Synchronizing database schema")
	err = db.AutoMigrate(
		&models.ResolutionLog{},
		&models.SubmissionLog{},
		&models.ToolAuditLog{},
	)
	if err != nil {
		log.WithError(err).Warn("Migration warning")
	} else {
		log.Info("Schema synchronized successfully")
	}

	// 4. SAP gateway client and CSRF session
	sapClient := sap.NewClient(cfg.SAP.BaseURL, cfg.SAP.Username, cfg.SAP.Password, log)
	session := sap.NewSession(sapClient)

	// 5. AI fallback (optional: no key disables the last cascade tier)
	var semantic matching.SemanticMatcher
	if cfg.Gemini.APIKey != "" {
		gemini, err := ai.NewGeminiClient(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			log.WithError(err).Warn("AI fallback disabled")
		} else {
			defer gemini.Close()
			semantic = ai.NewSupplierMatcher(gemini, log)
			log.WithField("model", cfg.Gemini.Model).Info("AI fallback enabled")
		}
	} else {
		log.Info("GEMINI_API_KEY not set, AI fallback disabled")
	}

	// 6. Wire the pipeline
	resolverCfg := matching.DefaultResolverConfig()
	resolverCfg.FuzzyThreshold = cfg.Matching.FuzzyThreshold
	resolverCfg.AIConfidenceFloor = cfg.Matching.AIConfidenceFloor

	matcherCfg := matching.DefaultPOMatcherConfig()
	matcherCfg.DescriptionThreshold = cfg.Matching.DescriptionThreshold
	matcherCfg.PriceTolerance = cfg.Matching.PriceTolerance

	builderCfg := payload.DefaultBuilderConfig()
	builderCfg.CompanyCode = cfg.SAP.CompanyCode
	builderCfg.DefaultCurrency = cfg.SAP.Currency

	orchestrator := pipeline.NewOrchestrator(
		sapClient, sapClient, sapClient, session,
		matching.NewResolver(resolverCfg, semantic, log),
		matching.NewPOMatcher(matcherCfg, log),
		payload.NewBuilder(builderCfg, log),
		db, log,
	)

	// 7. Tool surface
	registry := tools.NewRegistry()
	if err := tools.RegisterPipelineTools(registry, orchestrator, session); err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}
	executor := tools.NewExecutor(db, registry, log)

	// 8. HTTP server with graceful shutdown
	router := handlers.NewRouter(executor, registry, cfg.JWTSecret)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.WithField("signal", sig.String()).Info("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
	}

	log.Info("Closing database connection")
	if err := db.Close(); err != nil {
		log.WithError(err).Error("Database close error")
	}

	log.Info("Shutdown complete")
}

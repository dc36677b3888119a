package main

import (
	"fmt"
	"net"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/quillhealth/quill/internal/config"
	"github.com/quillhealth/quill/internal/crypto"
	"github.com/quillhealth/quill/internal/handlers"
	"github.com/quillhealth/quill/internal/logger"
	"github.com/quillhealth/quill/internal/middleware"
	"github.com/quillhealth/quill/internal/migrate"
	"github.com/quillhealth/quill/internal/repository"
	"github.com/quillhealth/quill/internal/service"
	"github.com/quillhealth/quill/internal/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local journal facade",
	Long:  `Start the loopback HTTP facade the UI talks to. The journal never listens on a non-local address.`,
	RunE:  runServe,
}

var (
	port string
)

func init() {
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override port from flag if provided
	if port != "" {
		cfg.Server.Port = port
	}

	log := logger.NewSlogLogger(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	logger.SetDefault(log)

	log.Info("starting quill facade",
		logger.String("env", cfg.Server.Env),
		logger.String("data_dir", cfg.Store.Dir))

	if err := os.MkdirAll(cfg.Store.Dir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Key, store, migration, repository
	key, err := crypto.LoadOrCreateKey(cfg.Store.Dir, cfg.Crypto.Passphrase)
	if err != nil {
		return fmt.Errorf("failed to load encryption key: %w", err)
	}
	gateway, err := crypto.NewGateway(key)
	if err != nil {
		return fmt.Errorf("failed to initialize encryption: %w", err)
	}

	st, err := store.Open(cfg.Store.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	repo := repository.NewEntryRepository(st, gateway, migrate.New(), cfg.Analytics.SeverityScaleMax)

	// Analysis engines
	insightsService := service.NewInsightsService(
		repo,
		service.NewCrisisDetector(cfg.Analytics),
		service.NewTrendAnalyzer(cfg.Analytics),
		service.NewPredictor(cfg.Analytics),
		service.NewMultiVariateAnalyzer(cfg.Analytics),
		log,
	)

	// Handlers
	entryHandler := handlers.NewEntryHandler(repo)
	insightsHandler := handlers.NewInsightsHandler(insightsService)
	exportHandler := handlers.NewExportHandler(repo)

	// Set Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(log))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"env":    cfg.Server.Env,
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/entries", entryHandler.CreateEntry)
		v1.GET("/entries", entryHandler.ListEntries)
		v1.GET("/entries/:id", entryHandler.GetEntry)
		v1.DELETE("/entries/:id", entryHandler.DeleteEntry)
		v1.POST("/entries/:id/supersede", entryHandler.SupersedeEntry)

		v1.GET("/insights", insightsHandler.GetInsights)
		v1.GET("/insights/crisis", insightsHandler.GetCrisisSignal)
		v1.GET("/insights/trend", insightsHandler.GetTrend)
		v1.GET("/insights/prediction", insightsHandler.GetPrediction)
		v1.GET("/insights/multivariate", insightsHandler.GetMultiVariate)

		v1.GET("/export", exportHandler.ExportSnapshot)
	}

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	log.Info("facade listening", logger.String("addr", addr))
	if err := router.Run(addr); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

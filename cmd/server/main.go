package main

import (
	"log/slog"
	"os"

	"github.com/Sweily-fr/newbi-api-sub001/config"
	"github.com/Sweily-fr/newbi-api-sub001/internal/extraction"
	"github.com/Sweily-fr/newbi-api-sub001/internal/handlers"
	"github.com/Sweily-fr/newbi-api-sub001/internal/matching"
	"github.com/Sweily-fr/newbi-api-sub001/internal/ocr"
	"github.com/Sweily-fr/newbi-api-sub001/internal/reconcile"
	"github.com/Sweily-fr/newbi-api-sub001/internal/routes"
	"github.com/Sweily-fr/newbi-api-sub001/models"
	"github.com/gin-gonic/gin"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config.ConnectDB()
	config.ConnectRedis()
	config.InitJWT()
	if err := config.InitGoogleServices(); err != nil {
		slog.Warn("Gemini is unavailable, OCR falls back to the remaining providers", "error", err)
	}

	err := config.DB.AutoMigrate(
		&models.Workspace{},
		&models.User{},
		&models.BankTransaction{},
		&models.ExpenseRecord{},
		&models.OcrUsageCounter{},
		&models.CategoryRule{},
	)
	if err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}

	providers := []ocr.Provider{
		ocr.NewMistralProvider(),
		ocr.NewClaudeProvider(),
		ocr.NewMindeeProvider(),
		ocr.NewGeminiProvider(config.GeminiClient),
	}
	plans := ocr.NewPlanResolver(config.DB)
	ledger := ocr.NewGormLedger(config.DB, plans)
	cache := ocr.NewRedisCache(config.RDB)
	tasks := ocr.NewTaskQueue(256)
	defer tasks.Close()

	router := ocr.NewRouter(providers, ledger, cache, tasks)
	normalizer := extraction.NewNormalizer(extraction.NewAIExtractor(config.GeminiClient))
	matcher := matching.NewMatcher(config.DB, matching.DefaultConfig())
	linker := reconcile.NewLinker(config.DB, matcher)

	handlers.SetupServices(router, normalizer, matcher, linker)
	go handlers.GlobalHub.Run()

	engine := gin.Default()
	engine.Static("/static", "./static")
	routes.SetupRoutes(engine)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	slog.Info("Server starting", "port", port)
	if err := engine.Run(":" + port); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

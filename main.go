package main

import (
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/allthingssecurity/shares/src/config"
	"github.com/allthingssecurity/shares/src/database"
	"github.com/allthingssecurity/shares/src/handlers"
	"github.com/allthingssecurity/shares/src/logger"
	"github.com/allthingssecurity/shares/src/parsers"
	"github.com/allthingssecurity/shares/src/processors"
	"github.com/allthingssecurity/shares/src/security"
	"github.com/allthingssecurity/shares/src/services"
	"github.com/allthingssecurity/shares/src/taxconfig"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.L.Debug("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Shares ledger server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	configStore, err := taxconfig.NewStore(database.DB)
	if err != nil {
		logger.L.Error("Failed to initialize tax config store", "error", err)
		stdlog.Fatalf("Failed to initialize tax config store: %v", err)
	}

	logger.L.Info("Initializing ledger cache...")
	ledgerCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	logger.L.Info("Initializing services and handlers...")
	sessionService := security.NewSessionService(config.Cfg.SessionTokenSecret, config.Cfg.SessionTTL)

	ledgerService := services.NewLedgerService(
		parsers.NewCSVParser(),
		processors.NewLotMatcher(),
		processors.NewGainClassifier(),
		processors.NewTaxCalculator(),
		processors.NewPositionAggregator(),
		processors.NewCarryForwardExporter(),
		configStore,
		ledgerCache,
		config.Cfg.FinancialYear,
		config.Cfg.NextYearOpeningDate,
	)

	uploadHandler := handlers.NewUploadHandler(ledgerService, sessionService)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService, configStore, config.Cfg.FinancialYear)
	configHandler := handlers.NewConfigHandler(configStore, ledgerService, config.Cfg.FinancialYear)
	exportHandler := handlers.NewExportHandler(ledgerService)

	logger.L.Info("Configuring routes...")
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(rateLimitMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-Token", "If-None-Match"},
		ExposedHeaders:   []string{"ETag", "Content-Disposition"},
		AllowCredentials: true,
	}))
	r.Use(handlers.SessionMiddleware(sessionService))

	r.Get("/health", handlers.HandleHealth)
	r.Post("/upload", uploadHandler.HandleUpload)
	r.Get("/ledger", ledgerHandler.HandleGetLedger)
	r.Get("/closing-balances", ledgerHandler.HandleGetClosingBalances)
	r.Get("/capital-gains", ledgerHandler.HandleGetCapitalGains)
	r.Get("/summary", ledgerHandler.HandleGetSummary)
	r.Get("/config", configHandler.HandleGetConfig)
	r.Put("/config", configHandler.HandleUpdateConfig)
	r.Get("/export/next-year", exportHandler.HandleExportNextYear)
	r.Get("/export/current", exportHandler.HandleExportCurrent)
	r.Delete("/session", ledgerHandler.HandleDeleteSession)

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}

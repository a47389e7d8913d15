package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/investmentmanagement137/portfolio-sub000/src/config"
	"github.com/investmentmanagement137/portfolio-sub000/src/database"
	"github.com/investmentmanagement137/portfolio-sub000/src/handlers"
	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	"github.com/investmentmanagement137/portfolio-sub000/src/processors"
	"github.com/investmentmanagement137/portfolio-sub000/src/services"
	"github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"
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

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Portfolio backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	logger.L.Info("Initializing services and handlers...")
	priceService := services.NewPriceService(config.Cfg.PriceFeedURL, config.Cfg.HTTPClientTimeout)
	analysisClient := services.NewAnalysisClient(config.Cfg.AnalysisWebhookURL, config.Cfg.HTTPClientTimeout)

	holdingsProcessor := processors.NewHoldingsProcessor()
	dividendProcessor := processors.NewDividendProcessor()

	portfolioService := services.NewPortfolioService(priceService, holdingsProcessor, dividendProcessor, reportCache)
	uploadService := services.NewUploadService(analysisClient, portfolioService)

	uploadHandler := handlers.NewUploadHandler(uploadService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
	dividendHandler := handlers.NewDividendHandler(portfolioService)
	syncHandler := handlers.NewSyncHandler(priceService, portfolioService)

	// Warm raw inputs from the persistence gateway, then pull prices once
	// in the background: the on-load refresh must not delay startup and a
	// feed failure just means 0-price fallbacks until the next sync.
	uploadService.LoadPersisted()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.Cfg.HTTPClientTimeout)
		defer cancel()
		if err := priceService.Refresh(ctx); err != nil {
			logger.L.Warn("Initial price refresh failed; holdings value at 0-price fallback until next sync", "error", err)
			return
		}
		portfolioService.Recompute()
	}()

	var scheduler *cron.Cron
	if spec := config.Cfg.PriceRefreshSpec; spec != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), config.Cfg.HTTPClientTimeout)
			defer cancel()
			if err := priceService.Refresh(ctx); err != nil {
				logger.L.Warn("Scheduled price refresh failed; keeping previous prices", "error", err)
				return
			}
			portfolioService.Recompute()
		})
		if err != nil {
			logger.L.Error("Invalid PRICE_REFRESH_SPEC, timer refresh disabled", "spec", spec, "error", err)
		} else {
			scheduler.Start()
			logger.L.Info("Scheduled price refresh enabled", "spec", spec)
		}
	}

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/upload", uploadHandler.HandleAnalysisUpload)
	apiRouter.HandleFunc("POST /api/holdings-snapshot", uploadHandler.HandleHoldingsSnapshot)
	apiRouter.HandleFunc("POST /api/wacc-report", uploadHandler.HandleWaccReport)
	apiRouter.HandleFunc("POST /api/rederive", uploadHandler.HandleRederive)
	apiRouter.HandleFunc("POST /api/sync", syncHandler.HandleSync)
	apiRouter.HandleFunc("GET /api/portfolio", portfolioHandler.HandleGetPortfolio)
	apiRouter.HandleFunc("GET /api/holdings/{symbol}", portfolioHandler.HandleGetHolding)
	apiRouter.HandleFunc("GET /api/allocation", portfolioHandler.HandleGetAllocation)
	apiRouter.HandleFunc("GET /api/dividends", dividendHandler.HandleGetDividends)
	apiRouter.HandleFunc("GET /api/status", portfolioHandler.HandleGetStatus)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Portfolio backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
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

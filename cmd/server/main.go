package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/proptrust/backend/docs"
	"github.com/proptrust/backend/internal/config"
	"github.com/proptrust/backend/internal/database"
	"github.com/proptrust/backend/internal/handlers"
	mW "github.com/proptrust/backend/internal/middleware"
	"github.com/proptrust/backend/internal/services"
)

// @title Trust Account Ledger API
// @version 1.0
// @description Trust-account ledger for property management: accounts, postings, transfers, interest, reconciliation and reporting
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("lease_directory.base_url", "LEASE_DIRECTORY_BASE_URL")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	docs.SwaggerInfo.Title = "Trust Account Ledger API"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	ledgerCfg := config.LoadLedgerConfig()

	db := database.InitDatabase()
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Wire services: the posting engine is the single mutation surface,
	// transfer and interest compose onto it.
	notifier := services.NewNotifier(redisClient, ledgerCfg.NotificationQueue)
	accountService := services.NewAccountService(db)
	postingService := services.NewPostingService(db, notifier, ledgerCfg)
	transferService := services.NewTransferService(db, postingService)
	reconciliationService := services.NewReconciliationService(db)
	statementService := services.NewStatementService(db)

	viper.SetDefault("lease_directory.base_url", "http://localhost:8090")
	leaseDirectory := services.NewLeaseDirectoryClient(viper.GetString("lease_directory.base_url"))
	auditService := services.NewAuditService(accountService, statementService, leaseDirectory)

	accountHandler := handlers.NewAccountHandler(accountService)
	transactionHandler := handlers.NewTransactionHandler(postingService, reconciliationService, ledgerCfg)
	transferHandler := handlers.NewTransferHandler(transferService)
	reportHandler := handlers.NewReportHandler(statementService, auditService)

	// Setup router
	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Post("/accounts", accountHandler.CreateAccount)
			r.Get("/accounts", accountHandler.ListAccounts)
			r.Get("/accounts/{accountId}", accountHandler.GetAccount)
			r.Put("/accounts/{accountId}", accountHandler.UpdateAccount)
			r.Delete("/accounts/{accountId}", accountHandler.DeactivateAccount)

			r.Post("/accounts/{accountId}/transactions", transactionHandler.PostTransaction)
			r.Get("/accounts/{accountId}/transactions", transactionHandler.ListTransactions)
			r.Get("/transactions/{txId}", transactionHandler.GetTransaction)

			r.Post("/transfers", transferHandler.Transfer)

			r.Post("/accounts/{accountId}/reconcile", transactionHandler.Reconcile)

			r.Get("/accounts/{accountId}/statement", reportHandler.GetStatement)
			r.Get("/properties/{propertyId}/audit-report", reportHandler.GetAuditReport)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}

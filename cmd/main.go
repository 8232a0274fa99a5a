package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/payhubprime/payhub-gobackend/internal/config"
	"github.com/payhubprime/payhub-gobackend/internal/db"
	"github.com/payhubprime/payhub-gobackend/internal/handlers"
	"github.com/payhubprime/payhub-gobackend/internal/services"
	"github.com/payhubprime/payhub-gobackend/internal/store"
)

func main() {
	// Load .env
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Error loading .env: %s", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to MongoDB
	client, err := db.Connect(context.Background(), cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Disconnect(ctx, client); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	mongoStore := store.NewMongoStore(client.Database(cfg.DatabaseName))
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			log.Printf("Warning: failed to ensure indexes: %v", err)
		}
		cancel()
	}

	// Initialize services and handlers
	webhookService := services.NewWebhookService(mongoStore)
	webhookService.Start(cfg.WebhookWorkers)
	defer webhookService.Stop()

	reconcileService := services.NewReconcileService(mongoStore, webhookService)
	sessionService := services.NewSessionService(mongoStore, cfg.CheckoutBase)
	paypalService := services.NewPayPalService(mongoStore, reconcileService)

	jwtSecret := []byte(cfg.JWTSecret)
	callbackHandler := handlers.NewCallbackHandler(reconcileService)
	webhookHandler := handlers.NewWebhookHandler(webhookService, sessionService, jwtSecret)
	sessionHandler := handlers.NewSessionHandler(sessionService, jwtSecret)
	paypalHandler := handlers.NewPayPalHandler(paypalService)

	// Set up router
	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")

	router.HandleFunc("/api/callback/mpesa", callbackHandler.Mpesa).Methods("POST")
	router.HandleFunc("/api/callback/airtel", callbackHandler.Airtel).Methods("POST")
	router.HandleFunc("/api/callback/stripe", callbackHandler.Stripe).Methods("POST")

	router.HandleFunc("/api/paypal/capture", paypalHandler.Capture).Methods("POST")

	router.HandleFunc("/api/webhook/retry/{transactionID}", webhookHandler.Retry).Methods("POST")
	router.HandleFunc("/api/transaction/{transactionID}/webhooks", webhookHandler.Logs).Methods("GET")
	router.HandleFunc("/api/transaction/{transactionID}", sessionHandler.Transaction).Methods("GET")

	router.HandleFunc("/api/session", sessionHandler.Create).Methods("POST")
	router.HandleFunc("/api/session/{sessionID}", sessionHandler.Status).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Start server
	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Drain webhook workers before exit so queued deliveries are not lost.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

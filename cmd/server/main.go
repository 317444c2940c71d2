package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/notiproof/backend/internal/adapter"
	"github.com/notiproof/backend/internal/api"
	"github.com/notiproof/backend/internal/auth"
	"github.com/notiproof/backend/internal/bus"
	"github.com/notiproof/backend/internal/config"
	"github.com/notiproof/backend/internal/connector"
	"github.com/notiproof/backend/internal/db"
	"github.com/notiproof/backend/internal/event"
	"github.com/notiproof/backend/internal/message"
	"github.com/notiproof/backend/internal/metrics"
	mw "github.com/notiproof/backend/internal/middleware"
	"github.com/notiproof/backend/internal/sync"
	"github.com/notiproof/backend/internal/template"
	"github.com/notiproof/backend/internal/testimonial"
	"github.com/notiproof/backend/internal/webhook"
	"github.com/notiproof/backend/internal/ws"
)

func main() {
	cfg := config.Load()

	// Database. Every ingestion path needs storage, so unlike softer
	// dependencies this one is fatal.
	ctx := context.Background()
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()
	if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Printf("WARNING: migrations failed: %v", err)
	}
	pool := database.Pool

	// Stores
	eventStore := event.NewStore(pool)
	connectorStore := connector.NewStore(pool, cfg.EncryptionKey)
	templateStore := template.NewStore(pool)
	testimonialStore := testimonial.NewStore(pool)
	receiptStore := webhook.NewReceiptStore(pool)

	// Adapter registry
	registry := adapter.NewRegistry()
	registry.Register(adapter.NewShopifyAdapter())
	registry.Register(adapter.NewStripeAdapter())
	registry.Register(adapter.NewWooCommerceAdapter())
	registry.Register(adapter.NewTestimonialsAdapter(testimonialStore, testimonialFilter(connectorStore)))
	registry.Register(adapter.NewAnnouncementsAdapter())
	registry.Register(adapter.NewLiveVisitorsAdapter())
	registry.Register(adapter.NewFormHookAdapter())

	// JWT
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// Event bus: Kafka when brokers are configured, in-memory otherwise.
	broker, err := bus.New(cfg.KafkaBrokers, cfg.KafkaConsumerGroup)
	if err != nil {
		log.Fatalf("event bus setup failed: %v", err)
	}
	defer broker.Close() //nolint:errcheck // best-effort cleanup on shutdown

	// WebSocket hub: widget connections, one per live visitor.
	hub := ws.NewHub()
	go hub.Run()
	wsHandler := ws.NewWSHandler(hub)

	// Persisted events reach connected widgets through the bus.
	if _, err := broker.Subscribe(bus.TopicEventCreated, func(msg bus.Message) {
		if msg.WebsiteID != "" {
			hub.BroadcastEvent(msg.WebsiteID, msg.Event)
		}
	}); err != nil {
		log.Printf("WARNING: event broadcast subscription failed: %v", err)
	}

	// Rate limiter shared by the global middleware and the webhook handlers.
	limiter := mw.NewKeyedLimiter()
	defer limiter.Close()

	// Sync service
	syncService := sync.NewService(registry, connectorStore, eventStore)

	// Webhook ingestion
	webhookHandlers := webhook.NewHandlers(registry, receiptStore, eventStore, connectorStore, templateStore, limiter, broker, webhook.Secrets{
		Shopify: cfg.ShopifyWebhookSecret,
		Stripe:  cfg.StripeWebhookSecret,
	})

	// Admin API
	apiHandlers := api.NewHandlers(registry, connectorStore, eventStore, templateStore, syncService, hub, message.NewGenerator())

	// Router
	r := mux.NewRouter()

	// Global rate limit: 100 requests per second per IP.
	r.Use(mw.RateLimitMiddleware(limiter, mw.Limit{MaxRequests: 100, Window: time.Second}))

	// Health check and metrics (no auth)
	r.HandleFunc("/healthz", healthzHandler).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Webhook endpoints (signature-authenticated)
	webhookHandlers.RegisterRoutes(r)

	// Widget WebSocket (origin-checked, no auth)
	wsHandler.RegisterRoutes(r)

	// Admin API (JWT)
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(mw.AuthMiddleware(jwtService))
	apiHandlers.RegisterRoutes(protected)

	// HTTP Server. CORS wraps the entire router so OPTIONS preflight
	// requests are handled before mux routing (which would 404 on OPTIONS).
	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        corsMiddleware(r),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("Server shutdown failed: %v", err)
		}
	}()

	log.Printf("Starting server on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed to start: %v", err)
	}

	log.Println("Server stopped")
}

// testimonialFilter resolves a connector's configured testimonial filters
// for the pull-based testimonials adapter.
func testimonialFilter(store *connector.Store) adapter.FilterFunc {
	return func(ctx context.Context, connectorID string) (testimonial.Filter, error) {
		conn, err := store.Get(ctx, connectorID)
		if err != nil {
			return testimonial.Filter{}, err
		}
		cfg, err := conn.TypedConfig()
		if err != nil {
			return testimonial.Filter{}, err
		}
		tc, ok := cfg.(*connector.TestimonialsConfig)
		if !ok {
			return testimonial.Filter{}, fmt.Errorf("connector %s is not a testimonials connector", connectorID)
		}
		return testimonial.Filter{
			WebsiteID:    tc.WebsiteID,
			FormID:       tc.FormID,
			MinRating:    tc.MinRating,
			ApprovedOnly: tc.ApprovedOnly,
		}, nil
	}
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}

	origins := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		origins[strings.TrimSpace(o)] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origins["*"] || origins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(origins) == 1 {
			// Single origin mode: always set it (for dev convenience)
			for o := range origins {
				w.Header().Set("Access-Control-Allow-Origin", o)
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

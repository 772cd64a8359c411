package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/deepflow/settlement/internal/auth"
	"github.com/deepflow/settlement/internal/expense"
	"github.com/deepflow/settlement/internal/group"
	"github.com/deepflow/settlement/internal/kakao"
	"github.com/deepflow/settlement/internal/middleware"
	"github.com/deepflow/settlement/internal/service"
	"github.com/deepflow/settlement/internal/settlement"
	"github.com/deepflow/settlement/internal/storage/sqlite"
	"github.com/deepflow/settlement/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/settlement.db")
	jwtSecret := getEnv("JWT_SECRET", "")
	kakaoAPIBaseURL := getEnv("KAKAO_API_BASE_URL", "https://kapi.kakao.com")
	kakaoPayBaseURL := getEnv("KAKAO_PAY_BASE_URL", "https://qr.kakaopay.com")
	port := getEnv("PORT", "8080")

	if jwtSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	jwtManager := auth.NewJWTManager(jwtSecret, 24*time.Hour)
	notifier := kakao.NewOrchestrator(kakao.NewClient(kakaoAPIBaseURL), store, kakaoPayBaseURL)

	svc := service.New(
		auth.NewPasswordAuthenticator(store),
		jwtManager,
		group.NewService(store),
		expense.NewService(store),
		settlement.NewService(store, notifier),
		store,
	)

	mux := http.NewServeMux()
	mux.Handle("/api/", svc.Handler())
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware.Metrics(middleware.Logging(corsMiddleware(mux)))

	// h2c lets HTTP/2 clients connect without TLS behind a terminating proxy.
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	addr := ":" + port
	slog.Info("Server starting", "address", addr)
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/adzikra/pigeon-chat/internal/chat"
	"github.com/adzikra/pigeon-chat/internal/config"
	httpHandler "github.com/adzikra/pigeon-chat/internal/delivery/http"
	"github.com/adzikra/pigeon-chat/internal/middleware"
)

func main() {
	// Load .env file (ignore error if not exists, e.g. in production)
	_ = godotenv.Load()

	cfg := config.LoadFromEnv()

	if cfg.LogLevel == "silent" || cfg.LogLevel == "off" {
		log.SetOutput(io.Discard)
	}

	// One broker per process; the handlers share it explicitly.
	broker := chat.NewBroker(cfg)
	handler := httpHandler.NewHandler(broker, cfg)

	apiLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAPI, int(cfg.RateLimitAPI)*2)
	wsLimiter := middleware.NewIPRateLimiter(cfg.RateLimitWS, int(cfg.RateLimitWS)*2)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handler.HandleHealth)
	mux.HandleFunc("/messages", middleware.RateLimitFunc(apiLimiter, handler.HandleMessages))
	mux.HandleFunc("/ws", middleware.RateLimitFunc(wsLimiter, handler.HandleWebSocket))

	securedHandler := middleware.SecurityHeaders(mux)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     securedHandler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("pigeon-chat broker listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}

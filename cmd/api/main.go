package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	cacheAdapter "github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/cache/adapter"
	cacheport "github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/cache/port"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/database"
	queueAdapter "github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/queue/adapter"
	qport "github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/queue/port"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/realtime"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/task"
	repoAdapter "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/adapter"

	v1 "github.com/ahmedyasser1234/Fustan-sub001/cmd/api/router/v1"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// Connect to the database on startup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := database.NewPoolFromEnv(ctx)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	repo := repoAdapter.NewPgChatRepository(pool)

	// Redis cache is optional: without it unread counts hit the store directly.
	var cache cacheport.Cache
	if c, err := cacheAdapter.NewRedisAdapter(); err != nil {
		log.Printf("Warning: redis cache unavailable, unread counts uncached: %v", err)
	} else {
		cache = c
		defer c.Close()
	}

	// Background queue is optional too: without it new-message notifications
	// are skipped, the messages themselves are unaffected.
	var queue qport.Client
	if q, err := queueAdapter.NewAsynqClientFromEnv(); err != nil {
		log.Printf("Warning: queue unavailable, notifications disabled: %v", err)
	} else {
		queue = q
		defer q.Close()
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run the notification worker in-process alongside the API.
	if queue != nil {
		if worker, err := queueAdapter.NewAsynqServer(); err != nil {
			log.Printf("Warning: worker not started: %v", err)
		} else {
			task.RegisterNewMessageTask(worker, repo)
			go func() {
				if err := worker.Run(runCtx); err != nil {
					log.Printf("worker stopped: %v", err)
				}
			}()
		}
	}

	// Live-channel state: connection registry plus debounced presence tracking.
	registry := realtime.NewRegistry()
	presence := realtime.NewPresence(registry, realtime.DefaultOfflineDebounce)
	defer registry.Close()

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	v1.RegisterRoutes(r, repo, registry, presence, queue, cache)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{Addr: ":" + port, Handler: r}

	// One signal stops both halves: the worker through runCtx, the HTTP
	// server through Shutdown.
	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server exited: %v", err)
	}
}

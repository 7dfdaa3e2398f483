package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"classroll/internal/alert"
	"classroll/internal/attendance"
	"classroll/internal/config"
	"classroll/internal/queue"
	"classroll/internal/store"
)

// Worker consumes attendance.marked events and keeps the defaulter watchlist in redis.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		log.Fatal("QUEUE_BACKEND=memory is served by the api process; the worker needs redis")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal(err)
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis at %s not reachable, will keep retrying", cfg.RedisAddr)
	}

	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultRedisKey)
	ledger := attendance.NewLedger(attendance.NewPostgresRepository(db.Client), nil, nil, loc)
	w := alert.NewWatcher(ledger, alert.NewRedisSink(redisClient.Client), cfg.DefaulterThreshold)

	log.Println("worker started, waiting for messages...")
	if err := w.Run(ctx, q); err != nil && err != context.Canceled {
		log.Printf("worker failed: %v", err)
	}
	log.Println("worker stopped")
}

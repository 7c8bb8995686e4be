package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"edportal/internal/config"
	"edportal/internal/payments"
	"edportal/internal/services"
	"edportal/internal/store"
)

const (
	sweepInterval = 5 * time.Minute
	staleAfter    = 30 * time.Minute

	// sweepLockKey guards against concurrent sweeps when several worker
	// replicas share a Redis instance. Slightly shorter than the sweep
	// interval so a crashed holder does not block the next run.
	sweepLockKey = "reconcile:payment_logs:lock"
	sweepLockTTL = 4 * time.Minute
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	keys := cfg.StripeKeys()
	secretKey := keys.ResolveSecretKey()
	if secretKey == "" {
		log.Fatal("No Stripe secret key configured, nothing to reconcile")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Firebase document store
	fb, err := services.InitFirebase(ctx, cfg.FirebaseCredentials)
	if err != nil {
		log.Fatalf("Firebase initialization failed: %v", err)
	}
	defer fb.Close()
	st := store.New(fb.Firestore)

	// Initialize Redis (optional, used only for the sweep lock)
	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed, sweeping without a lock: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// The worker sweeps the ledger collection of the environment its
	// secret key belongs to; sessions from the other environment cannot
	// be fetched with this key anyway.
	qualifier := payments.ResolveQualifier(cfg.SchemaQualifier, nil, secretKey)
	collections := []string{qualifier + payments.TablePaymentLogs}

	processor := payments.NewProcessorClient(secretKey)
	reconciler := payments.NewReconciler(st, processor, collections, staleAfter)

	log.Printf("Reconciliation worker started, sweeping %v every %s", collections, sweepInterval)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down worker...")
		cancel()
	}()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	// Run once at startup, then on every tick.
	runSweep(ctx, reconciler, cache)

	for {
		select {
		case <-ticker.C:
			runSweep(ctx, reconciler, cache)
		case <-ctx.Done():
			return
		}
	}
}

func runSweep(ctx context.Context, reconciler *payments.Reconciler, cache *services.RedisCache) {
	if ctx.Err() != nil {
		return
	}

	if cache != nil {
		acquired, err := cache.SetNX(ctx, sweepLockKey, time.Now().UTC().Format(time.RFC3339), sweepLockTTL)
		if err != nil {
			log.Printf("Error acquiring sweep lock, skipping run: %v", err)
			return
		}
		if !acquired {
			log.Println("Sweep lock held elsewhere, skipping run")
			return
		}
	}

	updated, err := reconciler.Sweep(ctx)
	if err != nil {
		log.Printf("Reconciliation sweep failed: %v", err)
		return
	}
	if updated > 0 {
		log.Printf("Reconciliation sweep updated %d ledger entries", updated)
	}
}

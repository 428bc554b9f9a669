// Command reconcile replays the local half of two-system writes that failed after the
// identity provider had already applied its half.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kvo5/marvel-madness/internal/cache"
	"github.com/kvo5/marvel-madness/internal/config"
	"github.com/kvo5/marvel-madness/internal/database"
	"github.com/kvo5/marvel-madness/internal/middleware"
	"github.com/kvo5/marvel-madness/internal/notifications"
	"github.com/kvo5/marvel-madness/internal/repository"
	"github.com/kvo5/marvel-madness/internal/service"
)

func main() {
	limit := flag.Int("limit", 0, "Maximum records to process per pass (0 = all pending)")
	maxAttempts := flag.Int("max-attempts", service.DefaultMaxAttempts, "Attempts before a record is dropped")
	watch := flag.Bool("watch", false, "Keep running and drain whenever a record is queued")
	interval := flag.Duration("interval", time.Minute, "Drain interval in watch mode")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()
	if rdb == nil {
		log.Fatalf("Redis is required to read the reconciliation queue")
	}

	svc := service.NewReconcileService(
		notifications.NewReconciliationQueue(rdb),
		repository.NewUserRepository(db),
		*maxAttempts,
		middleware.Logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drain := func() {
		report, err := svc.Drain(ctx, *limit)
		if err != nil && ctx.Err() == nil {
			log.Printf("Drain failed: %v", err)
			return
		}
		log.Printf("Drain: %d applied, %d requeued, %d dead", report.Applied, report.Requeued, report.Dead)
	}

	drain()
	if !*watch {
		return
	}

	queued := make(chan struct{}, 1)
	err = notifications.NewNotifier(rdb).StartReconcileSubscriber(ctx, func(string, string) {
		select {
		case queued <- struct{}{}:
		default:
		}
	})
	if err != nil {
		log.Fatalf("Failed to subscribe to reconciliation events: %v", err)
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	log.Printf("Watching for reconciliation records (interval %s)", *interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("Reconciler stopped")
			return
		case <-queued:
			drain()
		case <-ticker.C:
			drain()
		}
	}
}

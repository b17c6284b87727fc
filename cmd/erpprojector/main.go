// Command erpprojector is the long-running ERP projector worker pool (C8):
// it consumes ParityVerified messages from the hand-off stream and posts
// idempotent customer invoices, one per order.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/konozy/ordersync/config"
	"github.com/konozy/ordersync/erp"
	"github.com/konozy/ordersync/eventlog"
	"github.com/konozy/ordersync/handoff"
	"github.com/konozy/ordersync/metrics"
)

func main() {
	workers := flag.Int("workers", 4, "number of concurrent stream consumers")
	batchSize := flag.Int64("batch-size", 10, "messages pulled per XReadGroup call")
	blockFor := flag.Duration("block", 5*time.Second, "XReadGroup block duration")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("erpprojector: load config: %v", err)
	}
	metrics.InstallLogErrorHook()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	events, err := eventlog.Open(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("erpprojector: open event log: %v", err)
	}
	defer events.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	stream := handoff.New(redisClient, cfg.Redis.Stream, cfg.Redis.RetentionCap)

	client := erp.NewRestyClient(cfg.ERP.BaseURL, cfg.ERP.APIKey)
	projector := erp.NewProjector(client, events, cfg.Marketplace.SellerID, cfg.ERP.GenericPartnerID, cfg.ERP.Journal)
	pool := erp.NewWorkerPool(stream, projector, cfg.Redis.ConsumerGroup, *batchSize, *blockFor)

	log.Printf("erpprojector: starting %d workers against group %q on stream %q", *workers, cfg.Redis.ConsumerGroup, cfg.Redis.Stream)

	if err := pool.Run(ctx, *workers); err != nil && ctx.Err() == nil {
		log.Fatalf("erpprojector: worker pool stopped: %v", err)
	}

	log.Println("erpprojector: shut down")
	os.Exit(0)
}

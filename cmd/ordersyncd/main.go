// Command ordersyncd is the batch driver for the sync use-case
// orchestrator: it pulls one date window of raw financial events from the
// marketplace adapter and runs each order through the orchestrator
// pipeline, exiting non-zero if any order failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/konozy/ordersync/config"
	"github.com/konozy/ordersync/decomposer"
	"github.com/konozy/ordersync/eventlog"
	"github.com/konozy/ordersync/handoff"
	"github.com/konozy/ordersync/logging"
	"github.com/konozy/ordersync/marketplace"
	"github.com/konozy/ordersync/metrics"
	"github.com/konozy/ordersync/notifier"
	"github.com/konozy/ordersync/snapshot"
	"github.com/konozy/ordersync/syncengine"
)

// batchCounters holds the total, succeeded and failed counts of one batch.
// Invoice counts are not tracked here — invoice posting is the ERP
// projector's job, asynchronously, off the hand-off stream.
type batchCounters struct {
	Total    int
	Succeeded int
	Failed   int
}

func main() {
	since := flag.Duration("since", 15*time.Minute, "how far back from now (minus the upstream clamp) to pull financial events")
	dryRun := flag.Bool("dry-run", false, "append events without publishing the ERP hand-off")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("ordersyncd: load config: %v", err)
	}
	metrics.InstallLogErrorHook()

	ctx := context.Background()

	events, err := eventlog.Open(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("ordersyncd: open event log: %v", err)
	}
	defer events.Close()

	snapshots := snapshot.NewStore(events.Pool())

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	stream := handoff.New(redisClient, cfg.Redis.Stream, cfg.Redis.RetentionCap)

	notify := notifier.New(
		notifier.NewLogVariant(cfg.Notify.MinSeverity),
		notifier.NewWebhookVariant(cfg.Notify.WebhookURL, cfg.Notify.MinSeverity),
	)

	feeTable, err := config.LoadFeeTable(cfg.ERP.FeeTablePath)
	if err != nil {
		log.Fatalf("ordersyncd: load fee table: %v", err)
	}

	adapter := marketplace.New(cfg.Marketplace.BaseURL, cfg.Marketplace.APIKey, cfg.Marketplace.SellerID, cfg.Marketplace.ClampWindow)

	engine := &syncengine.Engine{
		Events:      events,
		Snapshots:   snapshots,
		Strategy:    snapshot.NewDefault(cfg.Snapshot.EveryNEvents, cfg.Snapshot.MaxAge),
		Stream:      stream,
		Notify:      notify,
		FeeTable:    feeTable,
		Tolerance:   cfg.BalanceTolerance,
		Marketplace: cfg.Marketplace.SellerID,
	}

	payloads, err := adapter.FetchWindow(ctx, time.Now().Add(-*since))
	if err != nil {
		log.Fatalf("ordersyncd: fetch financial events: %v", err)
	}

	counters := runBatch(ctx, engine, payloads, *dryRun)

	logging.Info("ordersyncd: batch complete",
		logging.Int("total", counters.Total),
		logging.Int("succeeded", counters.Succeeded),
		logging.Int("failed", counters.Failed),
	)
	fmt.Printf("total=%d succeeded=%d failed=%d\n", counters.Total, counters.Succeeded, counters.Failed)

	if counters.Failed > 0 {
		os.Exit(1)
	}
}

func runBatch(ctx context.Context, engine *syncengine.Engine, payloads []decomposer.RawPayload, dryRun bool) batchCounters {
	var c batchCounters
	for _, p := range payloads {
		c.Total++
		result, err := engine.Sync(ctx, p.OrderID, time.Now(), p.BuyerEmail, p, dryRun)
		if err != nil {
			c.Failed++
			logging.Error("ordersyncd: transport error syncing order", err, logging.OrderID(p.OrderID), logging.BuyerEmail(p.BuyerEmail))
			continue
		}
		if !result.Success {
			c.Failed++
			logging.Warn("ordersyncd: order sync failed", logging.OrderID(p.OrderID), logging.BuyerEmail(p.BuyerEmail), logging.String("error_kind", result.ErrorKind), logging.String("message", result.Message))
			continue
		}
		c.Succeeded++
	}
	return c
}

package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/unifly3582/orderflow/internal/app"
	"github.com/unifly3582/orderflow/internal/config"
	"github.com/unifly3582/orderflow/internal/tracking"
)

// Reconciler is satisfied by *tracking.Reconciler.
type Reconciler interface {
	Enqueue(ctx context.Context) (int, error)
	SyncAll(ctx context.Context) ([]tracking.Result, error)
}

type CountEmitter interface {
	Counts(ctx context.Context, counts map[string]int) error
}

// Scheduler runs on the EventBridge schedule. With a queue it fans one
// message per tracked order out to the worker; without one it reconciles
// inline.
type Scheduler struct {
	reconciler Reconciler
	metrics    CountEmitter
	useQueue   bool
}

func (s *Scheduler) Handle(ctx context.Context, ev events.CloudWatchEvent) error {
	log.Printf("[tracker] scheduled run id=%s time=%s", ev.ID, ev.Time)

	if s.useQueue {
		n, err := s.reconciler.Enqueue(ctx)
		s.emit(ctx, map[string]int{"TrackingOrdersEnqueued": n})
		if err != nil {
			// published messages are processed anyway; the next run picks up the rest
			log.Printf("[tracker] enqueued %d with errors: %v", n, err)
			return err
		}
		log.Printf("[tracker] enqueued %d orders", n)
		return nil
	}

	results, err := s.reconciler.SyncAll(ctx)
	if err != nil {
		return err
	}
	failed := tracking.Failed(results)
	s.emit(ctx, map[string]int{
		"TrackingOrdersSynced": len(results),
		"TrackingSyncFailed":   failed,
	})
	log.Printf("[tracker] synced %d orders, %d failed", len(results), failed)
	return nil
}

func (s *Scheduler) emit(ctx context.Context, counts map[string]int) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.Counts(ctx, counts); err != nil {
		log.Printf("[tracker] metrics error: %v", err)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}
	s := &Scheduler{
		reconciler: a.Reconciler,
		metrics:    a.Metrics,
		useQueue:   cfg.TrackingQueueURL != "",
	}

	if cfg.RunLocal {
		if err := s.Handle(context.Background(), events.CloudWatchEvent{ID: "local"}); err != nil {
			log.Fatalf("local run error: %v", err)
		}
		return
	}

	lambda.Start(s.Handle)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"

	"github.com/unifly3582/orderflow/internal/orders"
	"github.com/unifly3582/orderflow/internal/tracking"
)

// Syncer is satisfied by *tracking.Reconciler.
type Syncer interface {
	SyncOrder(ctx context.Context, orderID string) (tracking.Result, error)
}

// Processor reconciles one order per SQS tracking message.
type Processor struct {
	syncer Syncer
}

func NewProcessor(syncer Syncer) *Processor {
	return &Processor{syncer: syncer}
}

// Handle processes the batch and reports only the messages worth retrying,
// so one bad courier lookup does not redeliver the whole batch.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			log.Printf("[worker] message=%s failed: %v", rec.MessageId, err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: rec.MessageId,
			})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg tracking.SyncMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil || msg.OrderID == "" {
		// redelivery cannot fix a malformed body
		log.Printf("[worker] dropping invalid message=%s body=%s", rec.MessageId, rec.Body)
		return nil
	}

	res, err := p.syncer.SyncOrder(ctx, msg.OrderID)
	switch {
	case errors.Is(err, orders.ErrNotFound), errors.Is(err, tracking.ErrNotTracked):
		log.Printf("[worker] skipping order=%s: %v", msg.OrderID, err)
		return nil
	case err != nil:
		return fmt.Errorf("sync order %s: %w", msg.OrderID, err)
	}

	log.Printf("[worker] synced order=%s courier_status=%q status=%s changed=%t",
		msg.OrderID, res.CourierStatus, res.Status, res.Changed)
	return nil
}

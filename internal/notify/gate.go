package notify

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/unifly3582/orderflow/internal/metrics"
	"github.com/unifly3582/orderflow/internal/orders"
)

// ChannelWhatsApp is the only channel wired today.
const ChannelWhatsApp = "whatsapp"

// Channel sends a template message and returns the provider message id.
type Channel interface {
	SendTemplate(ctx context.Context, to, template string, params []string) (messageID string, err error)
}

// Appender is the log sink for dispatch attempts.
type Appender interface {
	Append(ctx context.Context, e LogEntry) error
}

// OrderUpdater advances the per-order ledger.
type OrderUpdater interface {
	Mutate(ctx context.Context, orderID string, fn func(*orders.Order) (bool, error)) (*orders.Order, bool, error)
}

// Gate is the single path through which customer notifications go out.
type Gate struct {
	channel   Channel
	log       Appender
	orders    OrderUpdater
	templates map[Event]Template
	nowFunc   func() time.Time
	newID     func() string
}

func NewGate(channel Channel, logStore Appender, orderStore OrderUpdater, templates map[Event]Template) *Gate {
	if templates == nil {
		templates = DefaultTemplates()
	}
	return &Gate{
		channel:   channel,
		log:       logStore,
		orders:    orderStore,
		templates: templates,
		nowFunc:   time.Now,
		newID:     uuid.NewString,
	}
}

// Decide returns the reason to skip ev for o, or "" when it should be sent.
func (g *Gate) Decide(o *orders.Order, ev Event) Skip {
	switch {
	case ev == "":
		return SkipNoEvent
	case !o.WhatsAppEnabled():
		return SkipOptedOut
	case o.NotificationHistory.LastEvent == string(ev):
		return SkipAlreadySent
	}
	if _, ok := g.templates[ev]; !ok {
		return SkipNoTemplate
	}
	if o.CustomerInfo.Phone == "" {
		return SkipNoPhone
	}
	return ""
}

// Dispatch sends ev for o when Decide allows it. It never fails the caller:
// channel and storage errors are logged and reported in the Outcome. The
// ledger only advances after the channel accepted the message, so a failed
// send stays eligible for a retry of the same event.
func (g *Gate) Dispatch(ctx context.Context, o *orders.Order, ev Event) Outcome {
	out := Outcome{Event: ev}
	if skip := g.Decide(o, ev); skip != "" {
		out.Skipped = skip
		metrics.NotificationsTotal.WithLabelValues(string(ev), "skipped_"+string(skip)).Inc()
		log.Printf("[notify] skip order=%s event=%s reason=%s", o.OrderID, ev, skip)
		return out
	}

	tpl := g.templates[ev]
	msgID, sendErr := g.channel.SendTemplate(ctx, o.CustomerInfo.Phone, tpl.Name, tpl.Params(o))

	entry := LogEntry{
		LogID:     g.newID(),
		OrderID:   o.OrderID,
		Event:     ev,
		Channel:   ChannelWhatsApp,
		Template:  tpl.Name,
		Recipient: o.CustomerInfo.Phone,
		Status:    LogStatusSent,
		MessageID: msgID,
		CreatedAt: g.nowFunc(),
	}
	if sendErr != nil {
		entry.Status = LogStatusFailed
		entry.Error = sendErr.Error()
		var coded interface{ ErrorCode() string }
		if errors.As(sendErr, &coded) {
			entry.ErrorCode = coded.ErrorCode()
		}
	}
	if err := g.log.Append(ctx, entry); err != nil {
		log.Printf("[notify] log append failed order=%s event=%s: %v", o.OrderID, ev, err)
	}

	if sendErr != nil {
		out.Err = sendErr
		metrics.NotificationsTotal.WithLabelValues(string(ev), "failed").Inc()
		log.Printf("[notify] send failed order=%s event=%s template=%s code=%s: %v",
			o.OrderID, ev, tpl.Name, entry.ErrorCode, sendErr)
		return out
	}

	out.Sent = true
	out.MessageID = msgID
	metrics.NotificationsTotal.WithLabelValues(string(ev), "sent").Inc()
	log.Printf("[notify] sent order=%s event=%s message=%s", o.OrderID, ev, msgID)

	sentAt := entry.CreatedAt
	updated, _, err := g.orders.Mutate(ctx, o.OrderID, func(cur *orders.Order) (bool, error) {
		if cur.NotificationHistory.LastEvent == string(ev) {
			return false, nil
		}
		cur.NotificationHistory.Record(string(ev), sentAt)
		return true, nil
	})
	if err != nil {
		log.Printf("[notify] ledger not advanced order=%s event=%s: %v", o.OrderID, ev, err)
		return out
	}
	o.NotificationHistory = updated.NotificationHistory
	o.Version = updated.Version
	return out
}

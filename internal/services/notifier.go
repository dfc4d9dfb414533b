package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// TenantActivityEvent is handed to the notification collaborator whenever a
// tenant-linked deposit or withdrawal is posted. Delivery is someone else's
// problem; the ledger only enqueues.
type TenantActivityEvent struct {
	TenantID        int64           `json:"tenant_id"`
	AccountID       int64           `json:"account_id"`
	AccountType     string          `json:"account_type"`
	TransactionType string          `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	Date            time.Time       `json:"date"`
}

// Notifier pushes tenant activity events onto a Redis queue, fire and forget.
// A nil Redis client disables it; a push failure is logged and never rolls
// back the posting that produced the event.
type Notifier struct {
	redis *redis.Client
	queue string
}

func NewNotifier(redisClient *redis.Client, queue string) *Notifier {
	return &Notifier{redis: redisClient, queue: queue}
}

func (n *Notifier) NotifyTenantActivity(ctx context.Context, event *TenantActivityEvent) error {
	if n == nil || n.redis == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := n.redis.RPush(ctx, n.queue, data).Err(); err != nil {
		log.Printf("[NOTIFY] Failed to enqueue tenant notification: %v", err)
		return err
	}

	return nil
}

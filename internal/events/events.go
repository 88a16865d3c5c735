// Package events announces ledger appends to the outside world. Publishing
// is best effort: a failed publish is logged by the caller and never undoes
// the ledger entry it describes.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/b0ase/path402/apps/poeminter/internal/ledger"
	"github.com/b0ase/path402/apps/poeminter/internal/logging"
)

// Publisher delivers an event to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
}

// LedgerEvent is the payload published for each appended entry.
type LedgerEvent struct {
	EntryID      string          `json:"entry_id"`
	Kind         ledger.Kind     `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	CounterAsset string          `json:"counter_asset"`
	Description  string          `json:"description"`
	OccurredAt   time.Time       `json:"occurred_at"`
	RunID        string          `json:"run_id,omitempty"`
}

// FromEntry builds the event for a ledger entry.
func FromEntry(e ledger.Entry, runID string) LedgerEvent {
	return LedgerEvent{
		EntryID:      e.ID,
		Kind:         e.Kind,
		Amount:       e.Amount,
		CounterAsset: e.CounterAsset,
		Description:  e.Description,
		OccurredAt:   e.Timestamp,
		RunID:        runID,
	}
}

// NoopPublisher logs events at debug level and drops them.
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, topic string, event any) error {
	logging.For("events").WithField("topic", topic).Debugf("Event dropped (no publisher configured): %+v", event)
	return nil
}

// Key is the partition key used by the Kafka publisher.
func (e LedgerEvent) Key() string { return e.EntryID }

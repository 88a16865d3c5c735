// Package ledger records mint, bridge and burn events. The ledger is
// append-only: entries are never updated or removed, and duplicates are
// allowed because each one stands for a distinct event.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the event type of an entry.
type Kind string

const (
	KindMint   Kind = "mint"
	KindBridge Kind = "bridge"
	KindBurn   Kind = "burn"
	// KindAll is a filter value, never stored.
	KindAll Kind = "all"
)

// StatusConfirmed is the only status an entry ever has.
const StatusConfirmed = "confirmed"

// ParseKind maps a filter string onto a Kind. Empty means all.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindAll:
		return KindAll, nil
	case KindMint, KindBridge, KindBurn:
		return k, nil
	default:
		return "", fmt.Errorf("unknown ledger kind %q", s)
	}
}

// Entry is one recorded event.
type Entry struct {
	ID           string          `json:"id"`
	Kind         Kind            `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	CounterAsset string          `json:"counter_asset"`
	Status       string          `json:"status"`
	Timestamp    time.Time       `json:"timestamp"`
	Description  string          `json:"description"`
}

// NewEntry builds a confirmed entry stamped with now.
func NewEntry(kind Kind, amount decimal.Decimal, counterAsset, description string) Entry {
	return Entry{
		ID:           uuid.New().String(),
		Kind:         kind,
		Amount:       amount,
		CounterAsset: counterAsset,
		Status:       StatusConfirmed,
		Timestamp:    time.Now().UTC(),
		Description:  description,
	}
}

// Store persists entries in insertion order.
type Store interface {
	SaveEntry(ctx context.Context, entry Entry) error
	GetEntries(ctx context.Context) ([]Entry, error)
	GetEntriesByKind(ctx context.Context, kind Kind) ([]Entry, error)
}

// Ledger is the append-only event record.
type Ledger struct {
	store Store
}

// New wraps a store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Append records an entry. Missing ID, status or timestamp are filled in.
func (l *Ledger) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = StatusConfirmed
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if err := l.store.SaveEntry(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("save ledger entry: %w", err)
	}
	return e, nil
}

// Filter returns entries of one kind, newest first. KindAll returns all.
func (l *Ledger) Filter(ctx context.Context, kind Kind) ([]Entry, error) {
	var (
		entries []Entry
		err     error
	)
	if kind == KindAll || kind == "" {
		entries, err = l.store.GetEntries(ctx)
	} else {
		entries, err = l.store.GetEntriesByKind(ctx, kind)
	}
	if err != nil {
		return []Entry{}, err
	}
	return newestFirst(entries), nil
}

// Render returns every entry, newest first.
func (l *Ledger) Render(ctx context.Context) ([]Entry, error) {
	return l.Filter(ctx, KindAll)
}

func newestFirst(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

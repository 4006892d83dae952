package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger keeps delivery items in process memory. Intended for tests
// and single-process setups without a database.
type MemoryLedger struct {
	mu      sync.Mutex
	nextSeq int64
	items   map[string][]*Item
}

var _ Ledger = (*MemoryLedger)(nil)

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{items: make(map[string][]*Item)}
}

func (l *MemoryLedger) Append(_ context.Context, triggerID string, item *Item) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSeq++
	item.ID = uuid.New().String()
	item.TriggerID = triggerID
	item.Seq = l.nextSeq
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	stored := *item
	l.items[triggerID] = append(l.items[triggerID], &stored)
	return nil
}

func (l *MemoryLedger) List(_ context.Context, triggerID string, page, size int) ([]*Item, int64, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	all := l.items[triggerID]
	total := int64(len(all))

	start := page * size
	if start >= len(all) {
		return []*Item{}, total, nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}

	out := make([]*Item, 0, end-start)
	for _, item := range all[start:end] {
		copied := *item
		out = append(out, &copied)
	}
	return out, total, nil
}

// Package store persists the per-trigger delivery ledger: an append-only
// record of every inbound webhook attempt and its conversion status.
package store

import (
	"context"
	"time"
)

// Item is a single ledger entry. Seq is assigned by the storage layer on
// insert and defines the arrival order within a trigger.
type Item struct {
	ID        string    `db:"id" json:"id"`
	TriggerID string    `db:"trigger_id" json:"trigger_id"`
	Seq       int64     `db:"seq" json:"seq"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Ledger records delivery attempts and serves them back in arrival order.
//
// Append must be a single atomic insert: concurrent appends for the same
// trigger, possibly from separate processes, must all be durably recorded.
type Ledger interface {
	Append(ctx context.Context, triggerID string, item *Item) error
	List(ctx context.Context, triggerID string, page, size int) ([]*Item, int64, error)
}

package notification

import "context"

// Store manages notification entities. Save upserts by unique name.
// Implementations live under notification/store.
type Store interface {
	List(ctx context.Context) ([]*Notification, error)
	Get(ctx context.Context, id string) (*Notification, error)
	GetByName(ctx context.Context, name string) (*Notification, error)
	FindByTrigger(ctx context.Context, action TriggerAction) ([]*Notification, error)
	Save(ctx context.Context, n *Notification) error
	Delete(ctx context.Context, name string) error

	// UpdateError records the outcome of the latest send attempt. An empty
	// message clears a previously recorded failure.
	UpdateError(ctx context.Context, id, message string) error
}

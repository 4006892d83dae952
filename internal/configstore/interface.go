package configstore

import "context"

// Store manages named configuration entries. Save upserts by unique name.
type Store interface {
	Get(ctx context.Context, name string) (*Config, error)
	List(ctx context.Context) ([]*Config, error)
	Save(ctx context.Context, config *Config) error
	Delete(ctx context.Context, name string) error
}

package configstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hookline/hookline/internal/common/errors"
	"github.com/hookline/hookline/internal/db"
)

// configRow is the scan target for the configs table. database/sql cannot
// scan a TEXT column into json.RawMessage, so the body is read as a string
// and converted on the way out.
type configRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Category  string    `db:"category"`
	Data      string    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *configRow) toConfig() *Config {
	return &Config{
		ID:        r.ID,
		Name:      r.Name,
		Category:  Category(r.Category),
		Data:      json.RawMessage(r.Data),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type SQLStore struct {
	pool *db.Pool
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(pool *db.Pool) (*SQLStore, error) {
	s := &SQLStore{pool: pool}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize config schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS configs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL,
		data TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`
	_, err := s.pool.Writer().Exec(schema)
	return err
}

func (s *SQLStore) Get(ctx context.Context, name string) (*Config, error) {
	reader := s.pool.Reader()
	var row configRow
	err := reader.GetContext(ctx, &row, reader.Rebind(`
		SELECT id, name, category, data, created_at, updated_at
		FROM configs
		WHERE name = ?
	`), name)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("config", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	return row.toConfig(), nil
}

func (s *SQLStore) List(ctx context.Context) ([]*Config, error) {
	reader := s.pool.Reader()
	rows := []*configRow{}
	err := reader.SelectContext(ctx, &rows, `
		SELECT id, name, category, data, created_at, updated_at
		FROM configs
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list configs: %w", err)
	}
	configs := make([]*Config, 0, len(rows))
	for _, row := range rows {
		configs = append(configs, row.toConfig())
	}
	return configs, nil
}

// Save upserts by unique name: a second save with the same name overwrites
// the stored category and data, keeping the original id and created_at.
func (s *SQLStore) Save(ctx context.Context, config *Config) error {
	writer := s.pool.Writer()
	now := time.Now().UTC()

	existing, err := s.Get(ctx, config.Name)
	switch {
	case err == nil:
		config.ID = existing.ID
		config.CreatedAt = existing.CreatedAt
		config.UpdatedAt = now
		_, err = writer.ExecContext(ctx, writer.Rebind(`
			UPDATE configs SET category = ?, data = ?, updated_at = ? WHERE name = ?
		`), config.Category, string(config.Data), config.UpdatedAt, config.Name)
	case errors.IsNotFound(err):
		config.ID = uuid.New().String()
		config.CreatedAt = now
		config.UpdatedAt = now
		_, err = writer.ExecContext(ctx, writer.Rebind(`
			INSERT INTO configs (id, name, category, data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`), config.ID, config.Name, config.Category, string(config.Data), config.CreatedAt, config.UpdatedAt)
	default:
		return err
	}

	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, name string) error {
	_, err := s.pool.Writer().ExecContext(ctx,
		s.pool.Writer().Rebind(`DELETE FROM configs WHERE name = ?`), name)
	if err != nil {
		return fmt.Errorf("failed to delete config: %w", err)
	}
	return nil
}

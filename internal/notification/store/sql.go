// Package store persists the notification registry.
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hookline/hookline/internal/common/errors"
	"github.com/hookline/hookline/internal/db"
	"github.com/hookline/hookline/internal/db/dialect"
	"github.com/hookline/hookline/internal/notification"
)

type SQLStore struct {
	pool *db.Pool
}

var _ notification.Store = (*SQLStore)(nil)

func NewSQLStore(pool *db.Pool) (*SQLStore, error) {
	s := &SQLStore{pool: pool}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize notification schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		variant TEXT NOT NULL,
		trigger_action TEXT NOT NULL,
		condition TEXT NOT NULL DEFAULT '',
		last_error TEXT NOT NULL DEFAULT '',
		smtp_config TEXT NOT NULL DEFAULT '',
		from_address TEXT NOT NULL DEFAULT '',
		to_address TEXT NOT NULL DEFAULT '',
		to_flow_users INTEGER NOT NULL DEFAULT 0,
		subject TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_trigger_action ON notifications(trigger_action);
	`
	_, err := s.pool.Writer().Exec(schema)
	return err
}

const selectColumns = `
	SELECT id, name, variant, trigger_action, condition, last_error,
	       smtp_config, from_address, to_address, to_flow_users, subject, url,
	       created_at, updated_at
	FROM notifications
`

func (s *SQLStore) List(ctx context.Context) ([]*notification.Notification, error) {
	reader := s.pool.Reader()
	list := []*notification.Notification{}
	err := reader.SelectContext(ctx, &list, selectColumns+` ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*notification.Notification, error) {
	return s.getWhere(ctx, `id`, id)
}

func (s *SQLStore) GetByName(ctx context.Context, name string) (*notification.Notification, error) {
	return s.getWhere(ctx, `name`, name)
}

func (s *SQLStore) getWhere(ctx context.Context, column, value string) (*notification.Notification, error) {
	reader := s.pool.Reader()
	var n notification.Notification
	err := reader.GetContext(ctx, &n, reader.Rebind(selectColumns+` WHERE `+column+` = ?`), value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("notification", value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

func (s *SQLStore) FindByTrigger(ctx context.Context, action notification.TriggerAction) ([]*notification.Notification, error) {
	reader := s.pool.Reader()
	list := []*notification.Notification{}
	err := reader.SelectContext(ctx, &list,
		reader.Rebind(selectColumns+` WHERE trigger_action = ? ORDER BY created_at ASC`), string(action))
	if err != nil {
		return nil, fmt.Errorf("failed to find notifications by trigger: %w", err)
	}
	return list, nil
}

// Save upserts by unique name. A second save with an existing name replaces
// the stored entity in place, keeping its id and created_at.
func (s *SQLStore) Save(ctx context.Context, n *notification.Notification) error {
	writer := s.pool.Writer()
	now := time.Now().UTC()

	existing, err := s.GetByName(ctx, n.Name)
	switch {
	case err == nil:
		n.ID = existing.ID
		n.CreatedAt = existing.CreatedAt
		n.UpdatedAt = now
		_, err = writer.ExecContext(ctx, writer.Rebind(`
			UPDATE notifications
			SET variant = ?, trigger_action = ?, condition = ?, last_error = ?,
			    smtp_config = ?, from_address = ?, to_address = ?, to_flow_users = ?,
			    subject = ?, url = ?, updated_at = ?
			WHERE name = ?
		`), n.Variant, n.Trigger, n.Condition, n.LastError,
			n.SmtpConfig, n.From, n.To, dialect.BoolToInt(n.ToFlowUsers),
			n.Subject, n.URL, n.UpdatedAt, n.Name)
	case errors.IsNotFound(err):
		n.ID = uuid.New().String()
		n.CreatedAt = now
		n.UpdatedAt = now
		_, err = writer.ExecContext(ctx, writer.Rebind(`
			INSERT INTO notifications (id, name, variant, trigger_action, condition, last_error,
				smtp_config, from_address, to_address, to_flow_users, subject, url,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`), n.ID, n.Name, n.Variant, n.Trigger, n.Condition, n.LastError,
			n.SmtpConfig, n.From, n.To, dialect.BoolToInt(n.ToFlowUsers),
			n.Subject, n.URL, n.CreatedAt, n.UpdatedAt)
	default:
		return err
	}

	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, name string) error {
	_, err := s.pool.Writer().ExecContext(ctx,
		s.pool.Writer().Rebind(`DELETE FROM notifications WHERE name = ?`), name)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateError(ctx context.Context, id, message string) error {
	writer := s.pool.Writer()
	_, err := writer.ExecContext(ctx, writer.Rebind(`
		UPDATE notifications SET last_error = ?, updated_at = ? WHERE id = ?
	`), message, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update notification error: %w", err)
	}
	return nil
}

// Package flow exposes the flow membership data the notification layer
// needs: which user addresses belong to a named flow.
package flow

import (
	"context"
	"fmt"

	"github.com/hookline/hookline/internal/db"
)

// Users lists the email addresses of a flow's members.
type Users interface {
	ListUsers(ctx context.Context, flow string) ([]string, error)
}

// SQLUsers reads flow membership from the flow_users table.
type SQLUsers struct {
	pool *db.Pool
}

var _ Users = (*SQLUsers)(nil)

func NewSQLUsers(pool *db.Pool) (*SQLUsers, error) {
	s := &SQLUsers{pool: pool}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize flow users schema: %w", err)
	}
	return s, nil
}

func (s *SQLUsers) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS flow_users (
		flow TEXT NOT NULL,
		email TEXT NOT NULL,
		PRIMARY KEY (flow, email)
	);
	`
	_, err := s.pool.Writer().Exec(schema)
	return err
}

func (s *SQLUsers) ListUsers(ctx context.Context, flow string) ([]string, error) {
	reader := s.pool.Reader()
	users := []string{}
	err := reader.SelectContext(ctx, &users, reader.Rebind(`
		SELECT email FROM flow_users WHERE flow = ? ORDER BY email ASC
	`), flow)
	if err != nil {
		return nil, fmt.Errorf("failed to list flow users: %w", err)
	}
	return users, nil
}

// AddUser registers an address as a member of a flow. Adding an existing
// member is a no-op.
func (s *SQLUsers) AddUser(ctx context.Context, flow, email string) error {
	writer := s.pool.Writer()
	query := `INSERT INTO flow_users (flow, email) VALUES (?, ?) ON CONFLICT DO NOTHING`
	if _, err := writer.ExecContext(ctx, writer.Rebind(query), flow, email); err != nil {
		return fmt.Errorf("failed to add flow user: %w", err)
	}
	return nil
}

// MemoryUsers is an in-memory Users implementation for tests.
type MemoryUsers struct {
	members map[string][]string
}

var _ Users = (*MemoryUsers)(nil)

func NewMemoryUsers(members map[string][]string) *MemoryUsers {
	if members == nil {
		members = make(map[string][]string)
	}
	return &MemoryUsers{members: members}
}

func (m *MemoryUsers) ListUsers(_ context.Context, flow string) ([]string, error) {
	return m.members[flow], nil
}

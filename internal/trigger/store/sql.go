package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hookline/hookline/internal/db"
	"github.com/hookline/hookline/internal/db/dialect"
)

// SQLLedger stores delivery items in a relational table. The seq column is
// an auto-incrementing primary key, so one INSERT both records the item and
// assigns its position in the trigger's arrival order.
type SQLLedger struct {
	pool *db.Pool
}

var _ Ledger = (*SQLLedger)(nil)

// NewSQLLedger creates the ledger table if needed and returns the store.
func NewSQLLedger(pool *db.Pool) (*SQLLedger, error) {
	l := &SQLLedger{pool: pool}
	if err := l.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize delivery ledger schema: %w", err)
	}
	return l, nil
}

func (l *SQLLedger) initSchema() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS trigger_deliveries (
		seq %s,
		id TEXT NOT NULL,
		trigger_id TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trigger_deliveries_trigger_id ON trigger_deliveries(trigger_id);
	`, dialect.AutoIncrementPK(l.pool.DriverName()))

	_, err := l.pool.Writer().Exec(schema)
	return err
}

// Append inserts one delivery item. The storage engine assigns seq, so
// concurrent appends from any number of processes never lose an entry and
// never require a read-modify-write cycle.
func (l *SQLLedger) Append(ctx context.Context, triggerID string, item *Item) error {
	item.ID = uuid.New().String()
	item.TriggerID = triggerID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	seq, err := dialect.InsertReturningID(ctx, l.pool.Writer(), "seq", `
		INSERT INTO trigger_deliveries (id, trigger_id, status, created_at)
		VALUES (?, ?, ?, ?)
	`, item.ID, item.TriggerID, item.Status, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append delivery item: %w", err)
	}
	item.Seq = seq
	return nil
}

// List returns one page of the trigger's delivery history in arrival order
// along with the total item count. Page numbering starts at zero.
func (l *SQLLedger) List(ctx context.Context, triggerID string, page, size int) ([]*Item, int64, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}

	reader := l.pool.Reader()

	var total int64
	err := reader.GetContext(ctx, &total,
		reader.Rebind(`SELECT COUNT(*) FROM trigger_deliveries WHERE trigger_id = ?`), triggerID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count delivery items: %w", err)
	}

	items := []*Item{}
	err = reader.SelectContext(ctx, &items, reader.Rebind(`
		SELECT seq, id, trigger_id, status, created_at
		FROM trigger_deliveries
		WHERE trigger_id = ?
		ORDER BY seq ASC
		LIMIT ? OFFSET ?
	`), triggerID, size, page*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list delivery items: %w", err)
	}
	return items, total, nil
}

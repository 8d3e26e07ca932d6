package cache

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// SQLBackend stores units as rows of the snapshot_unit table.
type SQLBackend struct {
	db *sqlx.DB
}

func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

func (b *SQLBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *SQLBackend) Save(ctx context.Context, unit Unit, payload []byte) error {
	query := `INSERT INTO snapshot_unit (name, payload) VALUES (?, ?)
	ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = CURRENT_TIMESTAMP(6)`
	_, err := b.db.ExecContext(ctx, query, string(unit), payload)
	return err
}

func (b *SQLBackend) Load(ctx context.Context, unit Unit) ([]byte, error) {
	var payload []byte
	err := b.db.GetContext(ctx, &payload, `SELECT payload FROM snapshot_unit WHERE name = ?`, string(unit))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnitMissing
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

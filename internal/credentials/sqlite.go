package credentials

import (
	"context"
	"database/sql"
	"fmt"
	"workorder-invoicer/internal/components/chrono"

	_ "embed"
)

//go:embed schema.sql
var Schema string

// SqliteStore keeps credentials in a sqlite table, for deployments where the
// invoicer runs as a service and no editable .env is around.
type SqliteStore struct {
	db    *sql.DB
	clock chrono.API
}

// NewSqliteStore expects Schema to already be applied to db.
func NewSqliteStore(db *sql.DB, clock chrono.API) SqliteStore {
	return SqliteStore{db: db, clock: clock}
}

func (s SqliteStore) Load(ctx context.Context) (Set, error) {
	rows, err := s.db.QueryContext(ctx, "select key, value from credential")
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	defer rows.Close()

	out := Set{}
	for rows.Next() {
		var key, value string
		err = rows.Scan(&key, &value)
		if err != nil {
			return nil, fmt.Errorf("load credentials: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return out, nil
}

func (s SqliteStore) Update(ctx context.Context, updates map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update credentials: %w", err)
	}
	defer tx.Rollback()

	now := s.clock.Now().Unix()
	for key, value := range updates {
		_, err = tx.ExecContext(
			ctx,
			`insert into credential(key, value, updated_at) values (?, ?, ?)
			on conflict(key) do update set value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now,
		)
		if err != nil {
			return fmt.Errorf("update credentials: %s: %w", key, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("update credentials: %w", err)
	}
	return nil
}

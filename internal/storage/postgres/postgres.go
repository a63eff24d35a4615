// Package postgres implements storage.Backend on PostgreSQL via sqlx and
// lib/pq, modeled on the teacher's *_postgres.go store pattern: parameterized
// SQL, upsert-by-exec, one table per concern. Entities are stored as JSONB
// rows keyed by (kind, id); logs are an append-only table ordered by a
// monotonic sequence column.
package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/r3e-network/governance-core/internal/storage"
)

// Backend is a PostgreSQL-backed storage.Backend.
type Backend struct {
	db *sqlx.DB
}

// Open connects to the given DSN and returns a ready Backend. Callers are
// expected to have already applied migrations/ (golang-migrate) before
// first use.
func Open(ctx context.Context, dsn string, maxConns int) (*Backend, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	return &Backend{db: db}, nil
}

// execer is satisfied by both *sqlx.DB and *sqlx.Tx, letting Put/Append run
// either directly or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (b *Backend) Put(ctx context.Context, kind storage.EntityKind, id string, data []byte) error {
	return b.put(ctx, b.db, kind, id, data)
}

func (b *Backend) put(ctx context.Context, e execer, kind storage.EntityKind, id string, data []byte) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO governance_entities (kind, id, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (kind, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, string(kind), id, data)
	return err
}

func (b *Backend) Get(ctx context.Context, kind storage.EntityKind, id string) ([]byte, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, `
		SELECT data FROM governance_entities WHERE kind = $1 AND id = $2
	`, string(kind), id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *Backend) Scan(ctx context.Context, kind storage.EntityKind, filter storage.ScanFilter) ([][]byte, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, data FROM governance_entities WHERE kind = $1 ORDER BY id
	`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results [][]byte
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		if filter == nil || filter(id, data) {
			results = append(results, data)
		}
	}
	return results, rows.Err()
}

func (b *Backend) Append(ctx context.Context, log storage.LogName, record []byte) error {
	return b.appendLog(ctx, b.db, log, record)
}

func (b *Backend) appendLog(ctx context.Context, e execer, log storage.LogName, record []byte) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO governance_logs (log_name, record, created_at)
		VALUES ($1, $2, now())
	`, string(log), record)
	return err
}

func (b *Backend) ScanLog(ctx context.Context, log storage.LogName) ([][]byte, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT record FROM governance_logs WHERE log_name = $1 ORDER BY seq ASC
	`, string(log))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records [][]byte
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (b *Backend) Tx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	sqlTx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	pgTx := &txHandle{backend: b, tx: sqlTx}
	if err := fn(ctx, pgTx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}

func (b *Backend) Close(ctx context.Context) error {
	return b.db.Close()
}

type txHandle struct {
	backend *Backend
	tx      *sqlx.Tx
}

func (t *txHandle) Put(ctx context.Context, kind storage.EntityKind, id string, data []byte) error {
	return t.backend.put(ctx, t.tx, kind, id, data)
}

func (t *txHandle) Append(ctx context.Context, log storage.LogName, record []byte) error {
	return t.backend.appendLog(ctx, t.tx, log, record)
}

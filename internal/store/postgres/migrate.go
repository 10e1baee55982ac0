package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CurrentSchemaVersion is the version a fresh store is created at.
const CurrentSchemaVersion = 11

// migration carries one deterministic schema step. Steps are applied
// strictly in order, each inside its own transaction; a failing step
// aborts store initialization with the schema left at the last
// committed version.
type migration struct {
	From  int
	To    int
	Apply func(ctx context.Context, tx *sql.Tx) error
}

func execAll(ctx context.Context, tx *sql.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// migrations is the full upgrade chain. Versions 1-5 predate channel
// tracking; 9->10 carried no schema change in the original release and
// is kept as an index-only step so the chain stays contiguous.
var migrations = []migration{
	{From: 1, To: 2, Apply: func(ctx context.Context, tx *sql.Tx) error {
		return execAll(ctx, tx, `
			CREATE TABLE IF NOT EXISTS item (
				id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
				name TEXT NOT NULL,
				raw_price BIGINT NOT NULL DEFAULT 0,
				sale_price BIGINT NOT NULL DEFAULT 0
			)`)
	}},
	{From: 2, To: 3, Apply: func(ctx context.Context, tx *sql.Tx) error {
		return execAll(ctx, tx,
			`ALTER TABLE item ADD COLUMN IF NOT EXISTS photo_ref TEXT NOT NULL DEFAULT ''`)
	}},
	{From: 3, To: 4, Apply: func(ctx context.Context, tx *sql.Tx) error {
		return execAll(ctx, tx, `
			CREATE TABLE IF NOT EXISTS sale (
				id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
				item_id BIGINT NOT NULL,
				quantity INT NOT NULL,
				sale_price BIGINT NOT NULL,
				raw_price BIGINT NOT NULL,
				timestamp_ms BIGINT NOT NULL
			)`)
	}},
	{From: 4, To: 5, Apply: func(ctx context.Context, tx *sql.Tx) error {
		return execAll(ctx, tx,
			`ALTER TABLE sale ADD COLUMN IF NOT EXISTS sales_channel TEXT NOT NULL DEFAULT ''`)
	}},
	{From: 5, To: 6, Apply: func(ctx context.Context, tx *sql.Tx) error {
		return execAll(ctx, tx,
			`CREATE TABLE IF NOT EXISTS sales_channel (
				id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
				name TEXT NOT NULL
			)`,
			`ALTER TABLE sale ADD COLUMN IF NOT EXISTS profit BIGINT NOT NULL DEFAULT 0`,
			`ALTER TABLE sale ADD COLUMN IF NOT EXISTS item_name TEXT NOT NULL DEFAULT ''`)
	}},
	{From: 6, To: 7, Apply: func(ctx context.Context, tx *sql.Tx) error {
		return execAll(ctx, tx, `
			CREATE TABLE IF NOT EXISTS expense (
				id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
				amount DOUBLE PRECISION NOT NULL,
				timestamp_ms BIGINT NOT NULL
			)`)
	}},
	{From: 7, To: 8, Apply: func(ctx context.Context, tx *sql.Tx) error {
		return execAll(ctx, tx,
			`ALTER TABLE sale ADD COLUMN IF NOT EXISTS cancelled SMALLINT NOT NULL DEFAULT 0`,
			`ALTER TABLE sales_channel ADD COLUMN IF NOT EXISTS discount INT NOT NULL DEFAULT 0`,
			`ALTER TABLE sales_channel ADD COLUMN IF NOT EXISTS deleted SMALLINT NOT NULL DEFAULT 0`)
	}},
	{From: 8, To: 9, Apply: func(ctx context.Context, tx *sql.Tx) error {
		// Legacy cart-assembly columns. Nothing writes them anymore,
		// but stores upgraded from old installs still carry them.
		return execAll(ctx, tx,
			`ALTER TABLE item ADD COLUMN IF NOT EXISTS is_selected SMALLINT NOT NULL DEFAULT 0`,
			`ALTER TABLE item ADD COLUMN IF NOT EXISTS quantity INT NOT NULL DEFAULT 1`)
	}},
	{From: 9, To: 10, Apply: func(ctx context.Context, tx *sql.Tx) error {
		return execAll(ctx, tx,
			`CREATE INDEX IF NOT EXISTS idx_sale_timestamp ON sale (timestamp_ms)`)
	}},
	{From: 10, To: 11, Apply: func(ctx context.Context, tx *sql.Tx) error {
		// Structural change: rebuild sale with order_id. Historic rows
		// backfill to order_id 0, meaning pre-order-tracking legacy sale.
		if err := execAll(ctx, tx,
			`CREATE TABLE sale_new (
				id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
				order_id BIGINT NOT NULL,
				item_id BIGINT NOT NULL,
				item_name TEXT NOT NULL DEFAULT '',
				quantity INT NOT NULL,
				sale_price BIGINT NOT NULL,
				raw_price BIGINT NOT NULL,
				profit BIGINT NOT NULL DEFAULT 0,
				sales_channel TEXT NOT NULL DEFAULT '',
				timestamp_ms BIGINT NOT NULL,
				cancelled SMALLINT NOT NULL DEFAULT 0
			)`,
			`INSERT INTO sale_new (id, order_id, item_id, item_name, quantity, sale_price, raw_price, profit, sales_channel, timestamp_ms, cancelled)
				OVERRIDING SYSTEM VALUE
				SELECT id, 0, item_id, item_name, quantity, sale_price, raw_price, profit, sales_channel, timestamp_ms, cancelled
				FROM sale`,
			`DROP TABLE sale`,
			`ALTER TABLE sale_new RENAME TO sale`,
			`CREATE INDEX IF NOT EXISTS idx_sale_timestamp ON sale (timestamp_ms)`,
			`CREATE INDEX IF NOT EXISTS idx_sale_order ON sale (order_id)`,
		); err != nil {
			return err
		}
		// Re-align the identity sequence with the copied rows.
		_, err := tx.ExecContext(ctx,
			`SELECT setval(pg_get_serial_sequence('sale', 'id'), COALESCE((SELECT MAX(id) FROM sale), 0) + 1, false)`)
		return err
	}},
}

// Migrate brings the store schema to CurrentSchemaVersion. A store at
// an unknown or future version is an unrecoverable configuration error.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INT NOT NULL
		)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_version`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		version = 1
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (1)`); err != nil {
			return fmt.Errorf("seed schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	}

	if version > CurrentSchemaVersion {
		return fmt.Errorf("store schema version %d is newer than supported version %d", version, CurrentSchemaVersion)
	}

	for _, step := range migrations {
		if step.From < version {
			continue
		}
		if step.From != version {
			return fmt.Errorf("migration chain broken: at version %d, next step is %d->%d", version, step.From, step.To)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d->%d: %w", step.From, step.To, err)
		}
		if err := step.Apply(ctx, tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d->%d: %w", step.From, step.To, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE schema_version SET version = $1`, step.To); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d->%d: %w", step.From, step.To, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d->%d: %w", step.From, step.To, err)
		}
		version = step.To
	}

	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"salesledger/internal/domain"
	"salesledger/internal/store"
)

// orderLockKey is the advisory-lock key serializing order-identifier
// assignment with the matching batch insert.
const orderLockKey = 7411

type Store struct {
	db *sql.DB
}

var (
	openOnce  sync.Once
	openStore *Store
	openErr   error
)

// Open returns the process-wide store handle, constructing it on the
// first call. The ledger assumes a single local writer; handing out one
// shared handle keeps that guarantee explicit instead of relying on a
// global.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	openOnce.Do(func() {
		openStore, openErr = newStore(ctx, databaseURL)
	})
	return openStore, openErr
}

func newStore(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InsertItem(ctx context.Context, item domain.Item) (int64, error) {
	if strings.TrimSpace(item.Name) == "" || item.RawPrice < 0 || item.SalePrice < 0 {
		return 0, store.ErrInvalidInput
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO item (name, raw_price, sale_price, photo_ref)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, item.Name, item.RawPrice, item.SalePrice, item.PhotoRef).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) UpdateItem(ctx context.Context, item domain.Item) error {
	if item.ID < 1 || strings.TrimSpace(item.Name) == "" || item.RawPrice < 0 || item.SalePrice < 0 {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE item
		SET name = $2, raw_price = $3, sale_price = $4, photo_ref = $5
		WHERE id = $1
	`, item.ID, item.Name, item.RawPrice, item.SalePrice, item.PhotoRef)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, itemID int64) (*domain.Item, error) {
	var item domain.Item
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, raw_price, sale_price, photo_ref
		FROM item
		WHERE id = $1
	`, itemID).Scan(&item.ID, &item.Name, &item.RawPrice, &item.SalePrice, &item.PhotoRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, raw_price, sale_price, photo_ref
		FROM item
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 64)
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.RawPrice, &item.SalePrice, &item.PhotoRef); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertChannel(ctx context.Context, channel domain.SalesChannel) (int64, error) {
	if strings.TrimSpace(channel.Name) == "" {
		return 0, store.ErrInvalidInput
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sales_channel (name, discount, deleted)
		VALUES ($1,$2,0)
		RETURNING id
	`, channel.Name, channel.Discount).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) UpdateChannel(ctx context.Context, channelID int64, name string, discount int) error {
	if channelID < 1 || strings.TrimSpace(name) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sales_channel
		SET name = $2, discount = $3
		WHERE id = $1
	`, channelID, name, discount)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SoftDeleteChannel(ctx context.Context, channelID int64) error {
	// Re-deleting is a no-op, not an error: the row exists either way.
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sales_channel WHERE id = $1)`, channelID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE sales_channel SET deleted = 1 WHERE id = $1`, channelID)
	return err
}

func (s *Store) GetChannel(ctx context.Context, channelID int64) (*domain.SalesChannel, error) {
	var channel domain.SalesChannel
	var deleted int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, discount, deleted
		FROM sales_channel
		WHERE id = $1
	`, channelID).Scan(&channel.ID, &channel.Name, &channel.Discount, &deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	channel.Status = channelStatus(deleted)
	return &channel, nil
}

func (s *Store) ListChannels(ctx context.Context, includeDeleted bool) ([]domain.SalesChannel, error) {
	query := `
		SELECT id, name, discount, deleted
		FROM sales_channel
	`
	if !includeDeleted {
		query += ` WHERE deleted = 0`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels := make([]domain.SalesChannel, 0, 8)
	for rows.Next() {
		var channel domain.SalesChannel
		var deleted int
		if err := rows.Scan(&channel.ID, &channel.Name, &channel.Discount, &deleted); err != nil {
			return nil, err
		}
		channel.Status = channelStatus(deleted)
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return channels, nil
}

// CreateOrder assigns order id = MAX(order_id)+1 and inserts every line
// under it in one transaction. The advisory lock serializes concurrent
// checkouts so two orders never share an identifier and no gap appears.
func (s *Store) CreateOrder(ctx context.Context, lines []domain.Sale) (int64, error) {
	if len(lines) == 0 {
		return 0, store.ErrEmptyOrder
	}
	for _, line := range lines {
		if line.ItemID < 1 || line.Quantity < 1 {
			return 0, store.ErrInvalidInput
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, orderLockKey); err != nil {
		return 0, err
	}

	var lastOrderID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_id), 0) FROM sale`).Scan(&lastOrderID); err != nil {
		return 0, err
	}
	orderID := lastOrderID + 1

	for _, line := range lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale (order_id, item_id, item_name, quantity, sale_price, raw_price, profit, sales_channel, timestamp_ms, cancelled)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,0)
		`, orderID, line.ItemID, line.ItemName, line.Quantity, line.SalePrice, line.RawPrice, line.Profit, line.Channel, line.TimestampMS)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return orderID, nil
}

func (s *Store) SalesBetween(ctx context.Context, startMS, endMS int64, includeCancelled bool) ([]domain.Sale, error) {
	query := `
		SELECT id, order_id, item_id, item_name, quantity, sale_price, raw_price, profit, sales_channel, timestamp_ms, cancelled
		FROM sale
		WHERE timestamp_ms BETWEEN $1 AND $2
	`
	if !includeCancelled {
		query += ` AND cancelled = 0`
	}
	query += ` ORDER BY order_id DESC, id`

	rows, err := s.db.QueryContext(ctx, query, startMS, endMS)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		var sale domain.Sale
		var cancelled int
		if err := rows.Scan(&sale.ID, &sale.OrderID, &sale.ItemID, &sale.ItemName, &sale.Quantity,
			&sale.SalePrice, &sale.RawPrice, &sale.Profit, &sale.Channel, &sale.TimestampMS, &cancelled); err != nil {
			return nil, err
		}
		sale.Status = saleStatus(cancelled)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) CancelSale(ctx context.Context, saleID int64) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sale WHERE id = $1)`, saleID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}

	_, err = s.db.ExecContext(ctx, `UPDATE sale SET cancelled = 1 WHERE id = $1`, saleID)
	return err
}

func (s *Store) CancelOrder(ctx context.Context, orderID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sale SET cancelled = 1 WHERE order_id = $1`, orderID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish "no such order" from "all lines already cancelled";
		// the latter is an idempotent success.
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM sale WHERE order_id = $1)`, orderID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return store.ErrNotFound
		}
	}
	return nil
}

func (s *Store) LastOrderID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(order_id), 0) FROM sale`).Scan(&id)
	return id, err
}

func (s *Store) LastSaleID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM sale`).Scan(&id)
	return id, err
}

func (s *Store) InsertExpense(ctx context.Context, expense domain.Expense) (int64, error) {
	if expense.Amount <= 0 {
		return 0, store.ErrInvalidInput
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO expense (amount, timestamp_ms)
		VALUES ($1,$2)
		RETURNING id
	`, expense.Amount, expense.TimestampMS).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) ExpensesBetween(ctx context.Context, startMS, endMS int64) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, timestamp_ms
		FROM expense
		WHERE timestamp_ms BETWEEN $1 AND $2
		ORDER BY timestamp_ms
	`, startMS, endMS)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 16)
	for rows.Next() {
		var expense domain.Expense
		if err := rows.Scan(&expense.ID, &expense.Amount, &expense.TimestampMS); err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) TotalExpenseBetween(ctx context.Context, startMS, endMS int64) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM expense
		WHERE timestamp_ms BETWEEN $1 AND $2
	`, startMS, endMS).Scan(&total)
	return total, err
}

func channelStatus(deleted int) domain.ChannelStatus {
	if deleted != 0 {
		return domain.ChannelDeleted
	}
	return domain.ChannelActive
}

func saleStatus(cancelled int) domain.SaleStatus {
	if cancelled != 0 {
		return domain.SaleCancelled
	}
	return domain.SaleRecorded
}

package store

import (
	"context"
	"errors"

	"salesledger/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyOrder   = errors.New("order has no lines")
)

// Repository is the typed access layer over the four ledger record
// kinds. One implementation talks to postgres, one is in-memory for
// tests and dev mode. All identifiers are store-assigned, monotonically
// increasing integers.
type Repository interface {
	InsertItem(ctx context.Context, item domain.Item) (int64, error)
	UpdateItem(ctx context.Context, item domain.Item) error
	GetItem(ctx context.Context, itemID int64) (*domain.Item, error)
	ListItems(ctx context.Context) ([]domain.Item, error)

	InsertChannel(ctx context.Context, channel domain.SalesChannel) (int64, error)
	// UpdateChannel overwrites name and discount by identifier.
	UpdateChannel(ctx context.Context, channelID int64, name string, discount int) error
	// SoftDeleteChannel flips the visibility flag; re-deleting an
	// already-deleted channel is a no-op.
	SoftDeleteChannel(ctx context.Context, channelID int64) error
	GetChannel(ctx context.Context, channelID int64) (*domain.SalesChannel, error)
	// ListChannels returns active channels only, or every row ever
	// created when includeDeleted is set. The latter is what discount
	// resolution for historic sales must use.
	ListChannels(ctx context.Context, includeDeleted bool) ([]domain.SalesChannel, error)

	// CreateOrder assigns the next sequential order identifier and
	// inserts every line in one transaction. Either all lines become
	// visible or none do; no reader may observe a partial order.
	CreateOrder(ctx context.Context, lines []domain.Sale) (int64, error)
	// SalesBetween returns sales with timestamp in [startMS, endMS],
	// newest order first.
	SalesBetween(ctx context.Context, startMS, endMS int64, includeCancelled bool) ([]domain.Sale, error)
	CancelSale(ctx context.Context, saleID int64) error
	CancelOrder(ctx context.Context, orderID int64) error
	LastOrderID(ctx context.Context) (int64, error)
	LastSaleID(ctx context.Context) (int64, error)

	InsertExpense(ctx context.Context, expense domain.Expense) (int64, error)
	ExpensesBetween(ctx context.Context, startMS, endMS int64) ([]domain.Expense, error)
	TotalExpenseBetween(ctx context.Context, startMS, endMS int64) (float64, error)
}

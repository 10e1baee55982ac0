package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"salesledger/internal/domain"
	"salesledger/internal/store"
)

// Store is an in-memory Repository used by unit tests and dev mode.
// Identifier assignment mirrors the durable store: sale and order ids
// are monotonically increasing and never reused.
type Store struct {
	mu            sync.RWMutex
	itemsByID     map[int64]domain.Item
	channelsByID  map[int64]domain.SalesChannel
	salesByID     map[int64]domain.Sale
	expensesByID  map[int64]domain.Expense
	nextItemID    int64
	nextChannelID int64
	nextSaleID    int64
	nextExpenseID int64

	// failOrderAfter, when >= 0, makes CreateOrder fail after inserting
	// that many lines. Used to prove batch atomicity.
	failOrderAfter int
	failOrderErr   error
}

func New() *Store {
	return &Store{
		itemsByID:      map[int64]domain.Item{},
		channelsByID:   map[int64]domain.SalesChannel{},
		salesByID:      map[int64]domain.Sale{},
		expensesByID:   map[int64]domain.Expense{},
		failOrderAfter: -1,
	}
}

// NewSeeded returns a store pre-populated with a small menu and two
// channels, enough to exercise every flow in dev mode.
func NewSeeded() *Store {
	s := New()
	ctx := context.Background()
	for _, item := range []domain.Item{
		{Name: "Burger", RawPrice: 50, SalePrice: 150},
		{Name: "Fries", RawPrice: 20, SalePrice: 60},
		{Name: "Iced Tea", RawPrice: 10, SalePrice: 40},
	} {
		_, _ = s.InsertItem(ctx, item)
	}
	_, _ = s.InsertChannel(ctx, domain.SalesChannel{Name: "Walk-in", Discount: 0})
	_, _ = s.InsertChannel(ctx, domain.SalesChannel{Name: "Delivery", Discount: 20})
	return s
}

// FailNextOrderInsert arranges for the next CreateOrder call to fail
// with err after persisting afterLines lines mid-batch.
func (s *Store) FailNextOrderInsert(afterLines int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOrderAfter = afterLines
	s.failOrderErr = err
}

func (s *Store) InsertItem(_ context.Context, item domain.Item) (int64, error) {
	if strings.TrimSpace(item.Name) == "" || item.RawPrice < 0 || item.SalePrice < 0 {
		return 0, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextItemID++
	item.ID = s.nextItemID
	s.itemsByID[item.ID] = item
	return item.ID, nil
}

func (s *Store) UpdateItem(_ context.Context, item domain.Item) error {
	if item.ID < 1 || strings.TrimSpace(item.Name) == "" || item.RawPrice < 0 || item.SalePrice < 0 {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.itemsByID[item.ID]; !ok {
		return store.ErrNotFound
	}
	s.itemsByID[item.ID] = item
	return nil
}

func (s *Store) GetItem(_ context.Context, itemID int64) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.itemsByID[itemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (s *Store) ListItems(_ context.Context) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Item, 0, len(s.itemsByID))
	for _, item := range s.itemsByID {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *Store) InsertChannel(_ context.Context, channel domain.SalesChannel) (int64, error) {
	if strings.TrimSpace(channel.Name) == "" {
		return 0, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextChannelID++
	channel.ID = s.nextChannelID
	channel.Status = domain.ChannelActive
	s.channelsByID[channel.ID] = channel
	return channel.ID, nil
}

func (s *Store) UpdateChannel(_ context.Context, channelID int64, name string, discount int) error {
	if channelID < 1 || strings.TrimSpace(name) == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	channel, ok := s.channelsByID[channelID]
	if !ok {
		return store.ErrNotFound
	}
	channel.Name = name
	channel.Discount = discount
	s.channelsByID[channelID] = channel
	return nil
}

func (s *Store) SoftDeleteChannel(_ context.Context, channelID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, ok := s.channelsByID[channelID]
	if !ok {
		return store.ErrNotFound
	}
	channel.Status = domain.ChannelDeleted
	s.channelsByID[channelID] = channel
	return nil
}

func (s *Store) GetChannel(_ context.Context, channelID int64) (*domain.SalesChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	channel, ok := s.channelsByID[channelID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &channel, nil
}

func (s *Store) ListChannels(_ context.Context, includeDeleted bool) ([]domain.SalesChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	channels := make([]domain.SalesChannel, 0, len(s.channelsByID))
	for _, channel := range s.channelsByID {
		if !includeDeleted && !channel.Active() {
			continue
		}
		channels = append(channels, channel)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].ID < channels[j].ID })
	return channels, nil
}

func (s *Store) CreateOrder(_ context.Context, lines []domain.Sale) (int64, error) {
	if len(lines) == 0 {
		return 0, store.ErrEmptyOrder
	}
	for _, line := range lines {
		if line.ItemID < 1 || line.Quantity < 1 {
			return 0, store.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var lastOrderID int64
	for _, sale := range s.salesByID {
		if sale.OrderID > lastOrderID {
			lastOrderID = sale.OrderID
		}
	}
	orderID := lastOrderID + 1

	inserted := make([]int64, 0, len(lines))
	rollback := func() {
		for _, id := range inserted {
			delete(s.salesByID, id)
		}
	}

	for i, line := range lines {
		if s.failOrderAfter >= 0 && i == s.failOrderAfter {
			err := s.failOrderErr
			s.failOrderAfter = -1
			s.failOrderErr = nil
			rollback()
			return 0, err
		}

		s.nextSaleID++
		line.ID = s.nextSaleID
		line.OrderID = orderID
		line.Status = domain.SaleRecorded
		s.salesByID[line.ID] = line
		inserted = append(inserted, line.ID)
	}
	s.failOrderAfter = -1
	s.failOrderErr = nil

	return orderID, nil
}

func (s *Store) SalesBetween(_ context.Context, startMS, endMS int64, includeCancelled bool) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		if sale.TimestampMS < startMS || sale.TimestampMS > endMS {
			continue
		}
		if !includeCancelled && sale.Cancelled() {
			continue
		}
		sales = append(sales, sale)
	}
	sort.Slice(sales, func(i, j int) bool {
		if sales[i].OrderID != sales[j].OrderID {
			return sales[i].OrderID > sales[j].OrderID
		}
		return sales[i].ID < sales[j].ID
	})
	return sales, nil
}

func (s *Store) CancelSale(_ context.Context, saleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.salesByID[saleID]
	if !ok {
		return store.ErrNotFound
	}
	sale.Status = domain.SaleCancelled
	s.salesByID[saleID] = sale
	return nil
}

func (s *Store) CancelOrder(_ context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for id, sale := range s.salesByID {
		if sale.OrderID != orderID {
			continue
		}
		found = true
		sale.Status = domain.SaleCancelled
		s.salesByID[id] = sale
	}
	if !found {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) LastOrderID(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last int64
	for _, sale := range s.salesByID {
		if sale.OrderID > last {
			last = sale.OrderID
		}
	}
	return last, nil
}

func (s *Store) LastSaleID(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Derive from stored rows, not the id counter: a rolled-back order
	// consumes counter values that never became rows.
	var last int64
	for id := range s.salesByID {
		if id > last {
			last = id
		}
	}
	return last, nil
}

func (s *Store) InsertExpense(_ context.Context, expense domain.Expense) (int64, error) {
	if expense.Amount <= 0 {
		return 0, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextExpenseID++
	expense.ID = s.nextExpenseID
	s.expensesByID[expense.ID] = expense
	return expense.ID, nil
}

func (s *Store) ExpensesBetween(_ context.Context, startMS, endMS int64) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, 0, len(s.expensesByID))
	for _, expense := range s.expensesByID {
		if expense.TimestampMS < startMS || expense.TimestampMS > endMS {
			continue
		}
		expenses = append(expenses, expense)
	}
	sort.Slice(expenses, func(i, j int) bool { return expenses[i].TimestampMS < expenses[j].TimestampMS })
	return expenses, nil
}

func (s *Store) TotalExpenseBetween(_ context.Context, startMS, endMS int64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0.0
	for _, expense := range s.expensesByID {
		if expense.TimestampMS < startMS || expense.TimestampMS > endMS {
			continue
		}
		total += expense.Amount
	}
	return total, nil
}

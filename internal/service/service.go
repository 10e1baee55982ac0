package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salesledger/internal/cache"
	"salesledger/internal/domain"
	"salesledger/internal/store"
)

const (
	cacheKeyActiveChannels = "channels:active"
	cacheKeyAllChannels    = "channels:all"

	channelCacheTTL = 5 * time.Minute
)

type Service struct {
	repo     store.Repository
	channels cache.ChannelCache
}

func New(repo store.Repository, channels cache.ChannelCache) *Service {
	if channels == nil {
		channels = cache.NoopChannelCache{}
	}
	return &Service{repo: repo, channels: channels}
}

func (s *Service) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (domain.Item, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Item{}, fmt.Errorf("%w: item name is required", store.ErrInvalidInput)
	}
	if req.RawPrice < 0 || req.SalePrice < 0 {
		return domain.Item{}, fmt.Errorf("%w: prices must not be negative", store.ErrInvalidInput)
	}

	item := domain.Item{
		Name:      req.Name,
		RawPrice:  req.RawPrice,
		SalePrice: req.SalePrice,
		PhotoRef:  strings.TrimSpace(req.PhotoRef),
	}
	id, err := s.repo.InsertItem(ctx, item)
	if err != nil {
		return domain.Item{}, err
	}
	item.ID = id
	return item, nil
}

func (s *Service) UpdateItem(ctx context.Context, id int64, req domain.ItemCreateRequest) (domain.Item, error) {
	if id < 1 {
		return domain.Item{}, store.ErrInvalidInput
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.RawPrice < 0 || req.SalePrice < 0 {
		return domain.Item{}, store.ErrInvalidInput
	}

	updated := domain.Item{
		ID:        id,
		Name:      req.Name,
		RawPrice:  req.RawPrice,
		SalePrice: req.SalePrice,
		PhotoRef:  strings.TrimSpace(req.PhotoRef),
	}
	if err := s.repo.UpdateItem(ctx, updated); err != nil {
		return domain.Item{}, err
	}
	return updated, nil
}

func (s *Service) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.repo.ListItems(ctx)
}

func (s *Service) CreateChannel(ctx context.Context, req domain.ChannelCreateRequest) (domain.SalesChannel, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.SalesChannel{}, fmt.Errorf("%w: channel name is required", store.ErrInvalidInput)
	}
	if req.Discount < 0 || req.Discount > 100 {
		return domain.SalesChannel{}, fmt.Errorf("%w: discount must be between 0 and 100", store.ErrInvalidInput)
	}

	channel := domain.SalesChannel{
		Name:     req.Name,
		Discount: req.Discount,
		Status:   domain.ChannelActive,
	}
	id, err := s.repo.InsertChannel(ctx, channel)
	if err != nil {
		return domain.SalesChannel{}, err
	}
	channel.ID = id
	s.invalidateChannels(ctx)
	return channel, nil
}

func (s *Service) UpdateChannel(ctx context.Context, id int64, req domain.ChannelUpdateRequest) (domain.SalesChannel, error) {
	if id < 1 {
		return domain.SalesChannel{}, store.ErrInvalidInput
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Discount < 0 || req.Discount > 100 {
		return domain.SalesChannel{}, store.ErrInvalidInput
	}

	if err := s.repo.UpdateChannel(ctx, id, req.Name, req.Discount); err != nil {
		return domain.SalesChannel{}, err
	}
	s.invalidateChannels(ctx)
	saved, err := s.repo.GetChannel(ctx, id)
	if err != nil {
		return domain.SalesChannel{}, err
	}
	return *saved, nil
}

// DeleteChannel flags the channel instead of removing the row so past
// sales keep resolving their discount. Deleting an already deleted
// channel is a no-op.
func (s *Service) DeleteChannel(ctx context.Context, id int64) error {
	if id < 1 {
		return store.ErrInvalidInput
	}
	if err := s.repo.SoftDeleteChannel(ctx, id); err != nil {
		return err
	}
	s.invalidateChannels(ctx)
	return nil
}

// ActiveChannels lists channels offered at checkout, soft-deleted rows
// excluded. Served from cache when possible.
func (s *Service) ActiveChannels(ctx context.Context) ([]domain.SalesChannel, error) {
	return s.channelList(ctx, cacheKeyActiveChannels, false)
}

// AllChannels lists every channel row ever created, soft-deleted
// included, the set discount resolution for historic sales runs over.
func (s *Service) AllChannels(ctx context.Context) ([]domain.SalesChannel, error) {
	return s.channelList(ctx, cacheKeyAllChannels, true)
}

func (s *Service) channelList(ctx context.Context, key string, includeDeleted bool) ([]domain.SalesChannel, error) {
	if cached, ok, err := s.channels.Get(ctx, key); err != nil {
		log.Printf("[service] WARN: channel cache read failed key=%s: %v", key, err)
	} else if ok {
		return cached, nil
	}

	channels, err := s.repo.ListChannels(ctx, includeDeleted)
	if err != nil {
		return nil, err
	}
	if err := s.channels.Set(ctx, key, channels, channelCacheTTL); err != nil {
		log.Printf("[service] WARN: channel cache write failed key=%s: %v", key, err)
	}
	return channels, nil
}

func (s *Service) invalidateChannels(ctx context.Context) {
	if err := s.channels.Invalidate(ctx, cacheKeyActiveChannels, cacheKeyAllChannels); err != nil {
		log.Printf("[service] WARN: channel cache invalidation failed: %v", err)
	}
}

// Checkout records one order. Every cart line becomes a sale row
// sharing the next order identifier and a single capture timestamp,
// with the item's name and prices copied in so later item edits do not
// rewrite history. The write is atomic: either all lines land or none.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	lines := normalizeCart(req.Lines)
	if len(lines) == 0 {
		return domain.CheckoutResponse{}, store.ErrEmptyOrder
	}
	if req.ChannelID < 1 {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: channel id is required", store.ErrInvalidInput)
	}

	channel, err := s.repo.GetChannel(ctx, req.ChannelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: unknown channel %d", store.ErrInvalidInput, req.ChannelID)
		}
		return domain.CheckoutResponse{}, err
	}
	if !channel.Active() {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: channel %q is deleted", store.ErrInvalidInput, channel.Name)
	}

	now := time.Now().UnixMilli()
	sales := make([]domain.Sale, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		item, err := s.repo.GetItem(ctx, line.ItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.CheckoutResponse{}, fmt.Errorf("%w: unknown item %d", store.ErrInvalidInput, line.ItemID)
			}
			return domain.CheckoutResponse{}, err
		}

		sales = append(sales, domain.Sale{
			ItemID:      item.ID,
			ItemName:    item.Name,
			Quantity:    line.Quantity,
			SalePrice:   item.SalePrice,
			RawPrice:    item.RawPrice,
			Profit:      domain.LineProfit(item.SalePrice, item.RawPrice, line.Quantity, channel.Discount),
			Channel:     channel.Name,
			TimestampMS: now,
			Status:      domain.SaleRecorded,
		})
		total = total.Add(domain.DiscountedTotal(item.SalePrice, line.Quantity, channel.Discount))
	}

	orderID, err := s.repo.CreateOrder(ctx, sales)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	return domain.CheckoutResponse{
		OrderID:   orderID,
		LineCount: len(sales),
		Channel:   channel.Name,
		Total:     domain.RoundToUnit(total),
	}, nil
}

// normalizeCart merges duplicate item lines and drops non-positive
// quantities.
func normalizeCart(lines []domain.CartLine) []domain.CartLine {
	qtyByItem := make(map[int64]int, len(lines))
	order := make([]int64, 0, len(lines))
	for _, line := range lines {
		if line.ItemID < 1 || line.Quantity < 1 {
			continue
		}
		if _, seen := qtyByItem[line.ItemID]; !seen {
			order = append(order, line.ItemID)
		}
		qtyByItem[line.ItemID] += line.Quantity
	}

	merged := make([]domain.CartLine, 0, len(order))
	for _, itemID := range order {
		merged = append(merged, domain.CartLine{ItemID: itemID, Quantity: qtyByItem[itemID]})
	}
	return merged
}

// CancelSale flags a single sale row. Cancelling an already cancelled
// sale succeeds without effect.
func (s *Service) CancelSale(ctx context.Context, saleID int64) error {
	if saleID < 1 {
		return store.ErrInvalidInput
	}
	return s.repo.CancelSale(ctx, saleID)
}

// CancelOrder flags every sale row of the order.
func (s *Service) CancelOrder(ctx context.Context, orderID int64) error {
	if orderID < 1 {
		return store.ErrInvalidInput
	}
	return s.repo.CancelOrder(ctx, orderID)
}

// ListOrders groups the sales of an inclusive date range by order
// identifier. The range widens to full local calendar days. Cancelled
// sales are excluded, and each order total applies the discount of the
// channel the order was recorded under.
func (s *Service) ListOrders(ctx context.Context, start, end time.Time) (domain.OrderListResponse, error) {
	startMS, endMS := domain.DayWindow(start, end)
	if startMS > endMS {
		return domain.OrderListResponse{}, fmt.Errorf("%w: start after end", store.ErrInvalidInput)
	}

	sales, err := s.repo.SalesBetween(ctx, startMS, endMS, false)
	if err != nil {
		return domain.OrderListResponse{}, err
	}
	channels, err := s.AllChannels(ctx)
	if err != nil {
		return domain.OrderListResponse{}, err
	}

	byOrder := make(map[int64]*domain.Order)
	for _, sale := range sales {
		order, exists := byOrder[sale.OrderID]
		if !exists {
			order = &domain.Order{
				OrderID:  sale.OrderID,
				Channel:  sale.Channel,
				Discount: domain.ResolveDiscount(channels, sale.Channel),
			}
			byOrder[sale.OrderID] = order
		}
		order.Lines = append(order.Lines, sale)
	}

	orders := make([]domain.Order, 0, len(byOrder))
	for _, order := range byOrder {
		total := decimal.Zero
		for _, sale := range order.Lines {
			total = total.Add(domain.DiscountedTotal(sale.SalePrice, sale.Quantity, order.Discount))
		}
		order.Total = domain.RoundToUnit(total)
		orders = append(orders, *order)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderID < orders[j].OrderID })

	return domain.OrderListResponse{Orders: orders}, nil
}

func (s *Service) AddExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	if req.Amount <= 0 {
		return domain.Expense{}, fmt.Errorf("%w: expense amount must be positive", store.ErrInvalidInput)
	}

	timestamp := req.TimestampMS
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}
	expense := domain.Expense{
		Amount:      req.Amount,
		TimestampMS: timestamp,
	}
	id, err := s.repo.InsertExpense(ctx, expense)
	if err != nil {
		return domain.Expense{}, err
	}
	expense.ID = id
	return expense, nil
}

func (s *Service) ListExpenses(ctx context.Context, start, end time.Time) ([]domain.Expense, error) {
	startMS, endMS := domain.DayWindow(start, end)
	return s.repo.ExpensesBetween(ctx, startMS, endMS)
}

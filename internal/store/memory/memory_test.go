package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesledger/internal/domain"
)

func saleLine(itemID int64, quantity int) domain.Sale {
	return domain.Sale{
		ItemID:      itemID,
		ItemName:    "Burger",
		Quantity:    quantity,
		SalePrice:   150,
		RawPrice:    50,
		Profit:      int64(quantity) * 100,
		Channel:     "Walk-in",
		TimestampMS: time.Now().UnixMilli(),
	}
}

// LastSaleID must reflect stored rows, like MAX(id) in the durable
// store, even after a rolled-back batch consumed id counter values.
func TestLastSaleIDIgnoresRolledBackInserts(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	boom := errors.New("boom")
	s.FailNextOrderInsert(1, boom)
	_, err := s.CreateOrder(ctx, []domain.Sale{saleLine(1, 1), saleLine(2, 2)})
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}

	last, err := s.LastSaleID(ctx)
	if err != nil {
		t.Fatalf("last sale id: %v", err)
	}
	if last != 0 {
		t.Fatalf("expected last sale id 0 after rollback, got %d", last)
	}

	if _, err := s.CreateOrder(ctx, []domain.Sale{saleLine(1, 1)}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	sales, err := s.SalesBetween(ctx, 0, time.Now().UnixMilli(), false)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected 1 stored sale, got %d", len(sales))
	}

	last, err = s.LastSaleID(ctx)
	if err != nil {
		t.Fatalf("last sale id: %v", err)
	}
	if last != sales[0].ID {
		t.Fatalf("last sale id %d does not match stored row id %d", last, sales[0].ID)
	}
}

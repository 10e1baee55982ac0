package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLineProfitTruncatesTowardZero(t *testing.T) {
	// 5 margin, 10% discount: 4.5 truncates to 4.
	if got := LineProfit(105, 100, 1, 10); got != 4 {
		t.Fatalf("expected profit 4, got %d", got)
	}
	// Selling under cost keeps the loss, truncated toward zero.
	if got := LineProfit(100, 105, 1, 10); got != -4 {
		t.Fatalf("expected profit -4, got %d", got)
	}
	if got := LineProfit(150, 50, 3, 20); got != 240 {
		t.Fatalf("expected profit 240, got %d", got)
	}
	if got := LineProfit(150, 50, 3, 100); got != 0 {
		t.Fatalf("expected zero profit at 100%% discount, got %d", got)
	}
}

func TestDiscountedTotalRoundsHalfToEven(t *testing.T) {
	cases := []struct {
		salePrice int64
		quantity  int
		discount  int
		want      int64
	}{
		{100, 2, 10, 180},
		{15, 1, 30, 10}, // 10.5 rounds to the even neighbour
		{25, 1, 30, 18}, // 17.5 rounds up to 18
		{100, 3, 0, 300},
	}
	for _, tc := range cases {
		got := RoundToUnit(DiscountedTotal(tc.salePrice, tc.quantity, tc.discount))
		if got != tc.want {
			t.Fatalf("DiscountedTotal(%d, %d, %d%%) = %d, want %d", tc.salePrice, tc.quantity, tc.discount, got, tc.want)
		}
	}
}

func TestRoundToUnitHalfEven(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want int64
	}{
		{"0.5", 0},
		{"1.5", 2},
		{"2.5", 2},
		{"-0.5", 0},
		{"3.2", 3},
	} {
		d, err := decimal.NewFromString(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got := RoundToUnit(d); got != tc.want {
			t.Fatalf("RoundToUnit(%s) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestResolveDiscountHighestIDWins(t *testing.T) {
	channels := []SalesChannel{
		{ID: 1, Name: "Delivery", Discount: 10, Status: ChannelDeleted},
		{ID: 2, Name: "Walk-in", Discount: 0, Status: ChannelActive},
		{ID: 3, Name: "Delivery", Discount: 25, Status: ChannelActive},
	}

	if got := ResolveDiscount(channels, "Delivery"); got != 25 {
		t.Fatalf("expected newest Delivery discount 25, got %d", got)
	}
	if got := ResolveDiscount(channels, "Walk-in"); got != 0 {
		t.Fatalf("expected Walk-in discount 0, got %d", got)
	}
	if got := ResolveDiscount(channels, "Unknown"); got != 0 {
		t.Fatalf("expected default discount 0 for unknown channel, got %d", got)
	}
}

func TestDayWindowWidensToFullDays(t *testing.T) {
	loc := time.Local
	start := time.Date(2024, time.March, 5, 14, 30, 12, 0, loc)
	end := time.Date(2024, time.March, 6, 9, 1, 0, 0, loc)

	startMS, endMS := DayWindow(start, end)

	wantStart := time.Date(2024, time.March, 5, 0, 0, 0, 0, loc).UnixMilli()
	wantEnd := time.Date(2024, time.March, 6, 23, 59, 59, 999_000_000, loc).UnixMilli()
	if startMS != wantStart {
		t.Fatalf("start widened to %d, want %d", startMS, wantStart)
	}
	if endMS != wantEnd {
		t.Fatalf("end widened to %d, want %d", endMS, wantEnd)
	}

	sameDayStart, sameDayEnd := DayWindow(start, start)
	if sameDayEnd-sameDayStart != 24*60*60*1000-1 {
		t.Fatalf("single day window spans %dms", sameDayEnd-sameDayStart)
	}
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineProfit is the profit baked into a Sale row at checkout:
// qty * (salePrice - rawPrice) * (100 - discount) / 100, truncated
// toward zero. Report totals round half-to-even instead; the two are
// intentionally not reconciled (the stored profit keeps the historic
// checkout-time figure).
func LineProfit(salePrice, rawPrice int64, quantity, discount int) int64 {
	return (salePrice - rawPrice) * int64(quantity) * int64(100-discount) / 100
}

// DiscountedTotal is salePrice * quantity * (1 - discount/100) without
// any rounding applied.
func DiscountedTotal(salePrice int64, quantity, discount int) decimal.Decimal {
	gross := decimal.NewFromInt(salePrice).Mul(decimal.NewFromInt(int64(quantity)))
	return gross.Mul(hundred.Sub(decimal.NewFromInt(int64(discount)))).Div(hundred)
}

// RoundToUnit rounds a monetary amount half-to-even to the nearest
// whole currency unit, the rounding used for every displayed or
// exported total.
func RoundToUnit(amount decimal.Decimal) int64 {
	return amount.RoundBank(0).IntPart()
}

// ResolveDiscount returns the discount for a channel name, searching
// every channel row ever created (soft-deleted included) so historic
// sales keep resolving. When several rows share the name, the one with
// the highest identifier wins.
func ResolveDiscount(channels []SalesChannel, name string) int {
	discount := 0
	var bestID int64 = -1
	for _, channel := range channels {
		if channel.Name != name || channel.ID < bestID {
			continue
		}
		bestID = channel.ID
		discount = channel.Discount
	}
	return discount
}

// DayWindow widens an inclusive date range to full local calendar days:
// start floored to 00:00:00.000, end ceiled to 23:59:59.999. Returned
// bounds are epoch milliseconds.
func DayWindow(start, end time.Time) (int64, int64) {
	start = start.Local()
	end = end.Local()
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	dayEnd := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 999_000_000, end.Location())
	return dayStart.UnixMilli(), dayEnd.UnixMilli()
}

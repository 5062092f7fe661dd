// Package exchange implements the pure order matching core of the
// Grand Exchange. The matcher works on an in-memory view of one item's
// resting book; loading the book and persisting fills are the exchange
// service's job, inside one transaction under the per-item lock.
package exchange

import (
	"sort"
	"time"

	"osrs-game-engine/internal/model"
)

// RestingOrder is one active order already on the book.
type RestingOrder struct {
	ID        int64
	PlayerID  int64
	Price     int64
	Remaining int64
	Submitted time.Time
}

// Fill is one match produced against a resting order. Price is always
// the resting order's price: price improvement favors the side that was
// already on the book, and any buy-side overpayment is refunded.
type Fill struct {
	RestingID     int64
	RestingPlayer int64
	Quantity      int64
	Price         int64
}

// Compatible reports whether an incoming order at incomingPrice can
// trade against a resting order at restingPrice.
func Compatible(side string, incomingPrice, restingPrice int64) bool {
	if side == model.OrderSideBuy {
		return restingPrice <= incomingPrice
	}
	return restingPrice >= incomingPrice
}

// SortBook orders the resting book best-first for an incoming order of
// the given side: lowest ask first for a buy, highest bid first for a
// sell, earliest submission first within a price, order id as the final
// tiebreak.
func SortBook(side string, book []RestingOrder) {
	sort.SliceStable(book, func(i, j int) bool {
		a, b := book[i], book[j]
		if a.Price != b.Price {
			if side == model.OrderSideBuy {
				return a.Price < b.Price
			}
			return a.Price > b.Price
		}
		if !a.Submitted.Equal(b.Submitted) {
			return a.Submitted.Before(b.Submitted)
		}
		return a.ID < b.ID
	})
}

// Match consumes up to quantity units against the book under price-time
// priority and returns the fills in execution order. The book is sorted
// in place; entries the incoming order cannot trade with terminate the
// loop because no later entry has a better price. Each fill is
// min(incoming remainder, resting remainder), so no fill ever exceeds
// either side's remaining quantity.
func Match(side string, price, quantity int64, book []RestingOrder) []Fill {
	SortBook(side, book)

	var fills []Fill
	remaining := quantity
	for i := range book {
		if remaining <= 0 {
			break
		}
		resting := &book[i]
		if !Compatible(side, price, resting.Price) {
			break
		}
		if resting.Remaining <= 0 {
			continue
		}

		qty := remaining
		if resting.Remaining < qty {
			qty = resting.Remaining
		}
		fills = append(fills, Fill{
			RestingID:     resting.ID,
			RestingPlayer: resting.PlayerID,
			Quantity:      qty,
			Price:         resting.Price,
		})
		resting.Remaining -= qty
		remaining -= qty
	}
	return fills
}

package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"osrs-game-engine/internal/model"
)

func TestCompatible(t *testing.T) {
	// Incoming buy trades against asks at or below its limit.
	assert.True(t, Compatible(model.OrderSideBuy, 100, 90))
	assert.True(t, Compatible(model.OrderSideBuy, 100, 100))
	assert.False(t, Compatible(model.OrderSideBuy, 100, 101))

	// Incoming sell trades against bids at or above its limit.
	assert.True(t, Compatible(model.OrderSideSell, 100, 110))
	assert.True(t, Compatible(model.OrderSideSell, 100, 100))
	assert.False(t, Compatible(model.OrderSideSell, 100, 99))
}

func TestMatch_FillsAtRestingPriceInTimeOrder(t *testing.T) {
	t0 := time.Unix(1000, 0)
	book := []RestingOrder{
		{ID: 2, PlayerID: 20, Price: 100, Remaining: 5, Submitted: t0.Add(time.Minute)},
		{ID: 1, PlayerID: 10, Price: 100, Remaining: 10, Submitted: t0},
	}

	fills := Match(model.OrderSideBuy, 105, 12, book)
	require.Len(t, fills, 2)

	// Older sell fills first and completely, the newer one takes the
	// remainder, both at their own price rather than the buyer's limit.
	assert.Equal(t, Fill{RestingID: 1, RestingPlayer: 10, Quantity: 10, Price: 100}, fills[0])
	assert.Equal(t, Fill{RestingID: 2, RestingPlayer: 20, Quantity: 2, Price: 100}, fills[1])
}

func TestMatch_BestPriceFirst(t *testing.T) {
	t0 := time.Unix(1000, 0)
	book := []RestingOrder{
		{ID: 1, PlayerID: 10, Price: 110, Remaining: 5, Submitted: t0},
		{ID: 2, PlayerID: 20, Price: 95, Remaining: 5, Submitted: t0.Add(time.Hour)},
	}

	fills := Match(model.OrderSideBuy, 110, 6, book)
	require.Len(t, fills, 2)
	assert.Equal(t, int64(95), fills[0].Price)
	assert.Equal(t, int64(5), fills[0].Quantity)
	assert.Equal(t, int64(110), fills[1].Price)
	assert.Equal(t, int64(1), fills[1].Quantity)
}

func TestMatch_StopsAtIncompatiblePrice(t *testing.T) {
	book := []RestingOrder{
		{ID: 1, Price: 100, Remaining: 5},
		{ID: 2, Price: 120, Remaining: 5},
	}

	fills := Match(model.OrderSideBuy, 100, 10, book)
	require.Len(t, fills, 1)
	assert.Equal(t, int64(1), fills[0].RestingID)
	assert.Equal(t, int64(5), fills[0].Quantity)
}

func TestMatch_EmptyBook(t *testing.T) {
	assert.Empty(t, Match(model.OrderSideBuy, 100, 10, nil))
}

func TestMatch_SellAgainstBids(t *testing.T) {
	t0 := time.Unix(1000, 0)
	book := []RestingOrder{
		{ID: 1, PlayerID: 10, Price: 90, Remaining: 4, Submitted: t0},
		{ID: 2, PlayerID: 20, Price: 105, Remaining: 4, Submitted: t0},
	}

	fills := Match(model.OrderSideSell, 90, 8, book)
	require.Len(t, fills, 2)
	// Highest bid first.
	assert.Equal(t, int64(105), fills[0].Price)
	assert.Equal(t, int64(90), fills[1].Price)
}

func drawBook(t *rapid.T) []RestingOrder {
	n := rapid.IntRange(0, 20).Draw(t, "bookSize")
	book := make([]RestingOrder, n)
	for i := range book {
		book[i] = RestingOrder{
			ID:        int64(i + 1),
			PlayerID:  rapid.Int64Range(1, 5).Draw(t, "player"),
			Price:     rapid.Int64Range(1, 50).Draw(t, "price"),
			Remaining: rapid.Int64Range(1, 100).Draw(t, "remaining"),
			Submitted: time.Unix(rapid.Int64Range(0, 1000).Draw(t, "submitted"), 0),
		}
	}
	return book
}

// No fill exceeds either side's remainder, total filled never exceeds
// the incoming quantity, and every fill respects the price limit.
func TestMatchConservesQuantityAndPrice(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		side := rapid.SampledFrom([]string{model.OrderSideBuy, model.OrderSideSell}).Draw(t, "side")
		price := rapid.Int64Range(1, 50).Draw(t, "price")
		quantity := rapid.Int64Range(1, 200).Draw(t, "quantity")

		book := drawBook(t)
		remaining := make(map[int64]int64, len(book))
		for _, o := range book {
			remaining[o.ID] = o.Remaining
		}

		fills := Match(side, price, quantity, book)

		var total int64
		for _, f := range fills {
			if f.Quantity <= 0 {
				t.Fatalf("non-positive fill quantity %d", f.Quantity)
			}
			if f.Quantity > remaining[f.RestingID] {
				t.Fatalf("fill %d exceeds resting remainder %d", f.Quantity, remaining[f.RestingID])
			}
			remaining[f.RestingID] -= f.Quantity
			if !Compatible(side, price, f.Price) {
				t.Fatalf("fill at %d violates %s limit %d", f.Price, side, price)
			}
			total += f.Quantity
		}
		if total > quantity {
			t.Fatalf("filled %d of an order for %d", total, quantity)
		}
	})
}

// The incoming order only rests with quantity left when nothing
// compatible remains on the book.
func TestMatchExhaustsCompatibleBook(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		side := rapid.SampledFrom([]string{model.OrderSideBuy, model.OrderSideSell}).Draw(t, "side")
		price := rapid.Int64Range(1, 50).Draw(t, "price")
		quantity := rapid.Int64Range(1, 200).Draw(t, "quantity")

		book := drawBook(t)
		var compatible int64
		for _, o := range book {
			if Compatible(side, price, o.Price) {
				compatible += o.Remaining
			}
		}

		fills := Match(side, price, quantity, book)
		var total int64
		for _, f := range fills {
			total += f.Quantity
		}

		want := min(quantity, compatible)
		if total != want {
			t.Fatalf("filled %d, want %d (quantity %d, compatible depth %d)", total, want, quantity, compatible)
		}
	})
}

// At one price level fills come strictly in submission order.
func TestMatchIsFIFOWithinPrice(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		side := rapid.SampledFrom([]string{model.OrderSideBuy, model.OrderSideSell}).Draw(t, "side")
		price := rapid.Int64Range(1, 50).Draw(t, "price")
		quantity := rapid.Int64Range(1, 200).Draw(t, "quantity")
		book := drawBook(t)

		submitted := make(map[int64]time.Time, len(book))
		prices := make(map[int64]int64, len(book))
		for _, o := range book {
			submitted[o.ID] = o.Submitted
			prices[o.ID] = o.Price
		}

		fills := Match(side, price, quantity, book)
		for i := 1; i < len(fills); i++ {
			prev, cur := fills[i-1], fills[i]
			if prices[prev.RestingID] != prices[cur.RestingID] {
				continue
			}
			pt, ct := submitted[prev.RestingID], submitted[cur.RestingID]
			if pt.After(ct) {
				t.Fatalf("order %d (submitted %v) filled before older order %d (%v) at the same price",
					prev.RestingID, pt, cur.RestingID, ct)
			}
		}
	})
}

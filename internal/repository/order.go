package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"osrs-game-engine/internal/model"
)

// Common errors for order operations.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOverfill      = errors.New("fill exceeds remaining quantity")
	ErrNotActive     = errors.New("order is not active")
)

const orderColumns = `id, player_id, item_id, side, quantity, price,
	quantity_filled, status, created_at, updated_at`

// OrderRepository handles Grand Exchange orders and the append-only
// trade history.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository creates a new OrderRepository instance.
func NewOrderRepository(q Querier) *OrderRepository {
	return &OrderRepository{q: q}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *OrderRepository) WithTx(tx pgx.Tx) *OrderRepository {
	return &OrderRepository{q: tx}
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.PlayerID, &o.ItemID, &o.Side, &o.Quantity, &o.Price,
		&o.QuantityFilled, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// Create inserts a new active order.
func (r *OrderRepository) Create(ctx context.Context, playerID, itemID int64, side string, quantity, price int64) (*model.Order, error) {
	const query = `
		INSERT INTO orders (player_id, item_id, side, quantity, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + orderColumns

	order, err := scanOrder(r.q.QueryRow(ctx, query, playerID, itemID, side, quantity, price))
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

// GetByID retrieves an order.
func (r *OrderRepository) GetByID(ctx context.Context, orderID int64) (*model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.q.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// GetForUpdate retrieves an order with a row lock.
func (r *OrderRepository) GetForUpdate(ctx context.Context, orderID int64) (*model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	order, err := scanOrder(r.q.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// RestingBook returns the active orders an incoming order of the given
// side could trade against, locked, best price first and FIFO within a
// price. For a buy the book is the asks priced at or below the limit;
// for a sell, the bids at or above it. The caller's own orders are
// excluded: players do not self-trade.
func (r *OrderRepository) RestingBook(ctx context.Context, itemID int64, incomingSide string, price int64, excludePlayer int64) ([]*model.Order, error) {
	var query string
	if incomingSide == model.OrderSideBuy {
		query = `
			SELECT ` + orderColumns + `
			FROM orders
			WHERE item_id = $1 AND side = 'sell' AND status = 'active'
			  AND price <= $2 AND player_id <> $3
			ORDER BY price ASC, created_at ASC, id ASC
			FOR UPDATE
		`
	} else {
		query = `
			SELECT ` + orderColumns + `
			FROM orders
			WHERE item_id = $1 AND side = 'buy' AND status = 'active'
			  AND price >= $2 AND player_id <> $3
			ORDER BY price DESC, created_at ASC, id ASC
			FOR UPDATE
		`
	}

	rows, err := r.q.Query(ctx, query, itemID, price, excludePlayer)
	if err != nil {
		return nil, fmt.Errorf("failed to load resting book: %w", err)
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating book: %w", err)
	}

	return orders, nil
}

// ApplyFill adds quantity to an order's filled counter and flips it to
// completed on a full fill. The guard makes over-filling impossible at
// the datastore: a fill past the remaining quantity affects zero rows.
func (r *OrderRepository) ApplyFill(ctx context.Context, orderID, quantity int64) (*model.Order, error) {
	const query = `
		UPDATE orders
		SET quantity_filled = quantity_filled + $2,
		    status = CASE WHEN quantity_filled + $2 = quantity THEN 'completed' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND quantity_filled + $2 <= quantity
		RETURNING ` + orderColumns

	order, err := scanOrder(r.q.QueryRow(ctx, query, orderID, quantity))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOverfill
		}
		return nil, fmt.Errorf("failed to apply fill: %w", err)
	}
	return order, nil
}

// Cancel flips an active order to cancelled. Completed and already
// cancelled orders affect zero rows and return ErrNotActive.
func (r *OrderRepository) Cancel(ctx context.Context, orderID int64) (*model.Order, error) {
	const query = `
		UPDATE orders
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING ` + orderColumns

	order, err := scanOrder(r.q.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrNotActive
		}
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	return order, nil
}

// CountActive counts a player's active orders.
func (r *OrderRepository) CountActive(ctx context.Context, playerID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM orders WHERE player_id = $1 AND status = 'active'`

	var count int
	if err := r.q.QueryRow(ctx, query, playerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active orders: %w", err)
	}
	return count, nil
}

// ListByPlayer retrieves a player's orders, newest first.
func (r *OrderRepository) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*model.Order, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// Depth aggregates the active book of an item into price levels:
// bids descending, asks ascending.
func (r *OrderRepository) Depth(ctx context.Context, itemID int64, side string, limit int) ([]*model.PriceLevel, error) {
	const query = `
		SELECT price, SUM(quantity - quantity_filled) AS quantity, COUNT(*) AS orders
		FROM orders
		WHERE item_id = $1 AND side = $2 AND status = 'active'
		GROUP BY price
		ORDER BY CASE WHEN $2 = 'buy' THEN -price ELSE price END
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, itemID, side, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get depth: %w", err)
	}
	defer rows.Close()

	var levels []*model.PriceLevel
	for rows.Next() {
		var l model.PriceLevel
		if err := rows.Scan(&l.Price, &l.Quantity, &l.Orders); err != nil {
			return nil, fmt.Errorf("failed to scan price level: %w", err)
		}
		levels = append(levels, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating depth: %w", err)
	}

	return levels, nil
}

// InsertTrade appends one fill to the price history.
func (r *OrderRepository) InsertTrade(ctx context.Context, itemID, buyOrderID, sellOrderID, quantity, price int64) (*model.Trade, error) {
	const query = `
		INSERT INTO trades (item_id, buy_order_id, sell_order_id, quantity, price, executed_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, item_id, buy_order_id, sell_order_id, quantity, price, executed_at
	`

	var t model.Trade
	err := r.q.QueryRow(ctx, query, itemID, buyOrderID, sellOrderID, quantity, price).Scan(
		&t.ID, &t.ItemID, &t.BuyOrderID, &t.SellOrderID, &t.Quantity, &t.Price, &t.ExecutedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert trade: %w", err)
	}
	return &t, nil
}

// PriceHistory retrieves trades for an item within the window, oldest
// first, for charting and trend queries.
func (r *OrderRepository) PriceHistory(ctx context.Context, itemID int64, since time.Time, limit int) ([]*model.Trade, error) {
	const query = `
		SELECT id, item_id, buy_order_id, sell_order_id, quantity, price, executed_at
		FROM trades
		WHERE item_id = $1 AND executed_at >= $2
		ORDER BY executed_at ASC, id ASC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, itemID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	defer rows.Close()

	var trades []*model.Trade
	for rows.Next() {
		var t model.Trade
		if err := rows.Scan(&t.ID, &t.ItemID, &t.BuyOrderID, &t.SellOrderID, &t.Quantity, &t.Price, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// SumTradeQuantity sums the traded quantity recorded for an order, used
// to verify quantity_filled stays consistent with the trade history.
func (r *OrderRepository) SumTradeQuantity(ctx context.Context, orderID int64) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(quantity), 0)
		FROM trades
		WHERE buy_order_id = $1 OR sell_order_id = $1
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, orderID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum trade quantity: %w", err)
	}
	return total, nil
}

// GuidePrice returns the volume-weighted average trade price of an item
// over the window, or the catalog base value when nothing traded.
func (r *OrderRepository) GuidePrice(ctx context.Context, itemID int64, since time.Time) (int64, error) {
	const query = `
		SELECT COALESCE(
			(SELECT (SUM(price * quantity) / SUM(quantity))::BIGINT
			 FROM trades
			 WHERE item_id = $1 AND executed_at >= $2),
			(SELECT base_value FROM items WHERE id = $1)
		)
	`

	var price int64
	err := r.q.QueryRow(ctx, query, itemID, since).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrItemNotFound
		}
		return 0, fmt.Errorf("failed to get guide price: %w", err)
	}
	return price, nil
}

// BoughtInWindow sums the quantity of an item a player has bought via
// completed trades inside the window, for buy-limit enforcement.
func (r *OrderRepository) BoughtInWindow(ctx context.Context, playerID, itemID int64, since time.Time) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(t.quantity), 0)
		FROM trades t
		JOIN orders o ON o.id = t.buy_order_id
		WHERE o.player_id = $1 AND t.item_id = $2 AND t.executed_at >= $3
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, playerID, itemID, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum bought quantity: %w", err)
	}
	return total, nil
}

package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"osrs-game-engine/internal/config"
	"osrs-game-engine/internal/game/exchange"
	"osrs-game-engine/internal/model"
	"osrs-game-engine/internal/pkg/db"
	"osrs-game-engine/internal/pkg/lock"
	"osrs-game-engine/internal/repository"
)

// ExchangeService runs the Grand Exchange: order submission with
// immediate matching, cancellation, and the read-side book views.
//
// Funds and items are escrowed at submit time, so settlement never
// discovers a short seller or an insolvent buyer. Matching for one item
// is serialized by the per-item lock; everything a submit touches
// happens in one transaction.
type ExchangeService struct {
	pool     *pgxpool.Pool
	players  *repository.PlayerRepository
	items    *repository.ItemRepository
	invent   *repository.InventoryRepository
	orders   *repository.OrderRepository
	unlocks  *repository.AchievementRepository
	itemLock *lock.EntityLock
	cfg      config.ExchangeConfig
}

// NewExchangeService creates a new ExchangeService instance.
func NewExchangeService(
	pool *pgxpool.Pool,
	players *repository.PlayerRepository,
	items *repository.ItemRepository,
	invent *repository.InventoryRepository,
	orders *repository.OrderRepository,
	unlocks *repository.AchievementRepository,
	itemLock *lock.EntityLock,
	cfg config.ExchangeConfig,
) *ExchangeService {
	return &ExchangeService{
		pool:     pool,
		players:  players,
		items:    items,
		invent:   invent,
		orders:   orders,
		unlocks:  unlocks,
		itemLock: itemLock,
		cfg:      cfg,
	}
}

// SubmitOrder places a buy or sell order and immediately matches it
// against the resting book under price-time priority. Fills execute at
// the resting order's price; a buyer whose limit beat the resting ask
// gets the difference refunded in the same transaction. Whatever does
// not fill rests on the book with its escrow held.
func (s *ExchangeService) SubmitOrder(ctx context.Context, playerID, itemID int64, side string, quantity, price int64) (*model.Order, error) {
	if side != model.OrderSideBuy && side != model.OrderSideSell {
		return nil, ErrInvalidSide
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	// quantity*price is escrowed and settled in int64 coin arithmetic;
	// reject orders whose notional value would overflow it.
	if quantity > math.MaxInt64/price {
		return nil, ErrOrderTooLarge
	}

	var placed *model.Order
	err := s.itemLock.WithLock(itemID, func() error {
		return db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
			orders := s.orders.WithTx(tx)
			players := s.players.WithTx(tx)

			item, err := s.items.WithTx(tx).GetByID(ctx, itemID)
			if err != nil {
				return err
			}
			if !item.Tradeable {
				return ErrNotTradeable
			}

			active, err := orders.CountActive(ctx, playerID)
			if err != nil {
				return err
			}
			if active >= s.cfg.MaxActiveOrders {
				return ErrTooManyOrders
			}

			if side == model.OrderSideBuy && item.BuyLimit > 0 {
				bought, err := orders.BoughtInWindow(ctx, playerID, itemID, time.Now().Add(-s.cfg.BuyLimitWindow))
				if err != nil {
					return err
				}
				if bought+quantity > int64(item.BuyLimit) {
					return ErrBuyLimitExceeded
				}
			}

			// Escrow before the order exists. A failed debit aborts
			// the whole submit.
			if side == model.OrderSideBuy {
				if _, err := players.AdjustCoins(ctx, playerID, -quantity*price); err != nil {
					if errors.Is(err, repository.ErrInsufficientCoins) {
						return ErrInsufficientBalance
					}
					return err
				}
			} else {
				if err := s.takeFromBank(ctx, tx, playerID, itemID, quantity); err != nil {
					return err
				}
			}

			order, err := orders.Create(ctx, playerID, itemID, side, quantity, price)
			if err != nil {
				return err
			}

			resting, err := orders.RestingBook(ctx, itemID, side, price, playerID)
			if err != nil {
				return err
			}
			book := make([]exchange.RestingOrder, 0, len(resting))
			for _, o := range resting {
				book = append(book, exchange.RestingOrder{
					ID:        o.ID,
					PlayerID:  o.PlayerID,
					Price:     o.Price,
					Remaining: o.Remaining(),
					Submitted: o.CreatedAt,
				})
			}

			fills := exchange.Match(side, price, quantity, book)
			for _, fill := range fills {
				if err := s.settleFill(ctx, tx, order, fill, side); err != nil {
					return err
				}
			}

			placed, err = orders.GetByID(ctx, order.ID)
			if err != nil {
				return err
			}

			log.Debug().
				Int64("player_id", playerID).
				Int64("item_id", itemID).
				Str("side", side).
				Int64("quantity", quantity).
				Int64("price", price).
				Int("fills", len(fills)).
				Str("status", placed.Status).
				Msg("order submitted")
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// settleFill applies one fill to both orders, records the trade, moves
// the coins and items, and refunds the incoming buyer any difference
// between its limit and the resting price.
func (s *ExchangeService) settleFill(ctx context.Context, tx pgx.Tx, incoming *model.Order, fill exchange.Fill, side string) error {
	orders := s.orders.WithTx(tx)
	players := s.players.WithTx(tx)

	if _, err := orders.ApplyFill(ctx, fill.RestingID, fill.Quantity); err != nil {
		return err
	}
	if _, err := orders.ApplyFill(ctx, incoming.ID, fill.Quantity); err != nil {
		return err
	}

	buyOrderID, sellOrderID := incoming.ID, fill.RestingID
	buyerID, sellerID := incoming.PlayerID, fill.RestingPlayer
	if side == model.OrderSideSell {
		buyOrderID, sellOrderID = fill.RestingID, incoming.ID
		buyerID, sellerID = fill.RestingPlayer, incoming.PlayerID
	}
	if _, err := orders.InsertTrade(ctx, incoming.ItemID, buyOrderID, sellOrderID, fill.Quantity, fill.Price); err != nil {
		return err
	}

	// Seller is paid from the buyer's escrow at the execution price.
	if _, err := players.AdjustCoins(ctx, sellerID, fill.Quantity*fill.Price); err != nil {
		return err
	}
	if err := s.deliverToBank(ctx, tx, buyerID, incoming.ItemID, fill.Quantity); err != nil {
		return err
	}

	// An incoming buy escrowed at its own limit; the resting price can
	// only be lower or equal. A resting buy always fills at its own
	// price, so nothing is owed back on the sell-incoming path.
	if side == model.OrderSideBuy && incoming.Price > fill.Price {
		refund := (incoming.Price - fill.Price) * fill.Quantity
		if _, err := players.AdjustCoins(ctx, buyerID, refund); err != nil {
			return err
		}
	}
	return nil
}

// CancelOrder cancels the caller's active order and releases the
// escrow backing its unfilled remainder: coins for a buy, items back
// to the bank for a sell.
func (s *ExchangeService) CancelOrder(ctx context.Context, playerID, orderID int64) (*model.Order, error) {
	peek, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var cancelled *model.Order
	err = s.itemLock.WithLock(peek.ItemID, func() error {
		return db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
			orders := s.orders.WithTx(tx)

			order, err := orders.GetForUpdate(ctx, orderID)
			if err != nil {
				return err
			}
			if order.PlayerID != playerID {
				return ErrNotOrderOwner
			}

			order, err = orders.Cancel(ctx, orderID)
			if err != nil {
				if errors.Is(err, repository.ErrNotActive) {
					return ErrOrderNotCancellable
				}
				return err
			}

			remaining := order.Remaining()
			if remaining > 0 {
				if order.Side == model.OrderSideBuy {
					if _, err := s.players.WithTx(tx).AdjustCoins(ctx, playerID, remaining*order.Price); err != nil {
						return err
					}
				} else {
					if err := s.deliverToBank(ctx, tx, playerID, order.ItemID, remaining); err != nil {
						return err
					}
				}
			}
			cancelled = order
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// Depth returns the aggregated active book for an item, best price
// first on each side.
func (s *ExchangeService) Depth(ctx context.Context, itemID int64, levels int) (bids, asks []*model.PriceLevel, err error) {
	bids, err = s.orders.Depth(ctx, itemID, model.OrderSideBuy, levels)
	if err != nil {
		return nil, nil, err
	}
	asks, err = s.orders.Depth(ctx, itemID, model.OrderSideSell, levels)
	if err != nil {
		return nil, nil, err
	}
	return bids, asks, nil
}

// PriceHistory returns recent trades for an item, newest first.
func (s *ExchangeService) PriceHistory(ctx context.Context, itemID int64, since time.Time, limit int) ([]*model.Trade, error) {
	return s.orders.PriceHistory(ctx, itemID, since, limit)
}

// GuidePrice returns the volume-weighted average trade price over the
// trailing day, falling back to the catalog base value when the item
// has not traded.
func (s *ExchangeService) GuidePrice(ctx context.Context, itemID int64) (int64, error) {
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return 0, err
	}
	return s.orders.GuidePrice(ctx, itemID, time.Now().Add(-24*time.Hour))
}

// ListOrders returns a player's recent orders, newest first.
func (s *ExchangeService) ListOrders(ctx context.Context, playerID int64, limit int) ([]*model.Order, error) {
	return s.orders.ListByPlayer(ctx, playerID, limit)
}

// deliverToBank credits quantity of an item to the player's bank. The
// bank keeps one stack per item, so delivery is an add to the existing
// stack or an insert into the first free slot. First-time obtains land
// in the collection log.
func (s *ExchangeService) deliverToBank(ctx context.Context, tx pgx.Tx, playerID, itemID, quantity int64) error {
	inv := s.invent.WithTx(tx)

	stack, err := inv.FindStack(ctx, playerID, model.ContainerBank, itemID)
	if err != nil {
		return err
	}
	if stack != nil {
		if err := inv.AddQuantity(ctx, playerID, model.ContainerBank, stack.SlotIndex, itemID, quantity); err != nil {
			return err
		}
	} else {
		free, err := inv.FirstFreeSlot(ctx, playerID, model.ContainerBank)
		if err != nil {
			if errors.Is(err, repository.ErrNoFreeSlot) {
				return ErrBankFull
			}
			return err
		}
		if err := inv.InsertSlot(ctx, playerID, model.ContainerBank, free, itemID, quantity); err != nil {
			return err
		}
	}

	_, err = s.unlocks.WithTx(tx).LogCollection(ctx, playerID, itemID)
	return err
}

// takeFromBank debits quantity of an item from the player's bank stack.
func (s *ExchangeService) takeFromBank(ctx context.Context, tx pgx.Tx, playerID, itemID, quantity int64) error {
	inv := s.invent.WithTx(tx)

	stack, err := inv.FindStack(ctx, playerID, model.ContainerBank, itemID)
	if err != nil {
		return err
	}
	if stack == nil {
		return ErrInsufficientQuantity
	}
	if err := inv.RemoveQuantity(ctx, playerID, model.ContainerBank, stack.SlotIndex, quantity); err != nil {
		if errors.Is(err, repository.ErrShortQuantity) {
			return ErrInsufficientQuantity
		}
		return err
	}
	return nil
}

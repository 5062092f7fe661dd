package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"osrs-game-engine/internal/model"
)

// Common errors for catalog operations.
var (
	ErrItemNotFound = errors.New("item not found")
)

// ItemRepository handles the item catalog: process-wide reference data
// with a lifecycle independent of any player.
type ItemRepository struct {
	q Querier
}

// NewItemRepository creates a new ItemRepository instance.
func NewItemRepository(q Querier) *ItemRepository {
	return &ItemRepository{q: q}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *ItemRepository) WithTx(tx pgx.Tx) *ItemRepository {
	return &ItemRepository{q: tx}
}

// Upsert writes a catalog entry, keyed by name. Used by catalog seeding
// only; catalog rows are immutable at runtime.
func (r *ItemRepository) Upsert(ctx context.Context, item *model.Item) (int64, error) {
	reqs, err := model.EncodeRequirements(item.Requirements)
	if err != nil {
		return 0, fmt.Errorf("failed to encode requirements: %w", err)
	}

	const query = `
		INSERT INTO items (name, tradeable, stackable, equipable, equip_slot,
			base_value, high_alch, low_alch, weight, buy_limit, requirements)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (name) DO UPDATE SET
			tradeable = EXCLUDED.tradeable,
			stackable = EXCLUDED.stackable,
			equipable = EXCLUDED.equipable,
			equip_slot = EXCLUDED.equip_slot,
			base_value = EXCLUDED.base_value,
			high_alch = EXCLUDED.high_alch,
			low_alch = EXCLUDED.low_alch,
			weight = EXCLUDED.weight,
			buy_limit = EXCLUDED.buy_limit,
			requirements = EXCLUDED.requirements
		RETURNING id
	`

	var id int64
	err = r.q.QueryRow(ctx, query,
		item.Name, item.Tradeable, item.Stackable, item.Equipable, item.EquipSlot,
		item.BaseValue, item.HighAlch, item.LowAlch, item.Weight, item.BuyLimit, reqs,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert item: %w", err)
	}
	return id, nil
}

func scanItem(row pgx.Row) (*model.Item, error) {
	var item model.Item
	var reqs []byte
	err := row.Scan(
		&item.ID, &item.Name, &item.Tradeable, &item.Stackable, &item.Equipable,
		&item.EquipSlot, &item.BaseValue, &item.HighAlch, &item.LowAlch,
		&item.Weight, &item.BuyLimit, &reqs,
	)
	if err != nil {
		return nil, err
	}
	item.Requirements, err = model.DecodeRequirements(reqs)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

const itemColumns = `id, name, tradeable, stackable, equipable, equip_slot,
	base_value, high_alch, low_alch, weight, buy_limit, requirements`

// GetByID retrieves a catalog entry.
func (r *ItemRepository) GetByID(ctx context.Context, itemID int64) (*model.Item, error) {
	const query = `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item, err := scanItem(r.q.QueryRow(ctx, query, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// GetByName retrieves a catalog entry by exact name.
func (r *ItemRepository) GetByName(ctx context.Context, name string) (*model.Item, error) {
	const query = `SELECT ` + itemColumns + ` FROM items WHERE name = $1`

	item, err := scanItem(r.q.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// List retrieves the full catalog ordered by id.
func (r *ItemRepository) List(ctx context.Context) ([]*model.Item, error) {
	const query = `SELECT ` + itemColumns + ` FROM items ORDER BY id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

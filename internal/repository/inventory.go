package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"osrs-game-engine/internal/model"
)

// Common errors for ledger operations.
var (
	ErrSlotEmpty       = errors.New("slot is empty")
	ErrNoFreeSlot      = errors.New("no free slot")
	ErrShortQuantity   = errors.New("slot holds less than requested")
	ErrNothingEquipped = errors.New("nothing equipped in slot")
)

// InventoryRepository handles slot-based item storage: inventory and
// bank containers plus worn equipment.
type InventoryRepository struct {
	q Querier
}

// NewInventoryRepository creates a new InventoryRepository instance.
func NewInventoryRepository(q Querier) *InventoryRepository {
	return &InventoryRepository{q: q}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *InventoryRepository) WithTx(tx pgx.Tx) *InventoryRepository {
	return &InventoryRepository{q: tx}
}

func containerSize(container string) int {
	if container == model.ContainerBank {
		return model.BankSize
	}
	return model.InventorySize
}

// GetSlot retrieves one slot, locking the row for the enclosing
// transaction. Returns nil (no error) when the slot is empty.
func (r *InventoryRepository) GetSlot(ctx context.Context, playerID int64, container string, slotIndex int) (*model.ItemSlot, error) {
	const query = `
		SELECT player_id, container, slot_index, item_id, quantity, updated_at
		FROM item_slots
		WHERE player_id = $1 AND container = $2 AND slot_index = $3
		FOR UPDATE
	`

	var s model.ItemSlot
	err := r.q.QueryRow(ctx, query, playerID, container, slotIndex).Scan(
		&s.PlayerID, &s.Container, &s.SlotIndex, &s.ItemID, &s.Quantity, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return &s, nil
}

// GetSlots retrieves all occupied slots of a container in slot order.
func (r *InventoryRepository) GetSlots(ctx context.Context, playerID int64, container string) ([]*model.ItemSlot, error) {
	const query = `
		SELECT player_id, container, slot_index, item_id, quantity, updated_at
		FROM item_slots
		WHERE player_id = $1 AND container = $2
		ORDER BY slot_index
	`

	rows, err := r.q.Query(ctx, query, playerID, container)
	if err != nil {
		return nil, fmt.Errorf("failed to get slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.ItemSlot
	for rows.Next() {
		var s model.ItemSlot
		if err := rows.Scan(&s.PlayerID, &s.Container, &s.SlotIndex, &s.ItemID, &s.Quantity, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slots: %w", err)
	}

	return slots, nil
}

// InsertSlot writes a new occupied slot. The primary key rejects a
// double-occupation; callers check the slot first under FOR UPDATE.
func (r *InventoryRepository) InsertSlot(ctx context.Context, playerID int64, container string, slotIndex int, itemID, quantity int64) error {
	const query = `
		INSERT INTO item_slots (player_id, container, slot_index, item_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	if _, err := r.q.Exec(ctx, query, playerID, container, slotIndex, itemID, quantity); err != nil {
		return fmt.Errorf("failed to insert slot: %w", err)
	}
	return nil
}

// AddQuantity accumulates quantity onto an occupied slot holding the
// same item.
func (r *InventoryRepository) AddQuantity(ctx context.Context, playerID int64, container string, slotIndex int, itemID, quantity int64) error {
	const query = `
		UPDATE item_slots
		SET quantity = quantity + $5, updated_at = NOW()
		WHERE player_id = $1 AND container = $2 AND slot_index = $3 AND item_id = $4
	`
	result, err := r.q.Exec(ctx, query, playerID, container, slotIndex, itemID, quantity)
	if err != nil {
		return fmt.Errorf("failed to add quantity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSlotEmpty
	}
	return nil
}

// RemoveQuantity removes quantity from a slot, deleting the row when it
// reaches zero. Removing more than present returns ErrShortQuantity and
// leaves the slot untouched.
func (r *InventoryRepository) RemoveQuantity(ctx context.Context, playerID int64, container string, slotIndex int, quantity int64) error {
	const query = `
		UPDATE item_slots
		SET quantity = quantity - $4, updated_at = NOW()
		WHERE player_id = $1 AND container = $2 AND slot_index = $3 AND quantity >= $4
	`
	result, err := r.q.Exec(ctx, query, playerID, container, slotIndex, quantity)
	if err != nil {
		return fmt.Errorf("failed to remove quantity: %w", err)
	}
	if result.RowsAffected() == 0 {
		slot, err := r.GetSlot(ctx, playerID, container, slotIndex)
		if err != nil {
			return err
		}
		if slot == nil {
			return ErrSlotEmpty
		}
		return ErrShortQuantity
	}

	const sweep = `
		DELETE FROM item_slots
		WHERE player_id = $1 AND container = $2 AND slot_index = $3 AND quantity = 0
	`
	if _, err := r.q.Exec(ctx, sweep, playerID, container, slotIndex); err != nil {
		return fmt.Errorf("failed to sweep empty slot: %w", err)
	}
	return nil
}

// DeleteSlot clears a slot regardless of quantity.
func (r *InventoryRepository) DeleteSlot(ctx context.Context, playerID int64, container string, slotIndex int) error {
	const query = `
		DELETE FROM item_slots
		WHERE player_id = $1 AND container = $2 AND slot_index = $3
	`
	result, err := r.q.Exec(ctx, query, playerID, container, slotIndex)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSlotEmpty
	}
	return nil
}

// FirstFreeSlot returns the lowest empty slot index of a container, or
// ErrNoFreeSlot when the container is full.
func (r *InventoryRepository) FirstFreeSlot(ctx context.Context, playerID int64, container string) (int, error) {
	const query = `
		SELECT i FROM generate_series(0, $3) AS i
		WHERE NOT EXISTS (
			SELECT 1 FROM item_slots
			WHERE player_id = $1 AND container = $2 AND slot_index = i
		)
		ORDER BY i
		LIMIT 1
	`

	var index int
	err := r.q.QueryRow(ctx, query, playerID, container, containerSize(container)-1).Scan(&index)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoFreeSlot
		}
		return 0, fmt.Errorf("failed to find free slot: %w", err)
	}
	return index, nil
}

// FindStack returns the first slot of a container already holding the
// item, locking the row. Returns nil when the item is not present.
func (r *InventoryRepository) FindStack(ctx context.Context, playerID int64, container string, itemID int64) (*model.ItemSlot, error) {
	const query = `
		SELECT player_id, container, slot_index, item_id, quantity, updated_at
		FROM item_slots
		WHERE player_id = $1 AND container = $2 AND item_id = $3
		ORDER BY slot_index
		LIMIT 1
		FOR UPDATE
	`

	var s model.ItemSlot
	err := r.q.QueryRow(ctx, query, playerID, container, itemID).Scan(
		&s.PlayerID, &s.Container, &s.SlotIndex, &s.ItemID, &s.Quantity, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find stack: %w", err)
	}
	return &s, nil
}

// CountItem sums the quantity of an item across a container.
func (r *InventoryRepository) CountItem(ctx context.Context, playerID int64, container string, itemID int64) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(quantity), 0)
		FROM item_slots
		WHERE player_id = $1 AND container = $2 AND item_id = $3
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, playerID, container, itemID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count item: %w", err)
	}
	return total, nil
}

// GetEquipment retrieves every worn slot for a player.
func (r *InventoryRepository) GetEquipment(ctx context.Context, playerID int64) ([]*model.EquipmentSlot, error) {
	const query = `
		SELECT player_id, slot_name, item_id, quantity, updated_at
		FROM equipment_slots
		WHERE player_id = $1
		ORDER BY slot_name
	`

	rows, err := r.q.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	defer rows.Close()

	var slots []*model.EquipmentSlot
	for rows.Next() {
		var s model.EquipmentSlot
		if err := rows.Scan(&s.PlayerID, &s.SlotName, &s.ItemID, &s.Quantity, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan equipment slot: %w", err)
		}
		slots = append(slots, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating equipment: %w", err)
	}

	return slots, nil
}

// GetEquipSlot retrieves one worn slot with a row lock. Returns nil
// when nothing is equipped there.
func (r *InventoryRepository) GetEquipSlot(ctx context.Context, playerID int64, slotName string) (*model.EquipmentSlot, error) {
	const query = `
		SELECT player_id, slot_name, item_id, quantity, updated_at
		FROM equipment_slots
		WHERE player_id = $1 AND slot_name = $2
		FOR UPDATE
	`

	var s model.EquipmentSlot
	err := r.q.QueryRow(ctx, query, playerID, slotName).Scan(
		&s.PlayerID, &s.SlotName, &s.ItemID, &s.Quantity, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get equipment slot: %w", err)
	}
	return &s, nil
}

// SetEquipSlot writes a worn slot, replacing whatever was there.
func (r *InventoryRepository) SetEquipSlot(ctx context.Context, playerID int64, slotName string, itemID, quantity int64) error {
	const query = `
		INSERT INTO equipment_slots (player_id, slot_name, item_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (player_id, slot_name)
		DO UPDATE SET item_id = $3, quantity = $4, updated_at = NOW()
	`
	if _, err := r.q.Exec(ctx, query, playerID, slotName, itemID, quantity); err != nil {
		return fmt.Errorf("failed to set equipment slot: %w", err)
	}
	return nil
}

// ClearEquipSlot removes a worn slot.
func (r *InventoryRepository) ClearEquipSlot(ctx context.Context, playerID int64, slotName string) error {
	const query = `DELETE FROM equipment_slots WHERE player_id = $1 AND slot_name = $2`

	result, err := r.q.Exec(ctx, query, playerID, slotName)
	if err != nil {
		return fmt.Errorf("failed to clear equipment slot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNothingEquipped
	}
	return nil
}

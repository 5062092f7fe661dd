package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"osrs-game-engine/internal/model"
	"osrs-game-engine/internal/pkg/db"
	"osrs-game-engine/internal/pkg/lock"
	"osrs-game-engine/internal/repository"
)

// LedgerService handles the item ledger: inventory and bank slots plus
// worn equipment. Every mutation runs per-player-serialized inside one
// transaction, sharing it with any paired coin adjustment.
//
// The two containers differ in stacking: the inventory honors the
// catalog stackable flag, the bank stacks everything into one slot per
// item, as the game does.
type LedgerService struct {
	pool       *pgxpool.Pool
	players    *repository.PlayerRepository
	items      *repository.ItemRepository
	inventory  *repository.InventoryRepository
	skills     *repository.SkillRepository
	unlocks    *repository.AchievementRepository
	playerLock *lock.EntityLock
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(
	pool *pgxpool.Pool,
	players *repository.PlayerRepository,
	items *repository.ItemRepository,
	inventory *repository.InventoryRepository,
	skills *repository.SkillRepository,
	unlocks *repository.AchievementRepository,
	playerLock *lock.EntityLock,
) *LedgerService {
	return &LedgerService{
		pool:       pool,
		players:    players,
		items:      items,
		inventory:  inventory,
		skills:     skills,
		unlocks:    unlocks,
		playerLock: playerLock,
	}
}

func validContainer(container string) bool {
	return container == model.ContainerInventory || container == model.ContainerBank
}

func slotInRange(container string, slot int) bool {
	if slot < 0 {
		return false
	}
	if container == model.ContainerBank {
		return slot < model.BankSize
	}
	return slot < model.InventorySize
}

// PlaceItem puts quantity of an item into a specific slot. The slot
// must be empty or already hold the same stackable item, in which case
// the quantity accumulates. A bank placement merges into the existing
// stack of the item wherever it sits: the bank never holds two stacks
// of one item. First-time obtains land in the collection log in the
// same transaction.
func (s *LedgerService) PlaceItem(ctx context.Context, playerID int64, container string, slot int, itemID, quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !validContainer(container) {
		return ErrInvalidContainer
	}
	if !slotInRange(container, slot) {
		return ErrInvalidSlot
	}

	return s.playerLock.WithLock(playerID, func() error {
		return db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
			inv := s.inventory.WithTx(tx)

			if _, err := s.players.WithTx(tx).GetByID(ctx, playerID); err != nil {
				return err
			}
			item, err := s.items.WithTx(tx).GetByID(ctx, itemID)
			if err != nil {
				return err
			}

			stacks := item.Stackable || container == model.ContainerBank
			if !stacks && quantity != 1 {
				return ErrNotStackable
			}

			if container == model.ContainerBank {
				stack, err := inv.FindStack(ctx, playerID, model.ContainerBank, itemID)
				if err != nil {
					return err
				}
				if stack != nil {
					if err := inv.AddQuantity(ctx, playerID, container, stack.SlotIndex, itemID, quantity); err != nil {
						return err
					}
					_, err = s.unlocks.WithTx(tx).LogCollection(ctx, playerID, itemID)
					return err
				}
			}

			occupant, err := inv.GetSlot(ctx, playerID, container, slot)
			if err != nil {
				return err
			}
			switch {
			case occupant == nil:
				if err := inv.InsertSlot(ctx, playerID, container, slot, itemID, quantity); err != nil {
					return err
				}
			case occupant.ItemID == itemID && stacks:
				if err := inv.AddQuantity(ctx, playerID, container, slot, itemID, quantity); err != nil {
					return err
				}
			default:
				return ErrSlotOccupied
			}

			_, err = s.unlocks.WithTx(tx).LogCollection(ctx, playerID, itemID)
			return err
		})
	})
}

// RemoveItem takes quantity out of a slot, clearing it when emptied.
func (s *LedgerService) RemoveItem(ctx context.Context, playerID int64, container string, slot int, quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !validContainer(container) {
		return ErrInvalidContainer
	}
	if !slotInRange(container, slot) {
		return ErrInvalidSlot
	}

	return s.playerLock.WithLock(playerID, func() error {
		return db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
			err := s.inventory.WithTx(tx).RemoveQuantity(ctx, playerID, container, slot, quantity)
			if errors.Is(err, repository.ErrShortQuantity) {
				return ErrInsufficientQuantity
			}
			return err
		})
	})
}

// Equip moves the item in an inventory slot to its equipment slot,
// swapping with whatever was worn there. Equip requirements from the
// catalog are validated first.
func (s *LedgerService) Equip(ctx context.Context, playerID int64, invSlot int) error {
	if !slotInRange(model.ContainerInventory, invSlot) {
		return ErrInvalidSlot
	}

	return s.playerLock.WithLock(playerID, func() error {
		return db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
			inv := s.inventory.WithTx(tx)

			slot, err := inv.GetSlot(ctx, playerID, model.ContainerInventory, invSlot)
			if err != nil {
				return err
			}
			if slot == nil {
				return repository.ErrSlotEmpty
			}

			item, err := s.items.WithTx(tx).GetByID(ctx, slot.ItemID)
			if err != nil {
				return err
			}
			if !item.Equipable || item.EquipSlot == "" {
				return ErrNotEquipable
			}
			if err := s.checkRequirements(ctx, tx, playerID, item); err != nil {
				return err
			}

			worn, err := inv.GetEquipSlot(ctx, playerID, item.EquipSlot)
			if err != nil {
				return err
			}

			if err := inv.DeleteSlot(ctx, playerID, model.ContainerInventory, invSlot); err != nil {
				return err
			}
			if err := inv.SetEquipSlot(ctx, playerID, item.EquipSlot, slot.ItemID, slot.Quantity); err != nil {
				return err
			}
			if worn != nil {
				// Previous item takes the slot the new one vacated.
				return inv.InsertSlot(ctx, playerID, model.ContainerInventory, invSlot, worn.ItemID, worn.Quantity)
			}
			return nil
		})
	})
}

// Unequip returns a worn item to the first free inventory slot, or
// stacks it onto an existing stack of the same item.
func (s *LedgerService) Unequip(ctx context.Context, playerID int64, slotName string) error {
	return s.playerLock.WithLock(playerID, func() error {
		return db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
			inv := s.inventory.WithTx(tx)

			worn, err := inv.GetEquipSlot(ctx, playerID, slotName)
			if err != nil {
				return err
			}
			if worn == nil {
				return ErrNothingEquipped
			}

			item, err := s.items.WithTx(tx).GetByID(ctx, worn.ItemID)
			if err != nil {
				return err
			}

			if item.Stackable {
				stack, err := inv.FindStack(ctx, playerID, model.ContainerInventory, worn.ItemID)
				if err != nil {
					return err
				}
				if stack != nil {
					if err := inv.AddQuantity(ctx, playerID, model.ContainerInventory, stack.SlotIndex, worn.ItemID, worn.Quantity); err != nil {
						return err
					}
					return inv.ClearEquipSlot(ctx, playerID, slotName)
				}
			}

			free, err := inv.FirstFreeSlot(ctx, playerID, model.ContainerInventory)
			if err != nil {
				if errors.Is(err, repository.ErrNoFreeSlot) {
					return ErrInventoryFull
				}
				return err
			}
			if err := inv.InsertSlot(ctx, playerID, model.ContainerInventory, free, worn.ItemID, worn.Quantity); err != nil {
				return err
			}
			return inv.ClearEquipSlot(ctx, playerID, slotName)
		})
	})
}

// checkRequirements validates the item's typed requirements against the
// player's skills, quests and held items.
func (s *LedgerService) checkRequirements(ctx context.Context, tx pgx.Tx, playerID int64, item *model.Item) error {
	for _, req := range item.Requirements {
		switch r := req.(type) {
		case model.LevelRequirement:
			skill, err := s.skills.WithTx(tx).Get(ctx, playerID, r.Skill)
			if err != nil {
				if errors.Is(err, repository.ErrSkillNotFound) {
					return ErrRequirementNotMet
				}
				return err
			}
			if skill.Level < r.Level {
				return ErrRequirementNotMet
			}
		case model.QuestRequirement:
			done, err := s.unlocks.WithTx(tx).HasQuest(ctx, playerID, r.QuestID)
			if err != nil {
				return err
			}
			if !done {
				return ErrRequirementNotMet
			}
		case model.ItemRequirement:
			held, err := s.inventory.WithTx(tx).CountItem(ctx, playerID, model.ContainerInventory, r.ItemID)
			if err != nil {
				return err
			}
			banked, err := s.inventory.WithTx(tx).CountItem(ctx, playerID, model.ContainerBank, r.ItemID)
			if err != nil {
				return err
			}
			if held+banked < r.Quantity {
				return ErrRequirementNotMet
			}
		}
	}
	return nil
}

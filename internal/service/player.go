package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"osrs-game-engine/internal/model"
	"osrs-game-engine/internal/pkg/db"
	"osrs-game-engine/internal/pkg/lock"
	"osrs-game-engine/internal/repository"
)

// PlayerService manages player lifecycle and the aggregate read side.
type PlayerService struct {
	pool          *pgxpool.Pool
	players       *repository.PlayerRepository
	skills        *repository.SkillRepository
	invent        *repository.InventoryRepository
	orders        *repository.OrderRepository
	battles       *repository.BattleRepository
	unlocks       *repository.AchievementRepository
	playerLock    *lock.EntityLock
	startingCoins int64
}

// NewPlayerService creates a new PlayerService instance.
func NewPlayerService(
	pool *pgxpool.Pool,
	players *repository.PlayerRepository,
	skills *repository.SkillRepository,
	invent *repository.InventoryRepository,
	orders *repository.OrderRepository,
	battles *repository.BattleRepository,
	unlocks *repository.AchievementRepository,
	playerLock *lock.EntityLock,
	startingCoins int64,
) *PlayerService {
	return &PlayerService{
		pool:          pool,
		players:       players,
		skills:        skills,
		invent:        invent,
		orders:        orders,
		battles:       battles,
		unlocks:       unlocks,
		playerLock:    playerLock,
		startingCoins: startingCoins,
	}
}

// GetOrCreate returns the player for a Discord account, creating a
// fresh one on first contact. A fresh player gets the 23 baseline
// skill rows and the starting coin purse in one transaction.
func (s *PlayerService) GetOrCreate(ctx context.Context, discordID int64, username string) (*model.Player, error) {
	var player *model.Player
	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		p, created, err := s.players.WithTx(tx).GetOrCreate(ctx, discordID, username, s.startingCoins)
		if err != nil {
			return err
		}
		if created {
			log.Info().
				Int64("player_id", p.ID).
				Int64("discord_id", discordID).
				Str("username", username).
				Msg("player created")
		}
		player = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// Get returns a player by id.
func (s *PlayerService) Get(ctx context.Context, playerID int64) (*model.Player, error) {
	return s.players.GetByID(ctx, playerID)
}

// Snapshot is the full read-side view of one player.
type Snapshot struct {
	Player       *model.Player
	Skills       []*model.Skill
	Inventory    []*model.ItemSlot
	Bank         []*model.ItemSlot
	Equipment    []*model.EquipmentSlot
	Ratings      []*model.BattleRating
	Achievements []*model.Achievement
	Collection   []*model.CollectionEntry
	Orders       []*model.Order
}

// Snapshot assembles the player's complete state in one transaction so
// the view is internally consistent.
func (s *PlayerService) Snapshot(ctx context.Context, playerID int64) (*Snapshot, error) {
	var snap Snapshot
	err := db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		if snap.Player, err = s.players.WithTx(tx).GetByID(ctx, playerID); err != nil {
			return err
		}
		if snap.Skills, err = s.skills.WithTx(tx).GetAll(ctx, playerID); err != nil {
			return err
		}
		inv := s.invent.WithTx(tx)
		if snap.Inventory, err = inv.GetSlots(ctx, playerID, model.ContainerInventory); err != nil {
			return err
		}
		if snap.Bank, err = inv.GetSlots(ctx, playerID, model.ContainerBank); err != nil {
			return err
		}
		if snap.Equipment, err = inv.GetEquipment(ctx, playerID); err != nil {
			return err
		}
		if snap.Ratings, err = s.battles.WithTx(tx).ListRatings(ctx, playerID); err != nil {
			return err
		}
		unlocks := s.unlocks.WithTx(tx)
		if snap.Achievements, err = unlocks.List(ctx, playerID); err != nil {
			return err
		}
		if snap.Collection, err = unlocks.ListCollection(ctx, playerID); err != nil {
			return err
		}
		snap.Orders, err = s.orders.WithTx(tx).ListByPlayer(ctx, playerID, 50)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// AdjustCoins moves the player's purse by amount, which may be
// negative. A debit past zero fails without changing anything.
func (s *PlayerService) AdjustCoins(ctx context.Context, playerID, amount int64) (*model.Player, error) {
	var player *model.Player
	err := s.playerLock.WithLock(playerID, func() error {
		return db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
			p, err := s.players.WithTx(tx).AdjustCoins(ctx, playerID, amount)
			if err != nil {
				if errors.Is(err, repository.ErrInsufficientCoins) {
					return ErrInsufficientBalance
				}
				return err
			}
			player = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// SetStatus applies a soft state to the player.
func (s *PlayerService) SetStatus(ctx context.Context, playerID int64, status string) error {
	return s.players.SetStatus(ctx, playerID, status)
}

// Delete removes the player and all owned rows. Serialized with every
// other mutation on the player so a concurrent write cannot resurrect
// part of their state.
func (s *PlayerService) Delete(ctx context.Context, playerID int64) error {
	return s.playerLock.WithLock(playerID, func() error {
		return db.RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
			return s.players.WithTx(tx).Delete(ctx, playerID)
		})
	})
}

// TopPlayers returns the highscore list by total level.
func (s *PlayerService) TopPlayers(ctx context.Context, limit int) ([]*model.Player, error) {
	return s.players.GetTopByTotalLevel(ctx, limit)
}

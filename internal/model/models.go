// Package model defines the persisted data models for the game engine.
package model

import "time"

// Player represents one player account. Created on first contact and
// never hard-deleted in normal operation; Status carries soft states.
type Player struct {
	ID          int64     `db:"id"`
	DiscordID   int64     `db:"discord_id"`
	Username    string    `db:"username"`
	World       int       `db:"world"`
	Member      bool      `db:"member"`
	Coins       int64     `db:"coins"`
	TotalLevel  int       `db:"total_level"`
	CombatLevel int       `db:"combat_level"`
	QuestPoints int       `db:"quest_points"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Player soft states.
const (
	PlayerStatusActive  = "active"
	PlayerStatusBanned  = "banned"
	PlayerStatusRetired = "retired"
)

// Skill is one (player, skill) row. Experience never decreases; the
// level is derived from experience and never set independently.
type Skill struct {
	PlayerID   int64     `db:"player_id"`
	Name       string    `db:"skill_name"`
	Level      int       `db:"level"`
	Experience int64     `db:"experience"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Item is immutable catalog reference data, never owned by a player row.
type Item struct {
	ID           int64   `db:"id"`
	Name         string  `db:"name"`
	Tradeable    bool    `db:"tradeable"`
	Stackable    bool    `db:"stackable"`
	Equipable    bool    `db:"equipable"`
	EquipSlot    string  `db:"equip_slot"`
	BaseValue    int64   `db:"base_value"`
	HighAlch     int64   `db:"high_alch"`
	LowAlch      int64   `db:"low_alch"`
	Weight       float64 `db:"weight"`
	BuyLimit     int     `db:"buy_limit"`
	Requirements []Requirement
}

// Container names for slot-based item storage.
const (
	ContainerInventory = "inventory"
	ContainerBank      = "bank"
)

// Container capacities.
const (
	InventorySize = 28
	BankSize      = 816
)

// Equipment slot names.
const (
	EquipSlotHead   = "head"
	EquipSlotCape   = "cape"
	EquipSlotNeck   = "neck"
	EquipSlotWeapon = "weapon"
	EquipSlotBody   = "body"
	EquipSlotShield = "shield"
	EquipSlotLegs   = "legs"
	EquipSlotHands  = "hands"
	EquipSlotFeet   = "feet"
	EquipSlotRing   = "ring"
	EquipSlotAmmo   = "ammo"
)

// ItemSlot is one occupied slot in a player's inventory or bank.
// At most one item occupies a (player, container, slot) cell.
type ItemSlot struct {
	PlayerID  int64     `db:"player_id"`
	Container string    `db:"container"`
	SlotIndex int       `db:"slot_index"`
	ItemID    int64     `db:"item_id"`
	Quantity  int64     `db:"quantity"`
	UpdatedAt time.Time `db:"updated_at"`
}

// EquipmentSlot is one worn item. Keyed by slot name rather than index.
type EquipmentSlot struct {
	PlayerID  int64     `db:"player_id"`
	SlotName  string    `db:"slot_name"`
	ItemID    int64     `db:"item_id"`
	Quantity  int64     `db:"quantity"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Order sides.
const (
	OrderSideBuy  = "buy"
	OrderSideSell = "sell"
)

// Order statuses. Transitions are monotonic: active -> completed or
// active -> cancelled, never back.
const (
	OrderStatusActive    = "active"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Order is one Grand Exchange buy or sell order.
// Invariant: 0 <= QuantityFilled <= Quantity.
type Order struct {
	ID             int64     `db:"id"`
	PlayerID       int64     `db:"player_id"`
	ItemID         int64     `db:"item_id"`
	Side           string    `db:"side"`
	Quantity       int64     `db:"quantity"`
	Price          int64     `db:"price"`
	QuantityFilled int64     `db:"quantity_filled"`
	Status         string    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 {
	return o.Quantity - o.QuantityFilled
}

// Trade is one matched fill between a buy and a sell order. Append-only
// price history; rows are never mutated after insert. The order ids are
// nil once the originating order is gone, the trade itself remains.
type Trade struct {
	ID          int64     `db:"id"`
	ItemID      int64     `db:"item_id"`
	BuyOrderID  *int64    `db:"buy_order_id"`
	SellOrderID *int64    `db:"sell_order_id"`
	Quantity    int64     `db:"quantity"`
	Price       int64     `db:"price"`
	ExecutedAt  time.Time `db:"executed_at"`
}

// PriceLevel is one aggregated rung of order-book depth.
type PriceLevel struct {
	Price    int64 `db:"price"`
	Quantity int64 `db:"quantity"`
	Orders   int   `db:"orders"`
}

// Battle categories.
const (
	BattleCategoryDuel     = "duel"
	BattleCategoryCreature = "creature"
	BattleCategoryTourney  = "tournament"
)

// BattleRecord is the immutable outcome of one battle. WinnerID is nil
// for a draw. Payload carries the structured outcome blob as JSON.
type BattleRecord struct {
	ID       int64     `db:"id"`
	Category string    `db:"category"`
	PlayerA  int64     `db:"player_a"`
	PlayerB  int64     `db:"player_b"`
	WinnerID *int64    `db:"winner_id"`
	Duration int       `db:"duration_seconds"`
	Payload  []byte    `db:"payload"`
	FoughtAt time.Time `db:"fought_at"`
}

// BattleOutcome is the structured payload stored with a BattleRecord.
type BattleOutcome struct {
	DamageByA int64 `json:"damage_by_a"`
	DamageByB int64 `json:"damage_by_b"`
}

// BattleRating is one (player, category) rating row. Mutated only by the
// rating engine, both participants together in one transaction.
type BattleRating struct {
	PlayerID    int64      `db:"player_id"`
	Category    string     `db:"category"`
	Rating      float64    `db:"rating"`
	Uncertainty float64    `db:"uncertainty"`
	Wins        int        `db:"wins"`
	Losses      int        `db:"losses"`
	Draws       int        `db:"draws"`
	Streak      int        `db:"streak"`
	BestStreak  int        `db:"best_streak"`
	DamageDealt int64      `db:"damage_dealt"`
	DamageTaken int64      `db:"damage_taken"`
	LastBattle  *time.Time `db:"last_battle_at"`
	RDUpdatedAt time.Time  `db:"rd_updated_at"`
}

// Achievement is a write-once (player, key) unlock marker.
type Achievement struct {
	PlayerID int64     `db:"player_id"`
	Key      string    `db:"achievement_key"`
	EarnedAt time.Time `db:"earned_at"`
}

// CollectionEntry is a write-once (player, item) obtained marker.
type CollectionEntry struct {
	PlayerID   int64     `db:"player_id"`
	ItemID     int64     `db:"item_id"`
	ObtainedAt time.Time `db:"obtained_at"`
}

// Tournament statuses.
const (
	TournamentStatusActive    = "active"
	TournamentStatusCompleted = "completed"
)

// Tournament match statuses.
const (
	MatchStatusPending   = "pending"
	MatchStatusScheduled = "scheduled"
	MatchStatusCompleted = "completed"
)

// Tournament is one single-elimination bracket.
type Tournament struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	Category     string    `db:"category"`
	Status       string    `db:"status"`
	CurrentRound int       `db:"current_round"`
	Rounds       int       `db:"rounds"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// TournamentMatch is one bracket slot. Player fields are nil until the
// feeding matches resolve; a nil player against a real one is a bye.
type TournamentMatch struct {
	ID           int64  `db:"id"`
	TournamentID int64  `db:"tournament_id"`
	Round        int    `db:"round"`
	Position     int    `db:"position"`
	Player1      *int64 `db:"player1_id"`
	Player2      *int64 `db:"player2_id"`
	WinnerID     *int64 `db:"winner_id"`
	Status       string `db:"status"`
}

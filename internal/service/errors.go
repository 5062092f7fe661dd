// Package service provides business logic implementations.
package service

import "errors"

// Validation errors, rejected before any write.
var (
	ErrInvalidQuantity      = errors.New("invalid quantity: must be positive")
	ErrInvalidPrice         = errors.New("invalid price: must be positive")
	ErrInvalidSlot          = errors.New("invalid slot index")
	ErrInvalidContainer     = errors.New("invalid container")
	ErrInvalidSide          = errors.New("invalid order side")
	ErrOrderTooLarge        = errors.New("order value exceeds the coin range")
	ErrUnknownSkill         = errors.New("unknown skill")
	ErrUnknownCategory      = errors.New("unknown battle category")
	ErrSameParticipant      = errors.New("battle requires two distinct participants")
	ErrInvalidWinner        = errors.New("winner is not a participant")
	ErrDuplicateParticipant = errors.New("duplicate tournament participant")
	ErrTooFewParticipants   = errors.New("tournament requires at least two participants")
)

// Constraint and invariant errors.
var (
	ErrSlotOccupied         = errors.New("slot already occupied by a different item")
	ErrNotStackable         = errors.New("item is not stackable")
	ErrExperienceRegression = errors.New("experience cannot decrease")
)

// Resource shortfalls.
var (
	ErrInsufficientBalance  = errors.New("insufficient coins")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrInventoryFull        = errors.New("no free inventory slot")
	ErrBankFull             = errors.New("no free bank slot")
)

// Equipment errors.
var (
	ErrNotEquipable      = errors.New("item is not equipable")
	ErrNothingEquipped   = errors.New("nothing equipped in that slot")
	ErrRequirementNotMet = errors.New("equip requirement not met")
)

// Exchange errors.
var (
	ErrNotTradeable        = errors.New("item is not tradeable")
	ErrTooManyOrders       = errors.New("active order limit reached")
	ErrBuyLimitExceeded    = errors.New("item buy limit exceeded for this window")
	ErrOrderNotCancellable = errors.New("order is not cancellable")
	ErrNotOrderOwner       = errors.New("order belongs to another player")
)

// Tournament errors.
var (
	ErrMatchNotReady        = errors.New("match does not have both participants")
	ErrMatchAlreadyComplete = errors.New("match already completed")
	ErrMatchNotScheduled    = errors.New("match is not scheduled")
	ErrRoundIncomplete      = errors.New("current round has unfinished matches")
	ErrTournamentCompleted  = errors.New("tournament already completed")
)

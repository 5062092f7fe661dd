// Package engine bundles the game services behind one handle. A front
// end (bot, HTTP API, admin tool) takes an Engine and calls the
// service it needs; the engine itself owns no transport.
package engine

import (
	"context"

	"osrs-game-engine/internal/service"
)

// Dependencies carries everything an Engine needs.
type Dependencies struct {
	Players     *service.PlayerService
	Skills      *service.SkillService
	Ledger      *service.LedgerService
	Exchange    *service.ExchangeService
	Battles     *service.BattleService
	Tournaments *service.TournamentService
	Unlocks     *service.UnlockService
	Maintenance *service.MaintenanceService
}

// Engine is the assembled game engine.
type Engine struct {
	Players     *service.PlayerService
	Skills      *service.SkillService
	Ledger      *service.LedgerService
	Exchange    *service.ExchangeService
	Battles     *service.BattleService
	Tournaments *service.TournamentService
	Unlocks     *service.UnlockService

	maintenance *service.MaintenanceService
}

// New assembles an Engine from its dependencies.
func New(deps *Dependencies) *Engine {
	return &Engine{
		Players:     deps.Players,
		Skills:      deps.Skills,
		Ledger:      deps.Ledger,
		Exchange:    deps.Exchange,
		Battles:     deps.Battles,
		Tournaments: deps.Tournaments,
		Unlocks:     deps.Unlocks,
		maintenance: deps.Maintenance,
	}
}

// Run blocks running the background maintenance passes until the
// context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.maintenance.Run(ctx)
}

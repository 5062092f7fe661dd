// Package rating implements the Glicko-like skill rating update used by
// the battle engine. The update itself is pure; persistence and the
// two-player atomicity live in the battle service.
package rating

import "math"

// Score values for one rated battle.
const (
	ScoreWin  = 1.0
	ScoreDraw = 0.5
	ScoreLoss = 0.0
)

// Params holds the model constants. Zero values are replaced by
// Defaults in New.
type Params struct {
	Initial            float64
	InitialUncertainty float64
	MinUncertainty     float64
	MaxUncertainty     float64
	KFactor            float64
	UncertaintyDecay   float64 // per rated battle, geometric toward MinUncertainty
	InactivityGrowth   float64 // per inactivity period, geometric toward MaxUncertainty
}

// Defaults returns the standard model constants.
func Defaults() Params {
	return Params{
		Initial:            1500,
		InitialUncertainty: 350,
		MinUncertainty:     50,
		MaxUncertainty:     350,
		KFactor:            32,
		UncertaintyDecay:   0.95,
		InactivityGrowth:   1.1,
	}
}

// Model applies rating updates under one set of parameters.
type Model struct {
	p Params
}

// New creates a Model, filling zero parameters from Defaults.
func New(p Params) *Model {
	d := Defaults()
	if p.Initial == 0 {
		p.Initial = d.Initial
	}
	if p.InitialUncertainty == 0 {
		p.InitialUncertainty = d.InitialUncertainty
	}
	if p.MinUncertainty == 0 {
		p.MinUncertainty = d.MinUncertainty
	}
	if p.MaxUncertainty == 0 {
		p.MaxUncertainty = d.MaxUncertainty
	}
	if p.KFactor == 0 {
		p.KFactor = d.KFactor
	}
	if p.UncertaintyDecay == 0 {
		p.UncertaintyDecay = d.UncertaintyDecay
	}
	if p.InactivityGrowth == 0 {
		p.InactivityGrowth = d.InactivityGrowth
	}
	return &Model{p: p}
}

// Params returns the model constants in use.
func (m *Model) Params() Params {
	return m.p
}

// Expected returns the expected score of a player rated r against an
// opponent rated opp. Expected(a, b) + Expected(b, a) == 1.
func Expected(r, opp float64) float64 {
	return 1 / (1 + math.Pow(10, (opp-r)/400))
}

// State is one player's rating pair going into an update.
type State struct {
	Rating      float64
	Uncertainty float64
}

// Update returns the post-battle state for a player who scored `score`
// against the given opponent. K scales with the player's uncertainty:
// an uncertain rating moves fast, a settled one slowly. Uncertainty
// decays geometrically toward the floor with every rated battle.
func (m *Model) Update(player, opponent State, score float64) State {
	k := m.p.KFactor * (player.Uncertainty / m.p.InitialUncertainty)
	minK := m.p.KFactor * (m.p.MinUncertainty / m.p.InitialUncertainty)
	if k < minK {
		k = minK
	}

	next := State{
		Rating:      player.Rating + k*(score-Expected(player.Rating, opponent.Rating)),
		Uncertainty: player.Uncertainty * m.p.UncertaintyDecay,
	}
	if next.Uncertainty < m.p.MinUncertainty {
		next.Uncertainty = m.p.MinUncertainty
	}
	return next
}

// Grow returns the uncertainty after the given number of whole
// inactivity periods, capped at MaxUncertainty. Zero periods is a
// no-op, which keeps the maintenance pass idempotent within a period.
func (m *Model) Grow(uncertainty float64, periods int) float64 {
	for i := 0; i < periods; i++ {
		uncertainty *= m.p.InactivityGrowth
		if uncertainty >= m.p.MaxUncertainty {
			return m.p.MaxUncertainty
		}
	}
	return uncertainty
}

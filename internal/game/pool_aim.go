package game

import (
	"math"

	"github.com/playmatatu/eightball/internal/config"
)

// AimState is the in-progress drag, exposed so clients can draw the cue stick.
type AimState struct {
	Active bool    `json:"active"`
	Start  Vec2    `json:"start"`
	Cursor Vec2    `json:"cursor"`
	Power  float64 `json:"power"`
}

// Aimer turns a press-drag-release gesture near the cue ball into a strike.
type Aimer struct {
	state      AimState
	grabFactor float64
	maxDrag    float64
	minDrag    float64
}

func NewAimer(t config.AimTuning) *Aimer {
	return &Aimer{grabFactor: t.GrabRadiusFactor, maxDrag: t.MaxDrag, minDrag: t.MinDrag}
}

// Start begins aiming if m is within grab range of a live cue ball.
func (a *Aimer) Start(m Vec2, pe *PhysicsEngine) bool {
	cue := pe.balls[CueBall]
	if !cue.Alive || m.DistanceTo(cue.Position) > pe.table.BallRadius*a.grabFactor {
		return false
	}
	a.state = AimState{Active: true, Start: m, Cursor: m}
	return true
}

// Update moves the cursor and recomputes power from the drag length.
func (a *Aimer) Update(m Vec2) {
	if !a.state.Active {
		return
	}
	a.state.Cursor = m
	a.state.Power = math.Min(1, m.Minus(a.state.Start).Magnitude()/a.maxDrag)
}

// End releases the aim. Drags shorter than minDrag are ignored.
func (a *Aimer) End(m Vec2, pe *PhysicsEngine) bool {
	if !a.state.Active {
		return false
	}
	a.Update(m)
	drag := m.Minus(a.state.Start)
	power := a.state.Power
	a.Cancel()

	if drag.Magnitude() < a.minDrag {
		return false
	}
	return pe.StrikeCue(drag, power)
}

func (a *Aimer) Cancel() {
	a.state = AimState{}
}

func (a *Aimer) State() AimState {
	return a.state
}

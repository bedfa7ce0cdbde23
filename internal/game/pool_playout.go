package game

import (
	"math/rand"

	"github.com/playmatatu/eightball/internal/config"
)

// maxSettleSteps bounds one shot in a headless play-out. A full-power shot
// settles in a few hundred frames.
const maxSettleSteps = 5000

// PlayOutResult summarises an AI-vs-AI rack.
type PlayOutResult struct {
	Winner   Player        `json:"winner"`
	Reason   string        `json:"reason"`
	Shots    int           `json:"shots"`
	Outcomes []ShotOutcome `json:"outcomes"`
}

// PlayOut is a headless table where both players are driven by the AI.
type PlayOut struct {
	physics *PhysicsEngine
	rules   *Rules
	ai      *AI
	levels  [3]Level // indexed by Player
}

func NewPlayOut(t config.Tuning, level1, level2 Level, rng *rand.Rand) *PlayOut {
	physics := NewPhysicsEngine(NewTable(t))
	rules := NewRules(physics, t.Aim)
	return &PlayOut{
		physics: physics,
		rules:   rules,
		ai:      NewAI(physics, rules, t.AI, rng),
		levels:  [3]Level{"", level1, level2},
	}
}

// Rules exposes the rules engine, for session tallies across racks.
func (po *PlayOut) Rules() *Rules {
	return po.rules
}

// Rack plays one rack to the end or until maxShots. Winner is NoPlayer when the
// shot limit is hit first. onShot, if set, sees every adjudicated shot.
func (po *PlayOut) Rack(maxShots int, onShot func(shot int, out ShotOutcome)) PlayOutResult {
	po.rules.NewRack()
	res := PlayOutResult{}
	current := Player1

	for res.Shots < maxShots && po.rules.Phase() != PhaseEnd {
		po.ai.Shoot(current, po.levels[current])
		po.physics.Settle(maxSettleSteps)
		po.physics.DrainSounds()

		out := po.rules.EndOfShot(current)
		res.Shots++
		res.Outcomes = append(res.Outcomes, out)
		if onShot != nil {
			onShot(res.Shots, out)
		}
		current = out.NextPlayer
	}

	if po.rules.Phase() == PhaseEnd {
		res.Winner = po.rules.Winner()
		for _, o := range res.Outcomes {
			if o.GameEnd != nil {
				res.Reason = o.GameEnd.Reason
			}
		}
	} else {
		res.Reason = "shot limit"
	}
	return res
}

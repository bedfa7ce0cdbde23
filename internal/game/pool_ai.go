package game

import (
	"math"
	"math/rand"

	"github.com/playmatatu/eightball/internal/config"
)

// Mode selects two local players or a human against the AI at some level.
type Mode string

const (
	ModeTwoPlayer Mode = "2p"
	ModeEasy      Mode = "easy"
	ModeMedium    Mode = "medium"
	ModeHard      Mode = "hard"
)

// ParseMode validates a mode string from the wire.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(s); m {
	case ModeTwoPlayer, ModeEasy, ModeMedium, ModeHard:
		return m, true
	}
	return "", false
}

// Level is the AI difficulty for the mode, false in two-player mode.
func (m Mode) Level() (Level, bool) {
	switch m {
	case ModeEasy:
		return LevelEasy, true
	case ModeMedium:
		return LevelMedium, true
	case ModeHard:
		return LevelHard, true
	}
	return "", false
}

type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
)

// ParseLevel validates a level name.
func ParseLevel(s string) (Level, bool) {
	switch l := Level(s); l {
	case LevelEasy, LevelMedium, LevelHard:
		return l, true
	}
	return "", false
}

// Aim is a chosen shot. Direction uses the StrikeCue convention: it points
// from the contact point back toward the cue ball.
type Aim struct {
	Direction Vec2    `json:"direction"`
	Power     float64 `json:"power"`
	Object    int     `json:"object"`
	Pocket    int     `json:"pocket"` // pocket ID, -1 for a safety tap
	Score     float64 `json:"score"`
}

// aiView is the read-only picture of the table a strategy chooses from.
type aiView struct {
	cue        Ball
	candidates []Ball
	objects    []Ball // live object balls other than the 8
	balls      []Ball
	pockets    []Pocket
	radius     float64
	tuning     config.AITuning
	rng        *rand.Rand
}

// ShotStrategy picks a shot for one difficulty level. Nil means no candidate.
type ShotStrategy interface {
	Choose(v *aiView) *Aim
}

// EasyStrategy shoots a random candidate at a random pocket.
type EasyStrategy struct{}

func (EasyStrategy) Choose(v *aiView) *Aim {
	if len(v.candidates) == 0 || len(v.pockets) == 0 {
		return nil
	}
	obj := v.candidates[v.rng.Intn(len(v.candidates))]
	pocket := v.pockets[v.rng.Intn(len(v.pockets))]
	return &Aim{
		Direction: aimVector(v.cue.Position, obj.Position, pocket.Position, v.radius),
		Power:     v.tuning.EasyPower,
		Object:    obj.Number,
		Pocket:    pocket.ID,
	}
}

// MediumStrategy scores every candidate/pocket pair and keeps the best.
type MediumStrategy struct{}

func (MediumStrategy) Choose(v *aiView) *Aim {
	var best *Aim
	for _, obj := range v.candidates {
		for _, pocket := range v.pockets {
			dir := aimVector(v.cue.Position, obj.Position, pocket.Position, v.radius)
			u := dir.Normalize()

			score := 0.0
			if lineClear(v, obj) {
				score = 1
			}
			score += 0.8 * (0.5*math.Abs(u.X) + 0.5*math.Abs(u.Y))
			score += 0.5 / math.Max(1, dir.Magnitude())

			// strict comparison keeps the first of equal scores
			if best == nil || score > best.Score {
				best = &Aim{Direction: dir, Power: v.tuning.MediumPower, Object: obj.Number, Pocket: pocket.ID, Score: score}
			}
		}
	}
	return best
}

// HardStrategy perturbs the medium shot and keeps the sample whose cue path
// opens up the most room.
type HardStrategy struct {
	Base MediumStrategy
}

func (h HardStrategy) Choose(v *aiView) *Aim {
	base := h.Base.Choose(v)
	if base == nil {
		return nil
	}

	var best *Aim
	for i := 0; i < v.tuning.HardSamples; i++ {
		dir := NewVec2(
			base.Direction.X*(1+(v.rng.Float64()-0.5)*v.tuning.AimJitter),
			base.Direction.Y*(1+(v.rng.Float64()-0.5)*v.tuning.AimJitter),
		)
		power := math.Min(v.tuning.HardPowerCap, base.Power*(1+(v.rng.Float64()-0.5)*v.tuning.PowerJitter))
		score := probeScore(v, dir)
		if best == nil || score > best.Score {
			best = &Aim{Direction: dir, Power: power, Object: base.Object, Pocket: base.Pocket, Score: score}
		}
	}
	if best == nil {
		return base
	}
	return best
}

// AI chooses and plays shots for a player. It reads the table through the
// physics engine and the rules, and only acts through PlaceCueInHand and StrikeCue.
type AI struct {
	p          *PhysicsEngine
	r          *Rules
	tuning     config.AITuning
	rng        *rand.Rand
	strategies map[Level]ShotStrategy
}

func NewAI(p *PhysicsEngine, r *Rules, tuning config.AITuning, rng *rand.Rand) *AI {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &AI{
		p:      p,
		r:      r,
		tuning: tuning,
		rng:    rng,
		strategies: map[Level]ShotStrategy{
			LevelEasy:   EasyStrategy{},
			LevelMedium: MediumStrategy{},
			LevelHard:   HardStrategy{},
		},
	}
}

// Select picks a shot for player without touching the table. Nil means no candidate.
func (ai *AI) Select(player Player, level Level) *Aim {
	strategy, ok := ai.strategies[level]
	if !ok {
		strategy = ai.strategies[LevelEasy]
	}
	return strategy.Choose(ai.view(player))
}

// Shoot takes the player's turn: ball-in-hand placement, then the selected
// shot, or a soft safety tap when nothing is worth aiming at. It returns the
// shot played and whether the cue was actually struck.
func (ai *AI) Shoot(player Player, level Level) (Aim, bool) {
	if ai.r.BallInHand() {
		spot := ai.p.table.InHandSpot()
		spot.Y += (ai.rng.Float64() - 0.5) * ai.tuning.InHandJitter
		ai.r.PlaceCueInHand(spot)
	}

	aim := ai.Select(player, level)
	if aim == nil {
		aim = &Aim{Direction: NewVec2(40, 0), Power: ai.tuning.TapPower, Object: NoBall, Pocket: -1}
	}
	return *aim, ai.p.StrikeCue(aim.Direction, aim.Power)
}

func (ai *AI) view(player Player) *aiView {
	balls := ai.p.Balls()
	v := &aiView{
		cue:     balls[CueBall],
		balls:   balls,
		pockets: ai.p.Pockets(),
		radius:  ai.p.table.BallRadius,
		tuning:  ai.tuning,
		rng:     ai.rng,
	}

	suit := ai.r.GroupFor(player)
	for _, b := range balls {
		if !b.Alive || b.IsCue || b.Number == EightBall {
			continue
		}
		v.objects = append(v.objects, b)
		if suit == SuitNone || b.Suit == suit {
			v.candidates = append(v.candidates, b)
		}
	}

	// suit cleared: go for the 8
	if len(v.candidates) == 0 && suit != SuitNone {
		if eight := balls[EightBall]; eight.Alive {
			v.candidates = append(v.candidates, eight)
		}
	}
	return v
}

// aimVector returns cue - contact, where contact sits one ball diameter behind
// the object ball on the line from the pocket through the object.
func aimVector(cue, obj, pocket Vec2, radius float64) Vec2 {
	toPocket := pocket.Minus(obj).Normalize()
	contact := obj.Minus(toPocket.Times(2 * radius))
	return cue.Minus(contact)
}

// lineClear reports whether no other live ball sits near the cue-to-object line.
func lineClear(v *aiView, obj Ball) bool {
	limit := v.radius * v.tuning.ClearLineFactor
	for _, b := range v.balls {
		if !b.Alive || b.IsCue || b.Number == obj.Number {
			continue
		}
		if distanceToSegment(b.Position, v.cue.Position, obj.Position) < limit {
			return false
		}
	}
	return true
}

// probeScore favours shots whose travel direction heads toward an object ball.
func probeScore(v *aiView, dir Vec2) float64 {
	travel := dir.Invert().Normalize()
	probe := v.cue.Position.Plus(travel.Times(v.tuning.ProbeDistance))
	minD := math.Inf(1)
	for _, b := range v.objects {
		minD = math.Min(minD, probe.DistanceTo(b.Position))
	}
	return 1 / math.Max(1, minD)
}

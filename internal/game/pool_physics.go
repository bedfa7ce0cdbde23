package game

import "math"

// Ball represents a single pool ball's physics state.
type Ball struct {
	Number   int  `json:"number"`
	Position Vec2 `json:"position"`
	Velocity Vec2 `json:"velocity"`
	Alive    bool `json:"alive"`
	IsCue    bool `json:"is_cue"`
	Suit     Suit `json:"suit,omitempty"` // set once when the rack is built
}

// Stripe reports whether the ball belongs to the stripes suit.
func (b Ball) Stripe() bool {
	return b.Suit == SuitStripes
}

// SoundKind names the events a client maps to audio samples.
type SoundKind string

const (
	SoundCue     SoundKind = "cue"
	SoundCollide SoundKind = "collide"
	SoundCushion SoundKind = "cushion"
	SoundPocket  SoundKind = "pocket"
)

// SoundEvent records an impact for sound playback.
type SoundEvent struct {
	Kind   SoundKind `json:"kind"`
	Ball   int       `json:"ball"`
	Volume float64   `json:"volume"` // 0-1, scaled by impact speed
}

// ShotTelemetry is what happened during one shot, consumed once by the rules.
type ShotTelemetry struct {
	FirstObjectHit        int   `json:"first_object_hit"` // NoBall if the cue touched nothing
	RailContactedAfterHit bool  `json:"rail_contacted_after_hit"`
	PocketedThisShot      []int `json:"pocketed_this_shot"` // object balls in pocketing order
	Scratch               bool  `json:"scratch"`
}

func newShotTelemetry() ShotTelemetry {
	return ShotTelemetry{FirstObjectHit: NoBall, PocketedThisShot: []int{}}
}

// Pocketed reports whether ball n went down this shot.
func (s ShotTelemetry) Pocketed(n int) bool {
	for _, p := range s.PocketedThisShot {
		if p == n {
			return true
		}
	}
	return false
}

func (s ShotTelemetry) clone() ShotTelemetry {
	c := s
	c.PocketedThisShot = append([]int{}, s.PocketedThisShot...)
	return c
}

// PhysicsEngine owns the balls and integrates their motion.
// Rules and AI read snapshots and change the table only through its methods.
type PhysicsEngine struct {
	balls     [NumBalls]*Ball // indexed by ball number
	table     *Table
	shot      ShotTelemetry
	sounds    []SoundEvent
	anyMoving bool
}

// NewPhysicsEngine creates a physics engine on the given table with a fresh rack.
func NewPhysicsEngine(table *Table) *PhysicsEngine {
	pe := &PhysicsEngine{table: table}
	for i := range pe.balls {
		pe.balls[i] = &Ball{Number: i}
	}
	pe.PlaceRack()
	return pe
}

// Table returns the table geometry.
func (pe *PhysicsEngine) Table() *Table {
	return pe.table
}

// Pockets returns a copy of the pocket list.
func (pe *PhysicsEngine) Pockets() []Pocket {
	return append([]Pocket{}, pe.table.Pockets...)
}

// PlaceRack resets all 16 balls to the standard triangle plus cue ball and clears telemetry.
func (pe *PhysicsEngine) PlaceRack() {
	pos := pe.table.StandardRack()
	for n := 0; n < NumBalls; n++ {
		*pe.balls[n] = Ball{
			Number:   n,
			Position: pos[n],
			Alive:    true,
			IsCue:    n == CueBall,
			Suit:     suitOf(n),
		}
	}
	pe.anyMoving = false
	pe.sounds = nil
	pe.ResetShotTelemetry()
}

// ResetShotTelemetry clears the shot record.
func (pe *PhysicsEngine) ResetShotTelemetry() {
	pe.shot = newShotTelemetry()
}

// Shot returns a copy of the telemetry accumulated since the last strike.
func (pe *PhysicsEngine) Shot() ShotTelemetry {
	return pe.shot.clone()
}

// TakeShot hands the telemetry over and clears it.
func (pe *PhysicsEngine) TakeShot() ShotTelemetry {
	s := pe.shot.clone()
	pe.ResetShotTelemetry()
	return s
}

// Balls returns a snapshot of every ball, indexed by number.
func (pe *PhysicsEngine) Balls() []Ball {
	out := make([]Ball, NumBalls)
	for i, b := range pe.balls {
		out[i] = *b
	}
	return out
}

// Ball returns a copy of ball n.
func (pe *PhysicsEngine) Ball(n int) (Ball, bool) {
	if n < 0 || n >= NumBalls {
		return Ball{}, false
	}
	return *pe.balls[n], true
}

// AnyMoving reports the value computed by the last Step (or set by a strike).
func (pe *PhysicsEngine) AnyMoving() bool {
	return pe.anyMoving
}

// DrainSounds returns the sound events since the last call.
func (pe *PhysicsEngine) DrainSounds() []SoundEvent {
	s := pe.sounds
	pe.sounds = nil
	return s
}

// StrikeCue launches the cue ball opposite to dir (dir points from the cursor back
// toward the cue, like drawing a cue stick). Power is a 0-1 fraction of MaxSpeed.
// Returns false without touching anything if the cue is off the table or balls are moving.
func (pe *PhysicsEngine) StrikeCue(dir Vec2, power float64) bool {
	cue := pe.balls[CueBall]
	if !cue.Alive || pe.moving() {
		return false
	}

	l := dir.Magnitude()
	if l == 0 {
		l = 1
	}
	power = clamp(power, 0, 1)
	speed := power * pe.table.MaxSpeed
	cue.Velocity = NewVec2(-dir.X/l*speed, -dir.Y/l*speed)

	pe.ResetShotTelemetry()
	pe.anyMoving = pe.moving()
	pe.emit(SoundCue, CueBall, 0.7*power)
	return true
}

// PlaceCueAt clamps (x, y) into the play area and pushes the cue ball out of any
// overlap with other live balls. Other balls are never moved.
func (pe *PhysicsEngine) PlaceCueAt(x, y float64) {
	cue := pe.balls[CueBall]
	minX, maxX, minY, maxY := pe.table.Bounds()
	cue.Position = NewVec2(clamp(x, minX, maxX), clamp(y, minY, maxY))

	minD := pe.table.BallRadius * 2
	for _, b := range pe.balls {
		if !b.Alive || b == cue {
			continue
		}
		d := cue.Position.DistanceTo(b.Position)
		if d >= minD {
			continue
		}
		n := NewVec2(1, 0)
		if d > 0 {
			n = cue.Position.Minus(b.Position).Times(1 / d)
		}
		cue.Position = cue.Position.Plus(n.Times(minD - d + 0.5))
	}
	cue.Position = NewVec2(clamp(cue.Position.X, minX, maxX), clamp(cue.Position.Y, minY, maxY))
}

// ReviveCue brings a pocketed cue ball back on the head spot for ball-in-hand.
func (pe *PhysicsEngine) ReviveCue() {
	cue := pe.balls[CueBall]
	if cue.Alive {
		return
	}
	cue.Alive = true
	cue.Velocity = Vec2{}
	spot := pe.table.HeadSpot()
	pe.PlaceCueAt(spot.X, spot.Y)
}

// RespotEight puts the 8-ball back on its rack spot.
func (pe *PhysicsEngine) RespotEight() {
	eight := pe.balls[EightBall]
	eight.Alive = true
	eight.Velocity = Vec2{}
	eight.Position = pe.table.EightSpot()
}

// Step advances the simulation by one frame (SubSteps integrations).
func (pe *PhysicsEngine) Step() {
	for k := 0; k < pe.table.SubSteps; k++ {
		pe.integrate()
	}
	pe.anyMoving = pe.moving()
}

// Settle steps until nothing moves or maxSteps frames have run. Returns the frames used.
func (pe *PhysicsEngine) Settle(maxSteps int) int {
	steps := 0
	for steps < maxSteps && pe.moving() {
		pe.Step()
		steps++
	}
	pe.anyMoving = pe.moving()
	return steps
}

func (pe *PhysicsEngine) moving() bool {
	for _, b := range pe.balls {
		if b.Alive && !pe.atRest(b) {
			return true
		}
	}
	return false
}

func (pe *PhysicsEngine) atRest(b *Ball) bool {
	slow := pe.table.StopThreshold
	return math.Abs(b.Velocity.X) <= slow && math.Abs(b.Velocity.Y) <= slow
}

func (pe *PhysicsEngine) integrate() {
	slow := pe.table.StopThreshold
	fric := pe.table.Friction

	// motion + friction
	for _, b := range pe.balls {
		if !b.Alive {
			continue
		}
		if pe.atRest(b) {
			b.Velocity = Vec2{}
			continue
		}
		b.Position = b.Position.Plus(b.Velocity)
		b.Velocity = b.Velocity.Times(fric)
		if math.Abs(b.Velocity.X) < slow {
			b.Velocity.X = 0
		}
		if math.Abs(b.Velocity.Y) < slow {
			b.Velocity.Y = 0
		}
	}

	// pockets, then cushions for whatever is still on the table
	for _, b := range pe.balls {
		if !b.Alive {
			continue
		}
		if pe.capture(b) {
			continue
		}
		pe.reflect(b)
	}

	for pass := 0; pass < pe.table.CollisionPasses; pass++ {
		pe.resolveCollisions()
	}

	// separation can push a ball back past a cushion; clamp position only
	minX, maxX, minY, maxY := pe.table.Bounds()
	for _, b := range pe.balls {
		if !b.Alive {
			continue
		}
		b.Position.X = math.Max(minX, math.Min(maxX, b.Position.X))
		b.Position.Y = math.Max(minY, math.Min(maxY, b.Position.Y))
	}
}

// capture pockets b if its center is inside a pocket's capture radius.
func (pe *PhysicsEngine) capture(b *Ball) bool {
	limit := pe.table.PocketRadius - pe.table.PocketEpsilon
	for _, p := range pe.table.Pockets {
		if b.Position.DistanceTo(p.Position) >= limit {
			continue
		}
		b.Alive = false
		b.Velocity = Vec2{}
		if b.IsCue {
			pe.shot.Scratch = true
			pe.emit(SoundPocket, b.Number, 0.6)
		} else {
			pe.shot.PocketedThisShot = append(pe.shot.PocketedThisShot, b.Number)
			pe.emit(SoundPocket, b.Number, 0.8)
		}
		return true
	}
	return false
}

// reflect clamps b to the cushions and bounces it with restitution.
func (pe *PhysicsEngine) reflect(b *Ball) {
	minX, maxX, minY, maxY := pe.table.Bounds()
	rest := pe.table.Restitution
	speed := b.Velocity.Magnitude()
	hit := false

	if b.Position.X < minX {
		b.Position.X = minX
		b.Velocity.X = -b.Velocity.X * rest
		hit = true
	}
	if b.Position.X > maxX {
		b.Position.X = maxX
		b.Velocity.X = -b.Velocity.X * rest
		hit = true
	}
	if b.Position.Y < minY {
		b.Position.Y = minY
		b.Velocity.Y = -b.Velocity.Y * rest
		hit = true
	}
	if b.Position.Y > maxY {
		b.Position.Y = maxY
		b.Velocity.Y = -b.Velocity.Y * rest
		hit = true
	}

	if hit {
		pe.shot.RailContactedAfterHit = true
		pe.emit(SoundCushion, b.Number, math.Min(0.35, speed*0.1))
	}
}

// resolveCollisions runs one pairwise pass: positional separation, then an
// equal-mass elastic impulse along the contact normal for approaching pairs.
func (pe *PhysicsEngine) resolveCollisions() {
	minD := pe.table.BallRadius * 2
	for i := 0; i < NumBalls; i++ {
		a := pe.balls[i]
		if !a.Alive {
			continue
		}
		for j := i + 1; j < NumBalls; j++ {
			b := pe.balls[j]
			if !b.Alive {
				continue
			}
			delta := b.Position.Minus(a.Position)
			d := delta.Magnitude()
			if d <= 0 || d >= minD {
				continue
			}

			n := delta.Times(1 / d)
			overlap := (minD - d) / 2
			a.Position = a.Position.Minus(n.Times(overlap))
			b.Position = b.Position.Plus(n.Times(overlap))

			vn := b.Velocity.Minus(a.Velocity).Dot(n)
			if vn < 0 {
				impulse := n.Times(-2 * vn / 2)
				a.Velocity = a.Velocity.Minus(impulse)
				b.Velocity = b.Velocity.Plus(impulse)
				pe.emit(SoundCollide, a.Number, math.Min(0.55, math.Abs(vn)*0.18))
			}

			if pe.shot.FirstObjectHit == NoBall {
				if a.IsCue && !b.IsCue {
					pe.shot.FirstObjectHit = b.Number
				} else if b.IsCue && !a.IsCue {
					pe.shot.FirstObjectHit = a.Number
				}
			}
		}
	}
}

func (pe *PhysicsEngine) emit(kind SoundKind, ball int, volume float64) {
	pe.sounds = append(pe.sounds, SoundEvent{Kind: kind, Ball: ball, Volume: clamp(volume, 0, 1)})
}

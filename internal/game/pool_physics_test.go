package game

import (
	"math"
	"testing"
)

// newEmptyTable returns an engine with only the cue ball alive, at rest at (x, y).
func newEmptyTable(x, y float64) *PhysicsEngine {
	pe := NewPhysicsEngine(NewStandardTable())
	for _, b := range pe.balls {
		b.Alive = b.IsCue
		b.Velocity = Vec2{}
	}
	pe.balls[CueBall].Position = NewVec2(x, y)
	return pe
}

func setBall(pe *PhysicsEngine, n int, x, y float64) *Ball {
	b := pe.balls[n]
	b.Alive = true
	b.Position = NewVec2(x, y)
	b.Velocity = Vec2{}
	return b
}

func kineticEnergy(pe *PhysicsEngine) float64 {
	e := 0.0
	for _, b := range pe.balls {
		if b.Alive {
			e += b.Velocity.Dot(b.Velocity) / 2
		}
	}
	return e
}

func TestRackPlacement(t *testing.T) {
	pe := NewPhysicsEngine(NewStandardTable())
	table := pe.Table()
	minX, maxX, minY, maxY := table.Bounds()

	balls := pe.Balls()
	if len(balls) != NumBalls {
		t.Fatalf("got %d balls, want %d", len(balls), NumBalls)
	}
	for i, b := range balls {
		if b.Number != i || !b.Alive {
			t.Errorf("ball %d: number=%d alive=%v", i, b.Number, b.Alive)
		}
		if b.Position.X < minX || b.Position.X > maxX || b.Position.Y < minY || b.Position.Y > maxY {
			t.Errorf("ball %d out of bounds: %+v", i, b.Position)
		}
		for j := i + 1; j < len(balls); j++ {
			if d := b.Position.DistanceTo(balls[j].Position); d < 2*table.BallRadius {
				t.Errorf("balls %d and %d overlap: d=%.2f", i, j, d)
			}
		}
	}

	if balls[CueBall].Position != table.HeadSpot() {
		t.Errorf("cue at %+v, want head spot %+v", balls[CueBall].Position, table.HeadSpot())
	}
	if balls[EightBall].Position != table.EightSpot() {
		t.Errorf("8 at %+v, want %+v", balls[EightBall].Position, table.EightSpot())
	}
	if !balls[CueBall].IsCue || balls[1].Suit != SuitSolids || balls[9].Suit != SuitStripes || balls[EightBall].Suit != SuitNone {
		t.Error("suit tags not set at rack time")
	}

	shot := pe.Shot()
	if shot.FirstObjectHit != NoBall || shot.Scratch || shot.RailContactedAfterHit || len(shot.PocketedThisShot) != 0 {
		t.Errorf("telemetry not clear after rack: %+v", shot)
	}
}

func TestRestIsFixedPoint(t *testing.T) {
	pe := NewPhysicsEngine(NewStandardTable())
	pe.balls[3].Velocity = NewVec2(0.015, -0.01) // under the stop threshold
	before := pe.Balls()

	pe.Step()

	after := pe.Balls()
	for i := range before {
		if before[i].Position != after[i].Position {
			t.Errorf("ball %d moved at rest: %+v -> %+v", i, before[i].Position, after[i].Position)
		}
		if !after[i].Velocity.IsZero() {
			t.Errorf("ball %d velocity not zeroed: %+v", i, after[i].Velocity)
		}
	}
	if pe.AnyMoving() {
		t.Error("AnyMoving() true for a resting table")
	}
}

func TestStrikeCueDirectionAndSpeed(t *testing.T) {
	pe := newEmptyTable(300, 250)

	// aim vector points from the cursor back to the cue: cue travels the other way
	if !pe.StrikeCue(NewVec2(-50, 0), 0.5) {
		t.Fatal("StrikeCue() rejected on a resting table")
	}
	v := pe.balls[CueBall].Velocity
	want := 0.5 * pe.Table().MaxSpeed
	if math.Abs(v.X-want) > 1e-9 || v.Y != 0 {
		t.Errorf("velocity = %+v, want (%.3f, 0)", v, want)
	}
	if !pe.AnyMoving() {
		t.Error("AnyMoving() false right after a strike")
	}

	sounds := pe.DrainSounds()
	if len(sounds) != 1 || sounds[0].Kind != SoundCue || math.Abs(sounds[0].Volume-0.35) > 1e-9 {
		t.Errorf("sounds = %+v, want one cue sound at 0.35", sounds)
	}
}

func TestStrikeCueClampsPower(t *testing.T) {
	pe := newEmptyTable(300, 250)
	pe.StrikeCue(NewVec2(0, 10), 4)
	if got := pe.balls[CueBall].Velocity.Magnitude(); math.Abs(got-pe.Table().MaxSpeed) > 1e-9 {
		t.Errorf("speed = %.3f, want MaxSpeed %.3f", got, pe.Table().MaxSpeed)
	}
}

func TestStrikeCueRejected(t *testing.T) {
	pe := newEmptyTable(300, 250)
	pe.StrikeCue(NewVec2(-10, 0), 0.5)
	if pe.StrikeCue(NewVec2(0, -10), 1) {
		t.Error("StrikeCue() accepted while balls are moving")
	}

	dead := newEmptyTable(300, 250)
	dead.balls[CueBall].Alive = false
	if dead.StrikeCue(NewVec2(-10, 0), 0.5) {
		t.Error("StrikeCue() accepted with the cue ball pocketed")
	}
}

func TestStrikeResetsTelemetry(t *testing.T) {
	pe := newEmptyTable(300, 250)
	pe.shot = ShotTelemetry{FirstObjectHit: 5, RailContactedAfterHit: true, PocketedThisShot: []int{2}, Scratch: true}

	pe.StrikeCue(NewVec2(-10, 0), 0.2)

	shot := pe.Shot()
	if shot.FirstObjectHit != NoBall || shot.RailContactedAfterHit || shot.Scratch || len(shot.PocketedThisShot) != 0 {
		t.Errorf("telemetry survived the strike: %+v", shot)
	}
}

func TestStraightShotRecordsFirstHit(t *testing.T) {
	pe := newEmptyTable(200, 250)
	setBall(pe, 5, 400, 250)
	setBall(pe, 12, 500, 250)

	pe.StrikeCue(NewVec2(-10, 0), 0.6)
	pe.Settle(5000)

	if got := pe.Shot().FirstObjectHit; got != 5 {
		t.Errorf("FirstObjectHit = %d, want 5", got)
	}
	if pe.balls[5].Position.X <= 400 {
		t.Errorf("ball 5 did not move right: x=%.2f", pe.balls[5].Position.X)
	}
	if pe.AnyMoving() {
		t.Error("table still moving after Settle")
	}
}

func TestHeadOnCollisionTransfersVelocity(t *testing.T) {
	pe := newEmptyTable(300, 250)
	setBall(pe, 1, 319, 250) // overlapping by one unit
	pe.balls[CueBall].Velocity = NewVec2(2, 0)

	pe.resolveCollisions()

	cue, obj := pe.balls[CueBall], pe.balls[1]
	if math.Abs(cue.Velocity.X) > 1e-9 || math.Abs(obj.Velocity.X-2) > 1e-9 {
		t.Errorf("after impact cue=%+v obj=%+v, want cue at rest and obj at 2", cue.Velocity, obj.Velocity)
	}
	if d := cue.Position.DistanceTo(obj.Position); math.Abs(d-2*pe.Table().BallRadius) > 1e-9 {
		t.Errorf("balls not separated to contact: d=%.4f", d)
	}
	if pe.Shot().FirstObjectHit != 1 {
		t.Errorf("FirstObjectHit = %d, want 1", pe.Shot().FirstObjectHit)
	}
}

func TestCollisionConservesNormalMomentum(t *testing.T) {
	cases := []struct {
		name   string
		va, vb Vec2
		pb     Vec2
	}{
		{"oblique", NewVec2(3, 1), NewVec2(-0.5, 0.2), NewVec2(315, 258)},
		{"glancing", NewVec2(2, 0), NewVec2(0, 0), NewVec2(312, 265)},
		{"both moving", NewVec2(1, -1), NewVec2(-2, 0.5), NewVec2(305, 240)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pe := newEmptyTable(300, 250)
			a := pe.balls[CueBall]
			b := setBall(pe, 4, tc.pb.X, tc.pb.Y)
			a.Velocity, b.Velocity = tc.va, tc.vb

			n := b.Position.Minus(a.Position).Normalize()
			momentumBefore := a.Velocity.Plus(b.Velocity)
			relBefore := b.Velocity.Minus(a.Velocity).Dot(n)

			pe.resolveCollisions()

			momentumAfter := a.Velocity.Plus(b.Velocity)
			relAfter := b.Velocity.Minus(a.Velocity).Dot(n)
			if momentumAfter.DistanceTo(momentumBefore) > 1e-9 {
				t.Errorf("momentum %+v -> %+v", momentumBefore, momentumAfter)
			}
			if math.Abs(math.Abs(relAfter)-math.Abs(relBefore)) > 1e-9 {
				t.Errorf("normal relative speed %.6f -> %.6f", relBefore, relAfter)
			}
			if relBefore < 0 && relAfter < 0 {
				t.Errorf("balls still approaching after impulse: %.6f", relAfter)
			}
		})
	}
}

func TestCushionReflectionStaysInBounds(t *testing.T) {
	table := NewStandardTable()
	minX, maxX, minY, maxY := table.Bounds()

	cases := []struct {
		name string
		pos  Vec2
		vel  Vec2
	}{
		{"past left", NewVec2(minX-7, 200), NewVec2(-5, 1)},
		{"past right", NewVec2(maxX+30, 300), NewVec2(6, 0)},
		{"past top", NewVec2(300, minY-3), NewVec2(0, -2)},
		{"past bottom", NewVec2(700, maxY+12), NewVec2(1, 7)},
		{"corner", NewVec2(maxX+5, maxY+5), NewVec2(4, 4)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pe := newEmptyTable(300, 250)
			b := setBall(pe, 6, tc.pos.X, tc.pos.Y)
			b.Velocity = tc.vel

			pe.reflect(b)

			if b.Position.X < minX || b.Position.X > maxX || b.Position.Y < minY || b.Position.Y > maxY {
				t.Errorf("ball outside bounds after reflect: %+v", b.Position)
			}
			if !pe.Shot().RailContactedAfterHit {
				t.Error("rail contact not recorded")
			}
		})
	}
}

func TestCollisionAgainstCushionStaysInBounds(t *testing.T) {
	table := NewStandardTable()
	minX, maxX, minY, maxY := table.Bounds()
	y := table.Play.Y + table.Play.H/2

	pe := newEmptyTable(minX+2*table.BallRadius+1, y)
	pe.balls[CueBall].Velocity = NewVec2(-3, 0)
	setBall(pe, 1, minX, y)

	for i := 0; i < 5; i++ {
		pe.Step()
		for _, b := range pe.Balls() {
			if !b.Alive {
				continue
			}
			if b.Position.X < minX || b.Position.X > maxX || b.Position.Y < minY || b.Position.Y > maxY {
				t.Fatalf("step %d: ball %d at %+v outside [%.3f,%.3f]x[%.3f,%.3f]",
					i, b.Number, b.Position, minX, maxX, minY, maxY)
			}
		}
	}
}

func TestCushionBounce(t *testing.T) {
	pe := newEmptyTable(120, 250)
	pe.balls[CueBall].Velocity = NewVec2(-5, 0)
	rest := pe.Table().Restitution

	for i := 0; i < 100 && pe.balls[CueBall].Velocity.X <= 0; i++ {
		pe.Step()
	}

	v := pe.balls[CueBall].Velocity
	if v.X <= 0 {
		t.Fatalf("ball never bounced off the left cushion: v=%+v", v)
	}
	if v.X > 5*rest {
		t.Errorf("rebound speed %.3f exceeds restitution bound %.3f", v.X, 5*rest)
	}

	var cushion bool
	for _, s := range pe.DrainSounds() {
		if s.Kind == SoundCushion {
			cushion = s.Volume > 0 && s.Volume <= 0.35
		}
	}
	if !cushion {
		t.Error("no cushion sound in range")
	}
}

func TestPocketCapture(t *testing.T) {
	pe := newEmptyTable(400, 250)
	ball := setBall(pe, 3, 62, 62)
	ball.Velocity = NewVec2(-3, -3)

	pe.Step()

	if ball.Alive {
		t.Fatalf("ball 3 not captured at %+v", ball.Position)
	}
	shot := pe.Shot()
	if !shot.Pocketed(3) || len(shot.PocketedThisShot) != 1 {
		t.Errorf("PocketedThisShot = %v, want [3]", shot.PocketedThisShot)
	}
	if shot.Scratch {
		t.Error("object ball pocket flagged as scratch")
	}
}

func TestScratchAndRevive(t *testing.T) {
	pe := newEmptyTable(480, 70)
	pe.balls[CueBall].Velocity = NewVec2(0, -4)

	pe.Settle(100)

	if pe.balls[CueBall].Alive {
		t.Fatal("cue ball not captured by the side pocket")
	}
	if !pe.Shot().Scratch {
		t.Error("scratch not recorded")
	}
	if pe.StrikeCue(NewVec2(-1, 0), 0.5) {
		t.Error("dead cue ball accepted a strike")
	}

	pe.ReviveCue()
	cue := pe.balls[CueBall]
	if !cue.Alive || cue.Position != pe.Table().HeadSpot() || !cue.Velocity.IsZero() {
		t.Errorf("revived cue = %+v", *cue)
	}
}

func TestPlaceCueAtClampsAndSeparates(t *testing.T) {
	pe := newEmptyTable(300, 250)
	minX, maxX, minY, maxY := pe.Table().Bounds()

	pe.PlaceCueAt(-500, 5000)
	if p := pe.balls[CueBall].Position; p.X != minX || p.Y != maxY {
		t.Errorf("clamped to %+v, want (%.1f, %.1f)", p, minX, maxY)
	}

	other := setBall(pe, 7, 400, 250)
	other.Velocity = NewVec2(0.5, 0)
	pe.PlaceCueAt(405, 250)

	cue := pe.balls[CueBall]
	if d := cue.Position.DistanceTo(other.Position); d < 2*pe.Table().BallRadius {
		t.Errorf("cue still overlaps ball 7: d=%.2f", d)
	}
	if other.Position != NewVec2(400, 250) || other.Velocity != NewVec2(0.5, 0) {
		t.Errorf("placement disturbed ball 7: %+v", *other)
	}

	// pushed against a cushion it is clamped back inside
	setBall(pe, 2, maxX, 300)
	pe.PlaceCueAt(maxX-3, 300)
	if p := pe.balls[CueBall].Position; p.X < minX || p.X > maxX || p.Y < minY || p.Y > maxY {
		t.Errorf("placement left the table: %+v", p)
	}
}

func TestBreakShot(t *testing.T) {
	pe := NewPhysicsEngine(NewStandardTable())
	rack := pe.Balls()

	pe.StrikeCue(NewVec2(-100, 0), 1)
	energy := kineticEnergy(pe)

	for i := 0; i < 5000 && pe.AnyMoving(); i++ {
		pe.Step()
		e := kineticEnergy(pe)
		if e > energy*(1+1e-9)+1e-12 {
			t.Fatalf("kinetic energy grew at step %d: %.6f -> %.6f", i, energy, e)
		}
		energy = e
	}

	if pe.AnyMoving() {
		t.Fatal("break never settled")
	}
	if pe.Shot().FirstObjectHit == NoBall {
		t.Error("break recorded no first contact")
	}

	moved := 0
	for i, b := range pe.Balls() {
		if i != CueBall && b.Position.DistanceTo(rack[i].Position) > 1 {
			moved++
		}
	}
	if moved < 5 {
		t.Errorf("only %d object balls moved on the break", moved)
	}
}

func TestDeterminism(t *testing.T) {
	a := NewPhysicsEngine(NewStandardTable())
	b := NewPhysicsEngine(NewStandardTable())
	a.StrikeCue(NewVec2(-80, 6), 0.9)
	b.StrikeCue(NewVec2(-80, 6), 0.9)
	a.Settle(5000)
	b.Settle(5000)

	ba, bb := a.Balls(), b.Balls()
	for i := range ba {
		if ba[i] != bb[i] {
			t.Errorf("ball %d diverged: %+v vs %+v", i, ba[i], bb[i])
		}
	}
}

func TestRespotEight(t *testing.T) {
	pe := NewPhysicsEngine(NewStandardTable())
	pe.balls[EightBall].Alive = false
	pe.balls[EightBall].Position = NewVec2(46, 46)

	pe.RespotEight()

	eight := pe.balls[EightBall]
	if !eight.Alive || eight.Position != pe.Table().EightSpot() {
		t.Errorf("8 after respot = %+v", *eight)
	}
}

package game

import (
	"testing"

	"github.com/playmatatu/eightball/internal/config"
)

func newTestRules() (*Rules, *PhysicsEngine) {
	pe := NewPhysicsEngine(NewStandardTable())
	return NewRules(pe, config.DefaultTuning().Aim), pe
}

// fakeShot writes telemetry as if a shot had just settled, killing pocketed balls.
func fakeShot(pe *PhysicsEngine, first int, rail bool, pocketed ...int) {
	pe.shot = newShotTelemetry()
	pe.shot.FirstObjectHit = first
	pe.shot.RailContactedAfterHit = rail
	for _, n := range pocketed {
		pe.balls[n].Alive = false
		if n == CueBall {
			pe.shot.Scratch = true
			continue
		}
		pe.shot.PocketedThisShot = append(pe.shot.PocketedThisShot, n)
	}
}

// groupTable skips to GROUPED with player 1 on the given suit.
func groupTable(r *Rules, p1 Suit) {
	r.groups = &Groups{P1: p1, P2: p1.Opposite()}
	r.phase = PhaseGrouped
	r.legalTarget = Target(p1)
}

// clearSuit pockets every ball of a suit.
func clearSuit(pe *PhysicsEngine, s Suit) {
	for _, b := range pe.balls {
		if b.Suit == s {
			b.Alive = false
		}
	}
}

func TestBreakPocketingEightRespots(t *testing.T) {
	r, pe := newTestRules()
	fakeShot(pe, 11, true, EightBall)

	out := r.EndOfShot(Player1)

	if out.GameEnd != nil {
		t.Fatalf("break 8 ended the game: %+v", out.GameEnd)
	}
	if r.Phase() != PhaseOpen {
		t.Errorf("phase = %s, want OPEN", r.Phase())
	}
	if r.Winner() != NoPlayer {
		t.Errorf("winner = %d, want none", r.Winner())
	}
	eight, _ := pe.Ball(EightBall)
	if !eight.Alive || eight.Position != pe.Table().EightSpot() {
		t.Errorf("8 not respotted: %+v", eight)
	}
	if !out.EightRespotted {
		t.Error("EightRespotted not reported")
	}
	if out.Foul != FoulNone {
		t.Errorf("foul = %q, want none", out.Foul)
	}
}

func TestBreakDoesNotAssignGroups(t *testing.T) {
	r, pe := newTestRules()
	fakeShot(pe, 11, true, 3, EightBall)

	out := r.EndOfShot(Player1)

	if r.Groups() != nil || out.GroupsAssigned {
		t.Errorf("groups assigned on the break: %+v", r.Groups())
	}
	if !out.ShooterContinues || out.NextPlayer != Player1 {
		t.Errorf("break pot should keep the turn: %+v", out)
	}
	if r.LegalTarget() != TargetAny {
		t.Errorf("legal target = %s, want any", r.LegalTarget())
	}
}

func TestFirstLegalPotAssignsGroups(t *testing.T) {
	r, pe := newTestRules()
	r.phase = PhaseOpen
	fakeShot(pe, 10, true, 10)

	out := r.EndOfShot(Player2)

	g := r.Groups()
	if g == nil || g.P2 != SuitStripes || g.P1 != SuitSolids {
		t.Fatalf("groups = %+v, want P1 solids, P2 stripes", g)
	}
	if !out.GroupsAssigned || r.Phase() != PhaseGrouped {
		t.Errorf("phase = %s, assigned = %v", r.Phase(), out.GroupsAssigned)
	}
	if got := r.Score(Player2); len(got) != 1 || got[0] != 10 {
		t.Errorf("score(P2) = %v, want [10]", got)
	}
	if !out.ShooterContinues || out.NextPlayer != Player2 {
		t.Errorf("shooter should continue: %+v", out)
	}
	if r.LegalTarget() != TargetStripes {
		t.Errorf("legal target = %s, want stripes", r.LegalTarget())
	}
}

func TestFoulBlocksGroupAssignment(t *testing.T) {
	r, pe := newTestRules()
	r.phase = PhaseOpen
	fakeShot(pe, 10, true, 10, CueBall)

	r.EndOfShot(Player1)

	if r.Groups() != nil || r.Phase() != PhaseOpen {
		t.Errorf("foul shot assigned groups: phase=%s groups=%+v", r.Phase(), r.Groups())
	}
}

func TestOpponentSuitOnlyPassesTurn(t *testing.T) {
	r, pe := newTestRules()
	groupTable(r, SuitSolids)
	fakeShot(pe, 3, true, 12)

	out := r.EndOfShot(Player1)

	if out.Foul != FoulNone {
		t.Errorf("foul = %q, want none", out.Foul)
	}
	if out.NextPlayer != Player2 || out.ShooterContinues {
		t.Errorf("turn should pass: %+v", out)
	}
	if len(r.Score(Player1)) != 0 || len(out.Scored) != 0 {
		t.Errorf("opponent ball scored for shooter: %v", r.Score(Player1))
	}
	if r.BallInHand() {
		t.Error("ball in hand without a foul")
	}
}

func TestOwnSuitPotScoresAndContinues(t *testing.T) {
	r, pe := newTestRules()
	groupTable(r, SuitSolids)
	fakeShot(pe, 3, false, 3, 12)

	out := r.EndOfShot(Player1)

	if out.Foul != FoulNone || !out.ShooterContinues || out.NextPlayer != Player1 {
		t.Errorf("outcome = %+v, want clean continue", out)
	}
	if got := r.Score(Player1); len(got) != 1 || got[0] != 3 {
		t.Errorf("score(P1) = %v, want [3]", got)
	}
}

func TestScratchGivesBallInHand(t *testing.T) {
	for _, phase := range []Phase{PhaseBreak, PhaseOpen, PhaseGrouped} {
		t.Run(string(phase), func(t *testing.T) {
			r, pe := newTestRules()
			if phase == PhaseGrouped {
				groupTable(r, SuitStripes)
			} else {
				r.phase = phase
			}
			fakeShot(pe, 9, true, CueBall)

			out := r.EndOfShot(Player1)

			if out.Foul != FoulScratch || r.LastFoul() != FoulScratch {
				t.Errorf("foul = %q, want scratch", out.Foul)
			}
			if !r.BallInHand() || out.NextPlayer != Player2 {
				t.Errorf("ballInHand=%v next=%d, want opponent in hand", r.BallInHand(), out.NextPlayer)
			}
			cue, _ := pe.Ball(CueBall)
			if !cue.Alive {
				t.Error("cue ball not revived for ball-in-hand")
			}
		})
	}
}

func TestEightFirstWithGroupRemainingLoses(t *testing.T) {
	r, pe := newTestRules()
	groupTable(r, SuitSolids)
	fakeShot(pe, EightBall, true, EightBall)

	out := r.EndOfShot(Player1)

	if out.Foul != FoulWrongBallFirst {
		t.Errorf("foul = %q, want wrong-ball-first", out.Foul)
	}
	if out.GameEnd == nil || out.GameEnd.Winner != Player2 {
		t.Fatalf("game end = %+v, want opponent wins", out.GameEnd)
	}
	if out.GameEnd.Reason != ReasonFaultOn8 {
		t.Errorf("reason = %q", out.GameEnd.Reason)
	}
	if r.Phase() != PhaseEnd || r.Winner() != Player2 || r.RackWins(Player2) != 1 {
		t.Errorf("phase=%s winner=%d wins=%d", r.Phase(), r.Winner(), r.RackWins(Player2))
	}
	if r.BallInHand() {
		t.Error("ball in hand after the rack ended")
	}
}

func TestEightFirstWithGroupRemainingIsFoul(t *testing.T) {
	r, pe := newTestRules()
	groupTable(r, SuitSolids)
	fakeShot(pe, EightBall, true)

	out := r.EndOfShot(Player1)

	if out.Foul != FoulWrongBallFirst || out.GameEnd != nil {
		t.Errorf("outcome = %+v, want wrong-ball-first foul without game end", out)
	}
	if !r.BallInHand() || out.NextPlayer != Player2 {
		t.Error("opponent should get ball in hand")
	}
}

func TestEightFirstOnOpenTableIsLegal(t *testing.T) {
	r, pe := newTestRules()
	r.phase = PhaseOpen
	fakeShot(pe, EightBall, true)

	out := r.EndOfShot(Player1)

	if out.Foul != FoulNone {
		t.Errorf("foul = %q, want none on an open table", out.Foul)
	}
}

func TestWrongSuitFirst(t *testing.T) {
	r, pe := newTestRules()
	groupTable(r, SuitSolids)
	fakeShot(pe, 14, true, 2)

	out := r.EndOfShot(Player1)

	if out.Foul != FoulWrongBallFirst {
		t.Errorf("foul = %q, want wrong-ball-first", out.Foul)
	}
	if len(r.Score(Player1)) != 0 {
		t.Error("pot scored on a foul")
	}
}

func TestEightFirstAfterClearingSuitIsLegal(t *testing.T) {
	r, pe := newTestRules()
	groupTable(r, SuitSolids)
	clearSuit(pe, SuitSolids)
	fakeShot(pe, EightBall, true)

	out := r.EndOfShot(Player1)

	if out.Foul != FoulNone {
		t.Errorf("foul = %q, want none", out.Foul)
	}
}

func TestLegalEightWins(t *testing.T) {
	r, pe := newTestRules()
	groupTable(r, SuitStripes)
	clearSuit(pe, SuitSolids)
	fakeShot(pe, EightBall, true, EightBall)

	out := r.EndOfShot(Player2)

	if out.GameEnd == nil || out.GameEnd.Winner != Player2 || out.GameEnd.Reason != ReasonLegalEight {
		t.Fatalf("game end = %+v, want P2 legal 8", out.GameEnd)
	}
	if out.NextPlayer != Player2 {
		t.Errorf("next = %d", out.NextPlayer)
	}
}

func TestEarlyEightLoses(t *testing.T) {
	r, pe := newTestRules()
	groupTable(r, SuitSolids)
	fakeShot(pe, 3, true, 3, EightBall)

	out := r.EndOfShot(Player1)

	if out.GameEnd == nil || out.GameEnd.Winner != Player2 || out.GameEnd.Reason != ReasonEarlyEight {
		t.Fatalf("game end = %+v, want P2 via early 8", out.GameEnd)
	}
}

func TestFoulOnEightLoses(t *testing.T) {
	r, pe := newTestRules()
	groupTable(r, SuitSolids)
	clearSuit(pe, SuitSolids)
	fakeShot(pe, EightBall, true, EightBall, CueBall)

	out := r.EndOfShot(Player1)

	if out.Foul != FoulScratch {
		t.Errorf("foul = %q, want scratch", out.Foul)
	}
	if out.GameEnd == nil || out.GameEnd.Winner != Player2 || out.GameEnd.Reason != ReasonFaultOn8 {
		t.Fatalf("game end = %+v, want P2 via fault on 8", out.GameEnd)
	}
}

func TestFoulPriority(t *testing.T) {
	cases := []struct {
		name     string
		first    int
		rail     bool
		pocketed []int
		want     Foul
	}{
		{"scratch beats wrong ball", 12, true, []int{CueBall}, FoulScratch},
		{"wrong ball beats no rail", 12, false, nil, FoulWrongBallFirst},
		{"no contact", NoBall, false, nil, FoulNoContact},
		{"no rail after contact", 4, false, nil, FoulNoRail},
		{"pot excuses no rail", 4, false, []int{4}, FoulNone},
		{"clean", 4, true, nil, FoulNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, pe := newTestRules()
			groupTable(r, SuitSolids)
			fakeShot(pe, tc.first, tc.rail, tc.pocketed...)

			if out := r.EndOfShot(Player1); out.Foul != tc.want {
				t.Errorf("foul = %q, want %q", out.Foul, tc.want)
			}
		})
	}
}

func TestNoContactOnlyWhileGrouped(t *testing.T) {
	r, pe := newTestRules()
	r.phase = PhaseOpen
	fakeShot(pe, NoBall, false)

	if out := r.EndOfShot(Player1); out.Foul != FoulNone || out.NextPlayer != Player2 {
		t.Errorf("outcome = %+v, want clean miss passing the turn", out)
	}
}

func TestTelemetryClearedAfterAdjudication(t *testing.T) {
	r, pe := newTestRules()
	groupTable(r, SuitSolids)
	fakeShot(pe, 3, true, 5)

	r.EndOfShot(Player1)

	shot := pe.Shot()
	if shot.FirstObjectHit != NoBall || shot.RailContactedAfterHit || len(shot.PocketedThisShot) != 0 {
		t.Errorf("telemetry not cleared: %+v", shot)
	}
}

func TestEndOfShotAfterGameEndIsInert(t *testing.T) {
	r, pe := newTestRules()
	r.phase = PhaseEnd
	r.winner = Player1
	fakeShot(pe, 3, true, CueBall)

	out := r.EndOfShot(Player2)

	if out.Foul != FoulNone || out.GameEnd != nil || r.Winner() != Player1 || r.BallInHand() {
		t.Errorf("adjudication changed a finished rack: %+v", out)
	}
}

func TestNewRackKeepsTalliesFullResetClears(t *testing.T) {
	r, pe := newTestRules()
	groupTable(r, SuitSolids)
	clearSuit(pe, SuitSolids)
	fakeShot(pe, EightBall, true, EightBall)
	r.EndOfShot(Player1)
	if r.RackWins(Player1) != 1 {
		t.Fatalf("rack wins = %d, want 1", r.RackWins(Player1))
	}

	r.NewRack()
	if r.Phase() != PhaseBreak || r.Groups() != nil || r.BallInHand() || r.LastFoul() != FoulNone || r.Winner() != NoPlayer {
		t.Errorf("NewRack left state behind: phase=%s groups=%+v", r.Phase(), r.Groups())
	}
	if len(r.Score(Player1)) != 0 {
		t.Error("NewRack kept the score")
	}
	for _, b := range pe.Balls() {
		if !b.Alive {
			t.Errorf("ball %d not re-racked", b.Number)
		}
	}
	if r.RackWins(Player1) != 1 {
		t.Errorf("rematch lost the tally: %d", r.RackWins(Player1))
	}

	r.FullReset()
	if r.RackWins(Player1) != 0 {
		t.Errorf("FullReset kept the tally: %d", r.RackWins(Player1))
	}
}

func TestPointerAimStrikes(t *testing.T) {
	r, pe := newTestRules()
	cue, _ := pe.Ball(CueBall)
	start := cue.Position.Plus(NewVec2(3, 2))

	r.OnPointerDown(start)
	r.OnPointerDrag(start.Plus(NewVec2(-30, 0)))
	if st := r.AimState(); !st.Active || st.Power <= 0 {
		t.Fatalf("aim state = %+v", st)
	}
	res := r.OnPointerUp(start.Plus(NewVec2(-60, 0)))

	if !res.Fired {
		t.Fatal("release did not strike")
	}
	cue, _ = pe.Ball(CueBall)
	if cue.Velocity.X <= 0 || cue.Velocity.Y != 0 {
		t.Errorf("cue velocity = %+v, want toward +x", cue.Velocity)
	}
	want := 60.0 / 220.0 * pe.Table().MaxSpeed
	if d := cue.Velocity.X - want; d > 1e-9 || d < -1e-9 {
		t.Errorf("speed = %.4f, want %.4f", cue.Velocity.X, want)
	}
	if r.AimState().Active {
		t.Error("aim still active after release")
	}
}

func TestPointerIgnoredAwayFromCueOrShortDrag(t *testing.T) {
	r, pe := newTestRules()
	cue, _ := pe.Ball(CueBall)

	far := cue.Position.Plus(NewVec2(200, 0))
	r.OnPointerDown(far)
	if res := r.OnPointerUp(far.Plus(NewVec2(-80, 0))); res.Fired {
		t.Error("strike fired from a grab far from the cue")
	}

	r.OnPointerDown(cue.Position)
	if res := r.OnPointerUp(cue.Position.Plus(NewVec2(1, 1))); res.Fired {
		t.Error("near-zero drag fired")
	}
	if pe.AnyMoving() {
		t.Error("table moving after ignored input")
	}
}

func TestPointerBallInHandPlacement(t *testing.T) {
	r, pe := newTestRules()
	r.ballInHand = true
	_, maxX, minY, _ := pe.Table().Bounds()

	r.OnPointerDown(NewVec2(200, 200))
	r.OnPointerDrag(NewVec2(5000, -40))
	cue, _ := pe.Ball(CueBall)
	if cue.Position != NewVec2(maxX, minY) {
		t.Errorf("cue at %+v, want clamped (%.1f, %.1f)", cue.Position, maxX, minY)
	}

	res := r.OnPointerUp(NewVec2(5000, -40))
	if !res.Placed || res.Fired {
		t.Errorf("release = %+v, want placement only", res)
	}
	if r.BallInHand() {
		t.Error("ball in hand not consumed")
	}
	if pe.AnyMoving() {
		t.Error("placement struck the cue")
	}
}

func TestPointerIgnoredAfterGameEnd(t *testing.T) {
	r, pe := newTestRules()
	r.phase = PhaseEnd
	cue, _ := pe.Ball(CueBall)

	r.OnPointerDown(cue.Position)
	if res := r.OnPointerUp(cue.Position.Plus(NewVec2(-80, 0))); res.Fired {
		t.Error("strike after the rack ended")
	}
}

func TestFoulLabel(t *testing.T) {
	if got := FoulScratch.Label(); got != "Scratch: ball-in-hand for opponent" {
		t.Errorf("label = %q", got)
	}
	if FoulNone.Label() != "" {
		t.Error("clean shot has a label")
	}
}

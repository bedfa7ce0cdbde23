package game

import (
	"github.com/playmatatu/eightball/internal/config"
)

// Phase is the rack's position in the rules state machine.
type Phase string

const (
	PhaseBreak   Phase = "BREAK"   // opening shot, no groups
	PhaseOpen    Phase = "OPEN"    // table open, groups not yet assigned
	PhaseGrouped Phase = "GROUPED" // each player owns a suit
	PhaseEnd     Phase = "END"     // winner decided
)

// Player is 1 or 2. Player 2 is the automated one in AI modes.
type Player int

const (
	NoPlayer Player = 0
	Player1  Player = 1
	Player2  Player = 2
)

// Opponent returns the other player.
func (p Player) Opponent() Player {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// Foul names a shot's foul. The empty value means a clean shot.
type Foul string

const (
	FoulNone           Foul = ""
	FoulScratch        Foul = "scratch"
	FoulWrongBallFirst Foul = "wrong-ball-first"
	FoulNoContact      Foul = "no-contact"
	FoulNoRail         Foul = "no-rail-after-contact"
)

var foulLabels = map[Foul]string{
	FoulScratch:        "Scratch",
	FoulWrongBallFirst: "Wrong ball first",
	FoulNoRail:         "No rail after contact",
	FoulNoContact:      "No contact",
}

// Label is the HUD text for the foul, empty for a clean shot.
func (f Foul) Label() string {
	if f == FoulNone {
		return ""
	}
	return foulLabels[f] + ": ball-in-hand for opponent"
}

// Target is the suit a player must hit, or "any" on an open table.
type Target string

const (
	TargetAny     Target = "any"
	TargetSolids  Target = "solids"
	TargetStripes Target = "stripes"
)

// Game end reasons.
const (
	ReasonLegalEight = "legal 8"
	ReasonFaultOn8   = "fault on 8"
	ReasonEarlyEight = "8 too early"
)

// Groups maps each player to a suit once the table is no longer open.
type Groups struct {
	P1 Suit `json:"p1"`
	P2 Suit `json:"p2"`
}

// For returns the suit of player p.
func (g Groups) For(p Player) Suit {
	if p == Player1 {
		return g.P1
	}
	return g.P2
}

// GameEnd describes a finished rack.
type GameEnd struct {
	Winner Player `json:"winner"`
	Reason string `json:"reason"`
}

// ShotOutcome is the adjudication of one settled shot.
type ShotOutcome struct {
	Shooter          Player        `json:"shooter"`
	NextPlayer       Player        `json:"next_player"`
	Foul             Foul          `json:"foul,omitempty"`
	ShooterContinues bool          `json:"shooter_continues"`
	GameEnd          *GameEnd      `json:"game_end,omitempty"`
	GroupsAssigned   bool          `json:"groups_assigned"`
	EightRespotted   bool          `json:"eight_respotted"`
	Scored           []int         `json:"scored"`
	Telemetry        ShotTelemetry `json:"telemetry"`
}

// PointerResult tells the caller what a pointer release did.
type PointerResult struct {
	Fired  bool `json:"fired"`  // a strike was issued
	Placed bool `json:"placed"` // ball-in-hand placement confirmed
}

// Rules is the 8-ball state machine: BREAK -> OPEN -> GROUPED -> END.
// It reads the table through the physics engine it was built with.
type Rules struct {
	p   *PhysicsEngine
	aim *Aimer

	mode        Mode
	phase       Phase
	groups      *Groups
	legalTarget Target
	ballInHand  bool
	lastFoul    Foul
	winner      Player
	score       [3][]int // indexed by Player, pocketed own-suit balls
	rackWins    [3]int   // session tallies, kept across rematches
}

// NewRules creates the rules engine for a physics engine and racks the balls.
func NewRules(p *PhysicsEngine, aim config.AimTuning) *Rules {
	r := &Rules{
		p:    p,
		aim:  NewAimer(aim),
		mode: ModeTwoPlayer,
	}
	r.NewRack()
	return r
}

// NewRack re-racks and resets the rack state. Session tallies survive (rematch).
func (r *Rules) NewRack() {
	r.p.PlaceRack()
	r.aim.Cancel()
	r.phase = PhaseBreak
	r.groups = nil
	r.legalTarget = TargetAny
	r.ballInHand = false
	r.lastFoul = FoulNone
	r.winner = NoPlayer
	r.score = [3][]int{nil, {}, {}}
}

// FullReset re-racks and also forgets the session tallies.
func (r *Rules) FullReset() {
	r.NewRack()
	r.rackWins = [3]int{}
}

func (r *Rules) SetMode(m Mode) {
	r.mode = m
}

func (r *Rules) Mode() Mode {
	return r.mode
}

// IsAIMove reports whether player p is automated in the current mode.
func (r *Rules) IsAIMove(p Player) bool {
	return r.mode != ModeTwoPlayer && p == Player2
}

func (r *Rules) Phase() Phase {
	return r.phase
}

// Groups returns a copy of the suit assignment, or nil while the table is open.
func (r *Rules) Groups() *Groups {
	if r.groups == nil {
		return nil
	}
	g := *r.groups
	return &g
}

// GroupFor returns player p's suit, SuitNone while ungrouped.
func (r *Rules) GroupFor(p Player) Suit {
	if r.groups == nil {
		return SuitNone
	}
	return r.groups.For(p)
}

func (r *Rules) LegalTarget() Target {
	return r.legalTarget
}

func (r *Rules) BallInHand() bool {
	return r.ballInHand
}

func (r *Rules) LastFoul() Foul {
	return r.lastFoul
}

func (r *Rules) Winner() Player {
	return r.winner
}

// Score returns the own-suit balls player p pocketed this rack.
func (r *Rules) Score(p Player) []int {
	if p != Player1 && p != Player2 {
		return nil
	}
	return append([]int{}, r.score[p]...)
}

// RackWins returns how many racks player p won since the last full reset.
func (r *Rules) RackWins(p Player) int {
	if p != Player1 && p != Player2 {
		return 0
	}
	return r.rackWins[p]
}

// AimState exposes the in-progress aim for overlays.
func (r *Rules) AimState() AimState {
	return r.aim.State()
}

// HasGroupOnTable reports whether player p still has suit balls to clear.
// An open table counts as having balls remaining.
func (r *Rules) HasGroupOnTable(p Player) bool {
	if r.groups == nil {
		return true
	}
	mine := r.groups.For(p)
	for _, b := range r.p.balls {
		if b.Alive && !b.IsCue && b.Number != EightBall && b.Suit == mine {
			return true
		}
	}
	return false
}

// OnPointerDown starts an aim, or moves the cue ball while in hand.
func (r *Rules) OnPointerDown(m Vec2) {
	if r.phase == PhaseEnd {
		return
	}
	if r.ballInHand {
		r.p.PlaceCueAt(m.X, m.Y)
		return
	}
	r.aim.Start(m, r.p)
}

// OnPointerDrag updates the aim, or drags the cue ball while in hand.
func (r *Rules) OnPointerDrag(m Vec2) {
	if r.phase == PhaseEnd {
		return
	}
	if r.ballInHand {
		r.p.PlaceCueAt(m.X, m.Y)
		return
	}
	r.aim.Update(m)
}

// OnPointerUp confirms a ball-in-hand placement or releases the aim into a strike.
func (r *Rules) OnPointerUp(m Vec2) PointerResult {
	if r.phase == PhaseEnd {
		return PointerResult{}
	}
	if r.ballInHand {
		r.ballInHand = false
		return PointerResult{Placed: true}
	}
	return PointerResult{Fired: r.aim.End(m, r.p)}
}

// PlaceCueInHand places the cue ball and consumes ball-in-hand.
func (r *Rules) PlaceCueInHand(pos Vec2) bool {
	if !r.ballInHand {
		return false
	}
	r.p.PlaceCueAt(pos.X, pos.Y)
	r.ballInHand = false
	return true
}

// ClearBallInHand keeps the cue where it is and ends the placement.
func (r *Rules) ClearBallInHand() {
	r.ballInHand = false
}

// EndOfShot adjudicates the shot that just settled. It consumes the physics
// telemetry exactly once and always leaves it cleared.
func (r *Rules) EndOfShot(shooter Player) ShotOutcome {
	shot := r.p.TakeShot()
	defer r.p.ResetShotTelemetry()

	out := ShotOutcome{Shooter: shooter, NextPlayer: shooter, Scored: []int{}, Telemetry: shot}
	if r.phase == PhaseEnd {
		return out
	}
	opponent := shooter.Opponent()

	// 8 on the break: respot and carry on
	pocketed := shot.PocketedThisShot
	if r.phase == PhaseBreak && shot.Pocketed(EightBall) {
		pocketed = without(pocketed, EightBall)
		r.p.RespotEight()
		out.EightRespotted = true
	}

	foul := r.detectFoul(shot, pocketed, shooter)

	// First legal pot after the break decides the groups.
	for _, n := range pocketed {
		if n == EightBall {
			continue
		}
		if r.groups == nil && r.phase != PhaseBreak && foul == FoulNone {
			suit := r.suitOfBall(n)
			g := Groups{P1: suit, P2: suit.Opposite()}
			if shooter == Player2 {
				g = Groups{P1: suit.Opposite(), P2: suit}
			}
			r.groups = &g
			r.phase = PhaseGrouped
			out.GroupsAssigned = true
		}
	}

	own := r.GroupFor(shooter)
	pottedOwn := false
	for _, n := range pocketed {
		if n == EightBall {
			continue
		}
		if r.groups == nil || r.suitOfBall(n) == own {
			pottedOwn = true
		}
		if r.groups != nil && r.suitOfBall(n) == own && foul == FoulNone && !contains(r.score[shooter], n) {
			r.score[shooter] = append(r.score[shooter], n)
			out.Scored = append(out.Scored, n)
		}
	}

	if contains(pocketed, EightBall) {
		stillHasGroup := r.HasGroupOnTable(shooter)
		switch {
		case foul != FoulNone:
			out.GameEnd = &GameEnd{Winner: opponent, Reason: ReasonFaultOn8}
		case stillHasGroup:
			out.GameEnd = &GameEnd{Winner: opponent, Reason: ReasonEarlyEight}
		default:
			out.GameEnd = &GameEnd{Winner: shooter, Reason: ReasonLegalEight}
		}
	}

	if out.GameEnd == nil {
		if foul != FoulNone {
			out.NextPlayer = opponent
		} else {
			out.ShooterContinues = pottedOwn
			if !pottedOwn {
				out.NextPlayer = opponent
			}
		}
	}

	r.ballInHand = foul != FoulNone && out.GameEnd == nil
	if r.ballInHand {
		r.p.ReviveCue()
	}
	r.lastFoul = foul
	out.Foul = foul

	if r.groups == nil {
		r.legalTarget = TargetAny
	} else {
		r.legalTarget = Target(own)
	}

	if out.GameEnd != nil {
		r.phase = PhaseEnd
		r.winner = out.GameEnd.Winner
		r.rackWins[r.winner]++
	} else if r.phase == PhaseBreak {
		r.phase = PhaseOpen
	}

	return out
}

// detectFoul applies the foul checks in priority order.
func (r *Rules) detectFoul(shot ShotTelemetry, pocketed []int, shooter Player) Foul {
	if shot.Scratch {
		return FoulScratch
	}

	first := shot.FirstObjectHit
	// 8-first while the table is still open is not a foul.
	if r.phase == PhaseGrouped {
		if first == NoBall {
			return FoulNoContact
		}
		if first == EightBall {
			if r.HasGroupOnTable(shooter) {
				return FoulWrongBallFirst
			}
		} else if r.suitOfBall(first) != r.GroupFor(shooter) {
			return FoulWrongBallFirst
		}
	}

	if first != NoBall && !shot.RailContactedAfterHit && len(pocketed) == 0 {
		return FoulNoRail
	}
	return FoulNone
}

func (r *Rules) suitOfBall(n int) Suit {
	if b, ok := r.p.Ball(n); ok {
		return b.Suit
	}
	return SuitNone
}

func contains(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}

func without(list []int, n int) []int {
	out := make([]int, 0, len(list))
	for _, v := range list {
		if v != n {
			out = append(out, v)
		}
	}
	return out
}

package game

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/playmatatu/eightball/internal/config"
)

var (
	ErrTableNotFound  = errors.New("table not found")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrShotInProgress = errors.New("shot in progress")
	ErrGameOver       = errors.New("rack is over")
	ErrNoBallInHand   = errors.New("no ball in hand")
	ErrInvalidMode    = errors.New("invalid mode")
)

// EventType tags what a table pushed to its listener.
type EventType string

const (
	EventFrame      EventType = "frame"
	EventSound      EventType = "sound"
	EventShotResult EventType = "shot_result"
	EventRack       EventType = "rack"
	EventAIShot     EventType = "ai_shot"
	EventMode       EventType = "mode"
	EventClosed     EventType = "closed"
)

// Event is one notification from a table. Only the fields for its type are set.
type Event struct {
	Type    EventType    `json:"type"`
	TableID string       `json:"table_id"`
	Balls   []BallState  `json:"balls,omitempty"`
	Moving  bool         `json:"moving,omitempty"`
	Sounds  []SoundEvent `json:"sounds,omitempty"`
	Outcome *ShotOutcome `json:"outcome,omitempty"`
	State   *TableState  `json:"state,omitempty"`
	Aim     *Aim         `json:"aim,omitempty"`
	Player  Player       `json:"player,omitempty"`
	Shot    int          `json:"shot,omitempty"`
}

// Listener receives table events. It is called without the session lock held.
type Listener func(Event)

// Scheduler runs f after d and returns a function that cancels it.
type Scheduler func(d time.Duration, f func()) (cancel func())

// AfterFuncScheduler schedules on the runtime timer.
func AfterFuncScheduler(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// BallState is the wire form of a ball.
type BallState struct {
	Number int     `json:"number"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Alive  bool    `json:"alive"`
	Suit   Suit    `json:"suit,omitempty"`
}

// TableState is a full snapshot of a table for clients and the snapshot cache.
type TableState struct {
	TableID       string      `json:"table_id"`
	Mode          Mode        `json:"mode"`
	Phase         Phase       `json:"phase"`
	CurrentPlayer Player      `json:"current_player"`
	Groups        *Groups     `json:"groups"`
	LegalTarget   Target      `json:"legal_target"`
	BallInHand    bool        `json:"ball_in_hand"`
	LastFoul      Foul        `json:"last_foul,omitempty"`
	FoulLabel     string      `json:"foul_label,omitempty"`
	Winner        Player      `json:"winner,omitempty"`
	Scores        [2][]int    `json:"scores"`
	RackWins      [2]int      `json:"rack_wins"`
	Shots         int         `json:"shots"`
	Moving        bool        `json:"moving"`
	AIPending     bool        `json:"ai_pending"`
	Balls         []BallState `json:"balls"`
	Aim           AimState    `json:"aim"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type SessionOptions struct {
	Mode      Mode
	Tuning    config.Tuning
	AIDelay   time.Duration
	Scheduler Scheduler
	Rand      *rand.Rand
	Listener  Listener
}

// Session is one live table: physics, rules and AI behind a single lock.
type Session struct {
	ID string

	mu      sync.Mutex
	physics *PhysicsEngine
	rules   *Rules
	ai      *AI

	current  Player
	shooter  Player
	inFlight bool
	shots    int

	aiDelay   time.Duration
	schedule  Scheduler
	aiGen     uint64
	aiPending bool
	cancelAI  func()

	listener     Listener
	createdAt    time.Time
	lastActivity time.Time
}

func NewSession(id string, opts SessionOptions) *Session {
	if opts.Mode == "" {
		opts.Mode = ModeTwoPlayer
	}
	if opts.Scheduler == nil {
		opts.Scheduler = AfterFuncScheduler
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	physics := NewPhysicsEngine(NewTable(opts.Tuning))
	rules := NewRules(physics, opts.Tuning.Aim)
	rules.SetMode(opts.Mode)

	now := time.Now()
	return &Session{
		ID:           id,
		physics:      physics,
		rules:        rules,
		ai:           NewAI(physics, rules, opts.Tuning.AI, opts.Rand),
		current:      Player1,
		shooter:      Player1,
		aiDelay:      opts.AIDelay,
		schedule:     opts.Scheduler,
		listener:     opts.Listener,
		createdAt:    now,
		lastActivity: now,
	}
}

// SetListener replaces the event listener.
func (s *Session) SetListener(l Listener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

// Tick advances one frame. When the shot in flight comes to rest it is
// adjudicated exactly once and the AI is scheduled if it is now to move.
func (s *Session) Tick() {
	s.mu.Lock()
	wasMoving := s.physics.AnyMoving()
	s.physics.Step()
	moving := s.physics.AnyMoving()

	var events []Event
	if sounds := s.physics.DrainSounds(); len(sounds) > 0 {
		events = append(events, Event{Type: EventSound, TableID: s.ID, Sounds: sounds})
	}
	if moving || wasMoving {
		events = append(events, Event{Type: EventFrame, TableID: s.ID, Balls: s.ballStates(), Moving: moving})
	}

	if s.inFlight && !moving {
		s.inFlight = false
		out := s.rules.EndOfShot(s.shooter)
		s.current = out.NextPlayer
		state := s.stateLocked()
		events = append(events, Event{Type: EventShotResult, TableID: s.ID, Outcome: &out, State: &state, Player: out.Shooter, Shot: s.shots})
		s.maybeScheduleAI()
	}
	listener := s.listener
	s.mu.Unlock()

	s.dispatch(listener, events)
}

// PointerPhase is one step of a drag gesture.
type PointerPhase string

const (
	PointerDown PointerPhase = "down"
	PointerDrag PointerPhase = "drag"
	PointerUp   PointerPhase = "up"
)

// Pointer feeds a human pointer event into the table.
func (s *Session) Pointer(phase PointerPhase, at Vec2) (PointerResult, error) {
	s.mu.Lock()
	if err := s.checkHumanTurn(); err != nil {
		s.mu.Unlock()
		return PointerResult{}, err
	}
	s.lastActivity = time.Now()

	var res PointerResult
	switch phase {
	case PointerDown:
		s.rules.OnPointerDown(at)
	case PointerDrag:
		s.rules.OnPointerDrag(at)
	case PointerUp:
		res = s.rules.OnPointerUp(at)
		if res.Fired {
			s.beginShot(s.current)
		}
	}
	s.mu.Unlock()
	return res, nil
}

// Strike shoots directly with a drag vector and power, confirming any ball-in-hand
// placement first. Drags shorter than the minimum are ignored and return false.
func (s *Session) Strike(drag Vec2, power float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkHumanTurn(); err != nil {
		return false, err
	}
	s.lastActivity = time.Now()

	if drag.Magnitude() < s.rules.aim.minDrag {
		return false, nil
	}
	s.rules.ClearBallInHand()
	if !s.physics.StrikeCue(drag, power) {
		return false, nil
	}
	s.beginShot(s.current)
	return true, nil
}

// PlaceCue places the cue ball while the current player has ball-in-hand.
func (s *Session) PlaceCue(at Vec2) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkHumanTurn(); err != nil {
		return err
	}
	if !s.rules.PlaceCueInHand(at) {
		return ErrNoBallInHand
	}
	s.lastActivity = time.Now()
	return nil
}

// NewRack starts a rematch. Session tallies are kept.
func (s *Session) NewRack() {
	s.restart(s.rules.NewRack)
}

// FullReset starts over and clears the session tallies.
func (s *Session) FullReset() {
	s.restart(s.rules.FullReset)
}

func (s *Session) restart(rack func()) {
	s.mu.Lock()
	s.cancelPendingAI()
	rack()
	s.current = Player1
	s.shooter = Player1
	s.inFlight = false
	s.shots = 0
	s.lastActivity = time.Now()
	state := s.stateLocked()
	listener := s.listener
	s.mu.Unlock()

	s.dispatch(listener, []Event{{Type: EventRack, TableID: s.ID, State: &state}})
}

// SetMode switches between two players and AI levels. A pending AI move is
// dropped, and rescheduled if the AI is now to move.
func (s *Session) SetMode(m Mode) error {
	if _, ok := ParseMode(string(m)); !ok {
		return ErrInvalidMode
	}
	s.mu.Lock()
	s.cancelPendingAI()
	s.rules.SetMode(m)
	if !s.inFlight {
		s.maybeScheduleAI()
	}
	s.lastActivity = time.Now()
	state := s.stateLocked()
	listener := s.listener
	s.mu.Unlock()

	s.dispatch(listener, []Event{{Type: EventMode, TableID: s.ID, State: &state}})
	return nil
}

// State returns a snapshot of the table.
func (s *Session) State() TableState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// LastActivity is the time of the last accepted command.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Close drops any pending AI move.
func (s *Session) Close() {
	s.mu.Lock()
	s.cancelPendingAI()
	s.mu.Unlock()
}

func (s *Session) checkHumanTurn() error {
	if s.inFlight || s.physics.AnyMoving() {
		return ErrShotInProgress
	}
	if s.rules.Phase() == PhaseEnd {
		return ErrGameOver
	}
	if s.rules.IsAIMove(s.current) {
		return ErrNotYourTurn
	}
	return nil
}

func (s *Session) beginShot(p Player) {
	s.inFlight = true
	s.shooter = p
	s.shots++
}

// maybeScheduleAI must be called with the lock held.
func (s *Session) maybeScheduleAI() {
	if s.aiPending || s.rules.Phase() == PhaseEnd || !s.rules.IsAIMove(s.current) {
		return
	}
	s.aiPending = true
	gen := s.aiGen
	s.cancelAI = s.schedule(s.aiDelay, func() { s.runAI(gen) })
}

func (s *Session) cancelPendingAI() {
	s.aiGen++
	s.aiPending = false
	if s.cancelAI != nil {
		s.cancelAI()
		s.cancelAI = nil
	}
}

func (s *Session) runAI(gen uint64) {
	s.mu.Lock()
	if gen != s.aiGen || !s.aiPending {
		s.mu.Unlock()
		return
	}
	s.aiPending = false
	s.cancelAI = nil

	level, ok := s.rules.Mode().Level()
	if !ok || s.inFlight || s.rules.Phase() == PhaseEnd || !s.rules.IsAIMove(s.current) {
		s.mu.Unlock()
		return
	}

	player := s.current
	aim, fired := s.ai.Shoot(player, level)
	if !fired {
		logger.Warn("ai strike rejected", "table", s.ID, "player", player)
	}
	// adjudicate even a rejected strike so the turn cannot stall
	s.beginShot(player)
	listener := s.listener
	shot := s.shots
	s.mu.Unlock()

	s.dispatch(listener, []Event{{Type: EventAIShot, TableID: s.ID, Aim: &aim, Player: player, Shot: shot}})
}

func (s *Session) dispatch(l Listener, events []Event) {
	if l == nil {
		return
	}
	for _, ev := range events {
		l(ev)
	}
}

func (s *Session) ballStates() []BallState {
	out := make([]BallState, 0, NumBalls)
	for _, b := range s.physics.balls {
		out = append(out, BallState{Number: b.Number, X: b.Position.X, Y: b.Position.Y, Alive: b.Alive, Suit: b.Suit})
	}
	return out
}

func (s *Session) stateLocked() TableState {
	r := s.rules
	return TableState{
		TableID:       s.ID,
		Mode:          r.Mode(),
		Phase:         r.Phase(),
		CurrentPlayer: s.current,
		Groups:        r.Groups(),
		LegalTarget:   r.LegalTarget(),
		BallInHand:    r.BallInHand(),
		LastFoul:      r.LastFoul(),
		FoulLabel:     r.LastFoul().Label(),
		Winner:        r.Winner(),
		Scores:        [2][]int{r.Score(Player1), r.Score(Player2)},
		RackWins:      [2]int{r.RackWins(Player1), r.RackWins(Player2)},
		Shots:         s.shots,
		Moving:        s.physics.AnyMoving(),
		AIPending:     s.aiPending,
		Balls:         s.ballStates(),
		Aim:           r.AimState(),
		UpdatedAt:     time.Now(),
	}
}

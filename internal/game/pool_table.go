package game

import "github.com/playmatatu/eightball/internal/config"

// Suit is the precomputed group tag of a ball.
type Suit string

const (
	SuitNone    Suit = ""        // cue ball and 8-ball
	SuitSolids  Suit = "solids"  // 1-7
	SuitStripes Suit = "stripes" // 9-15
)

// Opposite returns the other suit.
func (s Suit) Opposite() Suit {
	switch s {
	case SuitSolids:
		return SuitStripes
	case SuitStripes:
		return SuitSolids
	}
	return SuitNone
}

// suitOf is only used while building a rack; everything else reads Ball.Suit.
func suitOf(number int) Suit {
	switch {
	case number >= 1 && number <= 7:
		return SuitSolids
	case number >= 9 && number <= 15:
		return SuitStripes
	}
	return SuitNone
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Pocket represents one of the 6 pockets on the table.
type Pocket struct {
	ID       int  `json:"id"`
	Position Vec2 `json:"position"`
}

// Table holds the immutable table geometry and physics constants.
type Table struct {
	Width           float64  `json:"width"`
	Height          float64  `json:"height"`
	Play            Rect     `json:"play"`
	Pockets         []Pocket `json:"pockets"`
	BallRadius      float64  `json:"ball_radius"`
	PocketRadius    float64  `json:"pocket_radius"`
	PocketEpsilon   float64  `json:"pocket_epsilon"`
	Restitution     float64  `json:"restitution"`
	Friction        float64  `json:"friction"`
	StopThreshold   float64  `json:"stop_threshold"`
	MaxSpeed        float64  `json:"max_speed"`
	SubSteps        int      `json:"sub_steps"`
	CollisionPasses int      `json:"collision_passes"`
}

// NewTable builds the table from tuning: a play rectangle inset by pad+margin,
// four corner pockets and two side pockets at the middle of the long rails.
func NewTable(t config.Tuning) *Table {
	inset := t.Table.Pad + t.Table.Margin
	play := Rect{X: inset, Y: inset, W: t.Table.Width - 2*inset, H: t.Table.Height - 2*inset}

	pockets := []Pocket{
		{ID: 0, Position: NewVec2(play.X, play.Y)},
		{ID: 1, Position: NewVec2(play.X+play.W/2, play.Y)},
		{ID: 2, Position: NewVec2(play.X+play.W, play.Y)},
		{ID: 3, Position: NewVec2(play.X, play.Y+play.H)},
		{ID: 4, Position: NewVec2(play.X+play.W/2, play.Y+play.H)},
		{ID: 5, Position: NewVec2(play.X+play.W, play.Y+play.H)},
	}

	return &Table{
		Width:           t.Table.Width,
		Height:          t.Table.Height,
		Play:            play,
		Pockets:         pockets,
		BallRadius:      t.Table.BallRadius,
		PocketRadius:    t.Table.PocketRadius,
		PocketEpsilon:   t.Table.PocketEpsilon,
		Restitution:     t.Physics.Restitution,
		Friction:        t.Physics.Friction,
		StopThreshold:   t.Physics.StopThreshold,
		MaxSpeed:        t.Physics.MaxSpeed,
		SubSteps:        t.Physics.SubSteps,
		CollisionPasses: t.Physics.CollisionPasses,
	}
}

// NewStandardTable creates the table with built-in tuning.
func NewStandardTable() *Table {
	return NewTable(config.DefaultTuning())
}

// Bounds returns the range a ball center may occupy.
func (t *Table) Bounds() (minX, maxX, minY, maxY float64) {
	r := t.BallRadius
	return t.Play.X + r, t.Play.X + t.Play.W - r, t.Play.Y + r, t.Play.Y + t.Play.H - r
}

// HeadSpot is where the cue ball starts and where a revived cue ball returns.
func (t *Table) HeadSpot() Vec2 {
	return NewVec2(t.Play.X+t.Play.W*headSpotX, t.Play.Y+t.Play.H*0.5)
}

// InHandSpot is the AI's preferred ball-in-hand placement before jitter.
func (t *Table) InHandSpot() Vec2 {
	return NewVec2(t.Play.X+t.Play.W*inHandSpot, t.Play.Y+t.Play.H*0.5)
}

func (t *Table) rackSpacing() float64 {
	return t.BallRadius*2 + rackGap
}

// EightSpot is the 8-ball's rack position, used to respot it after a break.
func (t *Table) EightSpot() Vec2 {
	apex := t.rackApex()
	return NewVec2(apex.X+2*t.rackSpacing(), apex.Y)
}

func (t *Table) rackApex() Vec2 {
	return NewVec2(t.Play.X+t.Play.W*rackApexX, t.Play.Y+t.Play.H*0.5)
}

// StandardRack returns the initial positions for all 16 balls indexed by ball number:
// cue on the head spot, object balls in a five-row triangle pointing at the cue.
func (t *Table) StandardRack() [NumBalls]Vec2 {
	var pos [NumBalls]Vec2
	pos[CueBall] = t.HeadSpot()

	apex := t.rackApex()
	s := t.rackSpacing()
	idx := 0
	for r := 0; r < rackRows; r++ {
		for c := 0; c <= r; c++ {
			n := rackOrder[idx]
			idx++
			pos[n] = NewVec2(apex.X+float64(r)*s, apex.Y+(float64(c)-float64(r)/2)*s)
		}
	}
	return pos
}

package game

// Ball numbering and rack constants for 8-ball.
// Geometry and physics magnitudes live in config.Tuning so they can be tuned per deployment.

const (
	NumBalls  = 16 // 0=cue, 1-7=solids, 8=eight, 9-15=stripes
	CueBall   = 0
	EightBall = 8
	NoBall    = -1 // no first contact recorded

	rackRows = 5
	rackGap  = 2.0 // extra spacing between racked balls
)

// rackOrder fills the triangle row by row, apex first. The 8 sits in the middle of row three.
var rackOrder = [NumBalls - 1]int{11, 2, 14, 7, 8, 3, 10, 15, 6, 13, 12, 5, 9, 4, 1}

// Fractions of the play area used for fixed spots.
const (
	headSpotX  = 0.30 // cue ball at rack time and on revive
	rackApexX  = 0.68
	inHandSpot = 0.25 // AI ball-in-hand placement
)

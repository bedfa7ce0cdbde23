package game

import "math"

// Vec2 is a 2D vector in table (canvas) units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewVec2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Plus(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Minus(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Times(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vec2) Magnitude() float64 {
	return math.Hypot(v.X, v.Y)
}

// Normalize returns the unit vector, or the zero vector for a zero input.
func (v Vec2) Normalize() Vec2 {
	m := v.Magnitude()
	if m == 0 {
		return Vec2{}
	}
	return v.Times(1.0 / m)
}

func (v Vec2) Invert() Vec2 {
	return Vec2{X: -v.X, Y: -v.Y}
}

func (v Vec2) DistanceTo(o Vec2) float64 {
	return math.Hypot(o.X-v.X, o.Y-v.Y)
}

func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// distanceToSegment returns the distance from p to the segment a-b.
func distanceToSegment(p, a, b Vec2) float64 {
	ab := b.Minus(a)
	lenSq := ab.Dot(ab)
	t := 0.0
	if lenSq > 0 {
		t = p.Minus(a).Dot(ab) / lenSq
	}
	t = clamp(t, 0, 1)
	return p.DistanceTo(a.Plus(ab.Times(t)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

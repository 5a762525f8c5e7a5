// Package geom provides the pixel-space geometry types shared by the
// cursor overlay pipeline: points, rectangles, numeric validation, and
// the squared-distance helpers the animation engine settles on.
package geom

import "math"

// Point is a position in screen pixels.
type Point struct {
	X float64
	Y float64
}

// Rect is a visual rectangle in screen pixels. The overlay cursor is
// always described by one of these: X/Y locate the top-left corner,
// Width/Height are the glyph dimensions.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Finite reports whether v is a usable coordinate value (not NaN, not
// an infinity).
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Valid reports whether p contains finite coordinates.
func (p Point) Valid() bool {
	return Finite(p.X) && Finite(p.Y)
}

// Valid reports whether r is safe to hand to the animation engine:
// all fields finite and dimensions non-negative. Invalid rectangles
// must cause the overlay to hide rather than render garbage.
func (r Rect) Valid() bool {
	if !Finite(r.X) || !Finite(r.Y) || !Finite(r.Width) || !Finite(r.Height) {
		return false
	}
	return r.Width >= 0 && r.Height >= 0
}

// DistSq returns the squared Euclidean distance between the positions
// of r and o, ignoring dimensions.
func (r Rect) DistSq(o Rect) float64 {
	dx := r.X - o.X
	dy := r.Y - o.Y
	return dx*dx + dy*dy
}

// SizeDeltaSq returns the squared delta between the dimensions of r
// and o, ignoring positions.
func (r Rect) SizeDeltaSq(o Rect) float64 {
	dw := r.Width - o.Width
	dh := r.Height - o.Height
	return dw*dw + dh*dh
}

// Lerp interpolates cur toward target by factor (0..1).
func Lerp(cur, target, factor float64) float64 {
	return cur + (target-cur)*factor
}

// LerpRect interpolates every field of cur toward target by factor.
func LerpRect(cur, target Rect, factor float64) Rect {
	return Rect{
		X:      Lerp(cur.X, target.X, factor),
		Y:      Lerp(cur.Y, target.Y, factor),
		Width:  Lerp(cur.Width, target.Width, factor),
		Height: Lerp(cur.Height, target.Height, factor),
	}
}

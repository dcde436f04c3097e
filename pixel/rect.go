package pixel

import "fmt"

// Point is a pixel coordinate.
type Point struct {
	X, Y int
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Rect represents a rectangular region in pixel coordinates.
type Rect struct {
	X, Y          int // Top-left corner
	Width, Height int // Dimensions
}

// R is shorthand for Rect{x, y, w, h}.
func R(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// Empty reports whether the rectangle contains no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Max returns the exclusive bottom-right corner.
func (r Rect) Max() Point {
	return Point{X: r.X + r.Width, Y: r.Y + r.Height}
}

// In reports whether r lies entirely within s.
func (r Rect) In(s Rect) bool {
	if r.Empty() {
		return true
	}
	return r.X >= s.X && r.Y >= s.Y && r.X+r.Width <= s.X+s.Width && r.Y+r.Height <= s.Y+s.Height
}

// Intersect returns the largest rectangle contained by both r and s.
// The result is the zero Rect when they do not overlap.
func (r Rect) Intersect(s Rect) Rect {
	x0 := max(r.X, s.X)
	y0 := max(r.Y, s.Y)
	x1 := min(r.X+r.Width, s.X+s.Width)
	y1 := min(r.Y+r.Height, s.Y+s.Height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Add translates r by p.
func (r Rect) Add(p Point) Rect {
	return Rect{X: r.X + p.X, Y: r.Y + p.Y, Width: r.Width, Height: r.Height}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)+%dx%d", r.X, r.Y, r.Width, r.Height)
}

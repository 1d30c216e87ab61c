package view

import "math"

type Vec struct {
	X float64
	Y float64
}

func (v Vec) Add(o Vec) Vec { return Vec{X: v.X + o.X, Y: v.Y + o.Y} }

func (v Vec) Sub(o Vec) Vec { return Vec{X: v.X - o.X, Y: v.Y - o.Y} }

func (v Vec) Scale(f float64) Vec { return Vec{X: v.X * f, Y: v.Y * f} }

func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// Rect is an axis-aligned box in pixel space.
type Rect struct {
	Min Vec
	Max Vec
}

func RectAround(center Vec, width, height float64) Rect {
	half := Vec{X: width / 2, Y: height / 2}
	return Rect{Min: center.Sub(half), Max: center.Add(half)}
}

func (r Rect) Width() float64 { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

func (r Rect) Center() Vec {
	return Vec{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

func (r Rect) Expand(d float64) Rect {
	return Rect{Min: Vec{X: r.Min.X - d, Y: r.Min.Y - d}, Max: Vec{X: r.Max.X + d, Y: r.Max.Y + d}}
}

func (r Rect) Contains(p Vec) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Color carries RGB channels plus a [0,1] alpha.
type Color struct {
	R, G, B uint8
	A       float64
}

var (
	ColorBlack  = Color{A: 1}
	ColorRed    = Color{R: 255, A: 1}
	ColorGreen  = Color{G: 255, A: 1}
	ColorYellow = Color{R: 255, G: 255, A: 1}
	ColorAlgae  = Color{R: 0xA5, G: 0xFF, B: 0xA9, A: 1}
)

type Style struct {
	Fill   Color
	Stroke Color
}

// Shape is the drawing surface a view needs. Implementations may be backed by
// a real scene graph or, as in BoxCanvas, by plain bounding boxes.
type Shape interface {
	Position() Vec
	TranslateTo(Vec)
	Scale(factor float64)
	Bounds() Rect
	Style() Style
	SetFill(Color)
	SetStroke(Color)
	Remove()
}

type Canvas interface {
	CreateShape(pos Vec, size float64) Shape
	HitTest(shape Shape, point Vec, tolerance float64) bool
	Size() Vec
}

// BoxCanvas is a headless canvas that tracks shapes as centred boxes.
type BoxCanvas struct {
	size Vec
	live int
}

func NewBoxCanvas(width, height float64) *BoxCanvas {
	return &BoxCanvas{size: Vec{X: width, Y: height}}
}

func (c *BoxCanvas) Size() Vec { return c.size }

// Live returns the number of shapes created and not yet removed.
func (c *BoxCanvas) Live() int { return c.live }

func (c *BoxCanvas) CreateShape(pos Vec, size float64) Shape {
	c.live++
	return &boxShape{canvas: c, center: pos, width: size, height: size}
}

func (c *BoxCanvas) HitTest(shape Shape, point Vec, tolerance float64) bool {
	if shape == nil {
		return false
	}
	return shape.Bounds().Expand(tolerance).Contains(point)
}

type boxShape struct {
	canvas  *BoxCanvas
	center  Vec
	width   float64
	height  float64
	style   Style
	removed bool
}

func (s *boxShape) Position() Vec { return s.center }
func (s *boxShape) TranslateTo(p Vec) { s.center = p }
func (s *boxShape) Bounds() Rect { return RectAround(s.center, s.width, s.height) }
func (s *boxShape) Style() Style { return s.style }
func (s *boxShape) SetFill(c Color) { s.style.Fill = c }
func (s *boxShape) SetStroke(c Color) { s.style.Stroke = c }

// Scale grows the box about its centre.
func (s *boxShape) Scale(factor float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	s.width *= factor
	s.height *= factor
}

func (s *boxShape) Remove() {
	if s.removed {
		return
	}
	s.removed = true
	s.canvas.live--
}

// Package robot simulates the drawing robot that BotLang programs drive: a
// turtle with a pen, a palette, polygon filling and animated movement.
// Rendering is left to the host; the turtle records the shapes it draws.
package robot

import (
	"errors"
	"math"
	"sync"

	"github.com/inconshreveable/log15"
)

// Palette holds the colors selected by setColor(n), indexed modulo its length.
var Palette = []string{
	"#000000",
	"#616178",
	"#ffffff",
	"#f54242",
	"#f57e42",
	"#f5dd42",
	"#78f542",
	"#42f59c",
	"#42d1f5",
	"#4245f5",
	"#aa42f5",
	"#f542dd",
}

// Defaults for a fresh turtle.
const (
	DefaultSpeed     = 250.0
	DefaultColor     = "#000000"
	DefaultThickness = 2.0
	DefaultWidth     = 600.0
	DefaultHeight    = 600.0
)

// Polygon protocol errors.
var (
	ErrPolyOpen     = errors.New("beginPoly() was called while already drawing a polygon.")
	ErrNoPolyToEnd  = errors.New("endPoly() was called while not drawing a polygon.")
	ErrNoPolyVertex = errors.New("dropVertex() was called while not drawing a polygon.")
)

// Point is a canvas position in pixels; y grows downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

func polar(angle, dist float64) Point {
	return Point{X: math.Cos(angle) * dist, Y: math.Sin(angle) * dist}
}

func (p Point) add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

func (p Point) dist(q Point) float64 { return math.Hypot(q.X-p.X, q.Y-p.Y) }

// ShapeKind distinguishes drawn lines from filled polygons.
type ShapeKind string

const (
	ShapeLine    ShapeKind = "line"
	ShapePolygon ShapeKind = "polygon"
)

// Shape is a finished drawing. Lines have exactly two points.
type Shape struct {
	Kind      ShapeKind `json:"kind"`
	Color     string    `json:"color"`
	Thickness float64   `json:"thickness,omitempty"`
	Points    []Point   `json:"points"`
}

func (s *Shape) clone() Shape {
	c := *s
	c.Points = append([]Point(nil), s.Points...)
	return c
}

// Config sets the canvas and motion defaults.
type Config struct {
	Width     float64
	Height    float64
	Speed     float64
	Thickness float64
	// Animate enables gliding; without it every move is instant.
	Animate bool
}

// DefaultConfig returns the stock canvas and motion settings.
func DefaultConfig() Config {
	return Config{
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		Speed:     DefaultSpeed,
		Thickness: DefaultThickness,
		Animate:   true,
	}
}

// State is a snapshot of the turtle for hosts and tests.
type State struct {
	Pos       Point   `json:"pos"`
	Angle     float64 `json:"angle"`
	Hidden    bool    `json:"hidden"`
	PenDown   bool    `json:"penDown"`
	InPolygon bool    `json:"inPolygon"`
	Color     string  `json:"color"`
	Thickness float64 `json:"thickness"`
	Speed     float64 `json:"speed"`
	Gliding   bool    `json:"gliding"`
}

// Turtle is the simulated robot. It is safe for concurrent use: the
// interpreter drives it while an Animator advances glides.
type Turtle struct {
	mu  sync.Mutex
	cfg Config
	log log15.Logger

	pos       Point
	heading   float64 // degrees, 0 points right and -90 up
	hidden    bool
	penDown   bool
	color     string
	thickness float64
	speed     float64

	inPoly  bool
	current *Shape
	shapes  []Shape

	gliding bool
	target  Point
	done    chan struct{}
	wake    chan struct{}

	onShape func(Shape)
}

// New creates a turtle at home with a clean canvas.
func New(cfg Config, logger log15.Logger) *Turtle {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.Thickness <= 0 {
		cfg.Thickness = DefaultThickness
	}
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}
	closed := make(chan struct{})
	close(closed)
	t := &Turtle{
		cfg:  cfg,
		log:  logger,
		done: closed,
		wake: make(chan struct{}, 1),
	}
	t.ResetAll()
	return t
}

// OnShape registers fn to receive every finished shape. fn runs without the
// turtle lock held.
func (t *Turtle) OnShape(fn func(Shape)) {
	t.mu.Lock()
	t.onShape = fn
	t.mu.Unlock()
}

// Canvas returns the canvas size.
func (t *Turtle) Canvas() (width, height float64) {
	return t.cfg.Width, t.cfg.Height
}

// --- Suspension ---

// IsAnimating reports whether a glide is in progress.
func (t *Turtle) IsAnimating() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gliding
}

// Done returns a channel closed when the current glide ends. It is already
// closed when the turtle is idle.
func (t *Turtle) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Wake is signalled whenever a glide starts.
func (t *Turtle) Wake() <-chan struct{} {
	return t.wake
}

// StopGlide jumps to the end of the current glide.
func (t *Turtle) StopGlide() {
	t.mu.Lock()
	finished := t.finishGlideLocked()
	fn := t.onShape
	t.mu.Unlock()
	t.notify(fn, finished)
}

// Update advances the current glide by dt seconds at the configured speed.
func (t *Turtle) Update(dt float64) {
	t.mu.Lock()
	if !t.gliding {
		t.mu.Unlock()
		return
	}
	var finished []Shape
	step := t.speed * dt
	if step >= t.pos.dist(t.target) || math.IsInf(step, 1) {
		finished = t.finishGlideLocked()
	} else {
		angle := math.Atan2(t.target.Y-t.pos.Y, t.target.X-t.pos.X)
		t.pos = t.pos.add(polar(angle, step))
		t.trackLocked()
	}
	fn := t.onShape
	t.mu.Unlock()
	t.notify(fn, finished)
}

// finishGlideLocked completes a glide and returns the shapes it finished.
func (t *Turtle) finishGlideLocked() []Shape {
	if !t.gliding {
		return nil
	}
	t.pos = t.target
	t.trackLocked()
	var finished []Shape
	if t.current != nil && t.current.Kind == ShapeLine {
		finished = append(finished, t.pushLocked(t.current))
		t.current = nil
	}
	t.gliding = false
	close(t.done)
	return finished
}

// trackLocked moves the open shape's loose end to the turtle.
func (t *Turtle) trackLocked() {
	if t.current == nil {
		return
	}
	n := len(t.current.Points)
	t.current.Points[n-1] = t.pos
}

func (t *Turtle) pushLocked(s *Shape) Shape {
	c := s.clone()
	t.shapes = append(t.shapes, c)
	return c
}

func (t *Turtle) notify(fn func(Shape), shapes []Shape) {
	if fn == nil {
		return
	}
	for _, s := range shapes {
		fn(s)
	}
}

// --- Resets ---

// ResetAll restores position, pen, canvas and speed.
func (t *Turtle) ResetAll() {
	t.ResetPosition()
	t.ResetPen()
	t.ClearCanvas()
	t.mu.Lock()
	t.speed = t.cfg.Speed
	t.mu.Unlock()
}

// ResetPosition sends the turtle home: canvas center, facing up, visible.
func (t *Turtle) ResetPosition() {
	t.StopGlide()
	t.mu.Lock()
	t.pos = Point{X: t.cfg.Width / 2, Y: t.cfg.Height / 2}
	t.heading = -90
	t.hidden = false
	t.mu.Unlock()
}

// ResetPen restores the default color and thickness, closing an open polygon.
func (t *Turtle) ResetPen() {
	t.mu.Lock()
	var finished []Shape
	if t.inPoly {
		finished = t.endPolyLocked()
	}
	t.color = DefaultColor
	t.thickness = t.cfg.Thickness
	t.penDown = true
	t.current = nil
	fn := t.onShape
	t.mu.Unlock()
	t.notify(fn, finished)
}

// ClearCanvas drops every drawn shape.
func (t *Turtle) ClearCanvas() {
	t.mu.Lock()
	t.current = nil
	t.inPoly = false
	t.shapes = nil
	t.mu.Unlock()
}

// --- Motion ---

// MoveSpeed returns the glide speed in pixels per second.
func (t *Turtle) MoveSpeed() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.speed
}

// SetMoveSpeed sets the glide speed; zero or less teleports.
func (t *Turtle) SetMoveSpeed(speed float64) {
	t.mu.Lock()
	t.speed = speed
	t.mu.Unlock()
}

// Pos returns the current position.
func (t *Turtle) Pos() Point {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos
}

// SetPos moves the turtle without drawing.
func (t *Turtle) SetPos(x, y float64) {
	t.StopGlide()
	t.mu.Lock()
	t.pos = Point{X: x, Y: y}
	t.mu.Unlock()
}

// MoveFwd moves dist pixels along the heading, drawing when the pen is down.
// With a positive speed the move glides and the caller should wait on Done.
func (t *Turtle) MoveFwd(dist float64) {
	t.StopGlide()

	t.mu.Lock()
	target := t.pos.add(polar(t.heading*math.Pi/180, dist))
	if !target.finite() {
		t.mu.Unlock()
		t.log.Warn("Ignored move to a non-finite position", "dist", dist)
		return
	}
	drawLine := t.penDown && !t.inPoly
	var finished []Shape

	if !(t.speed > 0) || !t.cfg.Animate { // NaN speed teleports too
		if drawLine {
			finished = append(finished, t.pushLocked(&Shape{
				Kind:      ShapeLine,
				Color:     t.color,
				Thickness: t.thickness,
				Points:    []Point{t.pos, target},
			}))
		}
		t.pos = target
		if t.inPoly {
			t.trackLocked()
		}
	} else {
		if drawLine {
			t.current = &Shape{
				Kind:      ShapeLine,
				Color:     t.color,
				Thickness: t.thickness,
				Points:    []Point{t.pos, t.pos},
			}
		}
		t.target = target
		t.gliding = true
		t.done = make(chan struct{})
		select {
		case t.wake <- struct{}{}:
		default:
		}
	}
	fn := t.onShape
	t.mu.Unlock()
	t.notify(fn, finished)
}

// Angle returns the heading in degrees, 0 facing up and growing clockwise.
func (t *Turtle) Angle() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return normalize(t.heading + 90)
}

// SetAngle points the turtle at angle degrees.
func (t *Turtle) SetAngle(angle float64) {
	t.mu.Lock()
	t.heading = normalize(angle - 90)
	t.mu.Unlock()
}

// Rotate turns the turtle clockwise by angle degrees.
func (t *Turtle) Rotate(angle float64) {
	t.mu.Lock()
	t.heading = normalize(t.heading + angle)
	t.mu.Unlock()
}

// normalize maps degrees into [0, 360).
func normalize(deg float64) float64 {
	return math.Mod(math.Mod(deg, 360)+360, 360)
}

// --- Visibility ---

func (t *Turtle) Show() {
	t.mu.Lock()
	t.hidden = false
	t.mu.Unlock()
}

func (t *Turtle) Hide() {
	t.mu.Lock()
	t.hidden = true
	t.mu.Unlock()
}

func (t *Turtle) IsHidden() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hidden
}

// --- Pen ---

// PenUp stops drawing. Ignored while a polygon is open.
func (t *Turtle) PenUp() {
	t.mu.Lock()
	if !t.inPoly {
		t.penDown = false
	}
	t.mu.Unlock()
}

// PenDown starts drawing. Ignored while a polygon is open.
func (t *Turtle) PenDown() {
	t.mu.Lock()
	if !t.inPoly {
		t.penDown = true
	}
	t.mu.Unlock()
}

// SetColorIndex selects a palette color; any integer wraps around.
func (t *Turtle) SetColorIndex(i int) {
	n := len(Palette)
	t.setColor(Palette[((i%n)+n)%n])
}

// SetColorCSS sets any CSS color string.
func (t *Turtle) SetColorCSS(css string) {
	t.setColor(css)
}

func (t *Turtle) setColor(c string) {
	t.mu.Lock()
	if !t.inPoly {
		t.color = c
	}
	t.mu.Unlock()
}

// SetLineThickness sets the width of lines drawn from now on.
func (t *Turtle) SetLineThickness(thickness float64) {
	t.mu.Lock()
	t.thickness = thickness
	t.mu.Unlock()
}

// --- Polygons ---

// BeginPoly opens a filled polygon at the current position. With the pen up
// it only logs a warning.
func (t *Turtle) BeginPoly() error {
	t.StopGlide()
	t.mu.Lock()
	if !t.penDown {
		t.mu.Unlock()
		t.log.Warn("Attempted to start a polygon while not drawing")
		return nil
	}
	if t.inPoly {
		t.mu.Unlock()
		return ErrPolyOpen
	}
	var finished []Shape
	if t.current != nil {
		finished = append(finished, t.pushLocked(t.current))
	}
	t.current = &Shape{
		Kind:   ShapePolygon,
		Color:  t.color,
		Points: []Point{t.pos, t.pos},
	}
	t.inPoly = true
	fn := t.onShape
	t.mu.Unlock()
	t.notify(fn, finished)
	return nil
}

// EndPoly drops a final vertex and closes the polygon.
func (t *Turtle) EndPoly() error {
	t.StopGlide()
	t.mu.Lock()
	if !t.penDown {
		t.mu.Unlock()
		t.log.Warn("Attempted to end a polygon while not drawing")
		return nil
	}
	if !t.inPoly {
		t.mu.Unlock()
		return ErrNoPolyToEnd
	}
	finished := t.endPolyLocked()
	fn := t.onShape
	t.mu.Unlock()
	t.notify(fn, finished)
	return nil
}

func (t *Turtle) endPolyLocked() []Shape {
	t.dropVertexLocked()
	poly := t.current
	// the loose end duplicates the vertex just dropped
	poly.Points = poly.Points[:len(poly.Points)-1]
	shape := t.pushLocked(poly)
	t.current = nil
	t.inPoly = false
	return []Shape{shape}
}

// DropVertex pins a polygon vertex at the current position.
func (t *Turtle) DropVertex() error {
	t.StopGlide()
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.inPoly {
		return ErrNoPolyVertex
	}
	t.dropVertexLocked()
	return nil
}

func (t *Turtle) dropVertexLocked() {
	t.trackLocked()
	t.current.Points = append(t.current.Points, t.pos)
}

// --- Inspection ---

// Shapes returns a copy of every finished shape in drawing order.
func (t *Turtle) Shapes() []Shape {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Shape, len(t.shapes))
	for i := range t.shapes {
		out[i] = t.shapes[i].clone()
	}
	return out
}

// State returns a snapshot of the turtle.
func (t *Turtle) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		Pos:       t.pos,
		Angle:     normalize(t.heading + 90),
		Hidden:    t.hidden,
		PenDown:   t.penDown,
		InPolygon: t.inPoly,
		Color:     t.color,
		Thickness: t.thickness,
		Speed:     t.speed,
		Gliding:   t.gliding,
	}
}

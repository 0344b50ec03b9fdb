package robot

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func instantTurtle() *Turtle {
	cfg := DefaultConfig()
	cfg.Animate = false
	return New(cfg, nil)
}

// ---- Resets and heading ----

func TestHomeState(t *testing.T) {
	tu := instantTurtle()
	st := tu.State()
	assert.Equal(t, Point{X: 300, Y: 300}, st.Pos)
	assert.Equal(t, 0.0, st.Angle)
	assert.True(t, st.PenDown)
	assert.False(t, st.Hidden)
	assert.Equal(t, DefaultColor, st.Color)
	assert.Equal(t, DefaultThickness, st.Thickness)
	assert.Equal(t, DefaultSpeed, st.Speed)
}

func TestAngles(t *testing.T) {
	tests := []struct {
		name   string
		apply  func(*Turtle)
		expect float64
	}{
		{"rotate clockwise", func(tu *Turtle) { tu.Rotate(90) }, 90},
		{"rotate counter-clockwise wraps", func(tu *Turtle) { tu.Rotate(-90) }, 270},
		{"full turn", func(tu *Turtle) { tu.Rotate(720) }, 0},
		{"set angle", func(tu *Turtle) { tu.SetAngle(45) }, 45},
		{"set negative angle", func(tu *Turtle) { tu.SetAngle(-30) }, 330},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := instantTurtle()
			tt.apply(tu)
			assert.Equal(t, tt.expect, tu.Angle())
		})
	}
}

func TestMoveFollowsHeading(t *testing.T) {
	tu := instantTurtle()
	tu.MoveFwd(100) // up
	require.True(t, cmp.Equal(Point{X: 300, Y: 200}, tu.Pos(), approx), "pos %v", tu.Pos())
	tu.Rotate(90) // right
	tu.MoveFwd(50)
	require.True(t, cmp.Equal(Point{X: 350, Y: 200}, tu.Pos(), approx), "pos %v", tu.Pos())
}

func TestResetAll(t *testing.T) {
	tu := instantTurtle()
	tu.MoveFwd(10)
	tu.SetColorIndex(3)
	tu.SetMoveSpeed(5)
	tu.Hide()
	tu.Rotate(33)
	tu.ResetAll()

	st := tu.State()
	assert.Equal(t, Point{X: 300, Y: 300}, st.Pos)
	assert.Equal(t, 0.0, st.Angle)
	assert.False(t, st.Hidden)
	assert.Equal(t, DefaultColor, st.Color)
	assert.Equal(t, DefaultSpeed, st.Speed)
	assert.Empty(t, tu.Shapes())
}

// ---- Drawing ----

func TestInstantMoveDrawsLine(t *testing.T) {
	tu := instantTurtle()
	tu.SetColorIndex(15) // wraps to 3
	tu.SetLineThickness(4)
	tu.MoveFwd(10)

	want := []Shape{{
		Kind:      ShapeLine,
		Color:     Palette[3],
		Thickness: 4,
		Points:    []Point{{300, 300}, {300, 290}},
	}}
	if diff := cmp.Diff(want, tu.Shapes(), approx); diff != "" {
		t.Errorf("shapes mismatch (-want +got):\n%s", diff)
	}
}

func TestNegativePaletteIndexWraps(t *testing.T) {
	tu := instantTurtle()
	tu.SetColorIndex(-1)
	assert.Equal(t, Palette[len(Palette)-1], tu.State().Color)
}

func TestPenUpDoesNotDraw(t *testing.T) {
	tu := instantTurtle()
	tu.PenUp()
	tu.MoveFwd(10)
	assert.Empty(t, tu.Shapes())
	tu.PenDown()
	tu.MoveFwd(10)
	assert.Len(t, tu.Shapes(), 1)
}

func TestSetPosDoesNotDraw(t *testing.T) {
	tu := instantTurtle()
	tu.SetPos(10, 20)
	assert.Equal(t, Point{X: 10, Y: 20}, tu.Pos())
	assert.Empty(t, tu.Shapes())
}

func TestOnShapeReceivesFinishedShapes(t *testing.T) {
	tu := instantTurtle()
	var got []Shape
	tu.OnShape(func(s Shape) { got = append(got, s) })
	tu.MoveFwd(5)
	require.NoError(t, tu.BeginPoly())
	tu.MoveFwd(5)
	require.NoError(t, tu.EndPoly())
	require.Len(t, got, 2)
	assert.Equal(t, ShapeLine, got[0].Kind)
	assert.Equal(t, ShapePolygon, got[1].Kind)
}

// ---- Polygons ----

func TestPolygonProtocol(t *testing.T) {
	tu := instantTurtle()
	require.NoError(t, tu.BeginPoly())
	assert.ErrorIs(t, tu.BeginPoly(), ErrPolyOpen)

	tu.MoveFwd(10)
	require.NoError(t, tu.DropVertex())
	tu.Rotate(90)
	tu.MoveFwd(10)
	require.NoError(t, tu.EndPoly())

	shapes := tu.Shapes()
	require.Len(t, shapes, 1)
	want := Shape{
		Kind:   ShapePolygon,
		Color:  DefaultColor,
		Points: []Point{{300, 300}, {300, 290}, {310, 290}},
	}
	if diff := cmp.Diff(want, shapes[0], approx); diff != "" {
		t.Errorf("polygon mismatch (-want +got):\n%s", diff)
	}

	assert.ErrorIs(t, tu.EndPoly(), ErrNoPolyToEnd)
	assert.ErrorIs(t, tu.DropVertex(), ErrNoPolyVertex)
}

func TestPenAndColorFrozenInsidePolygon(t *testing.T) {
	tu := instantTurtle()
	require.NoError(t, tu.BeginPoly())
	tu.PenUp()
	tu.SetColorIndex(4)
	tu.SetColorCSS("red")
	st := tu.State()
	assert.True(t, st.PenDown)
	assert.Equal(t, DefaultColor, st.Color)
	assert.True(t, st.InPolygon)
}

func TestPolygonWithPenUpOnlyWarns(t *testing.T) {
	tu := instantTurtle()
	tu.PenUp()
	assert.NoError(t, tu.BeginPoly())
	assert.False(t, tu.State().InPolygon)
	assert.NoError(t, tu.EndPoly())
}

func TestResetPenClosesPolygon(t *testing.T) {
	tu := instantTurtle()
	require.NoError(t, tu.BeginPoly())
	tu.MoveFwd(10)
	tu.ResetPen()
	assert.False(t, tu.State().InPolygon)
	require.Len(t, tu.Shapes(), 1)
	assert.Equal(t, ShapePolygon, tu.Shapes()[0].Kind)
}

// ---- Gliding ----

func TestGlideAdvancesWithUpdate(t *testing.T) {
	tu := New(DefaultConfig(), nil)
	tu.SetMoveSpeed(100)
	tu.MoveFwd(50)

	require.True(t, tu.IsAnimating())
	done := tu.Done()
	select {
	case <-done:
		t.Fatal("done closed before the glide finished")
	default:
	}

	tu.Update(0.2) // 20px
	assert.True(t, cmp.Equal(Point{X: 300, Y: 280}, tu.Pos(), approx), "pos %v", tu.Pos())
	assert.Empty(t, tu.Shapes(), "the line is committed when the glide ends")

	tu.Update(1)
	assert.False(t, tu.IsAnimating())
	assert.True(t, cmp.Equal(Point{X: 300, Y: 250}, tu.Pos(), approx), "pos %v", tu.Pos())
	<-done
	require.Len(t, tu.Shapes(), 1)
}

func TestStopGlideFinishesImmediately(t *testing.T) {
	tu := New(DefaultConfig(), nil)
	tu.MoveFwd(100)
	require.True(t, tu.IsAnimating())
	done := tu.Done()
	tu.StopGlide()
	<-done
	assert.True(t, cmp.Equal(Point{X: 300, Y: 200}, tu.Pos(), approx))
	assert.Len(t, tu.Shapes(), 1)
}

func TestZeroSpeedTeleports(t *testing.T) {
	tu := New(DefaultConfig(), nil)
	tu.SetMoveSpeed(0)
	tu.MoveFwd(10)
	assert.False(t, tu.IsAnimating())
	assert.Len(t, tu.Shapes(), 1)
}

func TestNonFiniteMovesAreIgnored(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*Turtle)
	}{
		{"NaN distance", func(tu *Turtle) { tu.MoveFwd(math.NaN()) }},
		{"infinite distance", func(tu *Turtle) { tu.MoveFwd(math.Inf(1)) }},
		{"NaN heading", func(tu *Turtle) { tu.Rotate(math.NaN()); tu.MoveFwd(10) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := New(DefaultConfig(), nil)
			tt.apply(tu)
			assert.False(t, tu.IsAnimating())
			assert.Equal(t, Point{X: 300, Y: 300}, tu.Pos())
			assert.Empty(t, tu.Shapes())
		})
	}
}

func TestNaNSpeedTeleports(t *testing.T) {
	tu := New(DefaultConfig(), nil)
	tu.SetMoveSpeed(math.NaN())
	tu.MoveFwd(10)
	assert.False(t, tu.IsAnimating())
	assert.Len(t, tu.Shapes(), 1)
}

func TestAnimatorCompletesGlides(t *testing.T) {
	tu := New(DefaultConfig(), nil)
	anim := NewAnimator(tu, 120, 0)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan error, 1)
	go func() { finished <- anim.Run(ctx) }()

	for i := 0; i < 3; i++ {
		tu.MoveFwd(1000)
		select {
		case <-tu.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("glide %d did not finish", i)
		}
	}
	cancel()
	require.NoError(t, <-finished)
	assert.Len(t, tu.Shapes(), 3)
}

package robot

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// DefaultFrameRate is the animation tick rate in frames per second.
const DefaultFrameRate = 60

// Animator advances a turtle's glides on a paced clock, standing in for the
// render loop of a graphical host.
type Animator struct {
	turtle    *Turtle
	limiter   *rate.Limiter
	timeScale float64
	now       func() time.Time
}

// NewAnimator paces turtle at fps frames per second. timeScale multiplies
// elapsed time; 0 finishes every glide on the next frame.
func NewAnimator(turtle *Turtle, fps int, timeScale float64) *Animator {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	limit := rate.Limit(fps)
	if timeScale == 0 {
		limit = rate.Inf
	}
	return &Animator{
		turtle:    turtle,
		limiter:   rate.NewLimiter(limit, 1),
		timeScale: timeScale,
		now:       time.Now,
	}
}

// Run ticks until ctx is done. It sleeps while the turtle is idle.
func (a *Animator) Run(ctx context.Context) error {
	for {
		if !a.turtle.IsAnimating() {
			select {
			case <-a.turtle.Wake():
			case <-ctx.Done():
				return nil
			}
		}
		last := a.now()
		for a.turtle.IsAnimating() {
			if err := a.limiter.Wait(ctx); err != nil {
				return nil
			}
			now := a.now()
			dt := now.Sub(last).Seconds() * a.timeScale
			if a.timeScale == 0 {
				dt = math.Inf(1)
			}
			last = now
			a.turtle.Update(dt)
		}
	}
}

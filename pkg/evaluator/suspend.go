package evaluator

import (
	"sync"
)

// Actor is the animated collaborator the interpreter waits on. While
// IsAnimating reports true, execution is suspended at the next statement
// until the channel returned by Done is closed.
type Actor interface {
	IsAnimating() bool
	Done() <-chan struct{}
	// StopGlide finishes any animation in progress immediately.
	StopGlide()
}

// killSwitch is the cancellation state of one run.
type killSwitch struct {
	mu   sync.Mutex
	ch   chan struct{}
	once *sync.Once
}

func newKillSwitch() *killSwitch {
	return &killSwitch{ch: make(chan struct{}), once: new(sync.Once)}
}

// rearm clears a previous kill so the next run can start.
func (k *killSwitch) rearm() {
	k.mu.Lock()
	k.ch = make(chan struct{})
	k.once = new(sync.Once)
	k.mu.Unlock()
}

func (k *killSwitch) fire() {
	k.mu.Lock()
	ch, once := k.ch, k.once
	k.mu.Unlock()
	once.Do(func() { close(ch) })
}

func (k *killSwitch) done() <-chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ch
}

func (k *killSwitch) fired() bool {
	select {
	case <-k.done():
		return true
	default:
		return false
	}
}

// Kill asks the running program to stop at its next statement. Any animation
// in progress is finished so the suspended program can observe the request.
// Kill is safe to call from any goroutine.
func (in *Interpreter) Kill() {
	in.kill.fire()
	in.logger.Warn("Kill requested", "runId", in.opts.RunID)
	if in.opts.Actor != nil {
		in.opts.Actor.StopGlide()
	}
}

// Killed reports whether Kill was called during the current run.
func (in *Interpreter) Killed() bool {
	return in.kill.fired()
}

// checkpoint runs before every statement. It suspends while the actor is
// animating and aborts the run once a kill was requested.
func (in *Interpreter) checkpoint() error {
	if a := in.opts.Actor; a != nil && a.IsAnimating() {
		in.logger.Debug("Suspended", "runId", in.opts.RunID)
		in.emit(TraceSuspend, nil, nil)
		select {
		case <-a.Done():
		case <-in.kill.done():
		case <-in.ctx.Done():
		}
		in.logger.Debug("Resumed", "runId", in.opts.RunID)
		in.emit(TraceResume, nil, nil)
	}
	if in.kill.fired() || in.ctx.Err() != nil {
		return RuntimeErrorf("Interpreter was killed.")
	}
	return nil
}

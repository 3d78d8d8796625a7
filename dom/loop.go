package dom

import (
	"sync"
	"time"
)

// Loop is a cooperative task queue with a virtual clock. Observer deliveries
// and watch timeouts are posted here, so every callback runs to completion
// before the next one starts and mutation handling never interleaves.
//
// The loop does not spin on its own: whoever mutates the document calls
// Drain (or Advance) to let queued work run. Time only moves when Advance
// moves it, which makes timeout behaviour exact in tests and irrelevant to
// wall-clock hiccups in batch use.
//
// Post may be called from any goroutine (settings watchers hand work to the
// document this way); every other method belongs to the goroutine driving
// the document.
type Loop struct {
	mu     sync.Mutex
	tasks  []func()
	timers []*Timer
	now    time.Duration
}

// Timer is a pending timeout created by After.
type Timer struct {
	deadline time.Duration
	fn       func()
	stopped  bool
}

// Stop cancels the timer. Safe to call repeatedly, including after firing.
func (t *Timer) Stop() { t.stopped = true }

// NewLoop creates an empty loop with the clock at zero.
func NewLoop() *Loop { return &Loop{} }

// Now returns the current virtual time.
func (l *Loop) Now() time.Duration { return l.now }

// Post enqueues fn to run on the next Drain.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
}

// After schedules fn to fire once the virtual clock advances past d from now.
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	t := &Timer{deadline: l.now + d, fn: fn}
	l.timers = append(l.timers, t)
	return t
}

// Drain runs queued tasks in FIFO order until the queue is empty. Tasks
// posted while draining run in the same call.
func (l *Loop) Drain() {
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.tasks[0]
		l.tasks[0] = nil // release the slot; closures can pin nodes
		l.tasks = l.tasks[1:]
		l.mu.Unlock()
		fn()
	}
}

// Advance moves the virtual clock forward by d, firing due timers in
// deadline order and draining the task queue after each firing.
func (l *Loop) Advance(d time.Duration) {
	target := l.now + d
	l.Drain()
	for {
		t := l.nextDue(target)
		if t == nil {
			break
		}
		l.now = t.deadline
		t.fn()
		l.Drain()
	}
	l.now = target
}

// nextDue removes and returns the earliest un-stopped timer with a deadline
// at or before target, pruning stopped timers as it scans.
func (l *Loop) nextDue(target time.Duration) *Timer {
	live := l.timers[:0]
	var best *Timer
	for _, t := range l.timers {
		if t.stopped {
			continue
		}
		live = append(live, t)
		if t.deadline <= target && (best == nil || t.deadline < best.deadline) {
			best = t
		}
	}
	stale := l.timers[len(live):]
	for i := range stale {
		stale[i] = nil
	}
	l.timers = live
	if best == nil {
		return nil
	}
	for i, t := range l.timers {
		if t == best {
			copy(l.timers[i:], l.timers[i+1:])
			l.timers[len(l.timers)-1] = nil
			l.timers = l.timers[:len(l.timers)-1]
			break
		}
	}
	return best
}

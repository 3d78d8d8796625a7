package dom

import (
	"testing"
	"time"
)

func TestLoopPostDrainOrder(t *testing.T) {
	l := NewLoop()
	var got []int
	l.Post(func() { got = append(got, 1) })
	l.Post(func() { got = append(got, 2) })
	l.Drain()

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected FIFO [1 2], got %v", got)
	}
}

func TestLoopDrainRunsTasksPostedWhileDraining(t *testing.T) {
	l := NewLoop()
	var got []int
	l.Post(func() {
		got = append(got, 1)
		l.Post(func() { got = append(got, 2) })
	})
	l.Drain()

	if len(got) != 2 {
		t.Fatalf("expected nested task to run in the same drain, got %v", got)
	}
}

func TestLoopAdvanceFiresTimersInDeadlineOrder(t *testing.T) {
	l := NewLoop()
	var got []string
	l.After(3*time.Second, func() { got = append(got, "late") })
	l.After(time.Second, func() { got = append(got, "early") })

	l.Advance(5 * time.Second)

	if len(got) != 2 || got[0] != "early" || got[1] != "late" {
		t.Fatalf("expected [early late], got %v", got)
	}
	if l.Now() != 5*time.Second {
		t.Fatalf("expected clock at 5s, got %v", l.Now())
	}
}

func TestLoopAdvanceSkipsUndueTimers(t *testing.T) {
	l := NewLoop()
	fired := false
	l.After(10*time.Second, func() { fired = true })

	l.Advance(9 * time.Second)
	if fired {
		t.Fatal("timer fired before its deadline")
	}
	l.Advance(time.Second)
	if !fired {
		t.Fatal("timer did not fire at its deadline")
	}
}

func TestLoopStoppedTimerDoesNotFire(t *testing.T) {
	l := NewLoop()
	fired := false
	tm := l.After(time.Second, func() { fired = true })
	tm.Stop()

	l.Advance(2 * time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
}

func TestLoopAdvanceDrainsAfterEachTimer(t *testing.T) {
	l := NewLoop()
	var got []string
	l.After(time.Second, func() {
		l.Post(func() { got = append(got, "posted-by-timer") })
	})
	l.After(2*time.Second, func() { got = append(got, "second-timer") })

	l.Advance(3 * time.Second)

	if len(got) != 2 || got[0] != "posted-by-timer" || got[1] != "second-timer" {
		t.Fatalf("expected posted task to run before the next timer, got %v", got)
	}
}

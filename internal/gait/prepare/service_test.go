package prepare

import (
	"context"
	"errors"
	"testing"
	"time"

	"freegait/internal/eventbus"
	"freegait/internal/gait/step"
	logx "freegait/pkg/logx"

	"github.com/golang/geo/r3"
)

func newService(t *testing.T, bus eventbus.Bus) *Service {
	t.Helper()
	s := New(Config{Enabled: true, Workers: 2, QueueSize: 8, HistorySize: 4}, logx.Nop(), bus)
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s
}

func holdStep(d time.Duration) *step.Step {
	st := step.New("hold")
	st.AddLegMotion(&step.LegMode{Leg: step.LF, Duration: d, SupportLeg: true})
	return st
}

// pollPrepare drives Prepare the way the control tick does until it settles.
func pollPrepare(t *testing.T, st *step.Step) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st.Prepare() {
			return true
		}
		if !st.Preparing() {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("preparation did not settle")
	return false
}

func waitEvent(t *testing.T, ch <-chan eventbus.Event) eventbus.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}
	return eventbus.Event{}
}

func TestSubmitResolvesPlan(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4, "prepare.")
	defer unsub()
	s := newService(t, bus)

	st := holdStep(30 * time.Millisecond)
	if err := s.Submit(st); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !st.Preparing() {
		t.Fatal("submitted step must carry a pending handle")
	}
	if !pollPrepare(t, st) {
		t.Fatalf("Prepare failed: %v", st.PrepareErr())
	}
	if got := st.TotalDuration(); got != 30*time.Millisecond {
		t.Fatalf("TotalDuration = %s, want 30ms", got)
	}

	e := waitEvent(t, events)
	if e.Type != EventFinished {
		t.Fatalf("event type = %s, want %s", e.Type, EventFinished)
	}
	if ev, ok := e.Data.(Event); !ok || ev.StepID != st.ID.String() {
		t.Fatalf("unexpected event payload %#v", e.Data)
	}

	snap := s.Snapshot()
	if snap.Submitted != 1 || snap.Failed != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(snap.History) != 1 || snap.History[0].Planned != 30*time.Millisecond {
		t.Fatalf("history = %+v", snap.History)
	}
}

func TestFailedPlanFallsBackToInline(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4, EventFailed)
	defer unsub()
	s := newService(t, bus)

	st := step.New("bare")
	st.AddLegMotion(step.NewFootstep(step.RF, r3.Vector{X: 0.3}))
	if err := s.Submit(st); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if pollPrepare(t, st) {
		t.Fatal("incomplete footstep must not prepare")
	}
	if !errors.Is(st.PrepareErr(), step.ErrNotCompleted) {
		t.Fatalf("PrepareErr = %v, want ErrNotCompleted", st.PrepareErr())
	}
	if st.Preparing() {
		t.Fatal("handle must be released after a failed plan")
	}
	waitEvent(t, events)
	if got := s.Snapshot().Failed; got != 1 {
		t.Fatalf("Failed = %d, want 1", got)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	t.Parallel()
	s := newService(t, nil)
	for i := 0; i < 6; i++ {
		st := holdStep(time.Duration(i+1) * time.Millisecond)
		if err := s.Submit(st); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		pollPrepare(t, st)
	}
	if got := len(s.Snapshot().History); got != 4 {
		t.Fatalf("history len = %d, want 4", got)
	}
}

func TestSubmitRejectedWhenNotRunning(t *testing.T) {
	t.Parallel()
	disabled := New(Config{}, logx.Nop(), nil)
	st := holdStep(10 * time.Millisecond)
	if err := disabled.Submit(st); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Submit on disabled service = %v, want ErrDisabled", err)
	}
	if st.Preparing() {
		t.Fatal("rejected step must not carry a pending handle")
	}

	idle := New(Config{Enabled: true}, logx.Nop(), nil)
	if err := idle.Submit(st); !errors.Is(err, ErrStopped) {
		t.Fatalf("Submit before Start = %v, want ErrStopped", err)
	}

	idle.Start(context.Background())
	idle.Stop(context.Background())
	if err := idle.Submit(st); !errors.Is(err, ErrStopped) {
		t.Fatalf("Submit after Stop = %v, want ErrStopped", err)
	}
	if !st.Prepare() {
		t.Fatalf("inline Prepare failed: %v", st.PrepareErr())
	}
}

func TestApplyTogglesWorkers(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, logx.Nop(), nil)
	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop(ctx)

	s.Apply(ctx, Config{Enabled: true, Workers: 4, QueueSize: 16})
	snap := s.Snapshot()
	if snap.Workers != 4 || snap.QueueCap != 16 {
		t.Fatalf("after resize: %+v", snap)
	}

	s.Apply(ctx, Config{Enabled: false})
	if err := s.Submit(holdStep(time.Millisecond)); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Submit after disable = %v, want ErrDisabled", err)
	}

	s.Apply(ctx, Config{Enabled: true})
	st := holdStep(time.Millisecond)
	if err := s.Submit(st); err != nil {
		t.Fatalf("Submit after re-enable: %v", err)
	}
	if !pollPrepare(t, st) {
		t.Fatalf("Prepare failed: %v", st.PrepareErr())
	}
}

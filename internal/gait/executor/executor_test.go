package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"freegait/internal/eventbus"
	"freegait/internal/gait/completer"
	"freegait/internal/gait/robot"
	"freegait/internal/gait/step"
	logx "freegait/pkg/logx"

	"github.com/golang/geo/r3"
)

const period = 10 * time.Millisecond

func newRobot() *robot.Simulated {
	return robot.NewSimulated(step.SymmetricStance(0.2, 0.2), 0.46)
}

func hold(label string, d time.Duration) *step.Step {
	st := step.New(label)
	st.AddLegMotion(&step.LegMode{Leg: step.LF, Duration: d, SupportLeg: true})
	return st
}

func newExecutor(sim *robot.Simulated, cfg Config, opts ...Option) *Executor {
	c := completer.New(sim, completer.WithLogger(logx.Nop()))
	return New(cfg, c, append([]Option{WithLogger(logx.Nop())}, opts...)...)
}

func TestEventOrder(t *testing.T) {
	t.Parallel()
	sim := newRobot()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(32, "step.")
	defer unsub()
	e := newExecutor(sim, Config{Period: period, StopWhenIdle: true}, WithBus(bus))

	a, b := hold("a", 20*time.Millisecond), hold("b", 20*time.Millisecond)
	if err := e.Submit(context.Background(), sim, a, b); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for i := 0; i < 10; i++ {
		e.Tick(period)
	}

	want := []struct {
		typ   string
		label string
	}{
		{EventSwitched, "a"},
		{EventStarted, "a"},
		{EventFinished, "a"},
		{EventSwitched, "b"},
		{EventStarted, "b"},
		{EventFinished, "b"},
	}
	for i, w := range want {
		select {
		case ev := <-events:
			se := ev.Data.(StepEvent)
			if ev.Type != w.typ || se.Step.Label != w.label {
				t.Fatalf("event %d = %s(%s), want %s(%s)", i, ev.Type, se.Step.Label, w.typ, w.label)
			}
		default:
			t.Fatalf("missing event %d (%s %s)", i, w.typ, w.label)
		}
	}
	if len(events) != 0 {
		t.Fatalf("%d unexpected extra events", len(events))
	}
	select {
	case <-e.Done():
	default:
		t.Fatal("Done must be closed once the queue drains")
	}
}

func TestSubmitStopsAtFirstIncompleteStep(t *testing.T) {
	t.Parallel()
	sim := newRobot()
	sim.RemoveFoot(step.RF)
	e := newExecutor(sim, Config{})

	bad := step.New("bad")
	bad.AddLegMotion(step.NewFootstep(step.RF, r3.Vector{X: 0.3, Y: -0.2}))

	err := e.Submit(context.Background(), sim, hold("ok", period), bad, hold("after", period))
	if !errors.Is(err, completer.ErrIncomplete) {
		t.Fatalf("Submit err = %v, want ErrIncomplete", err)
	}
	if got := e.Status().Size; got != 1 {
		t.Fatalf("queue size = %d, want only the step before the failure", got)
	}
}

func TestSubmitHonorsContext(t *testing.T) {
	t.Parallel()
	sim := newRobot()
	e := newExecutor(sim, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Submit(ctx, sim, hold("a", period)); !errors.Is(err, context.Canceled) {
		t.Fatalf("Submit err = %v, want context.Canceled", err)
	}
	if e.Status().Size != 0 {
		t.Fatal("nothing may be queued after cancellation")
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()
	sim := newRobot()
	e := newExecutor(sim, Config{})
	a, b := hold("a", 40*time.Millisecond), hold("b", 20*time.Millisecond)
	if err := e.Submit(context.Background(), sim, a, b); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	st := e.Status()
	if st.Active || st.Size != 2 || !st.Preparing {
		t.Fatalf("before ticks: %+v", st)
	}

	e.Tick(period) // activation
	e.Tick(period) // a prepared
	e.Tick(period) // a at 10ms
	st = e.Status()
	if !st.Active || st.Current == nil || st.Current.Label != "a" {
		t.Fatalf("current = %+v", st.Current)
	}
	if st.Next == nil || st.Next.Label != "b" {
		t.Fatalf("next = %+v", st.Next)
	}
	if st.Previous != nil {
		t.Fatalf("previous = %+v, want none", st.Previous)
	}
	if st.Phase != 0.25 {
		t.Fatalf("phase = %v, want 0.25", st.Phase)
	}
	// b is not prepared yet, so only a's remaining 30ms counts.
	if st.Remaining != 30*time.Millisecond {
		t.Fatalf("remaining = %s, want 30ms", st.Remaining)
	}
	if st.Ticks != 3 {
		t.Fatalf("ticks = %d, want 3", st.Ticks)
	}
}

func TestPreemptAndReset(t *testing.T) {
	t.Parallel()
	sim := newRobot()
	e := newExecutor(sim, Config{})
	if err := e.Submit(context.Background(), sim, hold("a", period), hold("b", period), hold("c", period)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	e.Preempt()
	st := e.Status()
	if st.Size != 1 || st.Current.Label != "a" || st.Next != nil {
		t.Fatalf("after Preempt: %+v", st)
	}
	e.Reset()
	if st := e.Status(); st.Size != 0 || st.Current != nil {
		t.Fatalf("after Reset: %+v", st)
	}
}

func TestFinishHookAppliesStep(t *testing.T) {
	t.Parallel()
	sim := newRobot()
	var finished []string
	e := newExecutor(sim, Config{}, WithFinishHook(func(s *step.Step) {
		finished = append(finished, s.Label)
		sim.ApplyStep(s)
	}))

	st := step.New("swing")
	target := r3.Vector{X: 0.3, Y: 0.2}
	st.AddLegMotion(step.NewFootstep(step.LF, target))
	if err := e.Submit(context.Background(), sim, st); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for i := 0; i < 200 && len(finished) == 0; i++ {
		e.Tick(period)
	}
	if len(finished) != 1 || finished[0] != "swing" {
		t.Fatalf("finished = %v", finished)
	}
	if pos, _ := sim.FootPosition(step.LF); pos != target {
		t.Fatalf("LF = %v, want %v", pos, target)
	}
}

func footStart(t *testing.T, s *step.Step) r3.Vector {
	t.Helper()
	m, ok := s.LegMotion(step.LF)
	if !ok {
		t.Fatalf("%s: no LF motion", s.Label)
	}
	f, ok := m.(*step.Footstep)
	if !ok || f.Start == nil {
		t.Fatalf("%s: LF motion %T has no start", s.Label, m)
	}
	return *f.Start
}

func TestSubmitChainsBatchState(t *testing.T) {
	t.Parallel()
	sim := newRobot()
	e := newExecutor(sim, Config{})

	one, two := step.New("one"), step.New("two")
	one.AddLegMotion(step.NewFootstep(step.LF, r3.Vector{X: 0.5, Y: 0.2}))
	two.AddLegMotion(step.NewFootstep(step.LF, r3.Vector{X: 0.8, Y: 0.2}))
	if err := e.Submit(context.Background(), sim, one, two); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got, want := footStart(t, one), (r3.Vector{X: 0.2, Y: 0.2}); got != want {
		t.Fatalf("one start = %v, want %v", got, want)
	}
	if got, want := footStart(t, two), (r3.Vector{X: 0.5, Y: 0.2}); got != want {
		t.Fatalf("two start = %v, want %v", got, want)
	}

	// A later batch continues from the queued plan, not the live robot.
	three := step.New("three")
	three.AddLegMotion(step.NewFootstep(step.LF, r3.Vector{X: 1.0, Y: 0.2}))
	if err := e.Submit(context.Background(), sim, three); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got, want := footStart(t, three), (r3.Vector{X: 0.8, Y: 0.2}); got != want {
		t.Fatalf("three start = %v, want %v", got, want)
	}
	if pos, _ := sim.FootPosition(step.LF); pos != (r3.Vector{X: 0.2, Y: 0.2}) {
		t.Fatalf("live robot moved to %v before any tick", pos)
	}
}

func TestResetThenSubmitSwitches(t *testing.T) {
	t.Parallel()
	sim := newRobot()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(32, "step.")
	defer unsub()
	e := newExecutor(sim, Config{}, WithBus(bus))

	if err := e.Submit(context.Background(), sim, hold("a", 5*period)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	e.Tick(period)
	e.Tick(period)
	e.Reset()
	for len(events) > 0 {
		<-events
	}

	if err := e.Submit(context.Background(), sim, hold("b", 5*period)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	e.Tick(period)
	if len(events) != 1 {
		t.Fatalf("%d events after Reset and Submit, want 1", len(events))
	}
	if ev := <-events; ev.Type != EventSwitched {
		t.Fatalf("event = %s, want %s", ev.Type, EventSwitched)
	}
	if st := e.Status(); st.Current == nil || st.Current.Label != "b" || st.Current.Elapsed != 0 {
		t.Fatalf("status = %+v, want b at elapsed 0", st)
	}
}

func TestRunStopsWhenIdle(t *testing.T) {
	t.Parallel()
	sim := newRobot()
	e := newExecutor(sim, Config{Period: time.Millisecond, StopWhenIdle: true})
	if err := e.Submit(context.Background(), sim, hold("a", 5*time.Millisecond)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st := e.Status(); st.Size != 0 || st.Previous == nil || st.Previous.Label != "a" {
		t.Fatalf("after Run: %+v", st)
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	t.Parallel()
	e := newExecutor(newRobot(), Config{Period: time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run err = %v, want DeadlineExceeded", err)
	}
}

// Package executor owns the step queue and drives it at a fixed control rate.
//
// Producers (Submit, Preempt, Reset, Status) and the control tick are
// serialized by one mutex; the tick itself never blocks on preparation,
// storage or subscribers.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"freegait/internal/eventbus"
	"freegait/internal/gait/queue"
	"freegait/internal/gait/robot"
	"freegait/internal/gait/step"
	logx "freegait/pkg/logx"
)

const DefaultPeriod = 10 * time.Millisecond

type Config struct {
	Period time.Duration
	// StopWhenIdle closes Done (and ends Run) once the queue drains after
	// having executed at least one step.
	StopWhenIdle bool
}

// Completer fills unset step parameters from the robot state.
type Completer interface {
	Complete(state robot.State, s *step.Step) error
}

// Preparer computes step plans off the control thread.
type Preparer interface {
	Submit(s *step.Step) error
}

type Option func(*Executor)

func WithLogger(log logx.Logger) Option {
	return func(e *Executor) { e.log = log }
}

func WithBus(bus eventbus.Bus) Option {
	return func(e *Executor) { e.bus = bus }
}

func WithPreparer(p Preparer) Option {
	return func(e *Executor) { e.prep = p }
}

// WithFinishHook registers fn to run on the control tick for every finished
// step. fn must not call back into the Executor.
func WithFinishHook(fn func(*step.Step)) Option {
	return func(e *Executor) { e.onFinish = fn }
}

type Executor struct {
	cfg       Config
	completer Completer
	prep      Preparer
	bus       eventbus.Bus
	log       logx.Logger
	onFinish  func(*step.Step)

	mu      sync.Mutex
	q       *queue.Queue[*step.Step]
	ticks   uint64
	hadWork bool

	stall    *rate.Limiter
	idleOnce sync.Once
	idle     chan struct{}
}

func New(cfg Config, c Completer, opts ...Option) *Executor {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	e := &Executor{
		cfg:       cfg,
		completer: c,
		q:         queue.New[*step.Step](),
		stall:     rate.NewLimiter(rate.Every(time.Second), 1),
		idle:      make(chan struct{}),
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With(logx.String("comp", "executor"))
	return e
}

func (e *Executor) Period() time.Duration { return e.cfg.Period }

// Submit completes each step against state and appends it to the queue. A
// completion failure discards that step and the rest of the batch; steps
// before it stay queued.
//
// When state is a robot.Predictor, each step is completed against the state
// projected past every step queued ahead of it, so a batch chains like it
// will execute.
func (e *Executor) Submit(ctx context.Context, state robot.State, steps ...*step.Step) error {
	pred, chained := state.(robot.Predictor)
	if chained {
		// Same lock as the finish hook: the robot and the queue agree.
		e.mu.Lock()
		pred = pred.Predict(e.q.Steps()...)
		e.mu.Unlock()
		state = pred
	}
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("step %d: nil step", i)
		}
		if err := e.completer.Complete(state, s); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, s.Label, err)
		}
		e.prepare(s)
		if chained {
			pred = pred.Predict(s)
			state = pred
		}

		e.mu.Lock()
		e.q.Add(s)
		e.hadWork = true
		size := e.q.Size()
		e.mu.Unlock()

		e.log.Debug("step queued", logx.String("step", s.ID.String()), logx.String("label", s.Label), logx.Int("queue_size", size))
	}
	return nil
}

// Replace completes s and swaps it in for the current step.
func (e *Executor) Replace(state robot.State, s *step.Step) error {
	if err := e.completer.Complete(state, s); err != nil {
		return err
	}
	e.prepare(s)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.q.ReplaceCurrentStep(s)
}

func (e *Executor) prepare(s *step.Step) {
	if e.prep == nil {
		return
	}
	if err := e.prep.Submit(s); err != nil {
		e.log.Debug("background preparation unavailable", logx.String("step", s.ID.String()), logx.Err(err))
	}
}

// Preempt drops every queued step after the current one.
func (e *Executor) Preempt() {
	e.mu.Lock()
	e.q.ClearNextSteps()
	e.mu.Unlock()
}

// Reset drops the whole queue and the previous step.
func (e *Executor) Reset() {
	e.mu.Lock()
	e.q.Clear()
	e.mu.Unlock()
}

// Tick runs one control period of length dt.
func (e *Executor) Tick(dt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ticks++
	prevBefore, _ := e.q.PreviousStep()

	switched, started, err := e.q.Advance(dt)
	if err != nil {
		e.log.Error("step queue advance failed", logx.Err(err))
		return
	}

	if prev, perr := e.q.PreviousStep(); perr == nil && prev != prevBefore {
		e.publish(EventFinished, prev)
		e.log.Info("step finished", logx.String("step", prev.ID.String()), logx.String("label", prev.Label), logx.Duration("duration", prev.TotalDuration()))
		if e.onFinish != nil {
			e.onFinish(prev)
		}
	}

	cur, cerr := e.q.CurrentStep()
	if cerr != nil {
		if e.cfg.StopWhenIdle && e.hadWork {
			e.idleOnce.Do(func() { close(e.idle) })
		}
		return
	}
	if switched {
		e.publish(EventSwitched, cur)
	}
	if started {
		e.publish(EventStarted, cur)
	}
	if !switched && !started && !cur.Ready() && e.stall.Allow() {
		fields := []logx.Field{logx.String("step", cur.ID.String()), logx.Bool("pending", cur.Preparing())}
		if perr := cur.PrepareErr(); perr != nil && !errors.Is(perr, context.Canceled) {
			fields = append(fields, logx.Err(perr))
		}
		e.log.Warn("current step waiting for preparation", fields...)
	}
}

func (e *Executor) publish(typ string, s *step.Step) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventbus.Event{Type: typ, Data: StepEvent{Tick: e.ticks, Step: s.Summary()}})
}

// Run ticks at the configured period until ctx is canceled or, with
// StopWhenIdle, until the queue drains. dt is always the nominal period.
func (e *Executor) Run(ctx context.Context) error {
	t := time.NewTicker(e.cfg.Period)
	defer t.Stop()
	e.log.Info("control loop started", logx.Duration("period", e.cfg.Period))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.idle:
			e.log.Info("queue drained, control loop stopping")
			return nil
		case <-t.C:
			e.Tick(e.cfg.Period)
		}
	}
}

// Done is closed once the queue drains with StopWhenIdle set.
func (e *Executor) Done() <-chan struct{} { return e.idle }

func (e *Executor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{Active: e.q.Active(), Size: e.q.Size(), Ticks: e.ticks}
	if cur, err := e.q.CurrentStep(); err == nil {
		st.Current = summaryPtr(cur)
		st.Phase = cur.Phase()
		st.Preparing = !cur.Ready()
	}
	if next, err := e.q.NextStep(); err == nil {
		st.Next = summaryPtr(next)
	}
	if prev, err := e.q.PreviousStep(); err == nil {
		st.Previous = summaryPtr(prev)
	}
	for _, s := range e.q.Steps() {
		if s.Ready() {
			st.Remaining += max(s.TotalDuration()-s.Elapsed(), 0)
		}
	}
	return st
}

package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"freegait/internal/eventbus"
	"freegait/internal/gait/executor"
	"freegait/internal/storage"
	logx "freegait/pkg/logx"
)

const appendTimeout = 2 * time.Second

// Recorder writes every finished step to the history store. It consumes
// step.finished events so the control tick never waits on storage.
type Recorder struct {
	store storage.Store
	bus   eventbus.Bus
	log   logx.Logger

	written atomic.Uint64
	failed  atomic.Uint64
}

func NewRecorder(store storage.Store, bus eventbus.Bus, log logx.Logger) *Recorder {
	return &Recorder{store: store, bus: bus, log: log.With(logx.String("comp", "recorder"))}
}

// Run records until ctx is canceled.
func (r *Recorder) Run(ctx context.Context) error {
	events, unsub := r.bus.Subscribe(256, executor.EventFinished)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.record(ctx, ev)
		}
	}
}

func (r *Recorder) record(ctx context.Context, ev eventbus.Event) {
	se, ok := ev.Data.(executor.StepEvent)
	if !ok {
		return
	}
	rec := storage.StepRecord{
		StepID:     se.Step.ID,
		Label:      se.Step.Label,
		Legs:       se.Step.Legs,
		Base:       se.Step.Base,
		Duration:   se.Step.Duration,
		Tick:       se.Tick,
		FinishedAt: ev.Time,
	}
	actx, cancel := context.WithTimeout(ctx, appendTimeout)
	defer cancel()
	if err := r.store.AppendStep(actx, rec); err != nil {
		r.failed.Add(1)
		r.log.Warn("step history append failed", logx.String("step", rec.StepID), logx.Err(err))
		return
	}
	r.written.Add(1)
}

func (r *Recorder) Written() uint64 { return r.written.Load() }
func (r *Recorder) Failed() uint64  { return r.failed.Load() }

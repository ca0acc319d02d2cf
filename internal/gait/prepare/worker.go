package prepare

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"freegait/internal/eventbus"
	"freegait/internal/gait/step"
	logx "freegait/pkg/logx"
)

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue chan job) {
	for {
		// A closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case j := <-queue:
			atomic.AddInt32(&s.inFlight, 1)
			s.execOne(j)
			atomic.AddInt32(&s.inFlight, -1)
		}
	}
}

func (s *Service) execOne(j job) {
	start := time.Now()
	queueDelay := max(start.Sub(j.enqueuedAt), 0)

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	var (
		plan step.Plan
		err  error
	)
	if cfg.MaxQueueDelay > 0 && queueDelay > cfg.MaxQueueDelay {
		err = fmt.Errorf("%w: %s", ErrStale, queueDelay)
	} else {
		plan, err = s.compute(j.snapshot)
	}
	// Resolve before bookkeeping so the control tick sees the plan as early as possible.
	j.pending.Resolve(plan, err)
	dur := time.Since(start)

	item := HistoryItem{
		StepID:     j.snapshot.ID.String(),
		Label:      j.snapshot.Label,
		Started:    start,
		QueueDelay: queueDelay,
		Duration:   dur,
		Planned:    plan.Total,
	}
	ev := Event{StepID: item.StepID, Label: item.Label, QueueDelay: queueDelay, Duration: dur, Planned: plan.Total}
	typ := EventFinished
	if err != nil {
		atomic.AddUint64(&s.failed, 1)
		item.Error = err.Error()
		ev.Error = item.Error
		typ = EventFailed
		s.log.Warn("step preparation failed", logx.String("step", item.StepID), logx.String("label", item.Label), logx.Err(err))
	} else {
		s.log.Debug("step prepared",
			logx.String("step", item.StepID),
			logx.Duration("planned", plan.Total),
			logx.Duration("queue_delay", queueDelay),
			logx.Duration("took", dur),
		)
	}

	s.hmu.Lock()
	s.history = append(s.history, item)
	if len(s.history) > cfg.HistorySize {
		s.history = s.history[len(s.history)-cfg.HistorySize:]
	}
	s.hmu.Unlock()

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: typ, Time: start.Add(dur), Data: ev})
	}
}

func (s *Service) compute(st *step.Step) (plan step.Plan, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.log.Error("step preparation panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	return step.ComputePlan(st)
}

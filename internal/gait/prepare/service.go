// Package prepare computes step plans on background workers so the control
// tick never blocks on trajectory preparation.
//
// Submit attaches a pending handle to the step and queues an independent
// clone; a worker resolves the handle and the step picks the plan up on a
// later tick.
package prepare

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"freegait/internal/eventbus"
	"freegait/internal/gait/step"
	rtsup "freegait/internal/runtime/supervisor"
	logx "freegait/pkg/logx"
)

const (
	EventFinished = "prepare.finished"
	EventFailed   = "prepare.failed"
	EventDropped  = "prepare.dropped"
)

const warnThrottleEvery = 5 * time.Second

type Service struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger
	bus eventbus.Bus

	q        chan job
	sup      *rtsup.Supervisor
	stopCh   chan struct{}
	stopDone chan struct{}

	hmu     sync.Mutex
	history []HistoryItem

	inFlight  int32
	submitted uint64
	failed    uint64
	dropped   uint64

	lastQueueFullWarnAt int64
}

type job struct {
	snapshot   *step.Step
	pending    *step.Pending
	enqueuedAt time.Time
}

func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Service {
	return &Service{
		cfg: cfg.withDefaults(),
		log: log.With(logx.String("comp", "prepare")),
		bus: bus,
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Apply swaps the config. Running workers restart when the pool shape or the
// enabled flag changes.
func (s *Service) Apply(ctx context.Context, cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	prev := s.cfg
	s.cfg = cfg
	running := s.stopCh != nil
	s.mu.Unlock()

	switch {
	case running && !cfg.Enabled:
		s.Stop(ctx)
	case running && (prev.Workers != cfg.Workers || prev.QueueSize != cfg.QueueSize):
		s.Stop(ctx)
		s.Start(ctx)
	case !running && cfg.Enabled:
		s.Start(ctx)
	}
}

// Start launches the workers. It is idempotent.
func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	cfg := s.cfg
	if !cfg.Enabled || s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	s.q = make(chan job, cfg.QueueSize)
	s.stopCh = make(chan struct{})
	s.stopDone = nil
	s.sup = rtsup.New(ctx, rtsup.WithLogger(s.log))
	stopCh, queue, sup := s.stopCh, s.q, s.sup
	s.mu.Unlock()

	for i := 0; i < cfg.Workers; i++ {
		sup.GoRestart(fmt.Sprintf("prepare.worker.%d", i), func(c context.Context) error {
			s.worker(c, stopCh, queue)
			select {
			case <-stopCh:
				return context.Canceled
			default:
			}
			if c.Err() != nil {
				return c.Err()
			}
			return errors.New("worker exited unexpectedly")
		})
	}
	s.log.Info("step preparation started", logx.Int("workers", cfg.Workers), logx.Int("queue", cap(queue)))
}

// Stop halts the workers. Jobs still queued are resolved with ErrStopped so
// their steps fall back to inline preparation.
func (s *Service) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}
	done := make(chan struct{})
	s.stopDone = done
	close(s.stopCh)
	sup, queue := s.sup, s.q
	s.mu.Unlock()

	go func() {
		_ = sup.Stop(context.Background())
	drain:
		for {
			select {
			case j := <-queue:
				j.pending.Resolve(step.Plan{}, ErrStopped)
			default:
				break drain
			}
		}
		s.mu.Lock()
		s.q = nil
		s.stopCh = nil
		s.stopDone = nil
		s.sup = nil
		s.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("step preparation stopped")
	case <-ctx.Done():
		s.log.Warn("step preparation stop timed out", logx.Err(ctx.Err()))
	}
}

// Submit hands st's plan computation to the workers without blocking. On
// success st carries a pending handle; on error st is untouched and prepares
// inline.
func (s *Service) Submit(st *step.Step) error {
	if st == nil {
		return errors.New("prepare: nil step")
	}
	// The send happens under mu so Stop's drain observes every accepted job.
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enabled {
		return ErrDisabled
	}
	if s.q == nil || s.stopCh == nil {
		return ErrStopped
	}
	if s.stopDone != nil {
		return ErrStopping
	}

	now := time.Now()
	j := job{snapshot: st.Clone(), pending: step.NewPending(), enqueuedAt: now}
	select {
	case s.q <- j:
		st.Attach(j.pending)
		atomic.AddUint64(&s.submitted, 1)
		return nil
	default:
		s.onQueueFull(now, st, s.q)
		return ErrQueueFull
	}
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	cfg, q := s.cfg, s.q
	s.mu.Unlock()

	snap := Snapshot{
		Enabled:   cfg.Enabled,
		Workers:   cfg.Workers,
		InFlight:  int(atomic.LoadInt32(&s.inFlight)),
		Submitted: atomic.LoadUint64(&s.submitted),
		Failed:    atomic.LoadUint64(&s.failed),
		Dropped:   atomic.LoadUint64(&s.dropped),
	}
	if q != nil {
		snap.QueueLen = len(q)
		snap.QueueCap = cap(q)
	}
	s.hmu.Lock()
	snap.History = append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return snap
}

func (s *Service) onQueueFull(now time.Time, st *step.Step, q chan job) {
	n := atomic.AddUint64(&s.dropped, 1)
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: EventDropped, Time: now, Data: Event{StepID: st.ID.String(), Label: st.Label, Error: "queue_full"}})
	}
	if s.shouldWarn(&s.lastQueueFullWarnAt, now) {
		s.log.Warn("step preparation queue full, preparing inline",
			logx.String("step", st.ID.String()),
			logx.Int("queue_len", len(q)),
			logx.Int("queue_cap", cap(q)),
			logx.Uint64("dropped", n),
		)
	}
}

func (s *Service) shouldWarn(last *int64, now time.Time) bool {
	prev := atomic.LoadInt64(last)
	n := now.UnixNano()
	if prev != 0 && (n-prev) < int64(warnThrottleEvery) {
		return false
	}
	return atomic.CompareAndSwapInt64(last, prev, n)
}

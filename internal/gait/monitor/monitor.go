// Package monitor runs the periodic housekeeping of the gait daemon: status
// reports, step history retention and systemd watchdog pings.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"freegait/internal/gait/executor"
	"freegait/internal/gait/prepare"
	"freegait/internal/storage"
	logx "freegait/pkg/logx"
)

const (
	DefaultReportEvery = 30 * time.Second
	DefaultRetention   = 7 * 24 * time.Hour

	pruneSpec    = "@every 1h"
	pruneTimeout = 30 * time.Second
)

type Config struct {
	Enabled     bool
	ReportEvery time.Duration
	// Retention bounds step history age; 0 keeps everything.
	Retention time.Duration
}

type StatusSource interface {
	Status() executor.Status
}

type SnapshotSource interface {
	Snapshot() prepare.Snapshot
}

// Pinger is satisfied by *watchdog.Notifier.
type Pinger interface {
	Interval() time.Duration
	Ping()
	Status(string)
}

type Option func(*Monitor)

func WithStore(st storage.Store) Option { return func(m *Monitor) { m.store = st } }
func WithPreparer(p SnapshotSource) Option { return func(m *Monitor) { m.prep = p } }
func WithWatchdog(p Pinger) Option { return func(m *Monitor) { m.wd = p } }
func WithLogger(log logx.Logger) Option { return func(m *Monitor) { m.log = log } }
func WithClock(now func() time.Time) Option { return func(m *Monitor) { m.now = now } }

type Monitor struct {
	cfg   Config
	exec  StatusSource
	prep  SnapshotSource
	store storage.Store
	wd    Pinger
	log   logx.Logger
	now   func() time.Time

	mu sync.Mutex
	c  *cron.Cron
}

func New(cfg Config, exec StatusSource, opts ...Option) *Monitor {
	if cfg.ReportEvery <= 0 {
		cfg.ReportEvery = DefaultReportEvery
	}
	m := &Monitor{cfg: cfg, exec: exec, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.With(logx.String("comp", "monitor"))
	return m
}

// Start registers the jobs and starts the cron scheduler. The watchdog job
// runs even when reports are disabled.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.c != nil {
		return nil
	}

	cl := cronLogger{log: m.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	jobs := 0
	if m.cfg.Enabled {
		if _, err := c.AddFunc(fmt.Sprintf("@every %s", m.cfg.ReportEvery), m.report); err != nil {
			return fmt.Errorf("monitor: report job: %w", err)
		}
		jobs++
		if m.store != nil && m.cfg.Retention > 0 {
			if _, err := c.AddFunc(pruneSpec, func() { m.prune(ctx) }); err != nil {
				return fmt.Errorf("monitor: prune job: %w", err)
			}
			jobs++
		}
	}
	if m.wd != nil && m.wd.Interval() > 0 {
		c.Schedule(cron.Every(m.wd.Interval()), cron.FuncJob(m.ping))
		jobs++
	}

	c.Start()
	m.c = c
	m.log.Info("monitor started", logx.Int("jobs", jobs), logx.Duration("report_every", m.cfg.ReportEvery))
	return nil
}

func (m *Monitor) Stop(ctx context.Context) {
	m.mu.Lock()
	c := m.c
	m.c = nil
	m.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		m.log.Warn("monitor stop timed out; a job is still running")
	}
}

func (m *Monitor) report() {
	st := m.exec.Status()
	fields := []logx.Field{
		logx.Bool("active", st.Active),
		logx.Int("queue_size", st.Size),
		logx.Uint64("ticks", st.Ticks),
		logx.Duration("remaining", st.Remaining),
	}
	if st.Current != nil {
		fields = append(fields,
			logx.String("current", st.Current.ID),
			logx.String("current_label", st.Current.Label),
			logx.Float64("phase", st.Phase),
			logx.Bool("preparing", st.Preparing),
		)
	}
	if m.prep != nil {
		snap := m.prep.Snapshot()
		fields = append(fields,
			logx.Int("prep_queue", snap.QueueLen),
			logx.Uint64("prep_failed", snap.Failed),
			logx.Uint64("prep_dropped", snap.Dropped),
		)
	}
	m.log.Info("status", fields...)
}

func (m *Monitor) prune(ctx context.Context) {
	if m.store == nil || m.cfg.Retention <= 0 {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, pruneTimeout)
	defer cancel()
	cutoff := m.now().Add(-m.cfg.Retention)
	n, err := m.store.PruneBefore(pctx, cutoff)
	if err != nil {
		m.log.Warn("step history prune failed", logx.Err(err))
		return
	}
	if n > 0 {
		m.log.Info("step history pruned", logx.Int("removed", n), logx.String("before", cutoff.Format(time.RFC3339)))
	}
}

func (m *Monitor) ping() {
	m.wd.Ping()
	st := m.exec.Status()
	if st.Current != nil {
		m.wd.Status(fmt.Sprintf("executing %s (%d queued)", st.Current.Label, st.Size))
		return
	}
	m.wd.Status("idle")
}

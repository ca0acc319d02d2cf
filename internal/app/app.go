package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"freegait/internal/config"
	"freegait/internal/eventbus"
	"freegait/internal/gait/completer"
	"freegait/internal/gait/executor"
	"freegait/internal/gait/monitor"
	"freegait/internal/gait/prepare"
	"freegait/internal/gait/robot"
	"freegait/internal/gait/step"
	"freegait/internal/gait/stepfile"
	"freegait/internal/observability/debughttp"
	"freegait/internal/runtime/supervisor"
	"freegait/internal/runtime/watchdog"
	"freegait/internal/storage"
	logx "freegait/pkg/logx"
)

// restartSections cannot be applied to a running daemon.
var restartSections = map[string]bool{"control": true, "robot": true, "storage": true}

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	robot *robot.Simulated
	comp  *completer.Completer
	prep  *prepare.Service
	exec  *executor.Executor
	rec   *monitor.Recorder
	wd    *watchdog.Notifier
	dbg   *debughttp.Service

	// settings is the config mapping the App was built with.
	settings settings

	monMu sync.Mutex
	mon   *monitor.Monitor
}

// NewApp loads cfgPath and builds every component. An empty cfgPath runs
// with the built-in defaults and disables hot reload.
func NewApp(cfgPath string) (*App, error) {
	var (
		cfgm *config.ConfigManager
		cfg  = &config.Config{}
	)
	if strings.TrimSpace(cfgPath) != "" {
		cfgm = config.NewConfigManager(cfgPath)
		loaded, err := cfgm.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	return newApp(cfgm, cfg)
}

func newApp(cfgm *config.ConfigManager, cfg *config.Config) (*App, error) {
	s, err := resolve(cfg)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(s.log)
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	var store storage.Store
	if s.storage.Driver != "" {
		store, err = storage.Open(s.storage, log)
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		log.Info("step history enabled", logx.String("driver", s.storage.Driver))
	}

	sim := robot.NewSimulated(s.stance, s.height)
	comp := completer.New(sim,
		completer.WithLogger(log.With(logx.String("comp", "completer"))),
		completer.WithDefaults(s.defaults),
	)
	prep := prepare.New(s.prep, log, bus)
	exec := executor.New(s.control, comp,
		executor.WithLogger(log.With(logx.String("comp", "executor"))),
		executor.WithBus(bus),
		executor.WithPreparer(prep),
		executor.WithFinishHook(sim.ApplyStep),
	)
	wd := watchdog.New(log)

	a := &App{
		cfgm:  cfgm,
		log:   log,
		logs:  logSvc,
		bus:   bus,
		store: store,
		robot: sim,
		comp:  comp,
		prep:  prep,
		exec:  exec,
		wd:    wd,

		settings: s,
	}
	if store != nil {
		a.rec = monitor.NewRecorder(store, bus, log)
	}
	a.mon = a.newMonitor(s.monitor)
	a.dbg = debughttp.New(s.debug, a, log)
	return a, nil
}

func (a *App) newMonitor(cfg monitor.Config) *monitor.Monitor {
	opts := []monitor.Option{
		monitor.WithLogger(a.log),
		monitor.WithPreparer(a.prep),
		monitor.WithWatchdog(a.wd),
	}
	if a.store != nil {
		opts = append(opts, monitor.WithStore(a.store))
	}
	return monitor.New(cfg, a.exec, opts...)
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Idle is closed when control.stop_when_idle is set and the queue drained.
func (a *App) Idle() <-chan struct{} { return a.exec.Done() }

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Status() executor.Status { return a.exec.Status() }

func (a *App) Preparation() prepare.Snapshot { return a.prep.Snapshot() }

// Submit completes steps against the simulated robot and queues them.
func (a *App) Submit(ctx context.Context, steps ...*step.Step) error {
	return a.exec.Submit(ctx, a.robot, steps...)
}

// LoadSteps reads a step file and submits its steps.
func (a *App) LoadSteps(ctx context.Context, path string) (int, error) {
	steps, err := stepfile.Load(path)
	if err != nil {
		return 0, err
	}
	if err := a.Submit(ctx, steps...); err != nil {
		return 0, err
	}
	a.log.Info("steps loaded", logx.String("path", path), logx.Int("count", len(steps)))
	return len(steps), nil
}

// History returns the newest finished steps. It fails with storage.ErrDisabled
// when no store is configured.
func (a *App) History(ctx context.Context, limit int) ([]storage.StepRecord, error) {
	if a.store == nil {
		return nil, storage.ErrDisabled
	}
	return a.store.RecentSteps(ctx, limit)
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	// transactional config reload: validate before commit/publish
	if a.cfgm != nil {
		a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
		a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
			_, err := resolve(cfg)
			return err
		})
	}

	a.prep.Start(a.sup.Context())
	if err := a.currentMonitor().Start(a.sup.Context()); err != nil {
		return err
	}
	if a.rec != nil {
		a.sup.GoRestart("history.recorder", a.rec.Run)
	}
	a.sup.Go("control.loop", a.exec.Run)
	a.dbg.Start(a.sup.Context())

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go("eventbus.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				a.log.Trace("event", logx.String("type", e.Type), logx.Any("data", e.Data))
			}
		}
	})

	if a.cfgm != nil {
		sub := a.cfgm.Subscribe(8)
		a.sup.Go("config.reload", func(c context.Context) error {
			defer a.cfgm.Unsubscribe(sub)
			lastApplied := a.cfgm.Get()
			for {
				select {
				case <-c.Done():
					return nil
				case newCfg, ok := <-sub:
					if !ok {
						return nil
					}
					// Keep only the latest of a burst.
				coalesce:
					for {
						select {
						case newer := <-sub:
							if newer != nil {
								newCfg = newer
							}
						default:
							break coalesce
						}
					}
					a.applyConfig(c, lastApplied, newCfg)
					lastApplied = newCfg
				}
			}
		})
		a.sup.GoRestart("config.watch", a.cfgm.Watch)
	}

	a.wd.Ready()
	a.log.Info("app started", logx.Duration("period", a.exec.Period()), logx.Bool("history", a.store != nil))
	return nil
}

func (a *App) currentMonitor() *monitor.Monitor {
	a.monMu.Lock()
	defer a.monMu.Unlock()
	return a.mon
}

// applyConfig pushes a validated config into the running components.
func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	s, err := resolve(next)
	if err != nil {
		a.log.Warn("invalid config; keeping previous", logx.Err(err))
		return
	}

	a.logs.Apply(s.log)
	a.comp.SetDefaults(s.defaults)
	a.prep.Apply(ctx, s.prep)
	a.dbg.Reconfigure(ctx, s.debug)

	for _, sec := range sections {
		switch {
		case sec == "monitor":
			a.monMu.Lock()
			old := a.mon
			a.mon = a.newMonitor(s.monitor)
			mon := a.mon
			a.monMu.Unlock()
			stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			old.Stop(stopCtx)
			cancel()
			if err := mon.Start(ctx); err != nil {
				a.log.Warn("monitor restart failed", logx.Err(err))
			}
		case restartSections[sec]:
			a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", sec))
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// Stop shuts components down in dependency order. Every step is bounded so one
// component cannot stall the rest; the returned error aggregates step failures.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.wd.Stopping()

	// Cancel first so background loops start unwinding immediately.
	a.sup.Cancel()

	var errs error
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := boundedContext(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, stepCtx.Err()))
		}
	}

	step("monitor", 2*time.Second, func(c context.Context) error { a.currentMonitor().Stop(c); return nil })
	step("debughttp", 2*time.Second, func(c context.Context) error { a.dbg.Stop(c); return nil })
	step("preparation", 2*time.Second, func(c context.Context) error { a.prep.Stop(c); return nil })
	step("supervisor", 2*time.Second, func(c context.Context) error {
		err := a.sup.Wait(c)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	st := a.exec.Status()
	a.log.Info("stopped", logx.Uint64("ticks", st.Ticks), logx.Int("queued", st.Size))
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return errs
}

// boundedContext never extends the caller's deadline.
func boundedContext(ctx context.Context, max time.Duration) (context.Context, context.CancelFunc) {
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < max {
			max = rem
		}
	}
	if max <= 0 {
		max = time.Millisecond
	}
	return context.WithTimeout(ctx, max)
}

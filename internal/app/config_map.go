package app

import (
	"fmt"
	"net"
	"strings"
	"time"

	"freegait/internal/config"
	"freegait/internal/gait/completer"
	"freegait/internal/gait/executor"
	"freegait/internal/gait/monitor"
	"freegait/internal/gait/prepare"
	"freegait/internal/gait/step"
	"freegait/internal/gait/stepfile"
	"freegait/internal/observability/debughttp"
	"freegait/internal/storage"
	logx "freegait/pkg/logx"
)

// settings is the config file mapped onto component configs.
type settings struct {
	log      logx.Config
	control  executor.Config
	prep     prepare.Config
	defaults completer.Defaults
	stance   step.PlanarStance
	height   float64
	storage  storage.Config
	monitor  monitor.Config
	debug    debughttp.Config
}

// resolve maps and validates cfg. The config watcher uses it to reject bad
// hot reloads before they are committed.
func resolve(cfg *config.Config) (settings, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	var (
		s   settings
		err error
	)
	s.log = mapLogging(cfg)
	if s.control, err = mapControl(cfg); err != nil {
		return s, err
	}
	if s.prep, err = mapPreparation(cfg); err != nil {
		return s, err
	}
	if s.defaults, err = mapCompleterDefaults(cfg); err != nil {
		return s, err
	}
	if s.stance, s.height, err = mapRobot(cfg); err != nil {
		return s, err
	}
	if s.storage, err = mapStorageConfig(cfg); err != nil {
		return s, err
	}
	if s.monitor, err = mapMonitor(cfg); err != nil {
		return s, err
	}
	if s.debug, err = mapDebug(cfg); err != nil {
		return s, err
	}
	return s, nil
}

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapControl(cfg *config.Config) (executor.Config, error) {
	period, err := config.ParseDurationOrDefault("control.period", cfg.Control.Period, executor.DefaultPeriod)
	if err != nil {
		return executor.Config{}, err
	}
	return executor.Config{Period: period, StopWhenIdle: cfg.Control.StopWhenIdle}, nil
}

func mapPreparation(cfg *config.Config) (prepare.Config, error) {
	pc := cfg.Preparation
	if pc == nil {
		return prepare.Config{Enabled: true}, nil
	}
	if pc.Workers < 0 {
		return prepare.Config{}, fmt.Errorf("preparation.workers must be >= 0")
	}
	if pc.QueueSize < 0 {
		return prepare.Config{}, fmt.Errorf("preparation.queue_size must be >= 0")
	}
	if pc.HistorySize < 0 {
		return prepare.Config{}, fmt.Errorf("preparation.history_size must be >= 0")
	}
	maxDelay, err := config.ParseDurationField("preparation.max_queue_delay", pc.MaxQueueDelay)
	if err != nil {
		return prepare.Config{}, err
	}
	enabled := true
	if pc.Enabled != nil {
		enabled = *pc.Enabled
	}
	return prepare.Config{
		Enabled:       enabled,
		Workers:       pc.Workers,
		QueueSize:     pc.QueueSize,
		MaxQueueDelay: maxDelay,
		HistorySize:   pc.HistorySize,
	}, nil
}

// mapCompleterDefaults overlays the configured values on the built-in defaults.
func mapCompleterDefaults(cfg *config.Config) (completer.Defaults, error) {
	d := completer.DefaultDefaults()
	fs := cfg.Completer.Footstep
	if p := strings.ToLower(strings.TrimSpace(fs.ProfileType)); p != "" {
		switch p {
		case step.ProfileTriangle, step.ProfileSquare, step.ProfileStraight:
			d.Footstep.ProfileType = p
		default:
			return d, fmt.Errorf("completer.footstep.profile_type: unknown profile %q", fs.ProfileType)
		}
	}
	if fs.ProfileHeight != nil {
		if *fs.ProfileHeight < 0 {
			return d, fmt.Errorf("completer.footstep.profile_height must be >= 0")
		}
		d.Footstep.ProfileHeight = *fs.ProfileHeight
	}
	if fs.AverageVelocity != nil {
		if *fs.AverageVelocity <= 0 {
			return d, fmt.Errorf("completer.footstep.average_velocity must be > 0")
		}
		d.Footstep.AverageVelocity = *fs.AverageVelocity
	}
	if fs.SurfaceNormal != nil {
		n, err := stepfile.Vec3("completer.footstep.surface_normal", fs.SurfaceNormal)
		if err != nil {
			return d, err
		}
		d.Footstep.SurfaceNormal = n
	}

	ba := cfg.Completer.BaseAuto
	for _, f := range []struct {
		path string
		src  *float64
		dst  *float64
	}{
		{"completer.base_auto.height", ba.Height, &d.BaseAuto.Height},
		{"completer.base_auto.average_linear_velocity", ba.AverageLinearVelocity, &d.BaseAuto.AverageLinearVelocity},
		{"completer.base_auto.average_angular_velocity", ba.AverageAngularVelocity, &d.BaseAuto.AverageAngularVelocity},
		{"completer.base_auto.support_margin", ba.SupportMargin, &d.BaseAuto.SupportMargin},
	} {
		if f.src == nil {
			continue
		}
		if *f.src < 0 {
			return d, fmt.Errorf("%s must be >= 0", f.path)
		}
		*f.dst = *f.src
	}
	if ba.NominalStance != nil {
		st, err := stepfile.Stance("completer.base_auto.nominal_stance", ba.NominalStance)
		if err != nil {
			return d, err
		}
		d.BaseAuto.NominalPlanarStance = st
	}
	return d, nil
}

func mapRobot(cfg *config.Config) (step.PlanarStance, float64, error) {
	height := cfg.Robot.Height
	if height < 0 {
		return nil, 0, fmt.Errorf("robot.height must be >= 0")
	}
	if height == 0 {
		height = completer.DefaultBaseAutoParameters().Height
	}
	if cfg.Robot.Stance == nil {
		return step.SymmetricStance(0.2, 0.2), height, nil
	}
	st, err := stepfile.Stance("robot.stance", cfg.Robot.Stance)
	if err != nil {
		return nil, 0, err
	}
	if len(st) == 0 {
		return nil, 0, fmt.Errorf("robot.stance: at least one limb is required")
	}
	return st, height, nil
}

// mapStorageConfig returns a zero Config (Driver "") when storage is disabled.
func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	if cfg.Storage == nil {
		return storage.Config{}, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)
	switch driver {
	case "", "none":
		return storage.Config{}, nil
	case "file":
		if path == "" {
			path = "./gaitd_history"
		}
		return storage.Config{Driver: "file", Path: path}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapMonitor(cfg *config.Config) (monitor.Config, error) {
	every, err := config.ParseDurationOrDefault("monitor.report_every", cfg.Monitor.ReportEvery, monitor.DefaultReportEvery)
	if err != nil {
		return monitor.Config{}, err
	}
	if every < time.Second {
		return monitor.Config{}, fmt.Errorf("monitor.report_every must be >= 1s")
	}
	retention, err := config.ParseDurationOrDefault("monitor.retention", cfg.Monitor.Retention, monitor.DefaultRetention)
	if err != nil {
		return monitor.Config{}, err
	}
	return monitor.Config{Enabled: cfg.Monitor.Enabled, ReportEvery: every, Retention: retention}, nil
}

func mapDebug(cfg *config.Config) (debughttp.Config, error) {
	dc := cfg.Debug
	addr := strings.TrimSpace(dc.Addr)
	if addr == "" {
		addr = debughttp.DefaultAddr
	}
	if dc.Enabled {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return debughttp.Config{}, fmt.Errorf("debug.addr: %w", err)
		}
	}
	return debughttp.Config{
		Enabled:       dc.Enabled,
		Addr:          addr,
		Token:         strings.TrimSpace(dc.Token),
		AllowInsecure: dc.AllowInsecure,
	}, nil
}

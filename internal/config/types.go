package config

// Config is the gaitd configuration file.
//
// All durations are Go duration strings (e.g. "10ms", "5s", "1h").
type Config struct {
	Logging LoggingConfig `json:"logging"`
	Control ControlConfig `json:"control"`

	// Preparation controls background plan workers. If omitted, workers are
	// enabled with defaults.
	Preparation *PreparationConfig `json:"preparation,omitempty"`

	Completer CompleterConfig `json:"completer"`
	Robot     RobotConfig     `json:"robot"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	Monitor   MonitorConfig   `json:"monitor"`
	Debug     DebugConfig     `json:"debug"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ControlConfig controls the fixed-rate control loop.
//
// Defaults:
//   - period: "10ms"
//   - stop_when_idle: false
type ControlConfig struct {
	Period       string `json:"period,omitempty"`
	StopWhenIdle bool   `json:"stop_when_idle,omitempty"`
}

// PreparationConfig controls the background step preparation workers.
//
// Enabled is a pointer so we can distinguish "omitted" (enabled) from an
// explicit false.
//
// Defaults (when fields are omitted/zero):
//   - workers: 2
//   - queue_size: 64
//   - max_queue_delay: "0s" (disabled)
//   - history_size: 200
type PreparationConfig struct {
	Enabled       *bool  `json:"enabled,omitempty"`
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	MaxQueueDelay string `json:"max_queue_delay,omitempty"`
	HistorySize   int    `json:"history_size,omitempty"`
}

// CompleterConfig overrides the parameters used to fill incomplete steps.
// Omitted fields keep the built-in defaults.
type CompleterConfig struct {
	Footstep FootstepDefaults `json:"footstep"`
	BaseAuto BaseAutoDefaults `json:"base_auto"`
}

type FootstepDefaults struct {
	ProfileType     string    `json:"profile_type,omitempty"`
	ProfileHeight   *float64  `json:"profile_height,omitempty"`
	AverageVelocity *float64  `json:"average_velocity,omitempty"`
	SurfaceNormal   []float64 `json:"surface_normal,omitempty"`
}

type BaseAutoDefaults struct {
	Height                 *float64 `json:"height,omitempty"`
	AverageLinearVelocity  *float64 `json:"average_linear_velocity,omitempty"`
	AverageAngularVelocity *float64 `json:"average_angular_velocity,omitempty"`
	SupportMargin          *float64 `json:"support_margin,omitempty"`
	// NominalStance maps limb names (e.g. "LF_LEG") to planar [x, y] offsets.
	NominalStance map[string][]float64 `json:"nominal_stance,omitempty"`
}

// RobotConfig describes the simulated robot driven by gaitd run.
//
// Defaults: stance is symmetric at (0.2, 0.2), height is 0.46.
type RobotConfig struct {
	Stance map[string][]float64 `json:"stance,omitempty"`
	Height float64              `json:"height,omitempty"`
}

// StorageConfig controls step history persistence.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./gaitd.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// MonitorConfig controls periodic status reports and history retention.
//
// Defaults:
//   - report_every: "30s"
//   - retention: "168h"
type MonitorConfig struct {
	Enabled     bool   `json:"enabled"`
	ReportEvery string `json:"report_every,omitempty"`
	Retention   string `json:"retention,omitempty"`
}

// DebugConfig controls the optional HTTP endpoint serving /status, /history
// and /debug/pprof.
//
// Security:
//   - addr defaults to "127.0.0.1:6061".
//   - A non-loopback addr requires token unless allow_insecure is set.
type DebugConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
}

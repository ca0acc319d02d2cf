package prepare

import "time"

// Config controls the background plan workers.
type Config struct {
	Enabled   bool
	Workers   int
	QueueSize int

	// MaxQueueDelay fails jobs that waited longer than this before a worker
	// picked them up; the step then falls back to inline preparation.
	// 0 disables the check.
	MaxQueueDelay time.Duration

	HistorySize int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 200
	}
	return c
}

type HistoryItem struct {
	StepID     string        `json:"step_id"`
	Label      string        `json:"label,omitempty"`
	Started    time.Time     `json:"started"`
	QueueDelay time.Duration `json:"queue_delay"`
	Duration   time.Duration `json:"duration"`
	Planned    time.Duration `json:"planned"`
	Error      string        `json:"error,omitempty"`
}

// Event is the payload of prepare.* bus events.
type Event struct {
	StepID     string        `json:"step_id"`
	Label      string        `json:"label,omitempty"`
	QueueDelay time.Duration `json:"queue_delay"`
	Duration   time.Duration `json:"duration"`
	Planned    time.Duration `json:"planned"`
	Error      string        `json:"error,omitempty"`
}

// Snapshot is a lightweight view for diagnostics.
type Snapshot struct {
	Enabled  bool `json:"enabled"`
	Workers  int  `json:"workers"`
	QueueLen int  `json:"queue_len"`
	QueueCap int  `json:"queue_cap"`
	InFlight int  `json:"in_flight"`

	Submitted uint64 `json:"submitted"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`

	History []HistoryItem `json:"history,omitempty"`
}

package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// StepRecord is one finished step.
// Keep it compact and schema-stable.
type StepRecord struct {
	StepID     string        `json:"step_id"`
	Label      string        `json:"label,omitempty"`
	Legs       []string      `json:"legs,omitempty"`
	Base       string        `json:"base,omitempty"`
	Duration   time.Duration `json:"duration"`
	Tick       uint64        `json:"tick"`
	FinishedAt time.Time     `json:"finished_at"`
}

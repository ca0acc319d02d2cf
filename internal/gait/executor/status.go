package executor

import (
	"time"

	"freegait/internal/gait/step"
)

// Status is a point-in-time view of the executor for monitors and the CLI.
type Status struct {
	Active    bool   `json:"active"`
	Size      int    `json:"size"`
	Ticks     uint64 `json:"ticks"`
	Preparing bool   `json:"preparing"`

	Current  *step.Summary `json:"current,omitempty"`
	Next     *step.Summary `json:"next,omitempty"`
	Previous *step.Summary `json:"previous,omitempty"`

	// Phase is the elapsed fraction of the current step.
	Phase float64 `json:"phase"`
	// Remaining sums the unexecuted time of every prepared step in the queue.
	// Steps still preparing contribute nothing.
	Remaining time.Duration `json:"remaining"`
}

func summaryPtr(s *step.Step) *step.Summary {
	sum := s.Summary()
	return &sum
}

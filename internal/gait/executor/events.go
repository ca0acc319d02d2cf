package executor

import "freegait/internal/gait/step"

const (
	// EventSwitched: a different step became current (activation or hand-off).
	EventSwitched = "step.switched"
	// EventStarted: the current step finished preparation and its clock runs.
	EventStarted = "step.started"
	// EventFinished: a step ran to completion and became the previous step.
	EventFinished = "step.finished"
)

// StepEvent is the payload of step.* bus events.
type StepEvent struct {
	Tick uint64       `json:"tick"`
	Step step.Summary `json:"step"`
}

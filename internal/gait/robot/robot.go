// Package robot describes the read-only view of the robot consulted while
// completing steps, plus an in-memory quadruped used by the daemon and tests.
package robot

import (
	"github.com/golang/geo/r3"

	"freegait/internal/gait/step"
)

// Adapter exposes the robot description.
type Adapter interface {
	Limbs() []step.Limb
	HasLimb(limb step.Limb) bool
	BaseFrameID() string
	WorldFrameID() string
}

// State is a snapshot of the measured/estimated robot configuration.
type State interface {
	FootPosition(limb step.Limb) (r3.Vector, bool)
	BasePosition() (r3.Vector, bool)
	BaseYaw() float64
}

// Predictor is a State that can project the state left behind once a sequence
// of steps has run. The receiver is not modified.
type Predictor interface {
	State
	Predict(steps ...*step.Step) Predictor
}

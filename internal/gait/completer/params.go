package completer

import (
	"github.com/golang/geo/r3"

	"freegait/internal/gait/step"
)

// FootstepParameters is the default template for unset Footstep fields.
type FootstepParameters struct {
	ProfileType     string
	SurfaceNormal   r3.Vector
	ProfileHeight   float64
	AverageVelocity float64
}

// BaseAutoParameters is the default template for unset BaseAuto fields.
type BaseAutoParameters struct {
	Height                 float64
	AverageLinearVelocity  float64
	AverageAngularVelocity float64
	SupportMargin          float64
	NominalPlanarStance    step.PlanarStance
}

// Defaults bundles both templates so they can be swapped atomically.
type Defaults struct {
	Footstep FootstepParameters
	BaseAuto BaseAutoParameters
}

func DefaultFootstepParameters() FootstepParameters {
	return FootstepParameters{
		ProfileType:     step.ProfileTriangle,
		SurfaceNormal:   r3.Vector{Z: 1},
		ProfileHeight:   0.06,
		AverageVelocity: 2.0,
	}
}

func DefaultBaseAutoParameters() BaseAutoParameters {
	return BaseAutoParameters{
		Height:                 0.46,
		AverageLinearVelocity:  0.05,
		AverageAngularVelocity: 0.1,
		SupportMargin:          0.04,
		NominalPlanarStance:    step.SymmetricStance(0.2, 0.2),
	}
}

func DefaultDefaults() Defaults {
	return Defaults{Footstep: DefaultFootstepParameters(), BaseAuto: DefaultBaseAutoParameters()}
}

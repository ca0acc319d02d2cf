package stepfile

// Document is the on-disk form of a step sequence.
//
// Example (YAML):
//
//	steps:
//	  - label: lift-rf
//	    legs:
//	      - type: footstep
//	        limb: RF_LEG
//	        target: [0.3, -0.2, 0.0]
//	    base:
//	      type: auto
type Document struct {
	Steps []StepSpec `json:"steps"`
}

type StepSpec struct {
	Label string    `json:"label,omitempty"`
	Legs  []LegSpec `json:"legs,omitempty"`
	Base  *BaseSpec `json:"base,omitempty"`
}

// LegSpec describes a footstep or a leg mode. Footstep fields left out are
// filled by the completer.
type LegSpec struct {
	Type string `json:"type"`
	Limb string `json:"limb"`

	// footstep
	Target          []float64 `json:"target,omitempty"`
	ProfileType     string    `json:"profile_type,omitempty"`
	ProfileHeight   *float64  `json:"profile_height,omitempty"`
	AverageVelocity *float64  `json:"average_velocity,omitempty"`
	SurfaceNormal   []float64 `json:"surface_normal,omitempty"`
	IgnoreContact   bool      `json:"ignore_contact,omitempty"`

	// leg_mode
	Duration   string `json:"duration,omitempty"`
	SupportLeg bool   `json:"support_leg,omitempty"`
}

type BaseSpec struct {
	Type string `json:"type"`

	// auto
	Height                 *float64             `json:"height,omitempty"`
	AverageLinearVelocity  *float64             `json:"average_linear_velocity,omitempty"`
	AverageAngularVelocity *float64             `json:"average_angular_velocity,omitempty"`
	SupportMargin          *float64             `json:"support_margin,omitempty"`
	NominalStance          map[string][]float64 `json:"nominal_stance,omitempty"`

	// target
	Target   []float64 `json:"target,omitempty"`
	Duration string    `json:"duration,omitempty"`
}

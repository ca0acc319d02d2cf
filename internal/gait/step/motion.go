package step

import "github.com/golang/geo/r3"

// LegMotion is a trajectory specification for a single limb.
//
// Implementations: *Footstep, *LegMode.
type LegMotion interface {
	Limb() Limb
	Kind() string
	Clone() LegMotion
}

// BaseMotion is a trajectory specification for the robot's body frame.
//
// Implementations: *BaseAuto, *BaseTarget.
type BaseMotion interface {
	Kind() string
	Clone() BaseMotion
}

const (
	KindFootstep   = "footstep"
	KindLegMode    = "leg_mode"
	KindBaseAuto   = "auto"
	KindBaseTarget = "target"
)

// Float returns a pointer to v, for setting optional motion fields.
func Float(v float64) *float64 { return &v }

// Vec returns a pointer to v, for setting optional motion fields.
func Vec(v r3.Vector) *r3.Vector { return &v }

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneVec(p *r3.Vector) *r3.Vector {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

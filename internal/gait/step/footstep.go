package step

import "github.com/golang/geo/r3"

// Swing profile shapes understood by the duration planner.
const (
	ProfileTriangle = "triangle"
	ProfileSquare   = "square"
	ProfileStraight = "straight"
)

// Footstep moves one foot from its current position to Target.
//
// Nil pointer fields (and an empty ProfileType) are unset and get filled by
// the completer.
type Footstep struct {
	Leg    Limb
	Target r3.Vector

	// Start is the foot position at step begin, taken from the robot state.
	Start *r3.Vector

	ProfileType     string
	ProfileHeight   *float64
	AverageVelocity *float64
	SurfaceNormal   *r3.Vector

	IgnoreContact bool
}

func NewFootstep(limb Limb, target r3.Vector) *Footstep {
	return &Footstep{Leg: limb, Target: target}
}

func (f *Footstep) Limb() Limb   { return f.Leg }
func (f *Footstep) Kind() string { return KindFootstep }

func (f *Footstep) Clone() LegMotion {
	cp := *f
	cp.Start = cloneVec(f.Start)
	cp.ProfileHeight = cloneFloat(f.ProfileHeight)
	cp.AverageVelocity = cloneFloat(f.AverageVelocity)
	cp.SurfaceNormal = cloneVec(f.SurfaceNormal)
	return &cp
}

// Completed reports whether every execution parameter is set.
func (f *Footstep) Completed() bool {
	return f.Start != nil && f.ProfileType != "" && f.ProfileHeight != nil &&
		f.AverageVelocity != nil && f.SurfaceNormal != nil
}

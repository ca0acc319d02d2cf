package step

import "github.com/golang/geo/r3"

// BaseAuto lets the controller shift the base to keep it supported by the
// stance legs while the step's leg motions execute.
type BaseAuto struct {
	Height                 *float64
	AverageLinearVelocity  *float64
	AverageAngularVelocity *float64
	SupportMargin          *float64
	NominalPlanarStance    PlanarStance

	// Start is the base position at step begin, taken from the robot state.
	Start *r3.Vector
}

func (b *BaseAuto) Kind() string { return KindBaseAuto }

func (b *BaseAuto) Clone() BaseMotion {
	return &BaseAuto{
		Height:                 cloneFloat(b.Height),
		AverageLinearVelocity:  cloneFloat(b.AverageLinearVelocity),
		AverageAngularVelocity: cloneFloat(b.AverageAngularVelocity),
		SupportMargin:          cloneFloat(b.SupportMargin),
		NominalPlanarStance:    b.NominalPlanarStance.Clone(),
		Start:                  cloneVec(b.Start),
	}
}

func (b *BaseAuto) Completed() bool {
	return b.Height != nil && b.AverageLinearVelocity != nil && b.AverageAngularVelocity != nil &&
		b.SupportMargin != nil && b.NominalPlanarStance != nil && b.Start != nil
}

package step

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNotCompleted is returned when a motion still has unset parameters.
var ErrNotCompleted = errors.New("motion not completed")

const (
	minSwingDuration    = 200 * time.Millisecond
	minBaseAutoDuration = 500 * time.Millisecond
)

// Plan holds the timing computed when a step is prepared.
type Plan struct {
	Legs  map[Limb]time.Duration
	Base  time.Duration
	Total time.Duration
}

func (p Plan) clone() Plan {
	cp := p
	if p.Legs != nil {
		cp.Legs = make(map[Limb]time.Duration, len(p.Legs))
		for k, v := range p.Legs {
			cp.Legs[k] = v
		}
	}
	return cp
}

// ComputePlan derives per-motion durations for s. It reads s only, so it can
// run on a clone outside the control thread.
func ComputePlan(s *Step) (Plan, error) {
	plan := Plan{Legs: make(map[Limb]time.Duration, len(s.legs))}
	var longestLeg time.Duration
	for _, limb := range s.Limbs() {
		d, err := legDuration(s.legs[limb])
		if err != nil {
			return Plan{}, fmt.Errorf("%s: %w", limb, err)
		}
		plan.Legs[limb] = d
		longestLeg = max(longestLeg, d)
	}
	plan.Total = longestLeg

	if s.base != nil {
		d, err := baseDuration(s.base, longestLeg)
		if err != nil {
			return Plan{}, fmt.Errorf("base %s: %w", s.base.Kind(), err)
		}
		plan.Base = d
		plan.Total = max(plan.Total, d)
	}
	return plan, nil
}

func legDuration(m LegMotion) (time.Duration, error) {
	switch v := m.(type) {
	case *Footstep:
		return footstepDuration(v)
	case *LegMode:
		if v.Duration < 0 {
			return 0, fmt.Errorf("negative duration %s", v.Duration)
		}
		return v.Duration, nil
	default:
		return 0, fmt.Errorf("unsupported leg motion %T", m)
	}
}

func footstepDuration(f *Footstep) (time.Duration, error) {
	if !f.Completed() {
		return 0, ErrNotCompleted
	}
	velocity := *f.AverageVelocity
	if velocity <= 0 {
		return 0, fmt.Errorf("average velocity must be > 0, got %g", velocity)
	}
	dist := f.Target.Sub(*f.Start).Norm()
	height := *f.ProfileHeight

	var path float64
	switch f.ProfileType {
	case ProfileTriangle:
		path = 2 * math.Hypot(dist/2, height)
	case ProfileSquare:
		path = dist + 2*height
	case ProfileStraight:
		path = dist
	default:
		return 0, fmt.Errorf("unknown profile type %q", f.ProfileType)
	}
	d := time.Duration(path / velocity * float64(time.Second))
	return max(d, minSwingDuration), nil
}

func baseDuration(m BaseMotion, longestLeg time.Duration) (time.Duration, error) {
	switch v := m.(type) {
	case *BaseAuto:
		if !v.Completed() {
			return 0, ErrNotCompleted
		}
		if *v.AverageLinearVelocity <= 0 || *v.AverageAngularVelocity <= 0 {
			return 0, errors.New("average velocities must be > 0")
		}
		return max(longestLeg, minBaseAutoDuration), nil
	case *BaseTarget:
		if v.Duration <= 0 {
			return 0, fmt.Errorf("duration must be > 0, got %s", v.Duration)
		}
		return v.Duration, nil
	default:
		return 0, fmt.Errorf("unsupported base motion %T", m)
	}
}

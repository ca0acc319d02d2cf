package robot

import (
	"sync"

	"github.com/golang/geo/r3"

	"freegait/internal/gait/step"
)

// Simulated is a kinematically trivial quadruped: finished steps teleport feet
// and base to their targets. It implements both Adapter and State.
type Simulated struct {
	mu    sync.RWMutex
	limbs []step.Limb
	feet  map[step.Limb]r3.Vector
	base  r3.Vector
	yaw   float64
}

// NewSimulated places the base at the given height above the origin and the
// feet on the ground under the given stance.
func NewSimulated(stance step.PlanarStance, height float64) *Simulated {
	s := &Simulated{
		feet: make(map[step.Limb]r3.Vector, len(stance)),
		base: r3.Vector{Z: height},
	}
	for _, l := range step.AllLimbs() {
		p, ok := stance[l]
		if !ok {
			continue
		}
		s.limbs = append(s.limbs, l)
		s.feet[l] = r3.Vector{X: p.X, Y: p.Y}
	}
	return s
}

func (s *Simulated) Limbs() []step.Limb {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]step.Limb(nil), s.limbs...)
}

func (s *Simulated) HasLimb(limb step.Limb) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.limbs {
		if l == limb {
			return true
		}
	}
	return false
}

func (s *Simulated) BaseFrameID() string  { return "base" }
func (s *Simulated) WorldFrameID() string { return "odom" }

func (s *Simulated) FootPosition(limb step.Limb) (r3.Vector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.feet[limb]
	return p, ok
}

func (s *Simulated) BasePosition() (r3.Vector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base, true
}

func (s *Simulated) BaseYaw() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.yaw
}

// Predict returns a copy that has taken steps in order.
func (s *Simulated) Predict(steps ...*step.Step) Predictor {
	s.mu.RLock()
	cp := &Simulated{
		limbs: append([]step.Limb(nil), s.limbs...),
		feet:  make(map[step.Limb]r3.Vector, len(s.feet)),
		base:  s.base,
		yaw:   s.yaw,
	}
	for l, p := range s.feet {
		cp.feet[l] = p
	}
	s.mu.RUnlock()

	for _, st := range steps {
		cp.ApplyStep(st)
	}
	return cp
}

// RemoveFoot drops the position of a limb, as when its contact estimate is lost.
func (s *Simulated) RemoveFoot(limb step.Limb) {
	s.mu.Lock()
	delete(s.feet, limb)
	s.mu.Unlock()
}

// ApplyStep moves feet to their footstep targets and the base to the centroid
// of the feet (or to a BaseTarget).
func (s *Simulated) ApplyStep(st *step.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range st.Limbs() {
		m, _ := st.LegMotion(l)
		if f, ok := m.(*step.Footstep); ok {
			s.feet[l] = f.Target
		}
	}
	switch b := st.BaseMotion().(type) {
	case *step.BaseTarget:
		s.base = b.Target
	case *step.BaseAuto:
		if len(s.feet) == 0 {
			return
		}
		var c r3.Vector
		for _, p := range s.feet {
			c = c.Add(p)
		}
		c = c.Mul(1 / float64(len(s.feet)))
		height := s.base.Z
		if b.Height != nil {
			height = *b.Height
		}
		s.base = r3.Vector{X: c.X, Y: c.Y, Z: c.Z + height}
	}
}

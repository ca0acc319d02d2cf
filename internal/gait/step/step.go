// Package step defines the locomotion step: per-limb leg motions plus a base
// motion, executed as one unit with its own clock.
package step

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Step is one coordinated locomotion phase.
//
// A step is Pending until Prepare succeeds, then Ready; the queue advances its
// clock until Advance reports it finished. Step is not safe for concurrent use;
// the only cross-goroutine path is the Pending handle.
type Step struct {
	ID    uuid.UUID
	Label string

	legs map[Limb]LegMotion
	base BaseMotion

	elapsed time.Duration
	plan    Plan
	ready   bool

	pending    *Pending
	prepareErr error
}

func New(label string) *Step {
	return &Step{
		ID:    uuid.New(),
		Label: label,
		legs:  make(map[Limb]LegMotion),
	}
}

// AddLegMotion sets the motion for m's limb, replacing any previous one.
func (s *Step) AddLegMotion(m LegMotion) {
	if m == nil {
		return
	}
	s.legs[m.Limb()] = m
	s.ready = false
}

func (s *Step) SetBaseMotion(m BaseMotion) {
	s.base = m
	s.ready = false
}

func (s *Step) LegMotion(limb Limb) (LegMotion, bool) {
	m, ok := s.legs[limb]
	return m, ok
}

// Limbs returns the limbs with a leg motion, in canonical order.
func (s *Step) Limbs() []Limb {
	out := make([]Limb, 0, len(s.legs))
	for l := range s.legs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Step) HasLegMotions() bool    { return len(s.legs) > 0 }
func (s *Step) HasBaseMotion() bool    { return s.base != nil }
func (s *Step) BaseMotion() BaseMotion { return s.base }

// Attach hands the step a plan being computed elsewhere. Prepare polls it
// instead of computing the plan itself.
func (s *Step) Attach(p *Pending) {
	s.pending = p
}

// Ready reports whether the plan has been computed.
func (s *Step) Ready() bool { return s.ready }

// Prepare makes one attempt to obtain the plan and never blocks. With a
// pending handle attached it only polls the handle; otherwise it computes the
// plan inline.
func (s *Step) Prepare() bool {
	if s.ready {
		return true
	}
	if s.pending != nil {
		r, ok := s.pending.poll()
		if !ok {
			return false
		}
		s.pending = nil
		if r.err != nil {
			s.prepareErr = r.err
			return false
		}
		s.setPlan(r.plan)
		return true
	}
	plan, err := ComputePlan(s)
	if err != nil {
		s.prepareErr = err
		return false
	}
	s.setPlan(plan)
	return true
}

func (s *Step) setPlan(p Plan) {
	s.plan = p
	s.prepareErr = nil
	s.ready = true
}

// PrepareErr returns the error of the last failed preparation attempt.
func (s *Step) PrepareErr() error { return s.prepareErr }

// Preparing reports whether a pending plan has not been delivered yet.
func (s *Step) Preparing() bool { return s.pending != nil }

// Advance moves the step clock by dt and reports whether the step is still
// running. An unprepared step does not move.
func (s *Step) Advance(dt time.Duration) bool {
	if !s.ready {
		return true
	}
	s.elapsed += dt
	return s.elapsed <= s.plan.Total
}

func (s *Step) Elapsed() time.Duration       { return s.elapsed }
func (s *Step) TotalDuration() time.Duration { return s.plan.Total }
func (s *Step) Plan() Plan                   { return s.plan.clone() }

// Phase is the elapsed fraction of the step in [0, 1].
func (s *Step) Phase() float64 {
	if s.plan.Total <= 0 {
		if s.ready && s.elapsed > 0 {
			return 1
		}
		return 0
	}
	p := float64(s.elapsed) / float64(s.plan.Total)
	return min(p, 1)
}

// Clone returns an independent deep copy. The pending handle stays with the
// original; a clone of an unprepared step computes its plan inline.
func (s *Step) Clone() *Step {
	cp := &Step{
		ID:         s.ID,
		Label:      s.Label,
		legs:       make(map[Limb]LegMotion, len(s.legs)),
		elapsed:    s.elapsed,
		plan:       s.plan.clone(),
		ready:      s.ready,
		prepareErr: s.prepareErr,
	}
	for l, m := range s.legs {
		cp.legs[l] = m.Clone()
	}
	if s.base != nil {
		cp.base = s.base.Clone()
	}
	return cp
}

// Summary is a compact, JSON-friendly description used by events and status.
type Summary struct {
	ID       string        `json:"id"`
	Label    string        `json:"label,omitempty"`
	Legs     []string      `json:"legs,omitempty"`
	Base     string        `json:"base,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
	Duration time.Duration `json:"duration"`
}

func (s *Step) Summary() Summary {
	sum := Summary{
		ID:       s.ID.String(),
		Label:    s.Label,
		Elapsed:  s.elapsed,
		Duration: s.plan.Total,
	}
	for _, l := range s.Limbs() {
		sum.Legs = append(sum.Legs, l.String()+":"+s.legs[l].Kind())
	}
	if s.base != nil {
		sum.Base = s.base.Kind()
	}
	return sum
}

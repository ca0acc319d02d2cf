package completer

import (
	"errors"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"freegait/internal/gait/robot"
	"freegait/internal/gait/step"
)

func newSim() *robot.Simulated {
	return robot.NewSimulated(step.SymmetricStance(0.2, 0.2), 0.46)
}

func TestFootstepKeepsExplicitFields(t *testing.T) {
	t.Parallel()
	c := New(newSim())
	f := step.NewFootstep(step.LF, r3.Vector{X: 0.3, Y: 0.2})
	f.ProfileHeight = step.Float(0.10)

	c.SetFootstepParameters(f)

	if *f.ProfileHeight != 0.10 {
		t.Fatalf("ProfileHeight = %g, want 0.10", *f.ProfileHeight)
	}
	if *f.SurfaceNormal != (r3.Vector{X: 0, Y: 0, Z: 1}) {
		t.Fatalf("SurfaceNormal = %v, want (0,0,1)", *f.SurfaceNormal)
	}
	if *f.AverageVelocity != 2.0 {
		t.Fatalf("AverageVelocity = %g, want 2.0", *f.AverageVelocity)
	}
	if f.ProfileType != step.ProfileTriangle {
		t.Fatalf("ProfileType = %q, want triangle", f.ProfileType)
	}
}

func TestBaseAutoDefaults(t *testing.T) {
	t.Parallel()
	c := New(newSim())
	b := &step.BaseAuto{SupportMargin: step.Float(0.08)}

	c.SetBaseAutoParameters(b)

	if *b.Height != 0.46 || *b.AverageLinearVelocity != 0.05 || *b.AverageAngularVelocity != 0.1 {
		t.Fatalf("unexpected defaults: height=%g lin=%g ang=%g", *b.Height, *b.AverageLinearVelocity, *b.AverageAngularVelocity)
	}
	if *b.SupportMargin != 0.08 {
		t.Fatalf("SupportMargin = %g, want explicit 0.08", *b.SupportMargin)
	}
	want := map[step.Limb]r2.Point{
		step.LF: {X: 0.2, Y: 0.2},
		step.RF: {X: 0.2, Y: -0.2},
		step.LH: {X: -0.2, Y: 0.2},
		step.RH: {X: -0.2, Y: -0.2},
	}
	for l, p := range want {
		if got := b.NominalPlanarStance[l]; got != p {
			t.Fatalf("stance %s = %v, want %v", l, got, p)
		}
	}

	// The filled stance must not alias the template.
	b.NominalPlanarStance[step.LF] = r2.Point{}
	if got := c.Defaults().BaseAuto.NominalPlanarStance[step.LF]; got != (r2.Point{X: 0.2, Y: 0.2}) {
		t.Fatalf("template mutated: %v", got)
	}
}

func TestCompleteStep(t *testing.T) {
	t.Parallel()
	sim := newSim()
	c := New(sim)
	s := step.New("trot")
	s.AddLegMotion(step.NewFootstep(step.LF, r3.Vector{X: 0.3, Y: 0.2}))
	s.AddLegMotion(step.NewFootstep(step.RH, r3.Vector{X: -0.1, Y: -0.2}))
	s.SetBaseMotion(&step.BaseAuto{})

	if err := c.Complete(sim, s); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	m, _ := s.LegMotion(step.LF)
	f := m.(*step.Footstep)
	if !f.Completed() {
		t.Fatalf("footstep not completed: %+v", f)
	}
	if *f.Start != (r3.Vector{X: 0.2, Y: 0.2}) {
		t.Fatalf("Start = %v", *f.Start)
	}
	b := s.BaseMotion().(*step.BaseAuto)
	if !b.Completed() {
		t.Fatalf("base auto not completed: %+v", b)
	}
	if !s.Prepare() {
		t.Fatalf("completed step failed to prepare: %v", s.PrepareErr())
	}
}

func TestCompleteFailsWithoutState(t *testing.T) {
	t.Parallel()
	sim := newSim()
	sim.RemoveFoot(step.RF)
	c := New(sim)

	swing := step.New("")
	swing.AddLegMotion(step.NewFootstep(step.RF, r3.Vector{X: 0.3}))
	if err := c.Complete(sim, swing); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}

	// RF is a support leg here, and the base needs its position.
	shift := step.New("")
	shift.AddLegMotion(&step.LegMode{Leg: step.LF, Duration: time.Second})
	shift.SetBaseMotion(&step.BaseAuto{})
	if err := c.Complete(sim, shift); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}

	if err := New(nil).Complete(sim, step.New("")); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete without adapter", err)
	}
}

func TestCompleteRejectsUnknownLimb(t *testing.T) {
	t.Parallel()
	stance := step.SymmetricStance(0.2, 0.2)
	delete(stance, step.RH)
	sim := robot.NewSimulated(stance, 0.4)
	s := step.New("")
	s.AddLegMotion(&step.LegMode{Leg: step.RH, Duration: time.Second})
	if err := New(sim).Complete(sim, s); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
}

func TestCompleteBaseMotionDoesNotMutateStep(t *testing.T) {
	t.Parallel()
	sim := newSim()
	c := New(sim)
	s := step.New("")
	s.AddLegMotion(step.NewFootstep(step.LF, r3.Vector{X: 0.3, Y: 0.2}))

	preview := &step.BaseAuto{}
	if err := c.CompleteBaseMotion(sim, s, preview); err != nil {
		t.Fatalf("CompleteBaseMotion: %v", err)
	}
	if !preview.Completed() {
		t.Fatal("preview base motion not completed")
	}
	if s.HasBaseMotion() {
		t.Fatal("step gained a base motion")
	}
	m, _ := s.LegMotion(step.LF)
	if m.(*step.Footstep).ProfileHeight != nil {
		t.Fatal("step leg motion was completed by CompleteBaseMotion")
	}
}

func TestSetDefaults(t *testing.T) {
	t.Parallel()
	c := New(newSim())
	d := DefaultDefaults()
	d.Footstep.ProfileHeight = 0.12
	d.BaseAuto.NominalPlanarStance = step.SymmetricStance(0.3, 0.15)
	c.SetDefaults(d)

	f := step.NewFootstep(step.LF, r3.Vector{})
	c.SetFootstepParameters(f)
	if *f.ProfileHeight != 0.12 {
		t.Fatalf("ProfileHeight = %g, want 0.12", *f.ProfileHeight)
	}
	b := &step.BaseAuto{}
	c.SetBaseAutoParameters(b)
	if got := b.NominalPlanarStance[step.RH]; got != (r2.Point{X: -0.3, Y: -0.15}) {
		t.Fatalf("stance RH = %v", got)
	}
}

func TestDefaultsAreCopied(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name  string
		apply func(Defaults) *Completer
	}{
		{"WithDefaults", func(d Defaults) *Completer { return New(newSim(), WithDefaults(d)) }},
		{"SetDefaults", func(d Defaults) *Completer {
			c := New(newSim())
			c.SetDefaults(d)
			return c
		}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := DefaultDefaults()
			d.BaseAuto.NominalPlanarStance = step.SymmetricStance(0.3, 0.15)
			c := tc.apply(d)

			d.BaseAuto.NominalPlanarStance[step.LF] = r2.Point{X: 9, Y: 9}

			b := &step.BaseAuto{}
			c.SetBaseAutoParameters(b)
			if got := b.NominalPlanarStance[step.LF]; got != (r2.Point{X: 0.3, Y: 0.15}) {
				t.Fatalf("stance LF = %v, caller's map leaked into the completer", got)
			}
		})
	}
}

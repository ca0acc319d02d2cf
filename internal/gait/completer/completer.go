// Package completer fills the unset parameters of a step's leg and base
// motions from configured defaults and the current robot state.
package completer

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"freegait/internal/gait/robot"
	"freegait/internal/gait/step"
	logx "freegait/pkg/logx"
)

// ErrIncomplete is wrapped by every completion failure. A step that failed
// completion may be partially filled and must not be queued.
var ErrIncomplete = errors.New("step completion failed")

type Completer struct {
	adapter robot.Adapter
	log     logx.Logger

	mu       sync.RWMutex
	footstep FootstepParameters
	baseAuto BaseAutoParameters
}

type Option func(*Completer)

func WithLogger(log logx.Logger) Option {
	return func(c *Completer) { c.log = log }
}

// WithDefaults keeps its own copy of d, like SetDefaults.
func WithDefaults(d Defaults) Option {
	d.BaseAuto.NominalPlanarStance = d.BaseAuto.NominalPlanarStance.Clone()
	return func(c *Completer) {
		c.footstep = d.Footstep
		c.baseAuto = d.BaseAuto
	}
}

// New returns a completer reading robot data from adapter. The adapter is
// not owned.
func New(adapter robot.Adapter, opts ...Option) *Completer {
	d := DefaultDefaults()
	c := &Completer{adapter: adapter, footstep: d.Footstep, baseAuto: d.BaseAuto}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetDefaults swaps both templates. Safe to call while other goroutines
// complete steps.
func (c *Completer) SetDefaults(d Defaults) {
	d.BaseAuto.NominalPlanarStance = d.BaseAuto.NominalPlanarStance.Clone()
	c.mu.Lock()
	c.footstep = d.Footstep
	c.baseAuto = d.BaseAuto
	c.mu.Unlock()
}

func (c *Completer) Defaults() Defaults {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d := Defaults{Footstep: c.footstep, BaseAuto: c.baseAuto}
	d.BaseAuto.NominalPlanarStance = d.BaseAuto.NominalPlanarStance.Clone()
	return d
}

// Complete fills every leg motion and the base motion of s.
func (c *Completer) Complete(state robot.State, s *step.Step) error {
	if c.adapter == nil || state == nil {
		return fmt.Errorf("%w: robot adapter or state unavailable", ErrIncomplete)
	}

	var errs error
	for _, limb := range s.Limbs() {
		if !c.adapter.HasLimb(limb) {
			errs = multierr.Append(errs, fmt.Errorf("limb %s not provided by adapter", limb))
			continue
		}
		m, _ := s.LegMotion(limb)
		f, ok := m.(*step.Footstep)
		if !ok {
			continue
		}
		c.SetFootstepParameters(f)
		if f.Start == nil {
			pos, ok := state.FootPosition(limb)
			if !ok {
				errs = multierr.Append(errs, fmt.Errorf("no foot position for %s", limb))
				continue
			}
			f.Start = step.Vec(pos)
		}
	}
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrIncomplete, errs)
	}

	if s.HasBaseMotion() {
		if err := c.CompleteBaseMotion(state, s, s.BaseMotion()); err != nil {
			return err
		}
	}
	if !c.log.IsZero() {
		c.log.Debug("step completed", logx.String("step", s.ID.String()), logx.String("label", s.Label), logx.Int("legs", len(s.Limbs())))
	}
	return nil
}

// CompleteBaseMotion fills base in the context of s's leg motions. s itself
// is only read, so this can preview a base motion for a step already queued.
func (c *Completer) CompleteBaseMotion(state robot.State, s *step.Step, base step.BaseMotion) error {
	if c.adapter == nil || state == nil {
		return fmt.Errorf("%w: robot adapter or state unavailable", ErrIncomplete)
	}

	b, ok := base.(*step.BaseAuto)
	if !ok {
		return nil
	}
	c.SetBaseAutoParameters(b)

	var errs error
	for _, limb := range s.Limbs() {
		if !c.adapter.HasLimb(limb) {
			errs = multierr.Append(errs, fmt.Errorf("limb %s not provided by adapter", limb))
		}
	}
	// The base is shifted over the legs that stay on the ground.
	for _, limb := range c.adapter.Limbs() {
		if swinging(s, limb) {
			continue
		}
		if _, ok := state.FootPosition(limb); !ok {
			errs = multierr.Append(errs, fmt.Errorf("no foot position for support leg %s", limb))
		}
	}
	if b.Start == nil {
		if pos, ok := state.BasePosition(); ok {
			b.Start = step.Vec(pos)
		} else {
			errs = multierr.Append(errs, errors.New("no base position"))
		}
	}
	if errs != nil {
		return fmt.Errorf("%w: base auto: %w", ErrIncomplete, errs)
	}
	return nil
}

func swinging(s *step.Step, limb step.Limb) bool {
	m, ok := s.LegMotion(limb)
	if !ok {
		return false
	}
	switch v := m.(type) {
	case *step.Footstep:
		return true
	case *step.LegMode:
		return !v.SupportLeg
	default:
		return false
	}
}

// SetFootstepParameters fills unset fields of f from the footstep template.
func (c *Completer) SetFootstepParameters(f *step.Footstep) {
	c.mu.RLock()
	p := c.footstep
	c.mu.RUnlock()

	if f.ProfileType == "" {
		f.ProfileType = p.ProfileType
	}
	if f.SurfaceNormal == nil {
		f.SurfaceNormal = step.Vec(p.SurfaceNormal)
	}
	if f.ProfileHeight == nil {
		f.ProfileHeight = step.Float(p.ProfileHeight)
	}
	if f.AverageVelocity == nil {
		f.AverageVelocity = step.Float(p.AverageVelocity)
	}
}

// SetBaseAutoParameters fills unset fields of b from the base auto template.
func (c *Completer) SetBaseAutoParameters(b *step.BaseAuto) {
	c.mu.RLock()
	p := c.baseAuto
	stance := p.NominalPlanarStance.Clone()
	c.mu.RUnlock()

	if b.Height == nil {
		b.Height = step.Float(p.Height)
	}
	if b.AverageLinearVelocity == nil {
		b.AverageLinearVelocity = step.Float(p.AverageLinearVelocity)
	}
	if b.AverageAngularVelocity == nil {
		b.AverageAngularVelocity = step.Float(p.AverageAngularVelocity)
	}
	if b.SupportMargin == nil {
		b.SupportMargin = step.Float(p.SupportMargin)
	}
	if b.NominalPlanarStance == nil {
		b.NominalPlanarStance = stance
	}
}

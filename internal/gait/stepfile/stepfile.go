// Package stepfile loads step sequences from YAML or JSON files.
package stepfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"freegait/internal/config"
	"freegait/internal/gait/step"
)

// Load reads path and builds its steps. The format follows the extension
// (.yaml/.yml or JSON otherwise); unknown fields are rejected.
func Load(path string) ([]*step.Step, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, b)
}

// Parse decodes data, using name only to pick the format.
func Parse(name string, data []byte) ([]*step.Step, error) {
	var doc Document
	if err := config.DecodeStrict(name, data, &doc); err != nil {
		return nil, fmt.Errorf("step file %s: %w", name, err)
	}
	steps, err := Build(doc)
	if err != nil {
		return nil, fmt.Errorf("step file %s: %w", name, err)
	}
	return steps, nil
}

func Build(doc Document) ([]*step.Step, error) {
	if len(doc.Steps) == 0 {
		return nil, fmt.Errorf("steps: at least one step is required")
	}
	out := make([]*step.Step, 0, len(doc.Steps))
	for i, spec := range doc.Steps {
		s, err := buildStep(fmt.Sprintf("steps[%d]", i), spec)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func buildStep(path string, spec StepSpec) (*step.Step, error) {
	if len(spec.Legs) == 0 && spec.Base == nil {
		return nil, fmt.Errorf("%s: step needs leg motions or a base motion", path)
	}
	s := step.New(strings.TrimSpace(spec.Label))
	for i, leg := range spec.Legs {
		lp := fmt.Sprintf("%s.legs[%d]", path, i)
		m, err := buildLeg(lp, leg)
		if err != nil {
			return nil, err
		}
		if _, dup := s.LegMotion(m.Limb()); dup {
			return nil, fmt.Errorf("%s: duplicate motion for %s", lp, m.Limb())
		}
		s.AddLegMotion(m)
	}
	if spec.Base != nil {
		b, err := buildBase(path+".base", *spec.Base)
		if err != nil {
			return nil, err
		}
		s.SetBaseMotion(b)
	}
	return s, nil
}

func buildLeg(path string, spec LegSpec) (step.LegMotion, error) {
	limb, err := step.ParseLimb(spec.Limb)
	if err != nil {
		return nil, fmt.Errorf("%s.limb: %w", path, err)
	}
	switch strings.ToLower(strings.TrimSpace(spec.Type)) {
	case step.KindFootstep:
		target, err := Vec3(path+".target", spec.Target)
		if err != nil {
			return nil, err
		}
		f := step.NewFootstep(limb, target)
		if f.ProfileType, err = profileType(path+".profile_type", spec.ProfileType); err != nil {
			return nil, err
		}
		f.ProfileHeight = spec.ProfileHeight
		f.AverageVelocity = spec.AverageVelocity
		if spec.SurfaceNormal != nil {
			n, err := Vec3(path+".surface_normal", spec.SurfaceNormal)
			if err != nil {
				return nil, err
			}
			f.SurfaceNormal = step.Vec(n)
		}
		f.IgnoreContact = spec.IgnoreContact
		return f, nil
	case step.KindLegMode:
		d, err := config.ParseDurationField(path+".duration", spec.Duration)
		if err != nil {
			return nil, err
		}
		return &step.LegMode{Leg: limb, Duration: d, SupportLeg: spec.SupportLeg}, nil
	default:
		return nil, fmt.Errorf("%s.type: unknown leg motion %q (want %s or %s)", path, spec.Type, step.KindFootstep, step.KindLegMode)
	}
}

func buildBase(path string, spec BaseSpec) (step.BaseMotion, error) {
	switch strings.ToLower(strings.TrimSpace(spec.Type)) {
	case step.KindBaseAuto:
		b := &step.BaseAuto{
			Height:                 spec.Height,
			AverageLinearVelocity:  spec.AverageLinearVelocity,
			AverageAngularVelocity: spec.AverageAngularVelocity,
			SupportMargin:          spec.SupportMargin,
		}
		if spec.NominalStance != nil {
			st, err := Stance(path+".nominal_stance", spec.NominalStance)
			if err != nil {
				return nil, err
			}
			b.NominalPlanarStance = st
		}
		return b, nil
	case step.KindBaseTarget:
		target, err := Vec3(path+".target", spec.Target)
		if err != nil {
			return nil, err
		}
		d, err := config.ParseDurationField(path+".duration", spec.Duration)
		if err != nil {
			return nil, err
		}
		if d <= 0 {
			return nil, fmt.Errorf("%s.duration: must be > 0", path)
		}
		return &step.BaseTarget{Target: target, Duration: d}, nil
	default:
		return nil, fmt.Errorf("%s.type: unknown base motion %q (want %s or %s)", path, spec.Type, step.KindBaseAuto, step.KindBaseTarget)
	}
}

func profileType(path, raw string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(raw))
	switch p {
	case "", step.ProfileTriangle, step.ProfileSquare, step.ProfileStraight:
		return p, nil
	default:
		return "", fmt.Errorf("%s: unknown profile %q", path, raw)
	}
}

// Vec3 converts an [x, y, z] list.
func Vec3(path string, v []float64) (r3.Vector, error) {
	if len(v) != 3 {
		return r3.Vector{}, fmt.Errorf("%s: want [x, y, z], got %d values", path, len(v))
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
}

// Stance converts a limb-name to [x, y] map.
func Stance(path string, m map[string][]float64) (step.PlanarStance, error) {
	out := make(step.PlanarStance, len(m))
	for name, xy := range m {
		limb, err := step.ParseLimb(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(xy) != 2 {
			return nil, fmt.Errorf("%s.%s: want [x, y], got %d values", path, name, len(xy))
		}
		out[limb] = r2.Point{X: xy[0], Y: xy[1]}
	}
	return out, nil
}

package step

import "time"

// LegMode holds a limb in place (support) or releases it for a fixed duration.
type LegMode struct {
	Leg        Limb
	Duration   time.Duration
	SupportLeg bool
}

func (m *LegMode) Limb() Limb   { return m.Leg }
func (m *LegMode) Kind() string { return KindLegMode }

func (m *LegMode) Clone() LegMotion {
	cp := *m
	return &cp
}

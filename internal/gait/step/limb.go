package step

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r2"
)

// Limb identifies one leg of a quadruped.
type Limb int

const (
	LF Limb = iota // front-left
	RF             // front-right
	LH             // hind-left
	RH             // hind-right
)

var limbNames = [...]string{"LF_LEG", "RF_LEG", "LH_LEG", "RH_LEG"}

// AllLimbs returns the four limbs in canonical order.
func AllLimbs() []Limb { return []Limb{LF, RF, LH, RH} }

func (l Limb) Valid() bool { return l >= LF && l <= RH }

func (l Limb) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Limb(%d)", int(l))
	}
	return limbNames[l]
}

// ParseLimb accepts "LF_LEG" as well as the short form "lf".
func ParseLimb(s string) (Limb, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range limbNames {
		if v == name || v+"_LEG" == name {
			return Limb(i), nil
		}
	}
	return 0, fmt.Errorf("unknown limb %q", s)
}

func (l Limb) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid limb %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *Limb) UnmarshalText(b []byte) error {
	v, err := ParseLimb(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// PlanarStance is the nominal footprint: per-limb 2D position in the base frame.
type PlanarStance map[Limb]r2.Point

// SymmetricStance mirrors the offset (x, y) point-symmetrically:
// LF=(x,y), RF=(x,-y), LH=(-x,y), RH=(-x,-y).
func SymmetricStance(x, y float64) PlanarStance {
	return PlanarStance{
		LF: {X: x, Y: y},
		RF: {X: x, Y: -y},
		LH: {X: -x, Y: y},
		RH: {X: -x, Y: -y},
	}
}

func (p PlanarStance) Clone() PlanarStance {
	if p == nil {
		return nil
	}
	out := make(PlanarStance, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

package step

import (
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
)

func TestFootstepDurationByProfile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		profile string
		path    float64
	}{
		{profile: ProfileStraight, path: 0.1},
		{profile: ProfileSquare, path: 0.1 + 2*0.05},
		{profile: ProfileTriangle, path: 2 * math.Hypot(0.05, 0.05)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.profile, func(t *testing.T) {
			f := completedFootstep(LF)
			f.ProfileType = tt.profile
			f.AverageVelocity = Float(0.1)
			got, err := footstepDuration(f)
			if err != nil {
				t.Fatalf("footstepDuration: %v", err)
			}
			want := time.Duration(tt.path / 0.1 * float64(time.Second))
			if diff := got - want; diff > time.Microsecond || diff < -time.Microsecond {
				t.Fatalf("duration = %s, want %s", got, want)
			}
		})
	}
}

func TestFootstepDurationHasFloor(t *testing.T) {
	t.Parallel()
	f := completedFootstep(LF)
	f.Target = *f.Start
	f.ProfileType = ProfileStraight
	got, err := footstepDuration(f)
	if err != nil {
		t.Fatalf("footstepDuration: %v", err)
	}
	if got != minSwingDuration {
		t.Fatalf("duration = %s, want %s", got, minSwingDuration)
	}
}

func TestComputePlanBaseAutoSpansLegs(t *testing.T) {
	t.Parallel()
	s := New("")
	s.AddLegMotion(&LegMode{Leg: RH, Duration: 2 * time.Second})
	s.SetBaseMotion(&BaseAuto{
		Height:                 Float(0.46),
		AverageLinearVelocity:  Float(0.05),
		AverageAngularVelocity: Float(0.1),
		SupportMargin:          Float(0.04),
		NominalPlanarStance:    SymmetricStance(0.2, 0.2),
		Start:                  Vec(r3.Vector{Z: 0.46}),
	})
	plan, err := ComputePlan(s)
	if err != nil {
		t.Fatalf("ComputePlan: %v", err)
	}
	if plan.Base != 2*time.Second || plan.Total != 2*time.Second {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestComputePlanRejectsBadInput(t *testing.T) {
	t.Parallel()
	unknown := completedFootstep(LF)
	unknown.ProfileType = "zigzag"
	s := New("")
	s.AddLegMotion(unknown)
	if _, err := ComputePlan(s); err == nil {
		t.Fatal("expected error for unknown profile")
	}

	s = New("")
	s.SetBaseMotion(&BaseTarget{Target: r3.Vector{X: 1}})
	if _, err := ComputePlan(s); err == nil {
		t.Fatal("expected error for zero base target duration")
	}
}

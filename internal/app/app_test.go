package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"freegait/internal/config"
	"freegait/internal/gait/step"
	"freegait/internal/storage"
)

const stepsYAML = `
steps:
  - label: lift-rf
    legs:
      - type: footstep
        limb: RF_LEG
        target: [0.25, -0.2, 0.0]
        average_velocity: 5
    base:
      type: auto
  - label: settle
    legs:
      - type: leg_mode
        limb: LH_LEG
        duration: 20ms
        support_leg: true
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestRunStepFileToIdle(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "gaitd.yaml", `
logging:
  level: error
control:
  period: 2ms
  stop_when_idle: true
storage:
  driver: file
  path: `+filepath.Join(dir, "history")+`
`)
	stepsPath := writeFile(t, dir, "walk.yaml", stepsYAML)

	a, err := NewApp(cfgPath)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	n, err := a.LoadSteps(ctx, stepsPath)
	if err != nil || n != 2 {
		t.Fatalf("LoadSteps = %d, %v", n, err)
	}

	select {
	case <-a.Idle():
	case <-time.After(5 * time.Second):
		t.Fatalf("queue never drained: %+v", a.Status())
	}

	var recs []storage.StepRecord
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		recs, err = a.History(ctx, 10)
		if err == nil && len(recs) == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(recs) != 2 || recs[0].Label != "settle" || recs[1].Label != "lift-rf" {
		t.Fatalf("history = %+v, err = %v", recs, err)
	}

	if p, ok := a.robot.FootPosition(step.RF); !ok || p.X != 0.25 || p.Y != -0.2 {
		t.Fatalf("RF foot = %v (%v), want target applied", p, ok)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, StopIdle); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := a.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
}

func TestNewAppWithoutConfig(t *testing.T) {
	t.Parallel()
	a, err := NewApp("")
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	if _, err := a.History(context.Background(), 5); !errors.Is(err, storage.ErrDisabled) {
		t.Fatalf("History err = %v, want ErrDisabled", err)
	}
	if !a.Preparation().Enabled {
		t.Fatal("preparation should default to enabled")
	}
	if a.exec.Period() != 10*time.Millisecond {
		t.Fatalf("period = %v", a.exec.Period())
	}
	if err := a.Stop(context.Background(), StopAppStop); err != nil {
		t.Fatalf("Stop before Start: %v", err)
	}
}

func TestResolveRejects(t *testing.T) {
	t.Parallel()
	neg := -1.0
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"period", config.Config{Control: config.ControlConfig{Period: "fast"}}, "control.period"},
		{"workers", config.Config{Preparation: &config.PreparationConfig{Workers: -2}}, "preparation.workers"},
		{"profile", config.Config{Completer: config.CompleterConfig{Footstep: config.FootstepDefaults{ProfileType: "zigzag"}}}, "profile_type"},
		{"margin", config.Config{Completer: config.CompleterConfig{BaseAuto: config.BaseAutoDefaults{SupportMargin: &neg}}}, "support_margin"},
		{"normal", config.Config{Completer: config.CompleterConfig{Footstep: config.FootstepDefaults{SurfaceNormal: []float64{0, 1}}}}, "surface_normal"},
		{"stance", config.Config{Robot: config.RobotConfig{Stance: map[string][]float64{"XX_LEG": {0, 0}}}}, "robot.stance"},
		{"storage", config.Config{Storage: &config.StorageConfig{Driver: "sqlite"}}, "storage.path"},
		{"driver", config.Config{Storage: &config.StorageConfig{Driver: "redis"}}, "storage.driver"},
		{"report", config.Config{Monitor: config.MonitorConfig{ReportEvery: "10ms"}}, "monitor.report_every"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolve(&tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestResolveOverlaysDefaults(t *testing.T) {
	t.Parallel()
	h, off := 0.3, false
	s, err := resolve(&config.Config{
		Preparation: &config.PreparationConfig{Enabled: &off},
		Completer: config.CompleterConfig{
			Footstep: config.FootstepDefaults{ProfileType: "Square"},
			BaseAuto: config.BaseAutoDefaults{Height: &h},
		},
		Storage: &config.StorageConfig{Driver: "file"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.prep.Enabled {
		t.Fatal("preparation.enabled=false ignored")
	}
	if s.defaults.Footstep.ProfileType != step.ProfileSquare || s.defaults.BaseAuto.Height != 0.3 {
		t.Fatalf("defaults = %+v", s.defaults)
	}
	if s.defaults.BaseAuto.AverageLinearVelocity <= 0 {
		t.Fatal("unset base_auto fields should keep built-in defaults")
	}
	if s.storage.Driver != "file" || s.storage.Path == "" {
		t.Fatalf("storage = %+v", s.storage)
	}
	if len(s.stance) != 4 || s.height != 0.46 {
		t.Fatalf("robot = %v, %v", s.stance, s.height)
	}
}

func TestCheckChainsRobotState(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "walk.yaml", `
steps:
  - label: one
    legs:
      - type: footstep
        limb: LF_LEG
        target: [0.3, 0.2, 0.0]
        average_velocity: 0.2
  - label: two
    legs:
      - type: footstep
        limb: LF_LEG
        target: [0.35, 0.2, 0.0]
        average_velocity: 0.2
`)
	a, err := NewApp("")
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer a.Close()

	sums, err := a.Check(path)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(sums) != 2 || sums[0].Duration <= 0 {
		t.Fatalf("summaries = %+v", sums)
	}
	// The second swing starts where the first ended, so it is shorter.
	if sums[1].Duration >= sums[0].Duration {
		t.Fatalf("durations %v, %v: second step should start from the first target", sums[0].Duration, sums[1].Duration)
	}
	if p, _ := a.robot.FootPosition(step.LF); p.X != 0.2 {
		t.Fatalf("Check moved the live robot: %v", p)
	}
}

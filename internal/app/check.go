package app

import (
	"fmt"

	"freegait/internal/gait/robot"
	"freegait/internal/gait/step"
	"freegait/internal/gait/stepfile"
)

// Check completes and prepares the steps of a file without running them. Each
// step is completed against a private copy of the robot that already took the
// previous steps.
func (a *App) Check(path string) ([]step.Summary, error) {
	steps, err := stepfile.Load(path)
	if err != nil {
		return nil, err
	}
	sim := robot.NewSimulated(a.settings.stance, a.settings.height)
	out := make([]step.Summary, 0, len(steps))
	for i, st := range steps {
		if err := a.comp.Complete(sim, st); err != nil {
			return out, fmt.Errorf("step %d (%s): %w", i, st.Label, err)
		}
		if !st.Prepare() {
			return out, fmt.Errorf("step %d (%s): %w", i, st.Label, st.PrepareErr())
		}
		sim.ApplyStep(st)
		out = append(out, st.Summary())
	}
	return out, nil
}

// Close releases the store and log file of an App that was never started.
func (a *App) Close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return err
}

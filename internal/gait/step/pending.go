package step

import "sync"

// Pending is a handle for a plan computed elsewhere. The producer side calls
// Resolve once; the control thread polls it without blocking.
type Pending struct {
	ch   chan planResult
	once sync.Once
}

type planResult struct {
	plan Plan
	err  error
}

func NewPending() *Pending {
	return &Pending{ch: make(chan planResult, 1)}
}

// Resolve delivers the result. Calls after the first are ignored.
func (p *Pending) Resolve(plan Plan, err error) {
	p.once.Do(func() {
		p.ch <- planResult{plan: plan, err: err}
	})
}

func (p *Pending) poll() (planResult, bool) {
	select {
	case r := <-p.ch:
		return r, true
	default:
		return planResult{}, false
	}
}

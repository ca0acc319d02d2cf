// Package queue sequences prepared steps through a fixed-rate control loop.
//
// The queue is driven by exactly one goroutine calling Advance once per
// control period. It is not synchronized: producers calling Add concurrently
// with Advance must serialize access themselves.
package queue

import (
	"errors"
	"fmt"
	"time"
)

// ErrOutOfRange is returned by accessors asked for an element the queue does
// not hold. It signals caller misuse: check Empty, Size or
// PreviousStepExists first.
var ErrOutOfRange = errors.New("step queue: out of range")

// Step is the capability the queue needs from a step.
type Step[S any] interface {
	// Ready reports whether the step's trajectory has been prepared.
	Ready() bool
	// Prepare makes one non-blocking preparation attempt.
	Prepare() bool
	// Advance moves the step clock by dt; false means the step finished.
	Advance(dt time.Duration) bool
	// Clone returns an independent deep copy.
	Clone() S
}

// Queue holds the plan (front = current step) and the last finished step.
type Queue[S Step[S]] struct {
	plan      deque[S]
	activated bool

	previous    S
	hasPrevious bool
}

func New[S Step[S]]() *Queue[S] {
	return &Queue[S]{}
}

// Add appends s to the back of the plan. s must already be completed.
func (q *Queue[S]) Add(s S) {
	q.plan.pushBack(s)
}

// Advance runs one control tick.
//
// switched reports that a different step became current this tick (first
// activation or hand-off after a finish). started reports that the current
// step finished preparation this tick. Neither of those ticks moves the step
// clock. err is reserved for future failure signaling and is always nil.
func (q *Queue[S]) Advance(dt time.Duration) (switched, started bool, err error) {
	if q.plan.len() == 0 {
		q.activated = false
		return false, false, nil
	}

	// First step of a fresh plan: let consumers see the switch before any motion.
	if !q.activated {
		q.activated = true
		return true, false, nil
	}

	front := q.plan.front()
	if !front.Ready() {
		if !front.Prepare() {
			return false, false, nil
		}
		return false, true, nil
	}

	if front.Advance(dt) {
		return false, false, nil
	}

	// Finished: retain it, expose the next one from the next tick on.
	q.previous = q.plan.popFront()
	q.hasPrevious = true
	if q.plan.len() == 0 {
		q.activated = false
		return false, false, nil
	}
	return true, false, nil
}

// Active reports whether the current step is prepared.
func (q *Queue[S]) Active() bool {
	if q.plan.len() == 0 {
		return false
	}
	return q.plan.front().Ready()
}

func (q *Queue[S]) Empty() bool { return q.plan.len() == 0 }
func (q *Queue[S]) Size() int   { return q.plan.len() }

// ClearNextSteps drops every step after the current one.
func (q *Queue[S]) ClearNextSteps() {
	if q.plan.len() == 0 {
		return
	}
	q.plan.truncate(1)
}

// Clear drops the plan and the previous step. The next added step goes
// through activation again.
func (q *Queue[S]) Clear() {
	var zero S
	q.previous = zero
	q.hasPrevious = false
	q.activated = false
	q.plan.truncate(0)
}

func (q *Queue[S]) CurrentStep() (S, error) {
	if q.plan.len() == 0 {
		var zero S
		return zero, fmt.Errorf("%w: no steps in queue", ErrOutOfRange)
	}
	return q.plan.front(), nil
}

func (q *Queue[S]) NextStep() (S, error) {
	if q.plan.len() < 2 {
		var zero S
		return zero, fmt.Errorf("%w: no next step in queue", ErrOutOfRange)
	}
	return q.plan.at(1), nil
}

func (q *Queue[S]) PreviousStepExists() bool { return q.hasPrevious }

func (q *Queue[S]) PreviousStep() (S, error) {
	if !q.hasPrevious {
		var zero S
		return zero, fmt.Errorf("%w: no previous step available", ErrOutOfRange)
	}
	return q.previous, nil
}

// ReplaceCurrentStep swaps the front step for s in place.
func (q *Queue[S]) ReplaceCurrentStep(s S) error {
	if q.plan.len() == 0 {
		return fmt.Errorf("%w: no current step to replace", ErrOutOfRange)
	}
	q.plan.set(0, s)
	return nil
}

// Steps returns the plan front to back. The slice is a copy; the steps are not.
func (q *Queue[S]) Steps() []S {
	out := make([]S, q.plan.len())
	for i := range out {
		out[i] = q.plan.at(i)
	}
	return out
}

// Clone returns a deep copy: every planned step and the previous step are cloned.
func (q *Queue[S]) Clone() *Queue[S] {
	cp := &Queue[S]{activated: q.activated}
	for i := 0; i < q.plan.len(); i++ {
		cp.plan.pushBack(q.plan.at(i).Clone())
	}
	if q.hasPrevious {
		cp.previous = q.previous.Clone()
		cp.hasPrevious = true
	}
	return cp
}

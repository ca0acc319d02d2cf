package prepare

import "errors"

var (
	ErrDisabled  = errors.New("step preparation disabled")
	ErrStopped   = errors.New("step preparation stopped")
	ErrStopping  = errors.New("step preparation stopping")
	ErrQueueFull = errors.New("step preparation queue full")
	ErrStale     = errors.New("step preparation: queued too long")
)

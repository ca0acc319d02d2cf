package step

import (
	"time"

	"github.com/golang/geo/r3"
)

// BaseTarget moves the base to an explicit position in a fixed time.
type BaseTarget struct {
	Target   r3.Vector
	Duration time.Duration
}

func (b *BaseTarget) Kind() string { return KindBaseTarget }

func (b *BaseTarget) Clone() BaseMotion {
	cp := *b
	return &cp
}

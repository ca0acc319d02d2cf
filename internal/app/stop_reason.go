package app

// StopReason is recorded in the shutdown logs.
type StopReason string

const (
	StopUnknown    StopReason = "unknown"
	StopSignal     StopReason = "signal"
	StopFatalError StopReason = "fatal_error"
	StopIdle       StopReason = "queue_drained"
	StopAppStop    StopReason = "app_stop"
)

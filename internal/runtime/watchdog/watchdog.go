// Package watchdog reports service state to systemd (sd_notify).
//
// Outside systemd (no NOTIFY_SOCKET) every call is a no-op.
package watchdog

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "freegait/pkg/logx"
)

type Notifier struct {
	log      logx.Logger
	interval time.Duration
}

// New reads WATCHDOG_USEC. Pings are due at half the configured timeout.
func New(log logx.Logger) *Notifier {
	n := &Notifier{log: log.With(logx.String("comp", "watchdog"))}
	timeout, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.log.Warn("systemd watchdog misconfigured", logx.Err(err))
		return n
	}
	if timeout > 0 {
		n.interval = timeout / 2
		n.log.Info("systemd watchdog enabled", logx.Duration("timeout", timeout))
	}
	return n
}

// Interval is the ping period, 0 when the watchdog is off.
func (n *Notifier) Interval() time.Duration { return n.interval }

func (n *Notifier) Ready()    { n.notify(daemon.SdNotifyReady) }
func (n *Notifier) Stopping() { n.notify(daemon.SdNotifyStopping) }
func (n *Notifier) Ping()     { n.notify(daemon.SdNotifyWatchdog) }

// Status sets the one-line status shown by systemctl status.
func (n *Notifier) Status(s string) { n.notify("STATUS=" + s) }

func (n *Notifier) notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		n.log.Trace("sd_notify", logx.String("state", state))
	}
}

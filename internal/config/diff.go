package config

import (
	"reflect"
	"strings"

	logx "freegait/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections and
// structured attrs for logging the new values.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 16)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if strings.TrimSpace(oldCfg.Control.Period) != strings.TrimSpace(newCfg.Control.Period) ||
		oldCfg.Control.StopWhenIdle != newCfg.Control.StopWhenIdle {
		changed = append(changed, "control")
		attrs = append(attrs,
			logx.String("control.period", strings.TrimSpace(newCfg.Control.Period)),
			logx.Bool("control.stop_when_idle", newCfg.Control.StopWhenIdle),
		)
	}

	oldPrep, newPrep := derefPreparation(oldCfg.Preparation), derefPreparation(newCfg.Preparation)
	if !reflect.DeepEqual(oldPrep, newPrep) {
		changed = append(changed, "preparation")
		attrs = append(attrs,
			logx.Int("preparation.workers", newPrep.Workers),
			logx.Int("preparation.queue_size", newPrep.QueueSize),
		)
	}

	if !reflect.DeepEqual(oldCfg.Completer, newCfg.Completer) {
		changed = append(changed, "completer")
		attrs = append(attrs, logx.String("completer.profile_type", newCfg.Completer.Footstep.ProfileType))
	}

	if !reflect.DeepEqual(oldCfg.Robot, newCfg.Robot) {
		changed = append(changed, "robot")
	}

	oldSt, newSt := derefStorage(oldCfg.Storage), derefStorage(newCfg.Storage)
	if oldSt != newSt {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newSt.Driver),
			logx.String("storage.path", newSt.Path),
		)
	}

	if oldCfg.Monitor != newCfg.Monitor {
		changed = append(changed, "monitor")
		attrs = append(attrs,
			logx.Bool("monitor.enabled", newCfg.Monitor.Enabled),
			logx.String("monitor.report_every", newCfg.Monitor.ReportEvery),
		)
	}

	if oldCfg.Debug != newCfg.Debug {
		changed = append(changed, "debug")
		attrs = append(attrs,
			logx.Bool("debug.enabled", newCfg.Debug.Enabled),
			logx.String("debug.addr", newCfg.Debug.Addr),
			logx.Bool("debug.token_set", newCfg.Debug.Token != ""),
		)
	}

	return changed, attrs
}

func derefPreparation(p *PreparationConfig) PreparationConfig {
	if p == nil {
		return PreparationConfig{}
	}
	return *p
}

func derefStorage(s *StorageConfig) StorageConfig {
	if s == nil {
		return StorageConfig{}
	}
	return *s
}

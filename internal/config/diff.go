package config

import (
	"reflect"
	"strings"

	"netmond/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections plus
// structured attrs safe for logging (never key material or paths into
// home directories beyond what the operator already wrote).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Collector, newCfg.Collector) {
		changed = append(changed, "collector")
		attrs = append(attrs,
			logx.Bool("collector.enabled", newCfg.Collector.Enabled),
			logx.String("collector.schedule", strings.TrimSpace(newCfg.Collector.Schedule)),
			logx.Int("collector.path_count", len(newCfg.Collector.Paths)),
			logx.Bool("collector.full_test", newCfg.Collector.FullTest),
		)
	}

	if !reflect.DeepEqual(oldCfg.SSH, newCfg.SSH) {
		changed = append(changed, "ssh")
		attrs = append(attrs,
			logx.Int("ssh.port", newCfg.SSH.Port),
			logx.Bool("ssh.key_file_set", strings.TrimSpace(newCfg.SSH.KeyFile) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.String("storage.retention", strings.TrimSpace(newCfg.Storage.Retention)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Egress, newCfg.Egress) {
		changed = append(changed, "egress")
		attrs = append(attrs,
			logx.Bool("egress.enabled", newCfg.Egress.Enabled),
			logx.String("egress.schedule", strings.TrimSpace(newCfg.Egress.Schedule)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Metrics, newCfg.Metrics) {
		changed = append(changed, "metrics")
		attrs = append(attrs,
			logx.Bool("metrics.enabled", newCfg.Metrics.Enabled),
			logx.String("metrics.addr", strings.TrimSpace(newCfg.Metrics.Addr)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Diagnostics, newCfg.Diagnostics) {
		changed = append(changed, "diagnostics")
		attrs = append(attrs,
			logx.Int("diagnostics.history_hours", newCfg.Diagnostics.HistoryHours),
		)
	}

	return changed, attrs
}
